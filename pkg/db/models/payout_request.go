package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/kasuwa-hq/kasuwa-backend/pkg/enums"
)

// PayoutRequest tracks a seller withdrawal through the
// requested -> approved -> processed / rejected lifecycle. The destination
// bank details are snapshotted at request time so later edits to the seller's
// bank accounts cannot redirect an in-flight payout.
type PayoutRequest struct {
	ID       uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	SellerID uuid.UUID          `gorm:"column:seller_id;type:uuid;not null;index:ix_payout_requests_seller"`
	Amount   int64              `gorm:"column:amount_kobo;not null"`
	Currency enums.Currency     `gorm:"column:currency;type:varchar(8);not null;default:'NGN'"`
	Status   enums.PayoutStatus `gorm:"column:status;type:varchar(16);not null;index:ix_payout_requests_status"`

	// Bank snapshot taken from the seller's default account at request time.
	BankName      string `gorm:"column:bank_name;type:varchar(128);not null"`
	BankCode      string `gorm:"column:bank_code;type:varchar(8);not null"`
	AccountNumber string `gorm:"column:account_number;type:varchar(10);not null"`
	AccountName   string `gorm:"column:account_name;type:varchar(128);not null"`

	TransferReference *string `gorm:"column:transfer_reference;type:varchar(64)"`
	AdminNotes        *string `gorm:"column:admin_notes;type:text"`

	RequestedAt time.Time  `gorm:"column:requested_at;autoCreateTime"`
	ApprovedAt  *time.Time `gorm:"column:approved_at"`
	ProcessedAt *time.Time `gorm:"column:processed_at"`
	RejectedAt  *time.Time `gorm:"column:rejected_at"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (p PayoutRequest) IsCancellable() bool {
	return p.Status == enums.PayoutStatusRequested
}
