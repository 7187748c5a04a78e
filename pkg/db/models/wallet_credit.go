package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/kasuwa-hq/kasuwa-backend/pkg/enums"
)

// WalletCredit is an append-only ledger entry recording money added to a
// seller's balance. One row per applied payment split.
type WalletCredit struct {
	ID          uuid.UUID                `gorm:"column:id;type:uuid;primaryKey"`
	SellerID    uuid.UUID                `gorm:"column:seller_id;type:uuid;not null;index"`
	OrderID     uuid.UUID                `gorm:"column:order_id;type:uuid;not null"`
	AmountKobo  int64                    `gorm:"column:amount_kobo;not null"`
	Source      enums.WalletCreditSource `gorm:"column:source;type:varchar(16);not null"`
	Status      enums.WalletCreditStatus `gorm:"column:status;type:varchar(16);not null;default:'pending'"`
	Metadata    json.RawMessage          `gorm:"column:metadata;type:jsonb"`
	ProcessedAt *time.Time               `gorm:"column:processed_at"`
	CreatedAt   time.Time                `gorm:"column:created_at;autoCreateTime"`
}

// WalletCreditMetadata is the structured payload stored on each credit row.
type WalletCreditMetadata struct {
	OrderNumber     int64  `json:"order_number"`
	BuyerName       string `json:"buyer_name"`
	PlatformFeeKobo int64  `json:"platform_fee_kobo"`
	OriginalAmount  int64  `json:"original_amount_kobo"`
}
