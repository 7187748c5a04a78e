package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/kasuwa-hq/kasuwa-backend/pkg/enums"
)

// SellerBankAccount is a payout destination owned by a seller. At most one
// account per seller carries IsDefault; the partial unique index enforcing
// that lives in the migrations.
type SellerBankAccount struct {
	ID       uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	SellerID uuid.UUID `gorm:"column:seller_id;type:uuid;not null;index:ix_seller_bank_accounts_seller"`

	BankName      string `gorm:"column:bank_name;type:varchar(128);not null"`
	BankCode      string `gorm:"column:bank_code;type:varchar(8);not null"`
	AccountNumber string `gorm:"column:account_number;type:varchar(10);not null"`
	AccountName   string `gorm:"column:account_name;type:varchar(128);not null"`

	IsDefault          bool                         `gorm:"column:is_default;not null;default:false"`
	IsVerified         bool                         `gorm:"column:is_verified;not null;default:false"`
	VerificationStatus enums.BankVerificationStatus `gorm:"column:verification_status;type:varchar(16);not null;default:'pending'"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
