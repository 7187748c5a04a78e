package models

import (
	"time"

	"github.com/google/uuid"
)

// Seller is a vendor on the marketplace. The Paystack subaccount fields are
// populated once by the provisioning job and never rewritten.
type Seller struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	BusinessName   string              `gorm:"column:business_name;not null"`
	ContactName    string              `gorm:"column:contact_name;not null"`
	ContactEmail   string              `gorm:"column:contact_email;not null;unique"`
	Phone          *string             `gorm:"column:phone"`
	SubaccountCode *string             `gorm:"column:subaccount_code;unique"`
	SubaccountID   *int64              `gorm:"column:subaccount_id"`
	IsActive       bool                `gorm:"column:is_active;not null;default:true"`
	BankAccounts   []SellerBankAccount `gorm:"foreignKey:SellerID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// HasSubaccount reports whether the seller is already provisioned at the rail.
func (s *Seller) HasSubaccount() bool {
	return s.SubaccountCode != nil && *s.SubaccountCode != ""
}
