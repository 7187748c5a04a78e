package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/kasuwa-hq/kasuwa-backend/pkg/enums"
)

// WalletTransaction is the seller-facing audit log. Amounts are signed:
// positive entries are credits, negative entries are debits.
type WalletTransaction struct {
	ID          uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	SellerID    uuid.UUID               `gorm:"column:seller_id;type:uuid;not null;index"`
	Type        enums.TransactionType   `gorm:"column:type;type:varchar(16);not null"`
	AmountKobo  int64                   `gorm:"column:amount_kobo;not null"`
	Status      enums.TransactionStatus `gorm:"column:status;type:varchar(16);not null;default:'pending'"`
	OrderID     *uuid.UUID              `gorm:"column:order_id;type:uuid"`
	PayoutID    *uuid.UUID              `gorm:"column:payout_id;type:uuid"`
	Description string                  `gorm:"column:description;not null"`
	Metadata    json.RawMessage         `gorm:"column:metadata;type:jsonb"`
	CreatedAt   time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
