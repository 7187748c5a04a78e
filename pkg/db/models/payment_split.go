package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentSplit is the immutable record of one seller's share of one order.
// The unique (order_id, seller_id) index is the idempotency guard against
// double-crediting: a split is written exactly once per pair.
type PaymentSplit struct {
	ID               uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OrderID          uuid.UUID `gorm:"column:order_id;type:uuid;not null;uniqueIndex:ux_payment_splits_order_seller"`
	SellerID         uuid.UUID `gorm:"column:seller_id;type:uuid;not null;uniqueIndex:ux_payment_splits_order_seller"`
	OrderAmountKobo  int64     `gorm:"column:order_amount_kobo;not null"`
	PlatformFeeKobo  int64     `gorm:"column:platform_fee_kobo;not null"`
	SellerAmountKobo int64     `gorm:"column:seller_amount_kobo;not null"`
	TransactionRef   string    `gorm:"column:transaction_ref;not null"`
	ProcessedAt      time.Time `gorm:"column:processed_at;not null"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime"`
}
