package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/kasuwa-hq/kasuwa-backend/pkg/enums"
)

// Order represents a buyer purchase, possibly spanning multiple sellers.
// Fulfillment status progresses independently of payment state.
type Order struct {
	ID                     uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber            int64             `gorm:"column:order_number;not null;unique"`
	BuyerID                uuid.UUID         `gorm:"column:buyer_id;type:uuid;not null"`
	BuyerName              string            `gorm:"column:buyer_name;not null"`
	BuyerEmail             string            `gorm:"column:buyer_email;not null"`
	TotalKobo              int64             `gorm:"column:total_kobo;not null"`
	Currency               enums.Currency    `gorm:"column:currency;type:text;not null;default:'NGN'"`
	Status                 enums.OrderStatus `gorm:"column:status;type:varchar(16);not null;default:'pending'"`
	PaymentReference       *string           `gorm:"column:payment_reference;unique"`
	WalletCreditsProcessed bool              `gorm:"column:wallet_credits_processed;not null;default:false"`
	Items                  []OrderLineItem   `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	PaymentSplits          []PaymentSplit    `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	PaidAt                 *time.Time        `gorm:"column:paid_at"`
	CreatedAt              time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt              time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// SellerIDs returns the distinct sellers represented in the order's items.
// Items without an attributed seller are skipped.
func (o *Order) SellerIDs() []uuid.UUID {
	seen := map[uuid.UUID]struct{}{}
	ids := make([]uuid.UUID, 0, len(o.Items))
	for _, item := range o.Items {
		if item.SellerID == uuid.Nil {
			continue
		}
		if _, ok := seen[item.SellerID]; ok {
			continue
		}
		seen[item.SellerID] = struct{}{}
		ids = append(ids, item.SellerID)
	}
	return ids
}

// OrderLineItem captures the snapshot of each item within an order.
type OrderLineItem struct {
	ID             uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	OrderID        uuid.UUID            `gorm:"column:order_id;type:uuid;not null"`
	ProductID      *uuid.UUID           `gorm:"column:product_id;type:uuid"`
	SellerID       uuid.UUID            `gorm:"column:seller_id;type:uuid"`
	Name           string               `gorm:"column:name;not null"`
	UnitPriceKobo  int64                `gorm:"column:unit_price_kobo;not null"`
	Qty            int                  `gorm:"column:qty;not null"`
	Status         enums.LineItemStatus `gorm:"column:status;type:varchar(16);not null;default:'pending'"`
	CreatedAt      time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

// LineTotal returns the item's extended price in kobo.
func (i OrderLineItem) LineTotal() int64 {
	return i.UnitPriceKobo * int64(i.Qty)
}
