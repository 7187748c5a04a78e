package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/kasuwa-hq/kasuwa-backend/pkg/enums"
)

type Category struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name      string    `gorm:"column:name;type:varchar(128);not null;uniqueIndex:ux_categories_name"`
	Slug      string    `gorm:"column:slug;type:varchar(128);not null;uniqueIndex:ux_categories_slug"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

type Product struct {
	ID         uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	SellerID   uuid.UUID  `gorm:"column:seller_id;type:uuid;not null;index:ix_products_seller"`
	CategoryID *uuid.UUID `gorm:"column:category_id;type:uuid;index:ix_products_category"`

	Name        string              `gorm:"column:name;type:varchar(256);not null"`
	Description string              `gorm:"column:description;type:text"`
	PriceKobo   int64               `gorm:"column:price_kobo;not null"`
	Currency    enums.Currency      `gorm:"column:currency;type:varchar(8);not null;default:'NGN'"`
	Quantity    int                 `gorm:"column:quantity;not null;default:0"`
	Status      enums.ProductStatus `gorm:"column:status;type:varchar(16);not null;default:'draft'"`

	Category *Category `gorm:"foreignKey:CategoryID"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (p Product) InStock() bool {
	return p.Quantity > 0 && p.Status == enums.ProductStatusActive
}
