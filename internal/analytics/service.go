package analytics

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kasuwa-hq/kasuwa-backend/pkg/db/models"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/enums"
	pkgerrors "github.com/kasuwa-hq/kasuwa-backend/pkg/errors"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/logger"
)

const topProductLimit = 5

// TopProduct is one row of the seller's best-sellers table.
type TopProduct struct {
	ProductID   *uuid.UUID `json:"product_id"`
	Name        string     `json:"name"`
	UnitsSold   int64      `json:"units_sold"`
	RevenueKobo int64      `json:"revenue_kobo"`
}

// Summary is the seller dashboard headline block. All money is in kobo.
type Summary struct {
	TotalRevenueKobo       int64        `json:"total_revenue_kobo"`
	ActualReceivedKobo     int64        `json:"actual_received_kobo"`
	AvailableBalanceKobo   int64        `json:"available_balance_kobo"`
	PendingWithdrawalsKobo int64        `json:"pending_withdrawals_kobo"`
	TotalWithdrawnKobo     int64        `json:"total_withdrawn_kobo"`
	OrderCount             int64        `json:"order_count"`
	PaidOrderCount         int64        `json:"paid_order_count"`
	ActiveProductCount     int64        `json:"active_product_count"`
	TopProducts            []TopProduct `json:"top_products"`
}

// Service aggregates dashboard numbers for a seller.
type Service interface {
	GetSummary(ctx context.Context, sellerID uuid.UUID) (*Summary, error)
}

type service struct {
	db   *gorm.DB
	logg *logger.Logger
}

func NewService(db *gorm.DB, logg *logger.Logger) (Service, error) {
	if db == nil {
		return nil, fmt.Errorf("db handle required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{db: db, logg: logg}, nil
}

func (s *service) GetSummary(ctx context.Context, sellerID uuid.UUID) (*Summary, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id is required")
	}

	summary := &Summary{TopProducts: []TopProduct{}}

	var record models.SellerFinancialRecord
	err := s.db.WithContext(ctx).Where("seller_id = ?", sellerID).First(&record).Error
	if err != nil && err != gorm.ErrRecordNotFound {
		return nil, err
	}
	if err == nil {
		summary.TotalRevenueKobo = record.TotalRevenueKobo
		summary.ActualReceivedKobo = record.ActualReceivedKobo
		summary.AvailableBalanceKobo = record.AvailableBalanceKobo
		summary.PendingWithdrawalsKobo = record.PendingWithdrawalsKobo
		summary.TotalWithdrawnKobo = record.TotalWithdrawnKobo
	}

	sellerOrders := s.db.
		Model(&models.OrderLineItem{}).
		Select("DISTINCT order_id").
		Where("seller_id = ?", sellerID)

	if err := s.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id IN (?)", sellerOrders).
		Count(&summary.OrderCount).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id IN (?) AND status = ?", sellerOrders, enums.OrderStatusPaid).
		Count(&summary.PaidOrderCount).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("seller_id = ? AND status = ?", sellerID, enums.ProductStatusActive).
		Count(&summary.ActiveProductCount).Error; err != nil {
		return nil, err
	}

	// Best sellers across paid orders only.
	rows := []TopProduct{}
	err = s.db.WithContext(ctx).
		Model(&models.OrderLineItem{}).
		Select("order_line_items.product_id AS product_id, order_line_items.name AS name, SUM(order_line_items.qty) AS units_sold, SUM(order_line_items.unit_price_kobo * order_line_items.qty) AS revenue_kobo").
		Joins("JOIN orders ON orders.id = order_line_items.order_id").
		Where("order_line_items.seller_id = ?", sellerID).
		Where("orders.status = ?", enums.OrderStatusPaid).
		Group("order_line_items.product_id, order_line_items.name").
		Order("revenue_kobo DESC").
		Limit(topProductLimit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	summary.TopProducts = rows

	return summary, nil
}
