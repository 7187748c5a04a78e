// Package splits computes per-seller settlement amounts for a paid order.
package splits

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kasuwa-hq/kasuwa-backend/pkg/db/models"
)

// Split is the settlement outcome for a single seller within an order.
type Split struct {
	SellerID         uuid.UUID
	OrderAmountKobo  int64
	PlatformFeeKobo  int64
	SellerAmountKobo int64
	TransactionRef   string
}

// Result carries every computed split plus items that could not be
// attributed to a seller and were therefore excluded from settlement.
type Result struct {
	Splits        []Split
	ExcludedItems []uuid.UUID
	TotalKobo     int64
}

// Calculator derives payment splits from order line items. It is pure: all
// rounding happens here and nowhere else, so a given order always yields the
// same amounts.
type Calculator struct {
	feeRate decimal.Decimal
}

// NewCalculator builds a calculator for the given platform fee rate
// (0.15 means 15 percent).
func NewCalculator(feeRate float64) (*Calculator, error) {
	if feeRate < 0 || feeRate >= 1 {
		return nil, fmt.Errorf("fee rate must be in [0, 1), got %v", feeRate)
	}
	return &Calculator{feeRate: decimal.NewFromFloat(feeRate)}, nil
}

// Calculate groups the order's line items by seller and produces one split per
// seller. The platform fee is rounded half-up on the per-seller gross, and the
// seller amount is derived by subtraction so the two always sum to the gross.
// Items without a seller are reported in ExcludedItems rather than settled.
func (c *Calculator) Calculate(orderID uuid.UUID, items []models.OrderLineItem, now time.Time) (*Result, error) {
	if orderID == uuid.Nil {
		return nil, fmt.Errorf("order id is required")
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("order has no line items")
	}

	grossBySeller := map[uuid.UUID]int64{}
	order := make([]uuid.UUID, 0, len(items))
	excluded := []uuid.UUID{}

	for _, item := range items {
		if item.UnitPriceKobo < 0 {
			return nil, fmt.Errorf("line item %s has negative price", item.ID)
		}
		if item.Qty <= 0 {
			return nil, fmt.Errorf("line item %s has non-positive quantity", item.ID)
		}
		if item.SellerID == uuid.Nil {
			excluded = append(excluded, item.ID)
			continue
		}
		if _, seen := grossBySeller[item.SellerID]; !seen {
			order = append(order, item.SellerID)
		}
		grossBySeller[item.SellerID] += item.LineTotal()
	}

	if len(grossBySeller) == 0 {
		return nil, fmt.Errorf("order has no attributable line items")
	}

	result := &Result{
		Splits:        make([]Split, 0, len(grossBySeller)),
		ExcludedItems: excluded,
	}

	for _, sellerID := range order {
		gross := grossBySeller[sellerID]
		fee := c.feeFor(gross)
		result.Splits = append(result.Splits, Split{
			SellerID:         sellerID,
			OrderAmountKobo:  gross,
			PlatformFeeKobo:  fee,
			SellerAmountKobo: gross - fee,
			TransactionRef:   transactionRef(orderID, sellerID, now),
		})
		result.TotalKobo += gross
	}

	return result, nil
}

// FeeFor exposes the rounded platform fee for a gross amount.
func (c *Calculator) FeeFor(grossKobo int64) int64 {
	return c.feeFor(grossKobo)
}

func (c *Calculator) feeFor(grossKobo int64) int64 {
	return decimal.NewFromInt(grossKobo).Mul(c.feeRate).Round(0).IntPart()
}

func transactionRef(orderID, sellerID uuid.UUID, now time.Time) string {
	return fmt.Sprintf("%s:%s:%d", orderID, sellerID, now.UnixNano())
}
