package models

import (
	"time"

	"github.com/google/uuid"
)

// SellerFinancialRecord is the authoritative per-seller balance. It is created
// lazily with all-zero defaults and mutated only through single-statement
// conditional updates so concurrent credits and payouts cannot lose writes.
//
// Invariants: AvailableBalanceKobo >= 0 and PendingWithdrawalsKobo >= 0 at all
// times; PendingWithdrawalsKobo never exceeds AvailableBalanceKobo.
type SellerFinancialRecord struct {
	SellerID               uuid.UUID `gorm:"column:seller_id;type:uuid;primaryKey"`
	TotalRevenueKobo       int64     `gorm:"column:total_revenue_kobo;not null;default:0"`
	ActualReceivedKobo     int64     `gorm:"column:actual_received_kobo;not null;default:0"`
	AvailableBalanceKobo   int64     `gorm:"column:available_balance_kobo;not null;default:0"`
	TotalWithdrawnKobo     int64     `gorm:"column:total_withdrawn_kobo;not null;default:0"`
	PendingWithdrawalsKobo int64     `gorm:"column:pending_withdrawals_kobo;not null;default:0"`
	LastUpdated            time.Time `gorm:"column:last_updated;autoUpdateTime"`
	CreatedAt              time.Time `gorm:"column:created_at;autoCreateTime"`
}

// SpendableKobo is the amount a new payout request may draw on: the available
// balance minus reservations already held by in-flight payout requests.
func (r SellerFinancialRecord) SpendableKobo() int64 {
	return r.AvailableBalanceKobo - r.PendingWithdrawalsKobo
}
