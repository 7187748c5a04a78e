package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/kasuwa-hq/kasuwa-backend/pkg/enums"
)

// OrderPaidEvent signals that payment for an order has been confirmed and the
// wallet ledger should apply the per-seller splits.
type OrderPaidEvent struct {
	OrderID          uuid.UUID `json:"order_id"`
	OrderNumber      int64     `json:"order_number"`
	PaymentReference string    `json:"payment_reference"`
	AmountKobo       int64     `json:"amount_kobo"`
	Currency         string    `json:"currency"`
	PaidAt           time.Time `json:"paid_at"`
}

// WalletCreditsAppliedEvent reports that all seller splits for an order were
// credited to their wallets.
type WalletCreditsAppliedEvent struct {
	OrderID       uuid.UUID   `json:"order_id"`
	SellerIDs     []uuid.UUID `json:"seller_ids"`
	TotalCredited int64       `json:"total_credited_kobo"`
}

// PayoutRequestedEvent is emitted when a seller asks to withdraw from their
// wallet balance.
type PayoutRequestedEvent struct {
	PayoutID   uuid.UUID `json:"payout_id"`
	SellerID   uuid.UUID `json:"seller_id"`
	AmountKobo int64     `json:"amount_kobo"`
	BankCode   string    `json:"bank_code"`
}

// PayoutSettledEvent marks a payout as transferred to the seller's bank.
type PayoutSettledEvent struct {
	PayoutID          uuid.UUID `json:"payout_id"`
	SellerID          uuid.UUID `json:"seller_id"`
	AmountKobo        int64     `json:"amount_kobo"`
	TransferReference string    `json:"transfer_reference,omitempty"`
	ProcessedAt       time.Time `json:"processed_at"`
}

// PayoutRejectedEvent carries the admin decision that declined a payout.
type PayoutRejectedEvent struct {
	PayoutID   uuid.UUID          `json:"payout_id"`
	SellerID   uuid.UUID          `json:"seller_id"`
	AmountKobo int64              `json:"amount_kobo"`
	Status     enums.PayoutStatus `json:"status"`
	Reason     string             `json:"reason,omitempty"`
}

// SubaccountProvisionedEvent reports that a seller received a provider
// subaccount for settlement splits.
type SubaccountProvisionedEvent struct {
	SellerID       uuid.UUID `json:"seller_id"`
	SubaccountCode string    `json:"subaccount_code"`
	SubaccountID   int64     `json:"subaccount_id"`
}
