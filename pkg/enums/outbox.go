package enums

import "fmt"

// OutboxAggregateType names the entity an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateOrder         OutboxAggregateType = "order"
	AggregatePayoutRequest OutboxAggregateType = "payout_request"
	AggregateSeller        OutboxAggregateType = "seller"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregatePayoutRequest,
	AggregateSeller,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType names the integration events written to the outbox.
type OutboxEventType string

const (
	EventOrderPaid             OutboxEventType = "order_paid"
	EventWalletCreditsApplied  OutboxEventType = "wallet_credits_applied"
	EventPayoutRequested       OutboxEventType = "payout_requested"
	EventPayoutSettled         OutboxEventType = "payout_settled"
	EventPayoutRejected        OutboxEventType = "payout_rejected"
	EventSubaccountProvisioned OutboxEventType = "subaccount_provisioned"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderPaid,
	EventWalletCreditsApplied,
	EventPayoutRequested,
	EventPayoutSettled,
	EventPayoutRejected,
	EventSubaccountProvisioned,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid outbox event type %q", value)
}
