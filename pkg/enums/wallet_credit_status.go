package enums

import "fmt"

// WalletCreditStatus tracks whether a ledger credit has landed.
type WalletCreditStatus string

const (
	WalletCreditStatusPending   WalletCreditStatus = "pending"
	WalletCreditStatusCompleted WalletCreditStatus = "completed"
	WalletCreditStatusFailed    WalletCreditStatus = "failed"
)

var validWalletCreditStatuses = []WalletCreditStatus{
	WalletCreditStatusPending,
	WalletCreditStatusCompleted,
	WalletCreditStatusFailed,
}

// IsValid reports whether the value is a known WalletCreditStatus.
func (s WalletCreditStatus) IsValid() bool {
	for _, candidate := range validWalletCreditStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseWalletCreditStatus converts raw input into a WalletCreditStatus.
func ParseWalletCreditStatus(value string) (WalletCreditStatus, error) {
	for _, candidate := range validWalletCreditStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid wallet credit status %q", value)
}
