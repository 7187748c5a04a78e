package enums

import "fmt"

// BankVerificationStatus tracks provider-side verification of a payout account.
type BankVerificationStatus string

const (
	BankVerificationStatusPending   BankVerificationStatus = "pending"
	BankVerificationStatusVerifying BankVerificationStatus = "verifying"
	BankVerificationStatusVerified  BankVerificationStatus = "verified"
	BankVerificationStatusFailed    BankVerificationStatus = "failed"
)

var validBankVerificationStatuses = []BankVerificationStatus{
	BankVerificationStatusPending,
	BankVerificationStatusVerifying,
	BankVerificationStatusVerified,
	BankVerificationStatusFailed,
}

// IsValid reports whether the value is a known BankVerificationStatus.
func (s BankVerificationStatus) IsValid() bool {
	for _, candidate := range validBankVerificationStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseBankVerificationStatus converts raw input into a BankVerificationStatus.
func ParseBankVerificationStatus(value string) (BankVerificationStatus, error) {
	for _, candidate := range validBankVerificationStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid bank verification status %q", value)
}
