package enums

import "fmt"

// TransactionType classifies seller-facing audit log entries. Credits carry
// positive amounts, debits negative ones.
type TransactionType string

const (
	TransactionTypeSale         TransactionType = "sale"
	TransactionTypeRefund       TransactionType = "refund"
	TransactionTypePayout       TransactionType = "payout"
	TransactionTypeWithdrawal   TransactionType = "withdrawal"
	TransactionTypeWalletCredit TransactionType = "wallet_credit"
)

var validTransactionTypes = []TransactionType{
	TransactionTypeSale,
	TransactionTypeRefund,
	TransactionTypePayout,
	TransactionTypeWithdrawal,
	TransactionTypeWalletCredit,
}

// IsValid reports whether the value is a known TransactionType.
func (t TransactionType) IsValid() bool {
	for _, candidate := range validTransactionTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseTransactionType converts raw input into a TransactionType.
func ParseTransactionType(value string) (TransactionType, error) {
	for _, candidate := range validTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transaction type %q", value)
}
