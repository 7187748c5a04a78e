package enums

import "fmt"

// WalletCreditSource records why money entered a seller wallet.
type WalletCreditSource string

const (
	WalletCreditSourceOrderPayment WalletCreditSource = "order_payment"
	WalletCreditSourceRefund       WalletCreditSource = "refund"
	WalletCreditSourceAdjustment   WalletCreditSource = "adjustment"
)

var validWalletCreditSources = []WalletCreditSource{
	WalletCreditSourceOrderPayment,
	WalletCreditSourceRefund,
	WalletCreditSourceAdjustment,
}

// IsValid reports whether the value is a known WalletCreditSource.
func (s WalletCreditSource) IsValid() bool {
	for _, candidate := range validWalletCreditSources {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseWalletCreditSource converts raw input into a WalletCreditSource.
func ParseWalletCreditSource(value string) (WalletCreditSource, error) {
	for _, candidate := range validWalletCreditSources {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid wallet credit source %q", value)
}
