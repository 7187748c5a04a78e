// Package banks holds the static directory of Nigerian deposit banks used to
// resolve free-form bank names from seller input into CBN bank codes.
package banks

import "strings"

// Bank is a single directory entry. Code is the CBN-assigned bank code
// expected by the payment provider's transfer and resolve endpoints.
type Bank struct {
	Name string
	Code string
}

// directory is ordered alphabetically by canonical name. Keep entries in sync
// with the provider's /bank listing; codes are stable but names drift.
var directory = []Bank{
	{Name: "Access Bank", Code: "044"},
	{Name: "Access Bank (Diamond)", Code: "063"},
	{Name: "ALAT by WEMA", Code: "035A"},
	{Name: "Carbon", Code: "565"},
	{Name: "Citibank Nigeria", Code: "023"},
	{Name: "Ecobank Nigeria", Code: "050"},
	{Name: "Fairmoney Microfinance Bank", Code: "51318"},
	{Name: "Fidelity Bank", Code: "070"},
	{Name: "First Bank of Nigeria", Code: "011"},
	{Name: "First City Monument Bank", Code: "214"},
	{Name: "Globus Bank", Code: "00103"},
	{Name: "Guaranty Trust Bank", Code: "058"},
	{Name: "Heritage Bank", Code: "030"},
	{Name: "Jaiz Bank", Code: "301"},
	{Name: "Keystone Bank", Code: "082"},
	{Name: "Kuda Bank", Code: "50211"},
	{Name: "Lotus Bank", Code: "303"},
	{Name: "Moniepoint MFB", Code: "50515"},
	{Name: "Opay Digital Services", Code: "999992"},
	{Name: "PalmPay", Code: "999991"},
	{Name: "Parallex Bank", Code: "104"},
	{Name: "Polaris Bank", Code: "076"},
	{Name: "Premium Trust Bank", Code: "105"},
	{Name: "Providus Bank", Code: "101"},
	{Name: "Rubies MFB", Code: "125"},
	{Name: "Signature Bank", Code: "106"},
	{Name: "Sparkle Microfinance Bank", Code: "51310"},
	{Name: "Stanbic IBTC Bank", Code: "221"},
	{Name: "Standard Chartered Bank", Code: "068"},
	{Name: "Sterling Bank", Code: "232"},
	{Name: "Suntrust Bank", Code: "100"},
	{Name: "TAJ Bank", Code: "302"},
	{Name: "Titan Trust Bank", Code: "102"},
	{Name: "Union Bank of Nigeria", Code: "032"},
	{Name: "United Bank For Africa", Code: "033"},
	{Name: "Unity Bank", Code: "215"},
	{Name: "VFD Microfinance Bank", Code: "566"},
	{Name: "Wema Bank", Code: "035"},
	{Name: "Zenith Bank", Code: "057"},
}

// aliases maps common shorthand and former names onto canonical directory
// names. Keys are normalized.
var aliases = map[string]string{
	"gtbank":           "Guaranty Trust Bank",
	"gtb":              "Guaranty Trust Bank",
	"gt bank":          "Guaranty Trust Bank",
	"gtco":             "Guaranty Trust Bank",
	"guaranty trust":   "Guaranty Trust Bank",
	"firstbank":        "First Bank of Nigeria",
	"first bank":       "First Bank of Nigeria",
	"fbn":              "First Bank of Nigeria",
	"uba":              "United Bank For Africa",
	"fcmb":             "First City Monument Bank",
	"stanbic":          "Stanbic IBTC Bank",
	"stanbic ibtc":     "Stanbic IBTC Bank",
	"diamond bank":     "Access Bank (Diamond)",
	"ecobank":          "Ecobank Nigeria",
	"zenith":           "Zenith Bank",
	"access":           "Access Bank",
	"wema":             "Wema Bank",
	"alat":             "ALAT by WEMA",
	"kuda":             "Kuda Bank",
	"opay":             "Opay Digital Services",
	"moniepoint":       "Moniepoint MFB",
	"polaris":          "Polaris Bank",
	"skye bank":        "Polaris Bank",
	"union bank":       "Union Bank of Nigeria",
	"sterling":         "Sterling Bank",
	"fidelity":         "Fidelity Bank",
	"providus":         "Providus Bank",
	"heritage":         "Heritage Bank",
	"keystone":         "Keystone Bank",
	"citibank":         "Citibank Nigeria",
	"standard charter": "Standard Chartered Bank",
}

// All returns the full directory in alphabetical order. The returned slice is
// a copy; callers may reorder it freely.
func All() []Bank {
	out := make([]Bank, len(directory))
	copy(out, directory)
	return out
}

// normalize lowercases, trims, collapses internal whitespace and strips
// punctuation that commonly appears in user-typed bank names.
func normalize(name string) string {
	var b strings.Builder
	lastSpace := true
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastSpace = false
		case r == ' ' || r == '-' || r == '.' || r == ',' || r == '(' || r == ')':
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// Lookup resolves a free-form bank name to a directory entry. Matching is
// tried in order of strictness: normalized exact match, alias match, then a
// two-way substring match against canonical names. The boolean is false when
// nothing matched.
func Lookup(name string) (Bank, bool) {
	norm := normalize(name)
	if norm == "" {
		return Bank{}, false
	}

	for _, b := range directory {
		if normalize(b.Name) == norm {
			return b, true
		}
	}

	if canonical, ok := aliases[norm]; ok {
		for _, b := range directory {
			if b.Name == canonical {
				return b, true
			}
		}
	}

	// Substring fallback catches inputs like "Zenith Bank PLC" or partial
	// names like "Guaranty Trust". Requires at least 4 characters so short
	// fragments do not match the wrong bank.
	if len(norm) >= 4 {
		for _, b := range directory {
			cn := normalize(b.Name)
			if strings.Contains(cn, norm) || strings.Contains(norm, cn) {
				return b, true
			}
		}
	}

	return Bank{}, false
}

// LookupCode returns the directory entry for an exact bank code.
func LookupCode(code string) (Bank, bool) {
	for _, b := range directory {
		if b.Code == code {
			return b, true
		}
	}
	return Bank{}, false
}
