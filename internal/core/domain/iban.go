package domain

import (
	"github.com/shopspring/decimal"
)

// ValidIBAN runs the mod-97 check-digit algorithm (ISO 13616): move the first
// four characters to the end, expand letters to numbers (A=10 .. Z=35) and
// check the resulting number mod 97 == 1. Accepts uppercase alphanumeric
// strings of length 15-34 only.
func ValidIBAN(iban string) bool {
	if len(iban) < 15 || len(iban) > 34 {
		return false
	}
	for i := 0; i < len(iban); i++ {
		c := iban[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return false
		}
	}

	// Incremental mod-97 over the rearranged, digit-expanded string avoids
	// big-integer arithmetic.
	rearranged := iban[4:] + iban[:4]
	remainder := 0
	for i := 0; i < len(rearranged); i++ {
		c := rearranged[i]
		if c >= '0' && c <= '9' {
			remainder = (remainder*10 + int(c-'0')) % 97
		} else {
			n := int(c-'A') + 10
			remainder = (remainder*100 + n) % 97
		}
	}
	return remainder == 1
}

// ValidAmount reports whether d is a positive decimal with at most two
// fractional digits, the only amount shape any movement accepts.
func ValidAmount(d decimal.Decimal) bool {
	return d.IsPositive() && d.Equal(d.Truncate(2))
}
