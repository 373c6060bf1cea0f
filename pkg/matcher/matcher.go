// Package matcher pairs certificates across Keyfactor and Sectigo by serial number.
//
// Serial numbers are compared after Normalize: leading zeros are stripped
// and the remainder is case-folded, so "00A1B2" and "a1b2" identify the same
// certificate. A serial that normalizes to the empty string never matches.
package matcher

import (
	"strings"

	"golang.org/x/text/cases"
)

// Normalize returns the identity key for a serial number.
func Normalize(serial string) string {
	return cases.Fold().String(strings.TrimLeft(serial, "0"))
}

// Equal reports whether two serial numbers identify the same certificate.
func Equal(a, b string) bool {
	ka := Normalize(a)
	return ka != "" && ka == Normalize(b)
}

// Match returns the first candidate whose serial equals serial after
// normalization. Candidates are scanned in order.
func Match[T any](serial string, candidates []T, serialOf func(T) string) (T, bool) {
	var zero T
	key := Normalize(serial)
	if key == "" {
		return zero, false
	}
	for _, c := range candidates {
		if Normalize(serialOf(c)) == key {
			return c, true
		}
	}
	return zero, false
}
