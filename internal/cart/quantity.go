package cart

import (
	"strconv"
	"strings"
)

// ParseQuantity coerces anything that is not a positive integer to 1.
func ParseQuantity(raw string) int {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || v < 1 {
		return 1
	}
	return v
}

// ClampQuantity bounds q to [1, stock] and reports whether it had to be cut
// down to the stock limit.
func ClampQuantity(q, stock int) (int, bool) {
	if q < 1 {
		q = 1
	}
	if stock >= 1 && q > stock {
		return stock, true
	}
	return q, false
}
