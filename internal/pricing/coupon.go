package pricing

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

type CouponKind string

const (
	Percent CouponKind = "percent"
	Fixed   CouponKind = "fixed"
)

type Coupon struct {
	Code        string          `json:"code"`
	Kind        CouponKind      `json:"kind"`
	Value       decimal.Decimal `json:"value"`
	Description string          `json:"description"`
}

// registry is fixed at build time; keys are uppercase codes.
var registry = map[string]Coupon{
	"SAVE10":    {Code: "SAVE10", Kind: Percent, Value: decimal.NewFromInt(10), Description: "10% off"},
	"WELCOME15": {Code: "WELCOME15", Kind: Percent, Value: decimal.NewFromInt(15), Description: "15% off"},
	"FLAT5":     {Code: "FLAT5", Kind: Fixed, Value: decimal.NewFromInt(5), Description: "5 € off"},
}

func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// LookupCoupon normalizes code before looking it up.
func LookupCoupon(code string) (Coupon, bool) {
	c, ok := registry[NormalizeCode(code)]
	return c, ok
}

func Coupons() []Coupon {
	out := make([]Coupon, 0, len(registry))
	for _, c := range registry {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Discount never exceeds subtotal.
func (c Coupon) Discount(subtotal decimal.Decimal) decimal.Decimal {
	if !subtotal.IsPositive() {
		return decimal.Zero
	}
	switch c.Kind {
	case Percent:
		return subtotal.Mul(c.Value).Div(hundred)
	case Fixed:
		return decimal.Min(c.Value, subtotal)
	default:
		return decimal.Zero
	}
}

var hundred = decimal.NewFromInt(100)
