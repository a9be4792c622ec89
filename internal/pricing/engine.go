// Package pricing computes cart totals: subtotal, coupon discount, shipping
// and payment surcharges and the VAT contained in the VAT-inclusive total.
package pricing

import (
	"github.com/shopspring/decimal"
)

// VATRate is the rate included in every storefront price.
var VATRate = decimal.RequireFromString("0.20")

type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

type Input struct {
	Lines        []Line
	ShippingCost decimal.Decimal
	PaymentCost  decimal.Decimal
	Coupon       *Coupon
}

type Totals struct {
	ItemCount    int             `json:"itemCount"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	Discount     decimal.Decimal `json:"discount"`
	ShippingCost decimal.Decimal `json:"shippingCost"`
	PaymentCost  decimal.Decimal `json:"paymentCost"`
	GrandTotal   decimal.Decimal `json:"grandTotal"`
	TotalExVat   decimal.Decimal `json:"totalExVat"`
	VatAmount    decimal.Decimal `json:"vatAmount"`
	HasItems     bool            `json:"hasItems"`
}

// Compute is pure: the same input always yields the same totals.
func Compute(in Input) Totals {
	t := Totals{
		Subtotal:     decimal.Zero,
		Discount:     decimal.Zero,
		ShippingCost: in.ShippingCost,
		PaymentCost:  in.PaymentCost,
		HasItems:     len(in.Lines) > 0,
	}

	for _, l := range in.Lines {
		t.ItemCount += l.Quantity
		t.Subtotal = t.Subtotal.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}

	if in.Coupon != nil {
		t.Discount = in.Coupon.Discount(t.Subtotal)
	}

	t.GrandTotal = t.Subtotal.Sub(t.Discount).Add(t.ShippingCost).Add(t.PaymentCost)
	t.TotalExVat, t.VatAmount = BackOutVAT(t.GrandTotal)
	return t
}

// BackOutVAT splits a VAT-inclusive amount into its net part (rounded to
// cents) and the VAT, so that net + vat == gross.
func BackOutVAT(gross decimal.Decimal) (net, vat decimal.Decimal) {
	net = gross.DivRound(decimal.NewFromInt(1).Add(VATRate), 2)
	return net, gross.Sub(net)
}
