package view

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pm3/bigcord/internal/cart"
	"github.com/pm3/bigcord/internal/pricing"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestRenderWithItems(t *testing.T) {
	flat5, _ := pricing.LookupCoupon("FLAT5")
	courier, _ := cart.DefaultChoices().ShippingOption("courier")
	s := cart.State{
		ID: "cart-1",
		Items: []cart.LineItem{
			{ID: "5MM-RED", ProductID: "5MM-RED", Name: "5mm PES (red)", UnitPrice: d("4.50"), Quantity: 2, StockLimit: 10},
		},
		Shipping: &courier,
		Coupon:   &flat5,
	}

	v := Render(s, s.Totals())

	assert.True(t, v.HasItems)
	assert.Equal(t, Sections{Coupon: true, Shipping: true, Payment: true}, v.Sections)
	require.Len(t, v.Items, 1)
	assert.Equal(t, "4,50\u00a0€", v.Items[0].UnitPrice)
	assert.Equal(t, "9,00\u00a0€", v.Items[0].LineTotal)
	assert.Equal(t, "courier", v.Shipping)
	assert.Equal(t, "FLAT5", v.Coupon)

	require.NotNil(t, v.Summary)
	assert.Equal(t, Summary{
		ItemCount:  2,
		Subtotal:   "9,00\u00a0€",
		Discount:   &Discount{Code: "FLAT5", Amount: "- 5,00\u00a0€"},
		Shipping:   "4,90\u00a0€",
		Payment:    "Free",
		Total:      "8,90\u00a0€",
		TotalExVat: "7,42\u00a0€",
		Vat:        "1,48\u00a0€",
	}, *v.Summary)
}

func TestRenderEmptyCart(t *testing.T) {
	cod, _ := cart.DefaultChoices().PaymentOption("cod")
	s := cart.State{ID: "cart-1", Payment: &cod}

	v := Render(s, s.Totals())

	assert.False(t, v.HasItems)
	assert.Nil(t, v.Summary)
	assert.Equal(t, Sections{Empty: true}, v.Sections)
	assert.Empty(t, v.Items)
}

func TestRenderKeepsRemovingLines(t *testing.T) {
	s := cart.State{
		ID: "cart-1",
		Items: []cart.LineItem{
			{ID: "A", UnitPrice: d("1.00"), Quantity: 1, StockLimit: 5, Removing: true},
			{ID: "B", UnitPrice: d("2.00"), Quantity: 3, StockLimit: 5},
		},
	}

	v := Render(s, s.Totals())

	require.Len(t, v.Items, 2)
	assert.True(t, v.Items[0].Removing)
	assert.Equal(t, 3, v.Summary.ItemCount)
	assert.Equal(t, "6,00\u00a0€", v.Summary.Subtotal)
	assert.Nil(t, v.Summary.Discount)
}

func TestSurcharge(t *testing.T) {
	assert.Equal(t, "Free", Surcharge(decimal.Zero, "+ "))
	assert.Equal(t, "+ 1,50\u00a0€", Surcharge(d("1.5"), "+ "))
	assert.Equal(t, "2,90\u00a0€", Surcharge(d("2.90"), ""))
}

func TestRenderOptions(t *testing.T) {
	opts := RenderOptions(cart.DefaultChoices())

	require.Len(t, opts.Shipping, 3)
	assert.Equal(t, Option{ID: "pickup", Name: "Personal pickup", Price: "Free"}, opts.Shipping[0])
	assert.Equal(t, "+ 1,50\u00a0€", opts.Payment[2].Price)
}
