// Package view turns cart state and totals into display strings. It holds no
// state of its own.
package view

import (
	"github.com/shopspring/decimal"

	"github.com/pm3/bigcord/internal/cart"
	"github.com/pm3/bigcord/internal/money"
	"github.com/pm3/bigcord/internal/pricing"
)

const Free = "Free"

type Line struct {
	ID         string `json:"id"`
	ProductID  string `json:"productId"`
	Name       string `json:"name"`
	UnitPrice  string `json:"unitPrice"`
	Quantity   int    `json:"quantity"`
	StockLimit int    `json:"stockLimit"`
	LineTotal  string `json:"lineTotal"`
	Removing   bool   `json:"removing,omitempty"`
}

type Discount struct {
	Code   string `json:"code"`
	Amount string `json:"amount"`
}

type Summary struct {
	ItemCount  int       `json:"itemCount"`
	Subtotal   string    `json:"subtotal"`
	Discount   *Discount `json:"discount,omitempty"`
	Shipping   string    `json:"shipping"`
	Payment    string    `json:"payment"`
	Total      string    `json:"total"`
	TotalExVat string    `json:"totalExVat"`
	Vat        string    `json:"vat"`
}

// Sections says which parts of the cart page are shown.
type Sections struct {
	Empty    bool `json:"empty"`
	Coupon   bool `json:"coupon"`
	Shipping bool `json:"shipping"`
	Payment  bool `json:"payment"`
}

type CartView struct {
	CartID   string   `json:"cartId"`
	Items    []Line   `json:"items"`
	HasItems bool     `json:"hasItems"`
	Sections Sections `json:"sections"`
	Shipping string   `json:"shippingOptionId,omitempty"`
	Payment  string   `json:"paymentOptionId,omitempty"`
	Coupon   string   `json:"couponCode,omitempty"`
	Summary  *Summary `json:"summary,omitempty"`
}

// Render builds the cart page model. With no items the summary is omitted
// and only the empty-cart message is shown.
func Render(s cart.State, t pricing.Totals) CartView {
	v := CartView{
		CartID:   s.ID,
		Items:    make([]Line, 0, len(s.Items)),
		HasItems: t.HasItems,
		Sections: Sections{
			Empty:    !t.HasItems,
			Coupon:   t.HasItems,
			Shipping: t.HasItems,
			Payment:  t.HasItems,
		},
	}

	for _, it := range s.Items {
		v.Items = append(v.Items, Line{
			ID:         it.ID,
			ProductID:  it.ProductID,
			Name:       it.Name,
			UnitPrice:  money.Format(it.UnitPrice),
			Quantity:   it.Quantity,
			StockLimit: it.StockLimit,
			LineTotal:  money.Format(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))),
			Removing:   it.Removing,
		})
	}
	if s.Shipping != nil {
		v.Shipping = s.Shipping.ID
	}
	if s.Payment != nil {
		v.Payment = s.Payment.ID
	}
	if s.Coupon != nil {
		v.Coupon = s.Coupon.Code
	}

	if !t.HasItems {
		return v
	}

	sum := &Summary{
		ItemCount:  t.ItemCount,
		Subtotal:   money.Format(t.Subtotal),
		Shipping:   Surcharge(t.ShippingCost, ""),
		Payment:    Surcharge(t.PaymentCost, "+ "),
		Total:      money.Format(t.GrandTotal),
		TotalExVat: money.Format(t.TotalExVat),
		Vat:        money.Format(t.VatAmount),
	}
	if s.Coupon != nil {
		sum.Discount = &Discount{Code: s.Coupon.Code, Amount: "- " + money.Format(t.Discount)}
	}
	v.Summary = sum
	return v
}

// Surcharge formats a shipping or payment cost, "Free" when zero.
func Surcharge(cost decimal.Decimal, prefix string) string {
	if cost.IsZero() {
		return Free
	}
	return prefix + money.Format(cost)
}

type Option struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price string `json:"price"`
}

type Options struct {
	Shipping []Option `json:"shipping"`
	Payment  []Option `json:"payment"`
}

func RenderOptions(c cart.Choices) Options {
	out := Options{
		Shipping: make([]Option, 0, len(c.Shipping)),
		Payment:  make([]Option, 0, len(c.Payment)),
	}
	for _, o := range c.Shipping {
		out.Shipping = append(out.Shipping, Option{ID: o.ID, Name: o.Name, Price: Surcharge(o.Cost, "")})
	}
	for _, o := range c.Payment {
		out.Payment = append(out.Payment, Option{ID: o.ID, Name: o.Name, Price: Surcharge(o.Cost, "+ ")})
	}
	return out
}
