package cart

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/pm3/bigcord/internal/pricing"
)

type LineItem struct {
	ID         string          `json:"id"`
	ProductID  string          `json:"productId"`
	Name       string          `json:"name"`
	UnitPrice  decimal.Decimal `json:"unitPrice"`
	Quantity   int             `json:"quantity"`
	StockLimit int             `json:"stockLimit"`
	// Removing marks the transition between a removal request and the
	// deletion of the line; such items no longer count anywhere.
	Removing bool `json:"removing,omitempty"`
}

type Option struct {
	ID   string          `json:"id"`
	Name string          `json:"name"`
	Cost decimal.Decimal `json:"cost"`
}

// Choices lists the shipping and payment options a cart may select from.
type Choices struct {
	Shipping []Option `json:"shipping"`
	Payment  []Option `json:"payment"`
}

func DefaultChoices() Choices {
	return Choices{
		Shipping: []Option{
			{ID: "pickup", Name: "Personal pickup", Cost: decimal.Zero},
			{ID: "packeta", Name: "Packeta pickup point", Cost: decimal.RequireFromString("2.90")},
			{ID: "courier", Name: "Courier", Cost: decimal.RequireFromString("4.90")},
		},
		Payment: []Option{
			{ID: "card", Name: "Card online", Cost: decimal.Zero},
			{ID: "transfer", Name: "Bank transfer", Cost: decimal.Zero},
			{ID: "cod", Name: "Cash on delivery", Cost: decimal.RequireFromString("1.50")},
		},
	}
}

func findOption(opts []Option, id string) (Option, bool) {
	for _, o := range opts {
		if o.ID == id {
			return o, true
		}
	}
	return Option{}, false
}

func (c Choices) ShippingOption(id string) (Option, bool) { return findOption(c.Shipping, id) }

func (c Choices) PaymentOption(id string) (Option, bool) { return findOption(c.Payment, id) }

type State struct {
	ID        string          `json:"cartId"`
	Items     []LineItem      `json:"items"`
	Shipping  *Option         `json:"shipping,omitempty"`
	Payment   *Option         `json:"payment,omitempty"`
	Coupon    *pricing.Coupon `json:"coupon,omitempty"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Clone copies everything a command may mutate.
func (s State) Clone() State {
	out := s
	out.Items = append([]LineItem(nil), s.Items...)
	if s.Shipping != nil {
		o := *s.Shipping
		out.Shipping = &o
	}
	if s.Payment != nil {
		o := *s.Payment
		out.Payment = &o
	}
	if s.Coupon != nil {
		c := *s.Coupon
		out.Coupon = &c
	}
	return out
}

// Active returns the items that are not being removed.
func (s State) Active() []LineItem {
	out := make([]LineItem, 0, len(s.Items))
	for _, it := range s.Items {
		if !it.Removing {
			out = append(out, it)
		}
	}
	return out
}

func (s State) HasItems() bool {
	for _, it := range s.Items {
		if !it.Removing {
			return true
		}
	}
	return false
}

func (s State) Totals() pricing.Totals {
	in := pricing.Input{
		ShippingCost: decimal.Zero,
		PaymentCost:  decimal.Zero,
		Coupon:       s.Coupon,
	}
	for _, it := range s.Active() {
		in.Lines = append(in.Lines, pricing.Line{UnitPrice: it.UnitPrice, Quantity: it.Quantity})
	}
	if s.Shipping != nil {
		in.ShippingCost = s.Shipping.Cost
	}
	if s.Payment != nil {
		in.PaymentCost = s.Payment.Cost
	}
	return pricing.Compute(in)
}

func (s State) indexOf(itemID string) int {
	for i := range s.Items {
		if s.Items[i].ID == itemID {
			return i
		}
	}
	return -1
}

// Item returns an item that still counts toward the cart.
func (s State) Item(itemID string) (LineItem, bool) {
	i := s.indexOf(itemID)
	if i < 0 || s.Items[i].Removing {
		return LineItem{}, false
	}
	return s.Items[i], true
}
