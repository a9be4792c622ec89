package cart

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/pm3/bigcord/internal/pricing"
)

// Command is one user action against a cart.
type Command interface {
	commandName() string
}

type Step string

const (
	StepPlus  Step = "plus"
	StepMinus Step = "minus"
)

type AddItem struct {
	ItemID     string
	ProductID  string
	Name       string
	UnitPrice  decimal.Decimal
	Quantity   int
	StockLimit int
}

type EditQuantity struct {
	ItemID string
	Raw    string
}

type StepQuantity struct {
	ItemID string
	Step   Step
}

type RemoveItem struct{ ItemID string }

// FinalizeRemoval deletes an item once its removal transition has elapsed.
type FinalizeRemoval struct{ ItemID string }

type SelectShipping struct{ OptionID string }

type SelectPayment struct{ OptionID string }

type ApplyCoupon struct{ Code string }

type RemoveCoupon struct{}

type Clear struct{}

func (AddItem) commandName() string         { return "AddItem" }
func (EditQuantity) commandName() string    { return "EditQuantity" }
func (StepQuantity) commandName() string    { return "StepQuantity" }
func (RemoveItem) commandName() string      { return "RemoveItem" }
func (FinalizeRemoval) commandName() string { return "FinalizeRemoval" }
func (SelectShipping) commandName() string  { return "SelectShipping" }
func (SelectPayment) commandName() string   { return "SelectPayment" }
func (ApplyCoupon) commandName() string     { return "ApplyCoupon" }
func (RemoveCoupon) commandName() string    { return "RemoveCoupon" }
func (Clear) commandName() string           { return "Clear" }

// LimitExceeded tells the caller a requested quantity was cut to stock.
type LimitExceeded struct {
	ItemID  string `json:"itemId"`
	Clamped int    `json:"clamped"`
}

type InvalidCoupon struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Signals are non-fatal outcomes meant for display only.
type Signals struct {
	LimitExceeded *LimitExceeded `json:"limitExceeded,omitempty"`
	InvalidCoupon *InvalidCoupon `json:"invalidCoupon,omitempty"`
}

type Result struct {
	State   State
	Totals  pricing.Totals
	Signals Signals
}

func resultOf(s State, sig Signals) Result {
	return Result{State: s, Totals: s.Totals(), Signals: sig}
}

// Apply runs cmd against a copy of s. On error the returned result carries
// the unchanged state and its totals.
func Apply(s State, cmd Command, choices Choices, now time.Time) (Result, error) {
	next := s.Clone()

	sig, err := apply(&next, cmd, choices)
	if err != nil {
		return resultOf(s.Clone(), Signals{}), err
	}
	if sig.InvalidCoupon != nil {
		return resultOf(s.Clone(), sig), nil
	}

	next.UpdatedAt = now
	return resultOf(next, sig), nil
}

func apply(s *State, cmd Command, choices Choices) (Signals, error) {
	switch c := cmd.(type) {
	case AddItem:
		return addItem(s, c)
	case EditQuantity:
		return setQuantity(s, c.ItemID, ParseQuantity(c.Raw))
	case StepQuantity:
		return stepQuantity(s, c)
	case RemoveItem:
		return Signals{}, removeItem(s, c.ItemID)
	case FinalizeRemoval:
		if i := s.indexOf(c.ItemID); i >= 0 && s.Items[i].Removing {
			s.Items = append(s.Items[:i], s.Items[i+1:]...)
		}
		return Signals{}, nil
	case SelectShipping:
		opt, err := selectOption(c.OptionID, choices.ShippingOption, ErrMsgUnknownShipping)
		if err != nil {
			return Signals{}, err
		}
		s.Shipping = opt
		return Signals{}, nil
	case SelectPayment:
		opt, err := selectOption(c.OptionID, choices.PaymentOption, ErrMsgUnknownPayment)
		if err != nil {
			return Signals{}, err
		}
		s.Payment = opt
		return Signals{}, nil
	case ApplyCoupon:
		return applyCoupon(s, c.Code), nil
	case RemoveCoupon:
		s.Coupon = nil
		return Signals{}, nil
	case Clear:
		s.Items = nil
		s.Coupon = nil
		s.Shipping = nil
		s.Payment = nil
		return Signals{}, nil
	default:
		return Signals{}, NewInvalidArgument(ErrMsgUnknownCommand)
	}
}

func addItem(s *State, c AddItem) (Signals, error) {
	if c.ItemID == "" {
		return Signals{}, NewInvalidArgument(ErrMsgItemIDRequired)
	}
	if c.StockLimit < 1 {
		return Signals{}, NewFailedPrecondition(ErrMsgOutOfStock)
	}
	if c.UnitPrice.IsNegative() {
		return Signals{}, NewInvalidArgument(ErrMsgNegativeUnitPrice)
	}

	requested := c.Quantity
	if requested < 1 {
		requested = 1
	}

	if i := s.indexOf(c.ItemID); i >= 0 {
		it := &s.Items[i]
		if it.Removing {
			// re-added during its removal transition: start over
			it.Removing = false
			it.Quantity = 0
		}
		it.Name = c.Name
		it.UnitPrice = c.UnitPrice
		it.StockLimit = c.StockLimit
		return setQuantity(s, c.ItemID, it.Quantity+requested)
	}

	q, clamped := ClampQuantity(requested, c.StockLimit)
	s.Items = append(s.Items, LineItem{
		ID:         c.ItemID,
		ProductID:  c.ProductID,
		Name:       c.Name,
		UnitPrice:  c.UnitPrice,
		Quantity:   q,
		StockLimit: c.StockLimit,
	})
	return limitSignal(c.ItemID, q, clamped), nil
}

func setQuantity(s *State, itemID string, requested int) (Signals, error) {
	i := s.indexOf(itemID)
	if i < 0 || s.Items[i].Removing {
		return Signals{}, NewNotFoundf("%s: %s", ErrMsgItemNotInCart, itemID)
	}

	q, clamped := ClampQuantity(requested, s.Items[i].StockLimit)
	s.Items[i].Quantity = q
	return limitSignal(itemID, q, clamped), nil
}

func stepQuantity(s *State, c StepQuantity) (Signals, error) {
	it, ok := s.Item(c.ItemID)
	if !ok {
		return Signals{}, NewNotFoundf("%s: %s", ErrMsgItemNotInCart, c.ItemID)
	}

	switch c.Step {
	case StepPlus:
		return setQuantity(s, c.ItemID, it.Quantity+1)
	case StepMinus:
		q := it.Quantity
		if q > 1 {
			q--
		}
		return setQuantity(s, c.ItemID, q)
	default:
		return Signals{}, NewInvalidArgument(ErrMsgUnknownStep)
	}
}

func removeItem(s *State, itemID string) error {
	i := s.indexOf(itemID)
	if i < 0 {
		return NewNotFoundf("%s: %s", ErrMsgItemNotInCart, itemID)
	}
	s.Items[i].Removing = true
	return nil
}

func selectOption(id string, lookup func(string) (Option, bool), unknown string) (*Option, error) {
	if id == "" {
		return nil, nil
	}
	opt, ok := lookup(id)
	if !ok {
		return nil, NewInvalidArgument(unknown)
	}
	return &opt, nil
}

func applyCoupon(s *State, raw string) Signals {
	code := pricing.NormalizeCode(raw)
	if code == "" {
		return Signals{}
	}

	c, ok := pricing.LookupCoupon(code)
	if !ok {
		return Signals{InvalidCoupon: &InvalidCoupon{Code: code, Message: ErrMsgInvalidCoupon}}
	}
	s.Coupon = &c
	return Signals{}
}

func limitSignal(itemID string, q int, clamped bool) Signals {
	if !clamped {
		return Signals{}
	}
	return Signals{LimitExceeded: &LimitExceeded{ItemID: itemID, Clamped: q}}
}
