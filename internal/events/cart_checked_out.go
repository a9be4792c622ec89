package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pm3/bigcord/internal/cart"
	"github.com/pm3/bigcord/internal/pricing"
)

const (
	CartCheckedOutEventName           = "CartCheckedOut"
	CartCheckedOutEventVersion        = 1
	CartCheckedOutEnvelopedSchemaPath = "contracts/events/cart/CartCheckedOut.v1.enveloped.schema.json"
	StorefrontProducer                = "storefront"
)

type EventEnvelope struct {
	EventName     string                `json:"eventName"`
	EventVersion  int                   `json:"eventVersion"`
	EventID       string                `json:"eventId"`
	CorrelationID string                `json:"correlationId,omitempty"`
	Producer      string                `json:"producer"`
	PartitionKey  string                `json:"partitionKey"`
	Sequence      int64                 `json:"sequence"`
	OccurredAt    time.Time             `json:"occurredAt"`
	Schema        string                `json:"schema"`
	Payload       CartCheckedOutPayload `json:"payload"`
}

type CartCheckedOutPayload struct {
	CartID           string               `json:"cartId"`
	CustomerEmail    string               `json:"customerEmail"`
	Items            []CartCheckedOutItem `json:"items"`
	ShippingOptionID string               `json:"shippingOptionId,omitempty"`
	PaymentOptionID  string               `json:"paymentOptionId,omitempty"`
	CouponCode       string               `json:"couponCode,omitempty"`
	Totals           pricing.Totals       `json:"totals"`
	Timestamp        time.Time            `json:"timestamp"`
}

type CartCheckedOutItem struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// EnvelopeOptions overrides envelope metadata. Zero fields get a fresh
// UUID, the current UTC time, the storefront producer and the v1 schema.
type EnvelopeOptions struct {
	Sequence      int64
	Producer      string
	SchemaPath    string
	CorrelationID string
	EventID       string
	OccurredAt    time.Time
}

func (o EnvelopeOptions) withDefaults() EnvelopeOptions {
	if o.EventID == "" {
		o.EventID = uuid.NewString()
	}
	if o.OccurredAt.IsZero() {
		o.OccurredAt = time.Now().UTC()
	}
	if o.Producer == "" {
		o.Producer = StorefrontProducer
	}
	if o.SchemaPath == "" {
		o.SchemaPath = CartCheckedOutEnvelopedSchemaPath
	}
	return o
}

// BuildCartCheckedOutEvent snapshots the active items and totals of s. The
// cart ID is the partition key.
func BuildCartCheckedOutEvent(s cart.State, t pricing.Totals, email string, opts EnvelopeOptions) EventEnvelope {
	opts = opts.withDefaults()
	return EventEnvelope{
		EventName:     CartCheckedOutEventName,
		EventVersion:  CartCheckedOutEventVersion,
		EventID:       opts.EventID,
		CorrelationID: opts.CorrelationID,
		Producer:      opts.Producer,
		PartitionKey:  s.ID,
		Sequence:      opts.Sequence,
		OccurredAt:    opts.OccurredAt,
		Schema:        opts.SchemaPath,
		Payload:       newCheckedOutPayload(s, t, email, opts.OccurredAt),
	}
}

func newCheckedOutPayload(s cart.State, t pricing.Totals, email string, at time.Time) CartCheckedOutPayload {
	active := s.Active()
	p := CartCheckedOutPayload{
		CartID:        s.ID,
		CustomerEmail: email,
		Items:         make([]CartCheckedOutItem, len(active)),
		Totals:        t,
		Timestamp:     at,
	}
	for i, li := range active {
		p.Items[i] = CartCheckedOutItem{
			ProductID: li.ProductID,
			Name:      li.Name,
			Quantity:  li.Quantity,
			UnitPrice: li.UnitPrice,
		}
	}
	if s.Shipping != nil {
		p.ShippingOptionID = s.Shipping.ID
	}
	if s.Payment != nil {
		p.PaymentOptionID = s.Payment.ID
	}
	if s.Coupon != nil {
		p.CouponCode = s.Coupon.Code
	}
	return p
}
