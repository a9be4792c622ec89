package checkout

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/pm3/bigcord/internal/cart"
	"github.com/pm3/bigcord/internal/events"
)

var ErrEmptyCart = errors.New("cart is empty")

// Carts is the part of cart.Service checkout needs.
type Carts interface {
	Checkout(ctx context.Context, cartID string, fn func(cart.Result) error) (cart.Result, error)
}

type Service struct {
	carts     Carts
	validator *Validator
	sequences events.SequenceRepository
	publisher events.Publisher
	logger    *zap.Logger
}

func NewService(carts Carts, sequences events.SequenceRepository, publisher events.Publisher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		carts:     carts,
		validator: NewValidator(),
		sequences: sequences,
		publisher: publisher,
		logger:    logger,
	}
}

type Receipt struct {
	OrderRef string               `json:"orderRef"`
	Event    events.EventEnvelope `json:"-"`
}

// Submit validates the form, publishes CartCheckedOut for the cart and then
// forgets the cart. Nothing is published for an invalid form or an empty cart.
// The cart is held for the whole submit, so a cart is checked out at most once.
func (s *Service) Submit(ctx context.Context, cartID string, f Form, correlationID string) (Receipt, error) {
	var env events.EventEnvelope
	res, err := s.carts.Checkout(ctx, cartID, func(current cart.Result) error {
		if !current.Totals.HasItems {
			return ErrEmptyCart
		}
		if err := s.validator.Validate(&f); err != nil {
			return err
		}

		seq, err := s.sequences.NextSequence(ctx, cartID)
		if err != nil {
			return fmt.Errorf("next sequence: %w", err)
		}

		env = events.BuildCartCheckedOutEvent(current.State, current.Totals, f.Email, events.EnvelopeOptions{
			Sequence:      seq,
			CorrelationID: correlationID,
		})
		if err := s.publisher.PublishCartCheckedOut(ctx, env); err != nil {
			return fmt.Errorf("publish checkout: %w", err)
		}
		return nil
	})
	if err != nil {
		return Receipt{}, err
	}

	s.logger.Info("cart checked out",
		zap.String("cart_id", cartID),
		zap.String("event_id", env.EventID),
		zap.String("grand_total", res.Totals.GrandTotal.StringFixed(2)))
	return Receipt{OrderRef: env.EventID, Event: env}, nil
}
