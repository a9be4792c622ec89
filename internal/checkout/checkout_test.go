package checkout

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pm3/bigcord/internal/cart"
	"github.com/pm3/bigcord/internal/events"
)

func validForm() Form {
	return Form{
		Email:         "jana@example.com",
		FirstName:     "Jana",
		LastName:      "Nováková",
		Street:        "Hlavná 1",
		City:          "Bratislava",
		Zip:           "811 01",
		Country:       "SK",
		BillingSame:   true,
		TermsAccepted: true,
	}
}

func fieldNames(err error) []string {
	var verr *ValidationError
	if !errors.As(err, &verr) {
		return nil
	}
	out := make([]string, 0, len(verr.Fields))
	for _, f := range verr.Fields {
		out = append(out, f.Field)
	}
	return out
}

func TestValidate(t *testing.T) {
	v := NewValidator()

	tests := map[string]struct {
		mutate func(f *Form)
		want   []string
	}{
		"valid": {
			mutate: func(f *Form) {},
		},
		"missing email": {
			mutate: func(f *Form) { f.Email = "" },
			want:   []string{"email"},
		},
		"malformed email": {
			mutate: func(f *Form) { f.Email = "jana@" },
			want:   []string{"email"},
		},
		"whitespace only": {
			mutate: func(f *Form) { f.City = "   " },
			want:   []string{"city"},
		},
		"terms not accepted": {
			mutate: func(f *Form) { f.TermsAccepted = false },
			want:   []string{"termsAccepted"},
		},
		"billing required when different": {
			mutate: func(f *Form) { f.BillingSame = false },
			want:   []string{"billingName", "billingStreet", "billingCity", "billingZip"},
		},
		"billing provided": {
			mutate: func(f *Form) {
				f.BillingSame = false
				f.BillingName = "Firma s.r.o."
				f.BillingStreet = "Dlhá 2"
				f.BillingCity = "Košice"
				f.BillingZip = "040 01"
			},
		},
		"errors in form order": {
			mutate: func(f *Form) {
				f.TermsAccepted = false
				f.LastName = ""
				f.Email = ""
			},
			want: []string{"email", "lastName", "termsAccepted"},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			f := validForm()
			tt.mutate(&f)
			err := v.Validate(&f)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.want, fieldNames(err))
		})
	}
}

func TestValidateTrimsFields(t *testing.T) {
	f := validForm()
	f.Email = "  jana@example.com "
	require.NoError(t, NewValidator().Validate(&f))
	assert.Equal(t, "jana@example.com", f.Email)
}

type fakeCarts struct {
	res       cart.Result
	err       error
	discarded []string
}

func (f *fakeCarts) Checkout(ctx context.Context, cartID string, fn func(cart.Result) error) (cart.Result, error) {
	if f.err != nil {
		return cart.Result{}, f.err
	}
	if err := fn(f.res); err != nil {
		return f.res, err
	}
	f.discarded = append(f.discarded, cartID)
	return f.res, nil
}

type fakePublisher struct {
	published []events.EventEnvelope
	err       error
}

func (f *fakePublisher) PublishCartCheckedOut(ctx context.Context, env events.EventEnvelope) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, env)
	return nil
}

func (f *fakePublisher) Close() error { return nil }

func cartResult(items ...cart.LineItem) cart.Result {
	s := cart.State{ID: "cart-1", Items: items}
	return cart.Result{State: s, Totals: s.Totals()}
}

func TestSubmit(t *testing.T) {
	carts := &fakeCarts{res: cartResult(cart.LineItem{ID: "A", ProductID: "A", Name: "A", UnitPrice: decimal.RequireFromString("4.50"), Quantity: 2, StockLimit: 5})}
	pub := &fakePublisher{}
	svc := NewService(carts, events.NewMemorySequenceRepository(), pub, nil)

	receipt, err := svc.Submit(context.Background(), "cart-1", validForm(), "corr-1")
	require.NoError(t, err)

	require.Len(t, pub.published, 1)
	env := pub.published[0]
	assert.Equal(t, receipt.OrderRef, env.EventID)
	assert.Equal(t, "corr-1", env.CorrelationID)
	assert.Equal(t, int64(1), env.Sequence)
	assert.Equal(t, "jana@example.com", env.Payload.CustomerEmail)
	assert.Equal(t, []string{"cart-1"}, carts.discarded)
}

func TestSubmitRejects(t *testing.T) {
	item := cart.LineItem{ID: "A", ProductID: "A", Name: "A", UnitPrice: decimal.RequireFromString("1"), Quantity: 1, StockLimit: 5}

	t.Run("empty cart", func(t *testing.T) {
		pub := &fakePublisher{}
		svc := NewService(&fakeCarts{res: cartResult()}, events.NewMemorySequenceRepository(), pub, nil)
		_, err := svc.Submit(context.Background(), "cart-1", validForm(), "")
		assert.ErrorIs(t, err, ErrEmptyCart)
		assert.Empty(t, pub.published)
	})

	t.Run("invalid form", func(t *testing.T) {
		pub := &fakePublisher{}
		carts := &fakeCarts{res: cartResult(item)}
		svc := NewService(carts, events.NewMemorySequenceRepository(), pub, nil)
		f := validForm()
		f.TermsAccepted = false
		_, err := svc.Submit(context.Background(), "cart-1", f, "")
		assert.Equal(t, []string{"termsAccepted"}, fieldNames(err))
		assert.Empty(t, pub.published)
		assert.Empty(t, carts.discarded)
	})

	t.Run("unknown cart", func(t *testing.T) {
		svc := NewService(&fakeCarts{err: cart.ErrNotFound}, events.NewMemorySequenceRepository(), &fakePublisher{}, nil)
		_, err := svc.Submit(context.Background(), "nope", validForm(), "")
		assert.ErrorIs(t, err, cart.ErrNotFound)
	})

	t.Run("publish failure keeps the cart", func(t *testing.T) {
		carts := &fakeCarts{res: cartResult(item)}
		svc := NewService(carts, events.NewMemorySequenceRepository(), &fakePublisher{err: errors.New("broker down")}, nil)
		_, err := svc.Submit(context.Background(), "cart-1", validForm(), "")
		assert.Error(t, err)
		assert.Empty(t, carts.discarded)
	})
}

// slowPublisher holds every publish long enough for other requests to race it.
type slowPublisher struct {
	mu        sync.Mutex
	published []events.EventEnvelope
	started   chan struct{}
	delay     time.Duration
}

func (p *slowPublisher) PublishCartCheckedOut(ctx context.Context, env events.EventEnvelope) error {
	p.started <- struct{}{}
	time.Sleep(p.delay)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, env)
	return nil
}

func (p *slowPublisher) Close() error { return nil }

func (p *slowPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.published)
}

func TestSubmitConcurrentCheckoutPublishesOnce(t *testing.T) {
	ctx := context.Background()
	carts := cart.NewService(cart.NewMemoryRepository(), cart.DefaultChoices(), cart.ServiceOptions{})
	t.Cleanup(carts.Close)

	created, err := carts.Create(ctx)
	require.NoError(t, err)
	id := created.State.ID
	_, err = carts.Dispatch(ctx, id, cart.AddItem{ItemID: "A", ProductID: "A", Name: "A", UnitPrice: decimal.RequireFromString("4.50"), Quantity: 1, StockLimit: 5})
	require.NoError(t, err)

	pub := &slowPublisher{started: make(chan struct{}, 2), delay: 20 * time.Millisecond}
	svc := NewService(carts, events.NewMemorySequenceRepository(), pub, nil)

	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
		notFound  atomic.Int32
	)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Submit(ctx, id, validForm(), "")
			switch {
			case err == nil:
				succeeded.Add(1)
			case errors.Is(err, cart.ErrNotFound):
				notFound.Add(1)
			}
		}()
	}

	// An item added while the event is being published must not be lost silently.
	<-pub.started
	_, addErr := carts.Dispatch(ctx, id, cart.AddItem{ItemID: "B", ProductID: "B", Name: "B", UnitPrice: decimal.RequireFromString("1"), Quantity: 1, StockLimit: 5})
	wg.Wait()

	assert.Equal(t, int32(1), succeeded.Load())
	assert.Equal(t, int32(1), notFound.Load())
	assert.Equal(t, 1, pub.count())
	assert.ErrorIs(t, addErr, cart.ErrNotFound)

	_, err = carts.Get(ctx, id)
	assert.ErrorIs(t, err, cart.ErrNotFound)
}
