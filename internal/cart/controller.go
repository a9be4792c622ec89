package cart

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultRemovalDelay matches the removal transition of the cart page.
const DefaultRemovalDelay = 350 * time.Millisecond

// maxRemovalBackoff caps the retry delay of a removal whose save failed.
const maxRemovalBackoff = 30 * time.Second

// errEvicted is returned by a controller dropped from memory while idle; the
// cart itself is still in the repository.
var errEvicted = errors.New("cart controller evicted")

// PersistFunc is called with the new state after every successful mutation.
type PersistFunc func(ctx context.Context, s State) error

// Controller owns the state of one cart and serializes commands against it.
type Controller struct {
	mu      sync.Mutex
	state   State
	choices Choices

	removals *RemovalScheduler
	delay    time.Duration
	persist  PersistFunc
	logger   *zap.Logger
	now      func() time.Time

	lastUsed time.Time
	// closed is set once the cart is checked out, discarded or evicted.
	closed error
}

type ControllerOptions struct {
	Removals     *RemovalScheduler
	RemovalDelay time.Duration
	Persist      PersistFunc
	Logger       *zap.Logger
}

func NewController(state State, choices Choices, opts ControllerOptions) *Controller {
	c := &Controller{
		state:    state,
		choices:  choices,
		removals: opts.Removals,
		delay:    opts.RemovalDelay,
		persist:  opts.Persist,
		logger:   opts.Logger,
		now:      time.Now,
	}
	if c.removals == nil {
		c.removals = NewRemovalScheduler()
	}
	if c.delay <= 0 {
		c.delay = DefaultRemovalDelay
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	c.lastUsed = c.now()
	return c
}

func (c *Controller) Snapshot() Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return resultOf(c.state.Clone(), Signals{})
}

func (c *Controller) get() (Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed != nil {
		return Result{}, c.closed
	}
	c.lastUsed = c.now()
	return resultOf(c.state.Clone(), Signals{}), nil
}

func (c *Controller) Dispatch(ctx context.Context, cmd Command) (Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed != nil {
		return Result{}, c.closed
	}
	c.lastUsed = c.now()

	res, err := Apply(c.state, cmd, c.choices, c.now())
	if err != nil {
		c.logger.Debug("command rejected",
			zap.String("cart_id", c.state.ID),
			zap.String("command", cmd.commandName()),
			zap.Error(err))
		return res, err
	}
	if res.Signals.InvalidCoupon != nil {
		return res, nil
	}

	if err := c.save(ctx, res.State); err != nil {
		return resultOf(c.state.Clone(), Signals{}), err
	}

	switch cm := cmd.(type) {
	case RemoveItem:
		// A repeated remove only restarts a transition that is no longer pending.
		if key := c.removalKey(cm.ItemID); !c.removals.Pending(key) {
			itemID := cm.ItemID
			c.removals.Schedule(key, c.delay, func() { c.finalize(itemID, 0) })
		}
	case AddItem:
		c.removals.Cancel(c.removalKey(cm.ItemID))
	case Clear:
		for _, it := range c.state.Items {
			c.removals.Cancel(c.removalKey(it.ID))
		}
	}
	c.state = res.State
	return Result{State: res.State.Clone(), Totals: res.Totals, Signals: res.Signals}, nil
}

// Checkout hands the current state to fn. When fn succeeds the controller is
// closed: later commands fail with ErrNotFound and nothing is saved again.
// Commands arriving while fn runs wait for it.
func (c *Controller) Checkout(fn func(Result) error) (Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed != nil {
		return Result{}, c.closed
	}
	res := resultOf(c.state.Clone(), Signals{})
	if err := fn(res); err != nil {
		return res, err
	}
	c.closeLocked(ErrNotFound)
	return res, nil
}

// Close cancels removal transitions still pending for this cart and rejects
// further commands with ErrNotFound.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed == nil {
		c.closeLocked(ErrNotFound)
	}
}

// evictIfIdle closes the controller when it was last used before cutoff and
// has no removal in flight. A busy controller is not idle. A checked out cart
// whose delete failed is kept so it cannot be reloaded.
func (c *Controller) evictIfIdle(cutoff time.Time) bool {
	if !c.mu.TryLock() {
		return false
	}
	defer c.mu.Unlock()

	if c.closed != nil {
		return false
	}
	if c.lastUsed.After(cutoff) {
		return false
	}
	for _, it := range c.state.Items {
		if c.removals.Pending(c.removalKey(it.ID)) {
			return false
		}
	}
	c.closeLocked(errEvicted)
	return true
}

func (c *Controller) closeLocked(reason error) {
	c.closed = reason
	for _, it := range c.state.Items {
		c.removals.Cancel(c.removalKey(it.ID))
	}
}

func (c *Controller) finalize(itemID string, attempt int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed != nil {
		return
	}

	res, err := Apply(c.state, FinalizeRemoval{ItemID: itemID}, c.choices, c.now())
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := c.save(ctx, res.State); err != nil {
		backoff := c.removalBackoff(attempt + 1)
		c.logger.Error("persist removal, retrying",
			zap.String("cart_id", c.state.ID),
			zap.String("item_id", itemID),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", backoff),
			zap.Error(err))
		c.removals.Schedule(c.removalKey(itemID), backoff, func() { c.finalize(itemID, attempt+1) })
		return
	}
	c.state = res.State
	c.logger.Debug("item removed", zap.String("cart_id", c.state.ID), zap.String("item_id", itemID))
}

func (c *Controller) removalBackoff(attempt int) time.Duration {
	if attempt > 10 {
		return maxRemovalBackoff
	}
	return min(c.delay<<attempt, maxRemovalBackoff)
}

func (c *Controller) save(ctx context.Context, s State) error {
	if c.persist == nil {
		return nil
	}
	return c.persist(ctx, s)
}

func (c *Controller) removalKey(itemID string) string {
	return c.state.ID + "/" + itemID
}
