package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service keeps one Controller per cart session, loading carts from the
// repository on first use and saving them after every mutation. Controllers
// left idle for IdleTimeout are dropped from memory and reloaded on demand.
type Service struct {
	repo     Repository
	choices  Choices
	removals *RemovalScheduler
	delay    time.Duration
	logger   *zap.Logger

	mu    sync.Mutex
	carts map[string]*Controller

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

type ServiceOptions struct {
	RemovalDelay time.Duration
	// IdleTimeout enables eviction of unused controllers. Zero keeps them
	// until the cart is checked out or discarded.
	IdleTimeout time.Duration
	Logger      *zap.Logger
}

func NewService(repo Repository, choices Choices, opts ServiceOptions) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		repo:     repo,
		choices:  choices,
		removals: NewRemovalScheduler(),
		delay:    opts.RemovalDelay,
		logger:   logger,
		carts:    make(map[string]*Controller),
		done:     make(chan struct{}),
	}
	if opts.IdleTimeout > 0 {
		s.wg.Add(1)
		go s.evictLoop(opts.IdleTimeout)
	}
	return s
}

func (s *Service) Choices() Choices {
	return s.choices
}

func (s *Service) Create(ctx context.Context) (Result, error) {
	state := State{ID: uuid.NewString(), UpdatedAt: time.Now().UTC()}
	if err := s.repo.SaveCart(ctx, state); err != nil {
		return Result{}, fmt.Errorf("create cart: %w", err)
	}

	s.mu.Lock()
	s.carts[state.ID] = s.newController(state)
	s.mu.Unlock()

	s.logger.Info("cart created", zap.String("cart_id", state.ID))
	return resultOf(state, Signals{}), nil
}

func (s *Service) Get(ctx context.Context, cartID string) (Result, error) {
	return s.withController(ctx, cartID, func(c *Controller) (Result, error) {
		return c.get()
	})
}

func (s *Service) Dispatch(ctx context.Context, cartID string, cmd Command) (Result, error) {
	return s.withController(ctx, cartID, func(c *Controller) (Result, error) {
		return c.Dispatch(ctx, cmd)
	})
}

// Checkout runs fn against the current state of the cart while holding it,
// then deletes the cart if fn succeeded. Only one checkout of a cart can
// succeed; the others, and any command queued behind it, get ErrNotFound.
func (s *Service) Checkout(ctx context.Context, cartID string, fn func(Result) error) (Result, error) {
	res, err := s.withController(ctx, cartID, func(c *Controller) (Result, error) {
		return c.Checkout(fn)
	})
	if err != nil {
		return res, err
	}

	if err := s.forget(ctx, cartID); err != nil {
		// The closed controller stays in memory, so the cart cannot be
		// reloaded by this process.
		s.logger.Error("delete checked out cart", zap.String("cart_id", cartID), zap.Error(err))
	}
	return res, nil
}

// Discard forgets a cart without checking it out.
func (s *Service) Discard(ctx context.Context, cartID string) error {
	s.mu.Lock()
	c, ok := s.carts[cartID]
	s.mu.Unlock()

	if ok {
		c.Close()
	}
	return s.forget(ctx, cartID)
}

// EvictIdle drops controllers last used before cutoff and reports how many
// were dropped. Carts with a removal in flight are kept.
func (s *Service) EvictIdle(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, c := range s.carts {
		if c.evictIfIdle(cutoff) {
			delete(s.carts, id)
			n++
		}
	}
	return n
}

// Close stops idle eviction and pending removal transitions.
func (s *Service) Close() {
	s.closeOnce.Do(func() { close(s.done) })
	s.wg.Wait()
	s.removals.Stop()
}

func (s *Service) evictLoop(idle time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(idle / 2)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case now := <-ticker.C:
			if n := s.EvictIdle(now.Add(-idle)); n > 0 {
				s.logger.Debug("evicted idle carts", zap.Int("count", n))
			}
		}
	}
}

// withController looks the controller up again when the one it got was
// evicted meanwhile; eviction removes it from the map, so the cart is reloaded.
func (s *Service) withController(ctx context.Context, cartID string, fn func(*Controller) (Result, error)) (Result, error) {
	for {
		c, err := s.controller(ctx, cartID)
		if err != nil {
			return Result{}, err
		}
		res, err := fn(c)
		if errors.Is(err, errEvicted) {
			continue
		}
		return res, err
	}
}

func (s *Service) forget(ctx context.Context, cartID string) error {
	if err := s.repo.DeleteCart(ctx, cartID); err != nil {
		return fmt.Errorf("discard cart: %w", err)
	}
	s.mu.Lock()
	delete(s.carts, cartID)
	s.mu.Unlock()
	return nil
}

func (s *Service) controller(ctx context.Context, cartID string) (*Controller, error) {
	if cartID == "" {
		return nil, ErrNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.carts[cartID]; ok {
		return c, nil
	}

	state, err := s.repo.GetCart(ctx, cartID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load cart %s: %w", cartID, err)
	}

	c := s.newController(state)
	s.carts[cartID] = c
	return c, nil
}

func (s *Service) newController(state State) *Controller {
	return NewController(state, s.choices, ControllerOptions{
		Removals:     s.removals,
		RemovalDelay: s.delay,
		Persist:      s.repo.SaveCart,
		Logger:       s.logger,
	})
}
