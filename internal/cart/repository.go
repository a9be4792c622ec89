package cart

import (
	"context"
	"sync"
)

type Repository interface {
	GetCart(ctx context.Context, cartID string) (State, error)
	SaveCart(ctx context.Context, s State) error
	DeleteCart(ctx context.Context, cartID string) error
}

// persistable drops items that are mid-removal; they are gone as far as
// anyone reloading the cart is concerned.
func persistable(s State) State {
	out := s.Clone()
	out.Items = s.Active()
	return out
}

type MemoryRepository struct {
	mu    sync.RWMutex
	carts map[string]State
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{carts: make(map[string]State)}
}

func (r *MemoryRepository) GetCart(ctx context.Context, cartID string) (State, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.carts[cartID]
	if !ok {
		return State{}, ErrNotFound
	}
	return s.Clone(), nil
}

func (r *MemoryRepository) SaveCart(ctx context.Context, s State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.carts[s.ID] = persistable(s)
	return nil
}

func (r *MemoryRepository) DeleteCart(ctx context.Context, cartID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.carts, cartID)
	return nil
}
