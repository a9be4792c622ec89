package catalog

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/pm3/bigcord/internal/pricing"
)

const DefaultBatchSize = 40

// TitlePrefix is prepended to variant names on the product detail page.
const TitlePrefix = "BIG CORD "

// Store caches the product feed after the first successful load.
type Store struct {
	loader    Loader
	batchSize int
	logger    *zap.Logger

	mu       sync.RWMutex
	products []Product
	bySKU    map[string]int
	loaded   bool
}

func NewStore(loader Loader, batchSize int, logger *zap.Logger) *Store {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{loader: loader, batchSize: batchSize, logger: logger}
}

// Load replaces the cached feed. Products without a SKU and duplicate SKUs
// are dropped.
func (s *Store) Load(ctx context.Context) error {
	raw, err := s.loader.Load(ctx)
	if err != nil {
		s.logger.Warn("catalog load failed", zap.Error(err))
		return err
	}

	products := make([]Product, 0, len(raw))
	bySKU := make(map[string]int, len(raw))
	for _, p := range raw {
		if p.SKU == "" {
			continue
		}
		if _, dup := bySKU[p.SKU]; dup {
			continue
		}
		bySKU[p.SKU] = len(products)
		products = append(products, p.withDefaults())
	}

	s.mu.Lock()
	s.products = products
	s.bySKU = bySKU
	s.loaded = true
	s.mu.Unlock()

	s.logger.Info("catalog loaded", zap.Int("products", len(products)), zap.Int("skipped", len(raw)-len(products)))
	return nil
}

func (s *Store) ensureLoaded(ctx context.Context) error {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return nil
	}
	return s.Load(ctx)
}

type Page struct {
	Products []Product `json:"products"`
	Total    int       `json:"total"`
	Next     int       `json:"next"`
	Done     bool      `json:"done"`
}

// Page returns the batch starting at offset. A non-positive limit uses the
// store's batch size.
func (s *Store) Page(ctx context.Context, offset, limit int) (Page, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return Page{}, err
	}
	if limit <= 0 {
		limit = s.batchSize
	}
	if offset < 0 {
		offset = 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	total := len(s.products)
	if offset > total {
		offset = total
	}
	end := min(offset+limit, total)

	return Page{
		Products: append([]Product(nil), s.products[offset:end]...),
		Total:    total,
		Next:     end,
		Done:     end >= total,
	}, nil
}

func (s *Store) Product(ctx context.Context, sku string) (Product, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return Product{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.bySKU[sku]
	if !ok {
		return Product{}, fmt.Errorf("%w: %s", ErrProductNotFound, sku)
	}
	return s.products[i], nil
}

// Variant is the product detail view of one colour.
type Variant struct {
	SKU        string          `json:"sku"`
	Title      string          `json:"title"`
	Color      string          `json:"color,omitempty"`
	Image      string          `json:"image"`
	Price      decimal.Decimal `json:"price"`
	PriceExVat decimal.Decimal `json:"priceExVat"`
	Stock      int             `json:"stock"`
	InStock    bool            `json:"inStock"`
	MaxQty     int             `json:"maxQty"`
}

func (s *Store) Variant(ctx context.Context, sku string) (Variant, error) {
	p, err := s.Product(ctx, sku)
	if err != nil {
		return Variant{}, err
	}
	return NewVariant(p), nil
}

func NewVariant(p Product) Variant {
	p = p.withDefaults()
	price := p.UnitPrice()
	net, _ := pricing.BackOutVAT(price)
	stock := max(p.StockLevel(), 0)

	return Variant{
		SKU:        p.SKU,
		Title:      TitlePrefix + p.Name,
		Color:      p.Color,
		Image:      p.Image,
		Price:      price,
		PriceExVat: net,
		Stock:      stock,
		InStock:    stock > 0,
		MaxQty:     stock,
	}
}
