package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pm3/bigcord/internal/money"
	"github.com/pm3/bigcord/internal/pricing"
)

// DBPool matches the methods from *pgxpool.Pool that we use.
// This allows us to mock the database in tests.
type DBPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresRepository stores carts with prices as integer cents. Selected
// options and coupons are stored by ID/code and resolved on load.
type PostgresRepository struct {
	pool    DBPool
	choices Choices
}

func NewPostgresRepository(pool DBPool, choices Choices) *PostgresRepository {
	return &PostgresRepository{pool: pool, choices: choices}
}

const selectCartSQL = `SELECT id, COALESCE(shipping_option_id, ''), COALESCE(payment_option_id, ''), COALESCE(coupon_code, ''), updated_at FROM carts WHERE id = $1`

const selectItemsSQL = `SELECT item_id, product_id, name, unit_price_cents, quantity, stock_limit FROM cart_items WHERE cart_id = $1 ORDER BY position`

func (r *PostgresRepository) GetCart(ctx context.Context, cartID string) (State, error) {
	var s State
	var shippingID, paymentID, coupon string
	err := r.pool.QueryRow(ctx, selectCartSQL, cartID).Scan(&s.ID, &shippingID, &paymentID, &coupon, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return State{}, ErrNotFound
		}
		return State{}, fmt.Errorf("load cart: %w", err)
	}

	if opt, ok := r.choices.ShippingOption(shippingID); ok {
		s.Shipping = &opt
	}
	if opt, ok := r.choices.PaymentOption(paymentID); ok {
		s.Payment = &opt
	}
	if c, ok := pricing.LookupCoupon(coupon); ok {
		s.Coupon = &c
	}

	rows, err := r.pool.Query(ctx, selectItemsSQL, cartID)
	if err != nil {
		return State{}, fmt.Errorf("load cart items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			it    LineItem
			cents int64
		)
		if err := rows.Scan(&it.ID, &it.ProductID, &it.Name, &cents, &it.Quantity, &it.StockLimit); err != nil {
			return State{}, fmt.Errorf("scan cart item: %w", err)
		}
		it.UnitPrice = money.FromCents(cents)
		s.Items = append(s.Items, it)
	}
	if err := rows.Err(); err != nil {
		return State{}, fmt.Errorf("load cart items: %w", err)
	}

	return s, nil
}

const upsertCartSQL = `
INSERT INTO carts (id, shipping_option_id, payment_option_id, coupon_code, updated_at)
VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), NULLIF($4, ''), $5)
ON CONFLICT (id) DO UPDATE
SET shipping_option_id = EXCLUDED.shipping_option_id,
    payment_option_id = EXCLUDED.payment_option_id,
    coupon_code = EXCLUDED.coupon_code,
    updated_at = EXCLUDED.updated_at
`

const insertItemSQL = `
INSERT INTO cart_items (cart_id, item_id, product_id, name, unit_price_cents, quantity, stock_limit, position)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`

func (r *PostgresRepository) SaveCart(ctx context.Context, s State) (err error) {
	s = persistable(s)

	var shippingID, paymentID, coupon string
	if s.Shipping != nil {
		shippingID = s.Shipping.ID
	}
	if s.Payment != nil {
		paymentID = s.Payment.ID
	}
	if s.Coupon != nil {
		coupon = s.Coupon.Code
	}
	updatedAt := s.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, upsertCartSQL, s.ID, shippingID, paymentID, coupon, updatedAt); err != nil {
		return fmt.Errorf("upsert cart: %w", err)
	}
	if _, err = tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, s.ID); err != nil {
		return fmt.Errorf("clear cart items: %w", err)
	}
	for pos, it := range s.Items {
		if _, err = tx.Exec(ctx, insertItemSQL,
			s.ID, it.ID, it.ProductID, it.Name, money.Cents(it.UnitPrice), it.Quantity, it.StockLimit, pos,
		); err != nil {
			return fmt.Errorf("insert cart item %s: %w", it.ID, err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeleteCart(ctx context.Context, cartID string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM carts WHERE id = $1`, cartID); err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	return nil
}
