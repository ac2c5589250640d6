package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/jmoiron/sqlx"
)

// QueryRepository is the read side: every order it returns is hydrated with
// items, payment and shipping address.
type QueryRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	// ListByUserID and ListAll return newest orders first.
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]Order, error)
	ListAll(ctx context.Context) ([]Order, error)
}

type sqlxQueryRepository struct {
	db *sqlx.DB
}

func NewQueryRepository(db *sqlx.DB) QueryRepository {
	return &sqlxQueryRepository{db: db}
}

const orderColumns = `id, user_id, total, status, created_at, updated_at`

func (r *sqlxQueryRepository) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	var o Order
	err := r.db.GetContext(ctx, &o, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("repository: failed to select order by id %s: %w", id, err)
	}

	orders := []Order{o}
	if err := r.hydrate(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

func (r *sqlxQueryRepository) ListByUserID(ctx context.Context, userID uuid.UUID) ([]Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 ORDER BY created_at DESC, id`
	return r.list(ctx, query, userID)
}

func (r *sqlxQueryRepository) ListAll(ctx context.Context) ([]Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at DESC, id`
	return r.list(ctx, query)
}

func (r *sqlxQueryRepository) list(ctx context.Context, query string, args ...any) ([]Order, error) {
	orders := make([]Order, 0)
	if err := r.db.SelectContext(ctx, &orders, query, args...); err != nil {
		return nil, fmt.Errorf("repository: failed to query orders: %w", err)
	}
	if err := r.hydrate(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// hydrate loads the children of all orders with one query per child table.
func (r *sqlxQueryRepository) hydrate(ctx context.Context, orders []Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, len(orders))
	byID := make(map[uuid.UUID]*Order, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
		orders[i].Items = make([]OrderItem, 0)
		byID[orders[i].ID] = &orders[i]
	}

	var items []OrderItem
	err := r.db.SelectContext(ctx, &items,
		`SELECT id, order_id, product_id, quantity, price FROM order_items WHERE order_id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return fmt.Errorf("repository: failed to query order items: %w", err)
	}
	for _, item := range items {
		if o, ok := byID[item.OrderID]; ok {
			o.Items = append(o.Items, item)
		}
	}

	var payments []Payment
	err = r.db.SelectContext(ctx, &payments,
		`SELECT id, order_id, amount, method, status, payment_date FROM payments WHERE order_id = ANY($1)`, ids)
	if err != nil {
		return fmt.Errorf("repository: failed to query payments: %w", err)
	}
	for i := range payments {
		if o, ok := byID[payments[i].OrderID]; ok {
			o.Payment = &payments[i]
		}
	}

	var addresses []ShippingAddress
	err = r.db.SelectContext(ctx, &addresses, `
		SELECT id, order_id, user_id, full_name, phone, address_line, city, district, ward, note, is_default, created_at
		FROM shipping_addresses
		WHERE order_id = ANY($1)`, ids)
	if err != nil {
		return fmt.Errorf("repository: failed to query shipping addresses: %w", err)
	}
	for i := range addresses {
		if o, ok := byID[addresses[i].OrderID]; ok {
			o.ShippingAddress = &addresses[i]
		}
	}

	return nil
}
