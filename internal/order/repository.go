package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/ecommerce-microservices/storefront/internal/catalog"
	"github.com/vasiliy-maslov/ecommerce-microservices/storefront/internal/db"
	"github.com/vasiliy-maslov/ecommerce-microservices/storefront/internal/user"
)

// Repository is the write side of orders. Methods that touch several tables
// must be called inside db.TxManager.WithinTx.
type Repository interface {
	InsertAggregate(ctx context.Context, o *Order) error
	// GetStatusForUpdate locks the order row until the transaction ends.
	GetStatusForUpdate(ctx context.Context, id uuid.UUID) (Status, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status, at time.Time) error
	// DeleteAggregate removes items, payment, shipping address and the order, in that order.
	DeleteAggregate(ctx context.Context, id uuid.UUID) error
}

type postgresRepository struct {
	pool db.Querier
}

func NewRepository(pool db.Querier) Repository {
	return &postgresRepository{pool: pool}
}

func (r *postgresRepository) InsertAggregate(ctx context.Context, o *Order) error {
	conn := db.Conn(ctx, r.pool)

	queryOrder := `
		INSERT INTO orders (id, user_id, total, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := conn.Exec(ctx, queryOrder, o.ID, o.UserID, o.Total, string(o.Status), o.CreatedAt, o.UpdatedAt); err != nil {
		return mapInsertError(err, fmt.Sprintf("insert order %s", o.ID))
	}

	queryItem := `
		INSERT INTO order_items (id, order_id, product_id, quantity, price)
		VALUES ($1, $2, $3, $4, $5)
	`
	for _, item := range o.Items {
		if _, err := conn.Exec(ctx, queryItem, item.ID, o.ID, item.ProductID, item.Quantity, item.Price); err != nil {
			return mapInsertError(err, fmt.Sprintf("insert order item for order %s", o.ID))
		}
	}

	if p := o.Payment; p != nil {
		queryPayment := `
			INSERT INTO payments (id, order_id, amount, method, status, payment_date)
			VALUES ($1, $2, $3, $4, $5, $6)
		`
		if _, err := conn.Exec(ctx, queryPayment, p.ID, o.ID, p.Amount, p.Method, p.Status, p.PaymentDate); err != nil {
			return mapInsertError(err, fmt.Sprintf("insert payment for order %s", o.ID))
		}
	}

	if a := o.ShippingAddress; a != nil {
		queryAddress := `
			INSERT INTO shipping_addresses
				(id, order_id, user_id, full_name, phone, address_line, city, district, ward, note, is_default, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`
		_, err := conn.Exec(ctx, queryAddress,
			a.ID,
			o.ID,
			a.UserID,
			a.FullName,
			a.Phone,
			a.AddressLine,
			a.City,
			a.District,
			a.Ward,
			a.Note,
			a.IsDefault,
			a.CreatedAt,
		)
		if err != nil {
			return mapInsertError(err, fmt.Sprintf("insert shipping address for order %s", o.ID))
		}
	}

	return nil
}

// mapInsertError turns a vanished referenced row into its domain error.
func mapInsertError(err error, op string) error {
	if db.IsForeignKeyViolation(err) {
		switch db.ConstraintName(err) {
		case "order_items_product_id_fkey":
			return catalog.ErrProductNotFound
		case "orders_user_id_fkey", "shipping_addresses_user_id_fkey":
			return user.ErrNotFound
		}
	}
	return fmt.Errorf("repository: failed to %s: %w", op, err)
}

func (r *postgresRepository) GetStatusForUpdate(ctx context.Context, id uuid.UUID) (Status, error) {
	var status Status
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT status FROM orders WHERE id = $1 FOR UPDATE`, id).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrOrderNotFound
		}
		return "", fmt.Errorf("repository: failed to select status of order %s: %w", id, err)
	}
	return status, nil
}

func (r *postgresRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status Status, at time.Time) error {
	query := `
		UPDATE orders
		SET status = $1, updated_at = $2
		WHERE id = $3
	`

	cmdTag, err := db.Conn(ctx, r.pool).Exec(ctx, query, string(status), at, id)
	if err != nil {
		if db.IsCheckViolation(err) && db.ConstraintName(err) == "chk_orders_status" {
			return ErrUnknownStatus
		}
		log.Error().Err(err).Stringer("order_id", id).Stringer("new_status", status).Msg("repository: failed to update order status")
		return fmt.Errorf("repository: failed to update order status %s: %w", id, err)
	}

	if cmdTag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}

	return nil
}

func (r *postgresRepository) DeleteAggregate(ctx context.Context, id uuid.UUID) error {
	conn := db.Conn(ctx, r.pool)

	dependents := []struct {
		table string
		query string
	}{
		{"order_items", `DELETE FROM order_items WHERE order_id = $1`},
		{"payments", `DELETE FROM payments WHERE order_id = $1`},
		{"shipping_addresses", `DELETE FROM shipping_addresses WHERE order_id = $1`},
	}
	for _, d := range dependents {
		if _, err := conn.Exec(ctx, d.query, id); err != nil {
			return fmt.Errorf("repository: failed to delete %s of order %s: %w", d.table, id, err)
		}
	}

	cmdTag, err := conn.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("repository: failed to delete order %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}

	return nil
}
