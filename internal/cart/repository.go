package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/ecommerce-microservices/storefront/internal/apperr"
	"github.com/vasiliy-maslov/ecommerce-microservices/storefront/internal/catalog"
	"github.com/vasiliy-maslov/ecommerce-microservices/storefront/internal/db"
	"github.com/vasiliy-maslov/ecommerce-microservices/storefront/internal/user"
)

var (
	ErrCartNotFound     = apperr.New(apperr.ErrNotFound, "cart not found")
	ErrCartItemNotFound = apperr.New(apperr.ErrNotFound, "cart item not found")
	ErrInvalidQuantity  = apperr.New(apperr.ErrInvalidArgument, "quantity must be greater than zero")
	ErrUserHasCart      = apperr.New(apperr.ErrConflict, "user already has a cart")
)

type Repository interface {
	// EnsureCart creates the user's cart unless it already exists and returns
	// it without items.
	EnsureCart(ctx context.Context, userID uuid.UUID) (*Cart, error)
	GetCart(ctx context.Context, id uuid.UUID) (*Cart, error)
	// LockCart is GetCart holding a row lock until the surrounding transaction ends.
	LockCart(ctx context.Context, id uuid.UUID) (*Cart, error)
	ListCarts(ctx context.Context) ([]Cart, error)
	DeleteCart(ctx context.Context, id uuid.UUID) error
	// SetOwner moves the cart to userID. A user owns at most one cart.
	SetOwner(ctx context.Context, id, userID uuid.UUID) error

	GetItem(ctx context.Context, id uuid.UUID) (*CartItem, error)
	ListItems(ctx context.Context, cartID uuid.UUID) ([]CartItem, error)
	ListAllItems(ctx context.Context) ([]CartItem, error)
	// UpsertItem adds quantity to the cart's line for productID, creating the
	// line if needed, and sets its subtotal to the new quantity times unitPrice.
	UpsertItem(ctx context.Context, cartID, productID uuid.UUID, quantity int, unitPrice decimal.Decimal) (*CartItem, error)
	UpdateItem(ctx context.Context, id uuid.UUID, quantity int, subtotal decimal.Decimal) (*CartItem, error)
	DeleteItem(ctx context.Context, id uuid.UUID) error
	DeleteItems(ctx context.Context, cartID uuid.UUID) error

	// RecomputeTotal sets the cart total to the sum of its item subtotals.
	RecomputeTotal(ctx context.Context, cartID uuid.UUID) (decimal.Decimal, error)
}

type postgresRepository struct {
	pool db.Querier
}

func NewRepository(pool db.Querier) Repository {
	return &postgresRepository{pool: pool}
}

const (
	cartColumns = `id, user_id, total, created_at, updated_at`
	itemColumns = `id, cart_id, product_id, quantity, subtotal, created_at, updated_at`
)

func scanCart(row pgx.Row, c *Cart) error {
	return row.Scan(&c.ID, &c.UserID, &c.Total, &c.CreatedAt, &c.UpdatedAt)
}

func scanItem(row pgx.Row, i *CartItem) error {
	return row.Scan(&i.ID, &i.CartID, &i.ProductID, &i.Quantity, &i.Subtotal, &i.CreatedAt, &i.UpdatedAt)
}

func (r *postgresRepository) EnsureCart(ctx context.Context, userID uuid.UUID) (*Cart, error) {
	cartID, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("repository: failed to generate cart ID: %w", err)
	}

	conn := db.Conn(ctx, r.pool)

	insert := `
		INSERT INTO carts (id, user_id, total, created_at, updated_at)
		VALUES ($1, $2, 0, NOW(), NOW())
		ON CONFLICT (user_id) DO NOTHING
	`
	if _, err := conn.Exec(ctx, insert, cartID, userID); err != nil {
		return nil, fmt.Errorf("repository: failed to insert cart for user %s: %w", userID, err)
	}

	var c Cart
	query := `SELECT ` + cartColumns + ` FROM carts WHERE user_id = $1`
	if err := scanCart(conn.QueryRow(ctx, query, userID), &c); err != nil {
		return nil, fmt.Errorf("repository: failed to select cart for user %s: %w", userID, err)
	}

	return &c, nil
}

func (r *postgresRepository) GetCart(ctx context.Context, id uuid.UUID) (*Cart, error) {
	return r.getCart(ctx, `SELECT `+cartColumns+` FROM carts WHERE id = $1`, id)
}

func (r *postgresRepository) LockCart(ctx context.Context, id uuid.UUID) (*Cart, error) {
	return r.getCart(ctx, `SELECT `+cartColumns+` FROM carts WHERE id = $1 FOR UPDATE`, id)
}

func (r *postgresRepository) getCart(ctx context.Context, query string, id uuid.UUID) (*Cart, error) {
	var c Cart
	if err := scanCart(db.Conn(ctx, r.pool).QueryRow(ctx, query, id), &c); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("repository: failed to select cart %s: %w", id, err)
	}
	return &c, nil
}

func (r *postgresRepository) ListCarts(ctx context.Context) ([]Cart, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `SELECT `+cartColumns+` FROM carts ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query carts: %w", err)
	}
	defer rows.Close()

	carts := make([]Cart, 0)
	for rows.Next() {
		var c Cart
		if err := scanCart(rows, &c); err != nil {
			return nil, fmt.Errorf("repository: failed to scan cart: %w", err)
		}
		carts = append(carts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: failed iterating carts: %w", err)
	}

	return carts, nil
}

func (r *postgresRepository) DeleteCart(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM carts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("repository: failed to delete cart %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCartNotFound
	}
	return nil
}

func (r *postgresRepository) SetOwner(ctx context.Context, id, userID uuid.UUID) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `UPDATE carts SET user_id = $2, updated_at = NOW() WHERE id = $1`, id, userID)
	if err != nil {
		switch {
		case db.IsUniqueViolation(err):
			return ErrUserHasCart
		case db.IsForeignKeyViolation(err):
			return user.ErrNotFound
		}
		return fmt.Errorf("repository: failed to set owner of cart %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCartNotFound
	}
	return nil
}

func (r *postgresRepository) GetItem(ctx context.Context, id uuid.UUID) (*CartItem, error) {
	var item CartItem
	query := `SELECT ` + itemColumns + ` FROM cart_items WHERE id = $1`
	if err := scanItem(db.Conn(ctx, r.pool).QueryRow(ctx, query, id), &item); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCartItemNotFound
		}
		return nil, fmt.Errorf("repository: failed to select cart item %s: %w", id, err)
	}
	return &item, nil
}

func (r *postgresRepository) ListItems(ctx context.Context, cartID uuid.UUID) ([]CartItem, error) {
	return r.listItems(ctx, `SELECT `+itemColumns+` FROM cart_items WHERE cart_id = $1 ORDER BY created_at, id`, cartID)
}

func (r *postgresRepository) ListAllItems(ctx context.Context) ([]CartItem, error) {
	return r.listItems(ctx, `SELECT `+itemColumns+` FROM cart_items ORDER BY cart_id, created_at, id`)
}

func (r *postgresRepository) listItems(ctx context.Context, query string, args ...any) ([]CartItem, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query cart items: %w", err)
	}
	defer rows.Close()

	items := make([]CartItem, 0)
	for rows.Next() {
		var item CartItem
		if err := scanItem(rows, &item); err != nil {
			return nil, fmt.Errorf("repository: failed to scan cart item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: failed iterating cart items: %w", err)
	}

	return items, nil
}

func (r *postgresRepository) UpsertItem(ctx context.Context, cartID, productID uuid.UUID, quantity int, unitPrice decimal.Decimal) (*CartItem, error) {
	itemID, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("repository: failed to generate cart item ID: %w", err)
	}

	// Инкремент выполняется в одном выражении, без чтения-изменения-записи.
	query := `
		INSERT INTO cart_items (id, cart_id, product_id, quantity, subtotal, created_at, updated_at)
		VALUES ($1, $2, $3, $4::int, $4::int * $5::numeric, NOW(), NOW())
		ON CONFLICT (cart_id, product_id) DO UPDATE
		SET quantity   = cart_items.quantity + EXCLUDED.quantity,
		    subtotal   = (cart_items.quantity + EXCLUDED.quantity) * $5::numeric,
		    updated_at = NOW()
		RETURNING ` + itemColumns

	var item CartItem
	err = scanItem(db.Conn(ctx, r.pool).QueryRow(ctx, query, itemID, cartID, productID, quantity, unitPrice), &item)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			if db.ConstraintName(err) == "cart_items_product_id_fkey" {
				return nil, catalog.ErrProductNotFound
			}
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("repository: failed to upsert item for cart %s: %w", cartID, err)
	}

	return &item, nil
}

func (r *postgresRepository) UpdateItem(ctx context.Context, id uuid.UUID, quantity int, subtotal decimal.Decimal) (*CartItem, error) {
	query := `
		UPDATE cart_items
		SET quantity = $2, subtotal = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + itemColumns

	var item CartItem
	if err := scanItem(db.Conn(ctx, r.pool).QueryRow(ctx, query, id, quantity, subtotal), &item); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCartItemNotFound
		}
		return nil, fmt.Errorf("repository: failed to update cart item %s: %w", id, err)
	}
	return &item, nil
}

func (r *postgresRepository) DeleteItem(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM cart_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("repository: failed to delete cart item %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCartItemNotFound
	}
	return nil
}

func (r *postgresRepository) DeleteItems(ctx context.Context, cartID uuid.UUID) error {
	if _, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
		return fmt.Errorf("repository: failed to delete items of cart %s: %w", cartID, err)
	}
	return nil
}

func (r *postgresRepository) RecomputeTotal(ctx context.Context, cartID uuid.UUID) (decimal.Decimal, error) {
	query := `
		UPDATE carts
		SET total = COALESCE((SELECT SUM(subtotal) FROM cart_items WHERE cart_id = $1), 0),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING total
	`

	var total decimal.Decimal
	if err := db.Conn(ctx, r.pool).QueryRow(ctx, query, cartID).Scan(&total); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, ErrCartNotFound
		}
		return decimal.Zero, fmt.Errorf("repository: failed to recompute total of cart %s: %w", cartID, err)
	}
	return total, nil
}
