package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/ecommerce-microservices/storefront/internal/apperr"
	"github.com/vasiliy-maslov/ecommerce-microservices/storefront/internal/db"
)

var (
	ErrProductNotFound    = apperr.New(apperr.ErrNotFound, "product not found")
	ErrCategoryNotFound   = apperr.New(apperr.ErrNotFound, "category not found")
	ErrInsufficientStock  = apperr.New(apperr.ErrInvalidState, "insufficient stock")
	ErrInvalidQuantity    = apperr.New(apperr.ErrInvalidArgument, "quantity must be greater than zero")
	ErrInvalidDiscount    = apperr.New(apperr.ErrInvalidArgument, "discount percent must be between 0 and 100")
	ErrFlashSalesDisabled = apperr.New(apperr.ErrInvalidState, "flash sales are not enabled")
)

type Repository interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*Product, error)
	GetCategory(ctx context.Context, id uuid.UUID) (*Category, error)
	// ReduceStock subtracts quantity from the product's stock in one conditional
	// update and returns the product as stored afterwards.
	ReduceStock(ctx context.Context, id uuid.UUID, quantity int) (*Product, error)
}

type postgresRepository struct {
	pool db.Querier
}

func NewRepository(pool db.Querier) Repository {
	return &postgresRepository{pool: pool}
}

const productColumns = `id, category_id, name, description, price, quantity, created_at, updated_at`

func scanProduct(row pgx.Row, p *Product) error {
	return row.Scan(
		&p.ID,
		&p.CategoryID,
		&p.Name,
		&p.Description,
		&p.Price,
		&p.Quantity,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
}

func (r *postgresRepository) GetProduct(ctx context.Context, id uuid.UUID) (*Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	var p Product
	if err := scanProduct(db.Conn(ctx, r.pool).QueryRow(ctx, query, id), &p); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("repository: failed to select product by id %s: %w", id, err)
	}

	return &p, nil
}

func (r *postgresRepository) GetCategory(ctx context.Context, id uuid.UUID) (*Category, error) {
	query := `SELECT id, name, description FROM categories WHERE id = $1`

	var c Category
	err := db.Conn(ctx, r.pool).QueryRow(ctx, query, id).Scan(&c.ID, &c.Name, &c.Description)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("repository: failed to select category by id %s: %w", id, err)
	}

	return &c, nil
}

func (r *postgresRepository) ReduceStock(ctx context.Context, id uuid.UUID, quantity int) (*Product, error) {
	query := `
		UPDATE products
		SET quantity = quantity - $2, updated_at = NOW()
		WHERE id = $1 AND quantity >= $2
		RETURNING ` + productColumns

	conn := db.Conn(ctx, r.pool)

	var p Product
	err := scanProduct(conn.QueryRow(ctx, query, id, quantity), &p)
	if err == nil {
		return &p, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("repository: failed to reduce stock for product %s: %w", id, err)
	}

	// Ни одна строка не обновлена: товара нет или не хватает остатка.
	var exists bool
	if err := conn.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, fmt.Errorf("repository: failed to check product %s: %w", id, err)
	}
	if !exists {
		return nil, ErrProductNotFound
	}

	log.Warn().Stringer("product_id", id).Int("quantity", quantity).Msg("repository: insufficient stock")
	return nil, ErrInsufficientStock
}
