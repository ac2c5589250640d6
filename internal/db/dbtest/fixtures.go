package dbtest

import (
	"context"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/ecommerce-microservices/storefront/internal/db"
)

func InsertUser(tb testing.TB, p *db.Postgres, username, role string) uuid.UUID {
	tb.Helper()
	id := uuid.Must(uuid.NewV4())
	_, err := p.Pool.Exec(context.Background(),
		`INSERT INTO users (id, username, email, role) VALUES ($1, $2, $3, $4)`,
		id, username, username+"@example.com", role)
	require.NoError(tb, err, "failed to insert user")
	return id
}

func InsertCategory(tb testing.TB, p *db.Postgres, name string) uuid.UUID {
	tb.Helper()
	id := uuid.Must(uuid.NewV4())
	_, err := p.Pool.Exec(context.Background(), `INSERT INTO categories (id, name) VALUES ($1, $2)`, id, name)
	require.NoError(tb, err, "failed to insert category")
	return id
}

func InsertProduct(tb testing.TB, p *db.Postgres, categoryID uuid.UUID, name, price string, quantity int) uuid.UUID {
	tb.Helper()
	id := uuid.Must(uuid.NewV4())
	_, err := p.Pool.Exec(context.Background(),
		`INSERT INTO products (id, category_id, name, price, quantity) VALUES ($1, $2, $3, $4, $5)`,
		id, categoryID, name, decimal.RequireFromString(price), quantity)
	require.NoError(tb, err, "failed to insert product")
	return id
}

// SetProductPrice changes a product's list price behind the services' back.
func SetProductPrice(tb testing.TB, p *db.Postgres, productID uuid.UUID, price string) {
	tb.Helper()
	_, err := p.Pool.Exec(context.Background(),
		`UPDATE products SET price = $1 WHERE id = $2`, decimal.RequireFromString(price), productID)
	require.NoError(tb, err, "failed to update product price")
}
