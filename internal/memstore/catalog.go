package memstore

import (
	"context"

	"github.com/gofrs/uuid"
	"github.com/vasiliy-maslov/ecommerce-microservices/storefront/internal/catalog"
)

type Catalog struct{ s *Store }

var _ catalog.Repository = (*Catalog)(nil)

func (r *Catalog) GetProduct(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	defer r.s.lock(ctx)()
	p, ok := r.s.data.products[id]
	if !ok {
		return nil, catalog.ErrProductNotFound
	}
	return &p, nil
}

func (r *Catalog) GetCategory(ctx context.Context, id uuid.UUID) (*catalog.Category, error) {
	defer r.s.lock(ctx)()
	c, ok := r.s.data.categories[id]
	if !ok {
		return nil, catalog.ErrCategoryNotFound
	}
	return &c, nil
}

func (r *Catalog) ReduceStock(ctx context.Context, id uuid.UUID, quantity int) (*catalog.Product, error) {
	defer r.s.lock(ctx)()
	p, ok := r.s.data.products[id]
	if !ok {
		return nil, catalog.ErrProductNotFound
	}
	if p.Quantity < quantity {
		return nil, catalog.ErrInsufficientStock
	}

	p.Quantity -= quantity
	p.UpdatedAt = r.s.now()
	r.s.data.products[id] = p
	return &p, nil
}
