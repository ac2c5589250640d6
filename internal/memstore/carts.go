package memstore

import (
	"context"
	"sort"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/ecommerce-microservices/storefront/internal/cart"
	"github.com/vasiliy-maslov/ecommerce-microservices/storefront/internal/catalog"
	"github.com/vasiliy-maslov/ecommerce-microservices/storefront/internal/user"
)

type Carts struct{ s *Store }

var _ cart.Repository = (*Carts)(nil)

func (r *Carts) EnsureCart(ctx context.Context, userID uuid.UUID) (*cart.Cart, error) {
	defer r.s.lock(ctx)()
	for _, c := range r.s.data.carts {
		if c.UserID == userID {
			return &c, nil
		}
	}

	now := r.s.now()
	c := cart.Cart{ID: newID(), UserID: userID, Total: decimal.Zero, CreatedAt: now, UpdatedAt: now}
	r.s.data.carts[c.ID] = c
	return &c, nil
}

func (r *Carts) GetCart(ctx context.Context, id uuid.UUID) (*cart.Cart, error) {
	defer r.s.lock(ctx)()
	c, ok := r.s.data.carts[id]
	if !ok {
		return nil, cart.ErrCartNotFound
	}
	return &c, nil
}

// LockCart relies on the transaction holding the store lock.
func (r *Carts) LockCart(ctx context.Context, id uuid.UUID) (*cart.Cart, error) {
	return r.GetCart(ctx, id)
}

func (r *Carts) ListCarts(ctx context.Context) ([]cart.Cart, error) {
	defer r.s.lock(ctx)()
	carts := make([]cart.Cart, 0, len(r.s.data.carts))
	for _, c := range r.s.data.carts {
		carts = append(carts, c)
	}
	sort.Slice(carts, func(i, j int) bool { return carts[i].CreatedAt.After(carts[j].CreatedAt) })
	return carts, nil
}

func (r *Carts) DeleteCart(ctx context.Context, id uuid.UUID) error {
	defer r.s.lock(ctx)()
	if _, ok := r.s.data.carts[id]; !ok {
		return cart.ErrCartNotFound
	}
	for itemID, item := range r.s.data.cartItems {
		if item.CartID == id {
			delete(r.s.data.cartItems, itemID)
		}
	}
	delete(r.s.data.carts, id)
	return nil
}

func (r *Carts) SetOwner(ctx context.Context, id, userID uuid.UUID) error {
	defer r.s.lock(ctx)()
	c, ok := r.s.data.carts[id]
	if !ok {
		return cart.ErrCartNotFound
	}
	if _, ok := r.s.data.users[userID]; !ok {
		return user.ErrNotFound
	}
	for otherID, other := range r.s.data.carts {
		if otherID != id && other.UserID == userID {
			return cart.ErrUserHasCart
		}
	}

	c.UserID = userID
	c.UpdatedAt = r.s.now()
	r.s.data.carts[id] = c
	return nil
}

func (r *Carts) GetItem(ctx context.Context, id uuid.UUID) (*cart.CartItem, error) {
	defer r.s.lock(ctx)()
	item, ok := r.s.data.cartItems[id]
	if !ok {
		return nil, cart.ErrCartItemNotFound
	}
	return &item, nil
}

func (r *Carts) ListItems(ctx context.Context, cartID uuid.UUID) ([]cart.CartItem, error) {
	defer r.s.lock(ctx)()
	return r.items(func(item cart.CartItem) bool { return item.CartID == cartID }), nil
}

func (r *Carts) ListAllItems(ctx context.Context) ([]cart.CartItem, error) {
	defer r.s.lock(ctx)()
	return r.items(func(cart.CartItem) bool { return true }), nil
}

func (r *Carts) items(match func(cart.CartItem) bool) []cart.CartItem {
	items := make([]cart.CartItem, 0)
	for _, item := range r.s.data.cartItems {
		if match(item) {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.Before(items[j].CreatedAt)
		}
		return items[i].ID.String() < items[j].ID.String()
	})
	return items
}

func (r *Carts) UpsertItem(ctx context.Context, cartID, productID uuid.UUID, quantity int, unitPrice decimal.Decimal) (*cart.CartItem, error) {
	defer r.s.lock(ctx)()
	if _, ok := r.s.data.carts[cartID]; !ok {
		return nil, cart.ErrCartNotFound
	}
	if _, ok := r.s.data.products[productID]; !ok {
		return nil, catalog.ErrProductNotFound
	}

	now := r.s.now()
	for id, item := range r.s.data.cartItems {
		if item.CartID == cartID && item.ProductID == productID {
			item.Quantity += quantity
			item.Subtotal = unitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
			item.UpdatedAt = now
			r.s.data.cartItems[id] = item
			return &item, nil
		}
	}

	item := cart.CartItem{
		ID:        newID(),
		CartID:    cartID,
		ProductID: productID,
		Quantity:  quantity,
		Subtotal:  unitPrice.Mul(decimal.NewFromInt(int64(quantity))),
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.s.data.cartItems[item.ID] = item
	return &item, nil
}

func (r *Carts) UpdateItem(ctx context.Context, id uuid.UUID, quantity int, subtotal decimal.Decimal) (*cart.CartItem, error) {
	defer r.s.lock(ctx)()
	item, ok := r.s.data.cartItems[id]
	if !ok {
		return nil, cart.ErrCartItemNotFound
	}
	item.Quantity = quantity
	item.Subtotal = subtotal
	item.UpdatedAt = r.s.now()
	r.s.data.cartItems[id] = item
	return &item, nil
}

func (r *Carts) DeleteItem(ctx context.Context, id uuid.UUID) error {
	defer r.s.lock(ctx)()
	if _, ok := r.s.data.cartItems[id]; !ok {
		return cart.ErrCartItemNotFound
	}
	delete(r.s.data.cartItems, id)
	return nil
}

func (r *Carts) DeleteItems(ctx context.Context, cartID uuid.UUID) error {
	defer r.s.lock(ctx)()
	for id, item := range r.s.data.cartItems {
		if item.CartID == cartID {
			delete(r.s.data.cartItems, id)
		}
	}
	return nil
}

func (r *Carts) RecomputeTotal(ctx context.Context, cartID uuid.UUID) (decimal.Decimal, error) {
	defer r.s.lock(ctx)()
	c, ok := r.s.data.carts[cartID]
	if !ok {
		return decimal.Zero, cart.ErrCartNotFound
	}

	total := decimal.Zero
	for _, item := range r.s.data.cartItems {
		if item.CartID == cartID {
			total = total.Add(item.Subtotal)
		}
	}

	c.Total = total
	c.UpdatedAt = r.s.now()
	r.s.data.carts[cartID] = c
	return total, nil
}
