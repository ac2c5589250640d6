// Package memstore keeps the whole storefront in process memory. It backs
// APP_STORAGE=memory for local runs and the service tests.
//
// A transaction holds the store lock for its whole duration and restores a
// snapshot of every table when fn fails, so WithinTx is fully serializable.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/ecommerce-microservices/storefront/internal/cart"
	"github.com/vasiliy-maslov/ecommerce-microservices/storefront/internal/catalog"
	"github.com/vasiliy-maslov/ecommerce-microservices/storefront/internal/order"
	"github.com/vasiliy-maslov/ecommerce-microservices/storefront/internal/user"
)

type tables struct {
	users      map[uuid.UUID]user.User
	categories map[uuid.UUID]catalog.Category
	products   map[uuid.UUID]catalog.Product
	carts      map[uuid.UUID]cart.Cart
	cartItems  map[uuid.UUID]cart.CartItem
	orders     map[uuid.UUID]order.Order
	orderItems map[uuid.UUID]order.OrderItem
	payments   map[uuid.UUID]order.Payment         // by order id
	addresses  map[uuid.UUID]order.ShippingAddress // by order id
}

func newTables() tables {
	return tables{
		users:      make(map[uuid.UUID]user.User),
		categories: make(map[uuid.UUID]catalog.Category),
		products:   make(map[uuid.UUID]catalog.Product),
		carts:      make(map[uuid.UUID]cart.Cart),
		cartItems:  make(map[uuid.UUID]cart.CartItem),
		orders:     make(map[uuid.UUID]order.Order),
		orderItems: make(map[uuid.UUID]order.OrderItem),
		payments:   make(map[uuid.UUID]order.Payment),
		addresses:  make(map[uuid.UUID]order.ShippingAddress),
	}
}

func (t tables) clone() tables {
	return tables{
		users:      copyMap(t.users),
		categories: copyMap(t.categories),
		products:   copyMap(t.products),
		carts:      copyMap(t.carts),
		cartItems:  copyMap(t.cartItems),
		orders:     copyMap(t.orders),
		orderItems: copyMap(t.orderItems),
		payments:   copyMap(t.payments),
		addresses:  copyMap(t.addresses),
	}
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

type flashSale struct {
	percent   decimal.Decimal
	expiresAt time.Time // zero means no expiry
}

type Store struct {
	mu   sync.Mutex
	data tables
	now  func() time.Time

	// Redis stand-ins live outside the transactional tables.
	auxMu       sync.Mutex
	flashSales  map[uuid.UUID]flashSale
	idempotency map[string]uuid.UUID
}

func New() *Store {
	return &Store{
		data:        newTables(),
		now:         func() time.Time { return time.Now().UTC() },
		flashSales:  make(map[uuid.UUID]flashSale),
		idempotency: make(map[string]uuid.UUID),
	}
}

type txKey struct{}

func (s *Store) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

// lock acquires the store lock unless ctx already runs inside one of this
// store's transactions. The returned func releases what was acquired.
func (s *Store) lock(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if s.inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	defer func() {
		if p := recover(); p != nil {
			s.data = snapshot
			panic(p)
		}
		if err != nil {
			s.data = snapshot
		}
	}()

	return fn(context.WithValue(ctx, txKey{}, s))
}

func (s *Store) AddUser(u user.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now()
	}
	s.data.users[u.ID] = u
}

func (s *Store) AddCategory(c catalog.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.categories[c.ID] = c
}

// PutProduct inserts or replaces a product.
func (s *Store) PutProduct(p catalog.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	p.FlashSale, p.DiscountPercent, p.DiscountPrice = false, nil, nil
	s.data.products[p.ID] = p
}

func (s *Store) Users() *Users               { return &Users{s} }
func (s *Store) Catalog() *Catalog           { return &Catalog{s} }
func (s *Store) Carts() *Carts               { return &Carts{s} }
func (s *Store) Orders() *Orders             { return &Orders{s} }
func (s *Store) OrderQueries() *OrderQueries { return &OrderQueries{s} }
func (s *Store) FlashSales() *FlashSales     { return &FlashSales{s} }
func (s *Store) Idempotency() *Idempotency   { return &Idempotency{s} }

func newID() uuid.UUID {
	return uuid.Must(uuid.NewV4())
}
