package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/ecommerce-microservices/storefront/internal/apperr"
	"github.com/vasiliy-maslov/ecommerce-microservices/storefront/internal/cart"
	"github.com/vasiliy-maslov/ecommerce-microservices/storefront/internal/catalog"
	"github.com/vasiliy-maslov/ecommerce-microservices/storefront/internal/db"
	"github.com/vasiliy-maslov/ecommerce-microservices/storefront/internal/idempotency"
	"github.com/vasiliy-maslov/ecommerce-microservices/storefront/internal/user"
)

type UserFinder interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*user.User, error)
	GetUserByEmail(ctx context.Context, email string) (*user.User, error)
}

// ProductFinder returns products with any flash-sale discount applied. Only
// buy-now looks at the discount; checkout prices items at the regular price.
type ProductFinder interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*catalog.Product, error)
}

// CartManager is the part of the cart service checkout needs. Both calls run
// inside the checkout transaction.
type CartManager interface {
	LockCart(ctx context.Context, id uuid.UUID) (*cart.Cart, error)
	Clear(ctx context.Context, cartID uuid.UUID) error
}

type Service interface {
	Checkout(ctx context.Context, in CheckoutInput) (*Order, error)
	BuyNow(ctx context.Context, in BuyNowInput) (*Order, error)
	GetOrderByID(ctx context.Context, id uuid.UUID) (*Order, error)
	GetOrdersByUserID(ctx context.Context, userID uuid.UUID) ([]Order, error)
	GetOrdersByUserEmail(ctx context.Context, email string) ([]Order, error)
	ListOrders(ctx context.Context) ([]Order, error)
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, newStatus Status) (*Order, error)
	DeleteOrder(ctx context.Context, orderID uuid.UUID) error
}

type Option func(*service)

// WithIdempotency enables Idempotency-Key handling for checkout and buy-now.
func WithIdempotency(store idempotency.Store) Option {
	return func(s *service) { s.idempotency = store }
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

type service struct {
	tx          db.TxManager
	orders      Repository
	queries     QueryRepository
	carts       CartManager
	users       UserFinder
	products    ProductFinder
	idempotency idempotency.Store
	now         func() time.Time
}

func NewService(tx db.TxManager, orders Repository, queries QueryRepository, carts CartManager, users UserFinder, products ProductFinder, opts ...Option) Service {
	s := &service{
		tx:       tx,
		orders:   orders,
		queries:  queries,
		carts:    carts,
		users:    users,
		products: products,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func fail(err error, op string) error {
	if apperr.Kind(err) != nil {
		return err
	}
	return fmt.Errorf("service: failed to %s: %w", op, err)
}

func (s *service) Checkout(ctx context.Context, in CheckoutInput) (*Order, error) {
	return s.placeOnce(ctx, in.UserID, in.IdempotencyKey, func() (*Order, error) {
		return s.checkout(ctx, in)
	})
}

func (s *service) checkout(ctx context.Context, in CheckoutInput) (*Order, error) {
	var placed *Order
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		c, err := s.carts.LockCart(ctx, in.CartID)
		if err != nil {
			return err
		}
		if c.IsEmpty() {
			return ErrEmptyCart
		}

		u, err := s.users.GetUserByID(ctx, in.UserID)
		if err != nil {
			return err
		}
		if c.UserID != u.ID {
			return ErrCartNotOwned
		}

		items := make([]OrderItem, 0, len(c.Items))
		for _, ci := range c.Items {
			p, err := s.products.GetProduct(ctx, ci.ProductID)
			if err != nil {
				return err
			}
			items = append(items, OrderItem{
				ProductID: ci.ProductID,
				Quantity:  ci.Quantity,
				Price:     p.Price,
			})
		}

		o, err := newOrder(u.ID, c.Total, items, in.PaymentMethod, in.Address, s.now())
		if err != nil {
			return err
		}

		if err := s.orders.InsertAggregate(ctx, o); err != nil {
			return err
		}
		if err := s.carts.Clear(ctx, c.ID); err != nil {
			return err
		}

		placed = o
		return nil
	})
	if err != nil {
		log.Warn().Err(err).Stringer("user_id", in.UserID).Stringer("cart_id", in.CartID).Msg("service: checkout failed")
		return nil, fail(err, "checkout")
	}

	log.Info().
		Stringer("order_id", placed.ID).
		Stringer("user_id", placed.UserID).
		Stringer("total", placed.Total).
		Int("items", len(placed.Items)).
		Msg("service: order placed from cart")
	return placed, nil
}

func (s *service) BuyNow(ctx context.Context, in BuyNowInput) (*Order, error) {
	return s.placeOnce(ctx, in.UserID, in.IdempotencyKey, func() (*Order, error) {
		return s.buyNow(ctx, in)
	})
}

func (s *service) buyNow(ctx context.Context, in BuyNowInput) (*Order, error) {
	var placed *Order
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		u, err := s.users.GetUserByID(ctx, in.UserID)
		if err != nil {
			return err
		}
		p, err := s.products.GetProduct(ctx, in.ProductID)
		if err != nil {
			return err
		}

		if in.Quantity <= 0 {
			return ErrInvalidQuantity
		}
		// Суммы хранятся с точностью до копеек.
		requested := in.Price.Round(2)
		if !requested.IsPositive() {
			return ErrInvalidPrice
		}

		price := ResolveUnitPrice(p, requested)
		total := price.Mul(decimal.NewFromInt(int64(in.Quantity)))

		o, err := newOrder(u.ID, total, []OrderItem{{
			ProductID: p.ID,
			Quantity:  in.Quantity,
			Price:     price,
		}}, in.PaymentMethod, in.Address, s.now())
		if err != nil {
			return err
		}

		if err := s.orders.InsertAggregate(ctx, o); err != nil {
			return err
		}

		placed = o
		return nil
	})
	if err != nil {
		log.Warn().Err(err).Stringer("user_id", in.UserID).Stringer("product_id", in.ProductID).Msg("service: buy now failed")
		return nil, fail(err, "buy now")
	}

	log.Info().
		Stringer("order_id", placed.ID).
		Stringer("user_id", placed.UserID).
		Stringer("total", placed.Total).
		Msg("service: order placed by buy now")
	return placed, nil
}

// placeOnce runs place at most once per (user, key). An empty key or a
// missing store disables deduplication.
func (s *service) placeOnce(ctx context.Context, userID uuid.UUID, key string, place func() (*Order, error)) (*Order, error) {
	if key == "" || s.idempotency == nil {
		return place()
	}
	scoped := userID.String() + ":" + key

	existing, reserved, err := s.idempotency.Reserve(ctx, scoped)
	if err != nil {
		log.Warn().Err(err).Str("idempotency_key", key).Msg("service: idempotency store unavailable, placing order without it")
		return place()
	}
	if !reserved {
		if existing == uuid.Nil {
			return nil, ErrRequestInProgress
		}
		log.Info().Str("idempotency_key", key).Stringer("order_id", existing).Msg("service: replaying order for repeated idempotency key")
		return s.GetOrderByID(ctx, existing)
	}

	o, err := place()
	if err != nil {
		if relErr := s.idempotency.Release(ctx, scoped); relErr != nil {
			log.Warn().Err(relErr).Str("idempotency_key", key).Msg("service: failed to release idempotency key")
		}
		return nil, err
	}

	if err := s.idempotency.Complete(ctx, scoped, o.ID); err != nil {
		log.Warn().Err(err).Str("idempotency_key", key).Stringer("order_id", o.ID).Msg("service: failed to store idempotency key")
	}
	return o, nil
}

func (s *service) GetOrderByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	o, err := s.queries.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			log.Warn().Stringer("order_id", id).Msg("service: order not found by id")
			return nil, ErrOrderNotFound
		}

		log.Error().Err(err).Stringer("order_id", id).Msg("service: failed to fetch order by id in repository")
		return nil, fmt.Errorf("service: failed to fetch order by id: %w", err)
	}

	return o, nil
}

func (s *service) GetOrdersByUserID(ctx context.Context, userID uuid.UUID) ([]Order, error) {
	if _, err := s.users.GetUserByID(ctx, userID); err != nil {
		return nil, fail(err, "find user")
	}

	orders, err := s.queries.ListByUserID(ctx, userID)
	if err != nil {
		log.Error().Err(err).Stringer("user_id", userID).Msg("service: failed to fetch user orders in repository")
		return nil, fmt.Errorf("service: failed to fetch user orders: %w", err)
	}

	return orders, nil
}

func (s *service) GetOrdersByUserEmail(ctx context.Context, email string) ([]Order, error) {
	u, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fail(err, "find user")
	}
	return s.GetOrdersByUserID(ctx, u.ID)
}

func (s *service) ListOrders(ctx context.Context) ([]Order, error) {
	orders, err := s.queries.ListAll(ctx)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to list orders in repository")
		return nil, fmt.Errorf("service: failed to list orders: %w", err)
	}
	return orders, nil
}

func (s *service) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, newStatus Status) (*Order, error) {
	if _, ok := allowedTransitions[newStatus]; !ok {
		return nil, ErrUnknownStatus
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		current, err := s.orders.GetStatusForUpdate(ctx, orderID)
		if err != nil {
			return err
		}

		if current == newStatus {
			log.Info().Stringer("order_id", orderID).Stringer("status", newStatus).Msg("service: order status is already the same, no update needed")
			return nil
		}

		if !CanTransition(current, newStatus) {
			log.Warn().
				Stringer("order_id", orderID).
				Stringer("current_status", current).
				Stringer("new_status", newStatus).
				Msg("service: invalid status transition attempt")
			return ErrInvalidStatusTransition
		}

		if err := s.orders.UpdateStatus(ctx, orderID, newStatus, s.now()); err != nil {
			return err
		}

		log.Info().Stringer("order_id", orderID).Stringer("old_status", current).Stringer("new_status", newStatus).Msg("service: order status updated successfully")
		return nil
	})
	if err != nil {
		return nil, fail(err, "update order status")
	}

	return s.GetOrderByID(ctx, orderID)
}

func (s *service) DeleteOrder(ctx context.Context, orderID uuid.UUID) error {
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.orders.GetStatusForUpdate(ctx, orderID); err != nil {
			return err
		}
		return s.orders.DeleteAggregate(ctx, orderID)
	})
	if err != nil {
		log.Warn().Err(err).Stringer("order_id", orderID).Msg("service: failed to delete order")
		return fail(err, "delete order")
	}

	log.Info().Stringer("order_id", orderID).Msg("service: order deleted")
	return nil
}
