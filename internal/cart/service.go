package cart

import (
	"context"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/ecommerce-microservices/storefront/internal/apperr"
	"github.com/vasiliy-maslov/ecommerce-microservices/storefront/internal/catalog"
	"github.com/vasiliy-maslov/ecommerce-microservices/storefront/internal/db"
	"github.com/vasiliy-maslov/ecommerce-microservices/storefront/internal/user"
	"golang.org/x/sync/singleflight"
)

type UserFinder interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*user.User, error)
	GetUserByEmail(ctx context.Context, email string) (*user.User, error)
}

type ProductFinder interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*catalog.Product, error)
}

type Service interface {
	// FindOrCreate returns the user's only cart, creating an empty one on first use.
	// Once started, the lookup runs to completion even if ctx is cancelled.
	FindOrCreate(ctx context.Context, userID uuid.UUID) (*Cart, error)
	FindOrCreateByEmail(ctx context.Context, email string) (*Cart, error)
	GetCart(ctx context.Context, id uuid.UUID) (*Cart, error)
	ListCarts(ctx context.Context) ([]Cart, error)
	DeleteCart(ctx context.Context, id uuid.UUID) error
	// ReassignCart hands the cart to another user and recomputes its total.
	ReassignCart(ctx context.Context, id, userID uuid.UUID) (*Cart, error)
	// LockCart loads the cart with its items and locks it until the caller's
	// transaction ends. It must run inside db.TxManager.WithinTx.
	LockCart(ctx context.Context, id uuid.UUID) (*Cart, error)

	AddItem(ctx context.Context, cartID, productID uuid.UUID, quantity int) (*CartItem, error)
	AddItemForUser(ctx context.Context, userID, productID uuid.UUID, quantity int) (*CartItem, error)
	UpdateItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int) (*CartItem, error)
	RemoveItem(ctx context.Context, itemID uuid.UUID) error
	GetItem(ctx context.Context, itemID uuid.UUID) (*CartItem, error)
	ListItems(ctx context.Context) ([]CartItem, error)

	Clear(ctx context.Context, cartID uuid.UUID) error
	RecomputeTotal(ctx context.Context, cartID uuid.UUID) (*Cart, error)
}

type service struct {
	repo     Repository
	tx       db.TxManager
	users    UserFinder
	products ProductFinder

	creating singleflight.Group
}

func NewService(repo Repository, tx db.TxManager, users UserFinder, products ProductFinder) Service {
	return &service{
		repo:     repo,
		tx:       tx,
		users:    users,
		products: products,
	}
}

// fail passes domain errors through and wraps everything else.
func fail(err error, op string) error {
	if apperr.Kind(err) != nil {
		return err
	}
	return fmt.Errorf("service: failed to %s: %w", op, err)
}

func (s *service) FindOrCreate(ctx context.Context, userID uuid.UUID) (*Cart, error) {
	// Concurrent callers share this call, so one caller's cancellation must
	// not fail the others.
	detached := context.WithoutCancel(ctx)
	v, err, shared := s.creating.Do(userID.String(), func() (any, error) {
		return s.findOrCreate(detached, userID)
	})
	if err != nil {
		return nil, err
	}

	c := *v.(*Cart)
	if shared {
		c.Items = append([]CartItem(nil), c.Items...)
	}
	return &c, nil
}

func (s *service) findOrCreate(ctx context.Context, userID uuid.UUID) (*Cart, error) {
	if _, err := s.users.GetUserByID(ctx, userID); err != nil {
		return nil, fail(err, "find user")
	}

	c, err := s.repo.EnsureCart(ctx, userID)
	if err != nil {
		log.Error().Err(err).Stringer("user_id", userID).Msg("service: failed to ensure cart in repository")
		return nil, fail(err, "ensure cart")
	}

	if c.Items, err = s.repo.ListItems(ctx, c.ID); err != nil {
		return nil, fail(err, "list cart items")
	}

	return c, nil
}

func (s *service) FindOrCreateByEmail(ctx context.Context, email string) (*Cart, error) {
	u, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fail(err, "find user")
	}
	return s.FindOrCreate(ctx, u.ID)
}

func (s *service) GetCart(ctx context.Context, id uuid.UUID) (*Cart, error) {
	c, err := s.repo.GetCart(ctx, id)
	if err != nil {
		return nil, fail(err, "get cart")
	}
	if c.Items, err = s.repo.ListItems(ctx, id); err != nil {
		return nil, fail(err, "list cart items")
	}
	return c, nil
}

func (s *service) ListCarts(ctx context.Context) ([]Cart, error) {
	carts, err := s.repo.ListCarts(ctx)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to list carts in repository")
		return nil, fail(err, "list carts")
	}

	items, err := s.repo.ListAllItems(ctx)
	if err != nil {
		return nil, fail(err, "list cart items")
	}

	byCart := make(map[uuid.UUID][]CartItem, len(carts))
	for _, item := range items {
		byCart[item.CartID] = append(byCart[item.CartID], item)
	}
	for i := range carts {
		carts[i].Items = byCart[carts[i].ID]
		if carts[i].Items == nil {
			carts[i].Items = []CartItem{}
		}
	}

	return carts, nil
}

func (s *service) DeleteCart(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteCart(ctx, id); err != nil {
		return fail(err, "delete cart")
	}
	log.Info().Stringer("cart_id", id).Msg("service: cart deleted")
	return nil
}

func (s *service) ReassignCart(ctx context.Context, id, userID uuid.UUID) (*Cart, error) {
	var c *Cart
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		locked, err := s.repo.LockCart(ctx, id)
		if err != nil {
			return err
		}
		if _, err := s.users.GetUserByID(ctx, userID); err != nil {
			return err
		}
		if locked.UserID != userID {
			if err := s.repo.SetOwner(ctx, id, userID); err != nil {
				return err
			}
		}
		if _, err := s.repo.RecomputeTotal(ctx, id); err != nil {
			return err
		}

		if c, err = s.repo.GetCart(ctx, id); err != nil {
			return err
		}
		c.Items, err = s.repo.ListItems(ctx, id)
		return err
	})
	if err != nil {
		log.Warn().Err(err).Stringer("cart_id", id).Stringer("user_id", userID).Msg("service: failed to reassign cart")
		return nil, fail(err, "reassign cart")
	}

	log.Info().Stringer("cart_id", id).Stringer("user_id", userID).Msg("service: cart reassigned")
	return c, nil
}

func (s *service) LockCart(ctx context.Context, id uuid.UUID) (*Cart, error) {
	c, err := s.repo.LockCart(ctx, id)
	if err != nil {
		return nil, fail(err, "lock cart")
	}
	if c.Items, err = s.repo.ListItems(ctx, id); err != nil {
		return nil, fail(err, "list cart items")
	}
	return c, nil
}

func (s *service) AddItem(ctx context.Context, cartID, productID uuid.UUID, quantity int) (*CartItem, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	var item *CartItem
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.repo.LockCart(ctx, cartID); err != nil {
			return err
		}

		product, err := s.products.GetProduct(ctx, productID)
		if err != nil {
			return err
		}

		item, err = s.repo.UpsertItem(ctx, cartID, productID, quantity, product.Price)
		if err != nil {
			return err
		}

		_, err = s.repo.RecomputeTotal(ctx, cartID)
		return err
	})
	if err != nil {
		log.Warn().Err(err).Stringer("cart_id", cartID).Stringer("product_id", productID).Msg("service: failed to add item to cart")
		return nil, fail(err, "add item")
	}

	log.Info().Stringer("cart_id", cartID).Stringer("product_id", productID).Int("quantity", item.Quantity).Msg("service: item added to cart")
	return item, nil
}

func (s *service) AddItemForUser(ctx context.Context, userID, productID uuid.UUID, quantity int) (*CartItem, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	c, err := s.FindOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.AddItem(ctx, c.ID, productID, quantity)
}

func (s *service) UpdateItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int) (*CartItem, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	var updated *CartItem
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		item, err := s.repo.GetItem(ctx, itemID)
		if err != nil {
			return err
		}
		if _, err := s.repo.LockCart(ctx, item.CartID); err != nil {
			return err
		}

		product, err := s.products.GetProduct(ctx, item.ProductID)
		if err != nil {
			return err
		}

		subtotal := product.Price.Mul(decimal.NewFromInt(int64(quantity)))
		if updated, err = s.repo.UpdateItem(ctx, itemID, quantity, subtotal); err != nil {
			return err
		}

		_, err = s.repo.RecomputeTotal(ctx, item.CartID)
		return err
	})
	if err != nil {
		log.Warn().Err(err).Stringer("item_id", itemID).Msg("service: failed to update cart item quantity")
		return nil, fail(err, "update cart item")
	}

	return updated, nil
}

func (s *service) RemoveItem(ctx context.Context, itemID uuid.UUID) error {
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		item, err := s.repo.GetItem(ctx, itemID)
		if err != nil {
			return err
		}
		if _, err := s.repo.LockCart(ctx, item.CartID); err != nil {
			return err
		}
		if err := s.repo.DeleteItem(ctx, itemID); err != nil {
			return err
		}

		_, err = s.repo.RecomputeTotal(ctx, item.CartID)
		return err
	})
	if err != nil {
		log.Warn().Err(err).Stringer("item_id", itemID).Msg("service: failed to remove cart item")
		return fail(err, "remove cart item")
	}

	return nil
}

func (s *service) GetItem(ctx context.Context, itemID uuid.UUID) (*CartItem, error) {
	item, err := s.repo.GetItem(ctx, itemID)
	if err != nil {
		return nil, fail(err, "get cart item")
	}
	return item, nil
}

func (s *service) ListItems(ctx context.Context) ([]CartItem, error) {
	items, err := s.repo.ListAllItems(ctx)
	if err != nil {
		return nil, fail(err, "list cart items")
	}
	return items, nil
}

func (s *service) Clear(ctx context.Context, cartID uuid.UUID) error {
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.repo.LockCart(ctx, cartID); err != nil {
			return err
		}
		if err := s.repo.DeleteItems(ctx, cartID); err != nil {
			return err
		}

		_, err := s.repo.RecomputeTotal(ctx, cartID)
		return err
	})
	if err != nil {
		log.Warn().Err(err).Stringer("cart_id", cartID).Msg("service: failed to clear cart")
		return fail(err, "clear cart")
	}

	log.Info().Stringer("cart_id", cartID).Msg("service: cart cleared")
	return nil
}

func (s *service) RecomputeTotal(ctx context.Context, cartID uuid.UUID) (*Cart, error) {
	var c *Cart
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		locked, err := s.LockCart(ctx, cartID)
		if err != nil {
			return err
		}
		if locked.Total, err = s.repo.RecomputeTotal(ctx, cartID); err != nil {
			return err
		}
		c = locked
		return nil
	})
	if err != nil {
		return nil, fail(err, "recompute cart total")
	}
	return c, nil
}
