package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/ecommerce-microservices/storefront/internal/apperr"
)

type Service interface {
	// GetProduct returns the product with any active flash-sale discount applied.
	GetProduct(ctx context.Context, id uuid.UUID) (*Product, error)
	GetCategory(ctx context.Context, id uuid.UUID) (*Category, error)
	ReduceStock(ctx context.Context, id uuid.UUID, quantity int) (*Product, error)
	StartFlashSale(ctx context.Context, id uuid.UUID, percent decimal.Decimal, ttl time.Duration) (*Product, error)
	StopFlashSale(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo       Repository
	flashSales FlashSales
}

// NewService wires the catalog. flashSales may be nil, in which case no
// product is ever discounted.
func NewService(repo Repository, flashSales FlashSales) Service {
	return &service{repo: repo, flashSales: flashSales}
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*Product, error) {
	p, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			log.Warn().Stringer("product_id", id).Msg("service: product not found by id")
			return nil, ErrProductNotFound
		}

		log.Error().Err(err).Stringer("product_id", id).Msg("service: failed to get product in repository")
		return nil, fmt.Errorf("service: failed to get product: %w", err)
	}

	s.applyFlashSale(ctx, p)
	return p, nil
}

// applyFlashSale degrades to the regular price when the pricing store is down.
func (s *service) applyFlashSale(ctx context.Context, p *Product) {
	if s.flashSales == nil {
		return
	}

	percent, ok, err := s.flashSales.DiscountPercent(ctx, p.ID)
	if err != nil {
		log.Warn().Err(err).Stringer("product_id", p.ID).Msg("service: flash sale lookup failed, using regular price")
		return
	}
	if ok {
		ApplyDiscount(p, percent)
	}
}

func (s *service) GetCategory(ctx context.Context, id uuid.UUID) (*Category, error) {
	c, err := s.repo.GetCategory(ctx, id)
	if err != nil {
		if errors.Is(err, ErrCategoryNotFound) {
			return nil, ErrCategoryNotFound
		}

		log.Error().Err(err).Stringer("category_id", id).Msg("service: failed to get category in repository")
		return nil, fmt.Errorf("service: failed to get category: %w", err)
	}

	return c, nil
}

func (s *service) ReduceStock(ctx context.Context, id uuid.UUID, quantity int) (*Product, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	p, err := s.repo.ReduceStock(ctx, id, quantity)
	if err != nil {
		if apperr.Kind(err) != nil {
			log.Warn().Err(err).Stringer("product_id", id).Int("quantity", quantity).Msg("service: stock reduction rejected")
			return nil, err
		}

		log.Error().Err(err).Stringer("product_id", id).Msg("service: failed to reduce stock in repository")
		return nil, fmt.Errorf("service: failed to reduce stock: %w", err)
	}

	log.Info().Stringer("product_id", id).Int("quantity", quantity).Int("remaining", p.Quantity).Msg("service: stock reduced")
	s.applyFlashSale(ctx, p)
	return p, nil
}

func (s *service) StartFlashSale(ctx context.Context, id uuid.UUID, percent decimal.Decimal, ttl time.Duration) (*Product, error) {
	if s.flashSales == nil {
		return nil, ErrFlashSalesDisabled
	}
	if !ValidDiscountPercent(percent) {
		return nil, ErrInvalidDiscount
	}

	p, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.flashSales.Start(ctx, id, percent, ttl); err != nil {
		log.Error().Err(err).Stringer("product_id", id).Msg("service: failed to start flash sale")
		return nil, fmt.Errorf("service: failed to start flash sale: %w", err)
	}

	ApplyDiscount(p, percent)
	log.Info().Stringer("product_id", id).Stringer("percent", percent).Dur("ttl", ttl).Msg("service: flash sale started")
	return p, nil
}

func (s *service) StopFlashSale(ctx context.Context, id uuid.UUID) error {
	if s.flashSales == nil {
		return ErrFlashSalesDisabled
	}

	if _, err := s.repo.GetProduct(ctx, id); err != nil {
		return err
	}

	if err := s.flashSales.Stop(ctx, id); err != nil {
		log.Error().Err(err).Stringer("product_id", id).Msg("service: failed to stop flash sale")
		return fmt.Errorf("service: failed to stop flash sale: %w", err)
	}

	return nil
}
