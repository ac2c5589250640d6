package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// FlashSales is the pricing collaborator: it knows which products currently
// sell at a discount.
type FlashSales interface {
	DiscountPercent(ctx context.Context, productID uuid.UUID) (decimal.Decimal, bool, error)
	Start(ctx context.Context, productID uuid.UUID, percent decimal.Decimal, ttl time.Duration) error
	Stop(ctx context.Context, productID uuid.UUID) error
}

const discountField = "discount_percent"

// RedisFlashSales keeps one hash per discounted product,
// flashsale:product:<id> -> {discount_percent}. The key TTL ends the sale.
type RedisFlashSales struct {
	client redis.Cmdable
}

func NewRedisFlashSales(client redis.Cmdable) *RedisFlashSales {
	return &RedisFlashSales{client: client}
}

func flashSaleKey(productID uuid.UUID) string {
	return "flashsale:product:" + productID.String()
}

func (s *RedisFlashSales) DiscountPercent(ctx context.Context, productID uuid.UUID) (decimal.Decimal, bool, error) {
	raw, err := s.client.HGet(ctx, flashSaleKey(productID), discountField).Result()
	if errors.Is(err, redis.Nil) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("flashsale: failed to read discount for product %s: %w", productID, err)
	}

	percent, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("flashsale: malformed discount %q for product %s: %w", raw, productID, err)
	}
	if !ValidDiscountPercent(percent) {
		return decimal.Zero, false, nil
	}

	return percent, true, nil
}

func (s *RedisFlashSales) Start(ctx context.Context, productID uuid.UUID, percent decimal.Decimal, ttl time.Duration) error {
	key := flashSaleKey(productID)

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, discountField, percent.String())
		if ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		} else {
			pipe.Persist(ctx, key)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("flashsale: failed to start sale for product %s: %w", productID, err)
	}

	return nil
}

func (s *RedisFlashSales) Stop(ctx context.Context, productID uuid.UUID) error {
	if err := s.client.Del(ctx, flashSaleKey(productID)).Err(); err != nil {
		return fmt.Errorf("flashsale: failed to stop sale for product %s: %w", productID, err)
	}
	return nil
}
