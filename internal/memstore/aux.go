package memstore

import (
	"context"
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/ecommerce-microservices/storefront/internal/catalog"
	"github.com/vasiliy-maslov/ecommerce-microservices/storefront/internal/idempotency"
)

type FlashSales struct{ s *Store }

var _ catalog.FlashSales = (*FlashSales)(nil)

func (f *FlashSales) DiscountPercent(_ context.Context, productID uuid.UUID) (decimal.Decimal, bool, error) {
	f.s.auxMu.Lock()
	defer f.s.auxMu.Unlock()

	sale, ok := f.s.flashSales[productID]
	if !ok {
		return decimal.Zero, false, nil
	}
	if !sale.expiresAt.IsZero() && !f.s.now().Before(sale.expiresAt) {
		delete(f.s.flashSales, productID)
		return decimal.Zero, false, nil
	}
	return sale.percent, true, nil
}

func (f *FlashSales) Start(_ context.Context, productID uuid.UUID, percent decimal.Decimal, ttl time.Duration) error {
	f.s.auxMu.Lock()
	defer f.s.auxMu.Unlock()

	sale := flashSale{percent: percent}
	if ttl > 0 {
		sale.expiresAt = f.s.now().Add(ttl)
	}
	f.s.flashSales[productID] = sale
	return nil
}

func (f *FlashSales) Stop(_ context.Context, productID uuid.UUID) error {
	f.s.auxMu.Lock()
	defer f.s.auxMu.Unlock()
	delete(f.s.flashSales, productID)
	return nil
}

// Idempotency never expires keys.
type Idempotency struct{ s *Store }

var _ idempotency.Store = (*Idempotency)(nil)

func (i *Idempotency) Reserve(_ context.Context, key string) (uuid.UUID, bool, error) {
	i.s.auxMu.Lock()
	defer i.s.auxMu.Unlock()

	if orderID, ok := i.s.idempotency[key]; ok {
		return orderID, false, nil
	}
	i.s.idempotency[key] = uuid.Nil
	return uuid.Nil, true, nil
}

func (i *Idempotency) Complete(_ context.Context, key string, orderID uuid.UUID) error {
	i.s.auxMu.Lock()
	defer i.s.auxMu.Unlock()
	i.s.idempotency[key] = orderID
	return nil
}

func (i *Idempotency) Release(_ context.Context, key string) error {
	i.s.auxMu.Lock()
	defer i.s.auxMu.Unlock()
	delete(i.s.idempotency, key)
	return nil
}
