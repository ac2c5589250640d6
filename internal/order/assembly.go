package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/ecommerce-microservices/storefront/internal/catalog"
)

// ResolveUnitPrice returns the price a buy-now line is charged at: the
// product's price, replaced by an active discount price, replaced by the
// caller's price when that is lower still.
func ResolveUnitPrice(p *catalog.Product, requested decimal.Decimal) decimal.Decimal {
	price := p.Price
	if discounted, ok := p.ActiveDiscountPrice(); ok {
		price = discounted
	}
	if requested.LessThan(price) {
		price = requested
	}
	return price
}

func paymentMethodOrDefault(method string) string {
	if m := strings.TrimSpace(method); m != "" {
		return m
	}
	return DefaultPaymentMethod
}

// newOrder builds a PENDING order aggregate in memory. The payment amount is
// the order total.
func newOrder(userID uuid.UUID, total decimal.Decimal, items []OrderItem, method string, addr AddressInput, now time.Time) (*Order, error) {
	ids := make([]uuid.UUID, len(items)+3)
	for i := range ids {
		id, err := uuid.NewV4()
		if err != nil {
			return nil, fmt.Errorf("service: failed to generate ID: %w", err)
		}
		ids[i] = id
	}
	orderID := ids[0]

	o := &Order{
		ID:        orderID,
		UserID:    userID,
		Total:     total,
		Status:    StatusPending,
		Items:     make([]OrderItem, len(items)),
		CreatedAt: now,
		UpdatedAt: now,
	}

	for i, item := range items {
		item.ID = ids[i+3]
		item.OrderID = orderID
		o.Items[i] = item
	}

	o.Payment = &Payment{
		ID:          ids[1],
		OrderID:     orderID,
		Amount:      total,
		Method:      paymentMethodOrDefault(method),
		Status:      PaymentStatusPending,
		PaymentDate: now,
	}

	o.ShippingAddress = &ShippingAddress{
		ID:          ids[2],
		OrderID:     orderID,
		UserID:      userID,
		FullName:    addr.FullName,
		Phone:       addr.Phone,
		AddressLine: addr.AddressLine,
		City:        addr.City,
		District:    addr.District,
		Ward:        addr.Ward,
		Note:        addr.Note,
		IsDefault:   addr.IsDefault,
		CreatedAt:   now,
	}

	return o, nil
}
