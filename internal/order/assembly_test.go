package order

import (
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vasiliy-maslov/ecommerce-microservices/storefront/internal/catalog"
)

func TestResolveUnitPrice(t *testing.T) {
	d := decimal.RequireFromString

	tests := []struct {
		name      string
		price     string
		discount  string // percent, empty for none
		requested string
		want      string
	}{
		{name: "list price", price: "10.00", requested: "10.00", want: "10.00"},
		{name: "caller cannot raise the price", price: "10.00", requested: "15.00", want: "10.00"},
		{name: "lower caller price", price: "10.00", requested: "9.99", want: "9.99"},
		{name: "active discount", price: "10.00", discount: "20", requested: "10.00", want: "8.00"},
		{name: "discount rounds to cents", price: "9.99", discount: "33", requested: "9.99", want: "6.69"},
		{name: "caller below discount", price: "10.00", discount: "20", requested: "7.50", want: "7.50"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &catalog.Product{Price: d(tt.price)}
			if tt.discount != "" {
				catalog.ApplyDiscount(p, d(tt.discount))
			}

			got := ResolveUnitPrice(p, d(tt.requested))
			assert.True(t, d(tt.want).Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestResolveUnitPrice_IgnoresNonPositiveDiscountPrice(t *testing.T) {
	zero := decimal.Zero
	p := &catalog.Product{Price: decimal.NewFromInt(10), FlashSale: true, DiscountPrice: &zero}

	got := ResolveUnitPrice(p, decimal.NewFromInt(10))
	assert.True(t, decimal.NewFromInt(10).Equal(got))
}

func TestNewOrder(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	userID := uuid.Must(uuid.NewV4())
	productID := uuid.Must(uuid.NewV4())
	total := decimal.RequireFromString("30.00")

	o, err := newOrder(userID, total, []OrderItem{
		{ProductID: productID, Quantity: 3, Price: decimal.RequireFromString("10.00")},
	}, "  ", AddressInput{FullName: "Bob", City: "Hanoi"}, now)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, o.ID)
	assert.Equal(t, userID, o.UserID)
	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, now, o.CreatedAt)
	assert.Equal(t, now, o.UpdatedAt)

	require.Len(t, o.Items, 1)
	assert.Equal(t, o.ID, o.Items[0].OrderID)
	assert.NotEqual(t, uuid.Nil, o.Items[0].ID)

	require.NotNil(t, o.Payment)
	assert.Equal(t, o.ID, o.Payment.OrderID)
	assert.True(t, total.Equal(o.Payment.Amount))
	assert.Equal(t, DefaultPaymentMethod, o.Payment.Method, "blank method falls back to the default")
	assert.Equal(t, PaymentStatusPending, o.Payment.Status)
	assert.Equal(t, now, o.Payment.PaymentDate)

	require.NotNil(t, o.ShippingAddress)
	assert.Equal(t, o.ID, o.ShippingAddress.OrderID)
	assert.Equal(t, userID, o.ShippingAddress.UserID)
	assert.Equal(t, "Bob", o.ShippingAddress.FullName)
	assert.Equal(t, "Hanoi", o.ShippingAddress.City)

	ids := map[uuid.UUID]bool{o.ID: true, o.Items[0].ID: true, o.Payment.ID: true, o.ShippingAddress.ID: true}
	assert.Len(t, ids, 4, "every record gets its own id")
}
