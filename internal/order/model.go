package order

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

// Order is immutable once placed except for Status. Items, Payment and
// ShippingAddress are created with it and deleted with it.
type Order struct {
	ID              uuid.UUID        `json:"id" db:"id"`
	UserID          uuid.UUID        `json:"user_id" db:"user_id"`
	Total           decimal.Decimal  `json:"total" db:"total"`
	Status          Status           `json:"status" db:"status"`
	Items           []OrderItem      `json:"items" db:"-"`
	Payment         *Payment         `json:"payment" db:"-"`
	ShippingAddress *ShippingAddress `json:"shipping_address" db:"-"`
	CreatedAt       time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at" db:"updated_at"`
}

type OrderItem struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	OrderID   uuid.UUID       `json:"order_id" db:"order_id"`
	ProductID uuid.UUID       `json:"product_id" db:"product_id"`
	Quantity  int             `json:"quantity" db:"quantity"`
	Price     decimal.Decimal `json:"price" db:"price"` // цена за единицу на момент заказа
}

const (
	PaymentStatusPending = "PENDING"
	DefaultPaymentMethod = "COD"
)

type Payment struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	OrderID     uuid.UUID       `json:"order_id" db:"order_id"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	Method      string          `json:"method" db:"method"`
	Status      string          `json:"status" db:"status"`
	PaymentDate time.Time       `json:"payment_date" db:"payment_date"`
}

type ShippingAddress struct {
	ID          uuid.UUID `json:"id" db:"id"`
	OrderID     uuid.UUID `json:"order_id" db:"order_id"`
	UserID      uuid.UUID `json:"user_id" db:"user_id"`
	FullName    string    `json:"full_name" db:"full_name"`
	Phone       string    `json:"phone" db:"phone"`
	AddressLine string    `json:"address_line" db:"address_line"`
	City        string    `json:"city" db:"city"`
	District    string    `json:"district" db:"district"`
	Ward        string    `json:"ward" db:"ward"`
	Note        string    `json:"note" db:"note"`
	IsDefault   bool      `json:"is_default" db:"is_default"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// AddressInput is the caller-supplied part of a shipping address.
type AddressInput struct {
	FullName    string
	Phone       string
	AddressLine string
	City        string
	District    string
	Ward        string
	Note        string
	IsDefault   bool
}

type CheckoutInput struct {
	UserID         uuid.UUID
	CartID         uuid.UUID
	PaymentMethod  string
	Address        AddressInput
	IdempotencyKey string
}

type BuyNowInput struct {
	UserID         uuid.UUID
	ProductID      uuid.UUID
	Price          decimal.Decimal // цена, которую видел покупатель
	Quantity       int
	PaymentMethod  string
	Address        AddressInput
	IdempotencyKey string
}
