package catalog

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

type Category struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
}

type Product struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	CategoryID  uuid.UUID       `json:"category_id" db:"category_id"`
	Name        string          `json:"name" db:"name"`
	Description string          `json:"description" db:"description"`
	Price       decimal.Decimal `json:"price" db:"price"`
	Quantity    int             `json:"quantity" db:"quantity"` // остаток на складе
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`

	// Заполняются из активной распродажи, в БД не хранятся.
	FlashSale       bool             `json:"is_flash_sale" db:"-"`
	DiscountPercent *decimal.Decimal `json:"discount_percent,omitempty" db:"-"`
	DiscountPrice   *decimal.Decimal `json:"discount_price,omitempty" db:"-"`
}

var hundred = decimal.NewFromInt(100)

// ApplyDiscount marks p as on flash sale and derives its discounted price,
// rounded to cents.
func ApplyDiscount(p *Product, percent decimal.Decimal) {
	price := p.Price.Mul(hundred.Sub(percent)).Div(hundred).Round(2)
	pct := percent

	p.FlashSale = true
	p.DiscountPercent = &pct
	p.DiscountPrice = &price
}

// ActiveDiscountPrice returns the discounted price when one is set and positive.
func (p *Product) ActiveDiscountPrice() (decimal.Decimal, bool) {
	if p.DiscountPrice == nil || !p.DiscountPrice.IsPositive() {
		return decimal.Zero, false
	}
	return *p.DiscountPrice, true
}

// ValidDiscountPercent reports whether percent lies in (0, 100).
func ValidDiscountPercent(percent decimal.Decimal) bool {
	return percent.IsPositive() && percent.LessThan(hundred)
}
