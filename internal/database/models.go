package database

import (
	"time"

	"github.com/shopspring/decimal"
)

type Order struct {
	ID                 int64
	CustomerName       string
	CustomerPhone      string
	CustomerAddress    *string
	IsPickup           bool
	PaymentMethod      string
	ChangeFor          decimal.NullDecimal
	Status             string
	DeliveryFee        decimal.NullDecimal
	DeliveryDistanceKm decimal.NullDecimal
	DeliveryLat        *float64
	DeliveryLng        *float64
	DeliveryNote       *string
	ManualAddress      bool
	Total              decimal.Decimal
	IsBlacklisted      bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// OrderItem keeps a snapshot of the product name and price taken when the
// item was added, so catalog edits never rewrite historical orders.
type OrderItem struct {
	ID          int64
	OrderID     int64
	ProductID   int64
	ProductName string
	Quantity    int32
	UnitPrice   decimal.Decimal
	Extras      Extras
	CreatedAt   time.Time
}

type Product struct {
	ID        int64
	Name      string
	Price     decimal.Decimal
	Active    bool
	UpdatedAt time.Time
}
