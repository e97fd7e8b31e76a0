package service

import (
	"encoding/json"
	"time"

	"github.com/foodboard/api/internal/database"
	"github.com/foodboard/api/internal/pricing"
	"github.com/shopspring/decimal"
)

// OrderDetail is the full order snapshot: returned by reads, and broadcast
// after every committed mutation.
type OrderDetail struct {
	Order database.Order
	Items []database.OrderItem
}

// Wire format shared by the HTTP API and the change stream.
// Money is a fixed two-decimal string; absent amounts are null.

type orderJSON struct {
	ID                 int64           `json:"id"`
	CustomerName       string          `json:"customer_name"`
	CustomerPhone      string          `json:"customer_phone"`
	CustomerAddress    *string         `json:"customer_address"`
	IsPickup           bool            `json:"is_pickup"`
	PaymentMethod      string          `json:"payment_method"`
	ChangeFor          *string         `json:"change_for"`
	Status             string          `json:"status"`
	DeliveryFee        *string         `json:"delivery_fee"`
	DeliveryDistanceKm *string         `json:"delivery_distance_km"`
	DeliveryLat        *float64        `json:"delivery_lat"`
	DeliveryLng        *float64        `json:"delivery_lng"`
	DeliveryNote       *string         `json:"delivery_note"`
	ManualAddress      bool            `json:"manual_address"`
	Total              string          `json:"total"`
	IsBlacklisted      bool            `json:"is_blacklisted"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
	Items              []orderItemJSON `json:"items"`
}

type orderItemJSON struct {
	ID          int64      `json:"id"`
	OrderID     int64      `json:"order_id"`
	ProductID   int64      `json:"product_id"`
	ProductName string     `json:"product_name"`
	Quantity    int32      `json:"quantity"`
	UnitPrice   string     `json:"unit_price"`
	LineTotal   string     `json:"line_total"`
	Extras      extrasJSON `json:"extras"`
}

type extrasJSON struct {
	AddOns           []addOnJSON `json:"add_ons"`
	BuffetSelections []string    `json:"buffet_selections"`
	Note             string      `json:"note"`
}

type addOnJSON struct {
	Name  string  `json:"name"`
	Price *string `json:"price"`
}

func money(d decimal.Decimal) string { return d.StringFixed(2) }

func nullMoney(d decimal.NullDecimal) *string {
	if !d.Valid {
		return nil
	}
	s := d.Decimal.StringFixed(2)
	return &s
}

func (d OrderDetail) MarshalJSON() ([]byte, error) {
	o := d.Order
	out := orderJSON{
		ID:                 o.ID,
		CustomerName:       o.CustomerName,
		CustomerPhone:      o.CustomerPhone,
		CustomerAddress:    o.CustomerAddress,
		IsPickup:           o.IsPickup,
		PaymentMethod:      o.PaymentMethod,
		ChangeFor:          nullMoney(o.ChangeFor),
		Status:             o.Status,
		DeliveryFee:        nullMoney(o.DeliveryFee),
		DeliveryDistanceKm: nullMoney(o.DeliveryDistanceKm),
		DeliveryLat:        o.DeliveryLat,
		DeliveryLng:        o.DeliveryLng,
		DeliveryNote:       o.DeliveryNote,
		ManualAddress:      o.ManualAddress,
		Total:              money(o.Total),
		IsBlacklisted:      o.IsBlacklisted,
		CreatedAt:          o.CreatedAt,
		UpdatedAt:          o.UpdatedAt,
		Items:              make([]orderItemJSON, 0, len(d.Items)),
	}
	for _, it := range d.Items {
		ex := extrasJSON{
			AddOns:           make([]addOnJSON, 0, len(it.Extras.AddOns)),
			BuffetSelections: it.Extras.BuffetSelections,
			Note:             it.Extras.Note,
		}
		if ex.BuffetSelections == nil {
			ex.BuffetSelections = []string{}
		}
		for _, a := range it.Extras.AddOns {
			ex.AddOns = append(ex.AddOns, addOnJSON{Name: a.Name, Price: nullMoney(a.Price)})
		}
		out.Items = append(out.Items, orderItemJSON{
			ID:          it.ID,
			OrderID:     it.OrderID,
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   money(it.UnitPrice),
			LineTotal:   money(pricing.LineTotal(it)),
			Extras:      ex,
		})
	}
	return json.Marshal(out)
}

// DeletedOrder is the payload of order.deleted events.
type DeletedOrder struct {
	ID int64 `json:"id"`
}
