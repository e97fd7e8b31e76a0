package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const orderColumns = `id, customer_name, customer_phone, customer_address, is_pickup,
	payment_method, change_for, status, delivery_fee, delivery_distance_km,
	delivery_lat, delivery_lng, delivery_note, manual_address, total,
	is_blacklisted, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner) (Order, error) {
	var (
		o                               Order
		changeFor, fee, distance, total pgtype.Numeric
	)
	err := row.Scan(
		&o.ID,
		&o.CustomerName,
		&o.CustomerPhone,
		&o.CustomerAddress,
		&o.IsPickup,
		&o.PaymentMethod,
		&changeFor,
		&o.Status,
		&fee,
		&distance,
		&o.DeliveryLat,
		&o.DeliveryLng,
		&o.DeliveryNote,
		&o.ManualAddress,
		&total,
		&o.IsBlacklisted,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return Order{}, err
	}
	o.ChangeFor = numericToNullDecimal(changeFor)
	o.DeliveryFee = numericToNullDecimal(fee)
	o.DeliveryDistanceKm = numericToNullDecimal(distance)
	o.Total = numericToDecimal(total)
	return o, nil
}

const createOrder = `
INSERT INTO orders (
	customer_name, customer_phone, customer_address, is_pickup, payment_method,
	change_for, delivery_fee, delivery_distance_km, delivery_lat, delivery_lng,
	delivery_note, manual_address, total, is_blacklisted
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
RETURNING ` + orderColumns

type CreateOrderParams struct {
	CustomerName       string
	CustomerPhone      string
	CustomerAddress    *string
	IsPickup           bool
	PaymentMethod      string
	ChangeFor          decimal.NullDecimal
	DeliveryFee        decimal.NullDecimal
	DeliveryDistanceKm decimal.NullDecimal
	DeliveryLat        *float64
	DeliveryLng        *float64
	DeliveryNote       *string
	ManualAddress      bool
	Total              decimal.Decimal
	IsBlacklisted      bool
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, createOrder,
		arg.CustomerName,
		arg.CustomerPhone,
		arg.CustomerAddress,
		arg.IsPickup,
		arg.PaymentMethod,
		nullDecimalToNumeric(arg.ChangeFor),
		nullDecimalToNumeric(arg.DeliveryFee),
		nullDecimalToNumeric(arg.DeliveryDistanceKm),
		arg.DeliveryLat,
		arg.DeliveryLng,
		arg.DeliveryNote,
		arg.ManualAddress,
		decimalToNumeric(arg.Total),
		arg.IsBlacklisted,
	)
	return scanOrder(row)
}

const getOrder = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

func (q *Queries) GetOrder(ctx context.Context, id int64) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrder, id))
}

// GetOrderForUpdate locks the order row until the surrounding transaction
// ends, serializing item mutations and total recomputation per order.
func (q *Queries) GetOrderForUpdate(ctx context.Context, id int64) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrder+` FOR UPDATE`, id))
}

const listOrders = `SELECT ` + orderColumns + ` FROM orders
WHERE ($1::boolean OR status <> 'archived')
ORDER BY id`

type ListOrdersParams struct {
	IncludeArchived bool
}

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrders, arg.IncludeArchived)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, o)
	}
	return items, rows.Err()
}

const listStaleOrderIDs = `SELECT id FROM orders
WHERE status = $1 AND updated_at < $2
ORDER BY id`

type ListStaleOrderIDsParams struct {
	Status string
	Before time.Time
}

func (q *Queries) ListStaleOrderIDs(ctx context.Context, arg ListStaleOrderIDsParams) ([]int64, error) {
	rows, err := q.db.Query(ctx, listStaleOrderIDs, arg.Status, arg.Before)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

const updateOrderStatus = `UPDATE orders SET status = $2, updated_at = now()
WHERE id = $1
RETURNING ` + orderColumns

type UpdateOrderStatusParams struct {
	ID     int64
	Status string
}

func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, updateOrderStatus, arg.ID, arg.Status))
}

const updateOrderTotal = `UPDATE orders SET total = $2, updated_at = now()
WHERE id = $1
RETURNING ` + orderColumns

type UpdateOrderTotalParams struct {
	ID    int64
	Total decimal.Decimal
}

func (q *Queries) UpdateOrderTotal(ctx context.Context, arg UpdateOrderTotalParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, updateOrderTotal, arg.ID, decimalToNumeric(arg.Total)))
}

const updateOrderAddress = `UPDATE orders SET customer_address = $2, manual_address = $3, is_pickup = false, updated_at = now()
WHERE id = $1
RETURNING ` + orderColumns

type UpdateOrderAddressParams struct {
	ID            int64
	Address       *string
	ManualAddress bool
}

func (q *Queries) UpdateOrderAddress(ctx context.Context, arg UpdateOrderAddressParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, updateOrderAddress, arg.ID, arg.Address, arg.ManualAddress))
}

const updateOrderDelivery = `UPDATE orders SET
	delivery_fee = $2, delivery_distance_km = $3, delivery_lat = $4, delivery_lng = $5,
	updated_at = now()
WHERE id = $1
RETURNING ` + orderColumns

type UpdateOrderDeliveryParams struct {
	ID          int64
	Fee         decimal.NullDecimal
	DistanceKm  decimal.NullDecimal
	DeliveryLat *float64
	DeliveryLng *float64
}

func (q *Queries) UpdateOrderDelivery(ctx context.Context, arg UpdateOrderDeliveryParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, updateOrderDelivery,
		arg.ID,
		nullDecimalToNumeric(arg.Fee),
		nullDecimalToNumeric(arg.DistanceKm),
		arg.DeliveryLat,
		arg.DeliveryLng,
	))
}

const deleteOrder = `DELETE FROM orders WHERE id = $1`

func (q *Queries) DeleteOrder(ctx context.Context, id int64) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteOrder, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
