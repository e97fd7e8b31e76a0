package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const orderItemColumns = `id, order_id, product_id, product_name, quantity, unit_price, extras, created_at`

func scanOrderItem(row rowScanner) (OrderItem, error) {
	var (
		i         OrderItem
		unitPrice pgtype.Numeric
		extras    []byte
	)
	if err := row.Scan(
		&i.ID,
		&i.OrderID,
		&i.ProductID,
		&i.ProductName,
		&i.Quantity,
		&unitPrice,
		&extras,
		&i.CreatedAt,
	); err != nil {
		return OrderItem{}, err
	}
	i.UnitPrice = numericToDecimal(unitPrice)
	i.Extras = ParseExtras(extras)
	return i, nil
}

func collectOrderItems(ctx context.Context, db DBTX, sql string, args ...interface{}) ([]OrderItem, error) {
	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []OrderItem
	for rows.Next() {
		i, err := scanOrderItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const createOrderItem = `
INSERT INTO order_items (order_id, product_id, product_name, quantity, unit_price, extras)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + orderItemColumns

type CreateOrderItemParams struct {
	OrderID     int64
	ProductID   int64
	ProductName string
	Quantity    int32
	UnitPrice   decimal.Decimal
	Extras      Extras
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	row := q.db.QueryRow(ctx, createOrderItem,
		arg.OrderID,
		arg.ProductID,
		arg.ProductName,
		arg.Quantity,
		decimalToNumeric(arg.UnitPrice),
		arg.Extras.JSON(),
	)
	return scanOrderItem(row)
}

const getOrderItem = `SELECT ` + orderItemColumns + ` FROM order_items WHERE id = $1 AND order_id = $2`

type GetOrderItemParams struct {
	ID      int64
	OrderID int64
}

func (q *Queries) GetOrderItem(ctx context.Context, arg GetOrderItemParams) (OrderItem, error) {
	return scanOrderItem(q.db.QueryRow(ctx, getOrderItem, arg.ID, arg.OrderID))
}

const listOrderItemsByOrder = `SELECT ` + orderItemColumns + ` FROM order_items WHERE order_id = $1 ORDER BY id`

func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID int64) ([]OrderItem, error) {
	return collectOrderItems(ctx, q.db, listOrderItemsByOrder, orderID)
}

const listOrderItemsByOrders = `SELECT ` + orderItemColumns + ` FROM order_items WHERE order_id = ANY($1) ORDER BY order_id, id`

func (q *Queries) ListOrderItemsByOrders(ctx context.Context, orderIDs []int64) ([]OrderItem, error) {
	return collectOrderItems(ctx, q.db, listOrderItemsByOrders, orderIDs)
}

const updateOrderItem = `UPDATE order_items SET quantity = $3, unit_price = $4
WHERE id = $1 AND order_id = $2
RETURNING ` + orderItemColumns

type UpdateOrderItemParams struct {
	ID        int64
	OrderID   int64
	Quantity  int32
	UnitPrice decimal.Decimal
}

func (q *Queries) UpdateOrderItem(ctx context.Context, arg UpdateOrderItemParams) (OrderItem, error) {
	return scanOrderItem(q.db.QueryRow(ctx, updateOrderItem,
		arg.ID, arg.OrderID, arg.Quantity, decimalToNumeric(arg.UnitPrice)))
}

const deleteOrderItem = `DELETE FROM order_items WHERE id = $1 AND order_id = $2`

type DeleteOrderItemParams struct {
	ID      int64
	OrderID int64
}

func (q *Queries) DeleteOrderItem(ctx context.Context, arg DeleteOrderItemParams) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteOrderItem, arg.ID, arg.OrderID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const deleteOrderItemsByOrder = `DELETE FROM order_items WHERE order_id = $1`

func (q *Queries) DeleteOrderItemsByOrder(ctx context.Context, orderID int64) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteOrderItemsByOrder, orderID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const countOrderItems = `SELECT count(*) FROM order_items WHERE order_id = $1`

func (q *Queries) CountOrderItems(ctx context.Context, orderID int64) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countOrderItems, orderID).Scan(&n)
	return n, err
}
