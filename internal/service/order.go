package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/foodboard/api/internal/database"
	"github.com/foodboard/api/internal/delivery"
	"github.com/foodboard/api/internal/enum"
	"github.com/foodboard/api/internal/notify"
	"github.com/foodboard/api/internal/pricing"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// TxBeginner starts a new database transaction. Satisfied by *pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// OrderStore defines the DB methods the lifecycle service needs.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	GetOrder(ctx context.Context, id int64) (database.Order, error)
	GetOrderForUpdate(ctx context.Context, id int64) (database.Order, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	ListStaleOrderIDs(ctx context.Context, arg database.ListStaleOrderIDsParams) ([]int64, error)
	ListOrderItemsByOrder(ctx context.Context, orderID int64) ([]database.OrderItem, error)
	ListOrderItemsByOrders(ctx context.Context, orderIDs []int64) ([]database.OrderItem, error)
	GetOrderItem(ctx context.Context, arg database.GetOrderItemParams) (database.OrderItem, error)
	UpdateOrderItem(ctx context.Context, arg database.UpdateOrderItemParams) (database.OrderItem, error)
	DeleteOrderItem(ctx context.Context, arg database.DeleteOrderItemParams) (int64, error)
	DeleteOrderItemsByOrder(ctx context.Context, orderID int64) (int64, error)
	CountOrderItems(ctx context.Context, orderID int64) (int64, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	UpdateOrderTotal(ctx context.Context, arg database.UpdateOrderTotalParams) (database.Order, error)
	UpdateOrderAddress(ctx context.Context, arg database.UpdateOrderAddressParams) (database.Order, error)
	UpdateOrderDelivery(ctx context.Context, arg database.UpdateOrderDeliveryParams) (database.Order, error)
	DeleteOrder(ctx context.Context, id int64) (int64, error)
	IsPhoneBlacklisted(ctx context.Context, phone string) (bool, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
type NewOrderStore func(db database.DBTX) OrderStore

// Catalog resolves product snapshots for new items.
type Catalog interface {
	GetProduct(ctx context.Context, id int64) (database.Product, error)
}

// DeliveryQuoter prices delivery to an address.
type DeliveryQuoter interface {
	Quote(ctx context.Context, address string) (delivery.Quote, error)
}

// EventPublisher broadcasts order snapshots to dashboards. It must not block.
type EventPublisher interface {
	Publish(eventType string, payload any)
}

// NotificationQueue accepts outbound notifications without blocking.
type NotificationQueue interface {
	Enqueue(msg notify.Message) bool
}

// Collaborators are optional; nil members are replaced with no-ops.
type Collaborators struct {
	Catalog        Catalog
	Quoter         DeliveryQuoter
	Events         EventPublisher
	Notifications  NotificationQueue
	StaffRecipient string
	Logger         *slog.Logger
}

// ItemRequest is one item to add. A valid UnitPrice overrides the catalog price.
type ItemRequest struct {
	ProductID int64
	Quantity  int32
	UnitPrice decimal.NullDecimal
	Extras    database.Extras
}

// DeliveryRequest carries delivery data computed by the storefront. When Fee
// is null and a quoter is configured the fee is quoted at creation.
type DeliveryRequest struct {
	Fee           decimal.NullDecimal
	DistanceKm    decimal.NullDecimal
	Lat           *float64
	Lng           *float64
	Note          string
	ManualAddress bool
}

type CreateOrderRequest struct {
	CustomerName    string
	CustomerPhone   string
	CustomerAddress string
	IsPickup        bool
	PaymentMethod   string
	ChangeFor       decimal.NullDecimal
	Delivery        *DeliveryRequest
	Items           []ItemRequest
}

// UpdateItemRequest changes quantity; a valid UnitPrice replaces the stored one.
type UpdateItemRequest struct {
	Quantity  int32
	UnitPrice decimal.NullDecimal
}

type UpdateAddressRequest struct {
	Address           string
	ManualAddress     bool
	RecomputeDelivery bool
}

// OrderService owns every order mutation. Each mutation runs in one
// transaction and, once committed, broadcasts the full order snapshot.
type OrderService struct {
	pool     TxBeginner
	newStore NewOrderStore

	catalog Catalog
	quoter  DeliveryQuoter
	events  EventPublisher
	queue   NotificationQueue
	staff   string
	logger  *slog.Logger
}

// NewOrderService creates a new OrderService.
func NewOrderService(pool TxBeginner, newStore NewOrderStore, c Collaborators) *OrderService {
	s := &OrderService{
		pool:     pool,
		newStore: newStore,
		catalog:  c.Catalog,
		quoter:   c.Quoter,
		events:   c.Events,
		queue:    c.Notifications,
		staff:    c.StaffRecipient,
		logger:   c.Logger,
	}
	if s.events == nil {
		s.events = noopPublisher{}
	}
	if s.queue == nil {
		s.queue = noopQueue{}
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s.logger = s.logger.With("component", "orders")
	return s
}

type noopPublisher struct{}

func (noopPublisher) Publish(string, any) {}

type noopQueue struct{}

func (noopQueue) Enqueue(notify.Message) bool { return true }

// =====================
// Creation
// =====================

// CreateOrder validates, prices and stores an order with its items atomically.
// Blacklisted phones are flagged, never rejected.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*OrderDetail, error) {
	name := strings.TrimSpace(req.CustomerName)
	if name == "" {
		return nil, ErrMissingName
	}
	phone := strings.TrimSpace(req.CustomerPhone)
	if phone == "" {
		return nil, ErrMissingPhone
	}
	payment, err := validatePaymentMethod(req.PaymentMethod)
	if err != nil {
		return nil, err
	}
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}
	address := strings.TrimSpace(req.CustomerAddress)
	if !req.IsPickup && address == "" {
		return nil, ErrMissingAddress
	}
	if req.ChangeFor.Valid && req.ChangeFor.Decimal.IsNegative() {
		return nil, ErrInvalidPrice
	}

	items := make([]database.OrderItem, 0, len(req.Items))
	for i, it := range req.Items {
		item, err := s.resolveItem(ctx, it)
		if err != nil {
			return nil, fmt.Errorf("item[%d]: %w", i, err)
		}
		items = append(items, item)
	}

	params := database.CreateOrderParams{
		CustomerName:  name,
		CustomerPhone: phone,
		IsPickup:      req.IsPickup,
		PaymentMethod: payment,
		ChangeFor:     req.ChangeFor,
	}
	if !req.IsPickup {
		params.CustomerAddress = &address
		s.applyDelivery(ctx, &params, address, req.Delivery)
	}
	params.IsBlacklisted = s.isBlacklisted(ctx, phone)
	params.Total = pricing.ComputeTotal(items, params.DeliveryFee)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, storageError("begin tx", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.CreateOrder(ctx, params)
	if err != nil {
		return nil, storageError("create order", err)
	}

	saved := make([]database.OrderItem, 0, len(items))
	for _, it := range items {
		item, err := store.CreateOrderItem(ctx, database.CreateOrderItemParams{
			OrderID:     order.ID,
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Extras:      it.Extras,
		})
		if err != nil {
			return nil, storageError("create order item", err)
		}
		saved = append(saved, item)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, storageError("commit tx", err)
	}

	detail := &OrderDetail{Order: order, Items: saved}
	s.events.Publish(enum.EventOrderCreated, detail)
	s.notifyCreated(order)
	return detail, nil
}

// resolveItem snapshots the product name and price for a new item.
func (s *OrderService) resolveItem(ctx context.Context, it ItemRequest) (database.OrderItem, error) {
	if it.Quantity < 1 {
		return database.OrderItem{}, ErrInvalidQuantity
	}
	if it.UnitPrice.Valid && it.UnitPrice.Decimal.IsNegative() {
		return database.OrderItem{}, ErrInvalidPrice
	}
	if s.catalog == nil {
		return database.OrderItem{}, ErrProductNotFound
	}

	product, err := s.catalog.GetProduct(ctx, it.ProductID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.OrderItem{}, ErrProductNotFound
		}
		return database.OrderItem{}, storageError("get product", err)
	}
	if !product.Active {
		return database.OrderItem{}, ErrProductNotFound
	}

	unitPrice := product.Price
	if it.UnitPrice.Valid {
		unitPrice = it.UnitPrice.Decimal
	}
	return database.OrderItem{
		ProductID:   product.ID,
		ProductName: product.Name,
		Quantity:    it.Quantity,
		UnitPrice:   unitPrice.Round(2),
		Extras:      it.Extras,
	}, nil
}

// applyDelivery fills delivery columns from the request, quoting the fee when
// the caller did not supply one. A failed quote leaves the fee null.
func (s *OrderService) applyDelivery(ctx context.Context, p *database.CreateOrderParams, address string, d *DeliveryRequest) {
	if d != nil {
		if d.Fee.Valid && !d.Fee.Decimal.IsNegative() {
			p.DeliveryFee = decimal.NewNullDecimal(d.Fee.Decimal.Round(2))
		}
		p.DeliveryDistanceKm = d.DistanceKm
		p.DeliveryLat = d.Lat
		p.DeliveryLng = d.Lng
		p.ManualAddress = d.ManualAddress
		if note := strings.TrimSpace(d.Note); note != "" {
			p.DeliveryNote = &note
		}
	}
	if p.DeliveryFee.Valid || s.quoter == nil {
		return
	}

	q, err := s.quoter.Quote(ctx, address)
	if err != nil {
		s.logger.Warn("delivery quote failed at creation", "error", err)
		return
	}
	p.DeliveryFee = decimal.NewNullDecimal(q.Fee)
	p.DeliveryDistanceKm = decimal.NewNullDecimal(q.DistanceKm)
	p.DeliveryLat = q.Lat
	p.DeliveryLng = q.Lng
}

// isBlacklisted runs in its own read transaction so a failed lookup cannot
// abort the write transaction. Failures count as not blacklisted.
func (s *OrderService) isBlacklisted(ctx context.Context, phone string) bool {
	normalized := NormalizePhone(phone)
	if normalized == "" {
		return false
	}
	var flagged bool
	err := s.read(ctx, func(store OrderStore) error {
		var err error
		flagged, err = store.IsPhoneBlacklisted(ctx, normalized)
		return err
	})
	if err != nil {
		s.logger.Warn("blacklist lookup failed", "error", err)
		return false
	}
	return flagged
}

// NormalizePhone keeps digits only, so "+55 (11) 9999-0000" and
// "5511999990000" compare equal.
func NormalizePhone(phone string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, phone)
}

// =====================
// Status
// =====================

// SetStatus moves the order to target if the state machine allows it.
func (s *OrderService) SetStatus(ctx context.Context, id int64, target string) (*OrderDetail, error) {
	return s.setStatus(ctx, id, func(current string) (string, error) {
		if err := ValidateTransition(current, target); err != nil {
			return "", err
		}
		return target, nil
	})
}

// AdvanceStatus moves the order one step forward.
func (s *OrderService) AdvanceStatus(ctx context.Context, id int64) (*OrderDetail, error) {
	return s.setStatus(ctx, id, NextStatus)
}

// RetreatStatus moves the order one step back.
func (s *OrderService) RetreatStatus(ctx context.Context, id int64) (*OrderDetail, error) {
	return s.setStatus(ctx, id, PrevStatus)
}

// Archive forces archived from any status. Archiving an archived order
// succeeds without writing or broadcasting.
func (s *OrderService) Archive(ctx context.Context, id int64) (*OrderDetail, error) {
	return s.setStatus(ctx, id, func(string) (string, error) {
		return enum.OrderStatusArchived, nil
	})
}

// ArchiveIfStatus archives the order only while its locked status is still
// expected. Otherwise it returns ErrStatusChanged and writes nothing.
func (s *OrderService) ArchiveIfStatus(ctx context.Context, id int64, expected string) (*OrderDetail, error) {
	return s.setStatus(ctx, id, func(current string) (string, error) {
		if current != expected {
			return "", ErrStatusChanged
		}
		return enum.OrderStatusArchived, nil
	})
}

// setStatus is the single status primitive; callers differ only in how the
// target is derived from the locked current status.
func (s *OrderService) setStatus(ctx context.Context, id int64, target func(current string) (string, error)) (*OrderDetail, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, storageError("begin tx", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := lockOrder(ctx, store, id)
	if err != nil {
		return nil, err
	}

	next, err := target(order.Status)
	if err != nil {
		return nil, err
	}

	items, err := store.ListOrderItemsByOrder(ctx, id)
	if err != nil {
		return nil, storageError("list order items", err)
	}
	if next == order.Status {
		return &OrderDetail{Order: order, Items: items}, nil
	}

	previous := order.Status
	order, err = store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{ID: id, Status: next})
	if err != nil {
		return nil, storageError("update order status", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, storageError("commit tx", err)
	}

	detail := &OrderDetail{Order: order, Items: items}
	s.events.Publish(enum.EventOrderStatusChanged, detail)
	if statusIndex(next) > statusIndex(previous) {
		s.notifyStatus(order)
	}
	return detail, nil
}

// =====================
// Items
// =====================

// AddItem appends an item and recomputes the total in the same transaction.
func (s *OrderService) AddItem(ctx context.Context, orderID int64, req ItemRequest) (*OrderDetail, error) {
	item, err := s.resolveItem(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, orderID, enum.EventOrderItemsChanged, func(ctx context.Context, store OrderStore, order database.Order) (database.Order, error) {
		_, err := store.CreateOrderItem(ctx, database.CreateOrderItemParams{
			OrderID:     orderID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Extras:      item.Extras,
		})
		if err != nil {
			return order, storageError("create order item", err)
		}
		return order, nil
	})
}

// UpdateItem changes an item's quantity and optionally its unit price.
func (s *OrderService) UpdateItem(ctx context.Context, orderID, itemID int64, req UpdateItemRequest) (*OrderDetail, error) {
	if req.Quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	if req.UnitPrice.Valid && req.UnitPrice.Decimal.IsNegative() {
		return nil, ErrInvalidPrice
	}
	return s.mutate(ctx, orderID, enum.EventOrderItemsChanged, func(ctx context.Context, store OrderStore, order database.Order) (database.Order, error) {
		current, err := getItem(ctx, store, orderID, itemID)
		if err != nil {
			return order, err
		}
		unitPrice := current.UnitPrice
		if req.UnitPrice.Valid {
			unitPrice = req.UnitPrice.Decimal.Round(2)
		}
		_, err = store.UpdateOrderItem(ctx, database.UpdateOrderItemParams{
			ID:        itemID,
			OrderID:   orderID,
			Quantity:  req.Quantity,
			UnitPrice: unitPrice,
		})
		if err != nil {
			return order, storageError("update order item", err)
		}
		return order, nil
	})
}

// RemoveItem deletes an item. Removing the last item is rejected.
func (s *OrderService) RemoveItem(ctx context.Context, orderID, itemID int64) (*OrderDetail, error) {
	return s.mutate(ctx, orderID, enum.EventOrderItemsChanged, func(ctx context.Context, store OrderStore, order database.Order) (database.Order, error) {
		if _, err := getItem(ctx, store, orderID, itemID); err != nil {
			return order, err
		}
		n, err := store.CountOrderItems(ctx, orderID)
		if err != nil {
			return order, storageError("count order items", err)
		}
		if n <= 1 {
			return order, ErrLastItem
		}
		if _, err := store.DeleteOrderItem(ctx, database.DeleteOrderItemParams{ID: itemID, OrderID: orderID}); err != nil {
			return order, storageError("delete order item", err)
		}
		return order, nil
	})
}

// =====================
// Address
// =====================

// UpdateAddress stores a new address, turning a pickup order into a delivery
// order. With RecomputeDelivery the fee is quoted first; a failed quote keeps
// the previous delivery data and is reported as a warning.
func (s *OrderService) UpdateAddress(ctx context.Context, orderID int64, req UpdateAddressRequest) (*OrderDetail, []string, error) {
	address := strings.TrimSpace(req.Address)
	if address == "" {
		return nil, nil, ErrMissingAddress
	}

	warnings := []string{}
	var quote *delivery.Quote
	if req.RecomputeDelivery {
		if s.quoter == nil {
			warnings = append(warnings, "delivery fee not recomputed: delivery pricing unavailable")
		} else if q, err := s.quoter.Quote(ctx, address); err != nil {
			s.logger.Warn("delivery quote failed", "order_id", orderID, "error", err)
			warnings = append(warnings, "delivery fee not recomputed: "+err.Error())
		} else {
			quote = &q
		}
	}

	detail, err := s.mutate(ctx, orderID, enum.EventOrderAddressChanged, func(ctx context.Context, store OrderStore, order database.Order) (database.Order, error) {
		order, err := store.UpdateOrderAddress(ctx, database.UpdateOrderAddressParams{
			ID:            orderID,
			Address:       &address,
			ManualAddress: req.ManualAddress,
		})
		if err != nil {
			return order, storageError("update order address", err)
		}
		if quote == nil {
			return order, nil
		}
		order, err = store.UpdateOrderDelivery(ctx, database.UpdateOrderDeliveryParams{
			ID:          orderID,
			Fee:         decimal.NewNullDecimal(quote.Fee),
			DistanceKm:  decimal.NewNullDecimal(quote.DistanceKm),
			DeliveryLat: quote.Lat,
			DeliveryLng: quote.Lng,
		})
		if err != nil {
			return order, storageError("update order delivery", err)
		}
		return order, nil
	})
	if err != nil {
		return nil, nil, err
	}
	return detail, warnings, nil
}

// mutate locks the order row, applies fn, recomputes the total from the
// persisted items and commits, all in one transaction. The snapshot is
// broadcast as eventType after commit.
func (s *OrderService) mutate(
	ctx context.Context,
	orderID int64,
	eventType string,
	fn func(ctx context.Context, store OrderStore, order database.Order) (database.Order, error),
) (*OrderDetail, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, storageError("begin tx", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := lockOrder(ctx, store, orderID)
	if err != nil {
		return nil, err
	}

	order, err = fn(ctx, store, order)
	if err != nil {
		return nil, err
	}

	items, err := store.ListOrderItemsByOrder(ctx, orderID)
	if err != nil {
		return nil, storageError("list order items", err)
	}

	total := pricing.ComputeTotal(items, order.DeliveryFee)
	order, err = store.UpdateOrderTotal(ctx, database.UpdateOrderTotalParams{ID: orderID, Total: total})
	if err != nil {
		return nil, storageError("update order total", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, storageError("commit tx", err)
	}

	detail := &OrderDetail{Order: order, Items: items}
	s.events.Publish(eventType, detail)
	return detail, nil
}

// =====================
// Deletion
// =====================

// DeleteOrder hard-deletes the items, then the order.
func (s *OrderService) DeleteOrder(ctx context.Context, id int64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return storageError("begin tx", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	if _, err := lockOrder(ctx, store, id); err != nil {
		return err
	}
	if _, err := store.DeleteOrderItemsByOrder(ctx, id); err != nil {
		return storageError("delete order items", err)
	}
	n, err := store.DeleteOrder(ctx, id)
	if err != nil {
		return storageError("delete order", err)
	}
	if n == 0 {
		return ErrOrderNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return storageError("commit tx", err)
	}

	s.events.Publish(enum.EventOrderDeleted, DeletedOrder{ID: id})
	return nil
}

// =====================
// Reads
// =====================

// GetOrder returns one order with its items.
func (s *OrderService) GetOrder(ctx context.Context, id int64) (*OrderDetail, error) {
	var detail *OrderDetail
	err := s.read(ctx, func(store OrderStore) error {
		order, err := store.GetOrder(ctx, id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrOrderNotFound
			}
			return storageError("get order", err)
		}
		items, err := store.ListOrderItemsByOrder(ctx, id)
		if err != nil {
			return storageError("list order items", err)
		}
		detail = &OrderDetail{Order: order, Items: items}
		return nil
	})
	return detail, err
}

// ListOrders returns every order with its items, unsorted for display.
// Orders and items are read from one snapshot, so a total always matches
// the items it is returned with.
func (s *OrderService) ListOrders(ctx context.Context, includeArchived bool) ([]OrderDetail, error) {
	out := []OrderDetail{}
	err := s.read(ctx, func(store OrderStore) error {
		orders, err := store.ListOrders(ctx, database.ListOrdersParams{IncludeArchived: includeArchived})
		if err != nil {
			return storageError("list orders", err)
		}
		if len(orders) == 0 {
			return nil
		}

		ids := make([]int64, len(orders))
		for i, o := range orders {
			ids[i] = o.ID
		}
		items, err := store.ListOrderItemsByOrders(ctx, ids)
		if err != nil {
			return storageError("list order items", err)
		}

		byOrder := make(map[int64][]database.OrderItem, len(orders))
		for _, it := range items {
			byOrder[it.OrderID] = append(byOrder[it.OrderID], it)
		}
		for _, o := range orders {
			out = append(out, OrderDetail{Order: o, Items: byOrder[o.ID]})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListStaleDelivered returns ids of delivered orders untouched since before.
func (s *OrderService) ListStaleDelivered(ctx context.Context, before time.Time) ([]int64, error) {
	var ids []int64
	err := s.read(ctx, func(store OrderStore) error {
		var err error
		ids, err = store.ListStaleOrderIDs(ctx, database.ListStaleOrderIDsParams{
			Status: enum.OrderStatusDelivered,
			Before: before,
		})
		if err != nil {
			return storageError("list stale orders", err)
		}
		return nil
	})
	return ids, err
}

// read runs fn in a repeatable-read, read-only transaction.
func (s *OrderService) read(ctx context.Context, fn func(store OrderStore) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return storageError("begin read tx", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(s.newStore(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return storageError("commit read tx", err)
	}
	return nil
}

// --- Helpers ---

func lockOrder(ctx context.Context, store OrderStore, id int64) (database.Order, error) {
	order, err := store.GetOrderForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrOrderNotFound
		}
		return database.Order{}, storageError("get order", err)
	}
	return order, nil
}

func getItem(ctx context.Context, store OrderStore, orderID, itemID int64) (database.OrderItem, error) {
	item, err := store.GetOrderItem(ctx, database.GetOrderItemParams{ID: itemID, OrderID: orderID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.OrderItem{}, ErrItemNotFound
		}
		return database.OrderItem{}, storageError("get order item", err)
	}
	return item, nil
}

func validatePaymentMethod(s string) (string, error) {
	switch s {
	case "":
		return enum.PaymentMethodCash, nil
	case enum.PaymentMethodCash, enum.PaymentMethodCard,
		enum.PaymentMethodPix, enum.PaymentMethodTransfer:
		return s, nil
	}
	return "", ErrInvalidPayment
}
