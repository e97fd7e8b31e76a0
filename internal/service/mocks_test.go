package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/foodboard/api/internal/database"
	"github.com/foodboard/api/internal/delivery"
	"github.com/foodboard/api/internal/notify"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// --- Mock implementations ---

// mockTx implements pgx.Tx with only the methods we need.
// The unused methods panic so we catch accidental calls.
type mockTx struct {
	commitErr error
	commits   int
	rollbacks int
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) { panic("not implemented") }
func (m *mockTx) Commit(ctx context.Context) error {
	if m.commitErr != nil {
		return m.commitErr
	}
	m.commits++
	return nil
}
func (m *mockTx) Rollback(ctx context.Context) error { m.rollbacks++; return nil }
func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}
func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}
func (m *mockTx) LargeObjects() pgx.LargeObjects { panic("not implemented") }
func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}
func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}
func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not implemented")
}
func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not implemented")
}
func (m *mockTx) Conn() *pgx.Conn { panic("not implemented") }

// mockTxBeginner implements TxBeginner. Write transactions (Begin) share tx;
// read transactions (BeginTx) get their own so commit counts stay meaningful.
type mockTxBeginner struct {
	tx     *mockTx
	readTx *mockTx
	err    error
	begins int
}

func (m *mockTxBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.begins++
	return m.tx, nil
}

func (m *mockTxBeginner) BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.readTx, nil
}

// fakeStore is an in-memory OrderStore. fail maps a method name to the error
// it should return.
type fakeStore struct {
	mu         sync.Mutex
	orders     map[int64]database.Order
	items      map[int64]database.OrderItem
	blacklist  map[string]bool
	nextOrder  int64
	nextItem   int64
	fail       map[string]error
	calls      map[string]int
	lastPhone  string
	clockValue time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		orders:     map[int64]database.Order{},
		items:      map[int64]database.OrderItem{},
		blacklist:  map[string]bool{},
		fail:       map[string]error{},
		calls:      map[string]int{},
		clockValue: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (f *fakeStore) enter(op string) error {
	f.calls[op]++
	return f.fail[op]
}

func (f *fakeStore) now() time.Time {
	f.clockValue = f.clockValue.Add(time.Second)
	return f.clockValue
}

func (f *fakeStore) CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("CreateOrder"); err != nil {
		return database.Order{}, err
	}
	f.nextOrder++
	now := f.now()
	o := database.Order{
		ID:                 f.nextOrder,
		CustomerName:       arg.CustomerName,
		CustomerPhone:      arg.CustomerPhone,
		CustomerAddress:    arg.CustomerAddress,
		IsPickup:           arg.IsPickup,
		PaymentMethod:      arg.PaymentMethod,
		ChangeFor:          arg.ChangeFor,
		Status:             "pending",
		DeliveryFee:        arg.DeliveryFee,
		DeliveryDistanceKm: arg.DeliveryDistanceKm,
		DeliveryLat:        arg.DeliveryLat,
		DeliveryLng:        arg.DeliveryLng,
		DeliveryNote:       arg.DeliveryNote,
		ManualAddress:      arg.ManualAddress,
		Total:              arg.Total,
		IsBlacklisted:      arg.IsBlacklisted,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	f.orders[o.ID] = o
	return o, nil
}

func (f *fakeStore) CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("CreateOrderItem"); err != nil {
		return database.OrderItem{}, err
	}
	f.nextItem++
	it := database.OrderItem{
		ID:          f.nextItem,
		OrderID:     arg.OrderID,
		ProductID:   arg.ProductID,
		ProductName: arg.ProductName,
		Quantity:    arg.Quantity,
		UnitPrice:   arg.UnitPrice,
		Extras:      arg.Extras,
		CreatedAt:   f.now(),
	}
	f.items[it.ID] = it
	return it, nil
}

func (f *fakeStore) getOrder(op string, id int64) (database.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(op); err != nil {
		return database.Order{}, err
	}
	o, ok := f.orders[id]
	if !ok {
		return database.Order{}, pgx.ErrNoRows
	}
	return o, nil
}

func (f *fakeStore) GetOrder(ctx context.Context, id int64) (database.Order, error) {
	return f.getOrder("GetOrder", id)
}

func (f *fakeStore) GetOrderForUpdate(ctx context.Context, id int64) (database.Order, error) {
	return f.getOrder("GetOrderForUpdate", id)
}

func (f *fakeStore) ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("ListOrders"); err != nil {
		return nil, err
	}
	var out []database.Order
	for _, o := range f.orders {
		if !arg.IncludeArchived && o.Status == "archived" {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) ListStaleOrderIDs(ctx context.Context, arg database.ListStaleOrderIDsParams) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("ListStaleOrderIDs"); err != nil {
		return nil, err
	}
	var ids []int64
	for _, o := range f.orders {
		if o.Status == arg.Status && o.UpdatedAt.Before(arg.Before) {
			ids = append(ids, o.ID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (f *fakeStore) itemsOf(orderIDs ...int64) []database.OrderItem {
	want := map[int64]bool{}
	for _, id := range orderIDs {
		want[id] = true
	}
	var out []database.OrderItem
	for _, it := range f.items {
		if want[it.OrderID] {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeStore) ListOrderItemsByOrder(ctx context.Context, orderID int64) ([]database.OrderItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("ListOrderItemsByOrder"); err != nil {
		return nil, err
	}
	return f.itemsOf(orderID), nil
}

func (f *fakeStore) ListOrderItemsByOrders(ctx context.Context, orderIDs []int64) ([]database.OrderItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("ListOrderItemsByOrders"); err != nil {
		return nil, err
	}
	return f.itemsOf(orderIDs...), nil
}

func (f *fakeStore) GetOrderItem(ctx context.Context, arg database.GetOrderItemParams) (database.OrderItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("GetOrderItem"); err != nil {
		return database.OrderItem{}, err
	}
	it, ok := f.items[arg.ID]
	if !ok || it.OrderID != arg.OrderID {
		return database.OrderItem{}, pgx.ErrNoRows
	}
	return it, nil
}

func (f *fakeStore) UpdateOrderItem(ctx context.Context, arg database.UpdateOrderItemParams) (database.OrderItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("UpdateOrderItem"); err != nil {
		return database.OrderItem{}, err
	}
	it, ok := f.items[arg.ID]
	if !ok || it.OrderID != arg.OrderID {
		return database.OrderItem{}, pgx.ErrNoRows
	}
	it.Quantity = arg.Quantity
	it.UnitPrice = arg.UnitPrice
	f.items[it.ID] = it
	return it, nil
}

func (f *fakeStore) DeleteOrderItem(ctx context.Context, arg database.DeleteOrderItemParams) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("DeleteOrderItem"); err != nil {
		return 0, err
	}
	it, ok := f.items[arg.ID]
	if !ok || it.OrderID != arg.OrderID {
		return 0, nil
	}
	delete(f.items, arg.ID)
	return 1, nil
}

func (f *fakeStore) DeleteOrderItemsByOrder(ctx context.Context, orderID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("DeleteOrderItemsByOrder"); err != nil {
		return 0, err
	}
	var n int64
	for id, it := range f.items {
		if it.OrderID == orderID {
			delete(f.items, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) CountOrderItems(ctx context.Context, orderID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("CountOrderItems"); err != nil {
		return 0, err
	}
	return int64(len(f.itemsOf(orderID))), nil
}

func (f *fakeStore) updateOrder(op string, id int64, apply func(o *database.Order)) (database.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(op); err != nil {
		return database.Order{}, err
	}
	o, ok := f.orders[id]
	if !ok {
		return database.Order{}, pgx.ErrNoRows
	}
	apply(&o)
	o.UpdatedAt = f.now()
	f.orders[id] = o
	return o, nil
}

func (f *fakeStore) UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
	return f.updateOrder("UpdateOrderStatus", arg.ID, func(o *database.Order) { o.Status = arg.Status })
}

func (f *fakeStore) UpdateOrderTotal(ctx context.Context, arg database.UpdateOrderTotalParams) (database.Order, error) {
	return f.updateOrder("UpdateOrderTotal", arg.ID, func(o *database.Order) { o.Total = arg.Total })
}

func (f *fakeStore) UpdateOrderAddress(ctx context.Context, arg database.UpdateOrderAddressParams) (database.Order, error) {
	return f.updateOrder("UpdateOrderAddress", arg.ID, func(o *database.Order) {
		o.CustomerAddress = arg.Address
		o.ManualAddress = arg.ManualAddress
		o.IsPickup = false
	})
}

func (f *fakeStore) UpdateOrderDelivery(ctx context.Context, arg database.UpdateOrderDeliveryParams) (database.Order, error) {
	return f.updateOrder("UpdateOrderDelivery", arg.ID, func(o *database.Order) {
		o.DeliveryFee = arg.Fee
		o.DeliveryDistanceKm = arg.DistanceKm
		o.DeliveryLat = arg.DeliveryLat
		o.DeliveryLng = arg.DeliveryLng
	})
}

func (f *fakeStore) DeleteOrder(ctx context.Context, id int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("DeleteOrder"); err != nil {
		return 0, err
	}
	if _, ok := f.orders[id]; !ok {
		return 0, nil
	}
	delete(f.orders, id)
	return 1, nil
}

func (f *fakeStore) IsPhoneBlacklisted(ctx context.Context, phone string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastPhone = phone
	if err := f.enter("IsPhoneBlacklisted"); err != nil {
		return false, err
	}
	return f.blacklist[phone], nil
}

// mockCatalog resolves products from a map.
type mockCatalog struct {
	products map[int64]database.Product
	err      error
}

func (m *mockCatalog) GetProduct(ctx context.Context, id int64) (database.Product, error) {
	if m.err != nil {
		return database.Product{}, m.err
	}
	p, ok := m.products[id]
	if !ok {
		return database.Product{}, pgx.ErrNoRows
	}
	return p, nil
}

// mockQuoter returns a fixed quote or error.
type mockQuoter struct {
	quoteFn func(ctx context.Context, address string) (delivery.Quote, error)
	calls   int
}

func (m *mockQuoter) Quote(ctx context.Context, address string) (delivery.Quote, error) {
	m.calls++
	return m.quoteFn(ctx, address)
}

type publishedEvent struct {
	eventType string
	payload   any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (r *recordingPublisher) Publish(eventType string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, publishedEvent{eventType, payload})
}

func (r *recordingPublisher) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.eventType
	}
	return out
}

type recordingQueue struct {
	mu     sync.Mutex
	msgs   []notify.Message
	reject bool
}

func (r *recordingQueue) Enqueue(msg notify.Message) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.reject {
		return false
	}
	r.msgs = append(r.msgs, msg)
	return true
}
