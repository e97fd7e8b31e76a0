package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/foodboard/api/internal/database"
	"github.com/foodboard/api/internal/handler"
	"github.com/foodboard/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// --- Mock OrderServicer ---

type mockOrderService struct {
	createFn        func(ctx context.Context, req service.CreateOrderRequest) (*service.OrderDetail, error)
	getFn           func(ctx context.Context, id int64) (*service.OrderDetail, error)
	listFn          func(ctx context.Context, includeArchived bool) ([]service.OrderDetail, error)
	setStatusFn     func(ctx context.Context, id int64, target string) (*service.OrderDetail, error)
	advanceFn       func(ctx context.Context, id int64) (*service.OrderDetail, error)
	retreatFn       func(ctx context.Context, id int64) (*service.OrderDetail, error)
	archiveFn       func(ctx context.Context, id int64) (*service.OrderDetail, error)
	addItemFn       func(ctx context.Context, orderID int64, req service.ItemRequest) (*service.OrderDetail, error)
	updateItemFn    func(ctx context.Context, orderID, itemID int64, req service.UpdateItemRequest) (*service.OrderDetail, error)
	removeItemFn    func(ctx context.Context, orderID, itemID int64) (*service.OrderDetail, error)
	updateAddressFn func(ctx context.Context, orderID int64, req service.UpdateAddressRequest) (*service.OrderDetail, []string, error)
	deleteFn        func(ctx context.Context, id int64) error
}

func (m *mockOrderService) CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.OrderDetail, error) {
	return m.createFn(ctx, req)
}

func (m *mockOrderService) GetOrder(ctx context.Context, id int64) (*service.OrderDetail, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, service.ErrOrderNotFound
}

func (m *mockOrderService) ListOrders(ctx context.Context, includeArchived bool) ([]service.OrderDetail, error) {
	if m.listFn != nil {
		return m.listFn(ctx, includeArchived)
	}
	return []service.OrderDetail{}, nil
}

func (m *mockOrderService) SetStatus(ctx context.Context, id int64, target string) (*service.OrderDetail, error) {
	return m.setStatusFn(ctx, id, target)
}

func (m *mockOrderService) AdvanceStatus(ctx context.Context, id int64) (*service.OrderDetail, error) {
	return m.advanceFn(ctx, id)
}

func (m *mockOrderService) RetreatStatus(ctx context.Context, id int64) (*service.OrderDetail, error) {
	return m.retreatFn(ctx, id)
}

func (m *mockOrderService) Archive(ctx context.Context, id int64) (*service.OrderDetail, error) {
	return m.archiveFn(ctx, id)
}

func (m *mockOrderService) AddItem(ctx context.Context, orderID int64, req service.ItemRequest) (*service.OrderDetail, error) {
	return m.addItemFn(ctx, orderID, req)
}

func (m *mockOrderService) UpdateItem(ctx context.Context, orderID, itemID int64, req service.UpdateItemRequest) (*service.OrderDetail, error) {
	return m.updateItemFn(ctx, orderID, itemID, req)
}

func (m *mockOrderService) RemoveItem(ctx context.Context, orderID, itemID int64) (*service.OrderDetail, error) {
	return m.removeItemFn(ctx, orderID, itemID)
}

func (m *mockOrderService) UpdateAddress(ctx context.Context, orderID int64, req service.UpdateAddressRequest) (*service.OrderDetail, []string, error) {
	return m.updateAddressFn(ctx, orderID, req)
}

func (m *mockOrderService) DeleteOrder(ctx context.Context, id int64) error {
	return m.deleteFn(ctx, id)
}

// --- Test helpers ---

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupOrderRouter(svc *mockOrderService) *chi.Mux {
	h := handler.NewOrderHandler(svc, testLogger())
	r := chi.NewRouter()
	r.Route("/orders", func(r chi.Router) {
		h.RegisterPublicRoutes(r)
		h.RegisterRoutes(r)
	})
	return r
}

func doRequest(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		req = httptest.NewRequest(method, path, bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeMap(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func testDetail(id int64, status string) *service.OrderDetail {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &service.OrderDetail{
		Order: database.Order{
			ID:            id,
			CustomerName:  "Ana",
			CustomerPhone: "+55 11 99999-0000",
			PaymentMethod: "cash",
			Status:        status,
			DeliveryFee:   decimal.NewNullDecimal(decimal.RequireFromString("5")),
			Total:         decimal.RequireFromString("30"),
			CreatedAt:     now,
			UpdatedAt:     now,
		},
		Items: []database.OrderItem{
			{
				ID:          1,
				OrderID:     id,
				ProductID:   10,
				ProductName: "Burger",
				Quantity:    2,
				UnitPrice:   decimal.RequireFromString("10"),
				Extras: database.Extras{AddOns: []database.AddOn{
					{Name: "bacon", Price: decimal.NewNullDecimal(decimal.RequireFromString("2.5"))},
				}},
				CreatedAt: now,
			},
		},
	}
}

// --- Create ---

func TestOrderCreate_Success(t *testing.T) {
	var got service.CreateOrderRequest
	svc := &mockOrderService{
		createFn: func(ctx context.Context, req service.CreateOrderRequest) (*service.OrderDetail, error) {
			got = req
			return testDetail(1, "pending"), nil
		},
	}
	router := setupOrderRouter(svc)

	body := map[string]interface{}{
		"customer_name":    "Ana",
		"customer_phone":   "+55 11 99999-0000",
		"customer_address": "Rua A, 1",
		"payment_method":   "cash",
		"delivery":         map[string]interface{}{"fee": "5.00", "distance_km": 2.4},
		"items": []map[string]interface{}{
			{
				"product_id": 10,
				"quantity":   2,
				"unit_price": "10.00",
				"extras":     []map[string]interface{}{{"name": "bacon", "price": "2,50"}},
			},
		},
	}
	rr := doRequest(t, router, "POST", "/orders", body)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	resp := decodeMap(t, rr)
	if resp["total"] != "30.00" {
		t.Errorf("expected total 30.00, got %v", resp["total"])
	}
	if resp["status"] != "pending" {
		t.Errorf("expected status pending, got %v", resp["status"])
	}

	if got.Delivery == nil || got.Delivery.Fee.Decimal.StringFixed(2) != "5.00" {
		t.Errorf("delivery fee not forwarded: %+v", got.Delivery)
	}
	if len(got.Items) != 1 || len(got.Items[0].Extras.AddOns) != 1 {
		t.Fatalf("items not forwarded: %+v", got.Items)
	}
	if p := got.Items[0].Extras.AddOns[0].Price; !p.Valid || p.Decimal.StringFixed(2) != "2.50" {
		t.Errorf("expected add-on price 2.50, got %v", p)
	}
}

func TestOrderCreate_InvalidBody(t *testing.T) {
	router := setupOrderRouter(&mockOrderService{})

	req := httptest.NewRequest("POST", "/orders", bytes.NewReader([]byte("{not json")))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestOrderCreate_ValidationError(t *testing.T) {
	svc := &mockOrderService{
		createFn: func(ctx context.Context, req service.CreateOrderRequest) (*service.OrderDetail, error) {
			return nil, service.ErrEmptyItems
		},
	}
	router := setupOrderRouter(svc)

	rr := doRequest(t, router, "POST", "/orders", map[string]interface{}{"customer_name": "Ana"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if resp := decodeMap(t, rr); resp["error"] != service.ErrEmptyItems.Error() {
		t.Errorf("unexpected error message: %v", resp["error"])
	}
}

func TestOrderCreate_StorageError(t *testing.T) {
	svc := &mockOrderService{
		createFn: func(ctx context.Context, req service.CreateOrderRequest) (*service.OrderDetail, error) {
			return nil, fmt.Errorf("%w: insert order: connection refused", service.ErrStorage)
		},
	}
	router := setupOrderRouter(svc)

	rr := doRequest(t, router, "POST", "/orders", map[string]interface{}{"customer_name": "Ana"})
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
}

// --- List / Get ---

func TestOrderList_ActiveFilter(t *testing.T) {
	tests := []struct {
		query       string
		wantInclude bool
		wantCode    int
	}{
		{"", true, http.StatusOK},
		{"?active=true", false, http.StatusOK},
		{"?active=false", true, http.StatusOK},
		{"?active=maybe", false, http.StatusBadRequest},
	}
	for _, tt := range tests {
		var gotInclude bool
		called := false
		svc := &mockOrderService{
			listFn: func(ctx context.Context, includeArchived bool) ([]service.OrderDetail, error) {
				called = true
				gotInclude = includeArchived
				return []service.OrderDetail{*testDetail(1, "pending")}, nil
			},
		}
		rr := doRequest(t, setupOrderRouter(svc), "GET", "/orders"+tt.query, nil)

		if rr.Code != tt.wantCode {
			t.Errorf("%q: expected %d, got %d", tt.query, tt.wantCode, rr.Code)
			continue
		}
		if tt.wantCode == http.StatusOK && (!called || gotInclude != tt.wantInclude) {
			t.Errorf("%q: includeArchived = %v, want %v", tt.query, gotInclude, tt.wantInclude)
		}
	}
}

func TestOrderList_EmptyIsArray(t *testing.T) {
	rr := doRequest(t, setupOrderRouter(&mockOrderService{}), "GET", "/orders", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if body := bytes.TrimSpace(rr.Body.Bytes()); string(body) != "[]" {
		t.Fatalf("expected [], got %s", body)
	}
}

func TestOrderGet_NotFound(t *testing.T) {
	rr := doRequest(t, setupOrderRouter(&mockOrderService{}), "GET", "/orders/42", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestOrderGet_InvalidID(t *testing.T) {
	for _, path := range []string{"/orders/abc", "/orders/0", "/orders/-3"} {
		rr := doRequest(t, setupOrderRouter(&mockOrderService{}), "GET", path, nil)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", path, rr.Code)
		}
	}
}

func TestOrderGet_WireFormat(t *testing.T) {
	svc := &mockOrderService{
		getFn: func(ctx context.Context, id int64) (*service.OrderDetail, error) {
			return testDetail(id, "ready"), nil
		},
	}
	rr := doRequest(t, setupOrderRouter(svc), "GET", "/orders/7", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	resp := decodeMap(t, rr)
	if resp["id"] != float64(7) {
		t.Errorf("expected id 7, got %v", resp["id"])
	}
	if resp["delivery_fee"] != "5.00" {
		t.Errorf("expected delivery_fee 5.00, got %v", resp["delivery_fee"])
	}
	if v, ok := resp["change_for"]; !ok || v != nil {
		t.Errorf("expected change_for null, got %v", v)
	}
	items, ok := resp["items"].([]interface{})
	if !ok || len(items) != 1 {
		t.Fatalf("expected 1 item, got %v", resp["items"])
	}
	item := items[0].(map[string]interface{})
	if item["unit_price"] != "10.00" {
		t.Errorf("expected unit_price 10.00, got %v", item["unit_price"])
	}
}

// --- Status ---

func TestOrderUpdateStatus(t *testing.T) {
	calls := map[string]int{}
	svc := &mockOrderService{
		setStatusFn: func(ctx context.Context, id int64, target string) (*service.OrderDetail, error) {
			calls["set:"+target]++
			return testDetail(id, target), nil
		},
		advanceFn: func(ctx context.Context, id int64) (*service.OrderDetail, error) {
			calls["advance"]++
			return testDetail(id, "preparing"), nil
		},
		retreatFn: func(ctx context.Context, id int64) (*service.OrderDetail, error) {
			calls["retreat"]++
			return testDetail(id, "pending"), nil
		},
	}
	router := setupOrderRouter(svc)

	tests := []struct {
		body     map[string]string
		wantCode int
		wantCall string
	}{
		{map[string]string{"status": "ready"}, http.StatusOK, "set:ready"},
		{map[string]string{"step": "advance"}, http.StatusOK, "advance"},
		{map[string]string{"step": "retreat"}, http.StatusOK, "retreat"},
		{map[string]string{"step": "sideways"}, http.StatusBadRequest, ""},
		{map[string]string{}, http.StatusBadRequest, ""},
		{map[string]string{"status": "ready", "step": "advance"}, http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		before := calls[tt.wantCall]
		rr := doRequest(t, router, "PATCH", "/orders/5/status", tt.body)
		if rr.Code != tt.wantCode {
			t.Errorf("%v: expected %d, got %d", tt.body, tt.wantCode, rr.Code)
		}
		if tt.wantCall != "" && calls[tt.wantCall] != before+1 {
			t.Errorf("%v: expected %s to be called", tt.body, tt.wantCall)
		}
	}
}

func TestOrderUpdateStatus_InvalidTransitionIsConflict(t *testing.T) {
	svc := &mockOrderService{
		advanceFn: func(ctx context.Context, id int64) (*service.OrderDetail, error) {
			return nil, fmt.Errorf("%w: archived is terminal", service.ErrInvalidTransition)
		},
	}
	rr := doRequest(t, setupOrderRouter(svc), "PATCH", "/orders/5/status", map[string]string{"step": "advance"})
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
}

func TestOrderUpdateStatus_UnknownStatusIsBadRequest(t *testing.T) {
	svc := &mockOrderService{
		setStatusFn: func(ctx context.Context, id int64, target string) (*service.OrderDetail, error) {
			return nil, service.ErrUnknownStatus
		},
	}
	rr := doRequest(t, setupOrderRouter(svc), "PATCH", "/orders/5/status", map[string]string{"status": "shipped"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestOrderArchive(t *testing.T) {
	svc := &mockOrderService{
		archiveFn: func(ctx context.Context, id int64) (*service.OrderDetail, error) {
			return testDetail(id, "archived"), nil
		},
	}
	rr := doRequest(t, setupOrderRouter(svc), "POST", "/orders/5/archive", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if resp := decodeMap(t, rr); resp["status"] != "archived" {
		t.Errorf("expected archived, got %v", resp["status"])
	}
}

// --- Items ---

func TestOrderAddItem(t *testing.T) {
	var got service.ItemRequest
	svc := &mockOrderService{
		addItemFn: func(ctx context.Context, orderID int64, req service.ItemRequest) (*service.OrderDetail, error) {
			got = req
			return testDetail(orderID, "pending"), nil
		},
	}
	body := map[string]interface{}{
		"product_id": 11,
		"quantity":   1,
		"extras":     map[string]interface{}{"note": "no onions", "buffetSelections": []string{"rice"}},
	}
	rr := doRequest(t, setupOrderRouter(svc), "POST", "/orders/3/items", body)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	resp := decodeMap(t, rr)
	if resp["total"] != "30.00" {
		t.Errorf("expected total 30.00, got %v", resp["total"])
	}
	if _, ok := resp["order"].(map[string]interface{}); !ok {
		t.Errorf("expected order object, got %v", resp["order"])
	}
	if got.ProductID != 11 || got.Extras.Note != "no onions" || len(got.Extras.BuffetSelections) != 1 {
		t.Errorf("item not forwarded: %+v", got)
	}
}

func TestOrderUpdateItem(t *testing.T) {
	var gotOrder, gotItem int64
	var gotReq service.UpdateItemRequest
	svc := &mockOrderService{
		updateItemFn: func(ctx context.Context, orderID, itemID int64, req service.UpdateItemRequest) (*service.OrderDetail, error) {
			gotOrder, gotItem, gotReq = orderID, itemID, req
			return testDetail(orderID, "pending"), nil
		},
	}
	rr := doRequest(t, setupOrderRouter(svc), "PUT", "/orders/3/items/9", map[string]interface{}{"quantity": 4})

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if gotOrder != 3 || gotItem != 9 || gotReq.Quantity != 4 || gotReq.UnitPrice.Valid {
		t.Errorf("unexpected call: order=%d item=%d req=%+v", gotOrder, gotItem, gotReq)
	}
}

func TestOrderRemoveItem_LastItem(t *testing.T) {
	svc := &mockOrderService{
		removeItemFn: func(ctx context.Context, orderID, itemID int64) (*service.OrderDetail, error) {
			return nil, service.ErrLastItem
		},
	}
	rr := doRequest(t, setupOrderRouter(svc), "DELETE", "/orders/3/items/1", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestOrderRemoveItem_ItemNotFound(t *testing.T) {
	svc := &mockOrderService{
		removeItemFn: func(ctx context.Context, orderID, itemID int64) (*service.OrderDetail, error) {
			return nil, service.ErrItemNotFound
		},
	}
	rr := doRequest(t, setupOrderRouter(svc), "DELETE", "/orders/3/items/99", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

// --- Address ---

func TestOrderUpdateAddress_Warnings(t *testing.T) {
	var got service.UpdateAddressRequest
	svc := &mockOrderService{
		updateAddressFn: func(ctx context.Context, orderID int64, req service.UpdateAddressRequest) (*service.OrderDetail, []string, error) {
			got = req
			return testDetail(orderID, "pending"), []string{"delivery fee not recomputed: timeout"}, nil
		},
	}
	body := map[string]interface{}{"address": "Rua B, 2", "manual_address": true, "recompute_delivery": true}
	rr := doRequest(t, setupOrderRouter(svc), "PATCH", "/orders/3/address", body)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	resp := decodeMap(t, rr)
	warnings, ok := resp["warnings"].([]interface{})
	if !ok || len(warnings) != 1 {
		t.Errorf("expected 1 warning, got %v", resp["warnings"])
	}
	if got.Address != "Rua B, 2" || !got.ManualAddress || !got.RecomputeDelivery {
		t.Errorf("request not forwarded: %+v", got)
	}
}

func TestOrderUpdateAddress_NoWarningsIsEmptyArray(t *testing.T) {
	svc := &mockOrderService{
		updateAddressFn: func(ctx context.Context, orderID int64, req service.UpdateAddressRequest) (*service.OrderDetail, []string, error) {
			return testDetail(orderID, "pending"), nil, nil
		},
	}
	rr := doRequest(t, setupOrderRouter(svc), "PATCH", "/orders/3/address", map[string]interface{}{"address": "x"})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	resp := decodeMap(t, rr)
	if w, ok := resp["warnings"].([]interface{}); !ok || len(w) != 0 {
		t.Errorf("expected empty warnings array, got %v", resp["warnings"])
	}
}

// --- Delete ---

func TestOrderDelete(t *testing.T) {
	svc := &mockOrderService{
		deleteFn: func(ctx context.Context, id int64) error {
			if id == 1 {
				return nil
			}
			return service.ErrOrderNotFound
		},
	}
	router := setupOrderRouter(svc)

	if rr := doRequest(t, router, "DELETE", "/orders/1", nil); rr.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rr.Code)
	}
	if rr := doRequest(t, router, "DELETE", "/orders/2", nil); rr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rr.Code)
	}
}

func TestOrderUnexpectedErrorIs500(t *testing.T) {
	svc := &mockOrderService{
		deleteFn: func(ctx context.Context, id int64) error {
			return fmt.Errorf("boom")
		},
	}
	rr := doRequest(t, setupOrderRouter(svc), "DELETE", "/orders/1", nil)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
}
