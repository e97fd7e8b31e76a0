package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/foodboard/api/internal/database"
	"github.com/foodboard/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.OrderDetail, error)
	GetOrder(ctx context.Context, id int64) (*service.OrderDetail, error)
	ListOrders(ctx context.Context, includeArchived bool) ([]service.OrderDetail, error)
	SetStatus(ctx context.Context, id int64, target string) (*service.OrderDetail, error)
	AdvanceStatus(ctx context.Context, id int64) (*service.OrderDetail, error)
	RetreatStatus(ctx context.Context, id int64) (*service.OrderDetail, error)
	Archive(ctx context.Context, id int64) (*service.OrderDetail, error)
	AddItem(ctx context.Context, orderID int64, req service.ItemRequest) (*service.OrderDetail, error)
	UpdateItem(ctx context.Context, orderID, itemID int64, req service.UpdateItemRequest) (*service.OrderDetail, error)
	RemoveItem(ctx context.Context, orderID, itemID int64) (*service.OrderDetail, error)
	UpdateAddress(ctx context.Context, orderID int64, req service.UpdateAddressRequest) (*service.OrderDetail, []string, error)
	DeleteOrder(ctx context.Context, id int64) error
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc    OrderServicer
	logger *slog.Logger
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{svc: svc, logger: logger}
}

// RegisterPublicRoutes registers the storefront checkout endpoint.
func (h *OrderHandler) RegisterPublicRoutes(r chi.Router) {
	r.Post("/", h.Create)
}

// RegisterRoutes registers staff order endpoints on the given Chi router.
// Expected to be mounted at /orders behind authentication.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Delete("/{id}", h.Delete)
	r.Patch("/{id}/status", h.UpdateStatus)
	r.Post("/{id}/archive", h.Archive)
	r.Patch("/{id}/address", h.UpdateAddress)
	r.Post("/{id}/items", h.AddItem)
	r.Put("/{id}/items/{itemId}", h.UpdateItem)
	r.Delete("/{id}/items/{itemId}", h.RemoveItem)
}

// --- Request / Response types ---

type createOrderRequest struct {
	CustomerName    string              `json:"customer_name"`
	CustomerPhone   string              `json:"customer_phone"`
	CustomerAddress string              `json:"customer_address"`
	IsPickup        bool                `json:"is_pickup"`
	PaymentMethod   string              `json:"payment_method"`
	ChangeFor       decimal.NullDecimal `json:"change_for"`
	Delivery        *deliveryRequest    `json:"delivery"`
	Items           []itemRequest       `json:"items"`
}

type deliveryRequest struct {
	Fee           decimal.NullDecimal `json:"fee"`
	DistanceKm    decimal.NullDecimal `json:"distance_km"`
	Lat           *float64            `json:"lat"`
	Lng           *float64            `json:"lng"`
	Note          string              `json:"note"`
	ManualAddress bool                `json:"manual_address"`
}

type itemRequest struct {
	ProductID int64               `json:"product_id"`
	Quantity  int32               `json:"quantity"`
	UnitPrice decimal.NullDecimal `json:"unit_price"`
	Extras    json.RawMessage     `json:"extras"`
}

func (it itemRequest) toService() service.ItemRequest {
	return service.ItemRequest{
		ProductID: it.ProductID,
		Quantity:  it.Quantity,
		UnitPrice: it.UnitPrice,
		Extras:    database.ParseExtras(it.Extras),
	}
}

type statusRequest struct {
	Status string `json:"status"`
	Step   string `json:"step"`
}

type updateItemRequest struct {
	Quantity  int32               `json:"quantity"`
	UnitPrice decimal.NullDecimal `json:"unit_price"`
}

type updateAddressRequest struct {
	Address           string `json:"address"`
	ManualAddress     bool   `json:"manual_address"`
	RecomputeDelivery bool   `json:"recompute_delivery"`
}

type itemsChangedResponse struct {
	Total string               `json:"total"`
	Order *service.OrderDetail `json:"order"`
}

type addressChangedResponse struct {
	Order    *service.OrderDetail `json:"order"`
	Warnings []string             `json:"warnings"`
}

// --- Handlers ---

// Create handles POST /orders.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	items := make([]service.ItemRequest, len(req.Items))
	for i, it := range req.Items {
		items[i] = it.toService()
	}

	svcReq := service.CreateOrderRequest{
		CustomerName:    req.CustomerName,
		CustomerPhone:   req.CustomerPhone,
		CustomerAddress: req.CustomerAddress,
		IsPickup:        req.IsPickup,
		PaymentMethod:   req.PaymentMethod,
		ChangeFor:       req.ChangeFor,
		Items:           items,
	}
	if d := req.Delivery; d != nil {
		svcReq.Delivery = &service.DeliveryRequest{
			Fee:           d.Fee,
			DistanceKm:    d.DistanceKm,
			Lat:           d.Lat,
			Lng:           d.Lng,
			Note:          d.Note,
			ManualAddress: d.ManualAddress,
		}
	}

	detail, err := h.svc.CreateOrder(r.Context(), svcReq)
	if err != nil {
		h.writeServiceError(w, "create order", err)
		return
	}
	writeJSON(w, http.StatusCreated, detail)
}

// List handles GET /orders. Archived orders are included unless ?active=true.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	includeArchived := true
	if s := r.URL.Query().Get("active"); s != "" {
		active, err := strconv.ParseBool(s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid active flag"})
			return
		}
		includeArchived = !active
	}

	orders, err := h.svc.ListOrders(r.Context(), includeArchived)
	if err != nil {
		h.writeServiceError(w, "list orders", err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

// Get handles GET /orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "order")
	if !ok {
		return
	}

	detail, err := h.svc.GetOrder(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, "get order", err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// UpdateStatus handles PATCH /orders/{id}/status.
// Body is either {"status": "..."} or {"step": "advance"|"retreat"}.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "order")
	if !ok {
		return
	}

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	var (
		detail *service.OrderDetail
		err    error
	)
	switch {
	case req.Status != "" && req.Step != "":
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status and step are mutually exclusive"})
		return
	case req.Status != "":
		detail, err = h.svc.SetStatus(r.Context(), id, req.Status)
	case req.Step == "advance":
		detail, err = h.svc.AdvanceStatus(r.Context(), id)
	case req.Step == "retreat":
		detail, err = h.svc.RetreatStatus(r.Context(), id)
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status or step (advance|retreat) is required"})
		return
	}
	if err != nil {
		h.writeServiceError(w, "update order status", err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// Archive handles POST /orders/{id}/archive.
func (h *OrderHandler) Archive(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "order")
	if !ok {
		return
	}

	detail, err := h.svc.Archive(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, "archive order", err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// AddItem handles POST /orders/{id}/items.
func (h *OrderHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "order")
	if !ok {
		return
	}

	var req itemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	detail, err := h.svc.AddItem(r.Context(), id, req.toService())
	if err != nil {
		h.writeServiceError(w, "add order item", err)
		return
	}
	writeJSON(w, http.StatusCreated, itemsChanged(detail))
}

// UpdateItem handles PUT /orders/{id}/items/{itemId}.
func (h *OrderHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "order")
	if !ok {
		return
	}
	itemID, ok := parseID(w, r, "itemId", "item")
	if !ok {
		return
	}

	var req updateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	detail, err := h.svc.UpdateItem(r.Context(), id, itemID, service.UpdateItemRequest{
		Quantity:  req.Quantity,
		UnitPrice: req.UnitPrice,
	})
	if err != nil {
		h.writeServiceError(w, "update order item", err)
		return
	}
	writeJSON(w, http.StatusOK, itemsChanged(detail))
}

// RemoveItem handles DELETE /orders/{id}/items/{itemId}.
func (h *OrderHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "order")
	if !ok {
		return
	}
	itemID, ok := parseID(w, r, "itemId", "item")
	if !ok {
		return
	}

	detail, err := h.svc.RemoveItem(r.Context(), id, itemID)
	if err != nil {
		h.writeServiceError(w, "remove order item", err)
		return
	}
	writeJSON(w, http.StatusOK, itemsChanged(detail))
}

// UpdateAddress handles PATCH /orders/{id}/address.
func (h *OrderHandler) UpdateAddress(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "order")
	if !ok {
		return
	}

	var req updateAddressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	detail, warnings, err := h.svc.UpdateAddress(r.Context(), id, service.UpdateAddressRequest{
		Address:           req.Address,
		ManualAddress:     req.ManualAddress,
		RecomputeDelivery: req.RecomputeDelivery,
	})
	if err != nil {
		h.writeServiceError(w, "update order address", err)
		return
	}
	if warnings == nil {
		warnings = []string{}
	}
	writeJSON(w, http.StatusOK, addressChangedResponse{Order: detail, Warnings: warnings})
}

// Delete handles DELETE /orders/{id}.
func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "order")
	if !ok {
		return
	}

	if err := h.svc.DeleteOrder(r.Context(), id); err != nil {
		h.writeServiceError(w, "delete order", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Helpers ---

func itemsChanged(detail *service.OrderDetail) itemsChangedResponse {
	return itemsChangedResponse{Total: detail.Order.Total.StringFixed(2), Order: detail}
}

func parseID(w http.ResponseWriter, r *http.Request, param, label string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid " + label + " ID"})
		return 0, false
	}
	return id, true
}
