package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Mucahit2020/order-management-go/internal/apperr"
	"github.com/Mucahit2020/order-management-go/internal/order"
)

var minUnitPrice = decimal.NewFromFloat(0.01)

type orderItemRequest struct {
	ProductID   uuid.UUID       `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
}

type createOrderRequest struct {
	CustomerID uuid.UUID          `json:"customerId"`
	Items      []orderItemRequest `json:"items"`
}

func (r createOrderRequest) validate() string {
	if r.CustomerID == uuid.Nil {
		return "customerId is required"
	}
	if len(r.Items) == 0 {
		return "items must not be empty"
	}
	for _, it := range r.Items {
		if it.ProductID == uuid.Nil {
			return "items[].productId is required"
		}
		if it.ProductName == "" || len(it.ProductName) > 255 {
			return "items[].productName must be 1..255 characters"
		}
		if it.Quantity < 1 {
			return "items[].quantity must be at least 1"
		}
		if it.UnitPrice.LessThan(minUnitPrice) {
			return "items[].unitPrice must be greater than 0.01"
		}
	}
	return ""
}

type OrderHandler struct {
	svc *order.Service
}

func NewOrderHandler(svc *order.Service) *OrderHandler {
	return &OrderHandler{svc: svc}
}

// NewOrderRouter wires the order API.
func NewOrderRouter(svc *order.Service) http.Handler {
	r := newRouter("order-service")
	h := NewOrderHandler(svc)

	r.Route("/api/orders", func(r chi.Router) {
		r.Post("/", h.CreateOrder)
		r.Get("/{orderId}", h.GetOrder)
		r.Get("/customer/{customerId}", h.ListOrdersByCustomer)
	})

	return r
}

func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	idempotencyKey := r.Header.Get("Idempotency-Key")
	if idempotencyKey == "" {
		writeError(w, http.StatusBadRequest, "Idempotency-Key header is required")
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	items := make([]order.NewItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, order.NewItem{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
		})
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	o, created, err := h.svc.CreateOrder(ctx, idempotencyKey, req.CustomerID, items)
	if err != nil {
		if apperr.IsKind(err, apperr.KindValidation) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create order")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, o)
}

func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "orderId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid orderId")
		return
	}

	o, err := h.svc.GetOrderByID(r.Context(), orderID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load order")
		return
	}
	if o == nil {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrderHandler) ListOrdersByCustomer(w http.ResponseWriter, r *http.Request) {
	customerID, err := uuid.Parse(chi.URLParam(r, "customerId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid customerId")
		return
	}

	orders, err := h.svc.GetOrdersByCustomer(r.Context(), customerID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load orders")
		return
	}
	writeJSON(w, http.StatusOK, orders)
}
