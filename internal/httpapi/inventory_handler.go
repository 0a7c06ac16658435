package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Mucahit2020/order-management-go/internal/inventory"
)

type adjustStockRequest struct {
	ProductID uuid.UUID `json:"productId"`
	Name      string    `json:"name"`
	Quantity  int       `json:"quantity"`
}

type InventoryHandler struct {
	repo inventory.Repository
}

func NewInventoryHandler(repo inventory.Repository) *InventoryHandler {
	return &InventoryHandler{repo: repo}
}

// NewInventoryRouter wires the inventory API.
func NewInventoryRouter(repo inventory.Repository) http.Handler {
	r := newRouter("inventory-service")
	h := NewInventoryHandler(repo)

	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", h.ListProducts)
		r.Get("/{productId}", h.GetProduct)
		r.Post("/adjust", h.AdjustStock)
	})
	r.Get("/api/movements/order/{orderId}", h.ListMovementsByOrder)

	return r
}

func (h *InventoryHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.repo.ListProducts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load products")
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *InventoryHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	productID, err := uuid.Parse(chi.URLParam(r, "productId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid productId")
		return
	}

	p, err := h.repo.GetProduct(r.Context(), productID)
	if err != nil {
		if errors.Is(err, inventory.ErrNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load product")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *InventoryHandler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	var req adjustStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ProductID == uuid.Nil {
		writeError(w, http.StatusBadRequest, "productId is required")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Quantity < 0 {
		writeError(w, http.StatusBadRequest, "quantity must not be negative")
		return
	}

	if err := h.repo.SetStock(r.Context(), req.ProductID, req.Name, req.Quantity); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to adjust stock")
		return
	}

	p, err := h.repo.GetProduct(r.Context(), req.ProductID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load product")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *InventoryHandler) ListMovementsByOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "orderId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid orderId")
		return
	}

	movements, err := h.repo.ListMovementsByOrder(r.Context(), orderID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load movements")
		return
	}
	writeJSON(w, http.StatusOK, movements)
}
