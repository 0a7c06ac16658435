package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Mucahit2020/order-management-go/internal/invoice"
)

type InvoiceHandler struct {
	svc *invoice.Service
}

func NewInvoiceHandler(svc *invoice.Service) *InvoiceHandler {
	return &InvoiceHandler{svc: svc}
}

// NewInvoiceRouter wires the invoice API.
func NewInvoiceRouter(svc *invoice.Service) http.Handler {
	r := newRouter("invoice-service")
	h := NewInvoiceHandler(svc)

	r.Route("/api/invoices", func(r chi.Router) {
		r.Get("/{invoiceId}", h.GetInvoice)
		r.Get("/order/{orderId}", h.GetInvoiceByOrder)
	})

	return r
}

func (h *InvoiceHandler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	invoiceID, err := uuid.Parse(chi.URLParam(r, "invoiceId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid invoiceId")
		return
	}

	inv, err := h.svc.GetInvoiceByID(r.Context(), invoiceID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load invoice")
		return
	}
	if inv == nil {
		writeError(w, http.StatusNotFound, "invoice not found")
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (h *InvoiceHandler) GetInvoiceByOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "orderId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid orderId")
		return
	}

	inv, err := h.svc.GetInvoiceByOrderID(r.Context(), orderID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load invoice")
		return
	}
	if inv == nil {
		writeError(w, http.StatusNotFound, "invoice not found")
		return
	}
	writeJSON(w, http.StatusOK, inv)
}
