package order

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/digicoders-git/ksmedical-backend/internal/common"
)

// AdminHandler exposes the administrative order endpoints.
type AdminHandler struct {
	Svc *Service
}

// List returns every order, optionally filtered by status.
func (h *AdminHandler) List(w http.ResponseWriter, r *http.Request) {
	p := common.ParsePagination(r)
	orders, total, err := h.Svc.ListAll(r.Context(), r.URL.Query().Get("status"), p.Limit, p.Offset())
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list orders", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": orders,
		"meta": map[string]any{"page": p.Page, "limit": p.Limit, "total": total},
	})
}

// Get returns any order by id.
func (h *AdminHandler) Get(w http.ResponseWriter, r *http.Request) {
	o, err := h.Svc.Get(r.Context(), chi.URLParam(r, "id"), "", true)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load order", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": o})
}

// PatchStatus applies a lifecycle transition.
func (h *AdminHandler) PatchStatus(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Status == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "status is required", nil)
		return
	}
	o, err := h.Svc.SetStatus(r.Context(), chi.URLParam(r, "id"), payload.Status)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
		case errors.Is(err, ErrInvalidTransition):
			common.JSONError(w, http.StatusConflict, "CONFLICT", err.Error(), nil)
		default:
			common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to update order", nil)
		}
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": o})
}

// PatchPayment records the payment outcome for an order.
func (h *AdminHandler) PatchPayment(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		PaymentStatus string `json:"paymentStatus"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.PaymentStatus == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "paymentStatus is required", nil)
		return
	}
	o, err := h.Svc.SetPaymentStatus(r.Context(), chi.URLParam(r, "id"), payload.PaymentStatus)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
		case errors.Is(err, ErrInvalidTransition):
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		default:
			common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to update payment status", nil)
		}
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": o})
}
