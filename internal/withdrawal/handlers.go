package withdrawal

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/digicoders-git/ksmedical-backend/internal/common"
)

// Handler exposes customer withdrawal endpoints.
type Handler struct {
	Svc *Service
}

type requestPayload struct {
	Amount         int64          `json:"amount" validate:"required,gt=0"`
	PaymentDetails PaymentDetails `json:"paymentDetails"`
}

// Request places a new withdrawal against the caller's referral balance.
func (h *Handler) Request(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing user identity", nil)
		return
	}
	var payload requestPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if details, ok := common.ValidateStruct(payload); !ok {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", details)
		return
	}
	wd, err := h.Svc.Request(r.Context(), userID, payload.Amount, payload.PaymentDetails)
	if err != nil {
		switch {
		case errors.Is(err, ErrBelowMinimum):
			common.JSONError(w, http.StatusBadRequest, "BELOW_MINIMUM", err.Error(), nil)
		case errors.Is(err, ErrInsufficientBalance):
			common.JSONError(w, http.StatusUnprocessableEntity, "INSUFFICIENT_BALANCE", "available balance cannot cover the amount", nil)
		default:
			common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to request withdrawal", nil)
		}
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": wd})
}

// List returns the caller's withdrawals, newest first.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing user identity", nil)
		return
	}
	p := common.ParsePagination(r)
	items, total, err := h.Svc.ListForUser(r.Context(), userID, p.Limit, p.Offset())
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list withdrawals", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": items,
		"meta": map[string]any{"page": p.Page, "limit": p.Limit, "total": total},
	})
}

// Get returns one of the caller's withdrawals.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing user identity", nil)
		return
	}
	wd, err := h.Svc.Get(r.Context(), chi.URLParam(r, "id"), userID, false)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "withdrawal not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load withdrawal", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": wd})
}

// AdminHandler exposes the withdrawal review endpoints.
type AdminHandler struct {
	Svc *Service
}

// List returns every withdrawal, optionally filtered by status.
func (h *AdminHandler) List(w http.ResponseWriter, r *http.Request) {
	p := common.ParsePagination(r)
	items, total, err := h.Svc.ListAll(r.Context(), r.URL.Query().Get("status"), p.Limit, p.Offset())
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list withdrawals", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": items,
		"meta": map[string]any{"page": p.Page, "limit": p.Limit, "total": total},
	})
}

type reviewPayload struct {
	Action  string `json:"action"`
	Remarks string `json:"remarks"`
}

// Review applies an admin decision: approve, complete, or reject.
func (h *AdminHandler) Review(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var payload reviewPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	var (
		wd  *Withdrawal
		err error
	)
	switch payload.Action {
	case "approve":
		wd, err = h.Svc.Approve(r.Context(), id, payload.Remarks)
	case "complete":
		wd, err = h.Svc.Complete(r.Context(), id, payload.Remarks)
	case "reject":
		wd, err = h.Svc.Reject(r.Context(), id, payload.Remarks)
	default:
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "action must be approve, complete, or reject", nil)
		return
	}
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "withdrawal not found", nil)
		case errors.Is(err, ErrInvalidTransition):
			common.JSONError(w, http.StatusConflict, "CONFLICT", "withdrawal is not in a reviewable state", nil)
		case errors.Is(err, ErrReviewInProgress):
			common.JSONError(w, http.StatusConflict, "CONFLICT", "withdrawal is being reviewed by another admin", nil)
		default:
			common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to review withdrawal", nil)
		}
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": wd})
}
