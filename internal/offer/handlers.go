package offer

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/digicoders-git/ksmedical-backend/internal/common"
)

// Handler exposes offer endpoints: public listing and lookup plus
// administrative management.
type Handler struct {
	Svc *Service
}

type offerPayload struct {
	Code              string     `json:"code" validate:"required,min=3,max=32"`
	Title             string     `json:"title" validate:"required"`
	Description       string     `json:"description"`
	DiscountType      string     `json:"discountType"`
	DiscountValue     int64      `json:"discountValue"`
	MinOrderAmount    int64      `json:"minOrderAmount"`
	MaxDiscountAmount int64      `json:"maxDiscountAmount"`
	StartsAt          *time.Time `json:"startsAt"`
	EndsAt            *time.Time `json:"endsAt"`
	IsActive          *bool      `json:"isActive"`
}

// Create inserts a new offer.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var payload offerPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if details, ok := common.ValidateStruct(payload); !ok {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", details)
		return
	}
	o, err := h.Svc.Create(r.Context(), CreateInput{
		Code:              payload.Code,
		Title:             payload.Title,
		Description:       payload.Description,
		DiscountType:      payload.DiscountType,
		DiscountValue:     payload.DiscountValue,
		MinOrderAmount:    payload.MinOrderAmount,
		MaxDiscountAmount: payload.MaxDiscountAmount,
		StartsAt:          payload.StartsAt,
		EndsAt:            payload.EndsAt,
		IsActive:          payload.IsActive,
	})
	if err != nil {
		if errors.Is(err, ErrCodeTaken) {
			common.JSONError(w, http.StatusConflict, "CONFLICT", "offer code already exists", nil)
			return
		}
		common.RenderError(w, err, "failed to create offer")
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": o})
}

// Update applies a partial update to an offer.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var payload struct {
		Title             *string    `json:"title"`
		Description       *string    `json:"description"`
		DiscountType      *string    `json:"discountType"`
		DiscountValue     *int64     `json:"discountValue"`
		MinOrderAmount    *int64     `json:"minOrderAmount"`
		MaxDiscountAmount *int64     `json:"maxDiscountAmount"`
		StartsAt          *time.Time `json:"startsAt"`
		EndsAt            *time.Time `json:"endsAt"`
		IsActive          *bool      `json:"isActive"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	o, err := h.Svc.Update(r.Context(), id, UpdateInput{
		Title:             payload.Title,
		Description:       payload.Description,
		DiscountType:      payload.DiscountType,
		DiscountValue:     payload.DiscountValue,
		MinOrderAmount:    payload.MinOrderAmount,
		MaxDiscountAmount: payload.MaxDiscountAmount,
		StartsAt:          payload.StartsAt,
		EndsAt:            payload.EndsAt,
		IsActive:          payload.IsActive,
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "offer not found", nil)
			return
		}
		common.RenderError(w, err, "failed to update offer")
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": o})
}

// Delete removes an offer.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Svc.Delete(r.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "offer not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to delete offer", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Get returns one offer by id.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	o, err := h.Svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "offer not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load offer", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": o})
}

// List returns offers. Public callers see active offers only; admins may pass
// all=true to include inactive ones.
func (h *Handler) List(activeOnly bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := common.ParsePagination(r)
		only := activeOnly
		if !activeOnly && r.URL.Query().Get("all") != "true" {
			only = true
		}
		offers, total, err := h.Svc.List(r.Context(), only, p.Limit, p.Offset())
		if err != nil {
			common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list offers", nil)
			return
		}
		common.JSON(w, http.StatusOK, map[string]any{
			"data": offers,
			"meta": map[string]any{"page": p.Page, "limit": p.Limit, "total": total},
		})
	}
}

// Verify resolves an offer code and reports whether it can discount the given
// amount right now.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimSpace(r.URL.Query().Get("code"))
	if code == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "code is required", nil)
		return
	}
	rule, err := h.Svc.Resolve(r.Context(), code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "offer not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to verify offer", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{
		"code":       rule.Code,
		"applicable": rule.Applicable(h.Svc.now(), parseAmount(r)),
	}})
}

func parseAmount(r *http.Request) int64 {
	amount, err := strconv.ParseInt(r.URL.Query().Get("amount"), 10, 64)
	if err != nil || amount < 0 {
		return 0
	}
	return amount
}
