package order

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/digicoders-git/ksmedical-backend/internal/common"
	"github.com/digicoders-git/ksmedical-backend/internal/offer"
	"github.com/digicoders-git/ksmedical-backend/internal/pricing"
)

// Handler exposes customer-facing order endpoints.
type Handler struct {
	Svc *Service
}

type placePayload struct {
	Items []struct {
		ProductID  string `json:"productId" validate:"required"`
		Qty        int    `json:"qty" validate:"min=1"`
		AddOnPrice int64  `json:"addOnPrice" validate:"min=0"`
	} `json:"items" validate:"min=1,dive"`
	OfferCode       string          `json:"offerCode"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
}

// Place creates a new order for the authenticated user.
func (h *Handler) Place(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing user identity", nil)
		return
	}
	var payload placePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if details, ok := common.ValidateStruct(payload); !ok {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", details)
		return
	}
	in := PlaceInput{OfferCode: payload.OfferCode, ShippingAddress: payload.ShippingAddress}
	for _, item := range payload.Items {
		in.Items = append(in.Items, PlaceItem{
			ProductID:  item.ProductID,
			Qty:        item.Qty,
			AddOnPrice: item.AddOnPrice,
		})
	}
	o, err := h.Svc.Place(r.Context(), userID, in)
	if err != nil {
		switch {
		case errors.Is(err, pricing.ErrInvalidOrderLine):
			common.JSONError(w, http.StatusUnprocessableEntity, "INVALID_ORDER_LINE", "order lines reference missing or inactive products", nil)
		case errors.Is(err, offer.ErrNotFound):
			common.JSONError(w, http.StatusUnprocessableEntity, "OFFER_NOT_FOUND", "offer code not recognized", nil)
		default:
			common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to place order", nil)
		}
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": o})
}

// List returns the caller's orders, newest first.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing user identity", nil)
		return
	}
	p := common.ParsePagination(r)
	orders, total, err := h.Svc.ListForUser(r.Context(), userID, p.Limit, p.Offset())
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list orders", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": orders,
		"meta": map[string]any{"page": p.Page, "limit": p.Limit, "total": total},
	})
}

// Get returns one of the caller's orders.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing user identity", nil)
		return
	}
	o, err := h.Svc.Get(r.Context(), chi.URLParam(r, "id"), userID, false)
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

// Cancel cancels a pending order owned by the caller.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing user identity", nil)
		return
	}
	o, err := h.Svc.Cancel(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
		case errors.Is(err, ErrNotCancellable):
			common.JSONError(w, http.StatusConflict, "CONFLICT", "only pending orders can be cancelled", nil)
		case errors.Is(err, ErrInvalidTransition):
			common.JSONError(w, http.StatusConflict, "CONFLICT", "order status changed, retry", nil)
		default:
			common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to cancel order", nil)
		}
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": o})
}
