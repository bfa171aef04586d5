package catalog

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/digicoders-git/ksmedical-backend/internal/common"
)

// Handler exposes public product listing and detail endpoints.
type Handler struct {
	Svc *Service
}

// List returns active products filtered by category or search term.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	p := common.ParsePagination(r)
	filter := ListFilter{
		Category:   r.URL.Query().Get("category"),
		Search:     r.URL.Query().Get("q"),
		ActiveOnly: true,
	}
	products, total, err := h.Svc.List(r.Context(), filter, p.Limit, p.Offset())
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list products", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": products,
		"meta": map[string]any{"page": p.Page, "limit": p.Limit, "total": total},
	})
}

// Get returns one product by id.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	product, err := h.Svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "product not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load product", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": product})
}
