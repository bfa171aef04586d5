package catalog

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a product lookup matches nothing.
var ErrNotFound = errors.New("catalog: product not found")

// Store captures the persistence methods required by the catalog service.
type Store interface {
	FindProductByID(ctx context.Context, id string) (*Product, error)
	FindProductsByIDs(ctx context.Context, ids []string) ([]Product, error)
	ListProducts(ctx context.Context, filter ListFilter, limit, offset int) ([]Product, int64, error)
}

// ListFilter narrows product listings.
type ListFilter struct {
	Category   string
	Search     string
	ActiveOnly bool
}

// Service serves catalog reads for storefront and checkout.
type Service struct {
	Store Store
}

// Get returns one product by id.
func (s *Service) Get(ctx context.Context, id string) (*Product, error) {
	return s.Store.FindProductByID(ctx, id)
}

// List returns products matching the filter with a total count.
func (s *Service) List(ctx context.Context, filter ListFilter, limit, offset int) ([]Product, int64, error) {
	return s.Store.ListProducts(ctx, filter, limit, offset)
}

// ResolveForOrder loads the products referenced by an order and verifies each
// one exists and is active. The result is keyed by hex id. Any missing or
// inactive product fails the whole resolution.
func (s *Service) ResolveForOrder(ctx context.Context, ids []string) (map[string]*Product, error) {
	if len(ids) == 0 {
		return nil, ErrNotFound
	}
	products, err := s.Store.FindProductsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*Product, len(products))
	for i := range products {
		p := &products[i]
		byID[p.ID.Hex()] = p
	}
	for _, id := range ids {
		p, ok := byID[id]
		if !ok || !p.IsActive {
			return nil, ErrNotFound
		}
	}
	return byID, nil
}
