package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/digicoders-git/ksmedical-backend/internal/catalog"
	"github.com/digicoders-git/ksmedical-backend/internal/obs"
	"github.com/digicoders-git/ksmedical-backend/internal/offer"
	"github.com/digicoders-git/ksmedical-backend/internal/pricing"
)

// Service errors surfaced to handlers.
var (
	ErrNotFound          = errors.New("order: not found")
	ErrNotCancellable    = errors.New("order: only pending orders can be cancelled")
	ErrInvalidTransition = errors.New("order: invalid status transition")
)

// Store captures the persistence methods required by the order service.
type Store interface {
	InsertOrder(ctx context.Context, o *Order) error
	FindOrderByID(ctx context.Context, id string) (*Order, error)
	ListOrdersByUser(ctx context.Context, userID string, limit, offset int) ([]Order, int64, error)
	ListOrders(ctx context.Context, status string, limit, offset int) ([]Order, int64, error)
	UpdateOrderStatus(ctx context.Context, id, from, to string) (*Order, error)
	SetPaymentStatus(ctx context.Context, id, status string) (*Order, error)
}

// Publisher emits domain events after state changes commit.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) error
}

// Service coordinates product resolution, offer evaluation, and pricing into
// order placement.
type Service struct {
	Store   Store
	Catalog *catalog.Service
	Offers  *offer.Service
	Events  Publisher
	Log     zerolog.Logger
	Now     func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// PlaceInput is the accepted order placement request.
type PlaceInput struct {
	Items           []PlaceItem
	OfferCode       string
	ShippingAddress ShippingAddress
}

// PlaceItem references a product by id with a quantity and optional add-on.
type PlaceItem struct {
	ProductID  string
	Qty        int
	AddOnPrice int64
}

// Place resolves products, evaluates the optional offer, computes pricing,
// and persists the order. Prices are captured from the catalog at placement
// time, never trusted from the request.
func (s *Service) Place(ctx context.Context, userID string, in PlaceInput) (*Order, error) {
	if len(in.Items) == 0 {
		if obs.OrdersPlacedTotal != nil {
			obs.OrdersPlacedTotal.WithLabelValues("rejected").Inc()
		}
		return nil, pricing.ErrInvalidOrderLine
	}
	ids := make([]string, 0, len(in.Items))
	for _, item := range in.Items {
		ids = append(ids, item.ProductID)
	}
	products, err := s.Catalog.ResolveForOrder(ctx, ids)
	if err != nil {
		if obs.OrdersPlacedTotal != nil {
			obs.OrdersPlacedTotal.WithLabelValues("rejected").Inc()
		}
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, pricing.ErrInvalidOrderLine
		}
		return nil, err
	}

	lines := make([]pricing.Line, 0, len(in.Items))
	items := make([]Item, 0, len(in.Items))
	for _, item := range in.Items {
		p := products[item.ProductID]
		lines = append(lines, pricing.Line{
			UnitPrice:  p.Price,
			AddOnPrice: item.AddOnPrice,
			Qty:        item.Qty,
		})
		items = append(items, Item{
			ProductID:  item.ProductID,
			Name:       p.Name,
			UnitPrice:  p.Price,
			AddOnPrice: item.AddOnPrice,
			Qty:        item.Qty,
		})
	}

	var rule *pricing.Offer
	if in.OfferCode != "" {
		rule, err = s.Offers.Resolve(ctx, in.OfferCode)
		if err != nil {
			if errors.Is(err, offer.ErrNotFound) {
				if obs.OrdersPlacedTotal != nil {
					obs.OrdersPlacedTotal.WithLabelValues("rejected").Inc()
				}
				return nil, offer.ErrNotFound
			}
			return nil, err
		}
	}

	quote, err := pricing.Compute(lines, rule, s.now())
	if err != nil {
		if obs.OrdersPlacedTotal != nil {
			obs.OrdersPlacedTotal.WithLabelValues("rejected").Inc()
		}
		return nil, err
	}

	now := s.now()
	o := &Order{
		UserID:          userID,
		Items:           items,
		Subtotal:        quote.Subtotal,
		Discount:        quote.Discount,
		Total:           quote.Total,
		Status:          StatusPending,
		PaymentStatus:   PaymentPending,
		ShippingAddress: in.ShippingAddress,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if quote.Discount > 0 && rule != nil {
		o.OfferCode = rule.Code
	}
	if err := s.Store.InsertOrder(ctx, o); err != nil {
		if obs.OrdersPlacedTotal != nil {
			obs.OrdersPlacedTotal.WithLabelValues("error").Inc()
		}
		return nil, err
	}
	if obs.OrdersPlacedTotal != nil {
		obs.OrdersPlacedTotal.WithLabelValues("ok").Inc()
	}

	if s.Events != nil {
		payload := map[string]any{
			"orderId": o.ID.Hex(),
			"userId":  o.UserID,
			"total":   o.Total,
		}
		if err := s.Events.Publish(ctx, "order.created", payload); err != nil {
			s.Log.Warn().Err(err).Str("order_id", o.ID.Hex()).Msg("publish order.created failed")
		}
	}
	return o, nil
}

// Get returns an order, enforcing that non-admin callers only see their own.
func (s *Service) Get(ctx context.Context, id, userID string, admin bool) (*Order, error) {
	o, err := s.Store.FindOrderByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !admin && o.UserID != userID {
		return nil, ErrNotFound
	}
	return o, nil
}

// ListForUser pages through the caller's orders.
func (s *Service) ListForUser(ctx context.Context, userID string, limit, offset int) ([]Order, int64, error) {
	return s.Store.ListOrdersByUser(ctx, userID, limit, offset)
}

// ListAll pages through every order, optionally filtered by status.
func (s *Service) ListAll(ctx context.Context, status string, limit, offset int) ([]Order, int64, error) {
	return s.Store.ListOrders(ctx, status, limit, offset)
}

// Cancel moves a pending order to cancelled. Any other status is refused.
func (s *Service) Cancel(ctx context.Context, id, userID string) (*Order, error) {
	o, err := s.Store.FindOrderByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, ErrNotFound
	}
	if o.Status != StatusPending {
		return nil, ErrNotCancellable
	}
	updated, err := s.Store.UpdateOrderStatus(ctx, id, StatusPending, StatusCancelled)
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// SetStatus applies an admin-driven lifecycle transition. The store update is
// conditional on the expected current status so concurrent transitions cannot
// double-apply.
func (s *Service) SetStatus(ctx context.Context, id, to string) (*Order, error) {
	o, err := s.Store.FindOrderByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(o.Status, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, to)
	}
	return s.Store.UpdateOrderStatus(ctx, id, o.Status, to)
}

// SetPaymentStatus records the payment outcome reported by the gateway.
func (s *Service) SetPaymentStatus(ctx context.Context, id, status string) (*Order, error) {
	switch status {
	case PaymentPending, PaymentPaid, PaymentFailed:
	default:
		return nil, fmt.Errorf("%w: payment status %q", ErrInvalidTransition, status)
	}
	return s.Store.SetPaymentStatus(ctx, id, status)
}
