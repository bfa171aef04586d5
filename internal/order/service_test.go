package order

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/digicoders-git/ksmedical-backend/internal/catalog"
	"github.com/digicoders-git/ksmedical-backend/internal/offer"
	"github.com/digicoders-git/ksmedical-backend/internal/pricing"
)

type stubCatalog struct {
	products map[string]*catalog.Product
}

func (s *stubCatalog) FindProductByID(_ context.Context, id string) (*catalog.Product, error) {
	p, ok := s.products[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return p, nil
}

func (s *stubCatalog) FindProductsByIDs(_ context.Context, ids []string) ([]catalog.Product, error) {
	var out []catalog.Product
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *stubCatalog) ListProducts(_ context.Context, _ catalog.ListFilter, _, _ int) ([]catalog.Product, int64, error) {
	return nil, 0, nil
}

type stubOfferStore struct {
	byCode map[string]*offer.Offer
}

func (s *stubOfferStore) InsertOffer(_ context.Context, _ *offer.Offer) error { return nil }
func (s *stubOfferStore) UpdateOffer(_ context.Context, _ string, _ map[string]any) (*offer.Offer, error) {
	return nil, offer.ErrNotFound
}
func (s *stubOfferStore) DeleteOffer(_ context.Context, _ string) error { return offer.ErrNotFound }
func (s *stubOfferStore) FindOfferByID(_ context.Context, _ string) (*offer.Offer, error) {
	return nil, offer.ErrNotFound
}
func (s *stubOfferStore) FindOfferByCode(_ context.Context, code string) (*offer.Offer, error) {
	o, ok := s.byCode[code]
	if !ok {
		return nil, offer.ErrNotFound
	}
	return o, nil
}
func (s *stubOfferStore) ListOffers(_ context.Context, _ bool, _, _ int) ([]offer.Offer, int64, error) {
	return nil, 0, nil
}

type stubOrderStore struct {
	orders map[string]*Order
	seq    int
}

func newStubOrderStore() *stubOrderStore {
	return &stubOrderStore{orders: map[string]*Order{}}
}

func (s *stubOrderStore) InsertOrder(_ context.Context, o *Order) error {
	s.seq++
	o.ID = primitive.NewObjectID()
	clone := *o
	s.orders[o.ID.Hex()] = &clone
	return nil
}

func (s *stubOrderStore) FindOrderByID(_ context.Context, id string) (*Order, error) {
	o, ok := s.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *o
	return &clone, nil
}

func (s *stubOrderStore) ListOrdersByUser(_ context.Context, userID string, _, _ int) ([]Order, int64, error) {
	var out []Order
	for _, o := range s.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, int64(len(out)), nil
}

func (s *stubOrderStore) ListOrders(_ context.Context, status string, _, _ int) ([]Order, int64, error) {
	var out []Order
	for _, o := range s.orders {
		if status == "" || o.Status == status {
			out = append(out, *o)
		}
	}
	return out, int64(len(out)), nil
}

func (s *stubOrderStore) UpdateOrderStatus(_ context.Context, id, from, to string) (*Order, error) {
	o, ok := s.orders[id]
	if !ok || o.Status != from {
		return nil, ErrInvalidTransition
	}
	o.Status = to
	clone := *o
	return &clone, nil
}

func (s *stubOrderStore) SetPaymentStatus(_ context.Context, id, status string) (*Order, error) {
	o, ok := s.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	o.PaymentStatus = status
	clone := *o
	return &clone, nil
}

func newTestService(t *testing.T) (*Service, *stubOrderStore, map[string]string) {
	t.Helper()
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	products := map[string]*catalog.Product{
		"p1": {ID: primitive.NewObjectID(), Name: "Thermometer", Price: 400, IsActive: true},
		"p2": {ID: primitive.NewObjectID(), Name: "Bandage", Price: 300, IsActive: true},
		"p3": {ID: primitive.NewObjectID(), Name: "Retired", Price: 100, IsActive: false},
	}
	// the catalog resolves ids to its own hex ids; rekey so lookups work
	keyed := map[string]*catalog.Product{}
	for _, p := range products {
		keyed[p.ID.Hex()] = p
	}
	offers := &stubOfferStore{byCode: map[string]*offer.Offer{
		"SAVE150": {
			Code: "SAVE150", DiscountType: "flat", DiscountValue: 150,
			MinOrderAmount: 500, IsActive: true,
		},
	}}
	st := newStubOrderStore()
	svc := &Service{
		Store:   st,
		Catalog: &catalog.Service{Store: &stubCatalog{products: keyed}},
		Offers:  &offer.Service{Store: offers, Now: func() time.Time { return now }},
		Log:     zerolog.Nop(),
		Now:     func() time.Time { return now },
	}
	idsByName := map[string]string{}
	for id, p := range keyed {
		idsByName[p.Name] = id
	}
	return svc, st, idsByName
}

func TestPlaceCapturesCatalogPrices(t *testing.T) {
	svc, _, ids := newTestService(t)
	in := PlaceInput{
		Items: []PlaceItem{
			{ProductID: ids["Thermometer"], Qty: 1},
			{ProductID: ids["Bandage"], Qty: 2},
		},
	}
	o, err := svc.Place(context.Background(), "u1", in)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), o.Subtotal)
	assert.Zero(t, o.Discount)
	assert.Equal(t, int64(1000), o.Total)
	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, PaymentPending, o.PaymentStatus)
	require.Len(t, o.Items, 2)
	assert.Equal(t, "Thermometer", o.Items[0].Name)
	assert.Equal(t, int64(400), o.Items[0].UnitPrice)
}

func TestPlaceAppliesOffer(t *testing.T) {
	svc, _, ids := newTestService(t)
	in := PlaceInput{
		Items: []PlaceItem{
			{ProductID: ids["Thermometer"], Qty: 1},
			{ProductID: ids["Bandage"], Qty: 2},
		},
		OfferCode: "save150",
	}
	o, err := svc.Place(context.Background(), "u1", in)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), o.Subtotal)
	assert.Equal(t, int64(150), o.Discount)
	assert.Equal(t, int64(850), o.Total)
	assert.Equal(t, "SAVE150", o.OfferCode)
}

func TestPlaceOfferBelowMinimumStillPlaces(t *testing.T) {
	svc, _, ids := newTestService(t)
	in := PlaceInput{
		Items:     []PlaceItem{{ProductID: ids["Thermometer"], Qty: 1}},
		OfferCode: "SAVE150",
	}
	o, err := svc.Place(context.Background(), "u1", in)
	require.NoError(t, err)
	assert.Equal(t, int64(400), o.Subtotal)
	assert.Zero(t, o.Discount)
	assert.Empty(t, o.OfferCode)
}

func TestPlaceUnknownOfferRejected(t *testing.T) {
	svc, _, ids := newTestService(t)
	in := PlaceInput{
		Items:     []PlaceItem{{ProductID: ids["Thermometer"], Qty: 1}},
		OfferCode: "NOPE",
	}
	_, err := svc.Place(context.Background(), "u1", in)
	assert.ErrorIs(t, err, offer.ErrNotFound)
}

func TestPlaceRejectsInactiveProduct(t *testing.T) {
	svc, _, ids := newTestService(t)
	in := PlaceInput{
		Items: []PlaceItem{{ProductID: ids["Retired"], Qty: 1}},
	}
	_, err := svc.Place(context.Background(), "u1", in)
	assert.ErrorIs(t, err, pricing.ErrInvalidOrderLine)
}

func TestPlaceRejectsUnknownProduct(t *testing.T) {
	svc, _, _ := newTestService(t)
	in := PlaceInput{
		Items: []PlaceItem{{ProductID: primitive.NewObjectID().Hex(), Qty: 1}},
	}
	_, err := svc.Place(context.Background(), "u1", in)
	assert.ErrorIs(t, err, pricing.ErrInvalidOrderLine)
}

func TestPlaceRejectsEmptyOrder(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Place(context.Background(), "u1", PlaceInput{})
	assert.ErrorIs(t, err, pricing.ErrInvalidOrderLine)
}

func TestCancelOnlyPending(t *testing.T) {
	svc, st, ids := newTestService(t)
	o, err := svc.Place(context.Background(), "u1", PlaceInput{
		Items: []PlaceItem{{ProductID: ids["Thermometer"], Qty: 1}},
	})
	require.NoError(t, err)

	cancelled, err := svc.Cancel(context.Background(), o.ID.Hex(), "u1")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)

	// a second cancel is refused
	_, err = svc.Cancel(context.Background(), o.ID.Hex(), "u1")
	assert.ErrorIs(t, err, ErrNotCancellable)

	st.orders[o.ID.Hex()].Status = StatusShipped
	_, err = svc.Cancel(context.Background(), o.ID.Hex(), "u1")
	assert.ErrorIs(t, err, ErrNotCancellable)
}

func TestCancelForeignOrderHidden(t *testing.T) {
	svc, _, ids := newTestService(t)
	o, err := svc.Place(context.Background(), "u1", PlaceInput{
		Items: []PlaceItem{{ProductID: ids["Thermometer"], Qty: 1}},
	})
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), o.ID.Hex(), "u2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStatusTransitions(t *testing.T) {
	svc, _, ids := newTestService(t)
	o, err := svc.Place(context.Background(), "u1", PlaceInput{
		Items: []PlaceItem{{ProductID: ids["Thermometer"], Qty: 1}},
	})
	require.NoError(t, err)
	id := o.ID.Hex()

	for _, to := range []string{StatusConfirmed, StatusShipped, StatusDelivered} {
		updated, err := svc.SetStatus(context.Background(), id, to)
		require.NoError(t, err)
		assert.Equal(t, to, updated.Status)
	}

	// delivered is terminal
	_, err = svc.SetStatus(context.Background(), id, StatusCancelled)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestStatusSkipRejected(t *testing.T) {
	svc, _, ids := newTestService(t)
	o, err := svc.Place(context.Background(), "u1", PlaceInput{
		Items: []PlaceItem{{ProductID: ids["Thermometer"], Qty: 1}},
	})
	require.NoError(t, err)

	_, err = svc.SetStatus(context.Background(), o.ID.Hex(), StatusDelivered)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSetPaymentStatus(t *testing.T) {
	svc, _, ids := newTestService(t)
	o, err := svc.Place(context.Background(), "u1", PlaceInput{
		Items: []PlaceItem{{ProductID: ids["Thermometer"], Qty: 1}},
	})
	require.NoError(t, err)

	updated, err := svc.SetPaymentStatus(context.Background(), o.ID.Hex(), PaymentPaid)
	require.NoError(t, err)
	assert.Equal(t, PaymentPaid, updated.PaymentStatus)

	_, err = svc.SetPaymentStatus(context.Background(), o.ID.Hex(), "refunded")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}
