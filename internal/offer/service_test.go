package offer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStore struct {
	byCode   map[string]*Offer
	inserted []*Offer
}

func newStubStore() *stubStore {
	return &stubStore{byCode: map[string]*Offer{}}
}

func (s *stubStore) InsertOffer(_ context.Context, o *Offer) error {
	if _, ok := s.byCode[o.Code]; ok {
		return ErrCodeTaken
	}
	s.byCode[o.Code] = o
	s.inserted = append(s.inserted, o)
	return nil
}

func (s *stubStore) UpdateOffer(_ context.Context, id string, set map[string]any) (*Offer, error) {
	return nil, ErrNotFound
}

func (s *stubStore) DeleteOffer(_ context.Context, id string) error { return ErrNotFound }

func (s *stubStore) FindOfferByID(_ context.Context, id string) (*Offer, error) {
	return nil, ErrNotFound
}

func (s *stubStore) FindOfferByCode(_ context.Context, code string) (*Offer, error) {
	o, ok := s.byCode[code]
	if !ok {
		return nil, ErrNotFound
	}
	return o, nil
}

func (s *stubStore) ListOffers(_ context.Context, activeOnly bool, limit, offset int) ([]Offer, int64, error) {
	out := make([]Offer, 0, len(s.byCode))
	for _, o := range s.byCode {
		if activeOnly && !o.IsActive {
			continue
		}
		out = append(out, *o)
	}
	return out, int64(len(out)), nil
}

func TestCreateNormalizesCodeAndKind(t *testing.T) {
	st := newStubStore()
	svc := &Service{Store: st}

	o, err := svc.Create(context.Background(), CreateInput{
		Code:          "  welcome10 ",
		Title:         "Welcome",
		DiscountType:  "Percentage",
		DiscountValue: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, "WELCOME10", o.Code)
	assert.Equal(t, "percentage", o.DiscountType)
	assert.True(t, o.IsActive)
}

func TestCreateValidation(t *testing.T) {
	svc := &Service{Store: newStubStore()}
	cases := []struct {
		name string
		in   CreateInput
	}{
		{"missing code", CreateInput{DiscountType: "flat", DiscountValue: 10}},
		{"bad kind", CreateInput{Code: "X", DiscountType: "bogo", DiscountValue: 10}},
		{"percentage over 100", CreateInput{Code: "X", DiscountType: "percentage", DiscountValue: 150}},
		{"zero flat", CreateInput{Code: "X", DiscountType: "flat", DiscountValue: 0}},
		{"inverted window", CreateInput{
			Code: "X", DiscountType: "flat", DiscountValue: 10,
			StartsAt: timePtr("2026-04-01T00:00:00Z"),
			EndsAt:   timePtr("2026-03-01T00:00:00Z"),
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tc.in)
			assert.Error(t, err)
		})
	}
}

func TestCreateDuplicateCode(t *testing.T) {
	svc := &Service{Store: newStubStore()}
	_, err := svc.Create(context.Background(), CreateInput{Code: "DUP", DiscountType: "flat", DiscountValue: 10})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), CreateInput{Code: "dup", DiscountType: "flat", DiscountValue: 20})
	assert.ErrorIs(t, err, ErrCodeTaken)
}

func TestResolveMatchesCaseInsensitively(t *testing.T) {
	svc := &Service{Store: newStubStore()}
	_, err := svc.Create(context.Background(), CreateInput{Code: "SAVE20", DiscountType: "percentage", DiscountValue: 20})
	require.NoError(t, err)

	rule, err := svc.Resolve(context.Background(), " save20 ")
	require.NoError(t, err)
	require.NotNil(t, rule)
	assert.Equal(t, "SAVE20", rule.Code)
	assert.Equal(t, int64(20), rule.Value)
}

func TestResolveUnknownCode(t *testing.T) {
	svc := &Service{Store: newStubStore()}
	_, err := svc.Resolve(context.Background(), "NOPE")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveEmptyCodeIsNoOffer(t *testing.T) {
	svc := &Service{Store: newStubStore()}
	rule, err := svc.Resolve(context.Background(), "  ")
	require.NoError(t, err)
	assert.Nil(t, rule)
}

func timePtr(s string) *time.Time {
	v, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return &v
}
