package offer

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/digicoders-git/ksmedical-backend/internal/common"
	"github.com/digicoders-git/ksmedical-backend/internal/pricing"
)

// ErrNotFound is returned when no offer matches the requested code or id.
var ErrNotFound = errors.New("offer: not found")

// ErrCodeTaken is returned when creating an offer with a code already in use.
var ErrCodeTaken = errors.New("offer: code already exists")

// Store captures the persistence methods required by the offer service.
type Store interface {
	InsertOffer(ctx context.Context, o *Offer) error
	UpdateOffer(ctx context.Context, id string, set map[string]any) (*Offer, error)
	DeleteOffer(ctx context.Context, id string) error
	FindOfferByID(ctx context.Context, id string) (*Offer, error)
	FindOfferByCode(ctx context.Context, code string) (*Offer, error)
	ListOffers(ctx context.Context, activeOnly bool, limit, offset int) ([]Offer, int64, error)
}

// Service encapsulates offer management and checkout-time resolution.
type Service struct {
	Store Store
	Now   func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// CreateInput carries the fields accepted when creating or replacing an offer.
type CreateInput struct {
	Code              string
	Title             string
	Description       string
	DiscountType      string
	DiscountValue     int64
	MinOrderAmount    int64
	MaxDiscountAmount int64
	StartsAt          *time.Time
	EndsAt            *time.Time
	IsActive          *bool
}

func (in CreateInput) validate() error {
	if strings.TrimSpace(in.Code) == "" {
		return common.BadRequest("code is required")
	}
	switch strings.ToLower(in.DiscountType) {
	case pricing.KindPercentage:
		if in.DiscountValue < 1 || in.DiscountValue > 100 {
			return common.BadRequest("percentage value must be between 1 and 100")
		}
	case pricing.KindFlat:
		if in.DiscountValue < 1 {
			return common.BadRequest("flat value must be positive")
		}
	default:
		return common.BadRequest("discountType must be percentage or flat")
	}
	if in.MinOrderAmount < 0 || in.MaxDiscountAmount < 0 {
		return common.BadRequest("amounts must not be negative")
	}
	if in.StartsAt != nil && in.EndsAt != nil && in.EndsAt.Before(*in.StartsAt) {
		return common.BadRequest("endsAt must not precede startsAt")
	}
	return nil
}

// Create persists a new offer. Codes are stored uppercase and must be unique.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Offer, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	now := s.now()
	o := &Offer{
		Code:              strings.ToUpper(strings.TrimSpace(in.Code)),
		Title:             strings.TrimSpace(in.Title),
		Description:       strings.TrimSpace(in.Description),
		DiscountType:      strings.ToLower(in.DiscountType),
		DiscountValue:     in.DiscountValue,
		MinOrderAmount:    in.MinOrderAmount,
		MaxDiscountAmount: in.MaxDiscountAmount,
		StartsAt:          in.StartsAt,
		EndsAt:            in.EndsAt,
		IsActive:          active,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.Store.InsertOffer(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// UpdateInput carries the optional fields accepted on update. Nil means keep.
type UpdateInput struct {
	Title             *string
	Description       *string
	DiscountType      *string
	DiscountValue     *int64
	MinOrderAmount    *int64
	MaxDiscountAmount *int64
	StartsAt          *time.Time
	EndsAt            *time.Time
	IsActive          *bool
}

// Update applies a partial update to an existing offer.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*Offer, error) {
	set := map[string]any{"updatedAt": s.now()}
	if in.Title != nil {
		set["title"] = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		set["description"] = strings.TrimSpace(*in.Description)
	}
	if in.DiscountType != nil {
		kind := strings.ToLower(*in.DiscountType)
		if kind != pricing.KindPercentage && kind != pricing.KindFlat {
			return nil, common.BadRequest("discountType must be percentage or flat")
		}
		set["discountType"] = kind
	}
	if in.DiscountValue != nil {
		if *in.DiscountValue < 1 {
			return nil, common.BadRequest("discount value must be positive")
		}
		set["discountValue"] = *in.DiscountValue
	}
	if in.MinOrderAmount != nil {
		set["minOrderAmount"] = *in.MinOrderAmount
	}
	if in.MaxDiscountAmount != nil {
		set["maxDiscountAmount"] = *in.MaxDiscountAmount
	}
	if in.StartsAt != nil {
		set["startsAt"] = *in.StartsAt
	}
	if in.EndsAt != nil {
		set["endsAt"] = *in.EndsAt
	}
	if in.IsActive != nil {
		set["isActive"] = *in.IsActive
	}
	return s.Store.UpdateOffer(ctx, id, set)
}

// Delete removes the offer by id.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.Store.DeleteOffer(ctx, id)
}

// Get returns the offer by id.
func (s *Service) Get(ctx context.Context, id string) (*Offer, error) {
	return s.Store.FindOfferByID(ctx, id)
}

// List returns offers with total count for pagination.
func (s *Service) List(ctx context.Context, activeOnly bool, limit, offset int) ([]Offer, int64, error) {
	return s.Store.ListOffers(ctx, activeOnly, limit, offset)
}

// Resolve looks up an offer by code for checkout evaluation. It returns the
// pricing rule only when the offer exists; eligibility against the subtotal
// and window is decided by the pricing engine, so a found-but-stale offer
// still resolves and simply contributes no discount.
func (s *Service) Resolve(ctx context.Context, code string) (*pricing.Offer, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(code))
	if trimmed == "" {
		return nil, nil
	}
	o, err := s.Store.FindOfferByCode(ctx, trimmed)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return o.rule(), nil
}

func (o *Offer) rule() *pricing.Offer {
	return &pricing.Offer{
		Code:              o.Code,
		Kind:              o.DiscountType,
		Value:             o.DiscountValue,
		MinOrderAmount:    o.MinOrderAmount,
		MaxDiscountAmount: o.MaxDiscountAmount,
		StartsAt:          o.StartsAt,
		EndsAt:            o.EndsAt,
		Active:            o.IsActive,
	}
}
