package pricing

import (
	"errors"
	"strings"
	"time"
)

// Money represents a monetary value stored in minor units.
type Money = int64

// Discount kinds supported by offers.
const (
	KindPercentage = "percentage"
	KindFlat       = "flat"
)

// ErrInvalidOrderLine is returned when the line set cannot form a valid order.
var ErrInvalidOrderLine = errors.New("pricing: invalid order line")

// Line describes one order line with its captured unit and add-on prices.
type Line struct {
	UnitPrice  Money
	AddOnPrice Money
	Qty        int
}

// Offer captures the discount rule evaluated at checkout.
type Offer struct {
	Code              string
	Kind              string
	Value             int64
	MinOrderAmount    Money
	MaxDiscountAmount Money
	StartsAt          *time.Time
	EndsAt            *time.Time
	Active            bool
}

// Quote aggregates computed pricing components.
type Quote struct {
	Subtotal Money
	Discount Money
	Total    Money
}

// Applicable reports whether the offer may discount the given subtotal at the
// provided instant. An absent window bound is unbounded on that side.
func (o Offer) Applicable(now time.Time, subtotal Money) bool {
	if !o.Active {
		return false
	}
	if o.StartsAt != nil && now.Before(*o.StartsAt) {
		return false
	}
	if o.EndsAt != nil && now.After(*o.EndsAt) {
		return false
	}
	if subtotal < o.MinOrderAmount {
		return false
	}
	return true
}

// Compute calculates subtotal, discount, and total for the given lines.
// An ineligible or missing offer yields a zero discount, never an error.
// The line set itself must be well formed: at least one line, quantity >= 1,
// no negative prices.
func Compute(lines []Line, offer *Offer, now time.Time) (Quote, error) {
	if len(lines) == 0 {
		return Quote{}, ErrInvalidOrderLine
	}
	var subtotal Money
	for _, line := range lines {
		if line.Qty < 1 || line.UnitPrice < 0 || line.AddOnPrice < 0 {
			return Quote{}, ErrInvalidOrderLine
		}
		subtotal += (line.UnitPrice + line.AddOnPrice) * Money(line.Qty)
	}

	var discount Money
	if offer != nil && offer.Applicable(now, subtotal) {
		switch strings.ToLower(offer.Kind) {
		case KindPercentage:
			discount = roundHalfUpDiv(subtotal*offer.Value, 100)
			if offer.MaxDiscountAmount > 0 && discount > offer.MaxDiscountAmount {
				discount = offer.MaxDiscountAmount
			}
		case KindFlat:
			// flat discounts are not clamped against the subtotal; the total
			// floor below keeps the result non-negative
			discount = offer.Value
		}
		if discount < 0 {
			discount = 0
		}
	}

	total := subtotal - discount
	if total < 0 {
		total = 0
	}
	return Quote{Subtotal: subtotal, Discount: discount, Total: total}, nil
}

// roundHalfUpDiv divides a non-negative numerator rounding half up.
func roundHalfUpDiv(numerator, denominator Money) Money {
	if denominator <= 0 {
		return 0
	}
	return (numerator + denominator/2) / denominator
}
