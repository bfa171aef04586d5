package pricing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tt(s string) *time.Time {
	v, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return &v
}

func TestComputeSubtotalAndFlatDiscount(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	lines := []Line{
		{UnitPrice: 400, Qty: 1},
		{UnitPrice: 300, Qty: 2},
	}
	offer := &Offer{
		Code:           "WELCOME150",
		Kind:           KindFlat,
		Value:          150,
		MinOrderAmount: 500,
		Active:         true,
	}

	q, err := Compute(lines, offer, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), q.Subtotal)
	assert.Equal(t, int64(150), q.Discount)
	assert.Equal(t, int64(850), q.Total)
}

func TestComputePercentageRoundsHalfUp(t *testing.T) {
	now := time.Now()
	cases := []struct {
		name     string
		subtotal int64
		value    int64
		want     int64
	}{
		{"exact", 1000, 10, 100},
		{"rounds up at half", 125, 10, 13},
		{"rounds down below half", 124, 10, 12},
		{"one unit", 1, 33, 0},
		{"two units", 2, 33, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			lines := []Line{{UnitPrice: tc.subtotal, Qty: 1}}
			offer := &Offer{Kind: KindPercentage, Value: tc.value, Active: true}
			q, err := Compute(lines, offer, now)
			require.NoError(t, err)
			assert.Equal(t, tc.want, q.Discount)
			assert.Equal(t, tc.subtotal-tc.want, q.Total)
		})
	}
}

func TestComputePercentageDiscountMonotonic(t *testing.T) {
	now := time.Now()
	offer := &Offer{Kind: KindPercentage, Value: 7, Active: true}

	prev := int64(-1)
	for subtotal := int64(1); subtotal <= 5000; subtotal += 13 {
		q, err := Compute([]Line{{UnitPrice: subtotal, Qty: 1}}, offer, now)
		require.NoError(t, err)
		require.GreaterOrEqual(t, q.Discount, prev, "subtotal %d", subtotal)
		prev = q.Discount
	}
}

func TestComputePercentageCap(t *testing.T) {
	now := time.Now()
	lines := []Line{{UnitPrice: 10000, Qty: 1}}
	offer := &Offer{
		Kind:              KindPercentage,
		Value:             20,
		MaxDiscountAmount: 500,
		Active:            true,
	}

	q, err := Compute(lines, offer, now)
	require.NoError(t, err)
	assert.Equal(t, int64(500), q.Discount)
	assert.Equal(t, int64(9500), q.Total)
}

func TestComputeIneligibleOfferYieldsZeroDiscount(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	lines := []Line{{UnitPrice: 400, Qty: 1}}

	cases := []struct {
		name  string
		offer *Offer
	}{
		{"nil offer", nil},
		{"inactive", &Offer{Kind: KindFlat, Value: 50}},
		{"below minimum", &Offer{Kind: KindFlat, Value: 50, MinOrderAmount: 500, Active: true}},
		{"not started", &Offer{Kind: KindFlat, Value: 50, StartsAt: tt("2026-04-01T00:00:00Z"), Active: true}},
		{"expired", &Offer{Kind: KindFlat, Value: 50, EndsAt: tt("2026-03-01T00:00:00Z"), Active: true}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q, err := Compute(lines, tc.offer, now)
			require.NoError(t, err)
			assert.Equal(t, int64(400), q.Subtotal)
			assert.Zero(t, q.Discount)
			assert.Equal(t, int64(400), q.Total)
		})
	}
}

func TestComputeWindowBoundsInclusive(t *testing.T) {
	start := tt("2026-03-01T00:00:00Z")
	end := tt("2026-03-31T23:59:59Z")
	offer := &Offer{Kind: KindFlat, Value: 10, StartsAt: start, EndsAt: end, Active: true}
	lines := []Line{{UnitPrice: 100, Qty: 1}}

	atStart, err := Compute(lines, offer, *start)
	require.NoError(t, err)
	assert.Equal(t, int64(10), atStart.Discount)

	atEnd, err := Compute(lines, offer, *end)
	require.NoError(t, err)
	assert.Equal(t, int64(10), atEnd.Discount)
}

func TestComputeFlatDiscountFloorsAtZero(t *testing.T) {
	lines := []Line{{UnitPrice: 100, Qty: 1}}
	offer := &Offer{Kind: KindFlat, Value: 250, Active: true}

	q, err := Compute(lines, offer, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(100), q.Subtotal)
	assert.Equal(t, int64(250), q.Discount)
	assert.Zero(t, q.Total)
}

func TestComputeAddOnPricesCountTowardSubtotal(t *testing.T) {
	lines := []Line{{UnitPrice: 300, AddOnPrice: 50, Qty: 2}}

	q, err := Compute(lines, nil, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(700), q.Subtotal)
}

func TestComputeRejectsInvalidLines(t *testing.T) {
	now := time.Now()
	cases := []struct {
		name  string
		lines []Line
	}{
		{"empty", nil},
		{"zero qty", []Line{{UnitPrice: 100, Qty: 0}}},
		{"negative qty", []Line{{UnitPrice: 100, Qty: -1}}},
		{"negative price", []Line{{UnitPrice: -100, Qty: 1}}},
		{"negative add-on", []Line{{UnitPrice: 100, AddOnPrice: -5, Qty: 1}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Compute(tc.lines, nil, now)
			assert.ErrorIs(t, err, ErrInvalidOrderLine)
		})
	}
}
