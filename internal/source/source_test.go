package source

import (
	"context"
	"errors"
	"testing"

	"github.com/Yusufzhafir/go-auction/pkg/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

var defaults = Params{Seed: 7, PriceMin: 100, PriceSpread: 20, MaxQuantity: 10}

func TestNewValidatesParams(t *testing.T) {
	for _, p := range []Params{
		{PriceMin: 0, PriceSpread: 20, MaxQuantity: 10},
		{PriceMin: 100, PriceSpread: 0, MaxQuantity: 10},
		{PriceMin: 100, PriceSpread: 20, MaxQuantity: 0},
	} {
		_, err := New(p)
		assert.Error(t, err)
	}
}

func TestSameSeedSameFlow(t *testing.T) {
	a, err := New(defaults)
	require.NoError(t, err)
	b, err := New(defaults)
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		ra, rb := a.Next(), b.Next()
		assert.Equal(t, ra.Side, rb.Side)
		assert.True(t, ra.Price.Equal(rb.Price))
		assert.Equal(t, ra.Quantity, rb.Quantity)
	}
}

func TestRequestsStayInRange(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		p := Params{
			Seed:        rapid.Uint64().Draw(t, "seed"),
			PriceMin:    rapid.Int64Range(1, 1000).Draw(t, "min"),
			PriceSpread: rapid.Int64Range(1, 50).Draw(t, "spread"),
			MaxQuantity: rapid.Int64Range(1, 20).Draw(t, "maxQty"),
		}
		g, err := New(p)
		if err != nil {
			t.Fatal(err)
		}
		lo := decimal.NewFromInt(p.PriceMin)
		hi := decimal.NewFromInt(p.PriceMin + p.PriceSpread)
		for i := 0; i < 50; i++ {
			r := g.Next()
			if !r.Side.Valid() {
				t.Fatalf("invalid side %v", r.Side)
			}
			if r.Price.LessThan(lo) || !r.Price.LessThan(hi) {
				t.Fatalf("price %s outside [%s, %s)", r.Price, lo, hi)
			}
			if r.Price.Exponent() < -2 {
				t.Fatalf("price %s has more than two decimals", r.Price)
			}
			if r.Quantity < 1 || int64(r.Quantity) > p.MaxQuantity {
				t.Fatalf("quantity %d outside [1, %d]", r.Quantity, p.MaxQuantity)
			}
		}
	})
}

func TestToCentsRounds(t *testing.T) {
	cases := []struct {
		whole int64
		frac  float64
		limit int64
		want  string
	}{
		{100, 0.456, 120, "100.46"},
		{100, 0.454, 120, "100.45"},
		{105, 0, 120, "105"},
		{119, 0.996, 120, "119.99"},
		{100, 0.999, 101, "100.99"},
	}
	for _, tc := range cases {
		got := toCents(tc.whole, tc.frac, tc.limit)
		assert.Truef(t, got.Equal(decimal.RequireFromString(tc.want)),
			"toCents(%d, %v, %d) = %s, want %s", tc.whole, tc.frac, tc.limit, got, tc.want)
	}
}

func TestRunStopsOnContextAndErrors(t *testing.T) {
	g, err := New(defaults)
	require.NoError(t, err)

	count := 0
	n, err := g.Run(context.Background(), 25, func(context.Context, Request) error {
		count++
		if count%5 == 0 {
			return model.ErrInvalidOrder
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 25, n)
	assert.Equal(t, 25, count)

	boom := errors.New("boom")
	n, err = g.Run(context.Background(), 10, func(context.Context, Request) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, n)

	ctx, cancel := context.WithCancel(context.Background())
	n, err = g.Run(ctx, 10, func(context.Context, Request) error {
		cancel()
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, n)
}
