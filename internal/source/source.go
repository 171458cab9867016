package source

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/Yusufzhafir/go-auction/pkg/model"
	"github.com/shopspring/decimal"
)

// Params shape the generated order flow. Prices fall in
// [PriceMin, PriceMin+PriceSpread) with two decimals.
type Params struct {
	Seed        uint64
	PriceMin    int64
	PriceSpread int64
	MaxQuantity int64
}

type Request struct {
	Side     model.Side
	Price    model.Price
	Quantity model.Quantity
}

// SubmitFunc receives every generated request. Returning an error stops Run.
type SubmitFunc func(ctx context.Context, r Request) error

type Generator struct {
	params Params
	rng    *rand.Rand
}

func New(p Params) (*Generator, error) {
	if p.PriceMin <= 0 {
		return nil, fmt.Errorf("price min must be positive, got %d", p.PriceMin)
	}
	if p.PriceSpread <= 0 {
		return nil, fmt.Errorf("price spread must be positive, got %d", p.PriceSpread)
	}
	if p.MaxQuantity <= 0 {
		return nil, fmt.Errorf("max quantity must be positive, got %d", p.MaxQuantity)
	}
	return &Generator{
		params: p,
		rng:    rand.New(rand.NewPCG(p.Seed, p.Seed^0x9e3779b97f4a7c15)),
	}, nil
}

// Next draws one request: an even coin for the side, an integer offset plus
// a fractional part for the price, and a quantity in [1, MaxQuantity].
func (g *Generator) Next() Request {
	side := model.BID
	if g.rng.IntN(2) == 1 {
		side = model.ASK
	}
	whole := g.params.PriceMin + g.rng.Int64N(g.params.PriceSpread)
	return Request{
		Side:     side,
		Price:    toCents(whole, g.rng.Float64(), g.params.PriceMin+g.params.PriceSpread),
		Quantity: model.Quantity(1 + g.rng.Int64N(g.params.MaxQuantity)),
	}
}

var cent = decimal.New(1, -2)

// toCents rounds whole+frac to cents, keeping the result below limit.
func toCents(whole int64, frac float64, limit int64) model.Price {
	price := decimal.NewFromInt(whole).Add(decimal.NewFromFloat(frac)).Round(2)
	if upper := decimal.NewFromInt(limit); !price.LessThan(upper) {
		price = upper.Sub(cent)
	}
	return price
}

// Run feeds n requests to submit, stopping early when ctx is done or submit
// fails. Invalid-order errors do not stop the run. It returns the number of
// requests handed to submit.
func (g *Generator) Run(ctx context.Context, n int, submit SubmitFunc) (int, error) {
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		if err := submit(ctx, g.Next()); err != nil && !errors.Is(err, model.ErrInvalidOrder) {
			return i + 1, fmt.Errorf("order %d: %w", i, err)
		}
	}
	return n, nil
}
