package model

import (
	"github.com/Yusufzhafir/go-auction/pkg/model"
	"github.com/google/btree"
)

// BidLess ranks bids best first: higher price, then earlier arrival.
func BidLess(a, b *model.Order) bool {
	if c := a.GetPrice().Cmp(b.GetPrice()); c != 0 {
		return c > 0 // Reverse
	}
	return a.GetSequence() < b.GetSequence()
}

// AskLess ranks asks best first: lower price, then earlier arrival.
func AskLess(a, b *model.Order) bool {
	if c := a.GetPrice().Cmp(b.GetPrice()); c != 0 {
		return c < 0
	}
	return a.GetSequence() < b.GetSequence()
}

// PriceLevel aggregates the resident orders sharing one price.
type PriceLevel struct {
	Price       model.Price
	Orders      []*model.Order
	TotalVolume model.Quantity
}

func (pl *PriceLevel) add(o *model.Order) {
	pl.Orders = append(pl.Orders, o)
	pl.TotalVolume += o.GetRemainingQuantity()
}

// BookSide is one side of the book. Orders are keyed by (price, sequence) so
// the minimum of the tree is always the order with matching priority.
type BookSide struct {
	tree *btree.BTreeG[*model.Order]
}

func NewBidSide(degree int) *BookSide {
	return &BookSide{tree: btree.NewG(degree, BidLess)}
}

func NewAskSide(degree int) *BookSide {
	return &BookSide{tree: btree.NewG(degree, AskLess)}
}

func (s *BookSide) Len() int { return s.tree.Len() }

// Insert adds o and reports whether an order with the same key was already
// resident (in which case it is replaced).
func (s *BookSide) Insert(o *model.Order) (replaced bool) {
	_, replaced = s.tree.ReplaceOrInsert(o)
	return replaced
}

// Best returns the order with matching priority without removing it.
func (s *BookSide) Best() (*model.Order, bool) {
	return s.tree.Min()
}

func (s *BookSide) Delete(o *model.Order) bool {
	_, ok := s.tree.Delete(o)
	return ok
}

// Ascend visits orders in priority order until fn returns false.
func (s *BookSide) Ascend(fn func(o *model.Order) bool) {
	s.tree.Ascend(btree.ItemIteratorG[*model.Order](fn))
}

// Orders returns copies of the resident orders in priority order.
func (s *BookSide) Orders() []model.Order {
	out := make([]model.Order, 0, s.tree.Len())
	s.Ascend(func(o *model.Order) bool {
		out = append(out, *o)
		return true
	})
	return out
}

// Levels groups up to n price levels in priority order; n <= 0 means all.
func (s *BookSide) Levels(n int) []*PriceLevel {
	levels := make([]*PriceLevel, 0)
	var cur *PriceLevel
	s.Ascend(func(o *model.Order) bool {
		if cur == nil || !cur.Price.Equal(o.GetPrice()) {
			if n > 0 && len(levels) == n {
				return false // Stop iteration
			}
			cur = &PriceLevel{Price: o.GetPrice()}
			levels = append(levels, cur)
		}
		cur.add(o)
		return true
	})
	return levels
}
