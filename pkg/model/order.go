package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type Side uint8

const (
	BID Side = iota
	ASK
)

func (s Side) String() string {
	switch s {
	case BID:
		return "BUY"
	case ASK:
		return "SELL"
	default:
		return fmt.Sprintf("Side(%d)", uint8(s))
	}
}

func (s Side) Valid() bool {
	return s == BID || s == ASK
}

type Price = decimal.Decimal
type Quantity int64
type OrderId uint64

// NewPrice is a shorthand for building prices from literals.
func NewPrice(v float64) Price {
	return decimal.NewFromFloat(v)
}

// Order is a limit order. Everything except the remaining quantity is fixed
// once the order is created.
type Order struct {
	id                OrderId
	side              Side
	price             Price
	initialQuantity   Quantity
	remainingQuantity Quantity
	sequence          uint64
}

func NewOrder(id OrderId, side Side, price Price, quantity Quantity) Order {
	return Order{
		id:                id,
		side:              side,
		price:             price,
		initialQuantity:   quantity,
		remainingQuantity: quantity,
	}
}

// Validate reports whether the order may enter a book.
func (o *Order) Validate() error {
	if !o.side.Valid() {
		return fmt.Errorf("%w: unknown side %d", ErrInvalidOrder, o.side)
	}
	if !o.price.IsPositive() {
		return fmt.Errorf("%w: %w: %s", ErrInvalidOrder, ErrInvalidPrice, o.price)
	}
	if o.initialQuantity <= 0 {
		return fmt.Errorf("%w: %w: %d", ErrInvalidOrder, ErrInvalidQuantity, o.initialQuantity)
	}
	return nil
}

func (o *Order) GetFilledQuantity() Quantity {
	return o.initialQuantity - o.remainingQuantity
}

func (o *Order) Fill(quantity Quantity) error {
	if quantity <= 0 {
		return fmt.Errorf("fill quantity must be positive for order %d, got %d", o.id, quantity)
	}
	if quantity > o.remainingQuantity {
		return fmt.Errorf("order cannot be filled for more than its remaining quantity %d", o.id)
	}
	o.remainingQuantity -= quantity
	return nil
}

func (o *Order) IsFilled() bool {
	return o.remainingQuantity == 0
}

func (o *Order) GetRemainingQuantity() Quantity {
	return o.remainingQuantity
}

func (o *Order) GetPrice() Price {
	return o.price
}

func (o *Order) GetId() OrderId {
	return o.id
}

func (o *Order) GetSide() Side {
	return o.side
}

func (o *Order) GetInitialQuantity() Quantity {
	return o.initialQuantity
}

// GetSequence is the arrival position assigned by the book; zero until the
// order has been submitted.
func (o *Order) GetSequence() uint64 {
	return o.sequence
}

func (o *Order) SetSequence(seq uint64) {
	o.sequence = seq
}

func (o Order) String() string {
	return fmt.Sprintf("#%d %s %d/%d@%s seq=%d",
		o.id, o.side, o.remainingQuantity, o.initialQuantity, o.price, o.sequence)
}
