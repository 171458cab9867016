package model

import "time"

// Trade is one execution between a resident bid and a resident ask.
// Price is the ask's price; BuyPrice and SellPrice keep both limits as they
// stood when the trade happened.
type Trade struct {
	ID          string    `json:"id"`
	Sequence    uint64    `json:"seq"`
	Side        Side      `json:"side"` // side of the taker
	MakerID     OrderId   `json:"makerId"`
	TakerID     OrderId   `json:"takerId"`
	BuyOrderID  OrderId   `json:"buyOrderId"`
	SellOrderID OrderId   `json:"sellOrderId"`
	Price       Price     `json:"price"`
	BuyPrice    Price     `json:"buyPrice"`
	SellPrice   Price     `json:"sellPrice"`
	Quantity    Quantity  `json:"quantity"`
	Timestamp   time.Time `json:"timestamp"`
}

// TradeRecord is the consumer view of a trade: when it happened and the two
// limit prices that crossed.
type TradeRecord struct {
	Timestamp time.Time `json:"timestamp"`
	BuyPrice  Price     `json:"buyPrice"`
	SellPrice Price     `json:"sellPrice"`
}

func (t Trade) Record() TradeRecord {
	return TradeRecord{
		Timestamp: t.Timestamp,
		BuyPrice:  t.BuyPrice,
		SellPrice: t.SellPrice,
	}
}
