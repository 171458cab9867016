package engine

import (
	"fmt"

	orderbookModel "github.com/Yusufzhafir/go-auction/internal/engine/model"
	"github.com/Yusufzhafir/go-auction/internal/sequence"
	"github.com/Yusufzhafir/go-auction/internal/tradelog"
	"github.com/Yusufzhafir/go-auction/pkg/model"
	"github.com/Yusufzhafir/go-auction/pkg/util"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultDegree      = 32 // degree tuned for performance
	defaultDepthLevels = 10
)

type OrderBookEngine interface {
	Submit(side model.Side, price model.Price, quantity model.Quantity) (model.Order, []model.Trade, error)
	AddOrder(order model.Order) ([]model.Trade, error)
	RemoveIfExhausted(orderID model.OrderId) bool
	BestBid() (model.Order, bool)
	BestAsk() (model.Order, bool)
	Bids() []model.Order
	Asks() []model.Order
	OrderSize() int
	GetTopOfBook() *model.TopOfBook
	GetMarketDepth(levels int) *model.MarketDepth
	GetOrderInfos() *model.MarketDepth
	Trades() *tradelog.Log
}

// Options configures a book. Zero values fall back to defaults.
type Options struct {
	Degree      int
	DepthLevels int
	Clock       util.Clock
	Logger      *zap.Logger
	// OrderIDs and Arrivals may be injected to control numbering; otherwise
	// both start from zero.
	OrderIDs *sequence.Sequencer
	Arrivals *sequence.Sequencer
}

type OrderBookEngineImpl struct {
	bids, asks *orderbookModel.BookSide
	orders     map[model.OrderId]*model.Order // lookup by ID
	// issued holds every id that ever entered the book, resident or not
	issued     map[model.OrderId]struct{}

	orderIDs *sequence.Sequencer
	arrivals *sequence.Sequencer

	trades      *tradelog.Log
	clock       util.Clock
	logger      *zap.Logger
	depthLevels int
}

var _ OrderBookEngine = (*OrderBookEngineImpl)(nil)

func NewOrderBookEngine(opts Options) *OrderBookEngineImpl {
	if opts.Degree < 2 {
		opts.Degree = defaultDegree
	}
	if opts.DepthLevels <= 0 {
		opts.DepthLevels = defaultDepthLevels
	}
	if opts.Clock == nil {
		opts.Clock = util.RealClock{}
	}
	if opts.OrderIDs == nil {
		opts.OrderIDs = sequence.New(0)
	}
	if opts.Arrivals == nil {
		opts.Arrivals = sequence.New(0)
	}

	o := &OrderBookEngineImpl{
		bids:        orderbookModel.NewBidSide(opts.Degree),
		asks:        orderbookModel.NewAskSide(opts.Degree),
		orders:      make(map[model.OrderId]*model.Order),
		issued:      make(map[model.OrderId]struct{}),
		orderIDs:    opts.OrderIDs,
		arrivals:    opts.Arrivals,
		trades:      tradelog.New(),
		clock:       opts.Clock,
		logger:      util.OrNop(opts.Logger),
		depthLevels: opts.DepthLevels,
	}
	o.logger.Debug("order book is initialized", zap.Int("degree", opts.Degree))
	return o
}

// Submit creates an order with a fresh id, rests it in the book and matches
// until the book no longer crosses. The returned order reflects its state
// after matching.
func (o *OrderBookEngineImpl) Submit(side model.Side, price model.Price, quantity model.Quantity) (model.Order, []model.Trade, error) {
	return o.place(model.NewOrder(0, side, price, quantity))
}

// AddOrder places a prepared order. An order with id zero gets the next free
// id; a non-zero id must never have been used by this book.
func (o *OrderBookEngineImpl) AddOrder(order model.Order) ([]model.Trade, error) {
	_, trades, err := o.place(order)
	return trades, err
}

func (o *OrderBookEngineImpl) place(order model.Order) (model.Order, []model.Trade, error) {
	if err := order.Validate(); err != nil {
		o.logger.Warn("order rejected", zap.Error(err))
		return model.Order{}, nil, err
	}
	if order.GetRemainingQuantity() != order.GetInitialQuantity() {
		return model.Order{}, nil, fmt.Errorf("%w: order %d is already partially filled", model.ErrInvalidOrder, order.GetId())
	}

	id := order.GetId()
	if id == 0 {
		id = o.nextOrderID()
		order = model.NewOrder(id, order.GetSide(), order.GetPrice(), order.GetInitialQuantity())
	} else if _, ok := o.issued[id]; ok {
		return model.Order{}, nil, fmt.Errorf("%w: id %d", model.ErrDuplicateOrder, id)
	} else if uint64(id) > o.orderIDs.Current() {
		o.orderIDs.Reset(uint64(id))
	}

	resting := &order
	resting.SetSequence(o.arrivals.Next())

	if o.sideOf(resting.GetSide()).Insert(resting) {
		panic(model.Violation("unique arrival", "sequence %d already resident", resting.GetSequence()))
	}
	o.orders[id] = resting
	o.issued[id] = struct{}{}

	trades := o.matchOrder()
	o.checkInvariants()
	return *resting, trades, nil
}

func (o *OrderBookEngineImpl) nextOrderID() model.OrderId {
	for {
		id := model.OrderId(o.orderIDs.Next())
		if _, taken := o.issued[id]; !taken {
			return id
		}
	}
}

func (o *OrderBookEngineImpl) sideOf(side model.Side) *orderbookModel.BookSide {
	if side == model.BID {
		return o.bids
	}
	return o.asks
}

// matchOrder pairs the best bid with the best ask while they cross. Every
// pass exhausts at least one of the two, so the loop is bounded by the
// number of resident orders.
func (o *OrderBookEngineImpl) matchOrder() []model.Trade {
	trades := make([]model.Trade, 0)
	for o.bids.Len() > 0 && o.asks.Len() > 0 {
		bidOrder, _ := o.bids.Best()
		askOrder, _ := o.asks.Best()

		if bidOrder.GetPrice().LessThan(askOrder.GetPrice()) {
			break
		}

		quantity := min(bidOrder.GetRemainingQuantity(), askOrder.GetRemainingQuantity())
		if err := bidOrder.Fill(quantity); err != nil {
			panic(model.Violation("fill", "%v", err))
		}
		if err := askOrder.Fill(quantity); err != nil {
			panic(model.Violation("fill", "%v", err))
		}

		maker, taker := askOrder, bidOrder
		if bidOrder.GetSequence() < askOrder.GetSequence() {
			maker, taker = bidOrder, askOrder
		}

		trade := o.trades.Append(model.Trade{
			ID:          uuid.NewString(),
			Side:        taker.GetSide(),
			MakerID:     maker.GetId(),
			TakerID:     taker.GetId(),
			BuyOrderID:  bidOrder.GetId(),
			SellOrderID: askOrder.GetId(),
			Price:       askOrder.GetPrice(),
			BuyPrice:    bidOrder.GetPrice(),
			SellPrice:   askOrder.GetPrice(),
			Quantity:    quantity,
			Timestamp:   o.clock.Now(),
		})
		trades = append(trades, trade)

		o.logger.Debug("trade executed",
			zap.Int64("quantity", int64(quantity)),
			zap.Stringer("price", trade.Price),
			zap.Uint64("buyOrder", uint64(trade.BuyOrderID)),
			zap.Uint64("sellOrder", uint64(trade.SellOrderID)),
		)

		bidExhausted := o.RemoveIfExhausted(bidOrder.GetId())
		askExhausted := o.RemoveIfExhausted(askOrder.GetId())
		if !bidExhausted && !askExhausted {
			panic(model.Violation("progress", "trade %s exhausted neither order", trade.ID))
		}
	}
	return trades
}

// RemoveIfExhausted drops the order from its side once nothing remains of
// it. It reports whether the order was removed by this call.
func (o *OrderBookEngineImpl) RemoveIfExhausted(orderID model.OrderId) bool {
	order, ok := o.orders[orderID]
	if !ok {
		return false
	}
	remaining := order.GetRemainingQuantity()
	if remaining < 0 {
		panic(model.Violation("non-negative quantity", "order %d has quantity %d", orderID, remaining))
	}
	if remaining > 0 {
		return false
	}
	if !o.sideOf(order.GetSide()).Delete(order) {
		panic(model.Violation("residency", "order %d indexed but not on its side", orderID))
	}
	delete(o.orders, orderID)
	return true
}

func (o *OrderBookEngineImpl) checkInvariants() {
	if n := o.bids.Len() + o.asks.Len(); n != len(o.orders) {
		panic(model.Violation("residency", "%d orders indexed, %d on the sides", len(o.orders), n))
	}
	bid, okBid := o.bids.Best()
	ask, okAsk := o.asks.Best()
	if okBid && okAsk && !bid.GetPrice().LessThan(ask.GetPrice()) {
		panic(model.Violation("no cross", "best bid %s >= best ask %s", bid.GetPrice(), ask.GetPrice()))
	}
	if okBid && bid.GetRemainingQuantity() <= 0 {
		panic(model.Violation("positive quantity", "bid %d has quantity %d", bid.GetId(), bid.GetRemainingQuantity()))
	}
	if okAsk && ask.GetRemainingQuantity() <= 0 {
		panic(model.Violation("positive quantity", "ask %d has quantity %d", ask.GetId(), ask.GetRemainingQuantity()))
	}
}

func (o *OrderBookEngineImpl) BestBid() (model.Order, bool) {
	bid, ok := o.bids.Best()
	if !ok {
		return model.Order{}, false
	}
	return *bid, true
}

func (o *OrderBookEngineImpl) BestAsk() (model.Order, bool) {
	ask, ok := o.asks.Best()
	if !ok {
		return model.Order{}, false
	}
	return *ask, true
}

// Bids returns the resident bids in matching priority.
func (o *OrderBookEngineImpl) Bids() []model.Order {
	return o.bids.Orders()
}

// Asks returns the resident asks in matching priority.
func (o *OrderBookEngineImpl) Asks() []model.Order {
	return o.asks.Orders()
}

// OrderSize is the number of resident orders on both sides.
func (o *OrderBookEngineImpl) OrderSize() int {
	return o.asks.Len() + o.bids.Len()
}

func (o *OrderBookEngineImpl) Trades() *tradelog.Log {
	return o.trades
}

func toDepthLevels(levels []*orderbookModel.PriceLevel) []model.MarketDepthLevel {
	out := make([]model.MarketDepthLevel, 0, len(levels))
	for _, level := range levels {
		out = append(out, model.MarketDepthLevel{
			Price:      level.Price,
			Volume:     level.TotalVolume,
			OrderCount: len(level.Orders),
		})
	}
	return out
}

// GetMarketDepth aggregates up to levels price levels per side.
func (o *OrderBookEngineImpl) GetMarketDepth(levels int) *model.MarketDepth {
	return &model.MarketDepth{
		Bids:      toDepthLevels(o.bids.Levels(levels)),
		Asks:      toDepthLevels(o.asks.Levels(levels)),
		Timestamp: o.clock.Now().UnixMilli(),
	}
}

// GetTopOfBook returns best bid and ask
func (o *OrderBookEngineImpl) GetTopOfBook() *model.TopOfBook {
	tob := &model.TopOfBook{}

	if bids := toDepthLevels(o.bids.Levels(1)); len(bids) > 0 {
		tob.BestBid = &bids[0]
	}
	if asks := toDepthLevels(o.asks.Levels(1)); len(asks) > 0 {
		tob.BestAsk = &asks[0]
	}

	if tob.BestBid != nil && tob.BestAsk != nil {
		spread := tob.BestAsk.Price.Sub(tob.BestBid.Price)
		tob.Spread = &spread
	}

	return tob
}

func (o *OrderBookEngineImpl) GetOrderInfos() *model.MarketDepth {
	return o.GetMarketDepth(o.depthLevels)
}
