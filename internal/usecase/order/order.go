package order

import (
	"context"
	"fmt"
	"sync"

	"github.com/Yusufzhafir/go-auction/internal/engine"
	"github.com/Yusufzhafir/go-auction/pkg/model"
	"github.com/Yusufzhafir/go-auction/pkg/util"
	"go.uber.org/zap"
)

type OrderUseCase interface {
	AddOrder(ctx context.Context, side model.Side, price model.Price, quantity model.Quantity) (trades []model.Trade, orderID model.OrderId, err error)

	OrderSize(ctx context.Context) int

	GetTopOfBook(ctx context.Context) *model.TopOfBook

	GetOrderInfos(ctx context.Context) *model.MarketDepth

	// Trades returns the trade log from offset onwards.
	Trades(ctx context.Context, offset int) []model.Trade

	RegisterTradeHandler(handler TradeHandler)
}

type TradeHandler func(model.Trade)

type OrderUseCaseOpts struct {
	OrderBookEngine engine.OrderBookEngine
	Logger          *zap.Logger
}

type orderUseCaseImpl struct {
	// mu is the one critical section around the book: submission, matching
	// and every read go through it.
	mu              sync.Mutex
	orderBookEngine engine.OrderBookEngine // hold interface by value, not pointer to interface

	// dispatchMu is taken before mu is released so handlers see trades in
	// execution order across concurrent submitters.
	dispatchMu sync.Mutex
	handlersMu sync.RWMutex
	handlers   []TradeHandler

	logger *zap.Logger
}

func NewOrderUseCase(opts OrderUseCaseOpts) OrderUseCase {
	if opts.OrderBookEngine == nil {
		opts.OrderBookEngine = engine.NewOrderBookEngine(engine.Options{Logger: opts.Logger})
	}
	return &orderUseCaseImpl{
		orderBookEngine: opts.OrderBookEngine,
		logger:          util.OrNop(opts.Logger),
	}
}

// RegisterTradeHandler adds a handler called once per trade, in execution
// order, after the book has been released. Handlers may read the book but
// must not submit orders.
func (ou *orderUseCaseImpl) RegisterTradeHandler(handler TradeHandler) {
	if handler == nil {
		return
	}
	ou.handlersMu.Lock()
	defer ou.handlersMu.Unlock()
	ou.handlers = append(ou.handlers, handler)
}

// AddOrder submits a new order and runs matching. A cancelled context is
// honoured only before the order enters the book.
func (ou *orderUseCaseImpl) AddOrder(ctx context.Context, side model.Side, price model.Price, quantity model.Quantity) ([]model.Trade, model.OrderId, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, fmt.Errorf("add order: %w", err)
	}

	ou.mu.Lock()
	order, trades, err := ou.orderBookEngine.Submit(side, price, quantity)
	if err != nil {
		ou.mu.Unlock()
		return nil, 0, err
	}
	ou.dispatchMu.Lock()
	ou.mu.Unlock()
	defer ou.dispatchMu.Unlock()

	for _, tr := range trades {
		ou.logger.Info("Trade Executed",
			zap.Uint64("seq", tr.Sequence),
			zap.Time("timestamp", tr.Timestamp),
			zap.Stringer("buyPrice", tr.BuyPrice),
			zap.Stringer("sellPrice", tr.SellPrice),
			zap.Int64("quantity", int64(tr.Quantity)),
		)
	}
	ou.dispatch(trades)

	return trades, order.GetId(), nil
}

func (ou *orderUseCaseImpl) dispatch(trades []model.Trade) {
	if len(trades) == 0 {
		return
	}
	ou.handlersMu.RLock()
	handlers := ou.handlers
	ou.handlersMu.RUnlock()
	for _, tr := range trades {
		for _, h := range handlers {
			h(tr)
		}
	}
}

func (ou *orderUseCaseImpl) OrderSize(ctx context.Context) int {
	ou.mu.Lock()
	defer ou.mu.Unlock()
	return ou.orderBookEngine.OrderSize()
}

func (ou *orderUseCaseImpl) GetTopOfBook(ctx context.Context) *model.TopOfBook {
	ou.mu.Lock()
	defer ou.mu.Unlock()
	return ou.orderBookEngine.GetTopOfBook()
}

func (ou *orderUseCaseImpl) GetOrderInfos(ctx context.Context) *model.MarketDepth {
	ou.mu.Lock()
	defer ou.mu.Unlock()
	return ou.orderBookEngine.GetOrderInfos()
}

func (ou *orderUseCaseImpl) Trades(ctx context.Context, offset int) []model.Trade {
	// the log guards itself
	return ou.orderBookEngine.Trades().Since(offset)
}
