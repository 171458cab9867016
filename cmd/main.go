package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/Yusufzhafir/go-auction/internal/broker"
	"github.com/Yusufzhafir/go-auction/internal/config"
	"github.com/Yusufzhafir/go-auction/internal/engine"
	"github.com/Yusufzhafir/go-auction/internal/source"
	"github.com/Yusufzhafir/go-auction/internal/usecase/order"
	"github.com/Yusufzhafir/go-auction/pkg/model"
	"github.com/Yusufzhafir/go-auction/pkg/util"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// summary is what the trade consumer accumulates. Gaps are detected on the
// trade log sequence, which is assigned before the hub can drop anything.
type summary struct {
	received atomic.Int64
	count    int
	volume   model.Quantity
	low      model.Price
	high     model.Price
	lastSeq  uint64
	gaps     uint64
}

func (s *summary) add(m broker.Message) {
	if s.count == 0 || m.Trade.Price.LessThan(s.low) {
		s.low = m.Trade.Price
	}
	if s.count == 0 || m.Trade.Price.GreaterThan(s.high) {
		s.high = m.Trade.Price
	}
	if m.Trade.Sequence > s.lastSeq+1 {
		s.gaps += m.Trade.Sequence - s.lastSeq - 1
	}
	s.lastSeq = m.Trade.Sequence
	s.count++
	s.volume += m.Trade.Quantity
	s.received.Add(1)
}

func main() {
	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := newLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting auction", zap.Stringer("config", cfg))

	book := engine.NewOrderBookEngine(engine.Options{
		Degree:      cfg.Engine.BTreeDegree,
		DepthLevels: cfg.Engine.DepthLevels,
		Logger:      logger.Named("engine"),
	})
	orderUseCase := order.NewOrderUseCase(order.OrderUseCaseOpts{
		OrderBookEngine: book,
		Logger:          logger,
	})

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	hub := broker.NewHub(cfg.Broker.SubscriberBuffer, logger)
	go hub.Run(hubCtx)

	sub, err := hub.Subscribe(cfg.Broker.SubscriberBuffer, broker.TopicTrades)
	if err != nil {
		logger.Fatal("subscribe", zap.Error(err))
	}
	orderUseCase.RegisterTradeHandler(func(tr model.Trade) {
		hub.Publish(broker.TopicTrades, tr)
	})

	var consumed summary
	consumerDone := make(chan struct{})
	var g errgroup.Group
	g.Go(func() error {
		defer close(consumerDone)
		for m := range sub.C() {
			consumed.add(m)
		}
		return nil
	})

	seed := cfg.Source.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	gen, err := source.New(source.Params{
		Seed:        seed,
		PriceMin:    cfg.Source.PriceMin,
		PriceSpread: cfg.Source.PriceSpread,
		MaxQuantity: cfg.Source.MaxQuantity,
	})
	if err != nil {
		logger.Fatal("init source", zap.Error(err))
	}
	logger.Info("order flow starting", zap.Uint64("seed", seed), zap.Int("orders", cfg.Source.OrderCount))

	submitted, err := gen.Run(rootCtx, cfg.Source.OrderCount, func(ctx context.Context, r source.Request) error {
		_, _, err := orderUseCase.AddOrder(ctx, r.Side, r.Price, r.Quantity)
		return err
	})
	switch {
	case errors.Is(err, context.Canceled):
		logger.Info("shutdown signal received", zap.Int("submitted", submitted))
	case err != nil:
		logger.Error("order flow stopped", zap.Error(err), zap.Int("submitted", submitted))
	default:
		logger.Info("order flow finished", zap.Int("submitted", submitted))
	}

	// Give the consumer up to the shutdown timeout to drain.
	executed := book.Trades().Len()
	reason := drain(hub, executed, &consumed.received, consumerDone, cfg.Shutdown)
	stopHub()
	<-hub.Done()
	_ = g.Wait()

	stats := hub.Stats()
	if missing := executed - consumed.count; missing > 0 {
		logger.Warn("consumer missed trades",
			zap.Int("missing", missing),
			zap.String("reason", reason),
			zap.Uint64("gaps", consumed.gaps),
			zap.Uint64("evictions", stats.Evictions),
		)
	}
	logger.Info("trade summary",
		zap.Int("executed", executed),
		zap.Int("trades", consumed.count),
		zap.Int64("volume", int64(consumed.volume)),
		zap.Int64("loggedVolume", int64(book.Trades().TotalQuantity())),
		zap.Stringer("low", consumed.low),
		zap.Stringer("high", consumed.high),
		zap.Uint64("gaps", consumed.gaps),
		zap.Uint64("dropped", stats.PublishDrops),
		zap.Int("resting", orderUseCase.OrderSize(context.Background())),
	)
	if cfg.Logging.ReportDepth {
		depth := orderUseCase.GetOrderInfos(context.Background())
		logger.Info("final depth", zap.Any("bids", depth.Bids), zap.Any("asks", depth.Asks))
	}
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	if cfg.File != "" {
		return util.NewLoggerWithFile(cfg.File, cfg.Level)
	}
	return util.NewLogger(cfg.Level)
}

// drain waits until the consumer has received every executed trade. It gives
// up early once a drop or an eviction makes that impossible, and reports why
// it stopped.
func drain(hub *broker.Hub, expected int, received *atomic.Int64, consumerDone <-chan struct{}, timeout time.Duration) string {
	deadline := time.After(timeout)
	tick := time.NewTicker(10 * time.Millisecond)
	defer tick.Stop()
	for {
		if received.Load() >= int64(expected) {
			return "complete"
		}
		if hub.Stats().PublishDrops > 0 {
			return "dropped"
		}
		select {
		case <-consumerDone:
			return "evicted"
		case <-deadline:
			return "timeout"
		case <-tick.C:
		}
	}
}
