package main

import (
	"log"

	"github.com/Yusufzhafir/go-auction/internal/engine"
	"github.com/Yusufzhafir/go-auction/pkg/model"
	"github.com/Yusufzhafir/go-auction/pkg/util"
	"go.uber.org/zap"
)

type step struct {
	side  model.Side
	price float64
	qty   model.Quantity
}

func main() {
	logger, err := util.NewLogger("debug")
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	scenarios := []struct {
		name  string
		steps []step
	}{
		{"best bid first", []step{
			{model.BID, 105, 10},
			{model.BID, 102, 5},
			{model.ASK, 100, 8},
		}},
		{"exact cross", []step{
			{model.ASK, 110, 5},
			{model.BID, 110, 5},
		}},
		{"time priority", []step{
			{model.BID, 100, 3},
			{model.BID, 100, 3},
			{model.ASK, 100, 3},
		}},
		{"rejected", []step{
			{model.BID, 0, 3},
			{model.ASK, 100, -1},
		}},
	}

	for _, sc := range scenarios {
		name, steps := sc.name, sc.steps
		newOb := engine.NewOrderBookEngine(engine.Options{Logger: logger.Named(name)})
		for _, s := range steps {
			order, trades, err := newOb.Submit(s.side, model.NewPrice(s.price), s.qty)
			if err != nil {
				logger.Info("order rejected", zap.String("scenario", name), zap.Error(err))
				continue
			}
			logger.Info("order placed",
				zap.String("scenario", name),
				zap.Stringer("order", &order),
				zap.Int("trades", len(trades)),
			)
		}
		//should never cross
		depth := newOb.GetOrderInfos()
		logger.Info("book",
			zap.String("scenario", name),
			zap.Any("bids", depth.Bids),
			zap.Any("asks", depth.Asks),
			zap.Any("records", recordsOf(newOb.Trades().Records())),
		)
	}
}

func recordsOf(records []model.TradeRecord) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.BuyPrice.String()+"/"+r.SellPrice.String())
	}
	return out
}
