package tradelog

import (
	"sync"

	"github.com/Yusufzhafir/go-auction/pkg/model"
)

// Log is the append-only record of executed trades. A single writer appends;
// any number of readers may take snapshots concurrently.
type Log struct {
	mu     sync.RWMutex
	trades []model.Trade
	volume model.Quantity
}

func New() *Log {
	return &Log{trades: make([]model.Trade, 0)}
}

// Append stamps t with its position in the log and stores it. A trade with a
// non-positive quantity can only come from a broken matching loop.
func (l *Log) Append(t model.Trade) model.Trade {
	if t.Quantity <= 0 {
		panic(model.Violation("trade quantity", "trade %s has quantity %d", t.ID, t.Quantity))
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	t.Sequence = uint64(len(l.trades)) + 1
	l.trades = append(l.trades, t)
	l.volume += t.Quantity
	return t
}

func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.trades)
}

// All returns a copy of every trade appended so far.
func (l *Log) All() []model.Trade {
	return l.Since(0)
}

// Since returns a copy of the trades after the first offset entries, letting a
// consumer resume from the length it last observed.
func (l *Log) Since(offset int) []model.Trade {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if offset < 0 {
		offset = 0
	}
	if offset >= len(l.trades) {
		return []model.Trade{}
	}
	out := make([]model.Trade, len(l.trades)-offset)
	copy(out, l.trades[offset:])
	return out
}

// Records returns the consumer view of every trade.
func (l *Log) Records() []model.TradeRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]model.TradeRecord, len(l.trades))
	for i, t := range l.trades {
		out[i] = t.Record()
	}
	return out
}

// TotalQuantity is the sum of executed quantities.
func (l *Log) TotalQuantity() model.Quantity {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.volume
}
