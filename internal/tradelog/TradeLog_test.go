package tradelog

import (
	"sync"
	"testing"
	"time"

	"github.com/Yusufzhafir/go-auction/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trade(qty model.Quantity, buy, sell float64) model.Trade {
	return model.Trade{
		ID:        "t",
		Quantity:  qty,
		Price:     model.NewPrice(sell),
		BuyPrice:  model.NewPrice(buy),
		SellPrice: model.NewPrice(sell),
		Timestamp: time.Unix(1700000000, 0),
	}
}

func TestAppendAssignsSequence(t *testing.T) {
	l := New()
	first := l.Append(trade(3, 101, 100))
	second := l.Append(trade(2, 105, 104))

	assert.Equal(t, uint64(1), first.Sequence)
	assert.Equal(t, uint64(2), second.Sequence)
	assert.Equal(t, 2, l.Len())
	assert.Equal(t, model.Quantity(5), l.TotalQuantity())
}

func TestAllReturnsCopy(t *testing.T) {
	l := New()
	l.Append(trade(3, 101, 100))

	snapshot := l.All()
	require.Len(t, snapshot, 1)
	snapshot[0].Quantity = 99

	assert.Equal(t, model.Quantity(3), l.All()[0].Quantity)
}

func TestSince(t *testing.T) {
	l := New()
	for i := 1; i <= 4; i++ {
		l.Append(trade(model.Quantity(i), 101, 100))
	}

	tail := l.Since(2)
	require.Len(t, tail, 2)
	assert.Equal(t, model.Quantity(3), tail[0].Quantity)
	assert.Equal(t, model.Quantity(4), tail[1].Quantity)

	assert.Empty(t, l.Since(4))
	assert.Empty(t, l.Since(10))
	assert.Len(t, l.Since(-1), 4)
}

func TestRecordsKeepBothPrices(t *testing.T) {
	l := New()
	l.Append(trade(1, 110.5, 107.25))

	records := l.Records()
	require.Len(t, records, 1)
	assert.True(t, records[0].BuyPrice.Equal(model.NewPrice(110.5)))
	assert.True(t, records[0].SellPrice.Equal(model.NewPrice(107.25)))
	assert.Equal(t, time.Unix(1700000000, 0), records[0].Timestamp)
}

func TestAppendRejectsEmptyTrade(t *testing.T) {
	l := New()
	assert.Panics(t, func() { l.Append(trade(0, 100, 100)) })
	assert.Panics(t, func() { l.Append(trade(-1, 100, 100)) })
	assert.Equal(t, 0, l.Len())
}

func TestConcurrentReadersSeeGrowingPrefix(t *testing.T) {
	l := New()
	var wg sync.WaitGroup
	done := make(chan struct{})

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				snap := l.All()
				for i, tr := range snap {
					if tr.Sequence != uint64(i+1) {
						t.Errorf("entry %d has sequence %d", i, tr.Sequence)
						return
					}
				}
			}
		}()
	}

	for i := 0; i < 1000; i++ {
		l.Append(trade(1, 101, 100))
	}
	close(done)
	wg.Wait()
	assert.Equal(t, 1000, l.Len())
}
