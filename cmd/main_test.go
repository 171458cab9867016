package main

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Yusufzhafir/go-auction/internal/broker"
	"github.com/Yusufzhafir/go-auction/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func message(seq uint64, price float64, qty model.Quantity) broker.Message {
	return broker.Message{
		Topic: broker.TopicTrades,
		Trade: model.Trade{Sequence: seq, Price: model.NewPrice(price), Quantity: qty},
	}
}

func TestSummaryCountsLogGaps(t *testing.T) {
	var s summary
	s.add(message(1, 101.5, 2))
	s.add(message(2, 99, 1))
	s.add(message(5, 104, 3))

	assert.Equal(t, 3, s.count)
	assert.Equal(t, int64(3), s.received.Load())
	assert.Equal(t, model.Quantity(6), s.volume)
	assert.Equal(t, uint64(2), s.gaps)
	assert.True(t, s.low.Equal(model.NewPrice(99)))
	assert.True(t, s.high.Equal(model.NewPrice(104)))
}

func newRunningHub(t *testing.T) *broker.Hub {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	hub := broker.NewHub(0, nil)
	go hub.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-hub.Done()
	})
	return hub
}

func TestDrainReturnsWhenComplete(t *testing.T) {
	hub := newRunningHub(t)
	var received atomic.Int64
	received.Store(3)

	assert.Equal(t, "complete", drain(hub, 3, &received, make(chan struct{}), time.Second))
}

func TestDrainStopsEarlyOnDrops(t *testing.T) {
	hub := newRunningHub(t)
	sub, err := hub.Subscribe(1, broker.TopicTrades)
	require.NoError(t, err)
	defer sub.Close()

	const executed = 5
	for i := 1; i <= executed; i++ {
		hub.Publish(broker.TopicTrades, model.Trade{Sequence: uint64(i), Quantity: 1})
	}

	var received atomic.Int64
	start := time.Now()
	reason := drain(hub, executed, &received, make(chan struct{}), 5*time.Second)

	assert.Equal(t, "dropped", reason)
	assert.Less(t, time.Since(start), time.Second)
}

func TestDrainStopsWhenConsumerEnds(t *testing.T) {
	hub := newRunningHub(t)
	done := make(chan struct{})
	close(done)

	var received atomic.Int64
	assert.Equal(t, "evicted", drain(hub, 10, &received, done, 5*time.Second))
}

func TestDrainTimesOut(t *testing.T) {
	hub := newRunningHub(t)
	var received atomic.Int64

	assert.Equal(t, "timeout", drain(hub, 1, &received, make(chan struct{}), 20*time.Millisecond))
}
