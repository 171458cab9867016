package broker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/Yusufzhafir/go-auction/pkg/model"
	"github.com/Yusufzhafir/go-auction/pkg/util"
	"go.uber.org/zap"
)

const (
	TopicTrades = "trades"

	defaultSendBuf      = 256
	defaultPublishBuf   = 4096
	maxConsecutiveDrops = 50
)

var ErrHubClosed = errors.New("hub is closed")

// Message is what subscribers receive. Seq counts messages per topic.
type Message struct {
	Topic string      `json:"topic"`
	Seq   uint64      `json:"seq"`
	Trade model.Trade `json:"trade"`
}

// Stats is a snapshot of the hub counters.
type Stats struct {
	Subscribers  int64
	Published    uint64
	PublishDrops uint64
	Evictions    uint64
}

// Hub fans trades out to in-process subscribers. All subscription state is
// owned by the Run loop.
type Hub struct {
	register   chan *Subscription
	unregister chan *Subscription
	publish    chan Message
	done       chan struct{}

	subs     map[*Subscription]struct{}
	topics   map[string]map[*Subscription]struct{}
	wildcard map[*Subscription]struct{}
	seq      map[string]uint64

	sendBuf int

	subscribers  atomic.Int64
	published    atomic.Uint64
	publishDrops atomic.Uint64
	evictions    atomic.Uint64

	logger *zap.Logger
}

type Subscription struct {
	hub    *Hub
	send   chan Message
	topics []string

	// consecutive drops; reset on every successful delivery
	drops int
	once  sync.Once
}

// NewHub creates a Hub. sendBuf is the default per-subscriber buffer; values
// below one fall back to the default.
func NewHub(sendBuf int, logger *zap.Logger) *Hub {
	if sendBuf < 1 {
		sendBuf = defaultSendBuf
	}
	return &Hub{
		register:   make(chan *Subscription),
		unregister: make(chan *Subscription),
		publish:    make(chan Message, defaultPublishBuf),
		done:       make(chan struct{}),
		subs:       make(map[*Subscription]struct{}),
		topics:     make(map[string]map[*Subscription]struct{}),
		wildcard:   make(map[*Subscription]struct{}),
		seq:        make(map[string]uint64),
		sendBuf:    sendBuf,
		logger:     util.OrNop(logger).Named("broker"),
	}
}

// Run runs the hub event loop until ctx is cancelled. Call as: go hub.Run(ctx).
func (h *Hub) Run(ctx context.Context) {
	h.logger.Debug("hub started")
	for {
		select {
		case s := <-h.register:
			h.subs[s] = struct{}{}
			if len(s.topics) == 0 {
				h.wildcard[s] = struct{}{}
			}
			for _, t := range s.topics {
				subs := h.topics[t]
				if subs == nil {
					subs = make(map[*Subscription]struct{})
					h.topics[t] = subs
				}
				subs[s] = struct{}{}
			}
			h.subscribers.Add(1)

		case s := <-h.unregister:
			h.remove(s)

		case m := <-h.publish:
			h.seq[m.Topic]++
			m.Seq = h.seq[m.Topic]
			for s := range h.topics[m.Topic] {
				h.deliver(s, m)
			}
			for s := range h.wildcard {
				h.deliver(s, m)
			}
			h.published.Add(1)

		case <-ctx.Done():
			h.logger.Debug("hub shutting down", zap.Int("subscribers", len(h.subs)))
			for s := range h.subs {
				h.remove(s)
			}
			close(h.done)
			return
		}
	}
}

func (h *Hub) deliver(s *Subscription, m Message) {
	select {
	case s.send <- m:
		s.drops = 0
	default:
		h.publishDrops.Add(1)
		s.drops++
		if s.drops > maxConsecutiveDrops {
			h.logger.Warn("evicting slow subscriber", zap.Int("drops", s.drops))
			h.remove(s)
			h.evictions.Add(1)
		}
	}
}

func (h *Hub) remove(s *Subscription) {
	if _, ok := h.subs[s]; !ok {
		return
	}
	delete(h.subs, s)
	delete(h.wildcard, s)
	for _, t := range s.topics {
		if subs := h.topics[t]; subs != nil {
			delete(subs, s)
			if len(subs) == 0 {
				delete(h.topics, t)
			}
		}
	}
	close(s.send)
	h.subscribers.Add(-1)
}

// Subscribe registers a subscriber for the given topics, or for every topic
// when none are given. buf <= 0 uses the hub default.
func (h *Hub) Subscribe(buf int, topics ...string) (*Subscription, error) {
	if buf <= 0 {
		buf = h.sendBuf
	}
	s := &Subscription{
		hub:    h,
		send:   make(chan Message, buf),
		topics: topics,
	}
	select {
	case h.register <- s:
		return s, nil
	case <-h.done:
		return nil, ErrHubClosed
	}
}

// Publish queues a trade for topic. It never blocks: when the publish buffer
// is full the trade is dropped and false is returned.
func (h *Hub) Publish(topic string, t model.Trade) bool {
	select {
	case <-h.done:
		return false
	default:
	}
	select {
	case h.publish <- Message{Topic: topic, Trade: t}:
		return true
	default:
		h.publishDrops.Add(1)
		h.logger.Warn("publish channel full, dropping trade", zap.String("trade", t.ID))
		return false
	}
}

// PublishTrades publishes trades in order on TopicTrades.
func (h *Hub) PublishTrades(trades []model.Trade) {
	for _, t := range trades {
		h.Publish(TopicTrades, t)
	}
}

func (h *Hub) Stats() Stats {
	return Stats{
		Subscribers:  h.subscribers.Load(),
		Published:    h.published.Load(),
		PublishDrops: h.publishDrops.Load(),
		Evictions:    h.evictions.Load(),
	}
}

// Done is closed once Run has returned and every subscription is closed.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// C delivers messages until the subscription is closed, evicted or the hub
// stops.
func (s *Subscription) C() <-chan Message {
	return s.send
}

func (s *Subscription) Close() {
	s.once.Do(func() {
		select {
		case s.hub.unregister <- s:
		case <-s.hub.done:
		}
	})
}
