package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/roackb2/rollout/internal/pkg/pubsub"
	"github.com/roackb2/rollout/internal/pkg/reporting"
	"github.com/roackb2/rollout/internal/pkg/utils"
)

const DefaultClientBufferSize = 16

// Hub holds the single report subscription and fans reports out to every
// connected client.
type Hub struct {
	pubsub     pubsub.PubSub
	topic      string
	bufferSize int

	mu      sync.Mutex
	clients map[chan reporting.Report]struct{}
}

func NewHub(ps pubsub.PubSub, topic string) *Hub {
	return &Hub{
		pubsub:     ps,
		topic:      utils.GetOrDefault(topic, pubsub.DefaultReportTopic),
		bufferSize: DefaultClientBufferSize,
		clients:    make(map[chan reporting.Report]struct{}),
	}
}

// Start subscribes to the report topic until ctx ends.
func (h *Hub) Start(ctx context.Context) error {
	return h.pubsub.Subscribe(ctx, h.topic, h.onMessage)
}

func (h *Hub) Stop() {
	h.pubsub.Unsubscribe(h.topic)
}

// Register returns a channel receiving every report from now on, and a
// function that releases it.
func (h *Hub) Register() (<-chan reporting.Report, func()) {
	ch := make(chan reporting.Report, h.bufferSize)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.clients, ch)
			h.mu.Unlock()
		})
	}
}

func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// onMessage never fails, so one bad payload cannot end the subscription.
// Clients that fall behind lose reports rather than stall the others.
func (h *Hub) onMessage(ctx context.Context, message string) error {
	var report reporting.Report
	if err := json.Unmarshal([]byte(message), &report); err != nil {
		slog.Warn("Hub: discarding malformed report", "error", err)
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case ch <- report:
		default:
			slog.Warn("Hub: client too slow, dropping report", "run_id", report.RunID, "iteration", report.Iteration)
		}
	}
	return nil
}
