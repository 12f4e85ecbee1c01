package pubsub

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

const DefaultChannelBufferSize = 1024

var ErrPubSubClosed = errors.New("pubsub closed")

type channelSubscription struct {
	ch     chan string
	cancel context.CancelFunc
}

// ChannelPubSub delivers messages to in-process subscribers through buffered
// channels. Each topic has at most one subscriber, as with KafkaPubSub.
type ChannelPubSub struct {
	bufferSize    int
	subscriptions map[string]*channelSubscription
	mu            sync.Mutex
	closed        bool
}

func NewChannelPubSub(bufferSize int) *ChannelPubSub {
	if bufferSize <= 0 {
		bufferSize = DefaultChannelBufferSize
	}
	return &ChannelPubSub{
		bufferSize:    bufferSize,
		subscriptions: make(map[string]*channelSubscription),
	}
}

// Publish drops the message when nobody subscribes to topic.
func (p *ChannelPubSub) Publish(ctx context.Context, topic string, message string, timeout time.Duration) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPubSubClosed
	}
	sub, ok := p.subscriptions[topic]
	p.mu.Unlock()
	if !ok {
		return nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case sub.ch <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return context.DeadlineExceeded
	}
}

func (p *ChannelPubSub) Subscribe(ctx context.Context, topic string, callback OnMessageCallback) error {
	ctx, cancel := context.WithCancel(ctx)
	sub := &channelSubscription{ch: make(chan string, p.bufferSize), cancel: cancel}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		cancel()
		return ErrPubSubClosed
	}
	if prev, ok := p.subscriptions[topic]; ok {
		prev.cancel()
	}
	p.subscriptions[topic] = sub
	p.mu.Unlock()

	go func() {
		for {
			select {
			case <-ctx.Done():
				slog.Debug("ChannelPubSub: subscription ended", "topic", topic)
				return
			case msg := <-sub.ch:
				if err := callback(ctx, msg); err != nil {
					slog.Error("ChannelPubSub: callback error", "topic", topic, "error", err)
					return
				}
			}
		}
	}()
	return nil
}

func (p *ChannelPubSub) Unsubscribe(topic string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if sub, ok := p.subscriptions[topic]; ok {
		sub.cancel()
		delete(p.subscriptions, topic)
	}
}

func (p *ChannelPubSub) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, sub := range p.subscriptions {
		sub.cancel()
	}
	p.subscriptions = make(map[string]*channelSubscription)
	p.closed = true
	return nil
}
