package pubsub

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/roackb2/rollout/config"
	"github.com/segmentio/kafka-go"
)

const (
	DefaultPartition      = 0
	DefaultReaderMaxBytes = 10 * 1024 * 1024 // 10MB
)

type KafkaPubSub struct {
	address            string
	writer             *kafka.Writer
	subscriptions      map[string]context.CancelFunc
	subscriptionsMutex sync.Mutex
}

func NewKafkaPubSub(cfg config.KafkaConfig) *KafkaPubSub {
	return &KafkaPubSub{
		address: cfg.Address,
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Address),
			Balancer:               &kafka.LeastBytes{},
			AllowAutoTopicCreation: true,
		},
		subscriptions: make(map[string]context.CancelFunc),
	}
}

func (k *KafkaPubSub) Publish(ctx context.Context, topic string, message string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := k.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Value: []byte(message),
	})
	if err != nil {
		slog.Error("KafkaPubSub: failed to write message", "topic", topic, "error", err)
		return err
	}
	return nil
}

func (k *KafkaPubSub) Subscribe(ctx context.Context, topic string, callback OnMessageCallback) error {
	ctx, cancel := context.WithCancel(ctx)

	k.subscriptionsMutex.Lock()
	if prev, ok := k.subscriptions[topic]; ok {
		prev()
	}
	k.subscriptions[topic] = cancel
	k.subscriptionsMutex.Unlock()

	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:   []string{k.address},
		Topic:     topic,
		Partition: DefaultPartition,
		MaxBytes:  DefaultReaderMaxBytes,
	})
	if err := r.SetOffset(kafka.LastOffset); err != nil {
		cancel()
		r.Close()
		return err
	}

	go func() {
		defer r.Close()
		for {
			m, err := r.ReadMessage(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					slog.Info("KafkaPubSub: subscription to topic canceled", "topic", topic)
					return
				}
				slog.Error("KafkaPubSub: failed to read message", "topic", topic, "error", err)
				return
			}
			if err := callback(ctx, string(m.Value)); err != nil {
				slog.Error("KafkaPubSub: callback error", "topic", topic, "error", err)
				return
			}
		}
	}()

	return nil
}

func (k *KafkaPubSub) Unsubscribe(topic string) {
	k.subscriptionsMutex.Lock()
	if cancel, ok := k.subscriptions[topic]; ok {
		cancel()
		delete(k.subscriptions, topic)
	}
	k.subscriptionsMutex.Unlock()
}

func (k *KafkaPubSub) Close() error {
	k.subscriptionsMutex.Lock()
	for _, cancel := range k.subscriptions {
		cancel()
	}
	k.subscriptions = make(map[string]context.CancelFunc)
	k.subscriptionsMutex.Unlock()

	return k.writer.Close()
}
