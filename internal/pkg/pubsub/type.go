// Package pubsub provides a publish-subscribe transport for collection
// reports.
//
// KafkaPubSub publishes to a Kafka cluster; ChannelPubSub fans messages out
// in process and is used when no broker is configured.
package pubsub

import (
	"context"
	"time"
)

// DefaultReportTopic is used when the configuration names no topic.
const DefaultReportTopic = "rollout-reports"

// OnMessageCallback receives one message. Returning an error ends the
// subscription.
type OnMessageCallback func(ctx context.Context, message string) error

type PubSub interface {
	// Publish sends message to topic, giving up after timeout.
	Publish(ctx context.Context, topic string, message string, timeout time.Duration) error

	// Subscribe calls callback for every message published to topic until ctx
	// is canceled or Unsubscribe is called.
	Subscribe(ctx context.Context, topic string, callback OnMessageCallback) error

	// Unsubscribe ends the subscription to topic. It is a no-op when there is
	// none.
	Unsubscribe(topic string)

	Close() error
}
