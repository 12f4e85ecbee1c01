//go:build integration

package pubsub_integration_test

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/roackb2/rollout/config"
	"github.com/roackb2/rollout/internal/pkg/pubsub"
	"github.com/roackb2/rollout/internal/pkg/reporting"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kafkaConfig() config.KafkaConfig {
	addr := os.Getenv("ROLLOUT_KAFKA_ADDRESS")
	if addr == "" {
		addr = "localhost:9092"
	}
	return config.KafkaConfig{Enabled: true, Address: addr, Topic: "rollout-integration"}
}

func TestKafkaPubSub_Integration(t *testing.T) {
	cfg := kafkaConfig()
	ps := pubsub.NewKafkaPubSub(cfg)
	defer ps.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	receivedMessages := make(chan string, 1)
	err := ps.Subscribe(ctx, cfg.Topic, func(ctx context.Context, msg string) error {
		receivedMessages <- msg
		return nil
	})
	require.NoError(t, err)
	defer ps.Unsubscribe(cfg.Topic)

	sink := reporting.NewPubSubSink(ps, cfg.Topic, 5*time.Second)
	report := reporting.Report{RunID: uuid.New(), Iteration: 1, Collected: 8, Cumulative: 8, At: time.Now().UTC()}
	require.NoError(t, sink.Report(ctx, report))

	select {
	case msg := <-receivedMessages:
		var got reporting.Report
		require.NoError(t, json.Unmarshal([]byte(msg), &got))
		assert.Equal(t, report.RunID, got.RunID)
		assert.Equal(t, 8, got.Collected)
	case <-time.After(10 * time.Second):
		t.Fatal("Did not receive message in time")
	}
}
