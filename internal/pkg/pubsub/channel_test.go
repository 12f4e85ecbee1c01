package pubsub_test

import (
	"context"
	"testing"
	"time"

	"github.com/roackb2/rollout/internal/pkg/pubsub"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelPubSubDelivers(t *testing.T) {
	ps := pubsub.NewChannelPubSub(0)
	defer ps.Close()

	received := make(chan string, 1)
	err := ps.Subscribe(context.Background(), "reports", func(ctx context.Context, msg string) error {
		received <- msg
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, ps.Publish(context.Background(), "reports", "hello", time.Second))
	select {
	case msg := <-received:
		assert.Equal(t, "hello", msg)
	case <-time.After(time.Second):
		t.Fatal("message not delivered")
	}
}

func TestChannelPubSubWithoutSubscriber(t *testing.T) {
	ps := pubsub.NewChannelPubSub(1)
	assert.NoError(t, ps.Publish(context.Background(), "nobody", "dropped", time.Millisecond))
}

func TestChannelPubSubPublishTimesOut(t *testing.T) {
	ps := pubsub.NewChannelPubSub(1)
	defer ps.Close()

	block := make(chan struct{})
	defer close(block)
	require.NoError(t, ps.Subscribe(context.Background(), "slow", func(ctx context.Context, msg string) error {
		<-block
		return nil
	}))

	// One message is being handled, one fills the buffer, the next must wait.
	require.NoError(t, ps.Publish(context.Background(), "slow", "1", time.Second))
	require.NoError(t, ps.Publish(context.Background(), "slow", "2", time.Second))
	assert.ErrorIs(t, ps.Publish(context.Background(), "slow", "3", 10*time.Millisecond), context.DeadlineExceeded)
}

func TestChannelPubSubClosed(t *testing.T) {
	ps := pubsub.NewChannelPubSub(1)
	require.NoError(t, ps.Close())
	assert.ErrorIs(t, ps.Publish(context.Background(), "t", "m", time.Millisecond), pubsub.ErrPubSubClosed)
	assert.ErrorIs(t, ps.Subscribe(context.Background(), "t", nil), pubsub.ErrPubSubClosed)
}
