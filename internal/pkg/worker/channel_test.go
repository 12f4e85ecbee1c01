package worker_test

import (
	"net"
	"testing"
	"time"

	"github.com/roackb2/rollout/internal/pkg/protocol"
	"github.com/roackb2/rollout/internal/pkg/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelPollIsNonBlocking(t *testing.T) {
	parent, child := net.Pipe()
	ch := worker.NewChannel(parent)
	defer ch.Close()

	assert.False(t, ch.Poll())

	go protocol.WriteFrame(child, []byte("hello"))
	require.Eventually(t, ch.Poll, time.Second, time.Millisecond)
	// Polling again keeps the same frame ready.
	assert.True(t, ch.Poll())

	frame, err := ch.Recv()
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), frame)
	assert.False(t, ch.Poll())
	assert.False(t, ch.Closed())

	child.Close()
	require.Eventually(t, ch.Closed, time.Second, time.Millisecond)
	assert.False(t, ch.Poll())
	_, err = ch.Recv()
	assert.ErrorIs(t, err, worker.ErrChannelClosed)
}

func TestChannelSend(t *testing.T) {
	parent, child := net.Pipe()
	ch := worker.NewChannel(parent)

	go func() {
		assert.NoError(t, ch.SendMessage(protocol.Stop{}))
	}()
	raw, err := protocol.ReadFrame(child)
	require.NoError(t, err)
	msg, err := protocol.Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, protocol.KindStop, msg.Kind())

	// Nobody reads the child end any more, so a bounded send must give up.
	err = ch.SendMessageWithin(protocol.Stop{}, 10*time.Millisecond)
	assert.Error(t, err)

	require.NoError(t, ch.Close())
	assert.ErrorIs(t, ch.Close(), worker.ErrChannelClosed)
}
