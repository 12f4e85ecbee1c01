package ws_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/roackb2/rollout/internal/pkg/manager"
	"github.com/roackb2/rollout/internal/pkg/pubsub"
	"github.com/roackb2/rollout/internal/pkg/reporting"
	"github.com/roackb2/rollout/internal/pkg/ws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

var errConnClosed = errors.New("connection closed")

// fakeConn feeds scripted client messages and records server messages.
type fakeConn struct {
	incoming chan ws.WsMessage
	mu       sync.Mutex
	written  []ws.WsMessage
	closed   chan struct{}
	once     sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{incoming: make(chan ws.WsMessage, 8), closed: make(chan struct{})}
}

func (c *fakeConn) ReadJSON(v interface{}) error {
	select {
	case msg, ok := <-c.incoming:
		if !ok {
			return errConnClosed
		}
		*(v.(*ws.WsMessage)) = msg
		return nil
	case <-c.closed:
		return errConnClosed
	}
}

func (c *fakeConn) WriteJSON(message interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.written = append(c.written, message.(ws.WsMessage))
	return nil
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) find(event ws.WsEventType) (ws.WsMessage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, m := range c.written {
		if m.Event == event {
			return m, true
		}
	}
	return ws.WsMessage{}, false
}

type fixedStats struct{ stats manager.Stats }

func (f fixedStats) Stats() manager.Stats { return f.stats }

type WsHandlerTestSuite struct {
	suite.Suite
	ps  *pubsub.ChannelPubSub
	hub *ws.Hub
	ctx context.Context
}

func (s *WsHandlerTestSuite) SetupTest() {
	ctx, cancel := context.WithCancel(context.Background())
	s.T().Cleanup(cancel)
	s.ctx = ctx
	s.ps = pubsub.NewChannelPubSub(8)
	s.hub = ws.NewHub(s.ps, "")
	s.Require().NoError(s.hub.Start(ctx))
}

func (s *WsHandlerTestSuite) serve(conn *fakeConn, stats ws.StatsSource) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- ws.NewWsHandler(conn, s.hub, stats).HandleConnection(s.ctx)
	}()
	return done
}

func (s *WsHandlerTestSuite) TestPingPong() {
	conn := newFakeConn()
	done := s.serve(conn, nil)

	conn.incoming <- ws.WsMessage{Event: ws.WsEventTypePing}
	s.Eventually(func() bool {
		_, ok := conn.find(ws.WsEventTypePong)
		return ok
	}, time.Second, time.Millisecond)

	close(conn.incoming)
	s.ErrorIs(<-done, errConnClosed)
	s.Equal(0, s.hub.Clients())
}

func (s *WsHandlerTestSuite) TestStatsRequest() {
	conn := newFakeConn()
	runID := uuid.New()
	done := s.serve(conn, fixedStats{manager.Stats{RunID: runID, Iterations: 4}})

	conn.incoming <- ws.WsMessage{Event: ws.WsEventTypeStats}
	s.Eventually(func() bool {
		_, ok := conn.find(ws.WsEventTypeStats)
		return ok
	}, time.Second, time.Millisecond)
	msg, _ := conn.find(ws.WsEventTypeStats)
	s.Require().NotNil(msg.Data.Stats)
	s.Equal(runID, msg.Data.Stats.RunID)

	conn.incoming <- ws.WsMessage{Event: "bogus"}
	s.Eventually(func() bool {
		_, ok := conn.find(ws.WsEventTypeError)
		return ok
	}, time.Second, time.Millisecond)

	conn.Close()
	<-done
}

func (s *WsHandlerTestSuite) TestReportsArePushed() {
	conn := newFakeConn()
	done := s.serve(conn, nil)
	s.Eventually(func() bool { return s.hub.Clients() == 1 }, time.Second, time.Millisecond)

	sink := reporting.NewPubSubSink(s.ps, "", time.Second)
	report := reporting.Report{RunID: uuid.New(), Iteration: 9, Collected: 3}
	s.Require().NoError(sink.Report(s.ctx, report))

	s.Eventually(func() bool {
		_, ok := conn.find(ws.WsEventTypeReport)
		return ok
	}, time.Second, time.Millisecond)
	msg, _ := conn.find(ws.WsEventTypeReport)
	s.Equal(9, msg.Data.Report.Iteration)
	s.Equal(report.RunID, msg.Data.Report.RunID)

	conn.Close()
	<-done
}

func TestWsHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(WsHandlerTestSuite))
}

func TestHubSkipsMalformedReports(t *testing.T) {
	ps := pubsub.NewChannelPubSub(4)
	hub := ws.NewHub(ps, "reports")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, hub.Start(ctx))

	reports, release := hub.Register()
	defer release()

	require.NoError(t, ps.Publish(ctx, "reports", "not json", time.Second))
	good, err := json.Marshal(reporting.Report{Iteration: 2})
	require.NoError(t, err)
	require.NoError(t, ps.Publish(ctx, "reports", string(good), time.Second))

	select {
	case r := <-reports:
		assert.Equal(t, 2, r.Iteration)
	case <-time.After(time.Second):
		t.Fatal("report not delivered")
	}
}
