package collector_test

import (
	"context"
	"testing"
	"time"

	"github.com/roackb2/rollout/internal/pkg/collector"
	"github.com/roackb2/rollout/internal/pkg/protocol"
	"github.com/roackb2/rollout/internal/pkg/reward"
	"github.com/roackb2/rollout/internal/pkg/trajectory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type fakeInbox struct {
	frames [][]byte
	// refill, when set, produces a new frame whenever the queue runs dry.
	refill func() []byte
	closed bool
}

func (f *fakeInbox) Poll() bool {
	if len(f.frames) == 0 && f.refill != nil {
		if frame := f.refill(); frame != nil {
			f.frames = append(f.frames, frame)
		}
	}
	return len(f.frames) > 0
}

func (f *fakeInbox) Recv() ([]byte, error) {
	frame := f.frames[0]
	f.frames = f.frames[1:]
	return frame, nil
}

func (f *fakeInbox) Closed() bool {
	return f.closed && len(f.frames) == 0
}

func stepFrame(reward float32, done bool, obs ...float32) []byte {
	return protocol.Encode(protocol.StepData{
		Done:      done,
		Shape:     []int{len(obs)},
		Rewards:   []float32{reward},
		NextState: protocol.Observation{Shape: []int{1, len(obs)}, Data: obs},
	})
}

func alwaysReady() *fakeInbox {
	return &fakeInbox{refill: func() []byte { return stepFrame(1, false, 0) }}
}

type CollectorTestSuite struct {
	suite.Suite
	tracker *reward.Tracker
}

func (s *CollectorTestSuite) SetupTest() {
	s.tracker = reward.NewTracker()
}

func TestCollector(t *testing.T) {
	suite.Run(t, new(CollectorTestSuite))
}

func (s *CollectorTestSuite) newCollector(inboxes ...*fakeInbox) *collector.Collector {
	list := make([]collector.Inbox, len(inboxes))
	for i, in := range inboxes {
		list[i] = in
	}
	return collector.New(list, s.tracker, trajectory.NewSet(len(inboxes)))
}

func (s *CollectorTestSuite) TestEveryWorkerVisitedWithinNRounds() {
	c := s.newCollector(alwaysReady(), alwaysReady(), alwaysReady())
	seen := map[int]bool{}
	for round := 0; round < 3; round++ {
		obs, n, err := c.Collect(context.Background(), 1)
		s.Require().NoError(err)
		s.Equal(1, n)
		s.Require().Len(obs, 1)
		seen[obs[0].WorkerID] = true
	}
	s.Len(seen, 3)
}

func (s *CollectorTestSuite) TestSlowWorkerIsNotStarved() {
	round := 0
	b := &fakeInbox{refill: func() []byte {
		if round < 1 {
			return nil
		}
		return stepFrame(2, false, 9)
	}}
	c := s.newCollector(alwaysReady(), b)
	minCount := collector.MinCount(2, 2)

	obs, n, err := c.Collect(context.Background(), minCount)
	s.Require().NoError(err)
	s.Equal(2, n)
	for _, o := range obs {
		s.Equal(0, o.WorkerID)
	}

	round++
	obs, _, err = c.Collect(context.Background(), minCount)
	s.Require().NoError(err)
	ids := map[int]bool{}
	for _, o := range obs {
		ids[o.WorkerID] = true
	}
	s.True(ids[1], "worker 1 must be collected once it is ready")
}

func (s *CollectorTestSuite) TestMultiAgentMessagesCountEveryAgent() {
	in := &fakeInbox{frames: [][]byte{protocol.Encode(protocol.StepData{
		Shape:     []int{3, 2},
		Rewards:   []float32{1, 2, 3},
		NextState: protocol.Observation{Shape: []int{3, 2}, Data: make([]float32, 6)},
	})}}
	c := s.newCollector(in)
	obs, n, err := c.Collect(context.Background(), 2)
	s.Require().NoError(err)
	s.Equal(3, n)
	s.Require().Len(obs, 1)
	s.Equal(3, obs[0].Obs.Rows())
	s.Equal([]float64{1, 2, 3}, s.tracker.Running(0))
}

func (s *CollectorTestSuite) TestMalformedAndUnexpectedMessagesAreDropped() {
	in := &fakeInbox{frames: [][]byte{
		{1, 2, 3},
		protocol.Pack(protocol.EnvStepDataHeader, []float32{0, 4, 1}),
		protocol.Pack(protocol.EnvStepDataHeader, []float32{0, 3, 2, 1 << 32, 1 << 31, 1, 1}),
		protocol.Encode(protocol.Shapes{ObsShape: 4, ActionShape: 2}),
		stepFrame(1, false, 5),
	}}
	c := s.newCollector(in)
	obs, n, err := c.Collect(context.Background(), 1)
	s.Require().NoError(err)
	s.Equal(1, n)
	s.Require().Len(obs, 1)
	s.Equal(float32(5), obs[0].Obs.Data[0])
	s.Equal(3, c.Discarded())
}

func (s *CollectorTestSuite) TestStepsCompleteBuffersAndTrackRewards() {
	buffers := trajectory.NewSet(1)
	c := collector.New([]collector.Inbox{&fakeInbox{frames: [][]byte{stepFrame(4, true, 1, 2)}}}, s.tracker, buffers)
	buffer, _ := buffers.Get(0)
	s.Require().NoError(buffer.SetOutbound([][]float32{{0, 0}}, [][]float32{{1}}, []float32{-0.7}))

	_, _, err := c.Collect(context.Background(), 1)
	s.Require().NoError(err)
	s.False(buffer.AwaitingInbound())
	segments := buffer.TryFlush()
	s.Require().Len(segments, 1)
	s.Equal([]float32{1, 2}, segments[0].Steps[0].NextState)
	avg, ok := s.tracker.Average()
	s.True(ok)
	s.Equal(4.0, avg)
}

func (s *CollectorTestSuite) TestCancellationWhileIdle() {
	c := s.newCollector(&fakeInbox{}, &fakeInbox{})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, n, err := c.Collect(ctx, 1)
	s.ErrorIs(err, context.DeadlineExceeded)
	s.Equal(0, n)
}

func (s *CollectorTestSuite) TestAllClosed() {
	c := s.newCollector(&fakeInbox{closed: true}, &fakeInbox{closed: true})
	_, _, err := c.Collect(context.Background(), 1)
	s.ErrorIs(err, collector.ErrNoLiveWorkers)
}

func TestMinCount(t *testing.T) {
	assert.Equal(t, 2, collector.MinCount(8, 2))
	assert.Equal(t, 4, collector.MinCount(4, 16))
	assert.Equal(t, 1, collector.MinCount(8, 0))
	assert.Equal(t, 1, collector.MinCount(-3, 4))
	assert.Equal(t, 1, collector.MinCount(0, 4))
}

func TestCursorPersistsAcrossCalls(t *testing.T) {
	c := collector.New([]collector.Inbox{alwaysReady(), alwaysReady()}, reward.NewTracker(), trajectory.NewSet(2))
	_, _, err := c.Collect(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Cursor())
	obs, _, err := c.Collect(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, obs[0].WorkerID)
}
