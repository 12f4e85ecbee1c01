package trajectory_test

import (
	"testing"

	"github.com/roackb2/rollout/internal/pkg/trajectory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type BufferTestSuite struct {
	suite.Suite
	buffer *trajectory.Buffer
}

func (s *BufferTestSuite) SetupTest() {
	s.buffer = trajectory.NewBuffer(3)
}

func TestBuffer(t *testing.T) {
	suite.Run(t, new(BufferTestSuite))
}

func row(v ...float32) []float32 { return v }

func (s *BufferTestSuite) step(state, reward float32, done bool) {
	s.Require().NoError(s.buffer.SetOutbound([][]float32{row(state)}, [][]float32{row(1)}, []float32{-0.5}))
	s.Require().NoError(s.buffer.SetInbound([]float32{reward}, [][]float32{row(state + 1)}, done))
}

func (s *BufferTestSuite) TestTerminalFlush() {
	s.step(0, 1, false)
	s.Nil(s.buffer.TryFlush())
	s.Equal(1, s.buffer.Len())

	s.step(1, 2, true)
	segments := s.buffer.TryFlush()
	s.Require().Len(segments, 1)
	seg := segments[0]
	s.Equal(3, seg.WorkerID)
	s.Equal(0, seg.Agent)
	s.Require().Len(seg.Steps, 2)
	s.Equal(float32(1), seg.Steps[0].Reward)
	s.Equal(float32(2), seg.Steps[1].Reward)
	s.True(seg.Steps[1].Done)
	s.False(seg.Steps[1].Truncated)
	s.False(seg.Steps[0].Truncated)
	s.Equal(0, s.buffer.Len())
	s.Nil(s.buffer.TryFlush())
}

func (s *BufferTestSuite) TestDrainPartialMarksTruncation() {
	s.step(0, 1, false)
	s.step(1, 1, false)
	segments := s.buffer.DrainPartial()
	s.Require().Len(segments, 1)
	steps := segments[0].Steps
	s.Require().Len(steps, 2)
	s.False(steps[0].Truncated)
	s.True(steps[1].Truncated)
	s.False(steps[1].Done)
	s.Equal(0, s.buffer.Len())
}

func (s *BufferTestSuite) TestEmptyBufferDrainsToNothing() {
	s.Nil(s.buffer.DrainPartial())
	s.Nil(s.buffer.TryFlush())
}

func (s *BufferTestSuite) TestInFlightStepSurvivesDrain() {
	s.step(0, 1, false)
	s.Require().NoError(s.buffer.SetOutbound([][]float32{row(5)}, [][]float32{row(0)}, []float32{-1}))
	s.True(s.buffer.AwaitingInbound())

	segments := s.buffer.DrainPartial()
	s.Require().Len(segments, 1)
	s.Len(segments[0].Steps, 1)

	// The in-flight step completes after the boundary and is emitted once.
	s.Require().NoError(s.buffer.SetInbound([]float32{7}, [][]float32{row(6)}, true))
	segments = s.buffer.TryFlush()
	s.Require().Len(segments, 1)
	s.Require().Len(segments[0].Steps, 1)
	s.Equal(float32(5), segments[0].Steps[0].State[0])
	s.Equal(float32(7), segments[0].Steps[0].Reward)
}

func (s *BufferTestSuite) TestTwoPhaseOrdering() {
	s.ErrorIs(s.buffer.SetInbound([]float32{1}, [][]float32{row(1)}, false), trajectory.ErrNoPendingStep)

	s.Require().NoError(s.buffer.SetOutbound([][]float32{row(0)}, [][]float32{row(1)}, []float32{0}))
	s.ErrorIs(s.buffer.SetOutbound([][]float32{row(0)}, [][]float32{row(1)}, []float32{0}), trajectory.ErrStepInFlight)
	s.Equal(0, s.buffer.Len())
}

func (s *BufferTestSuite) TestAgentMismatchDropsStep() {
	s.ErrorIs(s.buffer.SetOutbound([][]float32{row(0)}, nil, []float32{0}), trajectory.ErrAgentMismatch)
	s.False(s.buffer.AwaitingInbound())

	s.Require().NoError(s.buffer.SetOutbound([][]float32{row(0)}, [][]float32{row(1)}, []float32{0}))
	s.ErrorIs(s.buffer.SetInbound([]float32{1, 2}, [][]float32{row(1), row(2)}, false), trajectory.ErrAgentMismatch)
	s.False(s.buffer.AwaitingInbound())
	s.Equal(0, s.buffer.Len())
}

func TestMultiAgentSegments(t *testing.T) {
	b := trajectory.NewBuffer(0)
	for i := 0; i < 3; i++ {
		require.NoError(t, b.SetOutbound(
			[][]float32{row(float32(i), 0), row(float32(i), 1)},
			[][]float32{row(0), row(1)},
			[]float32{-0.1, -0.2},
		))
		require.NoError(t, b.SetInbound([]float32{1, 10}, [][]float32{row(0, 0), row(0, 1)}, i == 2))
	}
	segments := b.TryFlush()
	require.Len(t, segments, 2)
	for agent, seg := range segments {
		assert.Equal(t, agent, seg.Agent)
		require.Len(t, seg.Steps, 3)
		for i, step := range seg.Steps {
			assert.Equal(t, float32(i), step.State[0])
			assert.Equal(t, float32(agent), step.State[1])
		}
		last := seg.Steps[2]
		assert.True(t, last.Done)
		assert.False(t, last.Truncated)
	}
	assert.Equal(t, float32(10), segments[1].Steps[0].Reward)
}

func TestSetOrdersByWorker(t *testing.T) {
	set := trajectory.NewSet(3)
	assert.Equal(t, 3, set.Len())
	_, ok := set.Get(3)
	assert.False(t, ok)

	for _, id := range []int{2, 0} {
		b, ok := set.Get(id)
		require.True(t, ok)
		require.NoError(t, b.SetOutbound([][]float32{row(float32(id))}, [][]float32{row(0)}, []float32{0}))
		require.NoError(t, b.SetInbound([]float32{1}, [][]float32{row(0)}, id == 2))
	}

	flushed := set.Flush()
	require.Len(t, flushed, 1)
	assert.Equal(t, 2, flushed[0].WorkerID)

	drained := set.DrainPartial()
	require.Len(t, drained, 1)
	assert.Equal(t, 0, drained[0].WorkerID)
	assert.True(t, drained[0].Steps[0].Truncated)

	assert.Empty(t, set.DrainPartial())
}
