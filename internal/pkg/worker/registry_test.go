package worker_test

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/roackb2/rollout/internal/pkg/protocol"
	"github.com/roackb2/rollout/internal/pkg/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// echoWorker answers its init frame with a one-row reset state whose only
// element is the worker's seed, then waits for stop.
func echoWorker(seen *sync.Map) worker.RunFunc {
	return func(ctx context.Context, conn io.ReadWriter, opts worker.SpawnOptions) error {
		raw, err := protocol.ReadFrame(conn)
		if err != nil {
			return err
		}
		init, err := protocol.DecodeInit(raw)
		if err != nil {
			return err
		}
		seen.Store(opts.ID, struct {
			Init protocol.InitPayload
			Opts worker.SpawnOptions
		}{init, opts})
		reset := protocol.ResetState{State: protocol.Observation{Shape: []int{1, 1}, Data: []float32{float32(opts.Seed)}}}
		if err := protocol.WriteFrame(conn, protocol.Encode(reset)); err != nil {
			return err
		}
		for {
			raw, err := protocol.ReadFrame(conn)
			if err != nil {
				return err
			}
			msg, err := protocol.Decode(raw)
			if err != nil {
				return err
			}
			if msg.Kind() == protocol.KindStop {
				return nil
			}
		}
	}
}

type RegistryTestSuite struct {
	suite.Suite
	seen     *sync.Map
	registry *worker.Registry
}

func (s *RegistryTestSuite) SetupTest() {
	s.seen = &sync.Map{}
	s.registry = worker.NewRegistry(worker.RegistryConfig{
		SeedBase:    100,
		Render:      true,
		JoinTimeout: time.Second,
	}, &worker.InProcessSpawner{Run: echoWorker(s.seen)})
}

func TestRegistry(t *testing.T) {
	suite.Run(t, new(RegistryTestSuite))
}

func (s *RegistryTestSuite) TestSpawnAssignsDenseIdsSeedsAndRender() {
	handles, err := s.registry.Spawn(context.Background(), 3, protocol.InitPayload{Env: "cartpole"})
	s.Require().NoError(err)
	s.Require().Len(handles, 3)
	s.Equal(3, s.registry.Len())

	for i, h := range handles {
		s.Equal(i, h.ID)
		s.Equal(worker.StatusSpawned, h.Status())

		raw, err := h.Channel.Recv()
		s.Require().NoError(err)
		msg, err := protocol.Decode(raw)
		s.Require().NoError(err)
		s.Equal(float32(100+i), msg.(protocol.ResetState).State.Data[0])
		h.MarkReady()
		s.Equal(worker.StatusReady, h.Status())
	}

	for i := 0; i < 3; i++ {
		v, ok := s.seen.Load(i)
		s.Require().True(ok)
		rec := v.(struct {
			Init protocol.InitPayload
			Opts worker.SpawnOptions
		})
		s.Equal("cartpole", rec.Init.Env)
		s.Equal(i == 0, rec.Opts.Render)
	}

	failures := s.registry.Shutdown()
	s.Empty(failures)
	for _, st := range s.registry.Statuses() {
		s.Equal(worker.StatusStopped, st.Status)
	}
}

func (s *RegistryTestSuite) TestGetOutOfRange() {
	_, err := s.registry.Spawn(context.Background(), 1, protocol.InitPayload{Env: "cartpole"})
	s.Require().NoError(err)
	_, ok := s.registry.Get(1)
	s.False(ok)
	_, ok = s.registry.Get(-1)
	s.False(ok)
	h, ok := s.registry.Get(0)
	s.True(ok)
	s.Equal(0, h.ID)
	s.registry.Shutdown()
}

func (s *RegistryTestSuite) TestSpawnDelayHonorsContext() {
	registry := worker.NewRegistry(worker.RegistryConfig{SpawnDelay: time.Hour}, &worker.InProcessSpawner{Run: echoWorker(s.seen)})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	handles, err := registry.Spawn(ctx, 2, protocol.InitPayload{Env: "cartpole"})
	s.ErrorIs(err, context.DeadlineExceeded)
	s.Len(handles, 1)
	registry.Shutdown()
}

type brokenConn struct{}

func (brokenConn) Read([]byte) (int, error)  { return 0, io.EOF }
func (brokenConn) Write([]byte) (int, error) { return 0, errors.New("write refused") }
func (brokenConn) Close() error              { return errors.New("close refused") }

type stuckProcess struct {
	killed chan struct{}
	once   sync.Once
}

func (p *stuckProcess) Pid() int { return 42 }
func (p *stuckProcess) Wait() error {
	<-p.killed
	return errors.New("signal: killed")
}
func (p *stuckProcess) Kill() error {
	p.once.Do(func() { close(p.killed) })
	return nil
}

type scriptedSpawner struct {
	spawn func(id int) (worker.Process, io.ReadWriteCloser)
}

func (s *scriptedSpawner) Spawn(_ context.Context, opts worker.SpawnOptions) (worker.Process, io.ReadWriteCloser, error) {
	proc, conn := s.spawn(opts.ID)
	return proc, conn, nil
}

func TestShutdownContinuesThroughFailures(t *testing.T) {
	var healthyDone []chan struct{}
	spawner := &scriptedSpawner{spawn: func(id int) (worker.Process, io.ReadWriteCloser) {
		if id == 0 {
			return &stuckProcess{killed: make(chan struct{})}, brokenConn{}
		}
		parent, child := net.Pipe()
		done := make(chan struct{})
		healthyDone = append(healthyDone, done)
		go func() {
			defer close(done)
			defer child.Close()
			for {
				if _, err := protocol.ReadFrame(child); err != nil {
					return
				}
			}
		}()
		return &waitProcess{done: done}, parent
	}}

	registry := worker.NewRegistry(worker.RegistryConfig{JoinTimeout: 20 * time.Millisecond}, spawner)
	// Worker 0 refuses the init frame, so spawn stops there; spawn the rest
	// directly to get a mixed pool.
	_, err := registry.Spawn(context.Background(), 1, protocol.InitPayload{Env: "cartpole"})
	require.Error(t, err)
	_, err = registry.Spawn(context.Background(), 2, protocol.InitPayload{Env: "cartpole"})
	require.NoError(t, err)
	require.Equal(t, 3, registry.Len())

	failures := registry.Shutdown()

	ops := map[string]bool{}
	for _, f := range failures {
		assert.Equal(t, 0, f.WorkerID)
		ops[f.Op] = true
	}
	assert.True(t, ops["send stop"])
	assert.True(t, ops["close channel"])
	assert.True(t, ops["join"])

	statuses := registry.Statuses()
	assert.Equal(t, worker.StatusFailed, statuses[0].Status)
	assert.Equal(t, worker.StatusStopped, statuses[1].Status)
	assert.Equal(t, worker.StatusStopped, statuses[2].Status)
	for _, done := range healthyDone {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("healthy worker was not released")
		}
	}
}

type waitProcess struct {
	done chan struct{}
}

func (p *waitProcess) Pid() int    { return 7 }
func (p *waitProcess) Wait() error { <-p.done; return nil }
func (p *waitProcess) Kill() error { return nil }
