// Package manager drives batched experience collection across a pool of
// environment workers.
package manager

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/roackb2/rollout/internal/pkg/collector"
	"github.com/roackb2/rollout/internal/pkg/dispatcher"
	"github.com/roackb2/rollout/internal/pkg/policy"
	"github.com/roackb2/rollout/internal/pkg/protocol"
	"github.com/roackb2/rollout/internal/pkg/reporting"
	"github.com/roackb2/rollout/internal/pkg/reward"
	"github.com/roackb2/rollout/internal/pkg/trajectory"
	"github.com/roackb2/rollout/internal/pkg/utils"
	"github.com/roackb2/rollout/internal/pkg/worker"
)

// BatchedAgentManager owns the worker pool and every per-worker structure.
// Collection methods must be called from one goroutine; Stats and the other
// accessors may be called concurrently.
type BatchedAgentManager struct {
	cfg      Config
	policy   policy.Policy
	registry *worker.Registry
	sinks    []reporting.Sink
	runID    uuid.UUID

	inboxes    []*inbox
	tracker    *reward.Tracker
	buffers    *trajectory.Set
	collector  *collector.Collector
	dispatcher *dispatcher.Dispatcher

	current   []collector.Observed
	completed []trajectory.Segment

	mu         sync.Mutex
	started    bool
	iterations int
	cumulative int64
	average    *float64
	episodes   int
	discarded  int
	shapes     *EnvShapes
}

func NewBatchedAgentManager(cfg Config, p policy.Policy, spawner worker.Spawner, sinks ...reporting.Sink) *BatchedAgentManager {
	if cfg.MinInferenceSize < 1 {
		cfg.MinInferenceSize = DefaultMinInferenceSize
	}
	cfg.Seed = utils.GetOrDefault(cfg.Seed, int64(DefaultSeed))
	cfg.StartupPollInterval = utils.GetOrDefault(cfg.StartupPollInterval, DefaultStartupPollInterval)
	cfg.ShapesPollInterval = utils.GetOrDefault(cfg.ShapesPollInterval, DefaultShapesPollInterval)

	registry := worker.NewRegistry(worker.RegistryConfig{
		SeedBase:    cfg.Seed,
		Render:      cfg.Render,
		RenderDelay: cfg.RenderDelay,
		SpawnDelay:  cfg.SpawnDelay,
		JoinTimeout: cfg.JoinTimeout,
	}, spawner)

	return &BatchedAgentManager{
		cfg:      cfg,
		policy:   p,
		registry: registry,
		sinks:    sinks,
		runID:    uuid.New(),
		tracker:  reward.NewTracker(),
	}
}

// InitProcesses spawns n workers, waits for each one's initial observation and
// queries the environment shapes from worker 0.
func (m *BatchedAgentManager) InitProcesses(ctx context.Context, n int, init protocol.InitPayload) (EnvShapes, error) {
	if n < 1 {
		return EnvShapes{}, ErrNoWorkers
	}
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return EnvShapes{}, ErrAlreadyStarted
	}
	m.started = true
	handles, err := m.registry.Spawn(ctx, n, init)
	m.mu.Unlock()
	if err != nil {
		return EnvShapes{}, err
	}

	m.inboxes = make([]*inbox, len(handles))
	inboxes := make([]collector.Inbox, len(handles))
	outboxes := make([]dispatcher.Outbox, len(handles))
	for i, h := range handles {
		m.inboxes[i] = &inbox{ch: h.Channel}
		inboxes[i] = m.inboxes[i]
		outboxes[i] = h.Channel
	}
	m.buffers = trajectory.NewSet(len(handles))
	m.collector = collector.New(inboxes, m.tracker, m.buffers)
	m.dispatcher = dispatcher.New(m.policy, outboxes, m.buffers)

	slog.Info("BatchedAgentManager: workers spawned", "run_id", m.runID, "workers", len(handles), "env", init.Env)

	if err := m.gatherInitialStates(ctx, handles); err != nil {
		return EnvShapes{}, err
	}
	return m.EnvShapes(ctx)
}

// gatherInitialStates waits, worker by worker, for the reset observation each
// worker sends after building its environment.
func (m *BatchedAgentManager) gatherInitialStates(ctx context.Context, handles []*worker.Handle) error {
	var deadline time.Time
	if m.cfg.StartupTimeout > 0 {
		deadline = time.Now().Add(m.cfg.StartupTimeout)
	}
	m.current = make([]collector.Observed, 0, len(handles))
	for _, h := range handles {
		box := m.inboxes[h.ID]
		for {
			if box.Poll() {
				raw, err := box.Recv()
				if err != nil {
					return fmt.Errorf("worker %d: %w", h.ID, err)
				}
				msg, err := protocol.Decode(raw)
				if err != nil {
					slog.Warn("BatchedAgentManager: discarding malformed startup message", "worker_id", h.ID, "error", err)
					continue
				}
				reset, ok := msg.(protocol.ResetState)
				if !ok {
					slog.Warn("BatchedAgentManager: ignoring message before initial state", "worker_id", h.ID, "kind", msg.Kind())
					continue
				}
				m.current = append(m.current, collector.Observed{WorkerID: h.ID, Obs: reset.State})
				h.MarkReady()
				break
			}
			if box.Closed() {
				return fmt.Errorf("worker %d: %w", h.ID, ErrWorkerExited)
			}
			if err := m.wait(ctx, deadline, m.cfg.StartupPollInterval); err != nil {
				return fmt.Errorf("initial state of worker %d: %w", h.ID, err)
			}
		}
	}
	return nil
}

// EnvShapes asks worker 0 for its observation size, action size and action
// space type. Step messages that arrive in the meantime are kept for the
// collector.
func (m *BatchedAgentManager) EnvShapes(ctx context.Context) (EnvShapes, error) {
	if len(m.inboxes) == 0 {
		return EnvShapes{}, ErrNotInitialized
	}
	h, _ := m.registry.Get(0)
	if err := h.Channel.SendMessage(protocol.ShapesRequest{}); err != nil {
		return EnvShapes{}, fmt.Errorf("request env shapes: %w", err)
	}

	var deadline time.Time
	if m.cfg.StartupTimeout > 0 {
		deadline = time.Now().Add(m.cfg.StartupTimeout)
	}
	box := m.inboxes[0]
	for {
		if box.ch.Poll() {
			raw, err := box.ch.Recv()
			if err != nil {
				return EnvShapes{}, fmt.Errorf("worker 0: %w", err)
			}
			msg, err := protocol.Decode(raw)
			if err == nil {
				if shapes, ok := msg.(protocol.Shapes); ok {
					m.mu.Lock()
					m.shapes = &shapes
					m.mu.Unlock()
					slog.Info("BatchedAgentManager: env shapes", "obs_shape", shapes.ObsShape, "action_shape", shapes.ActionShape, "action_space_type", shapes.ActionSpaceType)
					return shapes, nil
				}
			}
			box.hold(raw)
			continue
		}
		if box.ch.Closed() {
			return EnvShapes{}, fmt.Errorf("worker 0: %w", ErrWorkerExited)
		}
		if err := m.wait(ctx, deadline, m.cfg.ShapesPollInterval); err != nil {
			return EnvShapes{}, fmt.Errorf("env shapes: %w", err)
		}
	}
}

// CollectTimesteps alternates dispatch and collection until at least n
// timesteps have arrived, then returns every segment completed since the last
// call flattened into one batch. Steps still waiting for their worker's answer
// carry over to the next call.
func (m *BatchedAgentManager) CollectTimesteps(ctx context.Context, n int) (*trajectory.Batch, int, time.Duration, error) {
	start := time.Now()
	if m.collector == nil {
		return nil, 0, 0, ErrNotInitialized
	}
	minCount := collector.MinCount(m.cfg.MinInferenceSize, m.registry.Len())

	collected := 0
	for collected < n {
		if err := m.dispatcher.Dispatch(m.current); err != nil {
			return nil, collected, time.Since(start), err
		}
		observed, count, err := m.collector.Collect(ctx, minCount)
		m.current = observed
		collected += count
		m.completed = append(m.completed, m.buffers.Flush()...)
		if err != nil {
			m.record(collected)
			return nil, collected, time.Since(start), err
		}
	}

	segments := append(m.completed, m.buffers.DrainPartial()...)
	m.completed = nil
	batch, err := trajectory.Flatten(segments)
	if err != nil {
		return nil, collected, time.Since(start), err
	}

	elapsed := time.Since(start)
	report := m.record(collected)
	report.Elapsed = elapsed
	reporting.Notify(ctx, m.sinks, report)

	slog.Debug("BatchedAgentManager: collected timesteps", "run_id", m.runID, "requested", n, "collected", collected, "segments", len(segments), "elapsed", elapsed)
	return batch, collected, elapsed, nil
}

// record folds one call's results into the shared counters and returns the
// matching report.
func (m *BatchedAgentManager) record(collected int) reporting.Report {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.iterations++
	m.cumulative += int64(collected)
	if avg, ok := m.tracker.Average(); ok {
		m.average = &avg
	}
	m.episodes = m.tracker.Episodes()
	m.discarded = m.collector.Discarded()

	return reporting.Report{
		RunID:         m.runID,
		Iteration:     m.iterations,
		Collected:     collected,
		Cumulative:    m.cumulative,
		AverageReward: copyFloat(m.average),
		Episodes:      m.episodes,
		At:            time.Now().UTC(),
	}
}

// Cleanup stops every worker. Failures are logged by the registry and never
// returned.
func (m *BatchedAgentManager) Cleanup() {
	failures := m.registry.Shutdown()
	slog.Info("BatchedAgentManager: cleanup finished", "run_id", m.runID, "failures", len(failures))
}

func (m *BatchedAgentManager) RunID() uuid.UUID {
	return m.runID
}

func (m *BatchedAgentManager) CumulativeTimesteps() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cumulative
}

// AverageReward returns the smoothed episode reward, or false before any
// episode has finished.
func (m *BatchedAgentManager) AverageReward() (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.average == nil {
		return 0, false
	}
	return *m.average, true
}

func (m *BatchedAgentManager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := Stats{
		RunID:               m.runID,
		Iterations:          m.iterations,
		CumulativeTimesteps: m.cumulative,
		AverageReward:       copyFloat(m.average),
		Episodes:            m.episodes,
		DiscardedMessages:   m.discarded,
		Workers:             m.registry.Statuses(),
	}
	if m.shapes != nil {
		shapes := *m.shapes
		s.Shapes = &shapes
	}
	return s
}

// wait sleeps for interval unless ctx ends or the deadline passes first. A
// zero deadline never expires.
func (m *BatchedAgentManager) wait(ctx context.Context, deadline time.Time, interval time.Duration) error {
	if !deadline.IsZero() {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return ErrStartupTimeout
		}
		interval = min(interval, remaining)
	}
	timer := time.NewTimer(interval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func copyFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}
