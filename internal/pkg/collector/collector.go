// Package collector polls worker channels round-robin and gathers newly
// produced observations for the next inference batch.
package collector

import (
	"context"
	"errors"
	"log/slog"
	"runtime"

	"github.com/roackb2/rollout/internal/pkg/protocol"
	"github.com/roackb2/rollout/internal/pkg/reward"
	"github.com/roackb2/rollout/internal/pkg/trajectory"
)

var ErrNoLiveWorkers = errors.New("no live workers left to collect from")

// Inbox is the receiving side of one worker channel. Poll must not block.
type Inbox interface {
	Poll() bool
	Recv() ([]byte, error)
	Closed() bool
}

// Observed is one worker's newly produced observation block.
type Observed struct {
	WorkerID int
	Obs      protocol.Observation
}

// Collector owns a rotating cursor over the worker ids. The cursor persists
// across calls so the worker polled last in one round is not polled last in
// every round.
type Collector struct {
	inboxes   []Inbox
	tracker   *reward.Tracker
	buffers   *trajectory.Set
	cursor    int
	discarded int
}

func New(inboxes []Inbox, tracker *reward.Tracker, buffers *trajectory.Set) *Collector {
	return &Collector{
		inboxes: inboxes,
		tracker: tracker,
		buffers: buffers,
	}
}

// MinCount bounds the configured minimum inference size by the number of
// workers, so a small pool never waits for more messages than it can produce.
// The result is at least 1.
func MinCount(minInferenceSize, nWorkers int) int {
	return max(1, min(minInferenceSize, nWorkers))
}

// Collect polls without blocking until at least minCount agent observations
// have arrived. Every step message is fed to the reward tracker and completes
// the pending step in its worker's trajectory buffer. The returned count may
// exceed minCount when the last message carried several agents.
func (c *Collector) Collect(ctx context.Context, minCount int) ([]Observed, int, error) {
	n := len(c.inboxes)
	if n == 0 {
		return nil, 0, ErrNoLiveWorkers
	}
	var observed []Observed
	collected := 0
	idle := 0
	for collected < minCount {
		id := c.cursor
		c.cursor = (c.cursor + 1) % n

		inbox := c.inboxes[id]
		if !inbox.Poll() {
			idle++
			if idle < n {
				continue
			}
			// A full pass found nothing ready.
			idle = 0
			if err := ctx.Err(); err != nil {
				return observed, collected, err
			}
			if c.allClosed() {
				return observed, collected, ErrNoLiveWorkers
			}
			runtime.Gosched()
			continue
		}
		idle = 0

		raw, err := inbox.Recv()
		if err != nil {
			slog.Warn("Collector: receive failed", "worker_id", id, "error", err)
			continue
		}
		msg, err := protocol.Decode(raw)
		if err != nil {
			c.discarded++
			slog.Warn("Collector: discarding malformed message", "worker_id", id, "error", err)
			continue
		}
		step, ok := msg.(protocol.StepData)
		if !ok {
			slog.Warn("Collector: ignoring unexpected message", "worker_id", id, "kind", msg.Kind())
			continue
		}

		collected += step.NumAgents()
		c.tracker.Record(id, step.Rewards, step.Done)
		if buffer, ok := c.buffers.Get(id); ok {
			if err := buffer.SetInbound(step.Rewards, rows(step.NextState), step.Done); err != nil {
				slog.Warn("Collector: step not recorded", "worker_id", id, "error", err)
			}
		}
		observed = append(observed, Observed{WorkerID: id, Obs: step.NextState})
	}
	return observed, collected, nil
}

// Cursor returns the id the next poll starts from.
func (c *Collector) Cursor() int {
	return c.cursor
}

// Discarded counts messages dropped because they failed to decode.
func (c *Collector) Discarded() int {
	return c.discarded
}

func (c *Collector) allClosed() bool {
	for _, inbox := range c.inboxes {
		if !inbox.Closed() {
			return false
		}
	}
	return true
}

func rows(obs protocol.Observation) [][]float32 {
	out := make([][]float32, obs.Rows())
	for i := range out {
		out[i] = obs.Row(i)
	}
	return out
}
