package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roackb2/rollout/internal/pkg/protocol"
	"github.com/roackb2/rollout/internal/pkg/utils"
)

const DefaultJoinTimeout = 5 * time.Second

// CleanupError records one failed release step during Shutdown.
type CleanupError struct {
	WorkerID int
	Op       string
	Err      error
}

func (e CleanupError) Error() string {
	return fmt.Sprintf("worker %d: %s: %v", e.WorkerID, e.Op, e.Err)
}

func (e CleanupError) Unwrap() error {
	return e.Err
}

// Registry owns every spawned worker, indexed by a dense id in spawn order.
type Registry struct {
	cfg     RegistryConfig
	spawner Spawner
	handles []*Handle
}

func NewRegistry(cfg RegistryConfig, spawner Spawner) *Registry {
	cfg.JoinTimeout = utils.GetOrDefault(cfg.JoinTimeout, DefaultJoinTimeout)
	return &Registry{cfg: cfg, spawner: spawner}
}

// Spawn starts n workers with ids 0..n-1 and hands each one the environment
// description over its channel. Only worker 0 may render. Workers spawned
// before a failure stay registered so Shutdown can release them.
func (r *Registry) Spawn(ctx context.Context, n int, init protocol.InitPayload) ([]*Handle, error) {
	initFrame, err := protocol.EncodeInit(init)
	if err != nil {
		return nil, fmt.Errorf("encode init payload: %w", err)
	}
	for i := 0; i < n; i++ {
		id := len(r.handles)
		opts := SpawnOptions{
			ID:          id,
			Seed:        r.cfg.SeedBase + int64(id),
			Render:      id == 0 && r.cfg.Render,
			RenderDelay: r.cfg.RenderDelay,
		}
		proc, conn, err := r.spawner.Spawn(ctx, opts)
		if err != nil {
			slog.Error("Registry: failed to spawn worker", "worker_id", id, "error", err)
			return r.handles, fmt.Errorf("spawn worker %d: %w", id, err)
		}
		h := newHandle(id, proc, NewChannel(conn))
		r.handles = append(r.handles, h)
		if err := h.Channel.Send(initFrame); err != nil {
			h.transition(EventFail)
			return r.handles, fmt.Errorf("send init payload to worker %d: %w", id, err)
		}
		slog.Info("Registry: spawned worker", "worker_id", id, "pid", proc.Pid(), "seed", opts.Seed, "render", opts.Render)

		if r.cfg.SpawnDelay > 0 && i < n-1 {
			select {
			case <-ctx.Done():
				return r.handles, ctx.Err()
			case <-time.After(r.cfg.SpawnDelay):
			}
		}
	}
	return r.handles, nil
}

func (r *Registry) Len() int {
	return len(r.handles)
}

func (r *Registry) Get(id int) (*Handle, bool) {
	if id < 0 || id >= len(r.handles) {
		return nil, false
	}
	return r.handles[id], true
}

func (r *Registry) Handles() []*Handle {
	return r.handles
}

func (r *Registry) Statuses() []WorkerStatus {
	statuses := make([]WorkerStatus, len(r.handles))
	for i, h := range r.handles {
		statuses[i] = h.snapshot()
	}
	return statuses
}

// Shutdown stops every worker. Each release step is attempted for every
// worker regardless of earlier failures; failures are logged and returned for
// inspection, never acted upon.
func (r *Registry) Shutdown() []CleanupError {
	var failures []CleanupError
	for _, h := range r.handles {
		failures = append(failures, r.shutdownOne(h)...)
	}
	for _, f := range failures {
		slog.Error("Registry: cleanup step failed", "worker_id", f.WorkerID, "op", f.Op, "error", f.Err)
	}
	slog.Info("Registry: shutdown complete", "workers", len(r.handles), "failures", len(failures))
	return failures
}

func (r *Registry) shutdownOne(h *Handle) (failures []CleanupError) {
	defer func() {
		if p := recover(); p != nil {
			failures = append(failures, CleanupError{WorkerID: h.ID, Op: "shutdown", Err: fmt.Errorf("panic: %v", p)})
		}
	}()
	h.transition(EventStop)

	if err := h.Channel.SendMessageWithin(protocol.Stop{}, r.cfg.JoinTimeout); err != nil {
		failures = append(failures, CleanupError{WorkerID: h.ID, Op: "send stop", Err: err})
	}
	if err := h.Channel.Close(); err != nil {
		failures = append(failures, CleanupError{WorkerID: h.ID, Op: "close channel", Err: err})
	}
	if err := r.join(h); err != nil {
		failures = append(failures, CleanupError{WorkerID: h.ID, Op: "join", Err: err})
		h.transition(EventFail)
		return failures
	}
	h.transition(EventExit)
	return failures
}

// join waits for the process to exit, killing it once JoinTimeout passes.
func (r *Registry) join(h *Handle) error {
	if h.Process == nil {
		return nil
	}
	done := make(chan error, 1)
	go func() {
		done <- h.Process.Wait()
	}()
	select {
	case err := <-done:
		return err
	case <-time.After(r.cfg.JoinTimeout):
	}
	slog.Warn("Registry: worker did not exit in time, killing", "worker_id", h.ID, "timeout", r.cfg.JoinTimeout)
	if err := h.Process.Kill(); err != nil {
		return fmt.Errorf("kill after join timeout: %w", err)
	}
	select {
	case <-done:
		return fmt.Errorf("killed after join timeout of %s", r.cfg.JoinTimeout)
	case <-time.After(r.cfg.JoinTimeout):
		return fmt.Errorf("process still running after kill")
	}
}
