package worker

import (
	"context"
	"errors"
	"log/slog"

	"github.com/looplab/fsm"
)

// Handle is one spawned worker: its process, the parent end of its channel and
// its lifecycle state. Handles are owned by the Registry.
type Handle struct {
	ID      int
	Process Process
	Channel *Channel

	lifecycle *fsm.FSM // FSM already implements mutex
}

func newHandle(id int, proc Process, ch *Channel) *Handle {
	h := &Handle{ID: id, Process: proc, Channel: ch}
	h.lifecycle = fsm.NewFSM(
		StatusSpawned,
		fsm.Events{
			{Name: EventReady, Src: []string{StatusSpawned}, Dst: StatusReady},
			{Name: EventStop, Src: []string{StatusSpawned, StatusReady}, Dst: StatusStopping},
			{Name: EventExit, Src: []string{StatusStopping}, Dst: StatusStopped},
			{Name: EventFail, Src: []string{StatusSpawned, StatusReady, StatusStopping}, Dst: StatusFailed},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				slog.Debug("Worker: transitioned", "worker_id", id, "from", e.Src, "to", e.Dst)
			},
		},
	)
	return h
}

func (h *Handle) Status() string {
	return h.lifecycle.Current()
}

// MarkReady records that the worker delivered its initial state.
func (h *Handle) MarkReady() {
	h.transition(EventReady)
}

func (h *Handle) transition(event string) {
	err := h.lifecycle.Event(context.Background(), event)
	var noTransition fsm.NoTransitionError
	if err != nil && !errors.As(err, &noTransition) {
		slog.Warn("Worker: ignored lifecycle event", "worker_id", h.ID, "event", event, "status", h.Status(), "error", err)
	}
}

func (h *Handle) snapshot() WorkerStatus {
	pid := 0
	if h.Process != nil {
		pid = h.Process.Pid()
	}
	return WorkerStatus{
		ID:     h.ID,
		Pid:    pid,
		Status: h.Status(),
		Closed: h.Channel.ended(),
	}
}
