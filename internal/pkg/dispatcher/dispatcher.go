// Package dispatcher runs one policy inference over the observation blocks of
// many workers and scatters the results back to their owners.
package dispatcher

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/roackb2/rollout/internal/pkg/collector"
	"github.com/roackb2/rollout/internal/pkg/policy"
	"github.com/roackb2/rollout/internal/pkg/protocol"
	"github.com/roackb2/rollout/internal/pkg/trajectory"
	"gonum.org/v1/gonum/mat"
)

var ErrBatchMismatch = errors.New("inference batch size mismatch")

// BatchMismatchError means the policy broke its contract of returning exactly
// one action row and one log-probability per input row.
type BatchMismatchError struct {
	Dispatched int
	Actions    int
	LogProbs   int
}

func (e *BatchMismatchError) Error() string {
	return fmt.Sprintf("%v: dispatched %d rows, got %d actions and %d log probs",
		ErrBatchMismatch, e.Dispatched, e.Actions, e.LogProbs)
}

func (e *BatchMismatchError) Unwrap() error {
	return ErrBatchMismatch
}

// Outbox is the sending side of one worker channel.
type Outbox interface {
	SendMessage(msg protocol.Message) error
}

type Dispatcher struct {
	policy   policy.Policy
	outboxes []Outbox
	buffers  *trajectory.Set
}

func New(p policy.Policy, outboxes []Outbox, buffers *trajectory.Set) *Dispatcher {
	return &Dispatcher{policy: p, outboxes: outboxes, buffers: buffers}
}

// Dispatch concatenates the blocks in order, infers once, and for every block
// records the send-phase half of the step in the owner's trajectory buffer
// before sending the owner its action rows.
func (d *Dispatcher) Dispatch(observed []collector.Observed) error {
	if len(observed) == 0 {
		return nil
	}
	batch, err := concat(observed)
	if err != nil {
		return err
	}
	total, _ := batch.Dims()

	actions, logProbs, err := d.policy.Infer(batch)
	if err != nil {
		return fmt.Errorf("policy inference: %w", err)
	}
	actionRows, actionCols := 0, 0
	if actions != nil {
		actionRows, actionCols = actions.Dims()
	}
	if actionRows != total || len(logProbs) != total {
		return &BatchMismatchError{Dispatched: total, Actions: actionRows, LogProbs: len(logProbs)}
	}

	start := 0
	for _, o := range observed {
		n := o.Obs.Rows()
		states := make([][]float32, n)
		acts := make([][]float32, n)
		lps := make([]float32, n)
		flat := make([]float32, 0, n*actionCols)
		for r := 0; r < n; r++ {
			states[r] = o.Obs.Row(r)
			acts[r] = toFloat32(actions.RawRowView(start + r))
			lps[r] = float32(logProbs[start+r])
			flat = append(flat, acts[r]...)
		}
		start += n

		if err := d.deliver(o.WorkerID, states, acts, lps, flat); err != nil {
			slog.Error("Dispatcher: actions not delivered", "worker_id", o.WorkerID, "error", err)
		}
	}
	return nil
}

func (d *Dispatcher) deliver(workerID int, states, acts [][]float32, lps, flat []float32) error {
	if workerID < 0 || workerID >= len(d.outboxes) {
		return fmt.Errorf("unknown worker id %d", workerID)
	}
	buffer, ok := d.buffers.Get(workerID)
	if !ok {
		return fmt.Errorf("no trajectory buffer for worker %d", workerID)
	}
	if err := buffer.SetOutbound(states, acts, lps); err != nil {
		return err
	}
	return d.outboxes[workerID].SendMessage(protocol.PolicyActions{Actions: flat})
}

// concat stacks the observation blocks into one matrix, one row per agent.
func concat(observed []collector.Observed) (*mat.Dense, error) {
	cols := observed[0].Obs.Cols()
	total := 0
	for _, o := range observed {
		if o.Obs.Cols() != cols {
			return nil, fmt.Errorf("%w: worker %d observation width %d differs from %d",
				protocol.ErrProtocol, o.WorkerID, o.Obs.Cols(), cols)
		}
		if len(o.Obs.Data) != o.Obs.Rows()*cols {
			return nil, fmt.Errorf("%w: worker %d observation holds %d elements for shape %v",
				protocol.ErrProtocol, o.WorkerID, len(o.Obs.Data), o.Obs.Shape)
		}
		total += o.Obs.Rows()
	}
	if total == 0 || cols == 0 {
		return nil, fmt.Errorf("%w: empty observation batch", protocol.ErrProtocol)
	}
	data := make([]float64, 0, total*cols)
	for _, o := range observed {
		for _, v := range o.Obs.Data {
			data = append(data, float64(v))
		}
	}
	return mat.NewDense(total, cols, data), nil
}

func toFloat32(row []float64) []float32 {
	out := make([]float32, len(row))
	for i, v := range row {
		out[i] = float32(v)
	}
	return out
}
