package trajectory

import "fmt"

// Batch is the flattened form of a list of segments, in segment-then-step
// order. Row i of States, Actions and NextStates spans [i*Dim, (i+1)*Dim).
type Batch struct {
	StateDim  int
	ActionDim int

	States     []float32
	Actions    []float32
	LogProbs   []float32
	Rewards    []float32
	NextStates []float32
	Dones      []float32
	Truncated  []float32
}

func (b *Batch) Len() int {
	return len(b.Rewards)
}

// Flatten concatenates every segment's per-field sequences into contiguous
// arrays. All steps must agree on state and action widths.
func Flatten(segments []Segment) (*Batch, error) {
	batch := &Batch{}
	total := 0
	for _, seg := range segments {
		total += seg.Len()
	}
	if total == 0 {
		return batch, nil
	}
	first := firstStep(segments)
	batch.StateDim = len(first.State)
	batch.ActionDim = len(first.Action)

	batch.States = make([]float32, 0, total*batch.StateDim)
	batch.NextStates = make([]float32, 0, total*batch.StateDim)
	batch.Actions = make([]float32, 0, total*batch.ActionDim)
	batch.LogProbs = make([]float32, 0, total)
	batch.Rewards = make([]float32, 0, total)
	batch.Dones = make([]float32, 0, total)
	batch.Truncated = make([]float32, 0, total)

	for _, seg := range segments {
		for i, step := range seg.Steps {
			if len(step.State) != batch.StateDim || len(step.NextState) != batch.StateDim || len(step.Action) != batch.ActionDim {
				return nil, fmt.Errorf("worker %d agent %d step %d: widths (%d, %d, %d) differ from batch (%d, %d)",
					seg.WorkerID, seg.Agent, i, len(step.State), len(step.NextState), len(step.Action), batch.StateDim, batch.ActionDim)
			}
			batch.States = append(batch.States, step.State...)
			batch.Actions = append(batch.Actions, step.Action...)
			batch.LogProbs = append(batch.LogProbs, step.LogProb)
			batch.Rewards = append(batch.Rewards, step.Reward)
			batch.NextStates = append(batch.NextStates, step.NextState...)
			batch.Dones = append(batch.Dones, flag(step.Done))
			batch.Truncated = append(batch.Truncated, flag(step.Truncated))
		}
	}
	return batch, nil
}

func firstStep(segments []Segment) Step {
	for _, seg := range segments {
		if seg.Len() > 0 {
			return seg.Steps[0]
		}
	}
	return Step{}
}

func flag(b bool) float32 {
	if b {
		return 1
	}
	return 0
}
