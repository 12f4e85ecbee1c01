// Package trajectory assembles the asynchronous stream of per-worker steps
// into ordered episode segments and flattens them into training batches.
package trajectory

import "errors"

var (
	// ErrStepInFlight is returned when outbound fields are written while the
	// previous step still waits for its inbound half.
	ErrStepInFlight = errors.New("step already awaiting inbound data")
	// ErrNoPendingStep is returned when inbound fields arrive with no outbound
	// half to complete.
	ErrNoPendingStep = errors.New("no step awaiting inbound data")
	ErrAgentMismatch = errors.New("agent count mismatch between step halves")
)

// Step is one transition of one agent.
type Step struct {
	State     []float32
	Action    []float32
	LogProb   float32
	Reward    float32
	NextState []float32
	Done      bool
	Truncated bool
}

// Segment is a closed, ordered run of steps of one agent on one worker. It ends
// either at a true episode end or where a collection call cut it off, in which
// case the last step is marked truncated.
type Segment struct {
	WorkerID int
	Agent    int
	Steps    []Step
}

func (s Segment) Len() int {
	return len(s.Steps)
}
