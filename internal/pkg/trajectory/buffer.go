package trajectory

import "fmt"

// blockStep is one step of every agent on a worker, stored row-wise.
type blockStep struct {
	states     [][]float32
	actions    [][]float32
	logProbs   []float32
	rewards    []float32
	nextStates [][]float32
	done       bool
}

// Buffer accumulates the steps of one worker since the last boundary. A step
// is written in two phases: SetOutbound when actions are sent, SetInbound when
// the worker answers. Only completed steps are ever emitted.
type Buffer struct {
	workerID        int
	steps           []blockStep
	pending         blockStep
	awaitingInbound bool
}

func NewBuffer(workerID int) *Buffer {
	return &Buffer{workerID: workerID}
}

func (b *Buffer) WorkerID() int {
	return b.workerID
}

// Len returns the number of completed steps held.
func (b *Buffer) Len() int {
	return len(b.steps)
}

func (b *Buffer) AwaitingInbound() bool {
	return b.awaitingInbound
}

// SetOutbound records the send-phase fields of the step about to begin, one
// row per agent.
func (b *Buffer) SetOutbound(states, actions [][]float32, logProbs []float32) error {
	if b.awaitingInbound {
		return fmt.Errorf("worker %d: %w", b.workerID, ErrStepInFlight)
	}
	if len(states) != len(actions) || len(states) != len(logProbs) {
		return fmt.Errorf("worker %d: %w: %d states, %d actions, %d log probs",
			b.workerID, ErrAgentMismatch, len(states), len(actions), len(logProbs))
	}
	b.pending = blockStep{states: states, actions: actions, logProbs: logProbs}
	b.awaitingInbound = true
	return nil
}

// SetInbound completes the pending step with the worker's answer and appends
// it. A step whose halves disagree on the agent count is dropped.
func (b *Buffer) SetInbound(rewards []float32, nextStates [][]float32, done bool) error {
	if !b.awaitingInbound {
		return fmt.Errorf("worker %d: %w", b.workerID, ErrNoPendingStep)
	}
	step := b.pending
	b.pending = blockStep{}
	b.awaitingInbound = false
	if len(rewards) != len(nextStates) || len(rewards) != len(step.states) {
		return fmt.Errorf("worker %d: %w: %d agents sent, %d rewards, %d next states",
			b.workerID, ErrAgentMismatch, len(step.states), len(rewards), len(nextStates))
	}
	step.rewards = rewards
	step.nextStates = nextStates
	step.done = done
	b.steps = append(b.steps, step)
	return nil
}

// TryFlush detaches the accumulated steps if the last completed step ended the
// episode. It returns one segment per agent, or nil when the episode goes on.
func (b *Buffer) TryFlush() []Segment {
	if len(b.steps) == 0 || !b.steps[len(b.steps)-1].done {
		return nil
	}
	return b.detach()
}

// DrainPartial detaches whatever completed steps exist, terminal or not. A step
// still awaiting its inbound half stays in the buffer. An empty buffer yields
// nothing.
func (b *Buffer) DrainPartial() []Segment {
	if len(b.steps) == 0 {
		return nil
	}
	return b.detach()
}

func (b *Buffer) detach() []Segment {
	steps := b.steps
	b.steps = nil

	nAgents := 0
	for _, s := range steps {
		nAgents = max(nAgents, len(s.states))
	}
	segments := make([]Segment, 0, nAgents)
	for agent := 0; agent < nAgents; agent++ {
		seg := Segment{WorkerID: b.workerID, Agent: agent, Steps: make([]Step, 0, len(steps))}
		for _, s := range steps {
			if agent >= len(s.states) {
				continue
			}
			seg.Steps = append(seg.Steps, Step{
				State:     s.states[agent],
				Action:    s.actions[agent],
				LogProb:   s.logProbs[agent],
				Reward:    s.rewards[agent],
				NextState: s.nextStates[agent],
				Done:      s.done,
			})
		}
		if len(seg.Steps) == 0 {
			continue
		}
		last := &seg.Steps[len(seg.Steps)-1]
		last.Truncated = !last.Done
		segments = append(segments, seg)
	}
	return segments
}

// Set holds one Buffer per worker id.
type Set struct {
	buffers []*Buffer
}

func NewSet(nWorkers int) *Set {
	buffers := make([]*Buffer, nWorkers)
	for i := range buffers {
		buffers[i] = NewBuffer(i)
	}
	return &Set{buffers: buffers}
}

func (s *Set) Get(workerID int) (*Buffer, bool) {
	if workerID < 0 || workerID >= len(s.buffers) {
		return nil, false
	}
	return s.buffers[workerID], true
}

func (s *Set) Len() int {
	return len(s.buffers)
}

// Flush calls TryFlush on every buffer in worker id order.
func (s *Set) Flush() []Segment {
	var segments []Segment
	for _, b := range s.buffers {
		segments = append(segments, b.TryFlush()...)
	}
	return segments
}

// DrainPartial calls DrainPartial on every buffer in worker id order.
func (s *Set) DrainPartial() []Segment {
	var segments []Segment
	for _, b := range s.buffers {
		segments = append(segments, b.DrainPartial()...)
	}
	return segments
}
