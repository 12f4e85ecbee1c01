// Package protocol implements the binary message protocol spoken between the
// collection process and its environment workers.
//
// Every message is a flat stream of little-endian float32 elements. The first
// HeaderLen elements identify the message kind, the rest is the payload. The
// layouts are:
//
//	env-step-data:   [done, n_shape_dims, shape_dims..., rewards (n_agents), next_state...]
//	env-reset-state: [n_shape_dims, shape_dims..., state...]
//	env-shapes:      [] (request) or [obs_shape, action_shape, action_space_type] (response)
//	policy-actions:  [actions...]
//	stop:            []
//
// Messages are carried in length-prefixed frames, see WriteFrame and ReadFrame.
package protocol

const (
	// HeaderLen is the number of float32 elements at the start of every message.
	HeaderLen = 3
	// ElementSize is the encoded width of one payload element in bytes.
	ElementSize = 4
)

type Header [HeaderLen]float32

var (
	PolicyActionsHeader = Header{12782, 83783, 80784}
	EnvStepDataHeader   = Header{83839, 69571, 79667}
	EnvResetStateHeader = Header{83237, 69565, 84032}
	EnvShapesHeader     = Header{82772, 83273, 83774}
	StopHeader          = Header{11111, 22222, 33333}
)

type Kind string

const (
	KindPolicyActions Kind = "policy_actions"
	KindStepData      Kind = "env_step_data"
	KindResetState    Kind = "env_reset_state"
	KindShapesRequest Kind = "env_shapes_request"
	KindShapes        Kind = "env_shapes"
	KindStop          Kind = "stop"
)

// Message is one decoded protocol message.
type Message interface {
	Kind() Kind
}

// Observation is a block of per-agent observation rows. Decoded observations
// always have at least two dimensions, the first one being the agent count.
type Observation struct {
	Shape []int
	Data  []float32
}

// Rows returns the number of agents in the block.
func (o Observation) Rows() int {
	if len(o.Shape) == 0 {
		return 0
	}
	return o.Shape[0]
}

// Cols returns the flattened width of one agent's observation.
func (o Observation) Cols() int {
	if len(o.Shape) == 0 {
		return 0
	}
	return product(o.Shape[1:])
}

// Row returns the observation of a single agent. The slice aliases Data.
func (o Observation) Row(i int) []float32 {
	cols := o.Cols()
	return o.Data[i*cols : (i+1)*cols]
}

// StepData is emitted by a worker after applying one batch of actions.
// Shape holds the dimensions exactly as declared on the wire, NextState the
// observation with its shape coerced to at least two dimensions.
type StepData struct {
	Done      bool
	Shape     []int
	Rewards   []float32
	NextState Observation
}

func (StepData) Kind() Kind { return KindStepData }

// NumAgents returns how many agents contributed to this step.
func (m StepData) NumAgents() int { return len(m.Rewards) }

// ResetState carries a worker's first observation after initialization.
type ResetState struct {
	Shape []int
	State Observation
}

func (ResetState) Kind() Kind { return KindResetState }

type ShapesRequest struct{}

func (ShapesRequest) Kind() Kind { return KindShapesRequest }

type Shapes struct {
	ObsShape        int
	ActionShape     int
	ActionSpaceType int
}

func (Shapes) Kind() Kind { return KindShapes }

// PolicyActions is the raw action block for one worker. Its shape is implied by
// the observation block the actions were computed from.
type PolicyActions struct {
	Actions []float32
}

func (PolicyActions) Kind() Kind { return KindPolicyActions }

type Stop struct{}

func (Stop) Kind() Kind { return KindStop }

func product(dims []int) int {
	n := 1
	for _, d := range dims {
		n *= d
	}
	return n
}
