// Package envworker is the worker side of the rollout protocol: it builds an
// environment from the init payload and answers policy actions with steps.
package envworker

import (
	"math/rand"
	"time"

	"github.com/roackb2/rollout/internal/pkg/protocol"
)

// Env is one simulation instance. Observations carry their wire shape: [obs]
// for a single agent, [agents, obs] for several.
type Env interface {
	Reset() protocol.Observation
	// Step applies one action row per agent, flattened.
	Step(actions []float32) (next protocol.Observation, rewards []float32, done bool)
	ObservationSize() int
	ActionSize() int
	ActionSpaceType() int
}

// Renderer is implemented by environments that can describe their state.
type Renderer interface {
	Render() string
}

// Builder constructs an environment from the init payload.
type Builder func(init protocol.InitPayload, rng *rand.Rand) (Env, error)

type Builders map[string]Builder

func DefaultBuilders() Builders {
	return Builders{
		CartPoleName: NewCartPole,
	}
}

type Options struct {
	ID          int
	Seed        int64
	Render      bool
	RenderDelay time.Duration
}
