package envworker

import (
	"fmt"
	"math"
	"math/rand"
	"strings"

	"github.com/roackb2/rollout/internal/pkg/policy"
	"github.com/roackb2/rollout/internal/pkg/protocol"
	"github.com/roackb2/rollout/internal/pkg/utils"
)

const CartPoleName = "cartpole"

const (
	gravity        = 9.81
	massCart       = 1.0
	massPole       = 0.1
	length         = 0.5
	totalMass      = massCart + massPole
	poleMassLength = massPole * length
	tau            = 0.02

	xThreshold     = 2.4
	thetaThreshold = 12.0 * math.Pi / 180.0

	defaultForce    = 10.0
	defaultMaxSteps = 500
)

type poleState struct {
	x, xDot, theta, thetaDot float64
}

// CartPole runs one or more independent carts in lockstep. Every cart is an
// agent; the episode ends when any pole falls or the step limit is reached.
type CartPole struct {
	poles    []poleState
	steps    int
	maxSteps int
	force    float64
	rng      *rand.Rand
}

func NewCartPole(init protocol.InitPayload, rng *rand.Rand) (Env, error) {
	agents := utils.GetOrDefault(init.Agents, 1)
	if agents < 1 {
		return nil, fmt.Errorf("cartpole needs at least one agent, got %d", agents)
	}
	force := utils.GetOrDefault(init.Params["force"], defaultForce)
	env := &CartPole{
		poles:    make([]poleState, agents),
		maxSteps: utils.GetOrDefault(init.MaxSteps, defaultMaxSteps),
		force:    force,
		rng:      rng,
	}
	return env, nil
}

func (e *CartPole) Reset() protocol.Observation {
	for i := range e.poles {
		e.poles[i] = poleState{
			x:        e.rng.Float64()*0.1 - 0.05,
			xDot:     e.rng.Float64()*0.1 - 0.05,
			theta:    e.rng.Float64()*0.1 - 0.05,
			thetaDot: e.rng.Float64()*0.1 - 0.05,
		}
	}
	e.steps = 0
	return e.observe()
}

func (e *CartPole) Step(actions []float32) (protocol.Observation, []float32, bool) {
	e.steps++
	rewards := make([]float32, len(e.poles))
	fallen := false
	for i := range e.poles {
		push := 0.0
		if i < len(actions) {
			push = float64(actions[i])
		}
		if e.advance(i, push) {
			fallen = true
		} else {
			rewards[i] = 1
		}
	}
	done := fallen || e.steps >= e.maxSteps
	return e.observe(), rewards, done
}

// advance integrates one pole and reports whether it left the allowed range.
func (e *CartPole) advance(i int, action float64) bool {
	force := e.force
	if action < 0.5 {
		force = -e.force
	}
	s := e.poles[i]
	cosTheta := math.Cos(s.theta)
	sinTheta := math.Sin(s.theta)

	temp := (force + poleMassLength*s.thetaDot*s.thetaDot*sinTheta) / totalMass
	thetaAcc := (gravity*sinTheta - cosTheta*temp) / (length * (4.0/3.0 - massPole*cosTheta*cosTheta/totalMass))
	xAcc := temp - poleMassLength*thetaAcc*cosTheta/totalMass

	s.x += tau * s.xDot
	s.xDot += tau * xAcc
	s.theta += tau * s.thetaDot
	s.thetaDot += tau * thetaAcc
	e.poles[i] = s

	return s.x < -xThreshold || s.x > xThreshold || s.theta < -thetaThreshold || s.theta > thetaThreshold
}

func (e *CartPole) observe() protocol.Observation {
	data := make([]float32, 0, 4*len(e.poles))
	for _, s := range e.poles {
		data = append(data, float32(s.x), float32(s.xDot), float32(s.theta), float32(s.thetaDot))
	}
	if len(e.poles) == 1 {
		return protocol.Observation{Shape: []int{4}, Data: data}
	}
	return protocol.Observation{Shape: []int{len(e.poles), 4}, Data: data}
}

func (e *CartPole) ObservationSize() int { return 4 }

// ActionSize is the number of discrete actions: push left or push right.
func (e *CartPole) ActionSize() int { return 2 }

func (e *CartPole) ActionSpaceType() int { return policy.ActionSpaceDiscrete }

func (e *CartPole) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "step=%d", e.steps)
	for i, s := range e.poles {
		fmt.Fprintf(&b, " cart%d(x=%+.3f theta=%+.3f)", i, s.x, s.theta)
	}
	return b.String()
}
