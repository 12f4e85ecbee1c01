// Package policy defines the inference capability the collection loop drives.
package policy

import "gonum.org/v1/gonum/mat"

const (
	ActionSpaceDiscrete   = 0
	ActionSpaceContinuous = 1
)

// Policy maps a batch of observations, one row per agent, to one action row
// and one log-probability per input row. Inference must not mutate any
// training state.
type Policy interface {
	Infer(batch *mat.Dense) (actions *mat.Dense, logProbs []float64, err error)
}
