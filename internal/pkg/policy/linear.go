package policy

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// LinearPolicy is a softmax policy over discrete actions with linear logits.
// Each action row holds the sampled action index.
type LinearPolicy struct {
	W   *mat.Dense // nActions x obsDim
	B   []float64
	rng *rand.Rand
}

func NewLinearPolicy(obsDim, nActions int, seed int64) *LinearPolicy {
	rng := rand.New(rand.NewSource(seed))
	w := mat.NewDense(nActions, obsDim, nil)
	for i := 0; i < nActions; i++ {
		for j := 0; j < obsDim; j++ {
			w.Set(i, j, rng.NormFloat64()*0.01)
		}
	}
	return &LinearPolicy{W: w, B: make([]float64, nActions), rng: rng}
}

func (p *LinearPolicy) Infer(batch *mat.Dense) (*mat.Dense, []float64, error) {
	rows, cols := batch.Dims()
	nActions, obsDim := p.W.Dims()
	if cols != obsDim {
		return nil, nil, fmt.Errorf("linear policy expects %d features, batch has %d", obsDim, cols)
	}
	var logits mat.Dense
	logits.Mul(batch, p.W.T())

	actions := mat.NewDense(rows, 1, nil)
	logProbs := make([]float64, rows)
	row := make([]float64, nActions)
	for i := 0; i < rows; i++ {
		for a := 0; a < nActions; a++ {
			row[a] = logits.At(i, a) + p.B[a]
		}
		probs := softmax(row)
		choice := sampleCategorical(probs, p.rng)
		actions.Set(i, 0, float64(choice))
		logProbs[i] = math.Log(probs[choice] + 1e-8)
	}
	return actions, logProbs, nil
}

func softmax(logits []float64) []float64 {
	maxLogit := logits[0]
	for _, v := range logits[1:] {
		if v > maxLogit {
			maxLogit = v
		}
	}
	values := make([]float64, len(logits))
	var sum float64
	for i, v := range logits {
		values[i] = math.Exp(v - maxLogit)
		sum += values[i]
	}
	for i := range values {
		values[i] /= sum
	}
	return values
}

func sampleCategorical(probs []float64, rng *rand.Rand) int {
	threshold := rng.Float64()
	var cumulativeProb float64
	for i, prob := range probs {
		cumulativeProb += prob
		if threshold <= cumulativeProb {
			return i
		}
	}
	return len(probs) - 1
}
