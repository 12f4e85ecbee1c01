package policy

import (
	"sync"

	"gonum.org/v1/gonum/mat"
)

// Builder creates a policy for observations of width obsDim.
type Builder func(obsDim int) (Policy, error)

// Lazy defers building its policy until the first batch shows the observation
// width.
type Lazy struct {
	build Builder
	once  sync.Once
	p     Policy
	err   error
}

func NewLazy(build Builder) *Lazy {
	return &Lazy{build: build}
}

func (l *Lazy) Infer(batch *mat.Dense) (*mat.Dense, []float64, error) {
	l.once.Do(func() {
		_, cols := batch.Dims()
		l.p, l.err = l.build(cols)
	})
	if l.err != nil {
		return nil, nil, l.err
	}
	return l.p.Infer(batch)
}
