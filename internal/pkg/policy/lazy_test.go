package policy

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestLazyBuildsOnce(t *testing.T) {
	builds := 0
	lazy := NewLazy(func(obsDim int) (Policy, error) {
		builds++
		assert.Equal(t, 3, obsDim)
		return NewLinearPolicy(obsDim, 2, 1), nil
	})

	for i := 0; i < 3; i++ {
		actions, logProbs, err := lazy.Infer(mat.NewDense(2, 3, nil))
		require.NoError(t, err)
		rows, _ := actions.Dims()
		assert.Equal(t, 2, rows)
		assert.Len(t, logProbs, 2)
	}
	assert.Equal(t, 1, builds)
}

func TestLazyBuildError(t *testing.T) {
	boom := errors.New("boom")
	lazy := NewLazy(func(obsDim int) (Policy, error) { return nil, boom })
	_, _, err := lazy.Infer(mat.NewDense(1, 1, nil))
	assert.ErrorIs(t, err, boom)
}
