package ml

import (
	"context"
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestScalerStandardisesColumns(t *testing.T) {
	X := [][]float64{{1, 5}, {3, 5}, {5, 5}}
	s, err := FitScaler(X)
	require.NoError(t, err)

	assert.Equal(t, []float64{3, 5}, s.Mean)
	assert.InDelta(t, math.Sqrt(8.0/3), s.Scale[0], 1e-12)
	assert.Equal(t, 1.0, s.Scale[1], "constant column keeps unit scale")

	out := s.Transform(X)
	assert.InDelta(t, 0, out[1][0], 1e-12)
	assert.Equal(t, 0.0, out[0][1])

	_, err = FitScaler(nil)
	assert.Error(t, err)
}

func TestLinearRecoversExactRelation(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	var X [][]float64
	var y []float64
	for i := 0; i < 50; i++ {
		a, b := rng.Float64()*10, rng.Float64()*10
		X = append(X, []float64{a, b})
		y = append(y, 3+2*a-0.5*b)
	}
	m, err := FitLinear(X, y)
	require.NoError(t, err)
	assert.InDelta(t, 3, m.Intercept, 1e-6)
	assert.InDelta(t, 2, m.Coef[0], 1e-6)
	assert.InDelta(t, -0.5, m.Coef[1], 1e-6)
	assert.InDelta(t, 1.0, Score(m, X, y), 1e-9)
}

func TestLinearHandlesSingularDesign(t *testing.T) {
	X := [][]float64{{1, 0, 2}, {2, 0, 4}, {3, 0, 6}, {4, 0, 8}}
	y := []float64{2, 4, 6, 8}
	m, err := FitLinear(X, y)
	require.NoError(t, err)
	for i, row := range X {
		assert.InDelta(t, y[i], m.Predict(row), 1e-3)
	}
}

func TestSolveSymmetric(t *testing.T) {
	x, err := solveSymmetric(mat.NewSymDense(2, []float64{4, 2, 2, 3}), mat.NewVecDense(2, []float64{2, 1}))
	require.NoError(t, err)
	assert.InDelta(t, 0.5, x[0], 1e-12)
	assert.InDelta(t, 0.0, x[1], 1e-12)

	_, err = solveSymmetric(mat.NewSymDense(2, []float64{1, 1, 1, 1}), mat.NewVecDense(2, []float64{1, 1}))
	assert.ErrorIs(t, err, errNotPositiveDefinite)
}

func stepData(n int) ([][]float64, []float64) {
	rng := rand.New(rand.NewSource(3))
	X := make([][]float64, n)
	y := make([]float64, n)
	for i := range X {
		a, noise := rng.Float64(), rng.Float64()
		X[i] = []float64{noise, a}
		if a > 0.5 {
			y[i] = 20
		} else {
			y[i] = 5
		}
	}
	return X, y
}

func TestForestFitsStepFunction(t *testing.T) {
	X, y := stepData(120)
	f, err := FitForest(context.Background(), X, y, DefaultForestConfig())
	require.NoError(t, err)
	require.Len(t, f.Trees, 100)

	assert.Greater(t, Score(f, X, y), 0.9)
	assert.InDelta(t, 20, f.Predict([]float64{0.3, 0.9}), 2)
	assert.InDelta(t, 5, f.Predict([]float64{0.3, 0.1}), 2)

	top := f.TopFeatures([]string{"noise", "signal"}, 5)
	require.Len(t, top, 2)
	assert.Equal(t, "signal", top[0].Feature)
	var total float64
	for _, fi := range f.Importances {
		total += fi
	}
	assert.InDelta(t, 1.0, total, 1e-9)
}

func TestForestIsDeterministicAcrossWorkers(t *testing.T) {
	X, y := stepData(60)
	cfg := DefaultForestConfig()
	cfg.Trees = 20
	cfg.Workers = 1
	a, err := FitForest(context.Background(), X, y, cfg)
	require.NoError(t, err)
	cfg.Workers = 8
	b, err := FitForest(context.Background(), X, y, cfg)
	require.NoError(t, err)

	for _, row := range X {
		assert.Equal(t, a.Predict(row), b.Predict(row))
	}
}

func TestForestRespectsDepthAndLeafLimits(t *testing.T) {
	X, y := stepData(200)
	cfg := DefaultForestConfig()
	cfg.Trees = 5
	f, err := FitForest(context.Background(), X, y, cfg)
	require.NoError(t, err)

	for _, tr := range f.Trees {
		assert.LessOrEqual(t, depth(tr, 0), cfg.MaxDepth)
	}
}

func depth(t *Tree, i int) int {
	n := t.Nodes[i]
	if n.Leaf {
		return 0
	}
	return 1 + max(depth(t, n.Left), depth(t, n.Right))
}

func TestForestRejectsEmptyInput(t *testing.T) {
	_, err := FitForest(context.Background(), nil, nil, DefaultForestConfig())
	assert.Error(t, err)
}

func TestTrainTestSplit(t *testing.T) {
	train, test := TrainTestSplit(35, 0.3, 42)
	assert.Len(t, test, 11)
	assert.Len(t, train, 24)

	all := append(append([]int{}, train...), test...)
	sort.Ints(all)
	for i, v := range all {
		assert.Equal(t, i, v)
	}

	train2, test2 := TrainTestSplit(35, 0.3, 42)
	assert.Equal(t, train, train2)
	assert.Equal(t, test, test2)
}

func TestR2(t *testing.T) {
	assert.Equal(t, 1.0, R2([]float64{1, 2, 3}, []float64{1, 2, 3}))
	assert.InDelta(t, 0.0, R2([]float64{1, 2, 3}, []float64{2, 2, 2}), 1e-12)
	assert.Equal(t, 1.0, R2([]float64{4, 4}, []float64{4, 4}))
	assert.Equal(t, 0.0, R2([]float64{4, 4}, []float64{3, 5}))
	assert.True(t, math.IsInf(R2(nil, nil), -1))
}
