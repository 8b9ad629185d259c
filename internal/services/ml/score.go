package ml

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// R2 is the coefficient of determination of pred against truth. When truth is
// constant it is 1 for an exact fit and 0 otherwise.
func R2(truth, pred []float64) float64 {
	if len(truth) == 0 || len(truth) != len(pred) {
		return math.Inf(-1)
	}
	if stat.PopVariance(truth, nil) == 0 {
		if floats.Distance(truth, pred, 2) < 1e-9 {
			return 1
		}
		return 0
	}
	return stat.RSquaredFrom(pred, truth, nil)
}

// Score predicts every row with m and returns R2 against y.
func Score(m Regressor, X [][]float64, y []float64) float64 {
	pred := make([]float64, len(X))
	for i, row := range X {
		pred[i] = m.Predict(row)
	}
	return R2(y, pred)
}
