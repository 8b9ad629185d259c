package ml

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Regressor maps one scaled feature row to a prediction.
type Regressor interface {
	Predict(row []float64) float64
}

// Scaler standardises columns to zero mean and unit variance.
type Scaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// FitScaler learns per-column mean and population standard deviation.
// Columns with zero variance keep a scale of 1.
func FitScaler(X [][]float64) (*Scaler, error) {
	if len(X) == 0 || len(X[0]) == 0 {
		return nil, errors.New("scaler: empty matrix")
	}
	d := len(X[0])
	s := &Scaler{Mean: make([]float64, d), Scale: make([]float64, d)}
	col := make([]float64, len(X))
	for j := 0; j < d; j++ {
		for i, row := range X {
			if len(row) != d {
				return nil, errors.New("scaler: ragged matrix")
			}
			col[i] = row[j]
		}
		mean, variance := stat.PopMeanVariance(col, nil)
		sd := math.Sqrt(variance)
		if sd < 1e-12 {
			sd = 1
		}
		s.Mean[j], s.Scale[j] = mean, sd
	}
	return s, nil
}

func (s *Scaler) TransformRow(row []float64) []float64 {
	out := make([]float64, len(row))
	for j, v := range row {
		out[j] = (v - s.Mean[j]) / s.Scale[j]
	}
	return out
}

func (s *Scaler) Transform(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	for i, row := range X {
		out[i] = s.TransformRow(row)
	}
	return out
}
