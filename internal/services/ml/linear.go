package ml

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Linear is an ordinary least squares model with intercept.
type Linear struct {
	Intercept float64   `json:"intercept"`
	Coef      []float64 `json:"coef"`
}

var errNotPositiveDefinite = errors.New("matrix is not positive definite")

// FitLinear solves the normal equations on centred data. A small ridge term is
// added and grown when the system is singular, which happens with constant or
// collinear columns.
func FitLinear(X [][]float64, y []float64) (*Linear, error) {
	if len(X) == 0 || len(X) != len(y) {
		return nil, fmt.Errorf("linear: %d rows for %d targets", len(X), len(y))
	}
	n, d := len(X), len(X[0])
	if d == 0 {
		return nil, errors.New("linear: no features")
	}

	design := mat.NewDense(n, d, nil)
	for i, row := range X {
		if len(row) != d {
			return nil, errors.New("linear: ragged matrix")
		}
		design.SetRow(i, row)
	}
	target := mat.NewVecDense(n, append([]float64(nil), y...))

	xMean := make([]float64, d)
	for j := range xMean {
		xMean[j] = mat.Sum(design.ColView(j)) / float64(n)
	}
	yMean := mat.Sum(target) / float64(n)

	for i := 0; i < n; i++ {
		for j := 0; j < d; j++ {
			design.Set(i, j, design.At(i, j)-xMean[j])
		}
		target.SetVec(i, target.AtVec(i)-yMean)
	}

	gram := mat.NewSymDense(d, nil)
	gram.SymOuterK(1, design.T())
	var rhs mat.VecDense
	rhs.MulVec(design.T(), target)

	maxDiag := 1.0
	for j := 0; j < d; j++ {
		maxDiag = max(maxDiag, gram.At(j, j))
	}

	coef, err := solveSymmetric(gram, &rhs)
	for ridge := 1e-10 * maxDiag; errors.Is(err, errNotPositiveDefinite) && ridge <= maxDiag; ridge *= 10 {
		coef, err = solveSymmetric(withRidge(gram, ridge), &rhs)
	}
	if err != nil {
		return nil, fmt.Errorf("linear: %w", err)
	}

	intercept := yMean
	for j, c := range coef {
		intercept -= c * xMean[j]
	}
	return &Linear{Intercept: intercept, Coef: coef}, nil
}

func (m *Linear) Predict(row []float64) float64 {
	out := m.Intercept
	for j, c := range m.Coef {
		out += c * row[j]
	}
	return out
}

func withRidge(a *mat.SymDense, lambda float64) *mat.SymDense {
	n := a.SymmetricDim()
	out := mat.NewSymDense(n, nil)
	out.CopySym(a)
	for i := 0; i < n; i++ {
		out.SetSym(i, i, out.At(i, i)+lambda)
	}
	return out
}

// solveSymmetric solves a x = b by Cholesky decomposition. An ill-conditioned
// factorisation counts as not positive definite so the caller can regularise.
func solveSymmetric(a *mat.SymDense, b *mat.VecDense) ([]float64, error) {
	if a.SymmetricDim() != b.Len() {
		return nil, errors.New("dimension mismatch")
	}
	var chol mat.Cholesky
	if !chol.Factorize(a) {
		return nil, errNotPositiveDefinite
	}
	var x mat.VecDense
	if err := chol.SolveVecTo(&x, b); err != nil {
		return nil, errNotPositiveDefinite
	}
	return mat.Col(nil, 0, &x), nil
}
