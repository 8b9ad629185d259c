package forecast

import (
	"fmt"

	"StockCast/internal/domain/models"
	"StockCast/internal/services/ml"
)

// Artifact is the trained state of one item. Exactly one of Linear or Forest
// is set, selected by Kind.
type Artifact struct {
	Item    string           `json:"item"`
	Kind    models.ModelKind `json:"kind"`
	Linear  *ml.Linear       `json:"linear,omitempty"`
	Forest  *ml.Forest       `json:"forest,omitempty"`
	Scaler  *ml.Scaler       `json:"scaler"`
	Columns []string         `json:"columns"`
	Score   float64          `json:"score"`
}

// Predict scales a raw feature row and applies the champion model.
func (a *Artifact) Predict(row []float64) (float64, error) {
	if len(row) != len(a.Columns) {
		return 0, fmt.Errorf("%w: %d values for %d columns", models.ErrFeatureIntegrityViolation, len(row), len(a.Columns))
	}
	scaled := a.Scaler.TransformRow(row)
	switch a.Kind {
	case models.ModelRandomForest:
		return a.Forest.Predict(scaled), nil
	case models.ModelLinear:
		return a.Linear.Predict(scaled), nil
	default:
		return 0, fmt.Errorf("unknown model kind %q", a.Kind)
	}
}
