package models

import "time"

// ModelKind tags the regressor family held by a trained artifact.
type ModelKind string

const (
	ModelRandomForest ModelKind = "random_forest"
	ModelLinear       ModelKind = "linear_regression"
)

// PredictionRecord is one forecast day for an item.
type PredictionRecord struct {
	Date              time.Time `json:"-"`
	PredictedQuantity int       `json:"predicted_quantity"`
}

// DateString formats the prediction date.
func (p PredictionRecord) DateString() string { return p.Date.Format(DateLayout) }

// ItemForecast is the serving-layer view of one item's forecast.
type ItemForecast struct {
	ItemName      string           `json:"item_name"`
	Predictions   []PredictionView `json:"predictions"`
	HistoricalAvg float64          `json:"historical_avg"`
}

// PredictionView is a JSON-friendly PredictionRecord.
type PredictionView struct {
	Date              string `json:"date"`
	PredictedQuantity int    `json:"predicted_quantity"`
}

// FeatureVector is the derived attribute set for one (item, date) row.
type FeatureVector struct {
	ItemName string
	Date     time.Time
	Names    []string
	Values   []float64
}

// Value returns the named feature and whether it exists.
func (v FeatureVector) Value(name string) (float64, bool) {
	for i, n := range v.Names {
		if n == name {
			return v.Values[i], true
		}
	}
	return 0, false
}

// TrainedItem summarises an accepted artifact.
type TrainedItem struct {
	ItemName string    `json:"item_name"`
	Model    ModelKind `json:"model"`
	Score    float64   `json:"score"`
}

// SkippedItem records why an item produced no artifact.
type SkippedItem struct {
	ItemName string `json:"item_name"`
	Reason   string `json:"reason"`
}

// TrainingReport describes one training pass.
type TrainingReport struct {
	Trained  []TrainedItem `json:"trained"`
	Skipped  []SkippedItem `json:"skipped"`
	Duration time.Duration `json:"-"`
	Started  time.Time     `json:"started_at"`
	Seconds  float64       `json:"duration_seconds"`
}

// ModelStatus describes the live artifact set and the cached dataset. Nil
// times mean nothing has been trained or cached yet.
type ModelStatus struct {
	TrainedAt       *time.Time    `json:"trained_at"`
	DatasetCachedAt *time.Time    `json:"dataset_cached_at"`
	Models          []TrainedItem `json:"models"`
}

// ForecastReadyEvent is published after a fresh prediction run.
type ForecastReadyEvent struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Days        int       `json:"days"`
	Items       []string  `json:"items"`
	GeneratedAt time.Time `json:"generated_at"`
}

// ReportUploadedEvent is emitted by the report-acquisition layer.
type ReportUploadedEvent struct {
	Name string `json:"name"`
	Date string `json:"date"`
}
