package models

import "time"

// Ingredient is a stocked raw material.
type Ingredient struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Unit      string  `json:"unit"`
	Quantity  float64 `json:"quantity"`
	Threshold float64 `json:"threshold"`
}

// IsLow reports whether stock is at or below its threshold.
func (i Ingredient) IsLow() bool { return i.Quantity <= i.Threshold }

// LowStockAlertType is the event name pushed to alert subscribers.
const LowStockAlertType = "LOW_STOCK_ALERT"

// LowStockAlert lists ingredients at or below threshold.
type LowStockAlert struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Items    []Ingredient `json:"items"`
	RaisedAt time.Time    `json:"raised_at"`
}
