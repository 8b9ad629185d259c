package models

// Requests for inventory HTTP endpoints.

type PredictionsRequest struct {
	Days int `param:"days" json:"days" validate:"gte=1"`
}

type HistoricalRequest struct {
	Item string `param:"item" json:"item" validate:"required"`
	Days int    `query:"days" json:"days" default:"30" validate:"gte=1,lte=3650"`
}

type ItemRequest struct {
	Item string `param:"item" json:"item" validate:"required"`
}

type ItemsResponse struct {
	Items []string `json:"items"`
}

type InsightsResponse struct {
	ItemName string `json:"item_name"`
	Insights string `json:"insights"`
}

type LowStockResponse struct {
	Items []Ingredient `json:"items"`
}

type CacheClearResponse struct {
	DataCache       bool `json:"data_cache_cleared"`
	PredictionCache bool `json:"prediction_cache_cleared"`
}
