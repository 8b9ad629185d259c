package models

import "errors"

var (
	// ErrDataUnavailable means no report source yielded any record.
	ErrDataUnavailable = errors.New("historical data unavailable")

	ErrInsufficientHistory        = errors.New("insufficient history")
	ErrModelQualityBelowThreshold = errors.New("model quality below threshold")
	ErrFeatureIntegrityViolation  = errors.New("feature integrity violation")
	ErrNarrativeGenerationFailed  = errors.New("narrative generation failed")

	ErrItemNotFound   = errors.New("item not found")
	ErrInvalidHorizon = errors.New("invalid forecast horizon")
)
