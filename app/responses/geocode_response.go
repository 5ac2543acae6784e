package responses

import (
	"github.com/gazetteer-geocoder/app/models"
)

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewError(code, message string) ErrorResponse {
	return ErrorResponse{Code: code, Message: message}
}

// ResolveResponse wraps a geocode result with timing.
type ResolveResponse struct {
	Result *models.GeocodeResult `json:"result"`
	TookMs int64                 `json:"took_ms"`
}

// BatchAccepted acknowledges a submitted batch job.
type BatchAccepted struct {
	JobID         string `json:"job_id"`
	Status        string `json:"status"`
	Total         int    `json:"total"`
	EstimatedSecs int64  `json:"estimated_seconds"`
}

// NearbyResponse wraps a proximity query.
type NearbyResponse struct {
	Count   int         `json:"count"`
	Results interface{} `json:"results"`
}

// HealthResponse reports liveness and index state.
type HealthResponse struct {
	Status           string `json:"status"`
	GazetteerVersion string `json:"gazetteer_version,omitempty"`
	IndexReady       bool   `json:"index_ready"`
}
