// Package api defines the JSON bodies exchanged by the prediction web service
// and its client.
package api

import (
	"time"

	"loan-approval/internal/applicant"
	"loan-approval/internal/ml"
)

// Routes served by the web service.
const (
	PredictPath   = "/api/v1/predict"
	HealthPath    = "/health"
	ModelInfoPath = "/model/info"
	MetricsPath   = "/metrics"
)

// PredictRequest represents the incoming prediction request
type PredictRequest struct {
	Applicant applicant.Record `json:"applicant"`
	RequestID string           `json:"request_id,omitempty"`
}

// PredictResponse represents the prediction result
type PredictResponse struct {
	RequestID        string            `json:"request_id"`
	Approved         bool              `json:"approved"`
	Probability      float64           `json:"probability"`
	Threshold        float64           `json:"threshold"`
	RecommendedValue *float64          `json:"recommended_value"`
	ModelVersions    map[string]string `json:"model_versions"`
	LatencyMs        float64           `json:"latency_ms"`
	Timestamp        time.Time         `json:"timestamp"`
}

// ErrorResponse is returned for every failed request. Fields lists every
// offending field; Missing and Invalid split schema mismatches into absent
// and mistyped fields.
type ErrorResponse struct {
	Error     string   `json:"error"`
	Kind      string   `json:"kind"`
	Fields    []string `json:"fields,omitempty"`
	Missing   []string `json:"missing,omitempty"`
	Invalid   []string `json:"invalid,omitempty"`
	RequestID string   `json:"request_id,omitempty"`
}

// HealthResponse reports service readiness.
type HealthResponse struct {
	Status        string            `json:"status"`
	ModelsLoaded  bool              `json:"models_loaded"`
	ModelVersions map[string]string `json:"model_versions"`
	Threshold     float64           `json:"threshold"`
	ErrorRate     float64           `json:"error_rate"`
	UptimeSeconds float64           `json:"uptime_seconds"`
}

// ModelInfoResponse describes the loaded artifacts.
type ModelInfoResponse struct {
	Models    []ml.ModelInfo `json:"models"`
	Threshold float64        `json:"threshold"`
	LoadedAt  time.Time      `json:"loaded_at"`
}

// NewPredictResponse builds the response body for a successful prediction.
func NewPredictResponse(requestID string, res ml.Result, latency time.Duration) PredictResponse {
	return PredictResponse{
		RequestID:        requestID,
		Approved:         res.Approved,
		Probability:      res.Probability,
		Threshold:        res.Threshold,
		RecommendedValue: res.RecommendedValue,
		ModelVersions: map[string]string{
			ml.KindClassifier: res.ClassifierVersion,
			ml.KindRegressor:  res.RegressorVersion,
		},
		LatencyMs: float64(latency.Microseconds()) / 1000,
		Timestamp: time.Now().UTC(),
	}
}

// Result converts the response back into a prediction result.
func (r PredictResponse) Result() ml.Result {
	return ml.Result{
		Approved:          r.Approved,
		Probability:       r.Probability,
		Threshold:         r.Threshold,
		RecommendedValue:  r.RecommendedValue,
		ClassifierVersion: r.ModelVersions[ml.KindClassifier],
		RegressorVersion:  r.ModelVersions[ml.KindRegressor],
	}
}
