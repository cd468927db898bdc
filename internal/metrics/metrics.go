// Package metrics provides Prometheus metrics collection for the loan approval
// service. It defines the prediction, model and HTTP metrics exposed via the
// Prometheus metrics endpoint for monitoring and alerting.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the loan approval service.
type Metrics struct {
	// Prediction metrics
	PredictionsTotal    prometheus.Counter     // Total number of completed predictions
	ApprovalsTotal      prometheus.Counter     // Total number of approved applicants
	RejectionsTotal     prometheus.Counter     // Total number of rejected applicants
	PredictionFailures  *prometheus.CounterVec // Failed predictions by error kind
	PredictionLatency   prometheus.Histogram   // Two-stage prediction latency in seconds
	ApprovalProbability prometheus.Histogram   // Distribution of approval probabilities
	RecommendedValue    prometheus.Histogram   // Distribution of recommended loan values

	// Model metrics
	ModelAge *prometheus.GaugeVec // Age of each loaded model in seconds

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec // HTTP requests by route and status code

	gatherer prometheus.Gatherer
}

// New creates and registers all Prometheus metrics using the default registry.
// This is the standard way to create metrics for production use.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry (useful for testing).
// This allows for isolated metric collection in tests without affecting
// the global Prometheus registry.
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	m := &Metrics{
		PredictionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "loan_predictions_total",
			Help: "Total number of completed loan predictions",
		}),
		ApprovalsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "loan_approvals_total",
			Help: "Total number of approved applicants",
		}),
		RejectionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "loan_rejections_total",
			Help: "Total number of rejected applicants",
		}),
		PredictionFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "loan_prediction_failures_total",
			Help: "Total number of failed predictions by error kind",
		}, []string{"kind"}),
		PredictionLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "loan_prediction_latency_seconds",
			Help:    "Two-stage prediction latency in seconds (end-to-end)",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}),
		ApprovalProbability: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "loan_approval_probability",
			Help:    "Distribution of classifier approval probabilities",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		}),
		RecommendedValue: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "loan_recommended_value",
			Help:    "Distribution of recommended loan values for approved applicants",
			Buckets: prometheus.ExponentialBuckets(100000, 2, 10),
		}),
		ModelAge: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "loan_model_age_seconds",
			Help: "Age of each loaded model in seconds",
		}, []string{"model"}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "loan_http_requests_total",
			Help: "Total number of HTTP requests by route and status code",
		}, []string{"route", "code"}),
	}

	if g, ok := registerer.(prometheus.Gatherer); ok {
		m.gatherer = g
	}
	return m
}

// GetErrorRate returns failed predictions as a share of all prediction
// attempts, or 0 if nothing has been recorded or the registry cannot be
// gathered.
func (m *Metrics) GetErrorRate() float64 {
	if m.gatherer == nil {
		return 0
	}

	metricFamilies, err := m.gatherer.Gather()
	if err != nil {
		return 0
	}

	var succeeded, failed float64
	for _, mf := range metricFamilies {
		switch mf.GetName() {
		case "loan_predictions_total":
			for _, metric := range mf.GetMetric() {
				succeeded += metric.GetCounter().GetValue()
			}
		case "loan_prediction_failures_total":
			for _, metric := range mf.GetMetric() {
				failed += metric.GetCounter().GetValue()
			}
		}
	}

	// Avoid division by zero
	total := succeeded + failed
	if total == 0 {
		return 0
	}
	return failed / total
}
