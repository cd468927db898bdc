// Package ml loads the two-stage loan model artifacts and evaluates them.
// Stage one is a random-forest classifier that yields the approval
// probability; stage two is a random-forest regressor that recommends a loan
// value for approved applicants.
//
// Loaded models are immutable, so a single Predictor can serve concurrent
// callers without locking.
package ml

// MetricsInterface defines metrics methods needed by the loader and predictor
type MetricsInterface interface {
	PredictionsInc()
	ApprovalsInc()
	RejectionsInc()
	FailuresInc(kind string)
	LatencyObserve(float64)
	ProbabilityObserve(float64)
	RecommendedValueObserve(float64)
	ModelAgeSet(kind string, seconds float64)
}
