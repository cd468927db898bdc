package metrics

import "github.com/prometheus/client_golang/prometheus"

// MetricsCounter is the counter surface handed to HTTP middleware.
type MetricsCounter interface {
	Inc()
}

// MetricsWrapper adapts Metrics to the interface the predictor and loader use.
type MetricsWrapper struct {
	m *Metrics
}

func NewWrapper(m *Metrics) *MetricsWrapper {
	return &MetricsWrapper{m: m}
}

func (w *MetricsWrapper) PredictionsInc() { w.m.PredictionsTotal.Inc() }

func (w *MetricsWrapper) ApprovalsInc() { w.m.ApprovalsTotal.Inc() }

func (w *MetricsWrapper) RejectionsInc() { w.m.RejectionsTotal.Inc() }

func (w *MetricsWrapper) FailuresInc(kind string) {
	w.m.PredictionFailures.WithLabelValues(kind).Inc()
}

func (w *MetricsWrapper) LatencyObserve(v float64) { w.m.PredictionLatency.Observe(v) }

func (w *MetricsWrapper) ProbabilityObserve(v float64) { w.m.ApprovalProbability.Observe(v) }

func (w *MetricsWrapper) RecommendedValueObserve(v float64) { w.m.RecommendedValue.Observe(v) }

func (w *MetricsWrapper) ModelAgeSet(kind string, seconds float64) {
	w.m.ModelAge.WithLabelValues(kind).Set(seconds)
}

// HTTPRequest returns the counter for one route and status code.
func (w *MetricsWrapper) HTTPRequest(route, code string) MetricsCounter {
	return &CounterWrapper{w.m.HTTPRequests.WithLabelValues(route, code)}
}

type CounterWrapper struct {
	c prometheus.Counter
}

func (cw *CounterWrapper) Inc() {
	cw.c.Inc()
}
