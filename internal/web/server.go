// Package web serves the loan approval form and its JSON API.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"loan-approval/internal/api"
	"loan-approval/internal/common"
	"loan-approval/internal/metrics"
	"loan-approval/internal/ml"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Config holds the HTTP settings of the server.
type Config struct {
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	PredictTimeout time.Duration
}

// Server serves the applicant form, the prediction API and service endpoints.
type Server struct {
	models    *ml.Models
	predictor *ml.Predictor
	metrics   *metrics.Metrics
	wrapper   *metrics.MetricsWrapper
	gatherer  prometheus.Gatherer
	router    *mux.Router
	server    *http.Server
	timeout   time.Duration
	started   time.Time
}

// NewServer creates a server over loaded models. m may be nil, in which case
// no HTTP metrics are recorded; gatherer defaults to the global registry.
func NewServer(c Config, models *ml.Models, predictor *ml.Predictor, m *metrics.Metrics, gatherer prometheus.Gatherer) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	if c.PredictTimeout <= 0 {
		c.PredictTimeout = 5 * time.Second
	}

	s := &Server{
		models:    models,
		predictor: predictor,
		metrics:   m,
		gatherer:  gatherer,
		timeout:   c.PredictTimeout,
		started:   time.Now(),
	}
	if m != nil {
		s.wrapper = metrics.NewWrapper(m)
	}

	r := mux.NewRouter()
	r.Use(s.instrument)
	r.HandleFunc("/", s.handleForm).Methods(http.MethodGet)
	r.HandleFunc("/", s.handleFormSubmit).Methods(http.MethodPost)
	r.HandleFunc(api.PredictPath, s.handlePredict).Methods(http.MethodPost)
	r.HandleFunc(api.HealthPath, s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc(api.ModelInfoPath, s.handleModelInfo).Methods(http.MethodGet)
	r.Handle(api.MetricsPath, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	s.router = r

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", c.Port),
		Handler:           r,
		ReadHeaderTimeout: c.ReadTimeout,
		ReadTimeout:       c.ReadTimeout,
		WriteTimeout:      c.WriteTimeout,
		IdleTimeout:       120 * time.Second,
	}

	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// Addr returns the listen address.
func (s *Server) Addr() string { return s.server.Addr }

// Start begins serving HTTP requests and blocks until the server stops.
// A graceful shutdown is not an error.
func (s *Server) Start() error {
	log.Info().Str("addr", s.server.Addr).Msg("starting loan approval server")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req api.PredictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, api.ErrorResponse{
			Error: fmt.Sprintf("invalid request: %v", err),
			Kind:  common.ErrKindInvalidInput,
		})
		return
	}
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	if len(req.Applicant) == 0 {
		writeError(w, http.StatusBadRequest, api.ErrorResponse{
			Error:     "applicant cannot be empty",
			Kind:      common.ErrKindInvalidInput,
			RequestID: req.RequestID,
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	res, err := s.predictor.Predict(ctx, req.Applicant)
	if err != nil {
		status, body := errorResponse(err)
		body.RequestID = req.RequestID
		log.Warn().Err(err).Str("request_id", req.RequestID).Str("kind", body.Kind).Msg("prediction failed")
		writeError(w, status, body)
		return
	}

	log.Info().
		Str("request_id", req.RequestID).
		Bool("approved", res.Approved).
		Float64("probability", res.Probability).
		Msg("prediction served")

	writeJSON(w, http.StatusOK, api.NewPredictResponse(req.RequestID, res, time.Since(start)))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := api.HealthResponse{
		Status:        "ok",
		ModelsLoaded:  s.modelsLoaded(),
		ModelVersions: map[string]string{},
		UptimeSeconds: time.Since(s.started).Seconds(),
	}
	if s.predictor != nil {
		health.Threshold = s.predictor.Threshold()
	}
	if s.metrics != nil {
		health.ErrorRate = s.metrics.GetErrorRate()
	}

	status := http.StatusOK
	if health.ModelsLoaded {
		health.ModelVersions[ml.KindClassifier] = s.models.Classifier.Version()
		health.ModelVersions[ml.KindRegressor] = s.models.Regressor.Version()
	} else {
		health.Status = "unavailable"
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, health)
}

func (s *Server) handleModelInfo(w http.ResponseWriter, r *http.Request) {
	if !s.modelsLoaded() {
		writeError(w, http.StatusServiceUnavailable, api.ErrorResponse{
			Error: "models not loaded",
			Kind:  common.ErrKindInternal,
		})
		return
	}
	writeJSON(w, http.StatusOK, api.ModelInfoResponse{
		Models:    s.models.Info(),
		Threshold: s.predictor.Threshold(),
		LoadedAt:  s.models.LoadedAt,
	})
}

func (s *Server) modelsLoaded() bool {
	return s.models != nil && s.models.Classifier != nil && s.models.Regressor != nil && s.predictor != nil
}

// errorResponse maps a prediction error to its HTTP status and body.
func errorResponse(err error) (int, api.ErrorResponse) {
	body := api.ErrorResponse{Error: err.Error(), Kind: ml.ErrorKind(err)}

	var schemaErr *ml.SchemaMismatchError
	var missingErr *ml.MissingValueError
	switch {
	case errors.As(err, &schemaErr):
		body.Fields = schemaErr.Fields()
		body.Missing = schemaErr.Missing
		body.Invalid = schemaErr.Invalid
		return http.StatusUnprocessableEntity, body
	case errors.As(err, &missingErr):
		body.Fields = missingErr.Fields
		return http.StatusUnprocessableEntity, body
	case body.Kind == common.ErrKindCanceled:
		return http.StatusServiceUnavailable, body
	default:
		return http.StatusInternalServerError, body
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, body api.ErrorResponse) {
	writeJSON(w, status, body)
}
