package web

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"loan-approval/internal/api"
	"loan-approval/internal/applicant"
	"loan-approval/internal/metrics"
	"loan-approval/internal/ml"
	"loan-approval/internal/ml/demo"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, *metrics.Metrics) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, demo.WriteModels(dir, "", ""))

	registry := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(registry)
	wrapper := metrics.NewWrapper(m)

	models, err := ml.LoadModels(dir, ml.LoadOptions{Metrics: wrapper})
	require.NoError(t, err)
	predictor, err := ml.NewPredictor(models, 0.60, wrapper)
	require.NoError(t, err)

	cfg := Config{Port: 8501, ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second}
	return NewServer(cfg, models, predictor, m, registry), m
}

func postJSON(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func sampleForm() url.Values {
	form := url.Values{}
	for name, v := range applicant.Sample() {
		form.Set(name, applicant.FormatValue(v))
	}
	return form
}

func postForm(h http.Handler, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestPredictAPI_Approved(t *testing.T) {
	s, m := newTestServer(t)

	rr := postJSON(t, s.Handler(), api.PredictPath, api.PredictRequest{
		Applicant: applicant.Sample(),
		RequestID: "req-1",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var resp api.PredictResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "req-1", resp.RequestID)
	assert.True(t, resp.Approved)
	assert.InDelta(t, demo.SampleProbability, resp.Probability, 1e-9)
	assert.Equal(t, 0.60, resp.Threshold)
	require.NotNil(t, resp.RecommendedValue)
	assert.InDelta(t, demo.SampleValue, *resp.RecommendedValue, 1e-6)
	assert.Equal(t, demo.Version, resp.ModelVersions["classifier"])
	assert.Equal(t, demo.Version, resp.ModelVersions["regressor"])
	assert.False(t, resp.Timestamp.IsZero())

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ApprovalsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues(api.PredictPath, "200")))
}

func TestPredictAPI_GeneratesRequestID(t *testing.T) {
	s, _ := newTestServer(t)

	rr := postJSON(t, s.Handler(), api.PredictPath, api.PredictRequest{Applicant: applicant.Sample()})
	require.Equal(t, http.StatusOK, rr.Code)

	var resp api.PredictResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Len(t, resp.RequestID, 36)
}

func TestPredictAPI_Rejected(t *testing.T) {
	s, m := newTestServer(t)

	rec := applicant.Sample()
	rec[applicant.CibilScore] = 420
	rr := postJSON(t, s.Handler(), api.PredictPath, api.PredictRequest{Applicant: rec})
	require.Equal(t, http.StatusOK, rr.Code)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &raw))
	assert.Equal(t, false, raw["approved"])
	assert.Contains(t, raw, "recommended_value")
	assert.Nil(t, raw["recommended_value"])
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RejectionsTotal))
}

func TestPredictAPI_Errors(t *testing.T) {
	missing := applicant.Sample()
	delete(missing, applicant.LoanTerm)

	null := applicant.Sample()
	null[applicant.BankAssetValue] = nil

	mistyped := applicant.Sample()
	mistyped[applicant.LoanAmount] = "plenty"

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantKind   string
		wantFields []string
	}{
		{
			name:       "missing field",
			body:       mustJSON(t, api.PredictRequest{Applicant: missing, RequestID: "r"}),
			wantStatus: http.StatusUnprocessableEntity,
			wantKind:   "schema_mismatch",
			wantFields: []string{applicant.LoanTerm},
		},
		{
			name:       "null field",
			body:       mustJSON(t, api.PredictRequest{Applicant: null, RequestID: "r"}),
			wantStatus: http.StatusUnprocessableEntity,
			wantKind:   "missing_value",
			wantFields: []string{applicant.BankAssetValue},
		},
		{
			name:       "mistyped field",
			body:       mustJSON(t, api.PredictRequest{Applicant: mistyped, RequestID: "r"}),
			wantStatus: http.StatusUnprocessableEntity,
			wantKind:   "schema_mismatch",
			wantFields: []string{applicant.LoanAmount},
		},
		{
			name:       "malformed body",
			body:       `{"applicant":`,
			wantStatus: http.StatusBadRequest,
			wantKind:   "invalid_input",
		},
		{
			name:       "empty applicant",
			body:       `{"applicant":{}}`,
			wantStatus: http.StatusBadRequest,
			wantKind:   "invalid_input",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestServer(t)

			req := httptest.NewRequest(http.MethodPost, api.PredictPath, strings.NewReader(tt.body))
			rr := httptest.NewRecorder()
			s.Handler().ServeHTTP(rr, req)

			require.Equal(t, tt.wantStatus, rr.Code, rr.Body.String())
			var resp api.ErrorResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantKind, resp.Kind)
			assert.Equal(t, tt.wantFields, resp.Fields)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}

func TestPredictAPI_MethodNotAllowed(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, api.PredictPath, nil)
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, api.HealthPath, nil)
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var health api.HealthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &health))
	assert.Equal(t, "ok", health.Status)
	assert.True(t, health.ModelsLoaded)
	assert.Equal(t, 0.60, health.Threshold)
	assert.Equal(t, demo.Version, health.ModelVersions["classifier"])
}

func TestModelInfo(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, api.ModelInfoPath, nil)
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var info api.ModelInfoResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &info))
	require.Len(t, info.Models, 2)
	assert.Equal(t, "classifier", info.Models[0].Kind)
	assert.Equal(t, 4, info.Models[0].Trees)
	assert.Equal(t, applicant.Names(), info.Models[0].Features)
	assert.Equal(t, "regressor", info.Models[1].Kind)
	assert.Equal(t, 0.86, info.Models[1].Metrics["r2"])
}

func TestModelInfoAndHealth_NoModels(t *testing.T) {
	s := NewServer(Config{}, nil, nil, nil, prometheus.NewRegistry())

	req := httptest.NewRequest(http.MethodGet, api.ModelInfoPath, nil)
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)

	var resp api.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "models not loaded", resp.Error)

	req = httptest.NewRequest(http.MethodGet, api.HealthPath, nil)
	rr = httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)

	var health api.HealthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &health))
	assert.Equal(t, "unavailable", health.Status)
	assert.False(t, health.ModelsLoaded)
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	postJSON(t, s.Handler(), api.PredictPath, api.PredictRequest{Applicant: applicant.Sample()})

	req := httptest.NewRequest(http.MethodGet, api.MetricsPath, nil)
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	body := rr.Body.String()
	assert.Contains(t, body, "loan_predictions_total 1")
	assert.Contains(t, body, "loan_approvals_total 1")
	assert.Contains(t, body, `loan_model_age_seconds{model="classifier"}`)
}

func TestForm_RendersDefaults(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	body := rr.Body.String()
	assert.Contains(t, body, "Predict Loan Approval")
	for _, f := range applicant.Fields {
		assert.Contains(t, body, `name="`+f.Name+`"`)
	}
	assert.Contains(t, body, `id="cibil_score" name="cibil_score" min="300" max="900" step="1" value="650"`)
	assert.Contains(t, body, `<option value="Yes" selected>Yes</option>`)
	assert.NotContains(t, body, "Loan Approved")
}

func TestForm_SubmitApproved(t *testing.T) {
	s, _ := newTestServer(t)

	rr := postForm(s.Handler(), sampleForm())
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	body := rr.Body.String()
	assert.Contains(t, body, "Loan Approved")
	assert.Contains(t, body, "Recommended Loan Value")
	assert.Contains(t, body, "₹ 243,373.67")
	assert.Contains(t, body, "92.50%")
	assert.NotContains(t, body, RejectionWarning)
}

func TestForm_SubmitRejected(t *testing.T) {
	s, _ := newTestServer(t)

	form := sampleForm()
	form.Set(applicant.CibilScore, "420")
	rr := postForm(s.Handler(), form)
	require.Equal(t, http.StatusOK, rr.Code)

	body := rr.Body.String()
	assert.Contains(t, body, "Loan Rejected")
	assert.Contains(t, body, RejectionWarning)
	assert.Contains(t, body, "10.50%")
	assert.NotContains(t, body, "Recommended Loan Value")
}

func TestForm_SubmitOutOfRange(t *testing.T) {
	s, m := newTestServer(t)

	form := sampleForm()
	form.Set(applicant.CibilScore, "1000")
	form.Set(applicant.Education, "PhD")
	rr := postForm(s.Handler(), form)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	body := rr.Body.String()
	assert.Contains(t, body, "CIBIL Score must be at most 900")
	assert.Contains(t, body, "Education must be one of Graduate, Not Graduate")
	// The submitted value is kept in the form.
	assert.Contains(t, body, `value="1000"`)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.PredictionsTotal))
}

func TestForm_SubmitMissingField(t *testing.T) {
	s, _ := newTestServer(t)

	form := sampleForm()
	form.Del(applicant.LoanAmount)
	rr := postForm(s.Handler(), form)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "Loan Amount Requested is required")
}

func TestErrorResponse(t *testing.T) {
	status, body := errorResponse(&ml.SchemaMismatchError{Missing: []string{"a"}, Invalid: []string{"b"}})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, []string{"a", "b"}, body.Fields)
	assert.Equal(t, []string{"a"}, body.Missing)
	assert.Equal(t, []string{"b"}, body.Invalid)

	status, body = errorResponse(assert.AnError)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal", body.Kind)
}
