package ml

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"loan-approval/internal/applicant"
)

// MockMetrics implements MetricsInterface for testing
type MockMetrics struct {
	mu                sync.Mutex
	predictions       int
	approvals         int
	rejections        int
	failures          map[string]int
	latencySum        float64
	latencyCount      int
	probabilities     []float64
	recommendedValues []float64
	modelAges         map[string]float64
}

func (m *MockMetrics) PredictionsInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.predictions++
}

func (m *MockMetrics) ApprovalsInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.approvals++
}

func (m *MockMetrics) RejectionsInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejections++
}

func (m *MockMetrics) FailuresInc(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failures == nil {
		m.failures = make(map[string]int)
	}
	m.failures[kind]++
}

func (m *MockMetrics) LatencyObserve(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latencySum += v
	m.latencyCount++
}

func (m *MockMetrics) ProbabilityObserve(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.probabilities = append(m.probabilities, v)
}

func (m *MockMetrics) RecommendedValueObserve(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recommendedValues = append(m.recommendedValues, v)
}

func (m *MockMetrics) ModelAgeSet(kind string, seconds float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.modelAges == nil {
		m.modelAges = make(map[string]float64)
	}
	m.modelAges[kind] = seconds
}

// testFeatureOrder deliberately differs from the form order so alignment is
// exercised.
var testFeatureOrder = []string{
	applicant.CibilScore,
	applicant.LoanTerm,
	applicant.IncomeAnnum,
	applicant.Education,
	applicant.NoOfDependents,
	applicant.SelfEmployed,
	applicant.LoanAmount,
	applicant.ResidentialAssetsValue,
	applicant.CommercialAssetsValue,
	applicant.LuxuryAssetsValue,
	applicant.BankAssetValue,
}

func featureIndex(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	panic("unknown feature " + name)
}

func leaf(value ...float64) ([]int, []int, []int, []float64, [][]float64) {
	return []int{-1}, []int{-1}, []int{-2}, []float64{-2}, [][]float64{value}
}

// testClassifierArtifact builds a three-tree forest:
//
//	tree 0: cibil_score <= 549.5 ? [90,10] : [5,95]
//	tree 1: loan_term <= 10 ? [20,80] : (income_annum <= 300000 ? [70,30] : [10,90])
//	tree 2: education <= 0.5 ? [10,90] : [40,60]
//
// The sample applicant scores (0.95 + 0.90 + 0.90) / 3.
func testClassifierArtifact() *Artifact {
	names := testFeatureOrder
	trained := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	return &Artifact{
		Kind:         KindClassifier,
		Version:      "clf-test-1",
		TrainedAt:    &trained,
		FeatureNames: names,
		Encoders: map[string]Encoder{
			applicant.Education:    {Categories: []string{"Graduate", "Not Graduate"}},
			applicant.SelfEmployed: {Categories: []string{"No", "Yes"}},
		},
		Classes: []int{0, 1},
		Metrics: map[string]float64{"accuracy": 0.97},
		Trees: []Tree{
			{
				ChildrenLeft:  []int{1, -1, -1},
				ChildrenRight: []int{2, -1, -1},
				Feature:       []int{featureIndex(names, applicant.CibilScore), -2, -2},
				Threshold:     []float64{549.5, -2, -2},
				Value:         [][]float64{{95, 105}, {90, 10}, {5, 95}},
			},
			{
				ChildrenLeft:  []int{1, -1, 3, -1, -1},
				ChildrenRight: []int{2, -1, 4, -1, -1},
				Feature: []int{
					featureIndex(names, applicant.LoanTerm), -2,
					featureIndex(names, applicant.IncomeAnnum), -2, -2,
				},
				Threshold: []float64{10, -2, 300000, -2, -2},
				Value:     [][]float64{{100, 200}, {20, 80}, {80, 120}, {70, 30}, {10, 90}},
			},
			{
				ChildrenLeft:  []int{1, -1, -1},
				ChildrenRight: []int{2, -1, -1},
				Feature:       []int{featureIndex(names, applicant.Education), -2, -2},
				Threshold:     []float64{0.5, -2, -2},
				Value:         [][]float64{{50, 150}, {10, 90}, {40, 60}},
			},
		},
	}
}

// testRegressorArtifact builds a two-tree forest over the classifier features
// plus loan_status:
//
//	tree 0: loan_amount <= 200000 ? 180000 : (loan_status <= 0.5 ? 240000 : 0)
//	tree 1: 250000
//
// The sample applicant is recommended (240000 + 250000) / 2.
func testRegressorArtifact() *Artifact {
	names := append(append([]string{}, testFeatureOrder...), "loan_status")
	l, r, f, th, v := leaf(250000)
	return &Artifact{
		Kind:         KindRegressor,
		Version:      "reg-test-1",
		FeatureNames: names,
		Encoders: map[string]Encoder{
			applicant.Education:    {Categories: []string{"Graduate", "Not Graduate"}},
			applicant.SelfEmployed: {Categories: []string{"No", "Yes"}},
			"loan_status":          {Categories: []string{"Approve", "Reject"}},
		},
		Trees: []Tree{
			{
				ChildrenLeft:  []int{1, -1, 3, -1, -1},
				ChildrenRight: []int{2, -1, 4, -1, -1},
				Feature: []int{
					featureIndex(names, applicant.LoanAmount), -2,
					featureIndex(names, "loan_status"), -2, -2,
				},
				Threshold: []float64{200000, -2, 0.5, -2, -2},
				Value:     [][]float64{{200000}, {180000}, {220000}, {240000}, {0}},
			},
			{ChildrenLeft: l, ChildrenRight: r, Feature: f, Threshold: th, Value: v},
		},
	}
}

func writeArtifact(t *testing.T, path string, art any) {
	t.Helper()
	data, err := json.Marshal(art)
	if err != nil {
		t.Fatalf("marshal artifact: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
}

// writeTestModels writes both test artifacts under default names into a temp
// directory and returns it.
func writeTestModels(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeArtifact(t, filepath.Join(dir, "stage_1_rf_classifier_pipeline.json"), testClassifierArtifact())
	writeArtifact(t, filepath.Join(dir, "stage_2_rf_regression_pipeline.json"), testRegressorArtifact())
	return dir
}

func newTestPredictor(t *testing.T, threshold float64, metrics MetricsInterface) *Predictor {
	t.Helper()
	models, err := LoadModels(writeTestModels(t), LoadOptions{})
	if err != nil {
		t.Fatalf("load models: %v", err)
	}
	p, err := NewPredictor(models, threshold, metrics)
	if err != nil {
		t.Fatalf("new predictor: %v", err)
	}
	return p
}

// rejectedApplicant scores (0.10 + 0.30 + 0.60) / 3.
func rejectedApplicant() applicant.Record {
	rec := applicant.Sample()
	rec[applicant.CibilScore] = 400
	rec[applicant.IncomeAnnum] = 200000.0
	rec[applicant.Education] = "Not Graduate"
	return rec
}
