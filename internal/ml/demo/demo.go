// Package demo builds small hand-written forests in the artifact format so the
// binaries and tests can run without exported training artifacts.
package demo

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"loan-approval/internal/applicant"
	"loan-approval/internal/common"
	"loan-approval/internal/ml"
)

// Version tags both demo artifacts.
const Version = "demo-1"

// TrainedAt is the fixed timestamp recorded in the demo artifacts.
var TrainedAt = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

// SampleProbability and SampleValue are what the demo models predict for
// applicant.Sample().
const (
	SampleProbability = (0.96 + 0.88 + 0.92 + 0.94) / 4
	SampleValue       = (246500.0 + 243741.0 + 239880.0) / 3
)

// node describes a subtree; a node with no children is a leaf holding value.
type node struct {
	feature     string
	threshold   float64
	left, right *node
	value       []float64
}

func split(feature string, threshold float64, left, right *node) *node {
	return &node{feature: feature, threshold: threshold, left: left, right: right}
}

func leaf(value ...float64) *node { return &node{value: value} }

// flatten lays the tree out in pre-order so children always follow parents.
func flatten(root *node, names []string) ml.Tree {
	index := make(map[string]int, len(names))
	for i, n := range names {
		index[n] = i
	}

	var t ml.Tree
	var walk func(n *node) int
	walk = func(n *node) int {
		id := len(t.ChildrenLeft)
		t.ChildrenLeft = append(t.ChildrenLeft, -1)
		t.ChildrenRight = append(t.ChildrenRight, -1)
		t.Feature = append(t.Feature, -2)
		t.Threshold = append(t.Threshold, -2)
		t.Value = append(t.Value, n.value)
		if n.left == nil {
			return id
		}

		fi, ok := index[n.feature]
		if !ok {
			panic(fmt.Sprintf("demo tree splits on unknown feature %q", n.feature))
		}
		t.Feature[id] = fi
		t.Threshold[id] = n.threshold
		t.Value[id] = nil
		l := walk(n.left)
		r := walk(n.right)
		t.ChildrenLeft[id] = l
		t.ChildrenRight[id] = r
		t.Value[id] = mergeValue(t.Value[l], t.Value[r])
		return id
	}
	walk(root)
	return t
}

// mergeValue sums child outputs for internal nodes. Prediction only reads
// leaves.
func mergeValue(a, b []float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] + b[i]
	}
	return out
}

func encoders() map[string]ml.Encoder {
	return map[string]ml.Encoder{
		applicant.Education:    {Categories: []string{"Graduate", "Not Graduate"}},
		applicant.SelfEmployed: {Categories: []string{"No", "Yes"}},
	}
}

// Classifier returns the demo approval classifier. Leaves hold
// [reject, approve] sample counts.
func Classifier() *ml.Artifact {
	names := applicant.Names()
	trained := TrainedAt
	trees := []*node{
		split(applicant.CibilScore, 549.5,
			split(applicant.LoanTerm, 5, leaf(30, 70), leaf(95, 5)),
			leaf(4, 96)),
		split(applicant.CibilScore, 529.5,
			leaf(90, 10),
			split(applicant.LoanTerm, 10,
				leaf(5, 95),
				split(applicant.IncomeAnnum, 300000, leaf(40, 60), leaf(12, 88)))),
		split(applicant.CibilScore, 579.5,
			leaf(85, 15),
			split(applicant.BankAssetValue, 100000, leaf(30, 70), leaf(8, 92))),
		split(applicant.Education, 0.5,
			split(applicant.CibilScore, 549.5, leaf(88, 12), leaf(6, 94)),
			split(applicant.CibilScore, 549.5, leaf(91, 9), leaf(9, 91))),
	}

	art := &ml.Artifact{
		Kind:         ml.KindClassifier,
		Version:      Version,
		TrainedAt:    &trained,
		FeatureNames: names,
		Encoders:     encoders(),
		Classes:      []int{0, 1},
		Metrics:      map[string]float64{"accuracy": 0.978, "f1": 0.982},
	}
	for _, root := range trees {
		art.Trees = append(art.Trees, flatten(root, names))
	}
	return art
}

// Regressor returns the demo loan value regressor. Its schema is the
// classifier schema followed by loan_status.
func Regressor() *ml.Artifact {
	names := append(applicant.Names(), common.LoanStatusFeature)
	trained := TrainedAt
	enc := encoders()
	enc[common.LoanStatusFeature] = ml.Encoder{Categories: []string{common.LoanStatusApprove, "Reject"}}

	trees := []*node{
		split(applicant.LoanAmount, 1000000,
			split(applicant.IncomeAnnum, 500000, leaf(210000), leaf(246500)),
			split(applicant.LoanAmount, 10000000, leaf(4800000), leaf(18500000))),
		split(applicant.CibilScore, 700,
			split(applicant.LoanAmount, 1000000, leaf(225000), leaf(6200000)),
			split(applicant.LoanAmount, 1000000, leaf(243741), leaf(7900000))),
		split(common.LoanStatusFeature, 0.5,
			split(applicant.BankAssetValue, 500000, leaf(239880), leaf(260000)),
			leaf(150000)),
	}

	art := &ml.Artifact{
		Kind:         ml.KindRegressor,
		Version:      Version,
		TrainedAt:    &trained,
		FeatureNames: names,
		Encoders:     enc,
		Metrics:      map[string]float64{"r2": 0.86, "mae": 412000},
	}
	for _, root := range trees {
		art.Trees = append(art.Trees, flatten(root, names))
	}
	return art
}

// WriteModels writes both demo artifacts into dir under the given file names,
// creating dir if needed. Empty names select the defaults.
func WriteModels(dir, classifierFile, regressorFile string) error {
	if classifierFile == "" {
		classifierFile = common.DefaultClassifierFile
	}
	if regressorFile == "" {
		regressorFile = common.DefaultRegressorFile
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create models directory: %w", err)
	}

	for file, art := range map[string]*ml.Artifact{
		classifierFile: Classifier(),
		regressorFile:  Regressor(),
	} {
		data, err := json.MarshalIndent(art, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal %s artifact: %w", art.Kind, err)
		}
		if err := os.WriteFile(filepath.Join(dir, file), data, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", file, err)
		}
	}
	return nil
}
