package ml

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/xeipuuv/gojsonschema"
)

// Artifact kinds.
const (
	KindClassifier = "classifier"
	KindRegressor  = "regressor"
)

// leafMarker marks a leaf in children_left/children_right.
const leafMarker = -1

//go:embed artifact_schema.json
var artifactSchemaJSON []byte

var (
	artifactSchemaOnce sync.Once
	artifactSchema     *gojsonschema.Schema
	artifactSchemaErr  error
)

// Artifact is the serialized form of a fitted pipeline: ordinal encoders for
// the categorical columns followed by a random forest.
type Artifact struct {
	Kind         string             `json:"kind"`
	Version      string             `json:"version,omitempty"`
	TrainedAt    *time.Time         `json:"trained_at,omitempty"`
	FeatureNames []string           `json:"feature_names_in"`
	Encoders     map[string]Encoder `json:"encoders,omitempty"`
	Classes      []int              `json:"classes,omitempty"`
	Metrics      map[string]float64 `json:"metrics,omitempty"`
	Trees        []Tree             `json:"trees"`
}

// Encoder maps the categories of one column to their ordinal codes.
type Encoder struct {
	Categories []string `json:"categories"`
}

// Tree holds a fitted CART tree in parallel-array form. Node 0 is the root.
type Tree struct {
	ChildrenLeft  []int       `json:"children_left"`
	ChildrenRight []int       `json:"children_right"`
	Feature       []int       `json:"feature"`
	Threshold     []float64   `json:"threshold"`
	Value         [][]float64 `json:"value"`
}

func compiledArtifactSchema() (*gojsonschema.Schema, error) {
	artifactSchemaOnce.Do(func() {
		artifactSchema, artifactSchemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(artifactSchemaJSON))
	})
	return artifactSchema, artifactSchemaErr
}

// DecodeArtifact validates data against the artifact JSON schema, decodes it
// and checks the structure of every tree.
func DecodeArtifact(data []byte) (*Artifact, error) {
	schema, err := compiledArtifactSchema()
	if err != nil {
		return nil, fmt.Errorf("compile artifact schema: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}
	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return nil, fmt.Errorf("artifact validation failed: %s", strings.Join(errs, "; "))
	}

	var art Artifact
	if err := json.Unmarshal(data, &art); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	if err := art.validate(); err != nil {
		return nil, err
	}
	return &art, nil
}

func (a *Artifact) validate() error {
	nFeatures := len(a.FeatureNames)

	index := make(map[string]bool, nFeatures)
	for _, name := range a.FeatureNames {
		index[name] = true
	}
	for name := range a.Encoders {
		if !index[name] {
			return fmt.Errorf("encoder for unknown feature %q", name)
		}
	}

	outputs := 1
	if a.Kind == KindClassifier {
		if len(a.Classes) == 0 {
			a.Classes = []int{0, 1}
		}
		if len(a.Classes) != 2 {
			return fmt.Errorf("classifier must have 2 classes, got %d", len(a.Classes))
		}
		outputs = 2
	}

	for i := range a.Trees {
		if err := a.Trees[i].validate(nFeatures, outputs); err != nil {
			return fmt.Errorf("tree %d: %w", i, err)
		}
	}
	return nil
}

func (t *Tree) validate(nFeatures, outputs int) error {
	n := len(t.ChildrenLeft)
	if len(t.ChildrenRight) != n || len(t.Feature) != n || len(t.Threshold) != n || len(t.Value) != n {
		return fmt.Errorf("node arrays differ in length")
	}

	for i := 0; i < n; i++ {
		left, right := t.ChildrenLeft[i], t.ChildrenRight[i]
		if (left == leafMarker) != (right == leafMarker) {
			return fmt.Errorf("node %d has a single child", i)
		}
		if left == leafMarker {
			if len(t.Value[i]) != outputs {
				return fmt.Errorf("leaf %d has %d outputs, want %d", i, len(t.Value[i]), outputs)
			}
			for _, w := range t.Value[i] {
				if math.IsNaN(w) || math.IsInf(w, 0) {
					return fmt.Errorf("leaf %d has non-finite output %v", i, w)
				}
				if outputs > 1 && w < 0 {
					return fmt.Errorf("leaf %d has negative class weight %v", i, w)
				}
			}
			if outputs > 1 && sum(t.Value[i]) <= 0 {
				return fmt.Errorf("leaf %d has no class weight", i)
			}
			continue
		}
		// Children always follow their parent, which rules out cycles.
		if left <= i || left >= n || right <= i || right >= n {
			return fmt.Errorf("node %d has child out of range", i)
		}
		if t.Feature[i] < 0 || t.Feature[i] >= nFeatures {
			return fmt.Errorf("node %d splits on feature %d of %d", i, t.Feature[i], nFeatures)
		}
	}
	return nil
}

// leaf walks the tree for x and returns the leaf node index.
func (t *Tree) leaf(x []float64) int {
	i := 0
	for t.ChildrenLeft[i] != leafMarker {
		if x[t.Feature[i]] <= t.Threshold[i] {
			i = t.ChildrenLeft[i]
		} else {
			i = t.ChildrenRight[i]
		}
	}
	return i
}

func sum(v []float64) float64 {
	var s float64
	for _, x := range v {
		s += x
	}
	return s
}
