package ml

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// unknownCategory is the code given to categories not seen in training.
const unknownCategory = -1

// Pipeline is a loaded, immutable model: feature schema, encoders and forest.
type Pipeline struct {
	art        *Artifact
	path       string
	encoders   []map[string]float64 // by feature position, nil for numeric columns
	positive   int                  // class index of the approval class
	modifiedAt time.Time
}

func newPipeline(art *Artifact, path string, modifiedAt time.Time) *Pipeline {
	p := &Pipeline{
		art:        art,
		path:       path,
		encoders:   make([]map[string]float64, len(art.FeatureNames)),
		positive:   1,
		modifiedAt: modifiedAt,
	}

	for i, name := range art.FeatureNames {
		enc, ok := art.Encoders[name]
		if !ok {
			continue
		}
		codes := make(map[string]float64, len(enc.Categories))
		for code, category := range enc.Categories {
			codes[category] = float64(code)
		}
		p.encoders[i] = codes
	}

	if art.Kind == KindClassifier {
		for i, class := range art.Classes {
			if class == 1 {
				p.positive = i
			}
		}
	}
	return p
}

// Artifact returns the decoded artifact. Callers must not modify it.
func (p *Pipeline) Artifact() *Artifact { return p.art }

// Kind returns KindClassifier or KindRegressor.
func (p *Pipeline) Kind() string { return p.art.Kind }

// Version returns the artifact version, "unknown" when unset.
func (p *Pipeline) Version() string {
	if p.art.Version == "" {
		return "unknown"
	}
	return p.art.Version
}

// Path returns the file the pipeline was loaded from.
func (p *Pipeline) Path() string { return p.path }

// FeatureNames returns the training feature order.
func (p *Pipeline) FeatureNames() []string {
	out := make([]string, len(p.art.FeatureNames))
	copy(out, p.art.FeatureNames)
	return out
}

// TreeCount returns the number of trees in the forest.
func (p *Pipeline) TreeCount() int { return len(p.art.Trees) }

// Metrics returns the training metrics stored with the artifact.
func (p *Pipeline) Metrics() map[string]float64 {
	out := make(map[string]float64, len(p.art.Metrics))
	for k, v := range p.art.Metrics {
		out[k] = v
	}
	return out
}

// TrainedAt returns the training time, falling back to the artifact's
// modification time.
func (p *Pipeline) TrainedAt() time.Time {
	if p.art.TrainedAt != nil {
		return *p.art.TrainedAt
	}
	return p.modifiedAt
}

// IsCategorical reports whether the feature at position i is encoded.
func (p *Pipeline) IsCategorical(i int) bool { return p.encoders[i] != nil }

// transform encodes an aligned row into the numeric vector the trees expect.
// Values must be non-nil; the caller checks for missing values first.
func (p *Pipeline) transform(row []any) ([]float64, error) {
	x := make([]float64, len(row))
	var invalid []string

	for i, v := range row {
		if codes := p.encoders[i]; codes != nil {
			code, ok := codes[categoryString(v)]
			if !ok {
				code = unknownCategory
			}
			x[i] = code
			continue
		}

		f, ok := toFloat(v)
		if !ok {
			invalid = append(invalid, p.art.FeatureNames[i])
			continue
		}
		x[i] = f
	}

	if len(invalid) > 0 {
		return nil, &SchemaMismatchError{Invalid: invalid}
	}
	return x, nil
}

// predictProba returns the forest's probability of the approval class.
func (p *Pipeline) predictProba(x []float64) float64 {
	var total float64
	for i := range p.art.Trees {
		t := &p.art.Trees[i]
		weights := t.Value[t.leaf(x)]
		total += weights[p.positive] / sum(weights)
	}
	return total / float64(len(p.art.Trees))
}

// predictValue returns the forest's mean regression output.
func (p *Pipeline) predictValue(x []float64) float64 {
	var total float64
	for i := range p.art.Trees {
		t := &p.art.Trees[i]
		total += t.Value[t.leaf(x)][0]
	}
	return total / float64(len(p.art.Trees))
}

func categoryString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

// toFloat converts the numeric value types a record may carry.
func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(x, 64)
		return f, err == nil && !math.IsNaN(f)
	default:
		return 0, false
	}
}

// isNull reports whether v counts as a missing value.
func isNull(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(x)
	case float32:
		return math.IsNaN(float64(x))
	default:
		return false
	}
}
