package ml

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"loan-approval/internal/common"

	"github.com/rs/zerolog/log"
)

// Models holds the two loaded stages.
type Models struct {
	Dir        string
	Classifier *Pipeline
	Regressor  *Pipeline
	LoadedAt   time.Time
}

// LoadOptions selects the artifact files inside the models directory.
type LoadOptions struct {
	ClassifierFile string
	RegressorFile  string
	Metrics        MetricsInterface
}

// ModelInfo describes one loaded artifact.
type ModelInfo struct {
	Kind      string             `json:"kind"`
	Version   string             `json:"version"`
	Path      string             `json:"path"`
	TrainedAt time.Time          `json:"trained_at"`
	Features  []string           `json:"features"`
	Trees     int                `json:"trees"`
	Metrics   map[string]float64 `json:"metrics,omitempty"`
}

// LoadModels loads the classifier and the regressor from dir. Any failure is
// returned as a *ModelLoadError; there is no retry.
func LoadModels(dir string, opts LoadOptions) (*Models, error) {
	if opts.ClassifierFile == "" {
		opts.ClassifierFile = common.DefaultClassifierFile
	}
	if opts.RegressorFile == "" {
		opts.RegressorFile = common.DefaultRegressorFile
	}

	clf, err := LoadPipeline(filepath.Join(dir, opts.ClassifierFile), KindClassifier)
	if err != nil {
		return nil, err
	}
	reg, err := LoadPipeline(filepath.Join(dir, opts.RegressorFile), KindRegressor)
	if err != nil {
		return nil, err
	}

	m := &Models{
		Dir:        dir,
		Classifier: clf,
		Regressor:  reg,
		LoadedAt:   time.Now(),
	}

	if opts.Metrics != nil {
		for _, p := range []*Pipeline{clf, reg} {
			if trained := p.TrainedAt(); !trained.IsZero() {
				opts.Metrics.ModelAgeSet(p.Kind(), time.Since(trained).Seconds())
			}
		}
	}

	return m, nil
}

// LoadPipeline reads and validates a single artifact of the given kind.
func LoadPipeline(path, kind string) (*Pipeline, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &ModelLoadError{Path: path, Err: err}
	}
	if info.IsDir() {
		return nil, &ModelLoadError{Path: path, Err: fmt.Errorf("is a directory")}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ModelLoadError{Path: path, Err: err}
	}

	art, err := DecodeArtifact(data)
	if err != nil {
		return nil, &ModelLoadError{Path: path, Err: err}
	}
	if art.Kind != kind {
		return nil, &ModelLoadError{Path: path, Err: fmt.Errorf("expected %s artifact, got %s", kind, art.Kind)}
	}

	p := newPipeline(art, path, info.ModTime())

	log.Info().
		Str("model_path", path).
		Str("kind", p.Kind()).
		Str("version", p.Version()).
		Int("trees", p.TreeCount()).
		Int("features", len(art.FeatureNames)).
		Time("trained_at", p.TrainedAt()).
		Msg("model loaded")

	return p, nil
}

// Info describes both loaded artifacts.
func (m *Models) Info() []ModelInfo {
	out := make([]ModelInfo, 0, 2)
	for _, p := range []*Pipeline{m.Classifier, m.Regressor} {
		out = append(out, ModelInfo{
			Kind:      p.Kind(),
			Version:   p.Version(),
			Path:      p.Path(),
			TrainedAt: p.TrainedAt(),
			Features:  p.FeatureNames(),
			Trees:     p.TreeCount(),
			Metrics:   p.Metrics(),
		})
	}
	return out
}
