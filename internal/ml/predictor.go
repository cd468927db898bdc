package ml

import (
	"context"
	"fmt"
	"math"
	"time"

	"loan-approval/internal/applicant"
	"loan-approval/internal/common"

	"github.com/rs/zerolog/log"
)

// Result is the outcome of a two-stage prediction.
type Result struct {
	Approved          bool
	Probability       float64
	Threshold         float64
	RecommendedValue  *float64 // nil unless approved
	ClassifierVersion string
	RegressorVersion  string
}

// Predictor runs the classifier and, for approved applicants, the regressor.
type Predictor struct {
	classifier *Pipeline
	regressor  *Pipeline
	threshold  float64
	metrics    MetricsInterface
}

// NewPredictor creates a predictor over loaded models. An applicant is
// approved when the classifier probability is strictly above threshold.
func NewPredictor(models *Models, threshold float64, metrics MetricsInterface) (*Predictor, error) {
	if models == nil || models.Classifier == nil || models.Regressor == nil {
		return nil, fmt.Errorf("both classifier and regressor must be loaded")
	}
	if threshold <= 0 || threshold >= 1 || math.IsNaN(threshold) {
		return nil, fmt.Errorf("approval threshold must be between 0 and 1, got %f", threshold)
	}
	return &Predictor{
		classifier: models.Classifier,
		regressor:  models.Regressor,
		threshold:  threshold,
		metrics:    metrics,
	}, nil
}

// Threshold returns the approval threshold.
func (p *Predictor) Threshold() float64 { return p.threshold }

// Predict aligns rec to the classifier schema, rejects null values, scores the
// applicant and, when approved, asks the regressor for a recommended value.
func (p *Predictor) Predict(ctx context.Context, rec applicant.Record) (Result, error) {
	start := time.Now()
	defer func() {
		if p.metrics != nil {
			p.metrics.LatencyObserve(time.Since(start).Seconds())
		}
	}()

	res, err := p.predict(ctx, rec)
	if err != nil {
		if p.metrics != nil {
			p.metrics.FailuresInc(ErrorKind(err))
		}
		return Result{}, err
	}

	if p.metrics != nil {
		p.metrics.PredictionsInc()
		p.metrics.ProbabilityObserve(res.Probability)
		if res.Approved {
			p.metrics.ApprovalsInc()
			p.metrics.RecommendedValueObserve(*res.RecommendedValue)
		} else {
			p.metrics.RejectionsInc()
		}
	}
	return res, nil
}

func (p *Predictor) predict(ctx context.Context, rec applicant.Record) (Result, error) {
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	default:
	}

	names := p.classifier.FeatureNames()
	row, err := align(rec, names)
	if err != nil {
		return Result{}, err
	}
	if err := checkMissing(names, row); err != nil {
		return Result{}, err
	}

	x, err := p.classifier.transform(row)
	if err != nil {
		return Result{}, err
	}

	prob := p.classifier.predictProba(x)
	res := Result{
		Approved:          prob > p.threshold,
		Probability:       prob,
		Threshold:         p.threshold,
		ClassifierVersion: p.classifier.Version(),
		RegressorVersion:  p.regressor.Version(),
	}

	if !res.Approved {
		log.Debug().Float64("probability", prob).Msg("applicant rejected")
		return res, nil
	}

	value, err := p.recommend(names, row)
	if err != nil {
		return Result{}, err
	}
	res.RecommendedValue = &value

	log.Debug().
		Float64("probability", prob).
		Float64("recommended_value", value).
		Msg("applicant approved")

	return res, nil
}

// recommend runs the regression stage on the aligned classifier row extended
// with the approval flag.
func (p *Predictor) recommend(names []string, row []any) (float64, error) {
	regRec := make(applicant.Record, len(names)+1)
	for i, name := range names {
		regRec[name] = row[i]
	}
	regRec[common.LoanStatusFeature] = common.LoanStatusApprove

	regRow, err := align(regRec, p.regressor.FeatureNames())
	if err != nil {
		return 0, fmt.Errorf("regressor schema: %w", err)
	}
	x, err := p.regressor.transform(regRow)
	if err != nil {
		return 0, fmt.Errorf("regressor schema: %w", err)
	}

	value := p.regressor.predictValue(x)
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("regressor produced non-finite value %v", value)
	}
	return value, nil
}

// align selects the record's values in feature order. Every absent feature is
// reported in a single *SchemaMismatchError; extra fields are ignored.
func align(rec applicant.Record, names []string) ([]any, error) {
	row := make([]any, len(names))
	var missing []string
	for i, name := range names {
		v, ok := rec[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		row[i] = v
	}
	if len(missing) > 0 {
		return nil, &SchemaMismatchError{Missing: missing}
	}
	return row, nil
}

func checkMissing(names []string, row []any) error {
	var fields []string
	for i, v := range row {
		if isNull(v) {
			fields = append(fields, names[i])
		}
	}
	if len(fields) > 0 {
		return &MissingValueError{Fields: fields}
	}
	return nil
}
