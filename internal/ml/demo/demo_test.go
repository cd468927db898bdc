package demo

import (
	"context"
	"path/filepath"
	"testing"

	"loan-approval/internal/applicant"
	"loan-approval/internal/ml"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteModels_LoadAndPredictSample(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteModels(dir, "", ""))

	models, err := ml.LoadModels(dir, ml.LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, Version, models.Classifier.Version())
	assert.Equal(t, 4, models.Classifier.TreeCount())
	assert.Equal(t, 3, models.Regressor.TreeCount())

	p, err := ml.NewPredictor(models, 0.60, nil)
	require.NoError(t, err)

	res, err := p.Predict(context.Background(), applicant.Sample())
	require.NoError(t, err)
	assert.InDelta(t, SampleProbability, res.Probability, 1e-9)
	assert.True(t, res.Approved)
	require.NotNil(t, res.RecommendedValue)
	assert.InDelta(t, SampleValue, *res.RecommendedValue, 1e-6)
}

func TestWriteModels_LowCreditRejected(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteModels(dir, "clf.json", "reg.json"))

	models, err := ml.LoadModels(dir, ml.LoadOptions{ClassifierFile: "clf.json", RegressorFile: "reg.json"})
	require.NoError(t, err)
	p, err := ml.NewPredictor(models, 0.60, nil)
	require.NoError(t, err)

	rec := applicant.Sample()
	rec[applicant.CibilScore] = 420

	res, err := p.Predict(context.Background(), rec)
	require.NoError(t, err)
	// (0.05 + 0.10 + 0.15 + 0.12) / 4
	assert.InDelta(t, 0.105, res.Probability, 1e-9)
	assert.False(t, res.Approved)
	assert.Nil(t, res.RecommendedValue)
}

func TestFlatten_PreOrder(t *testing.T) {
	names := []string{"a", "b"}
	tree := flatten(split("a", 1, leaf(1, 2), split("b", 2, leaf(3, 4), leaf(5, 6))), names)

	assert.Equal(t, []int{1, -1, 3, -1, -1}, tree.ChildrenLeft)
	assert.Equal(t, []int{2, -1, 4, -1, -1}, tree.ChildrenRight)
	assert.Equal(t, []int{0, -2, 1, -2, -2}, tree.Feature)
	assert.Equal(t, []float64{9, 12}, tree.Value[0])
	assert.Equal(t, []float64{8, 10}, tree.Value[2])
}

func TestCheckedInModelsMatchDemo(t *testing.T) {
	models, err := ml.LoadModels(filepath.Join("..", "..", "..", "models"), ml.LoadOptions{})
	require.NoError(t, err)

	p, err := ml.NewPredictor(models, 0.60, nil)
	require.NoError(t, err)
	res, err := p.Predict(context.Background(), applicant.Sample())
	require.NoError(t, err)

	assert.InDelta(t, SampleProbability, res.Probability, 1e-9)
	require.NotNil(t, res.RecommendedValue)
	assert.InDelta(t, SampleValue, *res.RecommendedValue, 1e-6)
	assert.Equal(t, Classifier().Trees, models.Classifier.Artifact().Trees)
	assert.Equal(t, Regressor().Trees, models.Regressor.Artifact().Trees)
}
