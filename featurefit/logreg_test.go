package featurefit

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestLogRegSeparableData(t *testing.T) {
	// Positives live on the positive side of the first axis.
	x := mat.NewDense(6, 2, []float64{
		2, 0.1,
		1.5, -0.2,
		1, 0.3,
		-2, 0.1,
		-1.5, -0.1,
		-1, 0.2,
	})
	y := []float64{1, 1, 1, 0, 0, 0}

	clf := NewLogReg(1.0)
	require.NoError(t, clf.Fit(x, y))

	pred, err := clf.Predict(x)
	require.NoError(t, err)
	assert.Equal(t, y, pred)

	probs, err := clf.Proba(x)
	require.NoError(t, err)
	for i, p := range probs {
		assert.GreaterOrEqual(t, p, 0.0, "row %d", i)
		assert.LessOrEqual(t, p, 1.0, "row %d", i)
	}
	assert.Greater(t, probs[0], probs[3])
}

func TestLogRegRegularizationShrinksWeights(t *testing.T) {
	x := mat.NewDense(4, 1, []float64{3, 2, -2, -3})
	y := []float64{1, 1, 0, 0}

	loose := NewLogReg(10)
	require.NoError(t, loose.Fit(x, y))
	tight := NewLogReg(1e-4)
	require.NoError(t, tight.Fit(x, y))

	assert.Greater(t, math.Abs(loose.weights[0]), math.Abs(tight.weights[0]))
}

func TestLogRegSingleClass(t *testing.T) {
	x := mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 6})

	err := NewLogReg(1.0).Fit(x, []float64{1, 1, 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "single class")

	err = NewLogReg(1.0).Fit(x, []float64{0, 0, 0})
	require.Error(t, err)
}

func TestLogRegInvalidInputs(t *testing.T) {
	x := mat.NewDense(2, 2, []float64{1, 2, 3, 4})

	assert.Error(t, NewLogReg(0).Fit(x, []float64{0, 1}))
	assert.Error(t, NewLogReg(1).Fit(x, []float64{0, 1, 1}))

	_, err := NewLogReg(1).Proba(x)
	assert.Error(t, err)
}

func TestF1Score(t *testing.T) {
	assert.Equal(t, 1.0, F1Score([]float64{1, 0, 1}, []float64{1, 0, 1}))
	assert.Equal(t, 0.0, F1Score([]float64{1, 1, 0}, []float64{0, 0, 0}))
	assert.Equal(t, 0.0, F1Score([]float64{0, 0, 0}, []float64{1, 1, 1}))

	// One hit, one miss, one false alarm: precision = recall = 1/2.
	got := F1Score([]float64{1, 1, 0, 0}, []float64{1, 0, 1, 0})
	assert.InDelta(t, 0.5, got, 1e-12)
}

func TestRankingMargin(t *testing.T) {
	probs := []float64{0.9, 0.1, 0.2}
	got := rankingMargin(probs, 0, []int{1, 2})
	want := math.Log(0.9) - (math.Log(0.1)+math.Log(0.2))/2
	assert.InDelta(t, want, got, 1e-12)

	// Without negatives only the positive log-probability remains.
	assert.InDelta(t, math.Log(0.9), rankingMargin(probs, 0, nil), 1e-12)

	// A confident positive beats an uncertain one.
	assert.Greater(t,
		rankingMargin([]float64{0.95, 0.1}, 0, []int{1}),
		rankingMargin([]float64{0.55, 0.1}, 0, []int{1}))
}
