package featurefit

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

// LogReg is an L2-regularized binary logistic regression without an
// intercept term. Class weights are balanced so that sparse positive sets do
// not drown in the negatives. The weight vector is found by minimizing the
// penalized negative log-likelihood with L-BFGS.
type LogReg struct {
	// C is the inverse regularization strength; smaller values regularize
	// harder. Must be positive.
	C float64

	weights []float64
}

// NewLogReg constructs an unfitted classifier with the given C.
func NewLogReg(c float64) *LogReg {
	return &LogReg{C: c}
}

// Fit estimates the weight vector from the rows of x and binary labels y
// (0 or 1). Degenerate label sets (all positive or all negative) are
// rejected since balanced weighting is undefined for them.
func (l *LogReg) Fit(x *mat.Dense, y []float64) error {
	rows, cols := x.Dims()
	if rows != len(y) {
		return fmt.Errorf("logreg: %d rows but %d labels", rows, len(y))
	}
	if l.C <= 0 {
		return errors.New("logreg: C must be positive")
	}

	var nPos, nNeg int
	for _, v := range y {
		if v > 0.5 {
			nPos++
		} else {
			nNeg++
		}
	}
	if nPos == 0 || nNeg == 0 {
		return errors.New("logreg: labels contain a single class")
	}

	// Balanced class weights: n / (2 * class count).
	wPos := float64(rows) / (2 * float64(nPos))
	wNeg := float64(rows) / (2 * float64(nNeg))

	// Signed labels and per-sample weights for the likelihood terms.
	signs := make([]float64, rows)
	sampleW := make([]float64, rows)
	for i, v := range y {
		if v > 0.5 {
			signs[i] = 1
			sampleW[i] = wPos
		} else {
			signs[i] = -1
			sampleW[i] = wNeg
		}
	}

	lambda := 1 / l.C
	problem := optimize.Problem{
		Func: func(w []float64) float64 {
			loss := 0.5 * lambda * floats.Dot(w, w)
			for i := 0; i < rows; i++ {
				margin := signs[i] * floats.Dot(x.RawRowView(i), w)
				loss += sampleW[i] * logistic(-margin)
			}
			return loss
		},
		Grad: func(grad, w []float64) {
			for j := range grad {
				grad[j] = lambda * w[j]
			}
			for i := 0; i < rows; i++ {
				row := x.RawRowView(i)
				margin := signs[i] * floats.Dot(row, w)
				scale := -signs[i] * sampleW[i] * sigmoid(-margin)
				floats.AddScaled(grad, scale, row)
			}
		},
	}

	settings := &optimize.Settings{
		GradientThreshold: 1e-6,
		MajorIterations:   250,
	}
	result, err := optimize.Minimize(problem, make([]float64, cols), settings, &optimize.LBFGS{})
	if err != nil {
		return fmt.Errorf("logreg: minimize: %w", err)
	}
	l.weights = result.X
	return nil
}

// Proba returns P(y=1) for every row of x.
func (l *LogReg) Proba(x *mat.Dense) ([]float64, error) {
	if l.weights == nil {
		return nil, errors.New("logreg: not fitted")
	}
	rows, cols := x.Dims()
	if cols != len(l.weights) {
		return nil, fmt.Errorf("logreg: %d columns but %d weights", cols, len(l.weights))
	}
	out := make([]float64, rows)
	for i := 0; i < rows; i++ {
		out[i] = sigmoid(floats.Dot(x.RawRowView(i), l.weights))
	}
	return out, nil
}

// Predict returns 0/1 labels for every row of x at the 0.5 threshold.
func (l *LogReg) Predict(x *mat.Dense) ([]float64, error) {
	probs, err := l.Proba(x)
	if err != nil {
		return nil, err
	}
	for i, p := range probs {
		if p >= 0.5 {
			probs[i] = 1
		} else {
			probs[i] = 0
		}
	}
	return probs, nil
}

// logistic computes log(1+exp(a)) without overflowing for large a.
func logistic(a float64) float64 {
	if a > 0 {
		return a + math.Log1p(math.Exp(-a))
	}
	return math.Log1p(math.Exp(a))
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}
