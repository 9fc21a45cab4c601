package featurefit

import "math"

// F1Score computes the harmonic mean of precision and recall for binary
// labels. With no predicted or no true positives the score is defined as 0,
// matching the convention the report format relies on.
func F1Score(truth, pred []float64) float64 {
	var tp, fp, fn float64
	for i := range truth {
		t := truth[i] > 0.5
		p := i < len(pred) && pred[i] > 0.5
		switch {
		case t && p:
			tp++
		case !t && p:
			fp++
		case t && !p:
			fn++
		}
	}
	if tp == 0 {
		return 0
	}
	precision := tp / (tp + fp)
	recall := tp / (tp + fn)
	return 2 * precision * recall / (precision + recall)
}

// rankingMargin scores a held-out positive against the negatives by the
// difference of log-probabilities: log p(positive) minus the mean log
// probability over the negative rows. Higher is better.
func rankingMargin(probs []float64, posIdx int, negIdxs []int) float64 {
	if len(negIdxs) == 0 {
		return math.Log(probs[posIdx])
	}
	var negSum float64
	for _, i := range negIdxs {
		negSum += math.Log(probs[i])
	}
	return math.Log(probs[posIdx]) - negSum/float64(len(negIdxs))
}
