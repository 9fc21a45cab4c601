package featurefit

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// Estimator derives a goodness-of-fit score per feature by fitting
// one-vs-rest logistic regressions over the embedding matrix. The inverse
// regularization strength C is selected first, by leave-one-concept-out
// ranking margins over a sample of features; every feature is then refitted
// at the chosen C and scored by in-sample F1.
type Estimator struct {
	cfg    Config
	logger *zap.Logger
}

// NewEstimator constructs an estimator for the given configuration.
func NewEstimator(cfg Config, logger *zap.Logger) *Estimator {
	cfg.ApplyDefaults()
	return &Estimator{cfg: cfg, logger: logger}
}

// AnalyzeFeatures computes fit metrics for all features. The returned slice
// is ordered by feature name; features with no usable positive concepts keep
// Valid=false instead of a numeric score.
func (e *Estimator) AnalyzeFeatures(ctx context.Context, features map[string]*Feature, vocab []string, embeddings *mat.Dense) ([]FeatureScore, error) {
	word2idx := make(map[string]int, len(vocab))
	for i, w := range vocab {
		word2idx[w] = i
	}

	featureNames := make([]string, 0, len(features))
	for name := range features {
		featureNames = append(featureNames, name)
	}
	sort.Strings(featureNames)

	rows, _ := embeddings.Dims()
	indicator, counts := buildIndicator(features, featureNames, word2idx, rows, e.cfg.MinPositives)

	seed := e.cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	bestC, err := e.selectC(ctx, embeddings, indicator, counts, rng)
	if err != nil {
		return nil, err
	}
	if e.logger != nil {
		e.logger.Info("selected regularization strength", zap.Float64("C", bestC))
	}

	return e.fitAll(ctx, embeddings, indicator, counts, featureNames, bestC)
}

// buildIndicator assembles the concepts×features indicator matrix. Features
// with fewer than minPositives concepts present in the vocabulary keep an
// all-zero column and are skipped downstream.
func buildIndicator(features map[string]*Feature, featureNames []string, word2idx map[string]int, rows, minPositives int) (*mat.Dense, []int) {
	indicator := mat.NewDense(rows, len(featureNames), nil)
	counts := make([]int, len(featureNames))
	for fIdx, name := range featureNames {
		feat := features[name]
		var present []int
		for concept := range feat.Concepts {
			if idx, ok := word2idx[concept]; ok {
				present = append(present, idx)
			}
		}
		if len(present) < minPositives {
			continue
		}
		for _, cIdx := range present {
			indicator.Set(cIdx, fIdx, 1)
		}
		counts[fIdx] = len(present)
	}
	return indicator, counts
}

// cGrid returns the fixed logarithmic grid of candidate C values.
func cGrid() []float64 {
	var grid []float64
	for exp := -5; exp <= 0; exp++ {
		grid = append(grid, math.Pow(10, float64(exp)))
	}
	for exp := -5; exp <= 0; exp++ {
		grid = append(grid, 5*math.Pow(10, float64(exp)))
	}
	return grid
}

type loocvTask struct {
	c    float64
	fIdx int
	seed int64
}

// selectC runs the LOOCV trials for every (C, sampled feature) pair on a
// bounded worker pool and returns the C with the best mean ranking margin.
// Ties break toward stronger regularization (smaller C). Any task failure
// aborts the whole selection.
func (e *Estimator) selectC(ctx context.Context, x *mat.Dense, indicator *mat.Dense, counts []int, rng *rand.Rand) (float64, error) {
	rows, _ := x.Dims()

	// Only features that actually have both classes can be held out.
	var usable []int
	for fIdx, n := range counts {
		if n > 0 && n < rows {
			usable = append(usable, fIdx)
		}
	}
	if len(usable) == 0 {
		return 0, fmt.Errorf("no features with at least %d positive concepts", e.cfg.MinPositives)
	}

	var tasks []loocvTask
	for _, c := range cGrid() {
		sample := e.cfg.SampleFeatures
		if sample > len(usable) {
			sample = len(usable)
		}
		for _, pick := range rng.Perm(len(usable))[:sample] {
			tasks = append(tasks, loocvTask{c: c, fIdx: usable[pick], seed: rng.Int63()})
		}
	}

	bar := progressbar.Default(int64(len(tasks)), "loocv")
	var (
		mu      sync.Mutex
		margins = make(map[float64][]float64)
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)
	for _, task := range tasks {
		task := task
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			scores, err := e.loocvFeature(x, indicator, task)
			if err != nil {
				return fmt.Errorf("loocv C=%g feature %d: %w", task.c, task.fIdx, err)
			}
			mu.Lock()
			margins[task.c] = append(margins[task.c], scores...)
			mu.Unlock()
			_ = bar.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	bestC := 0.0
	bestMean := math.Inf(-1)
	for _, c := range cGrid() {
		scores := margins[c]
		if len(scores) == 0 {
			continue
		}
		var sum float64
		for _, s := range scores {
			sum += s
		}
		mean := sum / float64(len(scores))
		if mean > bestMean || (mean == bestMean && c < bestC) {
			bestMean = mean
			bestC = c
		}
	}
	if bestC == 0 {
		return 0, fmt.Errorf("no LOOCV scores collected across %d tasks", len(tasks))
	}
	return bestC, nil
}

// loocvFeature evaluates one (C, feature) pair: each sampled positive concept
// is held out in turn, the classifier is refitted on the remainder, and the
// held-out concept is scored by its log-probability margin over the
// negatives. The returned score list is a pure value with no shared state.
func (e *Estimator) loocvFeature(x *mat.Dense, indicator *mat.Dense, task loocvTask) ([]float64, error) {
	rows, cols := x.Dims()

	y := make([]float64, rows)
	var posIdxs, negIdxs []int
	for i := 0; i < rows; i++ {
		y[i] = indicator.At(i, task.fIdx)
		if y[i] > 0.5 {
			posIdxs = append(posIdxs, i)
		} else {
			negIdxs = append(negIdxs, i)
		}
	}

	rng := rand.New(rand.NewSource(task.seed))
	n := e.cfg.ConceptSamples
	if n > len(posIdxs) {
		n = len(posIdxs)
	}
	held := rng.Perm(len(posIdxs))[:n]

	scores := make([]float64, 0, n)
	for _, pick := range held {
		holdOut := posIdxs[pick]

		xLoo := mat.NewDense(rows-1, cols, nil)
		yLoo := make([]float64, 0, rows-1)
		r := 0
		for i := 0; i < rows; i++ {
			if i == holdOut {
				continue
			}
			xLoo.SetRow(r, x.RawRowView(i))
			yLoo = append(yLoo, y[i])
			r++
		}

		clf := NewLogReg(task.c)
		if err := clf.Fit(xLoo, yLoo); err != nil {
			return nil, err
		}
		probs, err := clf.Proba(x)
		if err != nil {
			return nil, err
		}
		scores = append(scores, rankingMargin(probs, holdOut, negIdxs))
	}
	return scores, nil
}

// fitAll refits one classifier per labeled feature at the chosen C on the
// full concept set and scores it by in-sample F1. Features whose column is
// degenerate (no positives, or nothing but positives) are skipped with an
// absent score.
func (e *Estimator) fitAll(ctx context.Context, x *mat.Dense, indicator *mat.Dense, counts []int, featureNames []string, bestC float64) ([]FeatureScore, error) {
	rows, _ := x.Dims()
	results := make([]FeatureScore, len(featureNames))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)
	for fIdx, name := range featureNames {
		results[fIdx] = FeatureScore{Name: name, Concepts: counts[fIdx]}
		if counts[fIdx] == 0 || counts[fIdx] == rows {
			continue
		}
		fIdx, name := fIdx, name
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			y := make([]float64, rows)
			for i := 0; i < rows; i++ {
				y[i] = indicator.At(i, fIdx)
			}
			clf := NewLogReg(bestC)
			if err := clf.Fit(x, y); err != nil {
				return fmt.Errorf("fit feature %s: %w", name, err)
			}
			pred, err := clf.Predict(x)
			if err != nil {
				return fmt.Errorf("predict feature %s: %w", name, err)
			}
			results[fIdx].Score = F1Score(y, pred)
			results[fIdx].Valid = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
