package featurefit

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// groupings maps a report section name to the function that assigns a scored
// feature to a group. Both keys are independent: every feature lands in one
// group per section.
func groupings(features map[string]*Feature) map[string]func(name string) string {
	return map[string]func(name string) string{
		"br_label": func(name string) string {
			if feat, ok := features[name]; ok {
				return feat.BRLabel
			}
			return ""
		},
		"first_word": func(name string) string {
			return strings.SplitN(name, "_", 2)[0]
		},
	}
}

// WriteReport writes the per-feature score rows followed by one summary table
// per grouping key, and returns the median score per BR label. Only features
// with a defined score participate; the caller passes them sorted the way the
// rows should appear.
func WriteReport(w io.Writer, features map[string]*Feature, scored []FeatureScore) (map[string]float64, error) {
	groupFns := groupings(features)
	groupNames := make([]string, 0, len(groupFns))
	for name := range groupFns {
		groupNames = append(groupNames, name)
	}
	sort.Strings(groupNames)

	type sample struct {
		score    float64
		concepts float64
	}
	groups := make(map[string]map[string][]sample, len(groupFns))
	for _, g := range groupNames {
		groups[g] = make(map[string][]sample)
	}

	for _, fs := range scored {
		if !fs.Valid {
			continue
		}
		brLabel := ""
		if feat, ok := features[fs.Name]; ok {
			brLabel = feat.BRLabel
		}
		if _, err := fmt.Fprintf(w, "%40s\t%25s\t%d\t%f\n", fs.Name, brLabel, fs.Concepts, fs.Score); err != nil {
			return nil, fmt.Errorf("write feature row: %w", err)
		}
		for _, g := range groupNames {
			key := groupFns[g](fs.Name)
			groups[g][key] = append(groups[g][key], sample{score: fs.Score, concepts: float64(fs.Concepts)})
		}
	}

	fcatMedians := make(map[string]float64)
	for _, g := range groupNames {
		if _, err := fmt.Fprintf(w, "\n\nGrouping by %s:\n", g); err != nil {
			return nil, fmt.Errorf("write group header: %w", err)
		}

		summaries := make([]GroupSummary, 0, len(groups[g]))
		for key, samples := range groups[g] {
			scores := make([]float64, len(samples))
			var conceptSum float64
			for i, s := range samples {
				scores[i] = s.score
				conceptSum += s.concepts
			}
			sort.Float64s(scores)
			summaries = append(summaries, GroupSummary{
				Name:         key,
				Count:        len(samples),
				MeanScore:    stat.Mean(scores, nil),
				Min:          scores[0],
				Median:       stat.Quantile(0.5, stat.LinInterp, scores, nil),
				Max:          scores[len(scores)-1],
				MeanConcepts: conceptSum / float64(len(samples)),
			})
		}
		sort.Slice(summaries, func(i, j int) bool {
			if summaries[i].Median == summaries[j].Median {
				return summaries[i].Name < summaries[j].Name
			}
			return summaries[i].Median < summaries[j].Median
		})

		if _, err := fmt.Fprintf(w, "%25s\tmu\tn\tmed\t\tmin\tmean\tmax\n", "group"); err != nil {
			return nil, fmt.Errorf("write table header: %w", err)
		}
		if _, err := fmt.Fprintln(w, strings.Repeat("=", 100)); err != nil {
			return nil, fmt.Errorf("write table rule: %w", err)
		}
		for _, s := range summaries {
			_, err := fmt.Fprintf(w, "%25s\t%.2f\t%3d\t%.5f\t\t%.5f\t%.5f\t%.5f\n",
				s.Name, s.MeanConcepts, s.Count, s.Median, s.Min, s.MeanScore, s.Max)
			if err != nil {
				return nil, fmt.Errorf("write table row: %w", err)
			}
			if g == "br_label" {
				fcatMedians[s.Name] = s.Median
			}
		}
	}
	return fcatMedians, nil
}

// WriteFeaturePearsonStats appends a table of per-feature variance and mean
// of both correlation measures, restricted to features with more than
// minConcepts concepts present in the vocabulary.
func WriteFeaturePearsonStats(w io.Writer, features map[string]*Feature, vocab []string, pearson1, pearson2 map[string]float64, minConcepts int) error {
	inVocab := make(map[string]struct{}, len(vocab))
	for _, c := range vocab {
		inVocab[c] = struct{}{}
	}

	names := make([]string, 0, len(features))
	for name := range features {
		names = append(names, name)
	}
	sort.Strings(names)

	if _, err := fmt.Fprintf(w, "\n\nfeature\tpvar\tpmean\twvar\twmean\n"); err != nil {
		return fmt.Errorf("write pearson header: %w", err)
	}
	for _, name := range names {
		feat := features[name]
		var ps, ws []float64
		for concept := range feat.Concepts {
			if _, ok := inVocab[concept]; !ok {
				continue
			}
			ps = append(ps, pearson1[concept])
			ws = append(ws, pearson2[concept])
		}
		if len(ps) <= minConcepts {
			continue
		}
		_, err := fmt.Fprintf(w, "%s\t%f\t%f\t%f\t%f\n",
			name, popVariance(ps), stat.Mean(ps, nil), popVariance(ws), stat.Mean(ws, nil))
		if err != nil {
			return fmt.Errorf("write pearson row: %w", err)
		}
	}
	return nil
}

// popVariance is the population variance (normalized by n, not n-1).
func popVariance(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	mean := stat.Mean(xs, nil)
	return stat.MomentAbout(2, xs, mean, nil)
}
