package app

import (
	"fmt"
	"image/color"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/lucy3/Graphs-Embeddings/featurefit"
	"github.com/lucy3/Graphs-Embeddings/internal/plots"
)

// minFigureConcepts filters domains and features down to ones with enough
// concepts to position reliably.
const minFigureConcepts = 7

// highlightThreshold marks the low-fit band whose concepts get annotated and
// colored by domain on the unified graph.
const highlightThreshold = 0.2

// conceptPoints positions every vocabulary concept by its two correlation
// values with the median feature weight as the third dimension. Concepts in
// one of the highlighted domains that score below the threshold carry that
// domain's color. It also returns the raw per-concept medians keyed by
// concept for the swarm chart. Both correlation tables must cover every
// plotted concept; a missing entry fails the run rather than plotting at 0.
func conceptPoints(features map[string]*featurefit.Feature, scored []featurefit.FeatureScore, vocab []string, domains map[string][]string, pearson1, pearson2 map[string]float64) ([]plots.ConceptPoint, map[string]float64, error) {
	featureMap := make(map[string]float64, len(scored))
	for _, fs := range scored {
		featureMap[fs.Name] = fs.Score
	}
	highlight := highlightColors(domains)

	pts := make([]plots.ConceptPoint, 0, len(vocab))
	fits := make(map[string]float64, len(vocab))
	for _, concept := range vocab {
		var weights []float64
		for _, feat := range features {
			if !feat.HasConcept(concept) {
				continue
			}
			if w, ok := featureMap[feat.Name]; ok {
				weights = append(weights, w)
			}
		}
		if len(weights) == 0 {
			continue
		}
		p1, ok := pearson1[concept]
		if !ok {
			return nil, nil, fmt.Errorf("concept %q missing from the first correlation table", concept)
		}
		p2, ok := pearson2[concept]
		if !ok {
			return nil, nil, fmt.Errorf("concept %q missing from the second correlation table", concept)
		}
		fit := median(weights)
		fits[concept] = fit

		var hl color.Color
		if fit < highlightThreshold {
			hl = highlight[concept]
		}
		pts = append(pts, plots.ConceptPoint{
			Label:     concept,
			X:         p1,
			Y:         p2,
			Fit:       fit,
			Highlight: hl,
		})
	}
	return pts, fits, nil
}

// highlightColors assigns the fixed palette to the largest domains and maps
// each of their concepts to that color.
func highlightColors(domains map[string][]string) map[string]color.Color {
	palette := plots.DomainPalette()
	names := make([]string, 0, len(domains))
	for name := range domains {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if len(domains[names[i]]) == len(domains[names[j]]) {
			return names[i] < names[j]
		}
		return len(domains[names[i]]) > len(domains[names[j]])
	})
	if len(names) > len(palette) {
		names = names[:len(palette)]
	}

	out := make(map[string]color.Color)
	for i, name := range names {
		for _, concept := range domains[name] {
			out[concept] = palette[i]
		}
	}
	return out
}

// domainPoints aggregates each sufficiently large domain into one point:
// mean and variance of both correlation measures over its concepts, and the
// median and variance of the feature weights its concepts participate in.
func domainPoints(features map[string]*featurefit.Feature, scored []featurefit.FeatureScore, domains map[string][]string, pearson1, pearson2 map[string]float64) []plots.DomainPoint {
	featureMap := make(map[string]float64, len(scored))
	for _, fs := range scored {
		featureMap[fs.Name] = fs.Score
	}
	p1Means, p1Vars := featurefit.DomainAverages(pearson1, domains)
	p2Means, p2Vars := featurefit.DomainAverages(pearson2, domains)

	names := make([]string, 0, len(domains))
	for name, concepts := range domains {
		if len(concepts) > minFigureConcepts {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	pts := make([]plots.DomainPoint, 0, len(names))
	for _, name := range names {
		var weights []float64
		for _, feat := range features {
			w, ok := featureMap[feat.Name]
			if !ok {
				continue
			}
			for _, concept := range domains[name] {
				if feat.HasConcept(concept) {
					weights = append(weights, w)
				}
			}
		}
		if len(weights) == 0 {
			continue
		}
		pts = append(pts, plots.DomainPoint{
			Label:  name,
			X:      p1Means[name],
			Y:      p2Means[name],
			Fit:    median(weights),
			XVar:   p1Vars[name],
			YVar:   p2Vars[name],
			FitVar: variance(weights),
		})
	}
	return pts
}

// domainScoreGroups collects the per-concept medians into one score list per
// domain for the swarm chart, and reports the mean within-domain variance.
func domainScoreGroups(conceptFits map[string]float64, domains map[string][]string) ([]string, [][]float64, float64) {
	conceptDomains := featurefit.ConceptDomains(domains)
	byDomain := make(map[string][]float64)
	for concept, fit := range conceptFits {
		for _, d := range conceptDomains[concept] {
			byDomain[d] = append(byDomain[d], fit)
		}
	}

	names := make([]string, 0, len(byDomain))
	for name := range byDomain {
		names = append(names, name)
	}
	sort.Strings(names)

	var kept []string
	var groups [][]float64
	var varSum float64
	for _, name := range names {
		vals := byDomain[name]
		sort.Float64s(vals)
		kept = append(kept, name)
		groups = append(groups, vals)
		varSum += variance(vals)
	}
	var avgVar float64
	if len(groups) > 0 {
		avgVar = varSum / float64(len(groups))
	}
	return kept, groups, avgVar
}

func median(xs []float64) float64 {
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	return stat.Quantile(0.5, stat.LinInterp, sorted, nil)
}

// variance is the population variance, matching the report statistics.
func variance(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	mean := stat.Mean(xs, nil)
	return stat.MomentAbout(2, xs, mean, nil)
}
