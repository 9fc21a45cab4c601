package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucy3/Graphs-Embeddings/featurefit"
)

func figureFixture() (map[string]*featurefit.Feature, []featurefit.FeatureScore) {
	features := map[string]*featurefit.Feature{
		"low_fit": {Name: "low_fit",
			Concepts: map[string]struct{}{"robin": {}, "sparrow": {}}},
		"high_fit": {Name: "high_fit",
			Concepts: map[string]struct{}{"hammer": {}, "sparrow": {}}},
	}
	scored := []featurefit.FeatureScore{
		{Name: "low_fit", Score: 0.1, Valid: true},
		{Name: "high_fit", Score: 0.9, Valid: true},
	}
	return features, scored
}

func TestConceptPoints(t *testing.T) {
	features, scored := figureFixture()
	vocab := []string{"robin", "sparrow", "hammer", "uncovered"}
	domains := map[string][]string{"birds": {"robin", "sparrow"}}
	p1 := map[string]float64{"robin": 0.1, "sparrow": 0.2, "hammer": 0.3}
	p2 := map[string]float64{"robin": 0.4, "sparrow": 0.5, "hammer": 0.6}

	pts, fits, err := conceptPoints(features, scored, vocab, domains, p1, p2)
	require.NoError(t, err)

	// The concept with no scored features contributes nothing.
	require.Len(t, pts, 3)
	assert.NotContains(t, fits, "uncovered")

	byLabel := make(map[string]float64, len(pts))
	for _, pt := range pts {
		byLabel[pt.Label] = pt.Fit
	}
	assert.InDelta(t, 0.1, byLabel["robin"], 1e-12)
	assert.InDelta(t, 0.5, byLabel["sparrow"], 1e-12) // median of 0.1 and 0.9
	assert.InDelta(t, 0.9, byLabel["hammer"], 1e-12)

	// Only low-fit concepts inside a highlighted domain carry a color.
	for _, pt := range pts {
		switch pt.Label {
		case "robin":
			assert.NotNil(t, pt.Highlight)
		default:
			assert.Nil(t, pt.Highlight)
		}
	}
}

func TestConceptPointsMissingCorrelation(t *testing.T) {
	features, scored := figureFixture()
	vocab := []string{"robin", "sparrow", "hammer"}
	p1 := map[string]float64{"robin": 0.1, "sparrow": 0.2} // hammer uncovered
	p2 := map[string]float64{"robin": 0.4, "sparrow": 0.5, "hammer": 0.6}

	_, _, err := conceptPoints(features, scored, vocab, nil, p1, p2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hammer")

	// Same for the second table.
	p1["hammer"] = 0.3
	delete(p2, "sparrow")
	_, _, err = conceptPoints(features, scored, vocab, nil, p1, p2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sparrow")
}

func TestHighlightColorsLargestDomains(t *testing.T) {
	domains := map[string][]string{
		"d1": {"a", "b", "c"},
		"d2": {"d", "e"},
		"d3": {"f"},
		"d4": {"g"},
		"d5": {"h"},
		"d6": {"i"}, // six domains, five palette slots
	}
	colors := highlightColors(domains)

	assert.Contains(t, colors, "a")
	assert.Contains(t, colors, "d")
	// The five largest (ties broken by name) win the palette; d6 loses out.
	assert.NotContains(t, colors, "i")
}

func TestDomainPoints(t *testing.T) {
	features, scored := figureFixture()
	big := []string{"robin", "sparrow", "hammer", "c4", "c5", "c6", "c7", "c8"}
	domains := map[string][]string{
		"big":   big,
		"small": {"robin"},
	}
	p1 := map[string]float64{}
	p2 := map[string]float64{}
	for i, c := range big {
		p1[c] = float64(i) * 0.1
		p2[c] = 1 - float64(i)*0.1
	}

	pts := domainPoints(features, scored, domains, p1, p2)

	// Domains at or below the concept floor are dropped.
	require.Len(t, pts, 1)
	pt := pts[0]
	assert.Equal(t, "big", pt.Label)
	assert.Greater(t, pt.XVar, 0.0)
	assert.Greater(t, pt.FitVar, 0.0)
	// Weights: low_fit twice (robin, sparrow), high_fit twice (hammer,
	// sparrow); the median sits between the two scores.
	assert.InDelta(t, 0.5, pt.Fit, 1e-12)
}

func TestDomainScoreGroups(t *testing.T) {
	fits := map[string]float64{"robin": 0.1, "sparrow": 0.2, "hammer": 0.9}
	domains := map[string][]string{
		"birds": {"robin", "sparrow"},
		"tools": {"hammer"},
		"empty": {"nothing"},
	}

	names, groups, avgVar := domainScoreGroups(fits, domains)
	require.Equal(t, []string{"birds", "tools"}, names)
	assert.Equal(t, []float64{0.1, 0.2}, groups[0])
	assert.Equal(t, []float64{0.9}, groups[1])
	// birds variance 0.0025, tools variance 0.
	assert.InDelta(t, 0.00125, avgVar, 1e-12)
}

func TestMedian(t *testing.T) {
	assert.InDelta(t, 2.0, median([]float64{3, 1, 2}), 1e-12)
	assert.InDelta(t, 1.5, median([]float64{2, 1}), 1e-12)
	// Input order is preserved.
	in := []float64{3, 1, 2}
	_ = median(in)
	assert.Equal(t, []float64{3, 1, 2}, in)
}

func TestValidSortedByScore(t *testing.T) {
	in := []featurefit.FeatureScore{
		{Name: "b", Score: 0.5, Valid: true},
		{Name: "skip", Valid: false},
		{Name: "a", Score: 0.5, Valid: true},
		{Name: "c", Score: 0.1, Valid: true},
	}
	out := validSortedByScore(in)
	require.Len(t, out, 3)
	assert.Equal(t, "c", out[0].Name)
	assert.Equal(t, "a", out[1].Name)
	assert.Equal(t, "b", out[2].Name)
}
