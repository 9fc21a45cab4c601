package featurefit

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scoredFixture() (map[string]*Feature, []FeatureScore) {
	features := map[string]*Feature{
		"has_wings": {Name: "has_wings", BRLabel: "visual-form",
			Concepts: map[string]struct{}{"robin": {}, "sparrow": {}}},
		"has_legs": {Name: "has_legs", BRLabel: "visual-form",
			Concepts: map[string]struct{}{"robin": {}, "dog": {}}},
		"is_edible": {Name: "is_edible", BRLabel: "function",
			Concepts: map[string]struct{}{"apple": {}}},
	}
	scored := []FeatureScore{
		{Name: "has_legs", Concepts: 2, Score: 0.4, Valid: true},
		{Name: "has_wings", Concepts: 2, Score: 0.8, Valid: true},
		{Name: "is_edible", Concepts: 1, Valid: false},
	}
	return features, scored
}

func TestWriteReport(t *testing.T) {
	features, scored := scoredFixture()

	var buf bytes.Buffer
	medians, err := WriteReport(&buf, features, scored)
	require.NoError(t, err)
	out := buf.String()

	// One row per valid feature, none for the skipped one.
	assert.Contains(t, out, "has_legs")
	assert.Contains(t, out, "has_wings")
	assert.NotContains(t, strings.SplitN(out, "Grouping", 2)[0], "is_edible")

	// Both grouping sections are present, in sorted order.
	brIdx := strings.Index(out, "Grouping by br_label:")
	fwIdx := strings.Index(out, "Grouping by first_word:")
	require.GreaterOrEqual(t, brIdx, 0)
	require.Greater(t, fwIdx, brIdx)

	// br_label medians come back for the caller.
	require.Contains(t, medians, "visual-form")
	assert.InDelta(t, 0.6, medians["visual-form"], 1e-12)
	assert.NotContains(t, medians, "function")

	// first_word groups split on the leading underscore token.
	assert.Contains(t, out[fwIdx:], "has")
}

func TestWriteReportGroupCountsConserved(t *testing.T) {
	features, scored := scoredFixture()

	var buf bytes.Buffer
	_, err := WriteReport(&buf, features, scored)
	require.NoError(t, err)

	// Two valid features feed each grouping section, so each summary table
	// accounts for exactly two entries.
	section := strings.SplitN(buf.String(), "Grouping by br_label:", 2)[1]
	section = strings.SplitN(section, "Grouping by", 2)[0]
	var total int
	for _, line := range strings.Split(section, "\n") {
		fields := strings.Split(line, "\t")
		if len(fields) < 7 || strings.Contains(line, "group") {
			continue
		}
		switch strings.TrimSpace(fields[0]) {
		case "visual-form":
			total += 2
		case "function":
			t.Fatalf("skipped feature leaked into group table: %q", line)
		}
	}
	assert.Equal(t, 2, total)
}

func TestWriteFeaturePearsonStats(t *testing.T) {
	features := map[string]*Feature{
		"big": {Name: "big", Concepts: map[string]struct{}{
			"a": {}, "b": {}, "c": {},
		}},
		"small": {Name: "small", Concepts: map[string]struct{}{"a": {}}},
	}
	vocab := []string{"a", "b", "c"}
	p1 := map[string]float64{"a": 0.1, "b": 0.2, "c": 0.3}
	p2 := map[string]float64{"a": 0.5, "b": 0.5, "c": 0.5}

	var buf bytes.Buffer
	require.NoError(t, WriteFeaturePearsonStats(&buf, features, vocab, p1, p2, 2))
	out := buf.String()

	assert.Contains(t, out, "feature\tpvar\tpmean\twvar\twmean")
	assert.Contains(t, out, "big\t")
	// Below the concept floor: excluded.
	assert.NotContains(t, out, "small\t")

	// Mean of the first measure over a, b, c.
	assert.Contains(t, out, "0.200000")
	// The second measure is constant, so its variance is zero.
	assert.Contains(t, out, "0.000000")
}

func TestPopVariance(t *testing.T) {
	assert.Equal(t, 0.0, popVariance(nil))
	assert.InDelta(t, 0.25, popVariance([]float64{0, 1, 0, 1}), 1e-12)
}
