package featurefit

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePearson(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "corr_test.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadPearson(t *testing.T) {
	path := writePearson(t,
		"Concept\tcorrelation\n"+
			"robin\t0.75\n"+
			"sparrow\tn/a\n"+
			"dog\t-0.1\n")

	values, err := LoadPearson(path)
	require.NoError(t, err)
	assert.Len(t, values, 3)
	assert.InDelta(t, 0.75, values["robin"], 1e-12)
	assert.Equal(t, 0.0, values["sparrow"])
	assert.InDelta(t, -0.1, values["dog"], 1e-12)
}

func TestLoadPearsonExtraColumns(t *testing.T) {
	// Column order and extra columns do not matter, header lookup is
	// case-insensitive.
	path := writePearson(t,
		"rank\tCORRELATION\tconcept\n"+
			"1\t0.5\trobin\n")

	values, err := LoadPearson(path)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, values["robin"], 1e-12)
}

func TestLoadPearsonMissingColumn(t *testing.T) {
	path := writePearson(t, "Concept\tscore\nrobin\t0.5\n")
	_, err := LoadPearson(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "correlation column")
}

func TestLoadPearsonBadValue(t *testing.T) {
	path := writePearson(t, "Concept\tcorrelation\nrobin\twhat\n")
	_, err := LoadPearson(path)
	require.Error(t, err)
}

func TestDomainAverages(t *testing.T) {
	values := map[string]float64{"a": 0.0, "b": 1.0, "c": 0.4}
	domains := map[string][]string{
		"ab":    {"a", "b"},
		"c":     {"c"},
		"empty": {"zzz"},
	}

	means, vars := DomainAverages(values, domains)
	assert.InDelta(t, 0.5, means["ab"], 1e-12)
	assert.InDelta(t, 0.25, vars["ab"], 1e-12)
	assert.InDelta(t, 0.4, means["c"], 1e-12)
	assert.Equal(t, 0.0, vars["c"])
	assert.NotContains(t, means, "empty")
}
