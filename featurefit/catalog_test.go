package featurefit

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func catalogRow(concept, feature, brLabel string) string {
	cols := make([]string, 11)
	cols[0] = concept
	cols[1] = feature
	cols[2] = "wb"
	cols[3] = "wbmaj"
	cols[4] = "wbmin"
	cols[5] = brLabel
	cols[10] = "D"
	return strings.Join(cols, "\t")
}

func writeCatalog(t *testing.T, rows ...string) string {
	t.Helper()
	header := strings.Join([]string{
		"Concept", "Feature", "WB_Label", "WB_Maj", "WB_Min", "BR_Label",
		"c6", "c7", "c8", "c9", "Disting",
	}, "\t")
	path := filepath.Join(t.TempDir(), "norms.txt")
	content := header + "\n" + strings.Join(rows, "\n") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadCatalog(t *testing.T) {
	path := writeCatalog(t,
		catalogRow("robin", "has_wings", "visual-form"),
		catalogRow("sparrow", "has_wings", "visual-form"),
		catalogRow("robin", "is_small", "visual-form"),
		catalogRow("dunebuggy", "has_wheels", "visual-form"),
	)

	features, concepts, err := LoadCatalog(path, zap.NewNop())
	require.NoError(t, err)

	require.Contains(t, features, "has_wings")
	assert.ElementsMatch(t, []string{"robin", "sparrow"}, keys(features["has_wings"].Concepts))
	assert.Equal(t, "visual-form", features["has_wings"].BRLabel)
	assert.Equal(t, "D", features["has_wings"].Disting)

	assert.True(t, features["is_small"].HasConcept("robin"))
	assert.False(t, features["is_small"].HasConcept("sparrow"))

	// The known-bad row disappears entirely.
	assert.NotContains(t, concepts, "dunebuggy")
	assert.NotContains(t, features, "has_wheels")

	assert.ElementsMatch(t, []string{"robin", "sparrow"}, keys(concepts))
}

func TestLoadCatalogMalformedRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "norms.txt")
	require.NoError(t, os.WriteFile(path, []byte("robin\thas_wings\n"), 0o644))

	_, _, err := LoadCatalog(path, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "11 columns")
}

func TestLoadCatalogMissingFile(t *testing.T) {
	_, _, err := LoadCatalog(filepath.Join(t.TempDir(), "absent.txt"), nil)
	require.Error(t, err)
}

func TestNormalizeToken(t *testing.T) {
	assert.Equal(t, "robin", NormalizeToken("  robin\r"))
	assert.Equal(t, "café", NormalizeToken("café")) // combining acute composes
	assert.Equal(t, "ab", NormalizeToken("a\x00b"))
	assert.Equal(t, "1", NormalizeToken("１")) // fullwidth digit folds to ASCII
}

func keys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}
