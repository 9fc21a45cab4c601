package plots

import (
	"image/color"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := NewRenderer(t.TempDir(), rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	return r
}

func TestRescale(t *testing.T) {
	assert.Equal(t, []float64{0, 0.5, 1}, rescale([]float64{1, 2, 3}))
	assert.Equal(t, []float64{0, 0, 0}, rescale([]float64{4, 4, 4}))
	assert.Nil(t, rescale(nil))
}

func TestCoolColor(t *testing.T) {
	low := coolColor(0).(color.RGBA)
	high := coolColor(1).(color.RGBA)
	assert.Equal(t, color.RGBA{R: 0, G: 255, B: 255, A: 255}, low)
	assert.Equal(t, color.RGBA{R: 255, G: 0, B: 255, A: 255}, high)

	// Out-of-range inputs clamp instead of wrapping.
	assert.Equal(t, low, coolColor(-3).(color.RGBA))
	assert.Equal(t, high, coolColor(7).(color.RGBA))
}

func TestLinspace(t *testing.T) {
	got := linspace(0, 1, 3)
	assert.Equal(t, []float64{0, 0.5, 1}, got)
}

func TestUnifiedConceptGraphs(t *testing.T) {
	r := testRenderer(t)
	pts := []ConceptPoint{
		{Label: "robin", X: 0.1, Y: 0.2, Fit: 0.1, Highlight: DomainPalette()[0]},
		{Label: "hammer", X: 0.5, Y: 0.6, Fit: 0.9},
		{Label: "apple", X: 0.3, Y: 0.4, Fit: 0.5},
	}
	require.NoError(t, r.UnifiedConceptGraphs("mcrae_cc", "cc_wordnetres", pts))

	assert.FileExists(t, filepath.Join(r.Dir, "unified-mcrae_cc-cc_wordnetres.png"))
	assert.FileExists(t, filepath.Join(r.Dir, "unified-mcrae_cc-feature.png"))
	assert.FileExists(t, filepath.Join(r.Dir, "unified-cc_wordnetres-feature.png"))
}

func TestUnifiedConceptGraphsEmpty(t *testing.T) {
	r := testRenderer(t)
	require.NoError(t, r.UnifiedConceptGraphs("a", "b", nil))

	got, err := filepath.Glob(filepath.Join(r.Dir, "*.png"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestUnifiedDomainGraphs(t *testing.T) {
	r := testRenderer(t)
	pts := []DomainPoint{
		{Label: "animals", X: 0.2, Y: 0.3, Fit: 0.5, XVar: 0.02, YVar: 0.01, FitVar: 0.1},
		{Label: "fruit", X: 0.7, Y: 0.8, Fit: 0.1, XVar: 0.05, YVar: 0.03, FitVar: 0.2},
	}
	require.NoError(t, r.UnifiedDomainGraphs("mcrae_cc", "cc_wordnetres", pts))

	assert.FileExists(t, filepath.Join(r.Dir, "unified_domain-mcrae_cc-cc_wordnetres.png"))
	assert.FileExists(t, filepath.Join(r.Dir, "unified_domain-mcrae_cc-feature.png"))
	assert.FileExists(t, filepath.Join(r.Dir, "unified_domain-cc_wordnetres-feature.png"))
}

func TestDomainSwarm(t *testing.T) {
	r := testRenderer(t)
	domains := []string{"animals", "fruit"}
	scores := [][]float64{
		{0.1, 0.2, 0.3, 0.15},
		{0.7, 0.8, 0.75},
	}
	require.NoError(t, r.DomainSwarm("cc", domains, scores))
	assert.FileExists(t, filepath.Join(r.Dir, "feature-cc-domain.png"))
}
