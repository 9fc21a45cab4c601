// Package plots renders the report figures: concept and domain scatter
// graphs colored by feature fit, Gaussian contours around domain means,
// and a per-domain swarm/box chart of concept scores.
package plots

import (
	"fmt"
	"image/color"
	"math"
	"math/rand"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// Highlight colors for concepts belonging to the hand-picked domains.
var (
	colorSalmon       = color.RGBA{R: 0xFA, G: 0x80, B: 0x72, A: 0xFF}
	colorSpringGreen  = color.RGBA{G: 0xFF, B: 0x7F, A: 0xFF}
	colorTan          = color.RGBA{R: 0xD2, G: 0xB4, B: 0x8C, A: 0xFF}
	colorLightBlue    = color.RGBA{R: 0xAD, G: 0xD8, B: 0xE6, A: 0xFF}
	colorMediumPurple = color.RGBA{R: 0x93, G: 0x70, B: 0xDB, A: 0xFF}
	colorLightGray    = color.RGBA{R: 0xD3, G: 0xD3, B: 0xD3, A: 0xFF}
)

// DomainPalette returns the fixed color rotation used to highlight domains
// on the unified concept graph.
func DomainPalette() []color.Color {
	return []color.Color{colorSalmon, colorSpringGreen, colorTan, colorLightBlue, colorMediumPurple}
}

// Renderer writes PNG figures under Dir. The random source drives point
// jitter so overlapping coordinates stay distinguishable.
type Renderer struct {
	Dir string
	Rng *rand.Rand
}

// NewRenderer creates the output directory if needed.
func NewRenderer(dir string, rng *rand.Rand) (*Renderer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create graph dir: %w", err)
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &Renderer{Dir: dir, Rng: rng}, nil
}

// ConceptPoint is one concept positioned by its two correlation scores with
// Fit carrying the median feature-fit weight. Highlight overrides the
// fit-derived color when non-nil.
type ConceptPoint struct {
	Label     string
	X, Y, Fit float64
	Highlight color.Color
}

// DomainPoint aggregates a domain: mean and variance per axis plus the
// median and variance of the member concepts' feature weights.
type DomainPoint struct {
	Label      string
	X, Y, Fit  float64
	XVar, YVar float64
	FitVar     float64
}

// coolColor maps t in [0,1] onto a cyan-to-magenta ramp.
func coolColor(t float64) color.Color {
	t = math.Min(1, math.Max(0, t))
	return color.RGBA{
		R: uint8(255 * t),
		G: uint8(255 * (1 - t)),
		B: 255,
		A: 255,
	}
}

// rescale maps values onto [0,1]. A constant slice maps to all zeros.
func rescale(vals []float64) []float64 {
	if len(vals) == 0 {
		return nil
	}
	lo, hi := vals[0], vals[0]
	for _, v := range vals {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	out := make([]float64, len(vals))
	if hi == lo {
		return out
	}
	for i, v := range vals {
		out[i] = (v - lo) / (hi - lo)
	}
	return out
}

func (r *Renderer) jitter(vals []float64) []float64 {
	out := make([]float64, len(vals))
	for i, v := range vals {
		out[i] = v + r.Rng.NormFloat64()*0.01
	}
	return out
}

func scatterWith(p *plot.Plot, xs, ys []float64, colors []color.Color) error {
	pts := make(plotter.XYs, len(xs))
	for i := range xs {
		pts[i].X = xs[i]
		pts[i].Y = ys[i]
	}
	sc, err := plotter.NewScatter(pts)
	if err != nil {
		return err
	}
	sc.GlyphStyleFunc = func(i int) draw.GlyphStyle {
		return draw.GlyphStyle{
			Color:  colors[i],
			Radius: vg.Points(3),
			Shape:  draw.CircleGlyph{},
		}
	}
	p.Add(sc)
	return nil
}

func annotate(p *plot.Plot, xs, ys []float64, names []string) error {
	lbls := plotter.XYLabels{
		XYs:    make(plotter.XYs, len(xs)),
		Labels: names,
	}
	for i := range xs {
		lbls.XYs[i].X = xs[i]
		lbls.XYs[i].Y = ys[i]
	}
	l, err := plotter.NewLabels(lbls)
	if err != nil {
		return err
	}
	p.Add(l)
	return nil
}

func (r *Renderer) save(p *plot.Plot, name string) error {
	path := filepath.Join(r.Dir, name)
	if err := p.Save(6*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	return nil
}

// UnifiedConceptGraphs renders the three concept-level scatters: the two
// correlation axes against each other colored by domain membership, and the
// scaled feature weight against each axis. Concepts with a scaled weight
// below 0.2 are annotated on the first graph.
func (r *Renderer) UnifiedConceptGraphs(p1Name, p2Name string, points []ConceptPoint) error {
	if len(points) == 0 {
		return nil
	}
	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	fits := make([]float64, len(points))
	for i, pt := range points {
		xs[i] = pt.X
		ys[i] = pt.Y
		fits[i] = pt.Fit
	}
	zs := rescale(fits)
	xs = r.jitter(xs)
	ys = r.jitter(ys)

	fitColors := make([]color.Color, len(points))
	memberColors := make([]color.Color, len(points))
	var lowX, lowY []float64
	var lowNames []string
	for i, pt := range points {
		fitColors[i] = coolColor(zs[i])
		memberColors[i] = colorLightGray
		if pt.Highlight != nil {
			memberColors[i] = pt.Highlight
		}
		if zs[i] < 0.2 {
			lowX = append(lowX, xs[i])
			lowY = append(lowY, ys[i])
			lowNames = append(lowNames, pt.Label)
		}
	}

	p := plot.New()
	p.Title.Text = "unified graph"
	p.X.Label.Text = p1Name
	p.Y.Label.Text = p2Name
	if err := scatterWith(p, xs, ys, memberColors); err != nil {
		return err
	}
	if err := annotate(p, lowX, lowY, lowNames); err != nil {
		return err
	}
	if err := r.save(p, fmt.Sprintf("unified-%s-%s.png", p1Name, p2Name)); err != nil {
		return err
	}

	p = plot.New()
	p.Title.Text = "unified graph"
	p.X.Label.Text = p1Name
	p.Y.Label.Text = "feature_fit"
	if err := scatterWith(p, xs, zs, fitColors); err != nil {
		return err
	}
	if err := r.save(p, fmt.Sprintf("unified-%s-feature.png", p1Name)); err != nil {
		return err
	}

	p = plot.New()
	p.Title.Text = "unified graph"
	p.X.Label.Text = p2Name
	p.Y.Label.Text = "feature_fit"
	if err := scatterWith(p, ys, zs, fitColors); err != nil {
		return err
	}
	return r.save(p, fmt.Sprintf("unified-%s-feature.png", p2Name))
}

// UnifiedDomainGraphs renders the domain-level scatters with annotations and
// per-domain Gaussian contours describing the spread along each axis.
func (r *Renderer) UnifiedDomainGraphs(p1Name, p2Name string, points []DomainPoint) error {
	if len(points) == 0 {
		return nil
	}
	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	fits := make([]float64, len(points))
	xVars := make([]float64, len(points))
	yVars := make([]float64, len(points))
	fitVars := make([]float64, len(points))
	names := make([]string, len(points))
	for i, pt := range points {
		xs[i] = pt.X
		ys[i] = pt.Y
		fits[i] = pt.Fit
		xVars[i] = pt.XVar
		yVars[i] = pt.YVar
		fitVars[i] = pt.FitVar
		names[i] = pt.Label
	}
	zs := rescale(fits)
	xs = r.jitter(xs)
	ys = r.jitter(ys)
	colors := make([]color.Color, len(points))
	for i := range zs {
		colors[i] = coolColor(zs[i])
	}

	type panel struct {
		file           string
		xLab, yLab     string
		px, py         []float64
		pxVars, pyVars []float64
	}
	panels := []panel{
		{fmt.Sprintf("unified_domain-%s-%s.png", p1Name, p2Name), p1Name, p2Name, xs, ys, xVars, yVars},
		{fmt.Sprintf("unified_domain-%s-feature.png", p1Name), p1Name, "feature_fit", xs, zs, xVars, fitVars},
		{fmt.Sprintf("unified_domain-%s-feature.png", p2Name), p2Name, "feature_fit", ys, zs, yVars, fitVars},
	}
	for _, pn := range panels {
		p := plot.New()
		p.Title.Text = "unified graph"
		p.X.Label.Text = pn.xLab
		p.Y.Label.Text = pn.yLab
		if err := scatterWith(p, pn.px, pn.py, colors); err != nil {
			return err
		}
		if err := annotate(p, pn.px, pn.py, names); err != nil {
			return err
		}
		addGaussianContours(p, pn.px, pn.py, pn.pxVars, pn.pyVars)
		if err := r.save(p, pn.file); err != nil {
			return err
		}
	}
	return nil
}

// gaussGrid evaluates a bivariate normal density over a regular grid so the
// contour plotter can trace its level sets.
type gaussGrid struct {
	xs, ys []float64
	z      [][]float64
}

func (g gaussGrid) Dims() (int, int)   { return len(g.xs), len(g.ys) }
func (g gaussGrid) X(c int) float64    { return g.xs[c] }
func (g gaussGrid) Y(r int) float64    { return g.ys[r] }
func (g gaussGrid) Z(c, r int) float64 { return g.z[c][r] }

func addGaussianContours(p *plot.Plot, xs, ys, xVars, yVars []float64) {
	const steps = 100
	var maxVar float64
	for _, v := range xVars {
		maxVar = math.Max(maxVar, math.Abs(v))
	}
	loX, hiX := minMax(xs)
	loY, hiY := minMax(ys)
	gx := linspace(loX-maxVar, hiX+maxVar, steps)
	gy := linspace(loY-maxVar, hiY+maxVar, steps)

	for i := range xs {
		sx := math.Max(xVars[i], 1e-6)
		sy := math.Max(yVars[i], 1e-6)
		grid := gaussGrid{xs: gx, ys: gy, z: make([][]float64, steps)}
		peak := 1 / (2 * math.Pi * sx * sy)
		for c := range gx {
			grid.z[c] = make([]float64, steps)
			for r := range gy {
				dx := (gx[c] - xs[i]) / sx
				dy := (gy[r] - ys[i]) / sy
				grid.z[c][r] = peak * math.Exp(-0.5*(dx*dx+dy*dy))
			}
		}
		levels := []float64{0.25 * peak, 0.5 * peak, 0.75 * peak}
		p.Add(plotter.NewContour(grid, levels, palette.Heat(len(levels), 0.8)))
	}
}

func minMax(vals []float64) (float64, float64) {
	lo, hi := vals[0], vals[0]
	for _, v := range vals {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

func linspace(lo, hi float64, n int) []float64 {
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	return out
}

// DomainSwarm renders per-domain concept scores as a jittered strip chart
// with an overlaid box plot, one column per domain.
func (r *Renderer) DomainSwarm(pivot string, domains []string, scores [][]float64) error {
	if len(domains) == 0 {
		return nil
	}
	p := plot.New()
	p.Y.Label.Text = "feature_fit"
	for i, vals := range scores {
		if len(vals) == 0 {
			continue
		}
		pts := make(plotter.XYs, len(vals))
		for j, v := range vals {
			pts[j].X = float64(i) + r.Rng.NormFloat64()*0.05
			pts[j].Y = v
		}
		sc, err := plotter.NewScatter(pts)
		if err != nil {
			return err
		}
		sc.GlyphStyle = draw.GlyphStyle{
			Color:  coolColor(float64(i) / float64(len(domains))),
			Radius: vg.Points(2),
			Shape:  draw.CircleGlyph{},
		}
		p.Add(sc)

		box, err := plotter.NewBoxPlot(vg.Points(20), float64(i), plotter.Values(vals))
		if err != nil {
			return err
		}
		box.FillColor = nil
		p.Add(box)
	}
	p.NominalX(domains...)
	return r.save(p, fmt.Sprintf("feature-%s-domain.png", pivot))
}
