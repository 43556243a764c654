// Package plot renders the pipeline's figures: cluster embeddings,
// feature importance bars, and pseudo-longitudinal gap trajectories.
// Everything saves straight to file; there is no interactive display.
package plot

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/bioforge/organclock/analysis"
	"github.com/bioforge/organclock/cluster"
	"github.com/bioforge/organclock/explain"
	"github.com/bioforge/organclock/pkg/errors"
	"github.com/bioforge/organclock/pkg/log"
)

var noiseGray = color.RGBA{R: 150, G: 150, B: 150, A: 255}

// EmbeddingScatter draws a 2-D embedding colored by cluster label and
// saves it as PNG. DBSCAN noise points are drawn in gray.
func EmbeddingScatter(path string, emb *cluster.EmbeddingFrame, title string) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "component 1"
	p.Y.Label.Text = "component 2"

	byLabel := map[int]plotter.XYs{}
	for i := range emb.X {
		l := emb.Labels[i]
		byLabel[l] = append(byLabel[l], plotter.XY{X: emb.X[i], Y: emb.Y[i]})
	}

	labels := make([]int, 0, len(byLabel))
	for l := range byLabel {
		labels = append(labels, l)
	}
	sort.Ints(labels)

	for _, l := range labels {
		s, err := plotter.NewScatter(byLabel[l])
		if err != nil {
			return errors.Wrap(err, "building embedding scatter")
		}
		name := fmt.Sprintf("cluster %d", l)
		if l == cluster.Noise {
			name = "noise"
			s.GlyphStyle.Color = noiseGray
		} else {
			s.GlyphStyle.Color = plotutil.Color(l)
		}
		s.GlyphStyle.Radius = vg.Points(2)
		p.Add(s)
		p.Legend.Add(name, s)
	}
	p.Legend.Top = true

	return save(p, path, 7, 6)
}

// ImportanceBars draws feature importances as horizontal bars, most
// important at the top, and saves the figure as PNG.
func ImportanceBars(path string, importances []explain.Importance, title string) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "importance"

	// Reverse so the largest value lands on the top row.
	n := len(importances)
	values := make(plotter.Values, n)
	names := make([]string, n)
	for i, imp := range importances {
		values[n-1-i] = imp.Value
		names[n-1-i] = imp.Feature
	}

	bars, err := plotter.NewBarChart(values, vg.Points(12))
	if err != nil {
		return errors.Wrap(err, "building importance bars")
	}
	bars.Horizontal = true
	bars.Color = plotutil.Color(0)
	p.Add(bars)
	p.NominalY(names...)

	return save(p, path, 7, float64(n)*0.35+1.5)
}

// TrajectoryLines draws one mean-gap line per organ across age bins,
// using each bin's mean age on the x axis, and saves the figure as PNG.
func TrajectoryLines(path string, trajectories map[string][]analysis.TrajectoryPoint, title string) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "age (years)"
	p.Y.Label.Text = "mean age gap (years)"

	organs := make([]string, 0, len(trajectories))
	for organ := range trajectories {
		organs = append(organs, organ)
	}
	sort.Strings(organs)

	for i, organ := range organs {
		points := trajectories[organ]
		xys := make(plotter.XYs, 0, len(points))
		for _, pt := range points {
			xys = append(xys, plotter.XY{X: pt.AgeMean, Y: pt.GapMean})
		}
		line, err := plotter.NewLine(xys)
		if err != nil {
			return errors.Wrapf(err, "building trajectory line for %s", organ)
		}
		line.LineStyle.Color = plotutil.Color(i)
		line.LineStyle.Width = vg.Points(1.5)
		p.Add(line)
		p.Legend.Add(organ, line)
	}
	p.Legend.Top = true

	return save(p, path, 8, 6)
}

func save(p *plot.Plot, path string, wInch, hInch float64) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "creating figure directory for %s", path)
	}
	if err := p.Save(vg.Length(wInch)*vg.Inch, vg.Length(hInch)*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "saving figure %s", path)
	}
	log.With("plot").Info().Str("path", path).Msg("figure saved")
	return nil
}
