// Package heatmap renders one metric of a sweep's (W, L) result grid as a
// PNG, using gonum/plot the way ctrl/chart/tlplot builds and writes plots.
package heatmap

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/arqlab/srarq/internal/resultio"
	"github.com/arqlab/srarq/simulation"
)

// Metric picks one numeric field out of a simulation.Row to colour the
// grid by.
type Metric func(simulation.Row) float64

var (
	GoodputMbps     Metric = func(r simulation.Row) float64 { return r.GoodputMbps }
	Utilization     Metric = func(r simulation.Row) float64 { return r.Utilization }
	Retransmissions Metric = func(r simulation.Row) float64 { return float64(r.Retransmissions) }
	AvgRTTMillis    Metric = func(r simulation.Row) float64 { return float64(r.AvgRTT.Microseconds()) / 1000 }
)

// namedMetrics maps the §6 column names cmd/heatmap accepts on --metric to a
// Metric and a plot title.
var namedMetrics = map[string]struct {
	metric Metric
	title  string
}{
	"goodput_mbps":    {GoodputMbps, "Goodput (Mbps)"},
	"utilization":     {Utilization, "Link Utilization (%)"},
	"retransmissions": {Retransmissions, "Retransmissions"},
	"avg_rtt":         {AvgRTTMillis, "Average RTT (ms)"},
}

// MetricNames lists the names RenderSelected and cmd/heatmap's --metric flag
// accept, in a stable order.
func MetricNames() []string {
	return []string{"goodput_mbps", "utilization", "retransmissions", "avg_rtt"}
}

// grid implements gonum's GridXYZ over the distinct W and L values observed
// in a result set, averaging across every run_id that shares a (W, L) cell.
type grid struct {
	windows  []int
	payloads []int
	values   [][]float64 // values[payloadIndex][windowIndex], matching GridXYZ's Z(c, r) convention
}

func buildGrid(rows []simulation.Row, metric Metric) *grid {
	windowSet := map[int]bool{}
	payloadSet := map[int]bool{}
	for _, r := range rows {
		windowSet[r.W] = true
		payloadSet[r.L] = true
	}

	g := &grid{
		windows:  sortedKeys(windowSet),
		payloads: sortedKeys(payloadSet),
	}
	sums := make([][]float64, len(g.payloads))
	counts := make([][]int, len(g.payloads))
	for i := range sums {
		sums[i] = make([]float64, len(g.windows))
		counts[i] = make([]int, len(g.windows))
	}

	windowIndex := indexOf(g.windows)
	payloadIndex := indexOf(g.payloads)
	for _, r := range rows {
		ci := windowIndex[r.W]
		ri := payloadIndex[r.L]
		sums[ri][ci] += metric(r)
		counts[ri][ci]++
	}

	g.values = make([][]float64, len(g.payloads))
	for ri := range g.values {
		g.values[ri] = make([]float64, len(g.windows))
		for ci := range g.values[ri] {
			if counts[ri][ci] > 0 {
				g.values[ri][ci] = sums[ri][ci] / float64(counts[ri][ci])
			} else {
				g.values[ri][ci] = math.NaN()
			}
		}
	}
	return g
}

func sortedKeys(set map[int]bool) []int {
	keys := make([]int, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

func indexOf(sorted []int) map[int]int {
	idx := make(map[int]int, len(sorted))
	for i, v := range sorted {
		idx[v] = i
	}
	return idx
}

func (g *grid) Dims() (c, r int) {
	return len(g.windows), len(g.payloads)
}

func (g *grid) X(c int) float64 {
	return float64(g.windows[c])
}

// Y returns log2(L) rather than the raw payload size, since the swept
// payload sizes double at every step and plot linearly on that axis.
func (g *grid) Y(r int) float64 {
	return math.Log2(float64(g.payloads[r]))
}

func (g *grid) Z(c, r int) float64 {
	return g.values[r][c]
}

// Render builds a W-by-L heatmap of metric over rows and saves it to path as
// a PNG.
func Render(rows []simulation.Row, metric Metric, title string, path string) error {
	if len(rows) == 0 {
		return fmt.Errorf("heatmap: no rows to render")
	}

	g := buildGrid(rows, metric)
	palette := moreland.SmoothBlueRed().Palette(256)

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "window size (W)"
	p.Y.Label.Text = "payload size (log2 L, bytes)"

	hm := plotter.NewHeatMap(g, palette)
	p.Add(hm)

	if err := p.Save(8*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("heatmap: saving %s: %w", path, err)
	}
	return nil
}

// RenderSelected writes one PNG per name in metricNames (as accepted by
// --metric: goodput_mbps, utilization, retransmissions, avg_rtt), named
// "<dir>/<name>.png". An empty metricNames renders every known metric.
func RenderSelected(dir string, rows []simulation.Row, metricNames []string) error {
	if len(metricNames) == 0 {
		metricNames = MetricNames()
	}
	for _, name := range metricNames {
		m, ok := namedMetrics[name]
		if !ok {
			return fmt.Errorf("heatmap: unrecognized metric %q", name)
		}
		out := fmt.Sprintf("%s/%s.png", dir, name)
		if err := Render(rows, m.metric, m.title, out); err != nil {
			return err
		}
	}
	return nil
}

// LoadAndRenderAll loads a sweep's CSV and writes the requested metric PNGs
// into outputDir, for cmd/heatmap. An empty metricNames renders all of them.
func LoadAndRenderAll(csvPath, outputDir string, metricNames []string) error {
	rows, err := resultio.ReadAll(csvPath)
	if err != nil {
		return err
	}
	return RenderSelected(outputDir, rows, metricNames)
}
