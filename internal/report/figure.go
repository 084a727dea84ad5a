package report

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/GoSim-25-26J-441/reserve-tradestudy/internal/study"
	"github.com/GoSim-25-26J-441/reserve-tradestudy/pkg/config"
	"github.com/GoSim-25-26J-441/reserve-tradestudy/pkg/units"
	"github.com/GoSim-25-26J-441/reserve-tradestudy/pkg/utils"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgpdf"
	"gonum.org/v1/plot/vg/vgsvg"
)

const (
	figureWidth  = 16 * vg.Inch
	figureHeight = 12 * vg.Inch
	headerHeight = 1.1 * vg.Inch

	barWidth   = 12 * vg.Millimeter
	barSpacing = 1.5 // bar pitch within a group, in bar widths
)

// policy colors, cycled when a study has more policies
var barColors = []color.Color{
	color.Gray{Y: 128},
	color.White,
	color.Black,
}

// panel is one subplot of the figure
type panel struct {
	title  string
	ylabel string
	value  func(study.Outputs) float64
	// headroom scales the largest bar to the top of the axis
	headroom float64
}

func figurePanels(s *config.Study) []panel {
	return []panel{
		{
			title:    "Maximum Takeoff Weight",
			ylabel:   "Weight (lbf)",
			value:    func(o study.Outputs) float64 { return in(o.MTOW, units.PoundForce) },
			headroom: 1.3,
		},
		{
			title:    "Battery Weight",
			ylabel:   "Weight (lbf)",
			value:    func(o study.Outputs) float64 { return in(o.BatteryWeight, units.PoundForce) },
			headroom: 1.2,
		},
		{
			title:    "Cost per Trip, per Passenger",
			ylabel:   "Cost ($US)",
			value:    func(o study.Outputs) float64 { return in(o.CostPerTripPerPassenger, units.USD) },
			headroom: 1.2,
		},
		{
			title:    "Sound Pressure Level in Hover",
			ylabel:   splLabel(s.Acoustics.Weighting),
			value:    func(o study.Outputs) float64 { return o.SPL },
			headroom: 1.2,
		},
	}
}

func splLabel(weighting string) string {
	switch weighting {
	case "A":
		return "SPL (dBA)"
	case "C":
		return "SPL (dBC)"
	}
	return "SPL (dB)"
}

// policyLabels returns the legend label of each policy name in the table
func policyLabels(s *config.Study) map[string]string {
	out := make(map[string]string, len(s.ReservePolicies))
	for _, p := range s.ReservePolicies {
		label := p.Label
		if label == "" {
			label = p.Name
		}
		out[p.Name] = label
	}
	return out
}

// tablePolicies is the union of policies over all configurations, first-seen order
func tablePolicies(t *study.ResultTable) []string {
	var out []string
	seen := make(map[string]bool)
	for _, cfg := range t.Configurations() {
		for _, p := range t.Policies(cfg) {
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
	}
	return out
}

// cellBars returns one bar per cell of policy that has a usable value, placed
// at its configuration's index. Failed and skipped cells get no bar.
func cellBars(t *study.ResultTable, configurations []string, policy string, value func(study.Outputs) float64) ([]*plotter.BarChart, error) {
	var bars []*plotter.BarChart
	for i, cfg := range configurations {
		rec, ok := t.Get(study.Key{Configuration: cfg, Policy: policy})
		if !ok {
			continue
		}
		out, _ := rec.Outputs()
		v := value(out)
		if !utils.IsFinite(v) || v < 0 {
			continue
		}
		bar, err := plotter.NewBarChart(plotter.Values{v}, barWidth)
		if err != nil {
			return nil, err
		}
		bar.XMin = float64(i)
		bars = append(bars, bar)
	}
	return bars, nil
}

// buildPlots makes the four panels
func buildPlots(t *study.ResultTable, s *config.Study) ([]*plot.Plot, error) {
	configurations := t.Configurations()
	if len(configurations) == 0 {
		return nil, fmt.Errorf("figure: table has no configurations")
	}
	policies := tablePolicies(t)
	labels := policyLabels(s)
	n := len(configurations)

	var plots []*plot.Plot
	for idx, pn := range figurePanels(s) {
		p := plot.New()
		p.Title.Text = pn.title
		p.Y.Label.Text = pn.ylabel
		p.Add(plotter.NewGrid())

		peak, low := 0.0, math.Inf(1)
		for j, policy := range policies {
			bars, err := cellBars(t, configurations, policy, pn.value)
			if err != nil {
				return nil, fmt.Errorf("figure: %s: %w", pn.title, err)
			}
			// the legend swatch exists even when every cell of the policy failed
			swatch, err := plotter.NewBarChart(plotter.Values{0}, barWidth)
			if err != nil {
				return nil, fmt.Errorf("figure: %s: %w", pn.title, err)
			}
			for _, bar := range append(bars, swatch) {
				bar.Color = barColors[j%len(barColors)]
				bar.LineStyle.Color = color.Black
				bar.LineStyle.Width = vg.Points(0.5)
				bar.Offset = vg.Length(float64(j)-float64(len(policies)-1)/2) * barSpacing * barWidth
			}
			for _, bar := range bars {
				v := bar.Values[0]
				peak = math.Max(peak, v)
				low = math.Min(low, v)
				p.Add(bar)
			}
			label, ok := labels[policy]
			if !ok {
				label = policy
			}
			p.Legend.Add(label, swatch)
		}

		p.NominalX(configurations...)
		p.X.Min = -0.7
		p.X.Max = float64(n-1) + 0.7
		p.X.Tick.Label.Rotation = -math.Pi / 4
		p.X.Tick.Label.XAlign = draw.XLeft
		p.X.Tick.Label.YAlign = draw.YCenter
		p.Legend.Top = true

		p.Y.Min = 0
		p.Y.Max = pn.headroom * peak
		if peak == 0 {
			p.Y.Max = 1
		}

		// hover noise uses a fixed window around the acceptable level
		if idx == len(figurePanels(s))-1 {
			limit := s.Acoustics.AcceptableLevel
			line, err := plotter.NewLine(plotter.XYs{
				{X: p.X.Min, Y: limit},
				{X: p.X.Max, Y: limit},
			})
			if err != nil {
				return nil, fmt.Errorf("figure: reference line: %w", err)
			}
			line.LineStyle.Width = vg.Points(3)
			line.LineStyle.Color = color.Black
			p.Add(line)

			p.Y.Min, p.Y.Max = 57, 80
			if !math.IsInf(low, 1) && low < p.Y.Min {
				p.Y.Min = math.Max(0, low-3)
			}
			if peak > p.Y.Max {
				p.Y.Max = peak + 3
			}
		}
		plots = append(plots, p)
	}
	return plots, nil
}

// canvasFor picks the output backend from the file extension
func canvasFor(path string) (vg.CanvasWriterTo, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".svg":
		return vgsvg.New(figureWidth, figureHeight), nil
	case ".pdf":
		return vgpdf.New(figureWidth, figureHeight), nil
	default:
		return nil, fmt.Errorf("figure: unsupported format %q (use .svg or .pdf)", ext)
	}
}

// RenderFigure draws the four-panel comparison of every configuration under
// every reserve policy, headed by the study summary, and writes it to path
func RenderFigure(t *study.ResultTable, s *config.Study, path string) error {
	c, err := canvasFor(path)
	if err != nil {
		return err
	}
	plots, err := buildPlots(t, s)
	if err != nil {
		return err
	}

	dc := draw.New(c)

	sty := plots[0].Title.TextStyle
	sty.Font.Size = vg.Points(12)
	sty.XAlign = draw.XCenter
	sty.YAlign = draw.YTop
	lineHeight := headerHeight / 4
	for i, line := range SummaryLines(s) {
		pt := vg.Point{X: dc.Center().X, Y: dc.Max.Y - vg.Length(i)*lineHeight - vg.Millimeter}
		dc.FillText(sty, pt, line)
	}

	body := draw.Crop(dc, 0, 0, 0, -headerHeight)
	tiles := draw.Tiles{
		Rows:      2,
		Cols:      2,
		PadX:      10 * vg.Millimeter,
		PadY:      10 * vg.Millimeter,
		PadTop:    2 * vg.Millimeter,
		PadBottom: 2 * vg.Millimeter,
		PadLeft:   2 * vg.Millimeter,
		PadRight:  2 * vg.Millimeter,
	}
	grid := [][]*plot.Plot{
		{plots[0], plots[1]},
		{plots[2], plots[3]},
	}
	canvases := plot.Align(grid, tiles, body)
	for i := range grid {
		for j := range grid[i] {
			grid[i][j].Draw(canvases[i][j])
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("figure: %w", err)
	}
	if _, err := c.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("figure: write %s: %w", path, err)
	}
	return f.Close()
}
