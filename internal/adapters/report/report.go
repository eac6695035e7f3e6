// Package report draws a learning report from recorded experiences.
package report

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/ghalamif/AegisMaint/internal/domain"
)

var ErrNoExperiences = errors.New("report: no experiences to plot")

const size = 10 * vg.Inch

// Build returns the four report panels in row order: cumulative reward,
// action distribution, channel readings and mean reward per action.
func Build(exps []domain.Experience) ([]*plot.Plot, error) {
	if len(exps) == 0 {
		return nil, ErrNoExperiences
	}

	cumulative, err := cumulativeReward(exps)
	if err != nil {
		return nil, err
	}
	dist, err := actionBars(exps, "Decision Distribution", "Count", func(a domain.Action, same []float64) float64 {
		return float64(len(same))
	})
	if err != nil {
		return nil, err
	}
	readings, err := channelReadings(exps)
	if err != nil {
		return nil, err
	}
	means, err := actionBars(exps, "Mean Reward per Action", "Reward", func(_ domain.Action, same []float64) float64 {
		if len(same) == 0 {
			return 0
		}
		return stat.Mean(same, nil)
	})
	if err != nil {
		return nil, err
	}
	return []*plot.Plot{cumulative, dist, readings, means}, nil
}

// Write renders the panels as one PNG in a 2x2 grid.
func Write(w io.Writer, exps []domain.Experience) error {
	plots, err := Build(exps)
	if err != nil {
		return err
	}
	img := vgimg.New(size, size)
	dc := draw.New(img)

	grid := [][]*plot.Plot{plots[:2], plots[2:]}
	tiles := draw.Tiles{Rows: 2, Cols: 2, PadX: vg.Millimeter * 4, PadY: vg.Millimeter * 4,
		PadTop: vg.Millimeter * 2, PadBottom: vg.Millimeter * 2, PadLeft: vg.Millimeter * 2, PadRight: vg.Millimeter * 2}
	canvases := plot.Align(grid, tiles, dc)
	for i := range grid {
		for j := range grid[i] {
			grid[i][j].Draw(canvases[i][j])
		}
	}

	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(w); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// WriteFile writes the report PNG to path.
func WriteFile(path string, exps []domain.Experience) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, exps); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func cumulativeReward(exps []domain.Experience) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Cumulative Reward"
	p.X.Label.Text = "Experience"
	p.Y.Label.Text = "Reward"

	pts := make(plotter.XYs, len(exps))
	var total float64
	for i, e := range exps {
		total += e.Reward
		pts[i] = plotter.XY{X: float64(i + 1), Y: total}
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, err
	}
	line.Color = plotutil.Color(0)
	p.Add(line, plotter.NewGrid())
	return p, nil
}

func channelReadings(exps []domain.Experience) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Sensor States"
	p.X.Label.Text = "Experience"

	for _, ch := range domain.Channels() {
		pts := make(plotter.XYs, len(exps))
		for i, e := range exps {
			pts[i] = plotter.XY{X: float64(i + 1), Y: e.State.Value(ch)}
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, err
		}
		line.Color = plotutil.Color(int(ch))
		p.Add(line)
		p.Legend.Add(ch.String(), line)
	}
	p.Legend.Top = true
	return p, nil
}

func actionBars(exps []domain.Experience, title, ylabel string, value func(domain.Action, []float64) float64) (*plot.Plot, error) {
	var rewards [domain.ActionCount][]float64
	for _, e := range exps {
		rewards[e.Action] = append(rewards[e.Action], e.Reward)
	}

	vals := make(plotter.Values, domain.ActionCount)
	names := make([]string, domain.ActionCount)
	for _, a := range domain.Actions() {
		vals[a] = value(a, rewards[a])
		names[a] = shortName(a)
	}

	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = ylabel
	bars, err := plotter.NewBarChart(vals, vg.Points(24))
	if err != nil {
		return nil, err
	}
	bars.Color = plotutil.Color(1)
	p.Add(bars)
	p.NominalX(names...)
	return p, nil
}

func shortName(a domain.Action) string {
	switch a {
	case domain.NoAction:
		return "none"
	case domain.IncreaseMonitoring:
		return "monitor"
	case domain.ScheduleMaintenance:
		return "schedule"
	case domain.ImmediateMaintenance:
		return "immediate"
	default:
		return "shutdown"
	}
}
