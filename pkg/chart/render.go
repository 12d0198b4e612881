// Package chart renders time series tables as stacked panel charts, either
// as a PNG image or as a plain-text preview for the terminal.
package chart

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

var chartRenderSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "whoop_chart_render_seconds",
	Help:    "Time spent rendering chart images",
	Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
})

// ErrEmptySource is returned when there is nothing to plot.
var ErrEmptySource = errors.New("chart source has no rows or columns")

// Source is a timestamp-indexed set of numeric columns.
type Source interface {
	Times() []time.Time
	Columns() []string
	// Values returns one value per row, NaN where the cell is missing or not numeric.
	Values(column string) []float64
}

// Palette used for successive panels.
var (
	Magenta    = color.RGBA{R: 0xff, G: 0x00, B: 0xff, A: 0xff}
	Blue       = color.RGBA{R: 0x00, G: 0x00, B: 0xff, A: 0xff}
	DarkOrange = color.RGBA{R: 0xff, G: 0x8c, B: 0x00, A: 0xff}
	LimeGreen  = color.RGBA{R: 0x32, G: 0xcd, B: 0x32, A: 0xff}
	Black      = color.RGBA{A: 0xff}
)

// Options controls image rendering.
type Options struct {
	// Panels caps how many columns are drawn, in column order.
	Panels int

	// Width and Height of the whole image.
	Width, Height vg.Length

	// DPI of the PNG raster.
	DPI int

	// Colors are applied to panels in turn, cycling when exhausted.
	Colors []color.Color

	// TimeFormat is the Go layout for x axis labels.
	TimeFormat string

	// MaxTicks caps the number of labelled x ticks.
	MaxTicks int

	// Location in which tick labels are rendered.
	Location *time.Location
}

// DefaultOptions returns a 10x10 inch, 300 DPI layout with five panels.
func DefaultOptions() Options {
	return Options{
		Panels:     5,
		Width:      10 * vg.Inch,
		Height:     10 * vg.Inch,
		DPI:        300,
		Colors:     []color.Color{Magenta, Blue, DarkOrange, LimeGreen, Black},
		TimeFormat: "2006-01-02 15",
		MaxTicks:   12,
		Location:   time.UTC,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.Panels <= 0 {
		o.Panels = def.Panels
	}
	if o.Width <= 0 {
		o.Width = def.Width
	}
	if o.Height <= 0 {
		o.Height = def.Height
	}
	if o.DPI <= 0 {
		o.DPI = def.DPI
	}
	if len(o.Colors) == 0 {
		o.Colors = def.Colors
	}
	if o.TimeFormat == "" {
		o.TimeFormat = def.TimeFormat
	}
	if o.MaxTicks <= 1 {
		o.MaxTicks = def.MaxTicks
	}
	if o.Location == nil {
		o.Location = def.Location
	}
	return o
}

// Render draws one panel per column of src, stacked vertically over a
// shared time axis, and writes the PNG to w. Only the bottom panel carries
// tick labels.
func Render(w io.Writer, src Source, opts Options) error {
	start := time.Now()
	opts = opts.withDefaults()

	times := src.Times()
	columns := src.Columns()
	if len(times) == 0 || len(columns) == 0 {
		return ErrEmptySource
	}
	if len(columns) > opts.Panels {
		columns = columns[:opts.Panels]
	}

	xs := make([]float64, len(times))
	xmin, xmax := math.Inf(1), math.Inf(-1)
	for i, t := range times {
		xs[i] = float64(t.Unix()) + float64(t.Nanosecond())/1e9
		xmin = math.Min(xmin, xs[i])
		xmax = math.Max(xmax, xs[i])
	}

	ticks := plot.TimeTicks{
		Ticker: hourTicks{Max: opts.MaxTicks},
		Format: opts.TimeFormat,
		Time:   plot.UnixTimeIn(opts.Location),
	}

	plots := make([][]*plot.Plot, len(columns))
	for i, col := range columns {
		p := plot.New()
		p.Title.Text = col
		p.X.Min, p.X.Max = xmin, xmax
		p.Add(plotter.NewGrid())

		if i == len(columns)-1 {
			p.X.Tick.Marker = ticks
			p.X.Tick.Label.Rotation = math.Pi / 4
			p.X.Tick.Label.XAlign = draw.XRight
			p.X.Tick.Label.YAlign = draw.YCenter
		} else {
			p.X.Tick.Marker = unlabelled{ticks}
		}

		lineColor := opts.Colors[i%len(opts.Colors)]
		for _, seg := range segments(xs, src.Values(col)) {
			line, err := plotter.NewLine(seg)
			if err != nil {
				return fmt.Errorf("panel %q: %w", col, err)
			}
			line.Color = lineColor
			line.Width = vg.Points(1)
			p.Add(line)
		}

		plots[i] = []*plot.Plot{p}
	}

	img := vgimg.NewWith(vgimg.UseWH(opts.Width, opts.Height), vgimg.UseDPI(opts.DPI))
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows:      len(plots),
		Cols:      1,
		PadX:      vg.Millimeter,
		PadY:      2 * vg.Millimeter,
		PadTop:    2 * vg.Millimeter,
		PadBottom: 2 * vg.Millimeter,
		PadLeft:   2 * vg.Millimeter,
		PadRight:  4 * vg.Millimeter,
	}
	canvases := plot.Align(plots, tiles, dc)
	for i := range plots {
		plots[i][0].Draw(canvases[i][0])
	}

	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(w); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}

	elapsed := time.Since(start)
	chartRenderSeconds.Observe(elapsed.Seconds())
	log.Debug().
		Int("panels", len(plots)).
		Int("rows", len(times)).
		Dur("duration", elapsed).
		Msg("Chart rendered")

	return nil
}

// segments splits a series at NaN values so gaps are not bridged.
func segments(xs, ys []float64) []plotter.XYs {
	var out []plotter.XYs
	var cur plotter.XYs
	for i := range xs {
		if i >= len(ys) || math.IsNaN(ys[i]) || math.IsInf(ys[i], 0) {
			if len(cur) > 0 {
				out = append(out, cur)
				cur = nil
			}
			continue
		}
		cur = append(cur, plotter.XY{X: xs[i], Y: ys[i]})
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}
