package chart

import (
	"bytes"
	"errors"
	"image/png"
	"math"
	"strings"
	"testing"
	"time"

	"gonum.org/v1/plot/vg"
)

// fakeSource is an in-memory Source.
type fakeSource struct {
	times   []time.Time
	columns []string
	values  map[string][]float64
}

func (f fakeSource) Times() []time.Time          { return f.times }
func (f fakeSource) Columns() []string           { return f.columns }
func (f fakeSource) Values(col string) []float64 { return f.values[col] }

func sampleSource(rows int, columns ...string) fakeSource {
	start := time.Date(2024, 2, 1, 6, 0, 0, 0, time.UTC)
	src := fakeSource{columns: columns, values: map[string][]float64{}}
	for i := 0; i < rows; i++ {
		src.times = append(src.times, start.Add(time.Duration(i)*24*time.Hour))
	}
	for j, col := range columns {
		vals := make([]float64, rows)
		for i := range vals {
			vals[i] = float64(40 + (i*7+j*11)%50)
		}
		src.values[col] = vals
	}
	return src
}

func TestRender_WritesPNG(t *testing.T) {
	src := sampleSource(30, "recovery_score", "resting_heart_rate", "hrv_rmssd_milli")
	src.values["hrv_rmssd_milli"][4] = math.NaN()

	opts := DefaultOptions()
	opts.Width, opts.Height, opts.DPI = 6*vg.Inch, 6*vg.Inch, 40

	var buf bytes.Buffer
	if err := Render(&buf, src, opts); err != nil {
		t.Fatalf("Render() failed: %v", err)
	}

	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("output is not a PNG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 240 || b.Dy() != 240 {
		t.Errorf("image size = %dx%d, want 240x240", b.Dx(), b.Dy())
	}
}

func TestRender_SingleRowAndMissingColumn(t *testing.T) {
	src := sampleSource(1, "recovery_score")
	src.columns = append(src.columns, "user_note")
	src.values["user_note"] = []float64{math.NaN()}

	opts := DefaultOptions()
	opts.DPI = 20

	var buf bytes.Buffer
	if err := Render(&buf, src, opts); err != nil {
		t.Fatalf("Render() failed: %v", err)
	}
	if buf.Len() == 0 {
		t.Error("expected image bytes")
	}
}

func TestRender_EmptySource(t *testing.T) {
	tests := []struct {
		name string
		src  fakeSource
	}{
		{"no rows", sampleSource(0, "a")},
		{"no columns", sampleSource(3)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := Render(&buf, tt.src, DefaultOptions())
			if !errors.Is(err, ErrEmptySource) {
				t.Errorf("error = %v, want ErrEmptySource", err)
			}
			if buf.Len() != 0 {
				t.Error("nothing should be written")
			}
		})
	}
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	if opts.Panels != 5 {
		t.Errorf("Panels = %d, want 5", opts.Panels)
	}
	if opts.Width != 10*vg.Inch || opts.Height != 10*vg.Inch {
		t.Errorf("size = %v x %v, want 10in x 10in", opts.Width, opts.Height)
	}
	if opts.DPI != 300 {
		t.Errorf("DPI = %d, want 300", opts.DPI)
	}
	if len(opts.Colors) != 5 || opts.Colors[0] != Magenta || opts.Colors[4] != Black {
		t.Errorf("Colors = %v", opts.Colors)
	}
	if opts.TimeFormat != "2006-01-02 15" || opts.MaxTicks != 12 {
		t.Errorf("TimeFormat = %q, MaxTicks = %d", opts.TimeFormat, opts.MaxTicks)
	}
}

func TestHourTicks(t *testing.T) {
	day := 86400.0
	start := float64(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC).Unix())

	tests := []struct {
		name     string
		min, max float64
	}{
		{"eighty days", start, start + 80*day},
		{"one day", start + 1800, start + day},
		{"one hour", start, start + 3600},
		{"degenerate", start + 10, start + 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ticks := hourTicks{Max: 12}.Ticks(tt.min, tt.max)
			if len(ticks) == 0 || len(ticks) > 12 {
				t.Fatalf("ticks = %d, want 1..12", len(ticks))
			}
			for _, tk := range ticks {
				if tk.Label == "" {
					t.Error("major ticks need a label")
				}
				if tk.Value < tt.min || tk.Value > tt.max {
					t.Errorf("tick %v outside [%v, %v]", tk.Value, tt.min, tt.max)
				}
			}
			if len(ticks) > 1 && math.Mod(ticks[0].Value, 3600) != 0 {
				t.Errorf("tick %v not on an hour boundary", ticks[0].Value)
			}
		})
	}
}

func TestUnlabelled(t *testing.T) {
	ticks := unlabelled{hourTicks{Max: 5}}.Ticks(0, 86400)
	if len(ticks) == 0 {
		t.Fatal("expected tick positions")
	}
	for _, tk := range ticks {
		if tk.Label != "" {
			t.Errorf("label = %q, want empty", tk.Label)
		}
	}
}

func TestSegments(t *testing.T) {
	xs := []float64{1, 2, 3, 4, 5, 6}
	ys := []float64{10, math.NaN(), 30, 40, math.NaN(), math.NaN()}

	segs := segments(xs, ys)
	if len(segs) != 2 {
		t.Fatalf("segments = %d, want 2", len(segs))
	}
	if len(segs[0]) != 1 || len(segs[1]) != 2 {
		t.Errorf("segment lengths = %d, %d, want 1, 2", len(segs[0]), len(segs[1]))
	}
	if segs[1][0].X != 3 || segs[1][1].Y != 40 {
		t.Errorf("second segment = %v", segs[1])
	}
}

func TestPreview(t *testing.T) {
	src := sampleSource(20, "alpha", "bravo", "charlie", "delta", "echo", "foxtrot")
	src.values["bravo"] = make([]float64, 20)
	for i := range src.values["bravo"] {
		src.values["bravo"][i] = math.NaN()
	}

	out, err := Preview(src, PreviewOptions{Panels: 5, Width: 30, Height: 4})
	if err != nil {
		t.Fatalf("Preview() failed: %v", err)
	}

	for _, col := range []string{"alpha", "charlie", "delta", "echo"} {
		if !strings.Contains(out, col) {
			t.Errorf("preview missing panel %q", col)
		}
	}
	if !strings.Contains(out, "no data") {
		t.Error("all-missing column should render as no data")
	}
	if strings.Contains(out, "foxtrot") {
		t.Error("sixth column should be cut by the panel cap")
	}

	if _, err := Preview(sampleSource(0, "a"), DefaultPreviewOptions()); !errors.Is(err, ErrEmptySource) {
		t.Errorf("error = %v, want ErrEmptySource", err)
	}
}
