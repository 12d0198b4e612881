package chart

import (
	"math"
	"strconv"

	"gonum.org/v1/plot"
)

// Candidate spacings for time ticks, in seconds.
var tickSteps = []float64{
	3600, 2 * 3600, 3 * 3600, 6 * 3600, 12 * 3600,
	86400, 2 * 86400, 3 * 86400, 7 * 86400, 14 * 86400, 28 * 86400,
}

// hourTicks places at most Max major ticks on whole-hour boundaries of
// Unix seconds. Labels are placeholders for plot.TimeTicks to replace.
type hourTicks struct {
	Max int
}

// Ticks implements plot.Ticker.
func (h hourTicks) Ticks(min, max float64) []plot.Tick {
	n := h.Max
	if n < 2 {
		n = 2
	}
	if max < min {
		min, max = max, min
	}

	step := tickStep((max - min) / float64(n-1))
	first := math.Ceil(min/step) * step

	var ticks []plot.Tick
	for v := first; v <= max && len(ticks) < n; v += step {
		ticks = append(ticks, plot.Tick{Value: v, Label: strconv.FormatFloat(v, 'f', 0, 64)})
	}
	if len(ticks) == 0 {
		ticks = append(ticks, plot.Tick{Value: min, Label: strconv.FormatFloat(min, 'f', 0, 64)})
	}
	return ticks
}

func tickStep(raw float64) float64 {
	for _, s := range tickSteps {
		if s >= raw {
			return s
		}
	}
	last := tickSteps[len(tickSteps)-1]
	return math.Ceil(raw/last) * last
}

// unlabelled keeps tick positions but drops their labels.
type unlabelled struct {
	plot.Ticker
}

// Ticks implements plot.Ticker.
func (u unlabelled) Ticks(min, max float64) []plot.Tick {
	ticks := u.Ticker.Ticks(min, max)
	for i := range ticks {
		ticks[i].Label = ""
	}
	return ticks
}
