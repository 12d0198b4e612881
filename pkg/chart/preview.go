package chart

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
)

// PreviewOptions controls the terminal preview.
type PreviewOptions struct {
	// Panels caps how many columns are drawn.
	Panels int
	// Width and Height of each panel in terminal cells.
	Width, Height int
	// Colors are applied to panel titles in turn.
	Colors []lipgloss.Color
}

// DefaultPreviewOptions mirrors the image layout at terminal size.
func DefaultPreviewOptions() PreviewOptions {
	return PreviewOptions{
		Panels: 5,
		Width:  72,
		Height: 6,
		Colors: []lipgloss.Color{"#ff00ff", "#0000ff", "#ff8c00", "#32cd32", "#ffffff"},
	}
}

var emptyPanelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true)

// Preview renders each column of src as an ASCII line chart with a styled
// title. Gaps are left where values are missing.
func Preview(src Source, opts PreviewOptions) (string, error) {
	def := DefaultPreviewOptions()
	if opts.Panels <= 0 {
		opts.Panels = def.Panels
	}
	if opts.Width < 20 {
		opts.Width = def.Width
	}
	if opts.Height < 3 {
		opts.Height = def.Height
	}
	if len(opts.Colors) == 0 {
		opts.Colors = def.Colors
	}

	columns := src.Columns()
	if len(src.Times()) == 0 || len(columns) == 0 {
		return "", ErrEmptySource
	}
	if len(columns) > opts.Panels {
		columns = columns[:opts.Panels]
	}

	var b strings.Builder
	for i, col := range columns {
		title := lipgloss.NewStyle().
			Bold(true).
			Foreground(opts.Colors[i%len(opts.Colors)]).
			Render(col)
		b.WriteString(title)
		b.WriteString("\n")

		values := src.Values(col)
		if !hasNumber(values) {
			b.WriteString(emptyPanelStyle.Render("no data"))
			b.WriteString("\n\n")
			continue
		}

		b.WriteString(asciigraph.Plot(values,
			asciigraph.Height(opts.Height),
			asciigraph.Width(opts.Width),
		))
		b.WriteString("\n\n")
	}

	return strings.TrimRight(b.String(), "\n") + "\n", nil
}

func hasNumber(values []float64) bool {
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			return true
		}
	}
	return false
}
