package chart

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
)

const legendBarWidth = 24

// Legend renders slices as text lines with a proportional bar, suitable
// for terminal output:
//
//	Pump        12 (40.0%) ██████████
//
// width bounds the bar length; width <= 0 uses a default.
func Legend(slices []Slice, width int) string {
	if len(slices) == 0 {
		return "no distribution data"
	}
	if width <= 0 {
		width = legendBarWidth
	}

	// Label width and padding are in display cells, not bytes, so
	// multibyte category names keep the columns aligned.
	labelWidth := 0
	for _, s := range slices {
		if w := runewidth.StringWidth(s.Category); w > labelWidth {
			labelWidth = w
		}
	}

	var b strings.Builder
	for i, s := range slices {
		if i > 0 {
			b.WriteByte('\n')
		}
		bar := Bar(s.Span()/360, width)
		fmt.Fprintf(&b, "%s %4d (%s%%) %s", runewidth.FillRight(s.Category, labelWidth), s.Count, s.Percentage, bar)
	}
	return b.String()
}

// Bar renders a proportional bar of at most width cells. Fractions
// outside [0, 1] are clamped. A non-zero fraction always produces at
// least one cell so small categories remain visible.
func Bar(fraction float64, width int) string {
	if width <= 0 {
		return ""
	}
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	cells := int(fraction * float64(width))
	if cells == 0 && fraction > 0 {
		cells = 1
	}
	return strings.Repeat("█", cells)
}

// SVG renders a complete pie chart document for the given slices using
// the fixed palette of the dashboard. Used for report export.
func SVG(slices []Slice, size float64) string {
	if size <= 0 {
		size = 200
	}
	cx, cy, r := size/2, size/2, size*0.4

	var b strings.Builder
	fmt.Fprintf(&b, `<svg viewBox="0 0 %g %g" xmlns="http://www.w3.org/2000/svg">`, size, size)
	b.WriteByte('\n')
	for i, s := range slices {
		fmt.Fprintf(&b, `  <path d="%s" fill="%s" stroke="#fff" stroke-width="2"/>`,
			s.PathData(cx, cy, r), Palette[i%len(Palette)])
		b.WriteByte('\n')
	}
	b.WriteString("</svg>\n")
	return b.String()
}

// Palette holds the slice colors, in assignment order.
var Palette = []string{"#8366d9", "#3b82f6", "#06b6d4", "#10b981", "#f59e0b"}
