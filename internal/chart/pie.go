// Package chart converts equipment distribution counts into chart
// geometry. Every function is pure: same input, same output, no shared
// state, safe to call on every redraw.
package chart

import (
	"fmt"
	"math"

	"github.com/chemviz/chemviz/internal/api"
)

// Slice is one sector of the distribution pie chart.
type Slice struct {
	// Category is the equipment category the slice represents.
	Category string
	// Count is the category's item count.
	Count int
	// Percentage is the category's share of the total, formatted with
	// exactly one fractional digit (e.g. "75.0").
	Percentage string
	// StartAngle and EndAngle bound the sector in degrees. Angle 0
	// points up; angles grow clockwise.
	StartAngle float64
	EndAngle   float64
}

// Span returns the sector's angular width in degrees.
func (s Slice) Span() float64 {
	return s.EndAngle - s.StartAngle
}

// LargeArc returns the SVG large-arc flag for the sector: 1 when the
// sector spans more than 180 degrees, 0 otherwise.
func (s Slice) LargeArc() int {
	if s.Span() > 180 {
		return 1
	}
	return 0
}

// Slices maps distribution entries to pie sectors, one per entry in the
// given order. The sectors partition the full circle. A zero or
// negative total yields no slices, matching an empty distribution.
func Slices(entries []api.DistributionEntry, total int) []Slice {
	if total <= 0 || len(entries) == 0 {
		return nil
	}

	slices := make([]Slice, 0, len(entries))
	start := 0.0
	for _, e := range entries {
		span := float64(e.Count) / float64(total) * 360
		pct := float64(e.Count) / float64(total) * 100
		slices = append(slices, Slice{
			Category:   e.Category,
			Count:      e.Count,
			Percentage: fmt.Sprintf("%.1f", pct),
			StartAngle: start,
			EndAngle:   start + span,
		})
		start += span
	}
	return slices
}

// Total sums the entry counts.
func Total(entries []api.DistributionEntry) int {
	total := 0
	for _, e := range entries {
		total += e.Count
	}
	return total
}

// PolarToCartesian converts an angle on a circle of radius r centered
// at (cx, cy) to coordinates. The angle is rotated -90 degrees first so
// that 0 points up rather than right.
func PolarToCartesian(cx, cy, r, angleDegrees float64) (x, y float64) {
	rad := (angleDegrees - 90) * math.Pi / 180
	return cx + r*math.Cos(rad), cy + r*math.Sin(rad)
}

// PathData renders the slice as an SVG path: a line from the center to
// the arc's end point, the arc back to its start point, and a close.
// The sweep direction is fixed.
func (s Slice) PathData(cx, cy, r float64) string {
	startX, startY := PolarToCartesian(cx, cy, r, s.EndAngle)
	endX, endY := PolarToCartesian(cx, cy, r, s.StartAngle)
	return fmt.Sprintf("M %g %g L %g %g A %g %g 0 %d 0 %g %g Z",
		cx, cy, startX, startY, r, r, s.LargeArc(), endX, endY)
}
