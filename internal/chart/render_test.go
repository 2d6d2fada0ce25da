package chart

import (
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"

	"github.com/chemviz/chemviz/internal/api"
)

func TestBars(t *testing.T) {
	bars := Bars([]string{"Flowrate", "Pressure", "Temperature"}, []float64{125.5, 250, 62.75})
	if len(bars) != 3 {
		t.Fatalf("len(bars) = %d; want 3", len(bars))
	}
	if bars[1].Height != 1 {
		t.Errorf("tallest bar height = %v; want 1", bars[1].Height)
	}
	if bars[0].Height != 125.5/250 {
		t.Errorf("bars[0].Height = %v; want %v", bars[0].Height, 125.5/250)
	}
	if bars[2].Label != "Temperature" || bars[2].Value != 62.75 {
		t.Errorf("bars[2] = %+v; want label Temperature, value 62.75", bars[2])
	}
}

func TestBars_NegativeAndZero(t *testing.T) {
	bars := Bars([]string{"a", "b"}, []float64{-4, 10})
	if bars[0].Height != 0 {
		t.Errorf("negative value height = %v; want 0", bars[0].Height)
	}

	zero := Bars([]string{"a", "b"}, []float64{0, 0})
	for i, b := range zero {
		if b.Height != 0 {
			t.Errorf("all-zero input: bars[%d].Height = %v; want 0", i, b.Height)
		}
	}
}

func TestBar(t *testing.T) {
	if got := Bar(0.5, 10); got != strings.Repeat("█", 5) {
		t.Errorf("Bar(0.5, 10) = %q; want 5 cells", got)
	}
	if got := Bar(0, 10); got != "" {
		t.Errorf("Bar(0, 10) = %q; want empty", got)
	}
	// Tiny but non-zero fractions stay visible.
	if got := Bar(0.001, 10); got != "█" {
		t.Errorf("Bar(0.001, 10) = %q; want one cell", got)
	}
	if got := Bar(2, 4); got != strings.Repeat("█", 4) {
		t.Errorf("Bar(2, 4) = %q; want clamped to width", got)
	}
}

func TestLegend(t *testing.T) {
	slices := Slices([]api.DistributionEntry{
		{Category: "Pump", Count: 3},
		{Category: "Heat Exchanger", Count: 1},
	}, 4)

	out := Legend(slices, 20)
	lines := strings.Split(out, "\n")
	if len(lines) != 2 {
		t.Fatalf("legend has %d lines; want 2:\n%s", len(lines), out)
	}
	if !strings.Contains(lines[0], "Pump") || !strings.Contains(lines[0], "(75.0%)") {
		t.Errorf("first line = %q; want Pump at 75.0%%", lines[0])
	}
	if !strings.Contains(lines[1], "Heat Exchanger") || !strings.Contains(lines[1], "(25.0%)") {
		t.Errorf("second line = %q; want Heat Exchanger at 25.0%%", lines[1])
	}
}

func TestLegend_AlignsMultibyteLabels(t *testing.T) {
	slices := Slices([]api.DistributionEntry{
		{Category: "Heat Exchanger", Count: 3},
		{Category: "泵", Count: 1},
	}, 4)

	lines := strings.Split(Legend(slices, 20), "\n")
	if len(lines) != 2 {
		t.Fatalf("legend has %d lines; want 2", len(lines))
	}

	// Both count columns start at the same display cell: labels are
	// padded by display width, not byte length.
	wide := strings.Index(lines[0], "   3 ")
	narrow := strings.Index(lines[1], "   1 ")
	if wide < 0 || narrow < 0 {
		t.Fatalf("count columns not found:\n%s\n%s", lines[0], lines[1])
	}
	if got := runewidth.StringWidth(lines[0][:wide]); got != runewidth.StringWidth(lines[1][:narrow]) {
		t.Errorf("label columns misaligned: %d vs %d display cells",
			got, runewidth.StringWidth(lines[1][:narrow]))
	}
	if !strings.HasPrefix(lines[1], runewidth.FillRight("泵", runewidth.StringWidth("Heat Exchanger"))) {
		t.Errorf("narrow label not padded to the widest label: %q", lines[1])
	}
}

func TestLegend_Empty(t *testing.T) {
	if got := Legend(nil, 20); got != "no distribution data" {
		t.Errorf("Legend(nil) = %q", got)
	}
}

func TestSVG(t *testing.T) {
	slices := Slices([]api.DistributionEntry{
		{Category: "Pump", Count: 2},
		{Category: "Valve", Count: 2},
	}, 4)

	doc := SVG(slices, 200)
	if !strings.HasPrefix(doc, `<svg viewBox="0 0 200 200"`) {
		t.Errorf("unexpected document start: %q", doc[:min(len(doc), 40)])
	}
	if got := strings.Count(doc, "<path "); got != 2 {
		t.Errorf("document has %d paths; want 2", got)
	}
	if !strings.Contains(doc, Palette[0]) || !strings.Contains(doc, Palette[1]) {
		t.Errorf("document missing palette colors:\n%s", doc)
	}
	if !strings.HasSuffix(doc, "</svg>\n") {
		t.Errorf("document not closed:\n%s", doc)
	}
}
