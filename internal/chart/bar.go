package chart

// BarValue is one bar of the metrics bar chart.
type BarValue struct {
	Label string
	Value float64
	// Height is the bar height as a fraction of the tallest bar,
	// in [0, 1].
	Height float64
}

// Bars scales named values against their maximum. Values are clamped at
// zero; an all-zero or empty input yields bars of height zero.
func Bars(labels []string, values []float64) []BarValue {
	n := len(labels)
	if len(values) < n {
		n = len(values)
	}

	max := 0.0
	for i := 0; i < n; i++ {
		if values[i] > max {
			max = values[i]
		}
	}

	bars := make([]BarValue, 0, n)
	for i := 0; i < n; i++ {
		v := values[i]
		if v < 0 {
			v = 0
		}
		h := 0.0
		if max > 0 {
			h = v / max
		}
		bars = append(bars, BarValue{Label: labels[i], Value: values[i], Height: h})
	}
	return bars
}
