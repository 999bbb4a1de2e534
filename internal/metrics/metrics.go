// Package metrics scores reaching episodes tick by tick.
package metrics

// Sample is what a metric sees on one tick.
type Sample struct {
	Time       float64
	Distance   float64
	Reward     float64
	Done       bool
	Velocities []float64
}

type Metric interface {
	Name() string
	Observe(s Sample)
	Value() float64
	Reset()
}

// Default returns the standard episode metrics.
func Default(tolerance float64) []Metric {
	return []Metric{
		NewMeanDistance(),
		NewFinalDistance(),
		NewSuccessRate(tolerance),
		NewReturn(),
		NewControlEffort(),
	}
}

// Collect returns the current value of every metric by name.
func Collect(ms []Metric) map[string]float64 {
	out := make(map[string]float64, len(ms))
	for _, m := range ms {
		out[m.Name()] = m.Value()
	}
	return out
}

// ObserveAll feeds s to every metric.
func ObserveAll(ms []Metric, s Sample) {
	for _, m := range ms {
		m.Observe(s)
	}
}

// ResetAll clears every metric.
func ResetAll(ms []Metric) {
	for _, m := range ms {
		m.Reset()
	}
}
