package metrics

import "gonum.org/v1/gonum/floats"

// MeanDistance averages the point RMSE over the episode.
type MeanDistance struct {
	values []float64
}

func NewMeanDistance() *MeanDistance { return &MeanDistance{} }

func (m *MeanDistance) Name() string     { return "mean_distance" }
func (m *MeanDistance) Observe(s Sample) { m.values = append(m.values, s.Distance) }
func (m *MeanDistance) Reset()           { m.values = m.values[:0] }

func (m *MeanDistance) Value() float64 {
	if len(m.values) == 0 {
		return 0
	}
	return floats.Sum(m.values) / float64(len(m.values))
}

// FinalDistance is the point RMSE on the last tick.
type FinalDistance struct {
	last float64
}

func NewFinalDistance() *FinalDistance { return &FinalDistance{} }

func (f *FinalDistance) Name() string     { return "final_distance" }
func (f *FinalDistance) Observe(s Sample) { f.last = s.Distance }
func (f *FinalDistance) Value() float64   { return f.last }
func (f *FinalDistance) Reset()           { f.last = 0 }

// SuccessRate is the fraction of ticks within tolerance of the targets.
type SuccessRate struct {
	tolerance float64
	hits      int
	samples   int
}

func NewSuccessRate(tolerance float64) *SuccessRate {
	return &SuccessRate{tolerance: tolerance}
}

func (s *SuccessRate) Name() string { return "success_rate" }

func (s *SuccessRate) Observe(x Sample) {
	s.samples++
	if x.Done || x.Distance < s.tolerance {
		s.hits++
	}
}

func (s *SuccessRate) Value() float64 {
	if s.samples == 0 {
		return 0
	}
	return float64(s.hits) / float64(s.samples)
}

func (s *SuccessRate) Reset() {
	s.hits = 0
	s.samples = 0
}

// Return sums the rewards.
type Return struct {
	sum float64
}

func NewReturn() *Return { return &Return{} }

func (r *Return) Name() string     { return "return" }
func (r *Return) Observe(s Sample) { r.sum += s.Reward }
func (r *Return) Value() float64   { return r.sum }
func (r *Return) Reset()           { r.sum = 0 }
