package stats

import (
	"encoding/json"
	"math"
)

// Stats holds the latency aggregates reported for one scanner log
type Stats struct {
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Mean     float64 `json:"mean"`
	Variance float64 `json:"variance"`
}

// Empty returns the stats of a log that has seen no samples
func Empty() Stats {
	return Stats{Min: math.Inf(1)}
}

type statsJSON struct {
	Min      *float64 `json:"min"`
	Max      float64  `json:"max"`
	Mean     float64  `json:"mean"`
	Variance float64  `json:"variance"`
}

// MarshalJSON encodes an infinite min as null, since JSON has no infinity
func (s Stats) MarshalJSON() ([]byte, error) {
	out := statsJSON{Max: s.Max, Mean: s.Mean, Variance: s.Variance}
	if !math.IsInf(s.Min, 0) {
		v := s.Min
		out.Min = &v
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a null min back to +Inf
func (s *Stats) UnmarshalJSON(data []byte) error {
	var in statsJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	s.Min = math.Inf(1)
	if in.Min != nil {
		s.Min = *in.Min
	}
	s.Max = in.Max
	s.Mean = in.Mean
	s.Variance = in.Variance
	return nil
}

// Accumulator keeps running min, max, mean and population variance of a
// sample stream using Welford's online method. Raw samples are never kept.
type Accumulator struct {
	stats Stats
	count uint64
	m2    float64
}

// NewAccumulator creates an accumulator in its reset state
func NewAccumulator() *Accumulator {
	return &Accumulator{stats: Empty()}
}

// Restore rebuilds an accumulator from previously reported aggregates over
// count samples, so that later updates continue the same series.
func Restore(s Stats, count uint64) *Accumulator {
	if count == 0 {
		return NewAccumulator()
	}
	return &Accumulator{
		stats: s,
		count: count,
		m2:    s.Variance * float64(count),
	}
}

// Update incorporates one sample
func (a *Accumulator) Update(sample float64) {
	a.count++
	delta := sample - a.stats.Mean
	a.stats.Mean += delta / float64(a.count)
	a.m2 += delta * (sample - a.stats.Mean)
	a.stats.Variance = a.m2 / float64(a.count)

	// max starts at 0, so the first sample sets both bounds outright
	if a.count == 1 {
		a.stats.Min = sample
		a.stats.Max = sample
		return
	}
	if sample < a.stats.Min {
		a.stats.Min = sample
	}
	if sample > a.stats.Max {
		a.stats.Max = sample
	}
}

// Reset returns the accumulator to min=+Inf, max=0, mean=0, variance=0
func (a *Accumulator) Reset() {
	a.stats = Empty()
	a.count = 0
	a.m2 = 0
}

// Stats returns the current aggregates
func (a *Accumulator) Stats() Stats {
	return a.stats
}

// Count returns the number of samples seen since the last reset
func (a *Accumulator) Count() uint64 {
	return a.count
}
