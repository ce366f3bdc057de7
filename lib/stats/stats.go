/*package stats accumulates per-sample statistics across traces in a single
pass. Accumulation is always done in float64 using Welford's update, so the
result is stable for large trace counts and never needs a second pass over
the file.
*/
package stats

import (
	"fmt"
)

// RunningStat is the running mean and sum of squared deviations for one
// sample position.
type RunningStat struct {
	Count uint32
	Mean  float64
	M2    float64
}

// Add folds one value into the statistic.
func (s *RunningStat) Add(x float64) {
	s.Count++
	delta := x - s.Mean
	s.Mean += delta / float64(s.Count)
	s.M2 += delta * (x - s.Mean)
}

// Variance returns the unbiased sample variance, or 0 if fewer than two
// values have been added.
func (s *RunningStat) Variance() float64 {
	if s.Count <= 1 {
		return 0
	}
	return s.M2 / float64(s.Count-1)
}

// Summary is the output of the reducer for one sample position.
type Summary struct {
	Sample   int
	Mean     float64
	Variance float64
}

// Reducer holds one RunningStat for every sample in [xMin, xMax).
type Reducer struct {
	xMin  int
	stats []RunningStat
}

// NewReducer creates a Reducer for the sample range [xMin, xMax).
func NewReducer(xMin, xMax int) *Reducer {
	if xMax < xMin {
		panic(fmt.Sprintf("Internal error: NewReducer given the range "+
			"[%d, %d).", xMin, xMax))
	}
	return &Reducer{xMin: xMin, stats: make([]RunningStat, xMax-xMin)}
}

func (r *Reducer) stat(sample int) *RunningStat {
	i := sample - r.xMin
	if i < 0 || i >= len(r.stats) {
		panic(fmt.Sprintf("Internal error: sample %d is outside the "+
			"reducer's range [%d, %d).", sample, r.xMin, r.xMin+len(r.stats)))
	}
	return &r.stats[i]
}

// Add adds the value of sample in one trace.
func (r *Reducer) Add(sample int, x float64) { r.stat(sample).Add(x) }

// Summary returns the current mean and variance of sample.
func (r *Reducer) Summary(sample int) Summary {
	s := r.stat(sample)
	return Summary{Sample: sample, Mean: s.Mean, Variance: s.Variance()}
}

// Summaries returns the summary of every sample in order.
func (r *Reducer) Summaries() []Summary {
	out := make([]Summary, len(r.stats))
	for i := range out {
		out[i] = r.Summary(r.xMin + i)
	}
	return out
}
