package metrics

import "math"

// Stability is the fraction of samples whose state stays bounded by limit in
// every component. NaN and Inf count as unbounded.
type Stability struct {
	limit   float64
	total   int
	escaped int

	firstEscape    float64
	hasFirstEscape bool
}

func NewStability(limit float64) *Stability {
	return &Stability{limit: limit}
}

func (s *Stability) Name() string { return "stability" }

func (s *Stability) Observe(sm Sample) {
	s.total++
	if bounded(sm.State, s.limit) {
		return
	}
	s.escaped++
	if !s.hasFirstEscape {
		s.firstEscape = sm.Time
		s.hasFirstEscape = true
	}
}

func (s *Stability) Value() float64 {
	if s.total == 0 {
		return 1
	}
	return float64(s.total-s.escaped) / float64(s.total)
}

// FirstEscape reports the time of the first unbounded sample.
func (s *Stability) FirstEscape() (float64, bool) {
	return s.firstEscape, s.hasFirstEscape
}

func (s *Stability) Reset() {
	*s = Stability{limit: s.limit}
}

func bounded(state []float64, limit float64) bool {
	for _, v := range state {
		if !(math.Abs(v) <= limit) {
			return false
		}
	}
	return true
}
