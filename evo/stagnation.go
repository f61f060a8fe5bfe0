package evo

import "math"

// Stagnation tracks how many generations have passed since the best-ever
// fitness last improved.
type Stagnation struct {
	MaxStagnation int // 0 disables the limit
	best          float64
	since         int
}

// NewStagnation creates a tracker that reports stagnation after maxStagnation
// generations without improvement.
func NewStagnation(maxStagnation int) *Stagnation {
	return &Stagnation{MaxStagnation: maxStagnation, best: math.Inf(-1)}
}

// Update records the best-ever fitness after a generation and reports whether
// the run has stagnated.
func (s *Stagnation) Update(bestEver float64) bool {
	if bestEver > s.best {
		s.best = bestEver
		s.since = 0
	} else {
		s.since++
	}
	return s.Stagnant()
}

// Stagnant reports whether the limit has been reached.
func (s *Stagnation) Stagnant() bool {
	return s.MaxStagnation > 0 && s.since >= s.MaxStagnation
}

// GenerationsSinceImprovement returns the current stagnation count.
func (s *Stagnation) GenerationsSinceImprovement() int {
	return s.since
}
