package swap

import (
	"fmt"
	"math"
	"math/rand"

	logx "mimicbot/pkg/logx"
)

// Selector draws one user from a ranked candidate list, biased toward the
// front (the most active speakers).
type Selector struct {
	// uniform and pick are injectable for tests; defaults use math/rand.
	uniform func() float64
	pick    func(n int) int
	log     logx.Logger
}

func NewSelector(log logx.Logger) *Selector {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Selector{uniform: rand.Float64, pick: rand.Intn, log: log}
}

// Select returns the chosen user id, or ok=false for an empty list.
//
// A single candidate is returned directly. Otherwise one expovariate(lambda)
// sample is mapped onto the list by index = floor(sample * n), clamped to
// the last element. The mapping is a deliberate heuristic: it is not an
// inverse-CDF draw of a bounded distribution, and for small n its
// front-loading differs from a true rank-weighted scheme. Keep the shape
// as-is; deployed groups are tuned to it. If the draw itself fails (bad
// lambda), fall back to a uniform pick.
func (s *Selector) Select(ranked []string, lambda float64) (string, bool) {
	n := len(ranked)
	if n == 0 {
		return "", false
	}
	if n == 1 {
		return ranked[0], true
	}

	sample, err := expovariate(lambda, s.uniform)
	if err != nil {
		s.log.Warn("weighted draw failed; falling back to uniform pick", logx.Err(err))
		return ranked[s.pick(n)], true
	}

	idx := int(sample * float64(n))
	if idx >= n {
		idx = n - 1
	}
	if idx < 0 {
		idx = 0
	}
	return ranked[idx], true
}

// expovariate returns one sample from an exponential distribution with rate
// lambda, derived from a single uniform draw by inversion.
func expovariate(lambda float64, uniform func() float64) (float64, error) {
	if lambda <= 0 {
		return 0, fmt.Errorf("lambda must be > 0, got %v", lambda)
	}
	u := uniform()
	if u >= 1 {
		u = math.Nextafter(1, 0)
	}
	if u < 0 {
		u = 0
	}
	return -math.Log(1-u) / lambda, nil
}
