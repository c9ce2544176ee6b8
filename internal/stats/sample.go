package stats

import (
	"errors"
	"fmt"
	"math"

	mstats "github.com/montanaflynn/stats"
)

// ErrInvalidInput is returned (wrapped) by every operation that is given
// data it cannot compute a statistic for.
var ErrInvalidInput = errors.New("invalid input")

// waldZ is the z-score of the hard-coded 95% Wald interval.
const waldZ = 1.96

// Sample is an ordered sequence of binary outcomes (0 or 1) for one group.
type Sample []int

// Validate reports whether the sample is non-empty and strictly binary.
func (s Sample) Validate() error {
	if len(s) == 0 {
		return fmt.Errorf("%w: sample is empty", ErrInvalidInput)
	}
	for i, v := range s {
		if v != 0 && v != 1 {
			return fmt.Errorf("%w: outcome %d at index %d is not 0 or 1", ErrInvalidInput, v, i)
		}
	}
	return nil
}

// Conversions returns the number of 1 outcomes.
func (s Sample) Conversions() int {
	n := 0
	for _, v := range s {
		n += v
	}
	return n
}

func (s Sample) float64s() mstats.Float64Data {
	data := make(mstats.Float64Data, len(s))
	for i, v := range s {
		data[i] = float64(v)
	}
	return data
}

// Group contains the descriptive statistics for a single variant
type Group struct {
	N           int     `json:"n"`
	Conversions int     `json:"conversions"`
	Mean        float64 `json:"mean"`
	CILower     float64 `json:"ci_lower"`
	CIUpper     float64 `json:"ci_upper"`
	WilsonLower float64 `json:"wilson_lower"`
	WilsonUpper float64 `json:"wilson_upper"`
}

// Margin returns half the width of the Wald interval.
func (g Group) Margin() float64 {
	return (g.CIUpper - g.CILower) / 2
}

// GroupStats computes the conversion rate of a sample and its 95% Wald
// interval p ± 1.96·√(p(1−p)/n), without continuity correction or clamping.
// The Wilson interval is computed alongside for display.
func GroupStats(s Sample) (Group, error) {
	if err := s.Validate(); err != nil {
		return Group{}, err
	}

	mean, err := mstats.Mean(s.float64s())
	if err != nil {
		return Group{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	n := len(s)
	margin := waldZ * math.Sqrt(mean*(1-mean)/float64(n))

	conversions := s.Conversions()
	wLower, wUpper := WilsonInterval(conversions, n, 0.95)

	return Group{
		N:           n,
		Conversions: conversions,
		Mean:        mean,
		CILower:     mean - margin,
		CIUpper:     mean + margin,
		WilsonLower: wLower,
		WilsonUpper: wUpper,
	}, nil
}
