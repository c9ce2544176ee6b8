package stats_test

import (
	"errors"
	"math"
	"testing"

	"github.com/gkobilansky/ab-sim/internal/stats"
)

func repeat(v, n int) stats.Sample {
	s := make(stats.Sample, n)
	for i := range s {
		s[i] = v
	}
	return s
}

func TestGroupStats_AllOnes(t *testing.T) {
	for _, n := range []int{1, 7, 1000} {
		g, err := stats.GroupStats(repeat(1, n))
		if err != nil {
			t.Fatalf("n=%d: unexpected error: %v", n, err)
		}
		if g.Mean != 1.0 {
			t.Errorf("n=%d: mean = %f, want 1", n, g.Mean)
		}
		if g.Margin() != 0 || g.CILower != 1 || g.CIUpper != 1 {
			t.Errorf("n=%d: expected degenerate interval, got [%f, %f]", n, g.CILower, g.CIUpper)
		}
		if g.Conversions != n {
			t.Errorf("n=%d: conversions = %d", n, g.Conversions)
		}
	}
}

func TestGroupStats_AllZeros(t *testing.T) {
	g, err := stats.GroupStats(repeat(0, 250))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.Mean != 0 || g.Margin() != 0 {
		t.Errorf("expected mean 0 and zero margin, got mean %f margin %f", g.Mean, g.Margin())
	}
	// Wilson still reports uncertainty where Wald collapses
	if g.WilsonUpper <= 0 {
		t.Errorf("expected positive Wilson upper bound, got %f", g.WilsonUpper)
	}
}

func TestGroupStats_WaldInterval(t *testing.T) {
	// 100 conversions out of 1000
	s := append(repeat(1, 100), repeat(0, 900)...)
	g, err := stats.GroupStats(s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantMargin := 1.96 * math.Sqrt(0.1*0.9/1000)
	if math.Abs(g.Mean-0.1) > 1e-12 {
		t.Errorf("mean = %f, want 0.1", g.Mean)
	}
	if math.Abs(g.CILower-(0.1-wantMargin)) > 1e-12 || math.Abs(g.CIUpper-(0.1+wantMargin)) > 1e-12 {
		t.Errorf("interval [%f, %f], want 0.1 ± %f", g.CILower, g.CIUpper, wantMargin)
	}
}

func TestGroupStats_Empty(t *testing.T) {
	_, err := stats.GroupStats(stats.Sample{})
	if !errors.Is(err, stats.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for empty sample, got %v", err)
	}
}

func TestGroupStats_NonBinary(t *testing.T) {
	_, err := stats.GroupStats(stats.Sample{0, 1, 2})
	if !errors.Is(err, stats.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for non-binary sample, got %v", err)
	}
}
