// Package report runs the statistics pipeline for one set of inputs and
// renders the result.
package report

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gkobilansky/ab-sim/internal/stats"
)

// Source says where the outcome samples came from.
type Source string

const (
	SourceSimulated Source = "simulated"
	SourceUpload    Source = "upload"
	SourceFile      Source = "file"
	SourceDatabase  Source = "database"
)

// Verdict summarizes the comparison for display.
type Verdict string

const (
	VerdictBetter         Verdict = "better"
	VerdictWorse          Verdict = "worse"
	VerdictNotSignificant Verdict = "not_significant"
)

// Input is everything one analysis needs.
type Input struct {
	Source Source
	A      stats.Sample
	B      stats.Sample
	Power  *stats.PowerQuery // optional
}

// Bar is one bar of the conversion-rate chart.
type Bar struct {
	Group string  `json:"group"`
	Rate  float64 `json:"rate"`
}

// Interpretation is the human-readable reading of a comparison.
type Interpretation struct {
	Verdict Verdict `json:"verdict"`
	Message string  `json:"message"`
}

// SampleSizeResult pairs a power query with its answer.
type SampleSizeResult struct {
	Query    stats.PowerQuery `json:"query"`
	PerGroup int              `json:"per_group"`
}

// Report is the complete, immutable result of one analysis.
type Report struct {
	ID             string
	Source         Source
	CreatedAt      time.Time
	A              stats.Group
	B              stats.Group
	Comparison     stats.Comparison
	Chart          []Bar
	Interpretation Interpretation
	SampleSize     *SampleSizeResult
}

// Build computes every statistic for in. Any failure aborts the whole
// report; no partial results are returned.
func Build(in Input) (*Report, error) {
	groupA, err := stats.GroupStats(in.A)
	if err != nil {
		return nil, fmt.Errorf("group A: %w", err)
	}
	groupB, err := stats.GroupStats(in.B)
	if err != nil {
		return nil, fmt.Errorf("group B: %w", err)
	}

	cmp, err := stats.Compare(in.A, in.B)
	if err != nil {
		return nil, err
	}

	var size *SampleSizeResult
	if in.Power != nil {
		n, err := stats.RequiredSampleSize(*in.Power)
		if err != nil {
			return nil, fmt.Errorf("sample size: %w", err)
		}
		size = &SampleSizeResult{Query: *in.Power, PerGroup: n}
	}

	chart := []Bar{
		{Group: "A", Rate: groupA.Mean},
		{Group: "B", Rate: groupB.Mean},
	}

	return &Report{
		ID:             uuid.NewString(),
		Source:         in.Source,
		CreatedAt:      time.Now().UTC(),
		A:              groupA,
		B:              groupB,
		Comparison:     cmp,
		Chart:          chart,
		Interpretation: Interpret(cmp),
		SampleSize:     size,
	}, nil
}

// Interpret turns a comparison into a verdict.
func Interpret(c stats.Comparison) Interpretation {
	switch {
	case !c.Significant:
		return Interpretation{VerdictNotSignificant, "No statistically significant difference detected."}
	case c.Lift > 0:
		return Interpretation{VerdictBetter, "Variant B performed significantly better than A."}
	default:
		return Interpretation{VerdictWorse, "Variant B underperformed significantly."}
	}
}

// SampleSizeSentence explains a sample-size answer in one line.
func SampleSizeSentence(s *SampleSizeResult) string {
	var what string
	switch {
	case s.Query.Scale == stats.EffectProportion:
		what = fmt.Sprintf("a %s lift from a %s baseline", formatPercent(s.Query.MDE), formatPercent(s.Query.Baseline))
	case s.Query.MDE < 1:
		what = fmt.Sprintf("a %s lift", formatPercent(s.Query.MDE))
	default:
		what = fmt.Sprintf("an effect size of %.2f", s.Query.MDE)
	}
	return fmt.Sprintf("To detect %s with %.0f%% power, you need ~%s users per group.",
		what, s.Query.Power*100, formatNumber(s.PerGroup))
}
