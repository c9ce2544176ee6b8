package stats

import (
	"fmt"
	"math"

	mstats "github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"
)

// Alpha is the fixed significance level of the comparison and power analysis.
const Alpha = 0.05

// Comparison holds the result of comparing variant B against variant A.
type Comparison struct {
	Lift             float64 `json:"lift"`
	RelativeLift     float64 `json:"relative_lift"`
	TStatistic       float64 `json:"t_statistic"`
	PValue           float64 `json:"p_value"`
	DegreesOfFreedom float64 `json:"degrees_of_freedom"`
	CohensD          float64 `json:"cohens_d"`
	Significant      bool    `json:"significant"`
}

// Compare runs a pooled-variance Student's t-test of a against b and
// computes lift and Cohen's d of b over a.
//
// The t-statistic is oriented as (meanA − meanB)/se, the way a two-sample
// test of a against b reports it; Lift and CohensD are oriented B − A.
// Cohen's d uses population (ddof = 0) variances.
func Compare(a, b Sample) (Comparison, error) {
	if err := a.Validate(); err != nil {
		return Comparison{}, fmt.Errorf("group A: %w", err)
	}
	if err := b.Validate(); err != nil {
		return Comparison{}, fmt.Errorf("group B: %w", err)
	}
	if len(a)+len(b) < 3 {
		return Comparison{}, fmt.Errorf("%w: need at least 3 observations across both groups, got %d", ErrInvalidInput, len(a)+len(b))
	}

	da, db := a.float64s(), b.float64s()
	meanA, _ := mstats.Mean(da)
	meanB, _ := mstats.Mean(db)
	popVarA, _ := mstats.PopulationVariance(da)
	popVarB, _ := mstats.PopulationVariance(db)

	lift := meanB - meanA
	relativeLift := 0.0
	if meanA != 0 {
		relativeLift = lift / meanA
	}

	tStat, pValue, df := studentT(meanA, meanB, popVarA, popVarB, len(a), len(b))

	return Comparison{
		Lift:             lift,
		RelativeLift:     relativeLift,
		TStatistic:       tStat,
		PValue:           pValue,
		DegreesOfFreedom: df,
		CohensD:          ratio(lift, math.Sqrt((popVarA+popVarB)/2)),
		Significant:      pValue < Alpha,
	}, nil
}

// studentT returns the pooled two-sample t-statistic, its two-sided
// p-value and degrees of freedom. Population variances are converted to
// sums of squares so the pooled estimate has nA+nB−2 in the denominator.
func studentT(meanA, meanB, popVarA, popVarB float64, nA, nB int) (t, p, df float64) {
	na, nb := float64(nA), float64(nB)
	df = na + nb - 2

	pooled := (popVarA*na + popVarB*nb) / df
	se := math.Sqrt(pooled * (1/na + 1/nb))

	t = ratio(meanA-meanB, se)
	switch {
	case t == 0:
		return 0, 1, df
	case math.IsInf(t, 0):
		return t, 0, df
	}

	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	p = 2 * dist.Survival(math.Abs(t))
	if p > 1 {
		p = 1
	}
	return t, p, df
}

// ratio divides num by den, mapping a zero denominator to 0 when num is
// also zero and to a signed infinity otherwise, never NaN.
func ratio(num, den float64) float64 {
	if den == 0 {
		if num == 0 {
			return 0
		}
		return math.Inf(sign(num))
	}
	return num / den
}

func sign(x float64) int {
	if x < 0 {
		return -1
	}
	return 1
}
