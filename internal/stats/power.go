package stats

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/integrate/quad"
	"gonum.org/v1/gonum/stat/distuv"
)

// EffectScale says how PowerQuery.MDE is interpreted.
type EffectScale string

const (
	// EffectStandardized treats the MDE directly as Cohen's d.
	EffectStandardized EffectScale = "standardized"
	// EffectProportion treats the MDE as an absolute lift over Baseline on
	// the probability scale and converts it to Cohen's h before solving.
	EffectProportion EffectScale = "proportion"
)

// Alternative is the sidedness of the hypothesis test.
type Alternative string

const TwoSided Alternative = "two-sided"

// PowerQuery describes a required-sample-size question.
type PowerQuery struct {
	MDE         float64     `json:"mde" yaml:"mde"`
	Power       float64     `json:"power" yaml:"power"`
	Alpha       float64     `json:"alpha" yaml:"alpha"`             // 0 means Alpha
	Alternative Alternative `json:"alternative" yaml:"alternative"` // "" means TwoSided
	Scale       EffectScale `json:"scale" yaml:"scale"`             // "" means EffectStandardized
	Baseline    float64     `json:"baseline,omitempty" yaml:"baseline"`
}

func (q PowerQuery) withDefaults() PowerQuery {
	if q.Alpha == 0 {
		q.Alpha = Alpha
	}
	if q.Alternative == "" {
		q.Alternative = TwoSided
	}
	if q.Scale == "" {
		q.Scale = EffectStandardized
	}
	return q
}

// Validate checks the query against the ranges the power function is
// defined on.
func (q PowerQuery) Validate() error {
	q = q.withDefaults()

	if math.IsNaN(q.MDE) || math.IsInf(q.MDE, 0) || q.MDE <= 0 {
		return fmt.Errorf("%w: minimum detectable effect must be a positive number, got %v", ErrInvalidInput, q.MDE)
	}
	if !(q.Alpha > 0 && q.Alpha < 1) {
		return fmt.Errorf("%w: alpha must be in (0, 1), got %v", ErrInvalidInput, q.Alpha)
	}
	if !(q.Power > q.Alpha && q.Power < 1) {
		return fmt.Errorf("%w: power must be in (%v, 1), got %v", ErrInvalidInput, q.Alpha, q.Power)
	}
	if q.Alternative != TwoSided {
		return fmt.Errorf("%w: unsupported alternative %q", ErrInvalidInput, q.Alternative)
	}

	switch q.Scale {
	case EffectStandardized:
	case EffectProportion:
		if !(q.Baseline >= 0 && q.Baseline <= 1) {
			return fmt.Errorf("%w: baseline rate must be in [0, 1], got %v", ErrInvalidInput, q.Baseline)
		}
		if q.Baseline+q.MDE > 1 {
			return fmt.Errorf("%w: baseline %v plus effect %v exceeds 1", ErrInvalidInput, q.Baseline, q.MDE)
		}
	default:
		return fmt.Errorf("%w: unknown effect scale %q", ErrInvalidInput, q.Scale)
	}
	return nil
}

// EffectSize returns the standardized effect size the solver works with.
func (q PowerQuery) EffectSize() float64 {
	q = q.withDefaults()
	if q.Scale == EffectProportion {
		return CohensH(q.Baseline, q.Baseline+q.MDE)
	}
	return q.MDE
}

// CohensH is the arcsine-transformed difference between two proportions.
func CohensH(p1, p2 float64) float64 {
	return 2*math.Asin(math.Sqrt(p2)) - 2*math.Asin(math.Sqrt(p1))
}

const (
	// minGroupSize is the smallest per-group n with positive degrees of freedom.
	minGroupSize = 2
	solverTol    = 1e-7
	quadNodes    = 256
	tailMass     = 1e-12
)

// RequiredSampleSize returns the per-group sample size an independent
// two-sample t-test with equal groups needs to reach q.Power at q.Alpha,
// rounded down from the continuous solution.
func RequiredSampleSize(q PowerQuery) (int, error) {
	if err := q.Validate(); err != nil {
		return 0, err
	}
	q = q.withDefaults()
	d := q.EffectSize()

	power := func(n float64) float64 { return TTestIndPower(d, n, q.Alpha) }

	lo := float64(minGroupSize)
	if power(lo) >= q.Power {
		return minGroupSize, nil
	}

	// Start from the normal approximation and widen until bracketed.
	z := distuv.UnitNormal
	zSum := z.Quantile(1-q.Alpha/2) + z.Quantile(q.Power)
	hi := math.Max(2*zSum*zSum/(d*d), lo+1)
	for power(hi) < q.Power {
		lo = hi
		hi *= 2
		if math.IsInf(hi, 0) {
			return 0, fmt.Errorf("%w: effect size %v too small to solve for", ErrInvalidInput, d)
		}
	}

	for hi-lo > solverTol*math.Max(1, lo) {
		mid := lo + (hi-lo)/2
		if power(mid) < q.Power {
			lo = mid
		} else {
			hi = mid
		}
	}

	n := lo + (hi-lo)/2
	if n > math.MaxInt32 {
		return 0, fmt.Errorf("%w: required sample size %.0f is out of range", ErrInvalidInput, n)
	}
	return int(math.Floor(n)), nil
}

// TTestIndPower returns the power of a two-sided independent two-sample
// t-test with n observations per group, effect size d and level alpha.
func TTestIndPower(d, n, alpha float64) float64 {
	df := 2*n - 2
	nc := d * math.Sqrt(n/2)
	crit := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}.Quantile(1 - alpha/2)
	return nctTwoSidedTail(crit, df, nc)
}

// nctTwoSidedTail returns P(T > crit) + P(T < −crit) for T noncentral-t
// with df degrees of freedom and noncentrality nc.
//
// With T = (Z + nc)/√(X/df), Z standard normal and X ~ χ²(df),
// P(T > c) = E[Φ(nc − c·√(X/df))] and P(T < −c) = E[Φ(−nc − c·√(X/df))].
// The expectation over X is integrated on its central 1−2e-12 mass.
func nctTwoSidedTail(crit, df, nc float64) float64 {
	chi := distuv.ChiSquared{K: df}
	lo, hi := chi.Quantile(tailMass), chi.Quantile(1-tailMass)

	phi := distuv.UnitNormal
	f := func(x float64) float64 {
		s := crit * math.Sqrt(x/df)
		return (phi.CDF(nc-s) + phi.CDF(-nc-s)) * chi.Prob(x)
	}
	p := quad.Fixed(f, lo, hi, quadNodes, quad.Legendre{}, 0)
	return math.Min(math.Max(p, 0), 1)
}
