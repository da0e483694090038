package pearson3

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// Below this skewness the gamma shape parameter 4/Cs² overflows any useful
// range and the P-III distribution is indistinguishable from the normal.
const normalSkewLimit = 1e-8

// Curve is a fitted P-III distribution, parameterized by its moments: mean
// discharge, coefficient of variation and skewness. It is an immutable value
// object; moment-estimated and refined curves coexist as separate values.
type Curve struct {
	Mean float64
	CV   float64
	CS   float64
}

// ValueFromProb returns the discharge whose exceedance probability is p.
// Out-of-range probabilities yield NaN rather than an error, so the function
// can be evaluated over dense grids by plotting layers.
func (c Curve) ValueFromProb(p float64) float64 {
	return (standardQuantile(1-p, c.CS)*c.CV + 1) * c.Mean
}

// ProbFromValue returns the exceedance probability of the given discharge.
func (c Curve) ProbFromValue(v float64) float64 {
	return 1 - standardCDF((v/c.Mean-1)/c.CV, c.CS)
}

// standardQuantile is the quantile function of the standardized P-III
// distribution (zero mean, unit variance, skewness skew). NaN outside [0,1].
func standardQuantile(p, skew float64) float64 {
	if math.IsNaN(p) || p < 0 || p > 1 {
		return math.NaN()
	}
	if math.Abs(skew) < normalSkewLimit {
		return distuv.UnitNormal.Quantile(p)
	}

	alpha := 4 / (skew * skew)
	gamma := distuv.Gamma{Alpha: alpha, Beta: 1}

	// For negative skew the variate decreases in the underlying gamma, so the
	// quantile reflects.
	q := p
	if skew < 0 {
		q = 1 - p
	}
	return (gamma.Quantile(q) - alpha) * skew / 2
}

// standardCDF is the CDF of the standardized P-III distribution.
func standardCDF(x, skew float64) float64 {
	if math.Abs(skew) < normalSkewLimit {
		return distuv.UnitNormal.CDF(x)
	}

	alpha := 4 / (skew * skew)
	gamma := distuv.Gamma{Alpha: alpha, Beta: 1}

	// Map onto the gamma variate: y = (x - zeta) * beta with beta = 2/skew
	// and zeta = -2/skew, so y = x*beta + alpha. Outside the support y is
	// negative and the gamma CDF clamps to 0.
	y := x*2/skew + alpha
	if y < 0 {
		y = 0
	}
	if skew > 0 {
		return gamma.CDF(y)
	}
	return 1 - gamma.CDF(y)
}
