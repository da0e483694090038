// Package pearson3 implements Pearson Type III flood-frequency analysis.
//
// # Method
//
// Annual peak discharges are ranked in descending order and assigned
// empirical exceedance probabilities by the Weibull plotting-position
// formula P(m) = m/(n+1). When a gauged record is extended with historical
// floods, the series is split into an extreme partition (ranked against the
// full survey period N) and an ordinary partition (the remaining gauged
// record, rescaled into the probability mass left after the extreme
// partition):
//
//	extreme:  P(m) = m / (N+1)                         m = 1..a
//	ordinary: P(m) = P(a) + (1-P(a)) * m / (l+1)       m = 1..l
//
// Distribution parameters are the moments (mean, Cv, Cs). With a historical
// extension, ordinary records each stand in for r = (N-a)/l years of the
// survey period and the product-moment formulas are weighted accordingly.
// The moment estimates seed a nonlinear least-squares refinement that fits
// the P-III quantile function against the empirical (probability, value)
// pairs, the computational analogue of manual curve fitting on probability
// paper.
//
// # P-III parameterization
//
// The standardized P-III variate (zero mean, unit variance, skewness Cs) is
// a shifted gamma: for Cs != 0, with alpha = 4/Cs², beta = 2/Cs and
// zeta = -2/Cs, the variate is zeta + G/beta where G ~ Gamma(alpha, 1).
// As Cs -> 0 the distribution tends to the standard normal, which is used
// below |Cs| = 1e-8. A discharge quantile for exceedance probability p is
//
//	Q(p) = (phi(1-p; Cs) * Cv + 1) * mean
//
// where phi is the standardized P-III quantile function.
//
// The package is a pure library: no I/O, no global mutable state. A Series
// is not safe for concurrent mutation; concurrent analyses must use
// independent Series instances.
package pearson3
