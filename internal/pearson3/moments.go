package pearson3

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Moments are the P-III product-moment estimates of a series: mean,
// coefficient of variation and skewness.
type Moments struct {
	Mean float64
	CV   float64
	CS   float64
}

// Curve returns the P-III curve parameterized by these moments.
func (m Moments) Curve() Curve { return Curve(m) }

// EstimateMoments computes the P-III moments of a series. Without an extreme
// partition it uses the plain unbiased sample estimators. With one, ordinary
// records are weighted by r = (N-a)/l, where each gauged year stands in
// for r years of the N-year survey period, and the mean, variation and skewness
// use the period-weighted formulas.
func EstimateMoments(s *Series) (Moments, error) {
	n := s.PeriodLength()
	if n <= 2 {
		return Moments{}, arithmeticErrorf(
			"moment estimation requires a period length above 2, got %d", n)
	}

	extreme := s.Extreme()
	if len(extreme) == 0 {
		return plainMoments(s.Values())
	}

	ordinary := s.Ordinary()
	if len(ordinary) == 0 {
		return Moments{}, arithmeticErrorf(
			"moment estimation requires a non-empty ordinary partition")
	}

	N := float64(n)
	r := (N - float64(len(extreme))) / float64(len(ordinary))

	var sum float64
	for _, x := range extreme {
		sum += x
	}
	for _, x := range ordinary {
		sum += r * x
	}
	mean := sum / N
	if mean == 0 {
		return Moments{}, arithmeticErrorf("series mean is zero")
	}

	var m2, m3 float64
	for _, x := range extreme {
		d := x - mean
		m2 += d * d
		m3 += d * d * d
	}
	for _, x := range ordinary {
		d := x - mean
		m2 += r * d * d
		m3 += r * d * d * d
	}

	cv := math.Sqrt(m2/(N-1)) / mean
	if cv == 0 {
		return Moments{}, arithmeticErrorf("series has zero variation")
	}
	cs := N * m3 / ((N - 1) * (N - 2) * mean * mean * mean * cv * cv * cv)

	return Moments{Mean: mean, CV: cv, CS: cs}, nil
}

func plainMoments(values []float64) (Moments, error) {
	mean := stat.Mean(values, nil)
	if mean == 0 {
		return Moments{}, arithmeticErrorf("series mean is zero")
	}
	cv := stat.StdDev(values, nil) / mean
	if cv == 0 {
		return Moments{}, arithmeticErrorf("series has zero variation")
	}
	return Moments{Mean: mean, CV: cv, CS: stat.Skew(values, nil)}, nil
}
