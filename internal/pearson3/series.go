package pearson3

import (
	"cmp"
	"slices"
)

// Series holds a descending-sorted flood record partitioned into an extreme
// prefix (historical-era floods, representative of the full survey period)
// and an ordinary suffix (the continuously gauged record). It derives an
// empirical exceedance probability for every record, unless the caller has
// installed an override.
type Series struct {
	observed     []float64 // original input, never mutated
	values       []float64 // observed ++ historical, sorted descending
	extremeCount int
	periodLength int
	override     []float64 // nil means probabilities are derived
}

// NewSeries creates a Series from the gauged observations. The input is
// copied; the survey period length starts at len(observed).
func NewSeries(observed []float64) (*Series, error) {
	if len(observed) == 0 {
		return nil, validationErrorf("series requires at least one observed value")
	}
	values := slices.Clone(observed)
	sortDescending(values)
	return &Series{
		observed:     slices.Clone(observed),
		values:       values,
		periodLength: len(observed),
	}, nil
}

// SetHistorical attaches a batch of historical floods and declares the survey
// period they were drawn from. All historical values are treated as extreme.
// A repeat call replaces the previous batch: the series is always recomputed
// from the original observations, historical data does not accumulate.
func (s *Series) SetHistorical(values []float64, periodLength int) error {
	return s.SetHistoricalExtreme(values, periodLength, len(values))
}

// SetHistoricalExtreme is SetHistorical with an explicit extreme count, for
// surveys where some of the largest gauged floods are also judged
// extraordinary. The count must cover at least all historical values and at
// most the combined record.
func (s *Series) SetHistoricalExtreme(values []float64, periodLength, extremeCount int) error {
	total := len(s.observed) + len(values)
	if periodLength < total {
		return validationErrorf(
			"period length %d is shorter than the %d observed plus historical records",
			periodLength, total)
	}
	if extremeCount < len(values) {
		return validationErrorf(
			"extreme count %d must cover all %d historical records",
			extremeCount, len(values))
	}
	if extremeCount > total {
		return validationErrorf(
			"extreme count %d exceeds the %d records in the series",
			extremeCount, total)
	}

	merged := make([]float64, 0, total)
	merged = append(merged, s.observed...)
	merged = append(merged, values...)
	sortDescending(merged)

	s.values = merged
	s.extremeCount = extremeCount
	s.periodLength = periodLength
	s.override = nil
	return nil
}

// Observed returns the original input sequence.
func (s *Series) Observed() []float64 { return slices.Clone(s.observed) }

// Values returns the full descending-sorted record.
func (s *Series) Values() []float64 { return slices.Clone(s.values) }

// Extreme returns the extreme partition (a prefix of Values).
func (s *Series) Extreme() []float64 { return slices.Clone(s.values[:s.extremeCount]) }

// Ordinary returns the ordinary partition (the suffix after Extreme).
func (s *Series) Ordinary() []float64 { return slices.Clone(s.values[s.extremeCount:]) }

// Len returns the number of records in the series.
func (s *Series) Len() int { return len(s.values) }

// PeriodLength returns the effective survey period length in years.
func (s *Series) PeriodLength() int { return s.periodLength }

// Overridden reports whether probabilities come from a caller-installed
// override rather than the plotting-position formulas.
func (s *Series) Overridden() bool { return s.override != nil }

// Probabilities returns the empirical exceedance probability of every record,
// in Values order: the extreme partition ranked against the full survey
// period, then the ordinary partition rescaled into the remaining mass.
func (s *Series) Probabilities() []float64 {
	if s.override != nil {
		return slices.Clone(s.override)
	}
	probs := s.extremeProbs()
	return append(probs, s.ordinaryProbs()...)
}

// ExtremeProbabilities returns the probabilities of the extreme partition.
func (s *Series) ExtremeProbabilities() []float64 {
	if s.override != nil {
		return slices.Clone(s.override[:s.extremeCount])
	}
	return s.extremeProbs()
}

// OrdinaryProbabilities returns the probabilities of the ordinary partition.
func (s *Series) OrdinaryProbabilities() []float64 {
	if s.override != nil {
		return slices.Clone(s.override[s.extremeCount:])
	}
	return s.ordinaryProbs()
}

func (s *Series) extremeProbs() []float64 {
	probs := make([]float64, s.extremeCount)
	for i := range probs {
		probs[i] = float64(i+1) / float64(s.periodLength+1)
	}
	return probs
}

func (s *Series) ordinaryProbs() []float64 {
	l := len(s.values) - s.extremeCount
	probs := make([]float64, l)
	if s.extremeCount == 0 {
		for i := range probs {
			probs[i] = float64(i+1) / float64(s.periodLength+1)
		}
		return probs
	}

	// Rescale plotting positions into the probability mass left after the
	// last extreme record.
	last := float64(s.extremeCount) / float64(s.periodLength+1)
	for i := range probs {
		probs[i] = last + (1-last)*float64(i+1)/float64(l+1)
	}
	return probs
}

// SetProbabilities installs a full probability override, one value per record
// in Values order. Each value must lie in [0,1].
func (s *Series) SetProbabilities(probs []float64) error {
	if len(probs) != len(s.values) {
		return validationErrorf(
			"got %d probabilities for %d records", len(probs), len(s.values))
	}
	for _, p := range probs {
		if p < 0 || p > 1 {
			return validationErrorf("probability %g is outside [0,1]", p)
		}
	}
	s.override = slices.Clone(probs)
	return nil
}

// SetRankProbability overrides the probability of a single record, addressed
// by its 1-based rank in the descending-sorted series (rank 1 is the largest
// flood). The remaining probabilities are frozen at their current values.
func (s *Series) SetRankProbability(rank int, prob float64) error {
	return s.SetRankProbabilityFrom(rank, 1, prob)
}

// SetRankProbabilityFrom is SetRankProbability with a custom rank origin.
func (s *Series) SetRankProbabilityFrom(rank, origin int, prob float64) error {
	if rank < origin || rank > origin+len(s.values)-1 {
		return validationErrorf(
			"rank %d is outside [%d, %d]", rank, origin, origin+len(s.values)-1)
	}
	if prob < 0 || prob > 1 {
		return validationErrorf("probability %g is outside [0,1]", prob)
	}
	probs := s.Probabilities()
	probs[rank-origin] = prob
	s.override = probs
	return nil
}

// ClearProbabilities removes any override and returns the series to derived
// plotting-position probabilities.
func (s *Series) ClearProbabilities() {
	s.override = nil
}

func sortDescending(values []float64) {
	slices.SortFunc(values, func(a, b float64) int { return cmp.Compare(b, a) })
}
