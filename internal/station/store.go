// Package station accumulates per-station peak-flow records and exposes the
// frequency-analysis operations on top of them.
package station

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/couchcryptid/flood-frequency/internal/domain"
	"github.com/couchcryptid/flood-frequency/internal/pearson3"
)

// ErrNotFound is returned for operations on a station with no records.
var ErrNotFound = errors.New("station not found")

// Historical describes a batch of historical floods for a station.
// ExtremeCount < 0 treats all historical values as extreme (the default).
type Historical struct {
	Values       []float64
	PeriodLength int
	ExtremeCount int
}

// Info is a station listing entry.
type Info struct {
	ID        string    `json:"id"`
	Name      string    `json:"name,omitempty"`
	PeakCount int       `json:"peak_count"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Summary is a full snapshot of a station's analysis state.
type Summary struct {
	Info
	PeriodLength  int                 `json:"period_length"`
	Values        []float64           `json:"values"`
	Extreme       []float64           `json:"extreme,omitempty"`
	Ordinary      []float64           `json:"ordinary"`
	Probabilities []float64           `json:"probabilities"`
	Overridden    bool                `json:"probabilities_overridden"`
	Fitted        *domain.CurveParams `json:"fitted,omitempty"`
	FittedAt      time.Time           `json:"fitted_at,omitzero"`
}

// FitResult carries the outcome of a fit: the moment-estimated seed and the
// refined curve.
type FitResult struct {
	StationID    string             `json:"station_id"`
	SampleSize   int                `json:"sample_size"`
	PeriodLength int                `json:"period_length"`
	Moments      domain.CurveParams `json:"moments"`
	Fitted       domain.CurveParams `json:"fitted"`
	FittedAt     time.Time          `json:"fitted_at"`
}

// station is the mutable per-station state. The store's lock guards it; the
// contained Series is never handed out.
type station struct {
	id         string
	name       string
	peaks      map[int]float64 // water year -> peak flow, m³/s
	historical *Historical
	series     *pearson3.Series // lazily built, nil after a data change
	fitted     *pearson3.Curve
	fittedAt   time.Time
	updatedAt  time.Time
}

// Store holds all stations. Safe for concurrent use; each station's series
// is only touched under the store lock, keeping the single-threaded contract
// of the analysis core.
type Store struct {
	mu       sync.RWMutex
	stations map[string]*station
}

// NewStore creates an empty station store.
func NewStore() *Store {
	return &Store{stations: make(map[string]*station)}
}

// Append upserts peak observations, one per station and water year. A repeat
// observation for the same water year replaces the previous value. Any
// probability override on an affected station is discarded, since the
// record it indexed has changed.
func (s *Store) Append(observations ...domain.PeakObservation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, obs := range observations {
		st, ok := s.stations[obs.StationID]
		if !ok {
			st = &station{id: obs.StationID, peaks: make(map[int]float64)}
			s.stations[obs.StationID] = st
		}
		if obs.StationName != "" {
			st.name = obs.StationName
		}
		st.peaks[obs.WaterYear] = obs.Flow
		st.series = nil
		st.updatedAt = clock.Now().UTC()
	}
}

// SetHistorical attaches (or replaces) a station's historical flood batch.
func (s *Store) SetHistorical(id string, h Historical) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.stations[id]
	if !ok {
		return ErrNotFound
	}

	// Validate against the current record before committing.
	if _, err := buildSeries(st.peaks, &h); err != nil {
		return err
	}

	st.historical = &h
	st.series = nil
	st.updatedAt = clock.Now().UTC()
	return nil
}

// SetProbabilities installs a full probability override for a station.
func (s *Store) SetProbabilities(id string, probs []float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	series, err := s.seriesLocked(id)
	if err != nil {
		return err
	}
	return series.SetProbabilities(probs)
}

// SetRankProbability overrides the probability at a single 1-based rank.
func (s *Store) SetRankProbability(id string, rank int, prob float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	series, err := s.seriesLocked(id)
	if err != nil {
		return err
	}
	return series.SetRankProbability(rank, prob)
}

// ClearProbabilities returns a station to derived plotting positions.
func (s *Store) ClearProbabilities(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	series, err := s.seriesLocked(id)
	if err != nil {
		return err
	}
	series.ClearProbabilities()
	return nil
}

// Moments estimates the P-III moments of a station's record.
func (s *Store) Moments(id string) (pearson3.Moments, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	series, err := s.seriesLocked(id)
	if err != nil {
		return pearson3.Moments{}, err
	}
	return pearson3.EstimateMoments(series)
}

// Fit refines the station's curve by least squares and records the result.
func (s *Store) Fit(id string, opts pearson3.FitOptions) (FitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	series, err := s.seriesLocked(id)
	if err != nil {
		return FitResult{}, err
	}

	moments, err := pearson3.EstimateMoments(series)
	if err != nil {
		return FitResult{}, err
	}
	if opts.Moments == nil {
		opts.Moments = &moments
	}

	fitted, err := pearson3.FitCurve(series, opts)
	if err != nil {
		return FitResult{}, err
	}

	st := s.stations[id]
	st.fitted = &fitted
	st.fittedAt = clock.Now().UTC()

	return FitResult{
		StationID:    id,
		SampleSize:   series.Len(),
		PeriodLength: series.PeriodLength(),
		Moments:      domain.CurveParams(*opts.Moments),
		Fitted:       domain.CurveParams(fitted),
		FittedAt:     st.fittedAt,
	}, nil
}

// Curve returns the station's fitted curve, falling back to the
// moment-estimated curve when no fit has been performed yet.
func (s *Store) Curve(id string) (pearson3.Curve, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.stations[id]
	if !ok {
		return pearson3.Curve{}, ErrNotFound
	}
	if st.fitted != nil {
		return *st.fitted, nil
	}

	series, err := s.seriesLocked(id)
	if err != nil {
		return pearson3.Curve{}, err
	}
	moments, err := pearson3.EstimateMoments(series)
	if err != nil {
		return pearson3.Curve{}, err
	}
	return moments.Curve(), nil
}

// Snapshot returns the station's full analysis state.
func (s *Store) Snapshot(id string) (Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	series, err := s.seriesLocked(id)
	if err != nil {
		return Summary{}, err
	}
	st := s.stations[id]

	sum := Summary{
		Info: Info{
			ID:        st.id,
			Name:      st.name,
			PeakCount: len(st.peaks),
			UpdatedAt: st.updatedAt,
		},
		PeriodLength:  series.PeriodLength(),
		Values:        series.Values(),
		Extreme:       series.Extreme(),
		Ordinary:      series.Ordinary(),
		Probabilities: series.Probabilities(),
		Overridden:    series.Overridden(),
		FittedAt:      st.fittedAt,
	}
	if st.fitted != nil {
		params := domain.CurveParams(*st.fitted)
		sum.Fitted = &params
	}
	return sum, nil
}

// List returns all stations, sorted by ID.
func (s *Store) List() []Info {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]Info, 0, len(s.stations))
	for _, st := range s.stations {
		infos = append(infos, Info{
			ID:        st.id,
			Name:      st.name,
			PeakCount: len(st.peaks),
			UpdatedAt: st.updatedAt,
		})
	}
	slices.SortFunc(infos, func(a, b Info) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return infos
}

// seriesLocked returns the station's series, rebuilding it after a data
// change. Callers must hold the write lock.
func (s *Store) seriesLocked(id string) (*pearson3.Series, error) {
	st, ok := s.stations[id]
	if !ok {
		return nil, ErrNotFound
	}
	if st.series != nil {
		return st.series, nil
	}

	series, err := buildSeries(st.peaks, st.historical)
	if err != nil {
		return nil, err
	}
	st.series = series
	return series, nil
}

func buildSeries(peaks map[int]float64, h *Historical) (*pearson3.Series, error) {
	values := make([]float64, 0, len(peaks))
	for _, flow := range peaks {
		values = append(values, flow)
	}
	series, err := pearson3.NewSeries(values)
	if err != nil {
		return nil, fmt.Errorf("build series: %w", err)
	}
	if h == nil {
		return series, nil
	}

	if h.ExtremeCount < 0 {
		err = series.SetHistorical(h.Values, h.PeriodLength)
	} else {
		err = series.SetHistoricalExtreme(h.Values, h.PeriodLength, h.ExtremeCount)
	}
	if err != nil {
		return nil, err
	}
	return series, nil
}
