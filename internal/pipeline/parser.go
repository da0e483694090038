package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/flood-frequency/internal/domain"
	"github.com/couchcryptid/flood-frequency/internal/station"
)

// RecordParser implements Parser using the domain gauge-record validation.
type RecordParser struct {
	logger *slog.Logger
}

// NewParser creates a RecordParser.
func NewParser(logger *slog.Logger) *RecordParser {
	return &RecordParser{logger: logger}
}

func (p *RecordParser) Parse(_ context.Context, raw domain.RawEvent) (domain.PeakObservation, error) {
	return domain.ParseRawObservation(raw)
}

// StoreLoader adapts a station.Store to the BatchLoader interface.
type StoreLoader struct {
	store *station.Store
}

// NewStoreLoader creates a loader that appends observations to the store.
func NewStoreLoader(store *station.Store) *StoreLoader {
	return &StoreLoader{store: store}
}

func (l *StoreLoader) LoadBatch(_ context.Context, observations []domain.PeakObservation) error {
	l.store.Append(observations...)
	return nil
}
