package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/flood-frequency/internal/domain"
	"github.com/couchcryptid/flood-frequency/internal/observability"
	"github.com/couchcryptid/flood-frequency/internal/pipeline"
	"github.com/couchcryptid/flood-frequency/internal/station"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockExtractor struct {
	batches [][]domain.RawEvent
	index   atomic.Int64
}

func (m *mockExtractor) ExtractBatch(ctx context.Context, _ int) ([]domain.RawEvent, error) {
	i := int(m.index.Add(1) - 1)
	if i >= len(m.batches) {
		// block until context cancelled to simulate waiting for records
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return m.batches[i], nil
}

type mockParser struct {
	err error
}

func (m *mockParser) Parse(_ context.Context, raw domain.RawEvent) (domain.PeakObservation, error) {
	if m.err != nil {
		return domain.PeakObservation{}, m.err
	}
	return domain.PeakObservation{StationID: string(raw.Key), WaterYear: 2000, Flow: 1}, nil
}

type mockLoader struct {
	loaded []domain.PeakObservation
	err    error
}

func (m *mockLoader) LoadBatch(_ context.Context, observations []domain.PeakObservation) error {
	if m.err != nil {
		return m.err
	}
	m.loaded = append(m.loaded, observations...)
	return nil
}

func newTestMetrics() *observability.Metrics {
	// Use a fresh registry to avoid "already registered" panics in tests.
	return observability.NewMetricsForTesting()
}

// --- tests ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	raw := makeRawEvent(t, "05NB001", "1998", "1540")

	ext := &mockExtractor{batches: [][]domain.RawEvent{{raw}}}
	prs := &mockParser{}
	ldr := &mockLoader{}
	metrics := newTestMetrics()

	p := pipeline.New(ext, prs, ldr, slog.Default(), metrics, 10)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	err := p.Run(ctx)
	require.NoError(t, err)
	require.Len(t, ldr.loaded, 1)
	assert.Equal(t, "05NB001", ldr.loaded[0].StationID)
	assert.NoError(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	ext := &mockExtractor{} // no batches, will block
	prs := &mockParser{}
	ldr := &mockLoader{}
	metrics := newTestMetrics()

	p := pipeline.New(ext, prs, ldr, slog.Default(), metrics, 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // cancel immediately

	err := p.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, ldr.loaded)
}

func TestPipeline_Run_ParseError(t *testing.T) {
	raw := makeRawEvent(t, "05NB001", "1998", "1540")

	ext := &mockExtractor{batches: [][]domain.RawEvent{{raw}}}
	prs := &mockParser{err: errors.New("bad record")}
	ldr := &mockLoader{}
	metrics := newTestMetrics()

	p := pipeline.New(ext, prs, ldr, slog.Default(), metrics, 10)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	err := p.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, ldr.loaded)
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_CommitsAfterLoad(t *testing.T) {
	commitCalled := false

	raw := makeRawEvent(t, "05NB001", "1998", "1540")
	raw.Topic = "raw-gauge-peaks"
	raw.Commit = func(_ context.Context) error {
		commitCalled = true
		return nil
	}

	ext := &mockExtractor{batches: [][]domain.RawEvent{{raw}}}
	prs := &mockParser{}
	ldr := &mockLoader{}
	metrics := newTestMetrics()

	p := pipeline.New(ext, prs, ldr, slog.Default(), metrics, 10)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	err := p.Run(ctx)
	require.NoError(t, err)
	assert.True(t, commitCalled)
}

func TestPipeline_Run_CommitsRejectedRecords(t *testing.T) {
	// A record that fails parsing is dead; committing it keeps the consumer
	// group from redelivering it forever.
	commitCalled := false

	raw := makeRawEvent(t, "05NB001", "1998", "1540")
	raw.Commit = func(_ context.Context) error {
		commitCalled = true
		return nil
	}

	ext := &mockExtractor{batches: [][]domain.RawEvent{{raw}}}
	prs := &mockParser{err: errors.New("bad record")}
	ldr := &mockLoader{}
	metrics := newTestMetrics()

	p := pipeline.New(ext, prs, ldr, slog.Default(), metrics, 10)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	require.NoError(t, p.Run(ctx))
	assert.True(t, commitCalled)
	assert.Empty(t, ldr.loaded)
}

func TestPipeline_Run_LoadErrorRetriesWithBackoff(t *testing.T) {
	raw := makeRawEvent(t, "05NB001", "1998", "1540")

	ext := &mockExtractor{batches: [][]domain.RawEvent{{raw}}}
	prs := &mockParser{}
	ldr := &mockLoader{err: errors.New("store unavailable")}
	metrics := newTestMetrics()

	p := pipeline.New(ext, prs, ldr, slog.Default(), metrics, 10)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	require.NoError(t, p.Run(ctx))
	assert.Empty(t, ldr.loaded)
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestRecordParser_Parse(t *testing.T) {
	raw := makeRawEvent(t, "05NB001", "1998", "1540")

	prs := pipeline.NewParser(slog.Default())
	obs, err := prs.Parse(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, "05NB001", obs.StationID)
	assert.Equal(t, 1998, obs.WaterYear)
	assert.Equal(t, 1540.0, obs.Flow)
}

func TestStoreLoader_LoadBatch(t *testing.T) {
	store := station.NewStore()
	ldr := pipeline.NewStoreLoader(store)

	want := []domain.PeakObservation{
		{StationID: "05NB001", WaterYear: 1998, Flow: 1540},
		{StationID: "05NB001", WaterYear: 1999, Flow: 980},
	}
	require.NoError(t, ldr.LoadBatch(context.Background(), want))

	sum, err := store.Snapshot("05NB001")
	require.NoError(t, err)
	if diff := cmp.Diff([]float64{1540, 980}, sum.Values); diff != "" {
		t.Fatalf("stored values mismatch (-want +got):\n%s", diff)
	}
}

// --- helpers ---

func makeRawEvent(t *testing.T, stationID, waterYear, peakFlow string) domain.RawEvent {
	t.Helper()
	data, err := json.Marshal(domain.RawGaugeRecord{
		StationID: stationID,
		WaterYear: waterYear,
		PeakFlow:  peakFlow,
		Unit:      "m3/s",
	})
	require.NoError(t, err)
	return domain.RawEvent{
		Key:   []byte(stationID),
		Value: data,
	}
}
