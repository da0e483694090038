package domain

import (
	"context"
	"time"
)

// RawGaugeRecord represents the flat JSON structure produced by the
// collector. Numeric columns are strings, as scraped from the agency tables.
type RawGaugeRecord struct {
	StationID   string `json:"station_id"`
	StationName string `json:"station_name"`
	WaterYear   string `json:"water_year"`
	PeakFlow    string `json:"peak_flow"`
	Unit        string `json:"unit"`
	Source      string `json:"source"` // publishing agency, informational
}

// RawEvent represents an unprocessed message from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// PeakObservation is the validated, unit-normalized annual maximum for one
// station and water year. Flow is always in m³/s.
type PeakObservation struct {
	StationID   string    `json:"station_id"`
	StationName string    `json:"station_name,omitempty"`
	WaterYear   int       `json:"water_year"`
	Flow        float64   `json:"flow"`
	ReceivedAt  time.Time `json:"received_at"`
}

// CurveParams is the (mean, Cv, Cs) triple of a P-III curve as carried on
// the wire and over the HTTP API.
type CurveParams struct {
	Mean float64 `json:"mean"`
	CV   float64 `json:"cv"`
	CS   float64 `json:"cs"`
}

// FittedCurveEvent is published to the sink topic after a successful fit,
// for downstream consumers such as plotting and reporting services.
type FittedCurveEvent struct {
	StationID    string      `json:"station_id"`
	SampleSize   int         `json:"sample_size"`
	PeriodLength int         `json:"period_length"`
	Moments      CurveParams `json:"moments"`
	Fitted       CurveParams `json:"fitted"`
	FittedAt     time.Time   `json:"fitted_at"`
}
