package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// cfsToCms converts cubic feet per second to cubic metres per second.
const cfsToCms = 0.028316846592

// ParseRawObservation deserializes and validates a raw collector message.
// A record without a station, with an implausible water year, or with a
// missing or non-positive peak is an error: frequency analysis has no use
// for a magnitude-less row, so bad records are skipped upstream rather than
// zero-filled.
func ParseRawObservation(raw RawEvent) (PeakObservation, error) {
	var rec RawGaugeRecord
	if err := json.Unmarshal(raw.Value, &rec); err != nil {
		return PeakObservation{}, fmt.Errorf("parse raw observation: %w", err)
	}

	stationID := strings.TrimSpace(rec.StationID)
	if stationID == "" {
		return PeakObservation{}, fmt.Errorf("parse raw observation: missing station_id")
	}

	year, err := parseWaterYear(rec.WaterYear)
	if err != nil {
		return PeakObservation{}, fmt.Errorf("parse raw observation: %w", err)
	}

	flow, err := parsePeakFlow(rec.PeakFlow, rec.Unit)
	if err != nil {
		return PeakObservation{}, fmt.Errorf("parse raw observation: %w", err)
	}

	return PeakObservation{
		StationID:   stationID,
		StationName: strings.TrimSpace(rec.StationName),
		WaterYear:   year,
		Flow:        flow,
		ReceivedAt:  clock.Now().UTC(),
	}, nil
}

// NewPeakObservation validates a manually supplied peak and normalizes the
// flow to m³/s. The Kafka path goes through ParseRawObservation instead.
func NewPeakObservation(stationID, stationName string, waterYear int, flow float64, unit string) (PeakObservation, error) {
	stationID = strings.TrimSpace(stationID)
	if stationID == "" {
		return PeakObservation{}, fmt.Errorf("new observation: missing station id")
	}
	if waterYear < 1000 || waterYear > 9999 {
		return PeakObservation{}, fmt.Errorf("new observation: water_year %d out of range", waterYear)
	}
	if math.IsNaN(flow) || math.IsInf(flow, 0) || flow <= 0 {
		return PeakObservation{}, fmt.Errorf("new observation: flow %g is not a positive discharge", flow)
	}
	normalized, err := normalizeFlow(flow, unit)
	if err != nil {
		return PeakObservation{}, fmt.Errorf("new observation: %w", err)
	}
	return PeakObservation{
		StationID:   stationID,
		StationName: strings.TrimSpace(stationName),
		WaterYear:   waterYear,
		Flow:        normalized,
		ReceivedAt:  clock.Now().UTC(),
	}, nil
}

func parseWaterYear(value string) (int, error) {
	value = strings.TrimSpace(value)
	year, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid water_year %q", value)
	}
	if year < 1000 || year > 9999 {
		return 0, fmt.Errorf("water_year %d out of range", year)
	}
	return year, nil
}

// parsePeakFlow parses the magnitude column and normalizes it to m³/s.
func parsePeakFlow(value, unit string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" || strings.EqualFold(value, "UNK") {
		return 0, fmt.Errorf("peak_flow is unreported")
	}

	flow, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid peak_flow %q", value)
	}
	if math.IsNaN(flow) || math.IsInf(flow, 0) || flow <= 0 {
		return 0, fmt.Errorf("peak_flow %g is not a positive discharge", flow)
	}

	return normalizeFlow(flow, unit)
}

func normalizeFlow(flow float64, unit string) (float64, error) {
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "", "m3/s", "cms":
		return flow, nil
	case "cfs", "ft3/s":
		return flow * cfsToCms, nil
	default:
		return 0, fmt.Errorf("unsupported unit %q", unit)
	}
}
