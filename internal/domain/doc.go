// Package domain models annual peak-flow observations from stream gauges.
//
// # Data Source
//
// Peak records originate from an upstream collector that scrapes agency
// peak-flow tables (one row per station per water year), injects a
// "station_id" field, and publishes each row as flat JSON to the Kafka
// source topic. Numeric columns arrive as strings, matching the source
// tables.
//
// # Conventions
//
// Water year:
//
//	The 12-month period the annual maximum is drawn from (October–September
//	in most agencies' tables). Carried as the integer label year, e.g. 1998.
//	One peak per station per water year; a replayed record replaces the
//	previous value for that year.
//
// Discharge units:
//
//	Peaks are normalized to cubic metres per second. Accepted source units:
//	  - "m3/s", "cms" or empty: already m³/s
//	  - "cfs", "ft3/s": cubic feet per second, converted (×0.0283168466)
//	Records in any other unit are rejected rather than guessed at.
//
// Unknown values:
//
//	"UNK" is the collector's sentinel for an unreported peak. A frequency
//	analysis cannot use a magnitude-less record, so such rows are rejected
//	and counted as parse errors by the pipeline.
package domain
