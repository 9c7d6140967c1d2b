package models

import (
	"database/sql"
)

type Station struct {
	ID        int64
	StationID string
	Name      string
	Latitude  float64
	Longitude float64
	Elevation float64
}

// Measurement is one (station, date) row. Prcp and Tobs are NULL when the
// station took no reading.
type Measurement struct {
	ID      int64
	Station string
	Date    Date
	Prcp    sql.NullFloat64
	Tobs    sql.NullFloat64
}

// MeasurementFilter bounds a measurement fetch. Zero values mean unbounded.
type MeasurementFilter struct {
	Station string
	From    *Date
	To      *Date
}

// Matches reports whether m falls inside the filter bounds (inclusive).
func (f MeasurementFilter) Matches(m Measurement) bool {
	if f.Station != "" && m.Station != f.Station {
		return false
	}
	if f.From != nil && m.Date.Before(*f.From) {
		return false
	}
	if f.To != nil && m.Date.After(*f.To) {
		return false
	}
	return true
}

// StationActivity is the number of measurement rows a station has.
type StationActivity struct {
	Station string
	Count   int
}

type PrecipitationReading struct {
	Date Date     `json:"date"`
	Prcp *float64 `json:"prcp"`
}

// TemperatureStats is the min/avg/max aggregate over a date range. All three
// are nil when no readings matched.
type TemperatureStats struct {
	Min *float64 `json:"min"`
	Avg *float64 `json:"avg"`
	Max *float64 `json:"max"`
}

// NullablePtr converts a nullable column into a JSON-friendly pointer.
func NullablePtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}
