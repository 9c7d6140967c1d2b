package dataset

import (
	"github.com/lox/surfsup/internal/models"
)

const (
	FlagPrecipNegative   = "precip_negative"
	FlagTempOutOfRange   = "temp_out_of_range"
	FlagDateOutOfDataset = "date_out_of_dataset"
)

// Readings are in inches and degrees Fahrenheit.
const (
	minTobs = 30.0
	maxTobs = 110.0
)

// ValidateMeasurement flags implausible rows. Flagged rows are still loaded.
func ValidateMeasurement(m models.Measurement, first, last models.Date) []string {
	var flags []string

	if m.Prcp.Valid && m.Prcp.Float64 < 0 {
		flags = append(flags, FlagPrecipNegative)
	}
	if m.Tobs.Valid && (m.Tobs.Float64 < minTobs || m.Tobs.Float64 > maxTobs) {
		flags = append(flags, FlagTempOutOfRange)
	}
	if m.Date.Before(first) || m.Date.After(last) {
		flags = append(flags, FlagDateOutOfDataset)
	}
	return flags
}
