package store

import (
	"context"
	"errors"

	"github.com/lox/surfsup/internal/models"
)

// ErrUnavailable marks any failure to open or query the data source.
var ErrUnavailable = errors.New("data source unavailable")

// Source hands out read handles over the measurement table.
type Source interface {
	Acquire(ctx context.Context) (Reader, error)
}

// Reader is a checked-out read handle. Callers must Close it.
type Reader interface {
	// Measurements returns matching rows ordered by date, then insertion order.
	Measurements(ctx context.Context, f models.MeasurementFilter) ([]models.Measurement, error)
	// Stations returns each station id once, ordered by its first inserted row.
	Stations(ctx context.Context) ([]string, error)
	// StationCounts returns the row count of every station, in Stations order.
	StationCounts(ctx context.Context) ([]models.StationActivity, error)
	Close() error
}
