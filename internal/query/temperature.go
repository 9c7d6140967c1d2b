package query

import (
	"context"
	"math"

	"github.com/pkg/errors"

	"github.com/lox/surfsup/internal/models"
	"github.com/lox/surfsup/internal/store"
)

// ErrOverflow is returned when a sum leaves the float64 range.
var ErrOverflow = errors.New("aggregate overflow")

// TemperatureStats aggregates temperature observations dated on or after
// start and, when end is non-nil, on or before end. An empty match, including
// an inverted range, yields all-nil stats rather than an error.
func (e *Engine) TemperatureStats(ctx context.Context, start models.Date, end *models.Date) (models.TemperatureStats, error) {
	var stats models.TemperatureStats
	err := e.withReader(ctx, "temperature stats", func(r store.Reader) error {
		rows, err := r.Measurements(ctx, models.MeasurementFilter{From: &start, To: end})
		if err != nil {
			return err
		}
		vals := make([]float64, 0, len(rows))
		for _, m := range rows {
			if m.Tobs.Valid {
				vals = append(vals, m.Tobs.Float64)
			}
		}
		stats, err = Aggregate(vals)
		return err
	})
	if err != nil {
		return models.TemperatureStats{}, err
	}
	return stats, nil
}

// Aggregate computes min, mean and max. No values gives all-nil stats.
func Aggregate(vals []float64) (models.TemperatureStats, error) {
	if len(vals) == 0 {
		return models.TemperatureStats{}, nil
	}

	lo, hi, sum := vals[0], vals[0], 0.0
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return models.TemperatureStats{}, errors.Wrapf(ErrOverflow, "non-finite reading %v", v)
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
		sum += v
	}
	if math.IsInf(sum, 0) {
		return models.TemperatureStats{}, errors.Wrapf(ErrOverflow, "sum of %d readings", len(vals))
	}
	avg := sum / float64(len(vals))

	return models.TemperatureStats{Min: &lo, Avg: &avg, Max: &hi}, nil
}
