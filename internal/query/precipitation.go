package query

import (
	"context"
	"sort"

	"github.com/lox/surfsup/internal/models"
	"github.com/lox/surfsup/internal/store"
)

// RecentPrecipitation returns one entry per measurement row dated on or after
// the cutoff, in date order. Rows sharing a date keep data source order and
// missing readings stay nil.
func (e *Engine) RecentPrecipitation(ctx context.Context) ([]models.PrecipitationReading, error) {
	out := []models.PrecipitationReading{}
	err := e.withReader(ctx, "recent precipitation", func(r store.Reader) error {
		from := e.cutoff
		rows, err := r.Measurements(ctx, models.MeasurementFilter{From: &from})
		if err != nil {
			return err
		}
		sort.SliceStable(rows, func(i, j int) bool {
			return rows[i].Date.Before(rows[j].Date)
		})
		for _, m := range rows {
			out = append(out, models.PrecipitationReading{
				Date: m.Date,
				Prcp: models.NullablePtr(m.Prcp),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
