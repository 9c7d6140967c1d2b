package query

import (
	"context"
	"sort"

	"github.com/lox/surfsup/internal/models"
	"github.com/lox/surfsup/internal/store"
)

type StationActivity = models.StationActivity

// ListStations returns each station that appears in the measurement table
// once, in the order its first row was inserted.
func (e *Engine) ListStations(ctx context.Context) ([]string, error) {
	var out []string
	err := e.withReader(ctx, "list stations", func(r store.Reader) error {
		var err error
		out, err = r.Stations(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}

// RankStations orders per-station counts busiest first. Equal counts are
// ordered by ascending station id so the leader is deterministic.
func RankStations(counts []StationActivity) []StationActivity {
	ranked := make([]StationActivity, len(counts))
	copy(ranked, counts)
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Station < ranked[j].Station
	})
	return ranked
}

// MostActiveStationRecentTemps returns the non-null temperature observations
// of the most active station (ranked over the whole table) from the cutoff
// onward, in ascending order.
func (e *Engine) MostActiveStationRecentTemps(ctx context.Context) ([]float64, error) {
	out := []float64{}
	err := e.withReader(ctx, "most active station temps", func(r store.Reader) error {
		counts, err := r.StationCounts(ctx)
		if err != nil {
			return err
		}
		ranked := RankStations(counts)
		if len(ranked) == 0 {
			return nil
		}
		leader := ranked[0]
		e.log.WithField("station", leader.Station).Debugf("most active station has %d rows", leader.Count)

		from := e.cutoff
		rows, err := r.Measurements(ctx, models.MeasurementFilter{Station: leader.Station, From: &from})
		if err != nil {
			return err
		}
		for _, m := range rows {
			if m.Tobs.Valid {
				out = append(out, m.Tobs.Float64)
			}
		}
		sort.Float64s(out)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
