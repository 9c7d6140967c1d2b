package dataset

import (
	"database/sql"
	"encoding/csv"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/lox/surfsup/internal/models"
)

type header map[string]int

func readHeader(r *csv.Reader, required ...string) (header, error) {
	cols, err := r.Read()
	if err != nil {
		return nil, errors.Wrap(err, "read header")
	}
	h := make(header, len(cols))
	for i, c := range cols {
		h[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(c, "\ufeff")))] = i
	}
	for _, name := range required {
		if _, ok := h[name]; !ok {
			return nil, errors.Errorf("missing column %q", name)
		}
	}
	return h, nil
}

func (h header) get(rec []string, name string) string {
	i, ok := h[name]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func parseNullFloat(s string) (sql.NullFloat64, error) {
	if s == "" || strings.EqualFold(s, "nan") || strings.EqualFold(s, "null") {
		return sql.NullFloat64{}, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return sql.NullFloat64{}, err
	}
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return sql.NullFloat64{}, errors.Errorf("non-finite value %q", s)
	}
	return sql.NullFloat64{Float64: f, Valid: true}, nil
}

// ParseMeasurements reads a station,date,prcp,tobs CSV. Empty readings are
// kept as NULL.
func ParseMeasurements(r io.Reader) ([]models.Measurement, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	h, err := readHeader(cr, "station", "date")
	if err != nil {
		return nil, err
	}

	var out []models.Measurement
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}

		m := models.Measurement{Station: h.get(rec, "station")}
		if m.Station == "" {
			return nil, errors.Errorf("line %d: empty station", line)
		}
		if m.Date, err = models.ParseDate(h.get(rec, "date")); err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		if m.Prcp, err = parseNullFloat(h.get(rec, "prcp")); err != nil {
			return nil, errors.Wrapf(err, "line %d: prcp", line)
		}
		if m.Tobs, err = parseNullFloat(h.get(rec, "tobs")); err != nil {
			return nil, errors.Wrapf(err, "line %d: tobs", line)
		}
		out = append(out, m)
	}
	return out, nil
}

// ParseStations reads a station,name,latitude,longitude,elevation CSV.
func ParseStations(r io.Reader) ([]models.Station, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	h, err := readHeader(cr, "station")
	if err != nil {
		return nil, err
	}

	var out []models.Station
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}

		st := models.Station{StationID: h.get(rec, "station"), Name: h.get(rec, "name")}
		if st.StationID == "" {
			return nil, errors.Errorf("line %d: empty station", line)
		}
		for _, f := range []struct {
			col string
			dst *float64
		}{
			{"latitude", &st.Latitude},
			{"longitude", &st.Longitude},
			{"elevation", &st.Elevation},
		} {
			v, err := parseNullFloat(h.get(rec, f.col))
			if err != nil {
				return nil, errors.Wrapf(err, "line %d: %s", line, f.col)
			}
			*f.dst = v.Float64
		}
		out = append(out, st)
	}
	return out, nil
}
