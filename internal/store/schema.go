package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lox/surfsup/internal/models"
)

// Layout matches the published hawaii.sqlite so either file can be served.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS measurement (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    station TEXT NOT NULL,
    date TEXT NOT NULL,
    prcp FLOAT,
    tobs FLOAT
);

CREATE TABLE IF NOT EXISTS station (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    station TEXT NOT NULL,
    name TEXT,
    latitude FLOAT,
    longitude FLOAT,
    elevation FLOAT
);

CREATE INDEX IF NOT EXISTS idx_measurement_date ON measurement(date);
CREATE INDEX IF NOT EXISTS idx_measurement_station_date ON measurement(station, date);
`

func (s *Store) CreateSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// InsertDataset writes measurements and stations in one transaction, so a
// failed load leaves both tables as they were.
func (s *Store) InsertDataset(ctx context.Context, rows []models.Measurement, stations []models.Station) (int, int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := insertMeasurements(ctx, tx, rows); err != nil {
		return 0, 0, err
	}
	if err := insertStations(ctx, tx, stations); err != nil {
		return 0, 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("commit dataset: %w", err)
	}
	return len(rows), len(stations), nil
}

func insertMeasurements(ctx context.Context, tx *sql.Tx, rows []models.Measurement) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO measurement (station, date, prcp, tobs) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare measurement insert: %w", err)
	}
	defer stmt.Close()

	for i, m := range rows {
		if _, err := stmt.ExecContext(ctx, m.Station, m.Date, m.Prcp, m.Tobs); err != nil {
			return fmt.Errorf("insert measurement %d (%s %s): %w", i, m.Station, m.Date, err)
		}
	}
	return nil
}

func insertStations(ctx context.Context, tx *sql.Tx, stations []models.Station) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO station (station, name, latitude, longitude, elevation) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare station insert: %w", err)
	}
	defer stmt.Close()

	for _, st := range stations {
		if _, err := stmt.ExecContext(ctx, st.StationID, st.Name, st.Latitude, st.Longitude, st.Elevation); err != nil {
			return fmt.Errorf("insert station %s: %w", st.StationID, err)
		}
	}
	return nil
}
