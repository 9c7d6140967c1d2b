package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/lox/surfsup/internal/metrics"
	"github.com/lox/surfsup/internal/models"
)

type Config struct {
	// BreakerFailures is the consecutive failure count that opens the breaker.
	BreakerFailures uint32
	// BreakerTimeout is how long the breaker stays open before probing again.
	BreakerTimeout time.Duration
}

var DefaultConfig = Config{
	BreakerFailures: 5,
	BreakerTimeout:  30 * time.Second,
}

// Store is the SQLite-backed Source.
type Store struct {
	db      *sql.DB
	breaker *gobreaker.CircuitBreaker
	log     logrus.FieldLogger
}

func New(db *sql.DB, cfg Config, log logrus.FieldLogger) *Store {
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = DefaultConfig.BreakerFailures
	}
	if cfg.BreakerTimeout == 0 {
		cfg.BreakerTimeout = DefaultConfig.BreakerTimeout
	}
	log = log.WithField("component", "store")

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "sqlite",
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warnf("breaker %s: %s -> %s", name, from, to)
			metrics.BreakerState.Set(float64(to))
		},
	})

	return &Store{db: db, breaker: cb, log: log}
}

// Open opens the database file and retries the first ping with exponential
// backoff until maxWait elapses.
func Open(ctx context.Context, path string, readOnly bool, maxWait time.Duration) (*sql.DB, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)"
	if readOnly {
		dsn += "&mode=ro"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrUnavailable, path, err)
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = maxWait
	if err := backoff.Retry(func() error {
		return db.PingContext(ctx)
	}, backoff.WithContext(bo, ctx)); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: ping %s: %w", ErrUnavailable, path, err)
	}
	return db, nil
}

// guard runs fn through the circuit breaker. Cancelled requests do not count
// as data source failures.
func (s *Store) guard(op string, fn func() error) error {
	start := time.Now()
	var callErr error
	_, err := s.breaker.Execute(func() (interface{}, error) {
		callErr = fn()
		if callErr != nil && (errors.Is(callErr, context.Canceled) || errors.Is(callErr, context.DeadlineExceeded)) {
			return nil, nil
		}
		return nil, callErr
	})
	metrics.StoreQueryLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())

	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.StoreQueriesTotal.WithLabelValues(op, "rejected").Inc()
		return fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
	case callErr != nil:
		metrics.StoreQueriesTotal.WithLabelValues(op, "error").Inc()
		if errors.Is(callErr, context.Canceled) || errors.Is(callErr, context.DeadlineExceeded) {
			return fmt.Errorf("%s: %w", op, callErr)
		}
		return fmt.Errorf("%w: %s: %w", ErrUnavailable, op, callErr)
	}
	metrics.StoreQueriesTotal.WithLabelValues(op, "ok").Inc()
	return nil
}

// Acquire checks out a dedicated connection for the duration of one engine call.
func (s *Store) Acquire(ctx context.Context) (Reader, error) {
	var conn *sql.Conn
	err := s.guard("acquire", func() error {
		var err error
		conn, err = s.db.Conn(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &reader{store: s, conn: conn}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.guard("ping", func() error {
		return s.db.PingContext(ctx)
	})
}

// Counts returns the number of measurement and station rows.
func (s *Store) Counts(ctx context.Context) (measurements, stations int64, err error) {
	err = s.guard("counts", func() error {
		return s.db.QueryRowContext(ctx, `
			SELECT (SELECT COUNT(*) FROM measurement), (SELECT COUNT(*) FROM station)
		`).Scan(&measurements, &stations)
	})
	return
}

type reader struct {
	store *Store
	conn  *sql.Conn
}

func (r *reader) Measurements(ctx context.Context, f models.MeasurementFilter) ([]models.Measurement, error) {
	var b strings.Builder
	b.WriteString(`SELECT id, station, date, prcp, tobs FROM measurement WHERE 1 = 1`)
	var args []any
	if f.Station != "" {
		b.WriteString(` AND station = ?`)
		args = append(args, f.Station)
	}
	if f.From != nil {
		b.WriteString(` AND date >= ?`)
		args = append(args, *f.From)
	}
	if f.To != nil {
		b.WriteString(` AND date <= ?`)
		args = append(args, *f.To)
	}
	b.WriteString(` ORDER BY date ASC, id ASC`)

	var out []models.Measurement
	err := r.store.guard("measurements", func() error {
		rows, err := r.conn.QueryContext(ctx, b.String(), args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = out[:0]
		for rows.Next() {
			var m models.Measurement
			if err := rows.Scan(&m.ID, &m.Station, &m.Date, &m.Prcp, &m.Tobs); err != nil {
				return err
			}
			out = append(out, m)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	metrics.StoreRowsReturned.WithLabelValues("measurements").Add(float64(len(out)))
	return out, nil
}

func (r *reader) Stations(ctx context.Context) ([]string, error) {
	out := []string{}
	err := r.store.guard("stations", func() error {
		rows, err := r.conn.QueryContext(ctx, `
			SELECT station FROM measurement
			GROUP BY station
			ORDER BY MIN(id)
		`)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = out[:0]
		for rows.Next() {
			var station string
			if err := rows.Scan(&station); err != nil {
				return err
			}
			out = append(out, station)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	metrics.StoreRowsReturned.WithLabelValues("stations").Add(float64(len(out)))
	return out, nil
}

func (r *reader) StationCounts(ctx context.Context) ([]models.StationActivity, error) {
	out := []models.StationActivity{}
	err := r.store.guard("station counts", func() error {
		rows, err := r.conn.QueryContext(ctx, `
			SELECT station, COUNT(*) FROM measurement
			GROUP BY station
			ORDER BY MIN(id)
		`)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = out[:0]
		for rows.Next() {
			var a models.StationActivity
			if err := rows.Scan(&a.Station, &a.Count); err != nil {
				return err
			}
			out = append(out, a)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	metrics.StoreRowsReturned.WithLabelValues("station counts").Add(float64(len(out)))
	return out, nil
}

func (r *reader) Close() error {
	if err := r.conn.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
		r.store.log.Warnf("release connection: %v", err)
		return err
	}
	return nil
}
