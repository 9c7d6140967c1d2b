// Package dataset builds the SQLite file served by the API from the
// published measurement and station CSVs.
package dataset

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/url"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jlaffaye/ftp"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/lox/surfsup/internal/metrics"
	"github.com/lox/surfsup/internal/models"
)

const defaultFTPPort = "21"

// Writer is the part of the store the loader needs.
type Writer interface {
	CreateSchema(ctx context.Context) error
	Counts(ctx context.Context) (measurements, stations int64, err error)
	InsertDataset(ctx context.Context, rows []models.Measurement, stations []models.Station) (int, int, error)
}

type Loader struct {
	log         logrus.FieldLogger
	dialTimeout time.Duration
	maxElapsed  time.Duration
	first, last models.Date
}

func NewLoader(log logrus.FieldLogger, first, last models.Date) *Loader {
	return &Loader{
		log:         log.WithField("component", "dataset"),
		dialTimeout: 30 * time.Second,
		maxElapsed:  2 * time.Minute,
		first:       first,
		last:        last,
	}
}

type Result struct {
	Measurements int
	Stations     int
	Flagged      map[string]int
}

// Load reads both sources and writes them into w. It refuses to load into a
// database that already holds measurements.
func (l *Loader) Load(ctx context.Context, w Writer, measurementsSrc, stationsSrc string) (*Result, error) {
	if err := w.CreateSchema(ctx); err != nil {
		return nil, err
	}
	existing, _, err := w.Counts(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "count existing rows")
	}
	if existing > 0 {
		return nil, errors.Errorf("database already holds %d measurements", existing)
	}

	mr, err := l.Open(ctx, measurementsSrc)
	if err != nil {
		return nil, err
	}
	defer mr.Close()
	rows, err := ParseMeasurements(mr)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", measurementsSrc)
	}

	sr, err := l.Open(ctx, stationsSrc)
	if err != nil {
		return nil, err
	}
	defer sr.Close()
	stations, err := ParseStations(sr)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", stationsSrc)
	}

	res := &Result{Flagged: make(map[string]int)}
	for _, m := range rows {
		for _, flag := range ValidateMeasurement(m, l.first, l.last) {
			res.Flagged[flag]++
		}
	}
	for flag, n := range res.Flagged {
		l.log.Warnf("%d rows flagged %s", n, flag)
	}

	if res.Measurements, res.Stations, err = w.InsertDataset(ctx, rows, stations); err != nil {
		return nil, err
	}
	metrics.DatasetRowsLoaded.WithLabelValues("measurement").Add(float64(res.Measurements))
	metrics.DatasetRowsLoaded.WithLabelValues("station").Add(float64(res.Stations))

	l.log.Infof("loaded %d measurements and %d stations", res.Measurements, res.Stations)
	return res, nil
}

// Open returns a reader for a local path or an ftp:// URL.
func (l *Loader) Open(ctx context.Context, src string) (io.ReadCloser, error) {
	u, err := url.Parse(src)
	if err == nil && u.Scheme == "ftp" {
		body, err := l.fetchFTP(ctx, u)
		if err != nil {
			return nil, err
		}
		return io.NopCloser(bytes.NewReader(body)), nil
	}

	f, err := os.Open(src)
	if err != nil {
		return nil, errors.Wrap(err, "open source")
	}
	return f, nil
}

func (l *Loader) fetchFTP(ctx context.Context, u *url.URL) ([]byte, error) {
	addr := u.Host
	if u.Port() == "" {
		addr = net.JoinHostPort(u.Hostname(), defaultFTPPort)
	}
	user, pass := "anonymous", "anonymous"
	if u.User != nil {
		user = u.User.Username()
		if p, ok := u.User.Password(); ok {
			pass = p
		}
	}

	var body []byte
	operation := func() error {
		conn, err := ftp.Dial(addr, ftp.DialWithTimeout(l.dialTimeout))
		if err != nil {
			l.log.Warnf("ftp dial %s: %v", addr, err)
			return errors.Wrap(err, "ftp dial")
		}
		defer conn.Quit()

		if err := conn.Login(user, pass); err != nil {
			return backoff.Permanent(errors.Wrap(err, "ftp login"))
		}

		resp, err := conn.Retr(u.Path)
		if err != nil {
			return backoff.Permanent(errors.Wrapf(err, "ftp retr %s", u.Path))
		}
		defer resp.Close()

		body, err = io.ReadAll(resp)
		if err != nil {
			return errors.Wrap(err, "ftp read")
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = l.maxElapsed
	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		return nil, err
	}
	l.log.Infof("fetched %d bytes from ftp://%s%s", len(body), addr, u.Path)
	return body, nil
}
