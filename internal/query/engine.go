// Package query answers the API's questions about the measurement table:
// the recent precipitation series, the station list, the most active
// station's recent temperatures and min/avg/max temperature over a range.
package query

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/lox/surfsup/internal/models"
	"github.com/lox/surfsup/internal/store"
)

// FirstKnownDate is the earliest day covered by the dataset.
var FirstKnownDate = models.NewDate(2010, time.January, 1)

// LastKnownDate is the final day covered by the dataset. It is fixed, not
// read from the table.
var LastKnownDate = models.NewDate(2017, time.August, 23)

// RecentWindowDays is the length of the "recent" window ending at LastKnownDate.
const RecentWindowDays = 365

// Cutoff is the first day of the recent window (2016-08-23).
func Cutoff() models.Date {
	return LastKnownDate.AddDays(-RecentWindowDays)
}

// Engine is stateless apart from its data source; it is safe for concurrent use.
type Engine struct {
	src    store.Source
	cutoff models.Date
	log    logrus.FieldLogger
}

func New(src store.Source, log logrus.FieldLogger) *Engine {
	return &Engine{
		src:    src,
		cutoff: Cutoff(),
		log:    log.WithField("component", "query"),
	}
}

// withReader checks out a read handle for the duration of fn and always
// releases it.
func (e *Engine) withReader(ctx context.Context, op string, fn func(store.Reader) error) (err error) {
	r, err := e.src.Acquire(ctx)
	if err != nil {
		return errors.Wrapf(err, "%s: acquire", op)
	}
	defer func() {
		if cerr := r.Close(); cerr != nil && err == nil {
			err = errors.Wrapf(cerr, "%s: release", op)
		}
	}()

	start := time.Now()
	if err := fn(r); err != nil {
		return errors.Wrap(err, op)
	}
	e.log.WithFields(logrus.Fields{"op": op, "elapsed": time.Since(start)}).Debug("query complete")
	return nil
}
