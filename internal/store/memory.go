package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/lox/surfsup/internal/models"
)

// Memory is a Source over a fixed slice of rows, used in tests and for
// serving small fixtures without a database file.
type Memory struct {
	rows []models.Measurement

	mu   sync.RWMutex
	fail error

	open atomic.Int64
}

// NewMemory copies rows, numbering any without an ID in slice order.
func NewMemory(rows []models.Measurement) *Memory {
	cp := make([]models.Measurement, len(rows))
	copy(cp, rows)
	for i := range cp {
		if cp[i].ID == 0 {
			cp[i].ID = int64(i + 1)
		}
	}
	sort.SliceStable(cp, func(i, j int) bool {
		if !cp[i].Date.Equal(cp[j].Date) {
			return cp[i].Date.Before(cp[j].Date)
		}
		return cp[i].ID < cp[j].ID
	})
	return &Memory{rows: cp}
}

// SetFailure makes subsequent Acquire calls fail with err wrapped in
// ErrUnavailable. A nil err restores normal operation.
func (m *Memory) SetFailure(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = err
}

// OpenHandles reports how many readers have been acquired and not closed.
func (m *Memory) OpenHandles() int64 {
	return m.open.Load()
}

func (m *Memory) Acquire(ctx context.Context) (Reader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	fail := m.fail
	m.mu.RUnlock()
	if fail != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, fail)
	}
	m.open.Add(1)
	return &memoryReader{m: m}, nil
}

type memoryReader struct {
	m      *Memory
	closed atomic.Bool
}

func (r *memoryReader) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.m.mu.RLock()
	fail := r.m.fail
	r.m.mu.RUnlock()
	if fail != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, fail)
	}
	return nil
}

func (r *memoryReader) Measurements(ctx context.Context, f models.MeasurementFilter) ([]models.Measurement, error) {
	if err := r.check(ctx); err != nil {
		return nil, err
	}

	var out []models.Measurement
	for _, row := range r.m.rows {
		if f.Matches(row) {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *memoryReader) Stations(ctx context.Context) ([]string, error) {
	counts, err := r.StationCounts(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(counts))
	for i, c := range counts {
		out[i] = c.Station
	}
	return out, nil
}

func (r *memoryReader) StationCounts(ctx context.Context) ([]models.StationActivity, error) {
	if err := r.check(ctx); err != nil {
		return nil, err
	}

	firstID := make(map[string]int64)
	counts := make(map[string]int)
	for _, row := range r.m.rows {
		if id, ok := firstID[row.Station]; !ok || row.ID < id {
			firstID[row.Station] = row.ID
		}
		counts[row.Station]++
	}

	out := make([]models.StationActivity, 0, len(counts))
	for station, n := range counts {
		out = append(out, models.StationActivity{Station: station, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		return firstID[out[i].Station] < firstID[out[j].Station]
	})
	return out, nil
}

func (r *memoryReader) Close() error {
	if r.closed.CompareAndSwap(false, true) {
		r.m.open.Add(-1)
	}
	return nil
}
