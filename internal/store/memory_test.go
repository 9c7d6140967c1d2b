package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/surfsup/internal/models"
)

func TestMemory_OrdersAndFilters(t *testing.T) {
	m := NewMemory([]models.Measurement{
		{Station: "B", Date: date(t, "2017-01-02")},
		{Station: "A", Date: date(t, "2017-01-01")},
		{Station: "C", Date: date(t, "2017-01-02")},
	})
	ctx := context.Background()

	r, err := m.Acquire(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), m.OpenHandles())

	rows, err := r.Measurements(ctx, models.MeasurementFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"A", "B", "C"}, []string{rows[0].Station, rows[1].Station, rows[2].Station})
	assert.Equal(t, int64(2), rows[0].ID)

	from := date(t, "2017-01-02")
	rows, err = r.Measurements(ctx, models.MeasurementFilter{From: &from, Station: "C"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "C", rows[0].Station)

	require.NoError(t, r.Close())
	require.NoError(t, r.Close())
	assert.Equal(t, int64(0), m.OpenHandles())
}

func TestMemory_Failure(t *testing.T) {
	m := NewMemory(nil)
	ctx := context.Background()

	r, err := m.Acquire(ctx)
	require.NoError(t, err)
	defer r.Close()

	m.SetFailure(errors.New("boom"))
	_, err = m.Acquire(ctx)
	assert.ErrorIs(t, err, ErrUnavailable)
	_, err = r.Measurements(ctx, models.MeasurementFilter{})
	assert.ErrorIs(t, err, ErrUnavailable)

	m.SetFailure(nil)
	rows, err := r.Measurements(ctx, models.MeasurementFilter{})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestMemory_StationsInInsertionOrder(t *testing.T) {
	m := NewMemory([]models.Measurement{
		{Station: "USC00519397", Date: date(t, "2010-01-02")},
		{Station: "USC00519397", Date: date(t, "2010-01-03")},
		{Station: "USC00513117", Date: date(t, "2010-01-01")},
	})
	ctx := context.Background()

	r, err := m.Acquire(ctx)
	require.NoError(t, err)
	defer r.Close()

	stations, err := r.Stations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"USC00519397", "USC00513117"}, stations)

	counts, err := r.StationCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.StationActivity{
		{Station: "USC00519397", Count: 2},
		{Station: "USC00513117", Count: 1},
	}, counts)
}
