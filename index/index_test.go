package index

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transitdb/gtfsync/model"
	"github.com/transitdb/gtfsync/storage"
	"github.com/transitdb/gtfsync/testutil"
)

// loadSchedule writes route r1 serving A, B and route r2 serving B, C.
func loadSchedule(t *testing.T, s storage.Storage) {
	tx, err := s.Begin(context.Background())
	require.NoError(t, err)

	require.NoError(t, tx.UpsertAgencies([]*model.Agency{
		{ID: "a", Name: "Agency", URL: "http://a", Timezone: "UTC"},
	}))
	require.NoError(t, tx.UpsertStops([]*model.Stop{
		{ID: "A", Name: "A St", Lat: 1, Lon: 1},
		{ID: "B", Name: "B St", Lat: 2, Lon: 2},
		{ID: "C", Name: "C St", Lat: 3, Lon: 3},
	}))
	require.NoError(t, tx.UpsertCalendars([]*model.Calendar{
		{ServiceID: "daily", Monday: true, StartDate: "20240101", EndDate: "20241231"},
	}))
	require.NoError(t, tx.UpsertRoutes([]*model.Route{
		{ID: "r1", AgencyID: "a", ShortName: "R1", Type: model.RouteTypeBus},
		{ID: "r2", AgencyID: "a", ShortName: "R2", Type: model.RouteTypeBus},
	}))
	require.NoError(t, tx.UpsertTrips([]*model.Trip{
		{ID: "t1", RouteID: "r1", ServiceID: "daily"},
		{ID: "t2", RouteID: "r2", ServiceID: "daily"},
	}))
	require.NoError(t, tx.UpsertStopTimes([]*model.StopTime{
		{TripID: "t1", StopID: "A", StopSequence: 1},
		{TripID: "t1", StopID: "B", StopSequence: 2},
		{TripID: "t2", StopID: "B", StopSequence: 1},
		{TripID: "t2", StopID: "C", StopSequence: 2},
	}))

	require.NoError(t, tx.Commit())
}

func stopsForRoute(t *testing.T, s storage.Storage, routeID string) []string {
	tx, err := s.Begin(context.Background())
	require.NoError(t, err)
	defer tx.Rollback()

	stops, err := tx.StopsForRoute(routeID)
	require.NoError(t, err)
	return stops
}

func routesForStop(t *testing.T, s storage.Storage, stopID string) []string {
	tx, err := s.Begin(context.Background())
	require.NoError(t, err)
	defer tx.Rollback()

	routes, err := tx.RoutesForStop(stopID)
	require.NoError(t, err)
	return routes
}

func TestRebuild(t *testing.T) {
	s := testutil.BuildStorage(t)
	loadSchedule(t, s)

	b := &Builder{Storage: s, Logger: zerolog.Nop()}
	n, err := b.Rebuild(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	assert.Equal(t, []string{"A", "B"}, stopsForRoute(t, s, "r1"))
	assert.Equal(t, []string{"B", "C"}, stopsForRoute(t, s, "r2"))
	assert.Equal(t, []string{"r1"}, routesForStop(t, s, "A"))
	assert.Equal(t, []string{"r1", "r2"}, routesForStop(t, s, "B"))
	assert.Equal(t, []string{"r2"}, routesForStop(t, s, "C"))
}

func TestRebuildDropsStalePairs(t *testing.T) {
	s := testutil.BuildStorage(t)
	loadSchedule(t, s)
	ctx := context.Background()

	b := &Builder{Storage: s, Logger: zerolog.Nop()}
	_, err := b.Rebuild(ctx)
	require.NoError(t, err)

	// r2's trip now ends at a new stop E instead of C.
	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.UpsertStops([]*model.Stop{
		{ID: "E", Name: "E St", Lat: 5, Lon: 5},
	}))
	require.NoError(t, tx.UpsertStopTimes([]*model.StopTime{
		{TripID: "t2", StopID: "E", StopSequence: 2},
	}))
	require.NoError(t, tx.Commit())

	n, err := b.Rebuild(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	assert.Equal(t, []string{"B", "E"}, stopsForRoute(t, s, "r2"))
	assert.Empty(t, routesForStop(t, s, "C"))
}

func TestRebuildEmptySchedule(t *testing.T) {
	s := testutil.BuildStorage(t)

	b := &Builder{Storage: s, Logger: zerolog.Nop()}
	n, err := b.Rebuild(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRebuildIsIdempotent(t *testing.T) {
	s := testutil.BuildStorage(t)
	loadSchedule(t, s)
	ctx := context.Background()

	b := &Builder{Storage: s, Logger: zerolog.Nop()}
	n1, err := b.Rebuild(ctx)
	require.NoError(t, err)
	n2, err := b.Rebuild(ctx)
	require.NoError(t, err)
	assert.Equal(t, n1, n2)
}
