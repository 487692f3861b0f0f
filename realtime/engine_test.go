package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transitdb/gtfsync/model"
	"github.com/transitdb/gtfsync/storage"
	"github.com/transitdb/gtfsync/testutil"
)

// loadSchedule writes trips t1..t3 on route r1 over stops A, B, C.
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
	}))
	require.NoError(t, tx.UpsertTrips([]*model.Trip{
		{ID: "t1", RouteID: "r1", ServiceID: "daily"},
		{ID: "t2", RouteID: "r1", ServiceID: "daily"},
		{ID: "t3", RouteID: "r1", ServiceID: "daily"},
	}))

	require.NoError(t, tx.Commit())
}

func newTestEngine(t *testing.T) (*Engine, storage.Storage) {
	s := testutil.BuildStorage(t)
	loadSchedule(t, s)

	e := NewEngine(s, zerolog.Nop())
	e.now = func() time.Time { return time.Unix(5000, 0) }
	return e, s
}

func stopUpdates(t *testing.T, s storage.Storage, tripID string) []*model.StopUpdate {
	tx, err := s.Begin(context.Background())
	require.NoError(t, err)
	defer tx.Rollback()

	updates, err := tx.StopUpdates(tripID)
	require.NoError(t, err)
	return updates
}

func tripUpdate(t *testing.T, s storage.Storage, tripID string) *model.TripUpdate {
	tx, err := s.Begin(context.Background())
	require.NoError(t, err)
	defer tx.Rollback()

	tu, err := tx.TripUpdate(tripID)
	require.NoError(t, err)
	return tu
}

func TestApplySimpleSnapshot(t *testing.T) {
	e, s := newTestEngine(t)

	res, err := e.Apply(context.Background(), &model.Snapshot{
		Timestamp: 100,
		Trips: []model.TripEntity{
			{TripID: "t1", RouteID: "r1", Predictions: []model.StopPrediction{
				{StopID: "A", Arrival: 1000, Departure: 1030},
				{StopID: "B", Arrival: 1100},
			}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Applied)
	assert.Zero(t, res.SkippedStale)
	assert.Zero(t, res.Warned)
	assert.Zero(t, res.Failed)

	tu := tripUpdate(t, s, "t1")
	require.NotNil(t, tu)
	assert.Equal(t, int64(100), tu.Timestamp)
	assert.Equal(t, int64(5000), tu.CreatedAt)

	updates := stopUpdates(t, s, "t1")
	require.Len(t, updates, 2)
	assert.Equal(t, int64(1000), updates[0].Arrival)
	assert.Equal(t, int64(1030), updates[0].Departure)
	assert.Equal(t, int64(1100), updates[1].Arrival)
	assert.Equal(t, int64(0), updates[1].Departure)
}

func TestApplyStaleSnapshotSkipped(t *testing.T) {
	e, s := newTestEngine(t)
	ctx := context.Background()

	// T1=100 applies.
	_, err := e.Apply(ctx, &model.Snapshot{
		Timestamp: 100,
		Trips: []model.TripEntity{
			{TripID: "t1", RouteID: "r1", Predictions: []model.StopPrediction{
				{StopID: "A", Arrival: 1000},
			}},
		},
	})
	require.NoError(t, err)

	// T0=50 arrives late and is skipped wholesale.
	res, err := e.Apply(ctx, &model.Snapshot{
		Timestamp: 50,
		Trips: []model.TripEntity{
			{TripID: "t1", RouteID: "r1", Predictions: []model.StopPrediction{
				{StopID: "A", Arrival: 999},
				{StopID: "B", Arrival: 1050},
			}},
		},
	})
	require.NoError(t, err)
	assert.Zero(t, res.Applied)
	assert.Equal(t, 1, res.SkippedStale)

	tu := tripUpdate(t, s, "t1")
	assert.Equal(t, int64(100), tu.Timestamp)

	updates := stopUpdates(t, s, "t1")
	require.Len(t, updates, 1)
	assert.Equal(t, int64(1000), updates[0].Arrival)
}

func TestApplyEqualTimestampSkipped(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	snap := &model.Snapshot{
		Timestamp: 100,
		Trips: []model.TripEntity{
			{TripID: "t1", RouteID: "r1", Predictions: []model.StopPrediction{
				{StopID: "A", Arrival: 1000},
			}},
		},
	}

	_, err := e.Apply(ctx, snap)
	require.NoError(t, err)

	res, err := e.Apply(ctx, snap)
	require.NoError(t, err)
	assert.Zero(t, res.Applied)
	assert.Equal(t, 1, res.SkippedStale)
}

func TestApplyTripLevelAtomicity(t *testing.T) {
	e, s := newTestEngine(t)
	ctx := context.Background()

	// First snapshot predicts stop C only.
	_, err := e.Apply(ctx, &model.Snapshot{
		Timestamp: 100,
		Trips: []model.TripEntity{
			{TripID: "t1", RouteID: "r1", Predictions: []model.StopPrediction{
				{StopID: "C", Arrival: 1200},
			}},
		},
	})
	require.NoError(t, err)

	// Newer snapshot covers A and B but not C. C keeps its prior
	// value; it is not deleted.
	res, err := e.Apply(ctx, &model.Snapshot{
		Timestamp: 200,
		Trips: []model.TripEntity{
			{TripID: "t1", RouteID: "r1", Predictions: []model.StopPrediction{
				{StopID: "A", Arrival: 1000},
				{StopID: "B", Arrival: 1100},
			}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Applied)

	tu := tripUpdate(t, s, "t1")
	assert.Equal(t, int64(200), tu.Timestamp)

	updates := stopUpdates(t, s, "t1")
	require.Len(t, updates, 3)
	byStop := map[string]*model.StopUpdate{}
	for _, su := range updates {
		byStop[su.StopID] = su
	}
	assert.Equal(t, int64(1000), byStop["A"].Arrival)
	assert.Equal(t, int64(1100), byStop["B"].Arrival)
	assert.Equal(t, int64(1200), byStop["C"].Arrival)
}

func TestApplyUnknownTripDoesNotAbortBatch(t *testing.T) {
	e, s := newTestEngine(t)

	trips := []model.TripEntity{}
	for _, id := range []string{"t1", "t2", "t3"} {
		trips = append(trips, model.TripEntity{
			TripID: id, RouteID: "r1",
			Predictions: []model.StopPrediction{{StopID: "A", Arrival: 1000}},
		})
	}
	trips = append(trips, model.TripEntity{
		TripID: "ghost", RouteID: "r1",
		Predictions: []model.StopPrediction{{StopID: "A", Arrival: 1000}},
	})

	res, err := e.Apply(context.Background(), &model.Snapshot{Timestamp: 100, Trips: trips})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Applied)
	assert.Equal(t, 1, res.Warned)
	assert.Zero(t, res.Failed)

	require.Len(t, res.Warnings, 1)
	warning, ok := res.Warnings[0].(UnknownTripWarning)
	require.True(t, ok)
	assert.Equal(t, "ghost", warning.TripID)

	assert.Nil(t, tripUpdate(t, s, "ghost"))
}

func TestApplyPerTripStaleness(t *testing.T) {
	e, s := newTestEngine(t)
	ctx := context.Background()

	// t1 already has a newer update than the incoming snapshot; t2
	// does not. The snapshot applies to t2 only.
	_, err := e.Apply(ctx, &model.Snapshot{
		Timestamp: 300,
		Trips: []model.TripEntity{
			{TripID: "t1", RouteID: "r1", Predictions: []model.StopPrediction{
				{StopID: "A", Arrival: 3000},
			}},
		},
	})
	require.NoError(t, err)

	res, err := e.Apply(ctx, &model.Snapshot{
		Timestamp: 200,
		Trips: []model.TripEntity{
			{TripID: "t1", RouteID: "r1", Predictions: []model.StopPrediction{
				{StopID: "A", Arrival: 2000},
			}},
			{TripID: "t2", RouteID: "r1", Predictions: []model.StopPrediction{
				{StopID: "B", Arrival: 2100},
			}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Applied)
	assert.Equal(t, 1, res.SkippedStale)

	assert.Equal(t, int64(300), tripUpdate(t, s, "t1").Timestamp)
	assert.Equal(t, int64(200), tripUpdate(t, s, "t2").Timestamp)
	assert.Equal(t, int64(3000), stopUpdates(t, s, "t1")[0].Arrival)
}

func TestApplyEmptyPredictions(t *testing.T) {
	e, s := newTestEngine(t)

	res, err := e.Apply(context.Background(), &model.Snapshot{
		Timestamp: 100,
		Trips: []model.TripEntity{
			{TripID: "t1", RouteID: "r1"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Applied)

	require.NotNil(t, tripUpdate(t, s, "t1"))
	assert.Empty(t, stopUpdates(t, s, "t1"))
}

func TestPurge(t *testing.T) {
	e, s := newTestEngine(t)
	ctx := context.Background()

	e.now = func() time.Time { return time.Unix(1000, 0) }
	_, err := e.Apply(ctx, &model.Snapshot{
		Timestamp: 100,
		Trips: []model.TripEntity{
			{TripID: "t1", RouteID: "r1", Predictions: []model.StopPrediction{
				{StopID: "A", Arrival: 1000},
			}},
		},
	})
	require.NoError(t, err)

	e.now = func() time.Time { return time.Unix(9000, 0) }
	_, err = e.Apply(ctx, &model.Snapshot{
		Timestamp: 200,
		Trips: []model.TripEntity{
			{TripID: "t2", RouteID: "r1", Predictions: []model.StopPrediction{
				{StopID: "B", Arrival: 2000},
			}},
		},
	})
	require.NoError(t, err)

	n, err := e.Purge(ctx, time.Unix(5000, 0))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	assert.Nil(t, tripUpdate(t, s, "t1"))
	assert.NotNil(t, tripUpdate(t, s, "t2"))
}
