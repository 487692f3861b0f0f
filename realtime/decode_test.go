package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transitdb/gtfsync/model"
)

func TestDecodeFiltersUnknownTrips(t *testing.T) {
	dec := &Decoder{
		TripIDs: map[string]bool{"t1": true},
		StopIDs: map[string]bool{"A": true, "B": true},
	}

	trips, warnings := dec.Decode(&model.Snapshot{
		Timestamp: 100,
		Trips: []model.TripEntity{
			{TripID: "t1", Predictions: []model.StopPrediction{{StopID: "A", Arrival: 1000}}},
			{TripID: "ghost", Predictions: []model.StopPrediction{{StopID: "A", Arrival: 1000}}},
		},
	})

	require.Len(t, trips, 1)
	assert.Equal(t, "t1", trips[0].TripID)

	require.Len(t, warnings, 1)
	warning, ok := warnings[0].(UnknownTripWarning)
	require.True(t, ok)
	assert.Equal(t, "ghost", warning.TripID)
}

func TestDecodeFiltersUnknownStops(t *testing.T) {
	dec := &Decoder{
		TripIDs: map[string]bool{"t1": true},
		StopIDs: map[string]bool{"A": true},
	}

	trips, warnings := dec.Decode(&model.Snapshot{
		Timestamp: 100,
		Trips: []model.TripEntity{
			{TripID: "t1", Predictions: []model.StopPrediction{
				{StopID: "A", Arrival: 1000},
				{StopID: "ghost", Arrival: 1100},
			}},
		},
	})

	// The trip survives; only the unknown stop's prediction is gone.
	require.Len(t, trips, 1)
	require.Len(t, trips[0].Predictions, 1)
	assert.Equal(t, "A", trips[0].Predictions[0].StopID)

	require.Len(t, warnings, 1)
	warning, ok := warnings[0].(UnknownStopWarning)
	require.True(t, ok)
	assert.Equal(t, "t1", warning.TripID)
	assert.Equal(t, "ghost", warning.StopID)
}

func TestDecodeIsPure(t *testing.T) {
	dec := &Decoder{
		TripIDs: map[string]bool{"t1": true},
		StopIDs: map[string]bool{"A": true},
	}

	snap := &model.Snapshot{
		Timestamp: 100,
		Trips: []model.TripEntity{
			{TripID: "t1", Predictions: []model.StopPrediction{
				{StopID: "A"},
				{StopID: "ghost"},
			}},
		},
	}

	dec.Decode(snap)

	// Input untouched.
	require.Len(t, snap.Trips[0].Predictions, 2)
	assert.Equal(t, "ghost", snap.Trips[0].Predictions[1].StopID)
}

func TestDecodeEmptySnapshot(t *testing.T) {
	dec := &Decoder{TripIDs: map[string]bool{}, StopIDs: map[string]bool{}}

	trips, warnings := dec.Decode(&model.Snapshot{Timestamp: 100})
	assert.Empty(t, trips)
	assert.Empty(t, warnings)
}
