package parse

import (
	"testing"

	gtfsproto "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	proto "google.golang.org/protobuf/proto"
)

func marshalFeed(t *testing.T, f *gtfsproto.FeedMessage) []byte {
	data, err := proto.Marshal(f)
	require.NoError(t, err)
	return data
}

func feedHeader(timestamp uint64) *gtfsproto.FeedHeader {
	return &gtfsproto.FeedHeader{
		GtfsRealtimeVersion: proto.String("2.0"),
		Incrementality:      gtfsproto.FeedHeader_FULL_DATASET.Enum(),
		Timestamp:           proto.Uint64(timestamp),
	}
}

func TestParseRealtimeBadHeader(t *testing.T) {
	// This one's fine
	_, err := ParseRealtime(marshalFeed(t, &gtfsproto.FeedMessage{
		Header: feedHeader(1702473763),
	}))
	assert.NoError(t, err)

	// Unsupported version
	_, err = ParseRealtime(marshalFeed(t, &gtfsproto.FeedMessage{
		Header: &gtfsproto.FeedHeader{
			GtfsRealtimeVersion: proto.String("3.0"),
			Incrementality:      gtfsproto.FeedHeader_FULL_DATASET.Enum(),
		},
	}))
	assert.Error(t, err)

	// Unsupported incrementality
	_, err = ParseRealtime(marshalFeed(t, &gtfsproto.FeedMessage{
		Header: &gtfsproto.FeedHeader{
			GtfsRealtimeVersion: proto.String("2.0"),
			Incrementality:      gtfsproto.FeedHeader_DIFFERENTIAL.Enum(),
		},
	}))
	assert.Error(t, err)
}

func TestParseRealtimeEmptyFeed(t *testing.T) {
	snap, err := ParseRealtime(marshalFeed(t, &gtfsproto.FeedMessage{
		Header: feedHeader(1702473763),
	}))
	require.NoError(t, err)
	assert.Equal(t, int64(1702473763), snap.Timestamp)
	assert.Empty(t, snap.Trips)
}

func TestParseRealtimeTripUpdates(t *testing.T) {
	snap, err := ParseRealtime(marshalFeed(t, &gtfsproto.FeedMessage{
		Header: feedHeader(100),
		Entity: []*gtfsproto.FeedEntity{
			{
				Id: proto.String("e1"),
				TripUpdate: &gtfsproto.TripUpdate{
					Trip: &gtfsproto.TripDescriptor{
						TripId:               proto.String("trip1"),
						RouteId:              proto.String("route1"),
						DirectionId:          proto.Uint32(1),
						ScheduleRelationship: gtfsproto.TripDescriptor_SCHEDULED.Enum(),
					},
					StopTimeUpdate: []*gtfsproto.TripUpdate_StopTimeUpdate{
						// Both arrival and departure
						{
							StopId:    proto.String("stop1"),
							Arrival:   &gtfsproto.TripUpdate_StopTimeEvent{Time: proto.Int64(1000)},
							Departure: &gtfsproto.TripUpdate_StopTimeEvent{Time: proto.Int64(1030)},
						},
						// Arrival only
						{
							StopId:  proto.String("stop2"),
							Arrival: &gtfsproto.TripUpdate_StopTimeEvent{Time: proto.Int64(1100)},
						},
						// Skipped stop, dropped
						{
							StopId:               proto.String("stop3"),
							ScheduleRelationship: gtfsproto.TripUpdate_StopTimeUpdate_SKIPPED.Enum(),
						},
					},
				},
			},
			// Canceled trip, dropped
			{
				Id: proto.String("e2"),
				TripUpdate: &gtfsproto.TripUpdate{
					Trip: &gtfsproto.TripDescriptor{
						TripId:               proto.String("trip2"),
						ScheduleRelationship: gtfsproto.TripDescriptor_CANCELED.Enum(),
					},
				},
			},
			// Vehicle position only, ignored
			{
				Id: proto.String("e3"),
			},
		},
	}))
	require.NoError(t, err)

	assert.Equal(t, int64(100), snap.Timestamp)
	require.Len(t, snap.Trips, 1)

	te := snap.Trips[0]
	assert.Equal(t, "trip1", te.TripID)
	assert.Equal(t, "route1", te.RouteID)
	assert.Equal(t, int8(1), te.DirectionID)

	require.Len(t, te.Predictions, 2)
	assert.Equal(t, "stop1", te.Predictions[0].StopID)
	assert.Equal(t, int64(1000), te.Predictions[0].Arrival)
	assert.Equal(t, int64(1030), te.Predictions[0].Departure)
	assert.Equal(t, "stop2", te.Predictions[1].StopID)
	assert.Equal(t, int64(1100), te.Predictions[1].Arrival)
	assert.Equal(t, int64(0), te.Predictions[1].Departure)
}

func TestParseRealtimeBlankTripIDSkipped(t *testing.T) {
	snap, err := ParseRealtime(marshalFeed(t, &gtfsproto.FeedMessage{
		Header: feedHeader(100),
		Entity: []*gtfsproto.FeedEntity{
			{
				Id: proto.String("e1"),
				TripUpdate: &gtfsproto.TripUpdate{
					Trip: &gtfsproto.TripDescriptor{
						RouteId: proto.String("route1"),
					},
				},
			},
		},
	}))
	require.NoError(t, err)
	assert.Empty(t, snap.Trips)
}

func TestParseRealtimeGarbage(t *testing.T) {
	_, err := ParseRealtime([]byte("not a protobuf, unfortunately"))
	assert.Error(t, err)
}
