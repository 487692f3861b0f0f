package parse

import (
	"fmt"

	gtfsproto "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	proto "google.golang.org/protobuf/proto"

	"github.com/transitdb/gtfsync/model"
)

// ParseRealtime decodes one GTFS-realtime protobuf feed into a
// Snapshot. Only FULL_DATASET feeds are supported; only TripUpdate
// entities are read, and only scheduled trips with a trip_id. Alerts
// and vehicle positions are ignored.
func ParseRealtime(buf []byte) (*model.Snapshot, error) {
	f := &gtfsproto.FeedMessage{}
	if err := proto.Unmarshal(buf, f); err != nil {
		return nil, fmt.Errorf("unmarshaling protobuf: %w", err)
	}

	header := f.GetHeader()

	version := header.GetGtfsRealtimeVersion()
	if version != "2.0" && version != "1.0" {
		return nil, fmt.Errorf("version %s not supported", version)
	}
	if header.GetIncrementality() != gtfsproto.FeedHeader_FULL_DATASET {
		return nil, fmt.Errorf("feed incrementality %s not supported", header.GetIncrementality())
	}

	snap := &model.Snapshot{
		Timestamp: int64(header.GetTimestamp()),
	}

	for _, entity := range f.GetEntity() {
		tu := entity.GetTripUpdate()
		if tu == nil {
			continue
		}

		trip := tu.GetTrip()
		if trip == nil {
			return nil, fmt.Errorf("trip_update missing trip")
		}

		// Blank trip ID is allowed when (route_id, direction_id,
		// start_time, start_date) uniquely identifies the trip.
		// We don't support it.
		if trip.GetTripId() == "" {
			continue
		}
		if trip.GetScheduleRelationship() != gtfsproto.TripDescriptor_SCHEDULED {
			continue
		}

		te := model.TripEntity{
			TripID:      trip.GetTripId(),
			RouteID:     trip.GetRouteId(),
			DirectionID: int8(trip.GetDirectionId()),
		}

		for _, stu := range tu.GetStopTimeUpdate() {
			if stu.GetStopId() == "" {
				continue
			}
			if stu.GetScheduleRelationship() != gtfsproto.TripUpdate_StopTimeUpdate_SCHEDULED {
				continue
			}

			p := model.StopPrediction{StopID: stu.GetStopId()}
			if arr := stu.GetArrival(); arr != nil {
				p.Arrival = arr.GetTime()
			}
			if dep := stu.GetDeparture(); dep != nil {
				p.Departure = dep.GetTime()
			}
			te.Predictions = append(te.Predictions, p)
		}

		snap.Trips = append(snap.Trips, te)
	}

	return snap, nil
}
