package realtime

import (
	"fmt"

	"github.com/transitdb/gtfsync/model"
)

// Warning is a non-fatal problem found while decoding a snapshot
// against the schedule. The offending record is dropped and decoding
// continues.
type Warning interface {
	Warning() string
}

// UnknownTripWarning marks a trip entity whose trip_id is not in the
// schedule store.
type UnknownTripWarning struct {
	TripID string
}

func (w UnknownTripWarning) Warning() string {
	return fmt.Sprintf("unknown trip %q", w.TripID)
}

// UnknownStopWarning marks a stop prediction whose stop_id is not in
// the schedule store. Only the prediction is dropped, not the trip.
type UnknownStopWarning struct {
	TripID string
	StopID string
}

func (w UnknownStopWarning) Warning() string {
	return fmt.Sprintf("trip %q: unknown stop %q", w.TripID, w.StopID)
}

// Decoder filters a snapshot down to the trips and stops the schedule
// knows about. It holds no storage handle and performs no writes, so
// it can run against key sets captured at any point.
type Decoder struct {
	TripIDs map[string]bool
	StopIDs map[string]bool
}

// Decode drops trip entities with unknown trip IDs and predictions
// with unknown stop IDs, reporting one warning per dropped record.
func (d *Decoder) Decode(snap *model.Snapshot) ([]model.TripEntity, []Warning) {
	var warnings []Warning
	trips := make([]model.TripEntity, 0, len(snap.Trips))

	for _, te := range snap.Trips {
		if !d.TripIDs[te.TripID] {
			warnings = append(warnings, UnknownTripWarning{TripID: te.TripID})
			continue
		}

		kept := te
		kept.Predictions = make([]model.StopPrediction, 0, len(te.Predictions))
		for _, p := range te.Predictions {
			if !d.StopIDs[p.StopID] {
				warnings = append(warnings, UnknownStopWarning{TripID: te.TripID, StopID: p.StopID})
				continue
			}
			kept.Predictions = append(kept.Predictions, p)
		}

		trips = append(trips, kept)
	}

	return trips, warnings
}
