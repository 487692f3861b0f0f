package model

// Realtime projection of the schedule. One Snapshot is a single
// realtime feed fetch: a header timestamp covering every trip entity
// in it.

type Snapshot struct {
	// Feed-generation time, epoch seconds. Versions the whole
	// snapshot: every trip entity in it carries this timestamp.
	Timestamp int64

	Trips []TripEntity
}

// TripEntity is one trip-level record from a realtime feed, before
// reconciliation against the schedule store.
type TripEntity struct {
	TripID      string
	RouteID     string
	DirectionID int8
	Predictions []StopPrediction
}

// StopPrediction is a stop-level arrival/departure prediction. Times
// are epoch seconds; zero means no prediction yet.
type StopPrediction struct {
	StopID    string
	Arrival   int64
	Departure int64
}

// TripUpdate is the stored "latest known realtime state of this
// trip". Timestamp is the feed-generation time of the snapshot it
// came from; CreatedAt is the ingestion time.
type TripUpdate struct {
	TripID      string
	RouteID     string
	DirectionID int8
	Timestamp   int64
	CreatedAt   int64
}

// StopUpdate is the stored "latest known prediction for this trip at
// this stop". Arrival/Departure of zero mean not yet predicted.
type StopUpdate struct {
	TripID    string
	StopID    string
	Arrival   int64
	Departure int64
	CreatedAt int64
}
