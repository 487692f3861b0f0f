package realtime

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/transitdb/gtfsync/model"
	"github.com/transitdb/gtfsync/storage"
)

// BatchResult reports per-trip outcomes of one snapshot merge.
type BatchResult struct {
	Applied      int
	SkippedStale int
	Warned       int
	Failed       int

	Warnings []Warning
	Errors   []error
}

// Engine reconciles realtime snapshots against the schedule store.
// One snapshot is one transaction: every trip that applies, applies
// together, and a reader never sees half a snapshot.
type Engine struct {
	Storage storage.Storage
	Logger  zerolog.Logger

	// now is swapped in tests to pin CreatedAt.
	now func() time.Time
}

func NewEngine(s storage.Storage, logger zerolog.Logger) *Engine {
	return &Engine{Storage: s, Logger: logger, now: time.Now}
}

// Apply merges one snapshot. Per trip: if the stored TripUpdate
// timestamp is newer or equal, the whole trip is skipped as stale;
// otherwise the TripUpdate and all its StopUpdates are written. Stops
// present in the store but absent from the snapshot keep their prior
// values. A failure on one trip does not abort the others.
func (e *Engine) Apply(ctx context.Context, snap *model.Snapshot) (*BatchResult, error) {
	tx, err := e.Storage.Begin(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "beginning snapshot tx")
	}
	defer tx.Rollback()

	tripIDs, err := tx.TripIDs()
	if err != nil {
		return nil, errors.Wrap(err, "reading trip ids")
	}
	stopIDs, err := tx.StopIDs()
	if err != nil {
		return nil, errors.Wrap(err, "reading stop ids")
	}

	dec := &Decoder{TripIDs: tripIDs, StopIDs: stopIDs}
	trips, warnings := dec.Decode(snap)

	res := &BatchResult{Warnings: warnings, Warned: len(warnings)}
	for _, w := range warnings {
		e.Logger.Warn().Str("warning", w.Warning()).Msg("snapshot record dropped")
	}

	ids := make([]string, 0, len(trips))
	for _, te := range trips {
		ids = append(ids, te.TripID)
	}
	stored, err := tx.TripUpdateTimestamps(ids)
	if err != nil {
		return nil, errors.Wrap(err, "reading stored timestamps")
	}

	createdAt := e.now().Unix()
	for _, te := range trips {
		if ts, found := stored[te.TripID]; found && snap.Timestamp <= ts {
			res.SkippedStale++
			continue
		}

		if err := e.applyTrip(tx, snap.Timestamp, createdAt, te); err != nil {
			res.Failed++
			res.Errors = append(res.Errors, err)
			e.Logger.Error().Err(err).Str("trip_id", te.TripID).Msg("trip update failed")
			continue
		}
		res.Applied++
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "committing snapshot")
	}

	e.Logger.Info().
		Int64("timestamp", snap.Timestamp).
		Int("applied", res.Applied).
		Int("skipped_stale", res.SkippedStale).
		Int("warned", res.Warned).
		Int("failed", res.Failed).
		Msg("snapshot merged")

	return res, nil
}

// applyTrip writes one trip's update and predictions. The conditional
// upsert re-checks the timestamp in SQL, so a concurrent writer that
// got there first with a newer snapshot wins and this trip's stop
// rows are left alone.
func (e *Engine) applyTrip(tx storage.Tx, timestamp, createdAt int64, te model.TripEntity) error {
	applied, err := tx.UpsertTripUpdate(&model.TripUpdate{
		TripID:      te.TripID,
		RouteID:     te.RouteID,
		DirectionID: te.DirectionID,
		Timestamp:   timestamp,
		CreatedAt:   createdAt,
	})
	if err != nil {
		return errors.Wrapf(err, "upserting trip update %s", te.TripID)
	}
	if !applied {
		return nil
	}

	if len(te.Predictions) == 0 {
		return nil
	}

	updates := make([]*model.StopUpdate, 0, len(te.Predictions))
	for _, p := range te.Predictions {
		updates = append(updates, &model.StopUpdate{
			TripID:    te.TripID,
			StopID:    p.StopID,
			Arrival:   p.Arrival,
			Departure: p.Departure,
			CreatedAt: createdAt,
		})
	}
	if err := tx.UpsertStopUpdates(updates); err != nil {
		return errors.Wrapf(err, "upserting stop updates for trip %s", te.TripID)
	}
	return nil
}

// Purge deletes realtime rows created before the cutoff. It exists
// for operators running on a retention schedule; the engine itself
// never calls it.
func (e *Engine) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	tx, err := e.Storage.Begin(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "beginning purge tx")
	}
	defer tx.Rollback()

	n, err := tx.PurgeRealtimeBefore(cutoff.Unix())
	if err != nil {
		return 0, errors.Wrap(err, "purging realtime rows")
	}
	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "committing purge")
	}

	e.Logger.Info().Int64("deleted", n).Time("cutoff", cutoff).Msg("realtime rows purged")
	return n, nil
}
