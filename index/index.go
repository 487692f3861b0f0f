package index

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/transitdb/gtfsync/storage"
)

// Builder maintains the derived routes<->stops membership index. The
// index answers "which stops does this route serve" and "which routes
// serve this stop" without walking Route->Trip->StopTime joins.
type Builder struct {
	Storage storage.Storage
	Logger  zerolog.Logger
}

// Rebuild recomputes the index from the current schedule and replaces
// the stored set wholesale, in one transaction. There is no
// incremental path: a route whose trips no longer serve a stop must
// lose that pair, and a full replace is the simplest way to guarantee
// it. Returns the number of pairs stored.
func (b *Builder) Rebuild(ctx context.Context) (int, error) {
	tx, err := b.Storage.Begin(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "beginning index tx")
	}
	defer tx.Rollback()

	pairs, err := tx.RouteStopPairs()
	if err != nil {
		return 0, errors.Wrap(err, "computing route/stop pairs")
	}

	n, err := tx.ReplaceRouteStops(pairs)
	if err != nil {
		return 0, errors.Wrap(err, "replacing route/stop index")
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "committing index")
	}

	b.Logger.Info().Int("pairs", n).Msg("routes/stops index rebuilt")
	return n, nil
}
