package load

import (
	"context"
	"math"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/transitdb/gtfsync/model"
	"github.com/transitdb/gtfsync/storage"
)

// Mode selects how a static load treats existing schedule data.
type Mode int

const (
	// Incremental upserts the bundle over whatever is stored.
	Incremental Mode = iota

	// HardReset truncates all static tables first, in its own
	// transaction, then loads the bundle from scratch.
	HardReset
)

func (m Mode) String() string {
	if m == HardReset {
		return "hard-reset"
	}
	return "incremental"
}

// Result reports per-record outcomes of one static load. Upserts
// can't tell an insert from an update, so both count as Upserted.
type Result struct {
	Upserted int
	Skipped  int
	Failed   int
	Errors   []error
}

// Loader writes static bundles into a schedule store in dependency
// order. Each entity type gets its own transaction, so a reader never
// sees a partially loaded entity type, and a child type is only
// loaded once its parents are committed.
type Loader struct {
	Storage storage.Storage

	// Strict makes any record-level error abort the whole load.
	Strict bool

	Logger zerolog.Logger
}

// Load writes the bundle. Records failing validation or referencing a
// missing parent are dropped and reported through the Result; in
// strict mode the first such record aborts the load instead.
func (l *Loader) Load(ctx context.Context, b *model.Bundle, mode Mode) (*Result, error) {
	res := &Result{}

	// Errors carried over from bundle decoding.
	for _, err := range b.Errors {
		if l.Strict {
			return nil, errors.Wrap(err, "strict")
		}
		res.Skipped++
		res.Errors = append(res.Errors, err)
	}

	if mode == HardReset {
		if err := l.truncate(ctx); err != nil {
			return nil, err
		}
	}

	l.Logger.Info().
		Str("mode", mode.String()).
		Int("agencies", len(b.Agencies)).
		Int("stops", len(b.Stops)).
		Int("routes", len(b.Routes)).
		Int("trips", len(b.Trips)).
		Int("stop_times", len(b.StopTimes)).
		Msg("loading static bundle")

	// Dependency order. Each step sees the parents committed by the
	// previous ones.
	steps := []func(context.Context, *model.Bundle, *Result) error{
		l.loadAgencies,
		l.loadStops,
		l.loadCalendars,
		l.loadRoutes,
		l.loadTrips,
		l.loadStopTimes,
		l.loadCalendarDates,
		l.loadShapes,
		l.loadTransfers,
	}
	for _, step := range steps {
		if err := step(ctx, b, res); err != nil {
			return nil, err
		}
	}

	l.Logger.Info().
		Int("upserted", res.Upserted).
		Int("skipped", res.Skipped).
		Int("failed", res.Failed).
		Msg("static load done")

	return res, nil
}

func (l *Loader) truncate(ctx context.Context) error {
	tx, err := l.Storage.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "beginning truncate tx")
	}
	if err := tx.TruncateStatic(); err != nil {
		tx.Rollback()
		return errors.Wrap(err, "truncating static tables")
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "committing truncate")
	}
	l.Logger.Warn().Msg("static tables truncated")
	return nil
}

// fail records one bad record, or aborts in strict mode.
func (l *Loader) fail(res *Result, err error) error {
	if l.Strict {
		return errors.Wrap(err, "strict")
	}
	res.Failed++
	res.Errors = append(res.Errors, err)
	l.Logger.Debug().Err(err).Msg("record dropped")
	return nil
}

func (l *Loader) loadAgencies(ctx context.Context, b *model.Bundle, res *Result) error {
	if len(b.Agencies) == 0 {
		return nil
	}
	tx, err := l.Storage.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "beginning agencies tx")
	}
	defer tx.Rollback()

	if err := tx.UpsertAgencies(b.Agencies); err != nil {
		return errors.Wrap(err, "upserting agencies")
	}
	res.Upserted += len(b.Agencies)
	return errors.Wrap(tx.Commit(), "committing agencies")
}

func (l *Loader) loadStops(ctx context.Context, b *model.Bundle, res *Result) error {
	if len(b.Stops) == 0 {
		return nil
	}
	tx, err := l.Storage.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "beginning stops tx")
	}
	defer tx.Rollback()

	stored, err := tx.StopIDs()
	if err != nil {
		return errors.Wrap(err, "reading stop ids")
	}
	batch := map[string]bool{}
	for _, s := range b.Stops {
		batch[s.ID] = true
	}

	valid := make([]*model.Stop, 0, len(b.Stops))
	for _, s := range b.Stops {
		if verr := validCoordinates(s); verr != nil {
			if err := l.fail(res, verr); err != nil {
				return err
			}
			continue
		}
		if s.ParentStation != "" && !stored[s.ParentStation] && !batch[s.ParentStation] {
			rerr := &model.ReferentialIntegrityError{
				Entity: "stop", Key: s.ID, Parent: "stop", Ref: s.ParentStation,
			}
			if err := l.fail(res, rerr); err != nil {
				return err
			}
			continue
		}
		valid = append(valid, s)
	}

	if err := tx.UpsertStops(valid); err != nil {
		return errors.Wrap(err, "upserting stops")
	}
	res.Upserted += len(valid)
	return errors.Wrap(tx.Commit(), "committing stops")
}

func validCoordinates(s *model.Stop) error {
	switch {
	case math.IsNaN(s.Lat) || math.IsInf(s.Lat, 0):
		return &model.ValidationError{Entity: "stop", Key: s.ID, Field: "stop_lat", Reason: "not finite"}
	case math.IsNaN(s.Lon) || math.IsInf(s.Lon, 0):
		return &model.ValidationError{Entity: "stop", Key: s.ID, Field: "stop_lon", Reason: "not finite"}
	case s.Lat < -90 || s.Lat > 90:
		return &model.ValidationError{Entity: "stop", Key: s.ID, Field: "stop_lat", Reason: "outside [-90, 90]"}
	case s.Lon < -180 || s.Lon > 180:
		return &model.ValidationError{Entity: "stop", Key: s.ID, Field: "stop_lon", Reason: "outside [-180, 180]"}
	}
	return nil
}

func (l *Loader) loadCalendars(ctx context.Context, b *model.Bundle, res *Result) error {
	if len(b.Calendars) == 0 {
		return nil
	}
	tx, err := l.Storage.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "beginning calendars tx")
	}
	defer tx.Rollback()

	if err := tx.UpsertCalendars(b.Calendars); err != nil {
		return errors.Wrap(err, "upserting calendars")
	}
	res.Upserted += len(b.Calendars)
	return errors.Wrap(tx.Commit(), "committing calendars")
}

func (l *Loader) loadRoutes(ctx context.Context, b *model.Bundle, res *Result) error {
	if len(b.Routes) == 0 {
		return nil
	}
	tx, err := l.Storage.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "beginning routes tx")
	}
	defer tx.Rollback()

	agencies, err := tx.AgencyIDs()
	if err != nil {
		return errors.Wrap(err, "reading agency ids")
	}

	valid := make([]*model.Route, 0, len(b.Routes))
	for _, r := range b.Routes {
		// Empty agency_id is legal in single-agency feeds.
		if r.AgencyID != "" && !agencies[r.AgencyID] {
			rerr := &model.ReferentialIntegrityError{
				Entity: "route", Key: r.ID, Parent: "agency", Ref: r.AgencyID,
			}
			if err := l.fail(res, rerr); err != nil {
				return err
			}
			continue
		}
		valid = append(valid, r)
	}

	if err := tx.UpsertRoutes(valid); err != nil {
		return errors.Wrap(err, "upserting routes")
	}
	res.Upserted += len(valid)
	return errors.Wrap(tx.Commit(), "committing routes")
}

func (l *Loader) loadTrips(ctx context.Context, b *model.Bundle, res *Result) error {
	if len(b.Trips) == 0 {
		return nil
	}
	tx, err := l.Storage.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "beginning trips tx")
	}
	defer tx.Rollback()

	routes, err := tx.RouteIDs()
	if err != nil {
		return errors.Wrap(err, "reading route ids")
	}
	services, err := tx.ServiceIDs()
	if err != nil {
		return errors.Wrap(err, "reading service ids")
	}
	// Exception-only services arrive in calendar_dates, which loads
	// after trips, so the batch's calendar_dates count as parents.
	for _, cd := range b.CalendarDates {
		services[cd.ServiceID] = true
	}

	valid := make([]*model.Trip, 0, len(b.Trips))
	for _, t := range b.Trips {
		if !routes[t.RouteID] {
			rerr := &model.ReferentialIntegrityError{
				Entity: "trip", Key: t.ID, Parent: "route", Ref: t.RouteID,
			}
			if err := l.fail(res, rerr); err != nil {
				return err
			}
			continue
		}
		if !services[t.ServiceID] {
			rerr := &model.ReferentialIntegrityError{
				Entity: "trip", Key: t.ID, Parent: "service", Ref: t.ServiceID,
			}
			if err := l.fail(res, rerr); err != nil {
				return err
			}
			continue
		}
		valid = append(valid, t)
	}

	if err := tx.UpsertTrips(valid); err != nil {
		return errors.Wrap(err, "upserting trips")
	}
	res.Upserted += len(valid)
	return errors.Wrap(tx.Commit(), "committing trips")
}

func (l *Loader) loadStopTimes(ctx context.Context, b *model.Bundle, res *Result) error {
	if len(b.StopTimes) == 0 {
		return nil
	}
	tx, err := l.Storage.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "beginning stop_times tx")
	}
	defer tx.Rollback()

	trips, err := tx.TripIDs()
	if err != nil {
		return errors.Wrap(err, "reading trip ids")
	}
	stops, err := tx.StopIDs()
	if err != nil {
		return errors.Wrap(err, "reading stop ids")
	}

	valid := make([]*model.StopTime, 0, len(b.StopTimes))
	for _, st := range b.StopTimes {
		if !trips[st.TripID] {
			rerr := &model.ReferentialIntegrityError{
				Entity: "stop_time", Key: st.TripID, Parent: "trip", Ref: st.TripID,
			}
			if err := l.fail(res, rerr); err != nil {
				return err
			}
			continue
		}
		if !stops[st.StopID] {
			rerr := &model.ReferentialIntegrityError{
				Entity: "stop_time", Key: st.TripID, Parent: "stop", Ref: st.StopID,
			}
			if err := l.fail(res, rerr); err != nil {
				return err
			}
			continue
		}
		if math.IsNaN(st.ShapeDistTraveled) || math.IsInf(st.ShapeDistTraveled, 0) {
			verr := &model.ValidationError{
				Entity: "stop_time", Key: st.TripID, Field: "shape_dist_traveled", Reason: "not finite",
			}
			if err := l.fail(res, verr); err != nil {
				return err
			}
			continue
		}
		valid = append(valid, st)
	}

	if err := tx.UpsertStopTimes(valid); err != nil {
		return errors.Wrap(err, "upserting stop_times")
	}
	res.Upserted += len(valid)
	return errors.Wrap(tx.Commit(), "committing stop_times")
}

func (l *Loader) loadCalendarDates(ctx context.Context, b *model.Bundle, res *Result) error {
	if len(b.CalendarDates) == 0 {
		return nil
	}
	tx, err := l.Storage.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "beginning calendar_dates tx")
	}
	defer tx.Rollback()

	if err := tx.UpsertCalendarDates(b.CalendarDates); err != nil {
		return errors.Wrap(err, "upserting calendar_dates")
	}
	res.Upserted += len(b.CalendarDates)
	return errors.Wrap(tx.Commit(), "committing calendar_dates")
}

func (l *Loader) loadShapes(ctx context.Context, b *model.Bundle, res *Result) error {
	if len(b.ShapePoints) == 0 {
		return nil
	}
	tx, err := l.Storage.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "beginning shapes tx")
	}
	defer tx.Rollback()

	valid := make([]*model.ShapePoint, 0, len(b.ShapePoints))
	for _, sp := range b.ShapePoints {
		if verr := validShapePoint(sp); verr != nil {
			if err := l.fail(res, verr); err != nil {
				return err
			}
			continue
		}
		valid = append(valid, sp)
	}

	if err := tx.UpsertShapePoints(valid); err != nil {
		return errors.Wrap(err, "upserting shapes")
	}
	res.Upserted += len(valid)
	return errors.Wrap(tx.Commit(), "committing shapes")
}

func validShapePoint(sp *model.ShapePoint) error {
	switch {
	case math.IsNaN(sp.Lat) || math.IsInf(sp.Lat, 0):
		return &model.ValidationError{Entity: "shape_point", Key: sp.ShapeID, Field: "shape_pt_lat", Reason: "not finite"}
	case math.IsNaN(sp.Lon) || math.IsInf(sp.Lon, 0):
		return &model.ValidationError{Entity: "shape_point", Key: sp.ShapeID, Field: "shape_pt_lon", Reason: "not finite"}
	case sp.Lat < -90 || sp.Lat > 90:
		return &model.ValidationError{Entity: "shape_point", Key: sp.ShapeID, Field: "shape_pt_lat", Reason: "outside [-90, 90]"}
	case sp.Lon < -180 || sp.Lon > 180:
		return &model.ValidationError{Entity: "shape_point", Key: sp.ShapeID, Field: "shape_pt_lon", Reason: "outside [-180, 180]"}
	case math.IsNaN(sp.DistTraveled) || math.IsInf(sp.DistTraveled, 0):
		return &model.ValidationError{Entity: "shape_point", Key: sp.ShapeID, Field: "shape_dist_traveled", Reason: "not finite"}
	}
	return nil
}

func (l *Loader) loadTransfers(ctx context.Context, b *model.Bundle, res *Result) error {
	if len(b.Transfers) == 0 {
		return nil
	}
	tx, err := l.Storage.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "beginning transfers tx")
	}
	defer tx.Rollback()

	stops, err := tx.StopIDs()
	if err != nil {
		return errors.Wrap(err, "reading stop ids")
	}

	valid := make([]*model.Transfer, 0, len(b.Transfers))
	for _, t := range b.Transfers {
		ref := ""
		if !stops[t.FromStopID] {
			ref = t.FromStopID
		} else if !stops[t.ToStopID] {
			ref = t.ToStopID
		}
		if ref != "" {
			rerr := &model.ReferentialIntegrityError{
				Entity: "transfer", Key: t.FromStopID + "->" + t.ToStopID, Parent: "stop", Ref: ref,
			}
			if err := l.fail(res, rerr); err != nil {
				return err
			}
			continue
		}
		valid = append(valid, t)
	}

	if err := tx.UpsertTransfers(valid); err != nil {
		return errors.Wrap(err, "upserting transfers")
	}
	res.Upserted += len(valid)
	return errors.Wrap(tx.Commit(), "committing transfers")
}
