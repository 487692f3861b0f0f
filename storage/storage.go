package storage

import (
	"context"

	"github.com/transitdb/gtfsync/model"
)

// Storage is the relational store the loader, reconciliation engine
// and index builder operate on. Implementations must make Init
// idempotent and must implement every upsert as a single conditional
// insert-or-update statement, not as check-then-branch.
type Storage interface {
	// Creates tables and indexes if absent. Safe to call repeatedly.
	Init(ctx context.Context) error

	// Begins a transaction-scoped unit of work. One entity-type
	// load and one snapshot merge each get their own Tx, so a
	// reader never observes a partially applied unit.
	Begin(ctx context.Context) (Tx, error)

	Close() error
}

// Tx is one transactional unit of work against the store. All writes
// are upserts keyed by the entity's primary key.
type Tx interface {
	Commit() error
	Rollback() error

	UpsertAgencies([]*model.Agency) error
	UpsertStops([]*model.Stop) error
	UpsertCalendars([]*model.Calendar) error
	UpsertCalendarDates([]*model.CalendarDate) error
	UpsertRoutes([]*model.Route) error
	UpsertTrips([]*model.Trip) error
	UpsertStopTimes([]*model.StopTime) error
	UpsertShapePoints([]*model.ShapePoint) error
	UpsertTransfers([]*model.Transfer) error

	// Deletes all static rows, children before parents. Used by
	// hard-reset loads only.
	TruncateStatic() error

	// Key sets, used for referential checks and realtime decoding.
	AgencyIDs() (map[string]bool, error)
	StopIDs() (map[string]bool, error)
	RouteIDs() (map[string]bool, error)
	ServiceIDs() (map[string]bool, error)
	TripIDs() (map[string]bool, error)

	// Reads used by consumers and tests.
	Agencies() ([]*model.Agency, error)
	Stops() ([]*model.Stop, error)
	Routes() ([]*model.Route, error)
	Trips() ([]*model.Trip, error)
	StopTimes(tripID string) ([]*model.StopTime, error)

	// Realtime projection. UpsertTripUpdate only replaces a stored
	// row when the incoming timestamp is strictly newer; it reports
	// whether the write applied. UpsertStopUpdates overwrites
	// unconditionally, as the owning TripUpdate has already been
	// confirmed newer.
	TripUpdate(tripID string) (*model.TripUpdate, error)
	TripUpdateTimestamps(tripIDs []string) (map[string]int64, error)
	UpsertTripUpdate(tu *model.TripUpdate) (bool, error)
	UpsertStopUpdates([]*model.StopUpdate) error
	StopUpdates(tripID string) ([]*model.StopUpdate, error)

	// Deletes realtime rows created before the cutoff (epoch
	// seconds). Retention policy belongs to the operator, not the
	// engine; nothing in this module calls it on a schedule.
	PurgeRealtimeBefore(cutoff int64) (int64, error)

	// Derived routes<->stops index. RouteStopPairs computes the
	// distinct pairs reachable via Route->Trip->StopTime joins;
	// ReplaceRouteStops swaps the stored index for the given set.
	RouteStopPairs() ([]model.RouteStop, error)
	ReplaceRouteStops([]model.RouteStop) (int, error)
	StopsForRoute(routeID string) ([]string, error)
	RoutesForStop(stopID string) ([]string, error)
}
