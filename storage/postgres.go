package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"

	"github.com/transitdb/gtfsync/model"
)

type PSQLStorage struct {
	db *sql.DB
}

// Creates a new Postgres Storage using the provided connection string.
//
// If clearDB is true, all gtfsync tables are dropped on startup. You
// probably only want this for testing.
func NewPSQLStorage(connStr string, clearDB bool) (*PSQLStorage, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening db: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("pinging db: %w", err)
	}

	if clearDB {
		_, err = db.Exec(`
DROP TABLE IF EXISTS routes_stops;
DROP TABLE IF EXISTS stop_updates;
DROP TABLE IF EXISTS trip_updates;
DROP TABLE IF EXISTS transfers;
DROP TABLE IF EXISTS shapes;
DROP TABLE IF EXISTS stop_times;
DROP TABLE IF EXISTS calendar_dates;
DROP TABLE IF EXISTS trips;
DROP TABLE IF EXISTS routes;
DROP TABLE IF EXISTS calendars;
DROP TABLE IF EXISTS stops;
DROP TABLE IF EXISTS agencies;
`)
		if err != nil {
			return nil, fmt.Errorf("clearing db: %w", err)
		}
	}

	return &PSQLStorage{db: db}, nil
}

const psqlSchema = `
CREATE TABLE IF NOT EXISTS agencies (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    url TEXT NOT NULL,
    timezone TEXT NOT NULL,
    lang TEXT,
    phone TEXT,
    fare_url TEXT
);

CREATE TABLE IF NOT EXISTS stops (
    id TEXT PRIMARY KEY,
    code TEXT,
    name TEXT NOT NULL,
    "desc" TEXT,
    lat DOUBLE PRECISION NOT NULL,
    lon DOUBLE PRECISION NOT NULL,
    zone_id TEXT,
    url TEXT,
    location_type INTEGER NOT NULL,
    parent_station TEXT
);

CREATE TABLE IF NOT EXISTS calendars (
    service_id TEXT PRIMARY KEY,
    monday BOOLEAN NOT NULL,
    tuesday BOOLEAN NOT NULL,
    wednesday BOOLEAN NOT NULL,
    thursday BOOLEAN NOT NULL,
    friday BOOLEAN NOT NULL,
    saturday BOOLEAN NOT NULL,
    sunday BOOLEAN NOT NULL,
    start_date TEXT NOT NULL,
    end_date TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS calendar_dates (
    service_id TEXT NOT NULL,
    date TEXT NOT NULL,
    exception_type SMALLINT NOT NULL,
    PRIMARY KEY (service_id, date)
);

CREATE TABLE IF NOT EXISTS routes (
    id TEXT PRIMARY KEY,
    agency_id TEXT NOT NULL,
    short_name TEXT,
    long_name TEXT,
    "desc" TEXT,
    type INTEGER NOT NULL,
    url TEXT,
    color TEXT,
    text_color TEXT
);
CREATE INDEX IF NOT EXISTS routes_agency_id ON routes (agency_id);

CREATE TABLE IF NOT EXISTS trips (
    id TEXT PRIMARY KEY,
    route_id TEXT NOT NULL,
    service_id TEXT NOT NULL,
    headsign TEXT,
    short_name TEXT,
    direction_id SMALLINT,
    block_id TEXT,
    shape_id TEXT,
    wheelchair_accessible SMALLINT
);
CREATE INDEX IF NOT EXISTS trips_route_id ON trips (route_id);
CREATE INDEX IF NOT EXISTS trips_service_id ON trips (service_id);

CREATE TABLE IF NOT EXISTS stop_times (
    trip_id TEXT NOT NULL,
    stop_id TEXT NOT NULL,
    stop_sequence INTEGER NOT NULL,
    arrival_time TEXT,
    departure_time TEXT,
    headsign TEXT,
    pickup_type SMALLINT,
    drop_off_type SMALLINT,
    shape_dist_traveled DOUBLE PRECISION,
    timepoint SMALLINT,
    PRIMARY KEY (trip_id, stop_sequence)
);
CREATE INDEX IF NOT EXISTS stop_times_stop_id ON stop_times (stop_id);

CREATE TABLE IF NOT EXISTS shapes (
    shape_id TEXT NOT NULL,
    lat DOUBLE PRECISION NOT NULL,
    lon DOUBLE PRECISION NOT NULL,
    sequence INTEGER NOT NULL,
    dist_traveled DOUBLE PRECISION,
    PRIMARY KEY (shape_id, sequence)
);

CREATE TABLE IF NOT EXISTS transfers (
    from_stop_id TEXT NOT NULL,
    to_stop_id TEXT NOT NULL,
    transfer_type SMALLINT NOT NULL,
    min_transfer_time INTEGER,
    PRIMARY KEY (from_stop_id, to_stop_id)
);

CREATE TABLE IF NOT EXISTS trip_updates (
    trip_id TEXT PRIMARY KEY,
    route_id TEXT,
    direction_id SMALLINT,
    timestamp BIGINT NOT NULL,
    created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS stop_updates (
    trip_id TEXT NOT NULL,
    stop_id TEXT NOT NULL,
    arrival_time BIGINT,
    departure_time BIGINT,
    created_at BIGINT NOT NULL,
    PRIMARY KEY (trip_id, stop_id)
);

CREATE TABLE IF NOT EXISTS routes_stops (
    route_id TEXT NOT NULL,
    stop_id TEXT NOT NULL,
    PRIMARY KEY (route_id, stop_id)
);
CREATE INDEX IF NOT EXISTS routes_stops_stop_id ON routes_stops (stop_id);
`

func (s *PSQLStorage) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, psqlSchema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

func (s *PSQLStorage) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	return &psqlTx{tx: tx}, nil
}

func (s *PSQLStorage) Close() error {
	return s.db.Close()
}

type psqlTx struct {
	tx *sql.Tx
}

func (t *psqlTx) Commit() error {
	return t.tx.Commit()
}

func (t *psqlTx) Rollback() error {
	return t.tx.Rollback()
}

func (t *psqlTx) UpsertAgencies(agencies []*model.Agency) error {
	for _, a := range agencies {
		_, err := t.tx.Exec(`
INSERT INTO agencies (id, name, url, timezone, lang, phone, fare_url)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE SET
    name = excluded.name,
    url = excluded.url,
    timezone = excluded.timezone,
    lang = excluded.lang,
    phone = excluded.phone,
    fare_url = excluded.fare_url`,
			a.ID, a.Name, a.URL, a.Timezone, a.Lang, a.Phone, a.FareURL)
		if err != nil {
			return fmt.Errorf("upserting agency %s: %w", a.ID, err)
		}
	}
	return nil
}

func (t *psqlTx) UpsertStops(stops []*model.Stop) error {
	for _, s := range stops {
		_, err := t.tx.Exec(`
INSERT INTO stops (id, code, name, "desc", lat, lon, zone_id, url, location_type, parent_station)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (id) DO UPDATE SET
    code = excluded.code,
    name = excluded.name,
    "desc" = excluded."desc",
    lat = excluded.lat,
    lon = excluded.lon,
    zone_id = excluded.zone_id,
    url = excluded.url,
    location_type = excluded.location_type,
    parent_station = excluded.parent_station`,
			s.ID, s.Code, s.Name, s.Desc, s.Lat, s.Lon, s.ZoneID, s.URL, s.LocationType, s.ParentStation)
		if err != nil {
			return fmt.Errorf("upserting stop %s: %w", s.ID, err)
		}
	}
	return nil
}

func (t *psqlTx) UpsertCalendars(cals []*model.Calendar) error {
	for _, c := range cals {
		_, err := t.tx.Exec(`
INSERT INTO calendars (service_id, monday, tuesday, wednesday, thursday, friday, saturday, sunday, start_date, end_date)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (service_id) DO UPDATE SET
    monday = excluded.monday,
    tuesday = excluded.tuesday,
    wednesday = excluded.wednesday,
    thursday = excluded.thursday,
    friday = excluded.friday,
    saturday = excluded.saturday,
    sunday = excluded.sunday,
    start_date = excluded.start_date,
    end_date = excluded.end_date`,
			c.ServiceID, c.Monday, c.Tuesday, c.Wednesday, c.Thursday, c.Friday, c.Saturday, c.Sunday, c.StartDate, c.EndDate)
		if err != nil {
			return fmt.Errorf("upserting calendar %s: %w", c.ServiceID, err)
		}
	}
	return nil
}

func (t *psqlTx) UpsertCalendarDates(dates []*model.CalendarDate) error {
	for _, cd := range dates {
		_, err := t.tx.Exec(`
INSERT INTO calendar_dates (service_id, date, exception_type)
VALUES ($1, $2, $3)
ON CONFLICT (service_id, date) DO UPDATE SET
    exception_type = excluded.exception_type`,
			cd.ServiceID, cd.Date, cd.ExceptionType)
		if err != nil {
			return fmt.Errorf("upserting calendar date %s/%s: %w", cd.ServiceID, cd.Date, err)
		}
	}
	return nil
}

func (t *psqlTx) UpsertRoutes(routes []*model.Route) error {
	for _, r := range routes {
		_, err := t.tx.Exec(`
INSERT INTO routes (id, agency_id, short_name, long_name, "desc", type, url, color, text_color)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (id) DO UPDATE SET
    agency_id = excluded.agency_id,
    short_name = excluded.short_name,
    long_name = excluded.long_name,
    "desc" = excluded."desc",
    type = excluded.type,
    url = excluded.url,
    color = excluded.color,
    text_color = excluded.text_color`,
			r.ID, r.AgencyID, r.ShortName, r.LongName, r.Desc, r.Type, r.URL, r.Color, r.TextColor)
		if err != nil {
			return fmt.Errorf("upserting route %s: %w", r.ID, err)
		}
	}
	return nil
}

func (t *psqlTx) UpsertTrips(trips []*model.Trip) error {
	for _, tr := range trips {
		_, err := t.tx.Exec(`
INSERT INTO trips (id, route_id, service_id, headsign, short_name, direction_id, block_id, shape_id, wheelchair_accessible)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (id) DO UPDATE SET
    route_id = excluded.route_id,
    service_id = excluded.service_id,
    headsign = excluded.headsign,
    short_name = excluded.short_name,
    direction_id = excluded.direction_id,
    block_id = excluded.block_id,
    shape_id = excluded.shape_id,
    wheelchair_accessible = excluded.wheelchair_accessible`,
			tr.ID, tr.RouteID, tr.ServiceID, tr.Headsign, tr.ShortName, tr.DirectionID, tr.BlockID, tr.ShapeID, tr.WheelchairAccessible)
		if err != nil {
			return fmt.Errorf("upserting trip %s: %w", tr.ID, err)
		}
	}
	return nil
}

func (t *psqlTx) UpsertStopTimes(stopTimes []*model.StopTime) error {
	stmt, err := t.tx.Prepare(`
INSERT INTO stop_times (trip_id, stop_id, stop_sequence, arrival_time, departure_time, headsign, pickup_type, drop_off_type, shape_dist_traveled, timepoint)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (trip_id, stop_sequence) DO UPDATE SET
    stop_id = excluded.stop_id,
    arrival_time = excluded.arrival_time,
    departure_time = excluded.departure_time,
    headsign = excluded.headsign,
    pickup_type = excluded.pickup_type,
    drop_off_type = excluded.drop_off_type,
    shape_dist_traveled = excluded.shape_dist_traveled,
    timepoint = excluded.timepoint`)
	if err != nil {
		return fmt.Errorf("preparing stop_time upsert: %w", err)
	}
	defer stmt.Close()

	for _, st := range stopTimes {
		_, err := stmt.Exec(
			st.TripID, st.StopID, st.StopSequence, st.Arrival, st.Departure,
			st.Headsign, st.PickupType, st.DropOffType, st.ShapeDistTraveled, st.Timepoint)
		if err != nil {
			return fmt.Errorf("upserting stop_time %s/%d: %w", st.TripID, st.StopSequence, err)
		}
	}
	return nil
}

func (t *psqlTx) UpsertShapePoints(points []*model.ShapePoint) error {
	stmt, err := t.tx.Prepare(`
INSERT INTO shapes (shape_id, lat, lon, sequence, dist_traveled)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (shape_id, sequence) DO UPDATE SET
    lat = excluded.lat,
    lon = excluded.lon,
    dist_traveled = excluded.dist_traveled`)
	if err != nil {
		return fmt.Errorf("preparing shape upsert: %w", err)
	}
	defer stmt.Close()

	for _, p := range points {
		_, err := stmt.Exec(p.ShapeID, p.Lat, p.Lon, p.Sequence, p.DistTraveled)
		if err != nil {
			return fmt.Errorf("upserting shape point %s/%d: %w", p.ShapeID, p.Sequence, err)
		}
	}
	return nil
}

func (t *psqlTx) UpsertTransfers(transfers []*model.Transfer) error {
	for _, tr := range transfers {
		_, err := t.tx.Exec(`
INSERT INTO transfers (from_stop_id, to_stop_id, transfer_type, min_transfer_time)
VALUES ($1, $2, $3, $4)
ON CONFLICT (from_stop_id, to_stop_id) DO UPDATE SET
    transfer_type = excluded.transfer_type,
    min_transfer_time = excluded.min_transfer_time`,
			tr.FromStopID, tr.ToStopID, tr.TransferType, tr.MinTransferTime)
		if err != nil {
			return fmt.Errorf("upserting transfer %s/%s: %w", tr.FromStopID, tr.ToStopID, err)
		}
	}
	return nil
}

func (t *psqlTx) TruncateStatic() error {
	for _, table := range []string{
		"routes_stops", "transfers", "shapes", "stop_times",
		"calendar_dates", "trips", "routes", "calendars", "stops", "agencies",
	} {
		if _, err := t.tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("truncating %s: %w", table, err)
		}
	}
	return nil
}

func (t *psqlTx) idSet(query string) (map[string]bool, error) {
	rows, err := t.tx.Query(query)
	if err != nil {
		return nil, fmt.Errorf("querying ids: %w", err)
	}
	defer rows.Close()

	ids := map[string]bool{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning id: %w", err)
		}
		ids[id] = true
	}
	return ids, rows.Err()
}

func (t *psqlTx) AgencyIDs() (map[string]bool, error) {
	return t.idSet(`SELECT id FROM agencies`)
}

func (t *psqlTx) StopIDs() (map[string]bool, error) {
	return t.idSet(`SELECT id FROM stops`)
}

func (t *psqlTx) RouteIDs() (map[string]bool, error) {
	return t.idSet(`SELECT id FROM routes`)
}

func (t *psqlTx) ServiceIDs() (map[string]bool, error) {
	return t.idSet(`SELECT service_id FROM calendars UNION SELECT service_id FROM calendar_dates`)
}

func (t *psqlTx) TripIDs() (map[string]bool, error) {
	return t.idSet(`SELECT id FROM trips`)
}

func (t *psqlTx) Agencies() ([]*model.Agency, error) {
	rows, err := t.tx.Query(`
SELECT id, name, url, timezone, lang, phone, fare_url
FROM agencies`)
	if err != nil {
		return nil, fmt.Errorf("querying agencies: %w", err)
	}
	defer rows.Close()

	agencies := []*model.Agency{}
	for rows.Next() {
		a := &model.Agency{}
		err := rows.Scan(&a.ID, &a.Name, &a.URL, &a.Timezone, &a.Lang, &a.Phone, &a.FareURL)
		if err != nil {
			return nil, fmt.Errorf("scanning agency: %w", err)
		}
		agencies = append(agencies, a)
	}
	return agencies, rows.Err()
}

func (t *psqlTx) Stops() ([]*model.Stop, error) {
	rows, err := t.tx.Query(`
SELECT id, code, name, "desc", lat, lon, zone_id, url, location_type, parent_station
FROM stops`)
	if err != nil {
		return nil, fmt.Errorf("querying stops: %w", err)
	}
	defer rows.Close()

	stops := []*model.Stop{}
	for rows.Next() {
		s := &model.Stop{}
		err := rows.Scan(&s.ID, &s.Code, &s.Name, &s.Desc, &s.Lat, &s.Lon, &s.ZoneID, &s.URL, &s.LocationType, &s.ParentStation)
		if err != nil {
			return nil, fmt.Errorf("scanning stop: %w", err)
		}
		stops = append(stops, s)
	}
	return stops, rows.Err()
}

func (t *psqlTx) Routes() ([]*model.Route, error) {
	rows, err := t.tx.Query(`
SELECT id, agency_id, short_name, long_name, "desc", type, url, color, text_color
FROM routes`)
	if err != nil {
		return nil, fmt.Errorf("querying routes: %w", err)
	}
	defer rows.Close()

	routes := []*model.Route{}
	for rows.Next() {
		r := &model.Route{}
		err := rows.Scan(&r.ID, &r.AgencyID, &r.ShortName, &r.LongName, &r.Desc, &r.Type, &r.URL, &r.Color, &r.TextColor)
		if err != nil {
			return nil, fmt.Errorf("scanning route: %w", err)
		}
		routes = append(routes, r)
	}
	return routes, rows.Err()
}

func (t *psqlTx) Trips() ([]*model.Trip, error) {
	rows, err := t.tx.Query(`
SELECT id, route_id, service_id, headsign, short_name, direction_id, block_id, shape_id, wheelchair_accessible
FROM trips`)
	if err != nil {
		return nil, fmt.Errorf("querying trips: %w", err)
	}
	defer rows.Close()

	trips := []*model.Trip{}
	for rows.Next() {
		tr := &model.Trip{}
		err := rows.Scan(&tr.ID, &tr.RouteID, &tr.ServiceID, &tr.Headsign, &tr.ShortName, &tr.DirectionID, &tr.BlockID, &tr.ShapeID, &tr.WheelchairAccessible)
		if err != nil {
			return nil, fmt.Errorf("scanning trip: %w", err)
		}
		trips = append(trips, tr)
	}
	return trips, rows.Err()
}

func (t *psqlTx) StopTimes(tripID string) ([]*model.StopTime, error) {
	rows, err := t.tx.Query(`
SELECT trip_id, stop_id, stop_sequence, arrival_time, departure_time, headsign, pickup_type, drop_off_type, shape_dist_traveled, timepoint
FROM stop_times
WHERE trip_id = $1
ORDER BY stop_sequence`, tripID)
	if err != nil {
		return nil, fmt.Errorf("querying stop times: %w", err)
	}
	defer rows.Close()

	stopTimes := []*model.StopTime{}
	for rows.Next() {
		st := &model.StopTime{}
		err := rows.Scan(&st.TripID, &st.StopID, &st.StopSequence, &st.Arrival, &st.Departure, &st.Headsign, &st.PickupType, &st.DropOffType, &st.ShapeDistTraveled, &st.Timepoint)
		if err != nil {
			return nil, fmt.Errorf("scanning stop time: %w", err)
		}
		stopTimes = append(stopTimes, st)
	}
	return stopTimes, rows.Err()
}

func (t *psqlTx) TripUpdate(tripID string) (*model.TripUpdate, error) {
	tu := &model.TripUpdate{}
	err := t.tx.QueryRow(`
SELECT trip_id, route_id, direction_id, timestamp, created_at
FROM trip_updates
WHERE trip_id = $1`, tripID).Scan(&tu.TripID, &tu.RouteID, &tu.DirectionID, &tu.Timestamp, &tu.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying trip update: %w", err)
	}
	return tu, nil
}

func (t *psqlTx) TripUpdateTimestamps(tripIDs []string) (map[string]int64, error) {
	if len(tripIDs) == 0 {
		return map[string]int64{}, nil
	}

	placeholders := make([]string, len(tripIDs))
	params := make([]interface{}, len(tripIDs))
	for i, id := range tripIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		params[i] = id
	}

	rows, err := t.tx.Query(`
SELECT trip_id, timestamp
FROM trip_updates
WHERE trip_id IN (`+strings.Join(placeholders, ", ")+`)`, params...)
	if err != nil {
		return nil, fmt.Errorf("querying trip update timestamps: %w", err)
	}
	defer rows.Close()

	timestamps := map[string]int64{}
	for rows.Next() {
		var tripID string
		var ts int64
		if err := rows.Scan(&tripID, &ts); err != nil {
			return nil, fmt.Errorf("scanning trip update timestamp: %w", err)
		}
		timestamps[tripID] = ts
	}
	return timestamps, rows.Err()
}

func (t *psqlTx) UpsertTripUpdate(tu *model.TripUpdate) (bool, error) {
	res, err := t.tx.Exec(`
INSERT INTO trip_updates (trip_id, route_id, direction_id, timestamp, created_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (trip_id) DO UPDATE SET
    route_id = excluded.route_id,
    direction_id = excluded.direction_id,
    timestamp = excluded.timestamp,
    created_at = excluded.created_at
WHERE excluded.timestamp > trip_updates.timestamp`,
		tu.TripID, tu.RouteID, tu.DirectionID, tu.Timestamp, tu.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("upserting trip update %s: %w", tu.TripID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking rows affected: %w", err)
	}
	return n > 0, nil
}

func (t *psqlTx) UpsertStopUpdates(updates []*model.StopUpdate) error {
	stmt, err := t.tx.Prepare(`
INSERT INTO stop_updates (trip_id, stop_id, arrival_time, departure_time, created_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (trip_id, stop_id) DO UPDATE SET
    arrival_time = excluded.arrival_time,
    departure_time = excluded.departure_time,
    created_at = excluded.created_at`)
	if err != nil {
		return fmt.Errorf("preparing stop update upsert: %w", err)
	}
	defer stmt.Close()

	for _, su := range updates {
		_, err := stmt.Exec(su.TripID, su.StopID, nullEpoch(su.Arrival), nullEpoch(su.Departure), su.CreatedAt)
		if err != nil {
			return fmt.Errorf("upserting stop update %s/%s: %w", su.TripID, su.StopID, err)
		}
	}
	return nil
}

func (t *psqlTx) StopUpdates(tripID string) ([]*model.StopUpdate, error) {
	rows, err := t.tx.Query(`
SELECT trip_id, stop_id, arrival_time, departure_time, created_at
FROM stop_updates
WHERE trip_id = $1
ORDER BY stop_id`, tripID)
	if err != nil {
		return nil, fmt.Errorf("querying stop updates: %w", err)
	}
	defer rows.Close()

	updates := []*model.StopUpdate{}
	for rows.Next() {
		su := &model.StopUpdate{}
		var arrival, departure sql.NullInt64
		err := rows.Scan(&su.TripID, &su.StopID, &arrival, &departure, &su.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning stop update: %w", err)
		}
		su.Arrival = arrival.Int64
		su.Departure = departure.Int64
		updates = append(updates, su)
	}
	return updates, rows.Err()
}

func (t *psqlTx) PurgeRealtimeBefore(cutoff int64) (int64, error) {
	res, err := t.tx.Exec(`DELETE FROM stop_updates WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purging stop updates: %w", err)
	}
	stops, _ := res.RowsAffected()

	res, err = t.tx.Exec(`DELETE FROM trip_updates WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purging trip updates: %w", err)
	}
	trips, _ := res.RowsAffected()

	return stops + trips, nil
}

func (t *psqlTx) RouteStopPairs() ([]model.RouteStop, error) {
	rows, err := t.tx.Query(`
SELECT DISTINCT trips.route_id, stop_times.stop_id
FROM stop_times
INNER JOIN trips ON stop_times.trip_id = trips.id
INNER JOIN routes ON trips.route_id = routes.id
INNER JOIN stops ON stop_times.stop_id = stops.id
ORDER BY trips.route_id, stop_times.stop_id`)
	if err != nil {
		return nil, fmt.Errorf("querying route stop pairs: %w", err)
	}
	defer rows.Close()

	pairs := []model.RouteStop{}
	for rows.Next() {
		var p model.RouteStop
		if err := rows.Scan(&p.RouteID, &p.StopID); err != nil {
			return nil, fmt.Errorf("scanning route stop pair: %w", err)
		}
		pairs = append(pairs, p)
	}
	return pairs, rows.Err()
}

func (t *psqlTx) ReplaceRouteStops(pairs []model.RouteStop) (int, error) {
	if _, err := t.tx.Exec(`DELETE FROM routes_stops`); err != nil {
		return 0, fmt.Errorf("clearing routes_stops: %w", err)
	}

	stmt, err := t.tx.Prepare(`INSERT INTO routes_stops (route_id, stop_id) VALUES ($1, $2)`)
	if err != nil {
		return 0, fmt.Errorf("preparing routes_stops insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range pairs {
		if _, err := stmt.Exec(p.RouteID, p.StopID); err != nil {
			return 0, fmt.Errorf("inserting routes_stops %s/%s: %w", p.RouteID, p.StopID, err)
		}
	}
	return len(pairs), nil
}

func (t *psqlTx) StopsForRoute(routeID string) ([]string, error) {
	return t.indexColumn(`SELECT stop_id FROM routes_stops WHERE route_id = $1 ORDER BY stop_id`, routeID)
}

func (t *psqlTx) RoutesForStop(stopID string) ([]string, error) {
	return t.indexColumn(`SELECT route_id FROM routes_stops WHERE stop_id = $1 ORDER BY route_id`, stopID)
}

func (t *psqlTx) indexColumn(query string, key string) ([]string, error) {
	rows, err := t.tx.Query(query, key)
	if err != nil {
		return nil, fmt.Errorf("querying routes_stops: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning routes_stops: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
