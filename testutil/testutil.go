package testutil

// Helpers and fixtures for tests.

import (
	"archive/zip"
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/transitdb/gtfsync/storage"
)

// BuildStorage returns an initialized in-memory SQLite store.
func BuildStorage(t testing.TB) storage.Storage {
	s, err := storage.NewSQLiteStorage()
	require.NoError(t, err)
	require.NoError(t, s.Init(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

// BuildZip assembles a GTFS static zip from lines of CSV per file.
func BuildZip(t testing.TB, files map[string][]string) []byte {
	buf := &bytes.Buffer{}
	w := zip.NewWriter(buf)
	for filename, content := range files {
		f, err := w.Create(filename)
		require.NoError(t, err)
		_, err = f.Write([]byte(strings.Join(content, "\n")))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	return buf.Bytes()
}

// FixtureSimple is a minimal valid feed: one agency, one route, one
// trip over two stops.
func FixtureSimple() map[string][]string {
	return map[string][]string{
		"agency.txt": {
			"agency_id,agency_timezone,agency_name,agency_url",
			"a,America/Los_Angeles,Fake Agency,http://agency/index.html",
		},
		"routes.txt": {
			"route_id,agency_id,route_short_name,route_type",
			"r,a,R,3",
		},
		"calendar.txt": {
			"service_id,monday,tuesday,wednesday,thursday,friday,saturday,sunday,start_date,end_date",
			"mondays,1,0,0,0,0,0,0,20190101,20190301",
		},
		"calendar_dates.txt": {
			"service_id,date,exception_type",
			"mondays,20190302,1",
		},
		"trips.txt": {
			"route_id,service_id,trip_id",
			"r,mondays,t",
		},
		"stops.txt": {
			"stop_id,stop_name,stop_lat,stop_lon",
			"s1,First St,12,34",
			"s2,Second St,12.1,34.1",
		},
		"stop_times.txt": {
			"trip_id,arrival_time,departure_time,stop_id,stop_sequence",
			"t,12:00:00,12:00:00,s1,1",
			"t,12:10:00,12:11:00,s2,2",
		},
	}
}
