package parse

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transitdb/gtfsync/model"
)

func buildZip(t *testing.T, files map[string][]string) []byte {
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

// A simple feed with all required data
func fixtureSimple() map[string][]string {
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

func TestParseBundleValidFeed(t *testing.T) {
	b, err := ParseBundle(buildZip(t, fixtureSimple()))
	require.NoError(t, err)
	assert.Empty(t, b.Errors)

	require.Len(t, b.Agencies, 1)
	assert.Equal(t, "a", b.Agencies[0].ID)
	assert.Equal(t, "America/Los_Angeles", b.Agencies[0].Timezone)

	require.Len(t, b.Routes, 1)
	assert.Equal(t, model.RouteTypeBus, b.Routes[0].Type)

	require.Len(t, b.Calendars, 1)
	assert.True(t, b.Calendars[0].Monday)
	assert.False(t, b.Calendars[0].Tuesday)

	require.Len(t, b.CalendarDates, 1)
	assert.Equal(t, int8(model.ExceptionAdded), b.CalendarDates[0].ExceptionType)

	require.Len(t, b.Trips, 1)
	assert.Equal(t, "r", b.Trips[0].RouteID)

	require.Len(t, b.Stops, 2)
	assert.Equal(t, 12.0, b.Stops[0].Lat)
	assert.Equal(t, 34.0, b.Stops[0].Lon)

	require.Len(t, b.StopTimes, 2)
	assert.Equal(t, uint32(1), b.StopTimes[0].StopSequence)
	assert.Equal(t, "12:00:00", b.StopTimes[0].Arrival)
	assert.Equal(t, "12:11:00", b.StopTimes[1].Departure)
}

func TestParseBundleBOMAndSubdir(t *testing.T) {
	files := fixtureSimple()

	// BOM on agency.txt, everything nested in a subdirectory.
	files["agency.txt"][0] = "\xEF\xBB\xBF" + files["agency.txt"][0]
	nested := map[string][]string{}
	for name, content := range files {
		nested["feed/"+name] = content
	}

	b, err := ParseBundle(buildZip(t, nested))
	require.NoError(t, err)
	require.Len(t, b.Agencies, 1)
	assert.Equal(t, "a", b.Agencies[0].ID)
}

func TestParseBundleMissingFile(t *testing.T) {
	files := fixtureSimple()
	delete(files, "stop_times.txt")

	_, err := ParseBundle(buildZip(t, files))
	assert.ErrorContains(t, err, "missing stop_times.txt")
}

func TestParseBundleMissingCalendars(t *testing.T) {
	files := fixtureSimple()
	delete(files, "calendar.txt")
	delete(files, "calendar_dates.txt")

	_, err := ParseBundle(buildZip(t, files))
	assert.ErrorContains(t, err, "missing calendar.txt and calendar_dates.txt")
}

func TestParseBundleCalendarDatesOnly(t *testing.T) {
	files := fixtureSimple()
	delete(files, "calendar.txt")

	b, err := ParseBundle(buildZip(t, files))
	require.NoError(t, err)
	assert.Empty(t, b.Calendars)
	require.Len(t, b.CalendarDates, 1)
}

func TestParseBundleMissingColumn(t *testing.T) {
	files := fixtureSimple()
	files["stops.txt"] = []string{
		"stop_id,stop_name,stop_lat",
		"s1,First St,12",
	}

	_, err := ParseBundle(buildZip(t, files))
	assert.ErrorContains(t, err, `missing required column "stop_lon"`)
}

func TestParseBundleMalformedCoordinate(t *testing.T) {
	files := fixtureSimple()
	files["stops.txt"] = append(files["stops.txt"], "s3,Third St,not-a-number,34")

	b, err := ParseBundle(buildZip(t, files))
	require.NoError(t, err)

	// s3 dropped, reported, and the rest kept.
	require.Len(t, b.Stops, 2)
	require.Len(t, b.Errors, 1)
	var verr *model.ValidationError
	require.ErrorAs(t, b.Errors[0], &verr)
	assert.Equal(t, "s3", verr.Key)
	assert.Equal(t, "stop_lat", verr.Field)
}

func TestParseBundleMalformedStopTime(t *testing.T) {
	files := fixtureSimple()
	files["stop_times.txt"] = append(files["stop_times.txt"], "t,25:99:00,26:00:00,s1,3")

	b, err := ParseBundle(buildZip(t, files))
	require.NoError(t, err)
	require.Len(t, b.StopTimes, 2)
	require.Len(t, b.Errors, 1)
	var verr *model.ValidationError
	require.ErrorAs(t, b.Errors[0], &verr)
	assert.Equal(t, "arrival_time", verr.Field)
}

func TestParseBundleDepartureBeforeArrival(t *testing.T) {
	files := fixtureSimple()
	files["stop_times.txt"] = append(files["stop_times.txt"], "t,12:30:00,12:20:00,s1,3")

	b, err := ParseBundle(buildZip(t, files))
	require.NoError(t, err)
	require.Len(t, b.StopTimes, 2)
	require.Len(t, b.Errors, 1)
}

func TestParseBundlePastMidnightTimes(t *testing.T) {
	files := fixtureSimple()
	files["stop_times.txt"] = append(files["stop_times.txt"], "t,25:01:00,25:02:00,s1,3")

	b, err := ParseBundle(buildZip(t, files))
	require.NoError(t, err)
	require.Len(t, b.StopTimes, 3)
	assert.Equal(t, "25:01:00", b.StopTimes[2].Arrival)
}

func TestParseBundleDuplicateTripID(t *testing.T) {
	files := fixtureSimple()
	files["trips.txt"] = append(files["trips.txt"], "r,mondays,t")

	_, err := ParseBundle(buildZip(t, files))
	assert.ErrorContains(t, err, "repeated trip_id")
}

func TestParseBundleUnknownColumnsIgnored(t *testing.T) {
	files := fixtureSimple()
	files["routes.txt"] = []string{
		"route_id,agency_id,route_short_name,route_type,route_fancy_extra",
		"r,a,R,3,whatever",
	}

	b, err := ParseBundle(buildZip(t, files))
	require.NoError(t, err)
	require.Len(t, b.Routes, 1)
}

func TestParseBundleShapesAndTransfers(t *testing.T) {
	files := fixtureSimple()
	files["shapes.txt"] = []string{
		"shape_id,shape_pt_lat,shape_pt_lon,shape_pt_sequence,shape_dist_traveled",
		"sh,12.0,34.0,1,0",
		"sh,12.1,34.1,2,153.2",
		"sh,bogus,34.2,3,300",
	}
	files["transfers.txt"] = []string{
		"from_stop_id,to_stop_id,transfer_type,min_transfer_time",
		"s1,s2,2,120",
	}

	b, err := ParseBundle(buildZip(t, files))
	require.NoError(t, err)

	require.Len(t, b.ShapePoints, 2)
	assert.Equal(t, 153.2, b.ShapePoints[1].DistTraveled)
	require.Len(t, b.Errors, 1)

	require.Len(t, b.Transfers, 1)
	assert.Equal(t, 120, b.Transfers[0].MinTransferTime)
}

func TestParseBundleNotAZip(t *testing.T) {
	_, err := ParseBundle([]byte("definitely not a zip"))
	assert.ErrorContains(t, err, "unzipping")
}
