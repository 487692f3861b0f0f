package parse

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/spkg/bom"

	"github.com/transitdb/gtfsync/model"
)

// ParseBundle decodes a GTFS static zip into a Bundle, one record
// slice per file. Unknown columns are ignored; a missing required
// column fails that file. Records with malformed numeric fields are
// dropped and reported via Bundle.Errors, leaving range checks and
// referential checks to the loader.
func ParseBundle(buf []byte) (*model.Bundle, error) {
	files := map[string][]byte{
		"agency.txt":         nil,
		"stops.txt":          nil,
		"routes.txt":         nil,
		"trips.txt":          nil,
		"stop_times.txt":     nil,
		"calendar.txt":       nil,
		"calendar_dates.txt": nil,
		"shapes.txt":         nil,
		"transfers.txt":      nil,
	}

	r, err := zip.NewReader(bytes.NewReader(buf), int64(len(buf)))
	if err != nil {
		return nil, fmt.Errorf("unzipping: %w", err)
	}

	for _, f := range r.File {
		// Some agencies ship their files inside a subdirectory.
		if f.FileInfo().IsDir() {
			continue
		}
		path := strings.Split(f.Name, "/")
		name := path[len(path)-1]

		if _, found := files[name]; !found {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", f.Name, err)
		}
		files[name] = data
	}

	for _, required := range []string{"agency.txt", "stops.txt", "routes.txt", "trips.txt", "stop_times.txt"} {
		if files[required] == nil {
			return nil, fmt.Errorf("missing %s", required)
		}
	}
	if files["calendar.txt"] == nil && files["calendar_dates.txt"] == nil {
		return nil, fmt.Errorf("missing calendar.txt and calendar_dates.txt")
	}

	// LazyCSVReader required (at least) to survive sloppy use of
	// quotes. The BOM reader strips unicode BOMs if present.
	gocsv.SetCSVReader(func(in io.Reader) gocsv.CSVReader {
		return gocsv.LazyCSVReader(bom.NewReader(in))
	})

	b := &model.Bundle{}

	b.Agencies, err = ParseAgencies(files["agency.txt"])
	if err != nil {
		return nil, fmt.Errorf("parsing agency.txt: %w", err)
	}

	var recordErrs []error
	b.Stops, recordErrs, err = ParseStops(files["stops.txt"])
	if err != nil {
		return nil, fmt.Errorf("parsing stops.txt: %w", err)
	}
	b.Errors = append(b.Errors, recordErrs...)

	b.Routes, err = ParseRoutes(files["routes.txt"])
	if err != nil {
		return nil, fmt.Errorf("parsing routes.txt: %w", err)
	}

	if files["calendar.txt"] != nil {
		b.Calendars, err = ParseCalendars(files["calendar.txt"])
		if err != nil {
			return nil, fmt.Errorf("parsing calendar.txt: %w", err)
		}
	}
	if files["calendar_dates.txt"] != nil {
		b.CalendarDates, err = ParseCalendarDates(files["calendar_dates.txt"])
		if err != nil {
			return nil, fmt.Errorf("parsing calendar_dates.txt: %w", err)
		}
	}

	b.Trips, err = ParseTrips(files["trips.txt"])
	if err != nil {
		return nil, fmt.Errorf("parsing trips.txt: %w", err)
	}

	b.StopTimes, recordErrs, err = ParseStopTimes(files["stop_times.txt"])
	if err != nil {
		return nil, fmt.Errorf("parsing stop_times.txt: %w", err)
	}
	b.Errors = append(b.Errors, recordErrs...)

	if files["shapes.txt"] != nil {
		b.ShapePoints, recordErrs, err = ParseShapes(files["shapes.txt"])
		if err != nil {
			return nil, fmt.Errorf("parsing shapes.txt: %w", err)
		}
		b.Errors = append(b.Errors, recordErrs...)
	}

	if files["transfers.txt"] != nil {
		b.Transfers, err = ParseTransfers(files["transfers.txt"])
		if err != nil {
			return nil, fmt.Errorf("parsing transfers.txt: %w", err)
		}
	}

	return b, nil
}

// requireColumns checks the CSV header for the given column names.
// gocsv silently zero-fills missing columns, which would turn a
// malformed feed into a silently empty load.
func requireColumns(data []byte, file string, cols ...string) error {
	r := csv.NewReader(bom.NewReader(bytes.NewReader(data)))
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		return fmt.Errorf("reading %s header: %w", file, err)
	}

	present := map[string]bool{}
	for _, h := range header {
		present[strings.TrimSpace(h)] = true
	}
	for _, col := range cols {
		if !present[col] {
			return fmt.Errorf("%s: missing required column %q", file, col)
		}
	}
	return nil
}
