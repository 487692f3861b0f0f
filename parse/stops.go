package parse

import (
	"fmt"
	"strconv"

	"github.com/gocarina/gocsv"

	"github.com/transitdb/gtfsync/model"
)

// Lat and Lon stay strings here so a single malformed coordinate
// drops one record instead of failing the whole file.
type StopCSV struct {
	ID            string `csv:"stop_id"`
	Code          string `csv:"stop_code"`
	Name          string `csv:"stop_name"`
	Desc          string `csv:"stop_desc"`
	Lat           string `csv:"stop_lat"`
	Lon           string `csv:"stop_lon"`
	ZoneID        string `csv:"zone_id"`
	URL           string `csv:"stop_url"`
	LocationType  int8   `csv:"location_type"`
	ParentStation string `csv:"parent_station"`
}

func ParseStops(data []byte) ([]*model.Stop, []error, error) {
	if err := requireColumns(data, "stops.txt", "stop_id", "stop_name", "stop_lat", "stop_lon"); err != nil {
		return nil, nil, err
	}

	stopCsv := []*StopCSV{}
	if err := gocsv.UnmarshalBytes(data, &stopCsv); err != nil {
		return nil, nil, fmt.Errorf("unmarshaling stops csv: %w", err)
	}

	var recordErrs []error
	seen := map[string]bool{}
	stops := make([]*model.Stop, 0, len(stopCsv))
	for _, st := range stopCsv {
		if st.ID == "" {
			return nil, nil, fmt.Errorf("empty stop_id")
		}
		if seen[st.ID] {
			return nil, nil, fmt.Errorf("repeated stop_id '%s'", st.ID)
		}
		seen[st.ID] = true

		lat, err := strconv.ParseFloat(st.Lat, 64)
		if err != nil {
			recordErrs = append(recordErrs, &model.ValidationError{
				Entity: "stop",
				Key:    st.ID,
				Field:  "stop_lat",
				Reason: fmt.Sprintf("not a number: '%s'", st.Lat),
			})
			continue
		}
		lon, err := strconv.ParseFloat(st.Lon, 64)
		if err != nil {
			recordErrs = append(recordErrs, &model.ValidationError{
				Entity: "stop",
				Key:    st.ID,
				Field:  "stop_lon",
				Reason: fmt.Sprintf("not a number: '%s'", st.Lon),
			})
			continue
		}

		stops = append(stops, &model.Stop{
			ID:            st.ID,
			Code:          st.Code,
			Name:          st.Name,
			Desc:          st.Desc,
			Lat:           lat,
			Lon:           lon,
			ZoneID:        st.ZoneID,
			URL:           st.URL,
			LocationType:  model.LocationType(st.LocationType),
			ParentStation: st.ParentStation,
		})
	}

	return stops, recordErrs, nil
}
