package parse

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/transitdb/gtfsync/model"
)

type StopTimeCSV struct {
	TripID            string `csv:"trip_id"`
	StopID            string `csv:"stop_id"`
	StopSequence      string `csv:"stop_sequence"`
	ArrivalTime       string `csv:"arrival_time"`
	DepartureTime     string `csv:"departure_time"`
	Headsign          string `csv:"stop_headsign"`
	PickupType        int8   `csv:"pickup_type"`
	DropOffType       int8   `csv:"drop_off_type"`
	ShapeDistTraveled string `csv:"shape_dist_traveled"`
	Timepoint         int8   `csv:"timepoint"`
}

// parseStopTimeTime normalizes a GTFS time-of-day to zero-padded
// HH:MM:SS. Hours past 24 are legal for trips running past midnight.
func parseStopTimeTime(s string) (string, error) {
	split := strings.Split(s, ":")
	if len(split) != 3 {
		return "", fmt.Errorf("found %d parts in '%s'", len(split), s)
	}

	hms := [3]int{}
	for i, str := range split {
		j, err := strconv.Atoi(strings.TrimSpace(str))
		if err != nil {
			return "", fmt.Errorf("non-integer in '%s' pos %d", s, i)
		}
		hms[i] = j
	}

	if hms[0] < 0 || hms[0] > 99 {
		return "", fmt.Errorf("invalid hour in '%s'", s)
	}
	if hms[1] < 0 || hms[1] > 59 {
		return "", fmt.Errorf("invalid minute in '%s'", s)
	}
	if hms[2] < 0 || hms[2] > 59 {
		return "", fmt.Errorf("invalid second in '%s'", s)
	}

	return fmt.Sprintf("%02d:%02d:%02d", hms[0], hms[1], hms[2]), nil
}

func ParseStopTimes(data []byte) ([]*model.StopTime, []error, error) {
	if err := requireColumns(data, "stop_times.txt", "trip_id", "stop_id", "stop_sequence"); err != nil {
		return nil, nil, err
	}

	stCsv := []*StopTimeCSV{}
	if err := gocsv.UnmarshalBytes(data, &stCsv); err != nil {
		return nil, nil, fmt.Errorf("unmarshaling stop_times csv: %w", err)
	}

	var recordErrs []error
	stopTimes := make([]*model.StopTime, 0, len(stCsv))
	for _, st := range stCsv {
		if st.TripID == "" {
			return nil, nil, fmt.Errorf("empty trip_id")
		}
		if st.StopID == "" {
			return nil, nil, fmt.Errorf("trip '%s': empty stop_id", st.TripID)
		}

		seq, err := strconv.ParseUint(st.StopSequence, 10, 32)
		if err != nil {
			recordErrs = append(recordErrs, &model.ValidationError{
				Entity: "stop_time",
				Key:    st.TripID,
				Field:  "stop_sequence",
				Reason: fmt.Sprintf("not a non-negative integer: '%s'", st.StopSequence),
			})
			continue
		}

		arrival := ""
		if st.ArrivalTime != "" {
			arrival, err = parseStopTimeTime(st.ArrivalTime)
			if err != nil {
				recordErrs = append(recordErrs, &model.ValidationError{
					Entity: "stop_time",
					Key:    st.TripID,
					Field:  "arrival_time",
					Reason: err.Error(),
				})
				continue
			}
		}

		departure := ""
		if st.DepartureTime != "" {
			departure, err = parseStopTimeTime(st.DepartureTime)
			if err != nil {
				recordErrs = append(recordErrs, &model.ValidationError{
					Entity: "stop_time",
					Key:    st.TripID,
					Field:  "departure_time",
					Reason: err.Error(),
				})
				continue
			}
		}

		if arrival != "" && departure != "" && departure < arrival {
			recordErrs = append(recordErrs, &model.ValidationError{
				Entity: "stop_time",
				Key:    st.TripID,
				Field:  "departure_time",
				Reason: fmt.Sprintf("departure %s before arrival %s", departure, arrival),
			})
			continue
		}

		dist := 0.0
		if st.ShapeDistTraveled != "" {
			dist, err = strconv.ParseFloat(st.ShapeDistTraveled, 64)
			if err != nil {
				recordErrs = append(recordErrs, &model.ValidationError{
					Entity: "stop_time",
					Key:    st.TripID,
					Field:  "shape_dist_traveled",
					Reason: fmt.Sprintf("not a number: '%s'", st.ShapeDistTraveled),
				})
				continue
			}
		}

		stopTimes = append(stopTimes, &model.StopTime{
			TripID:            st.TripID,
			StopID:            st.StopID,
			StopSequence:      uint32(seq),
			Arrival:           arrival,
			Departure:         departure,
			Headsign:          st.Headsign,
			PickupType:        st.PickupType,
			DropOffType:       st.DropOffType,
			ShapeDistTraveled: dist,
			Timepoint:         st.Timepoint,
		})
	}

	return stopTimes, recordErrs, nil
}
