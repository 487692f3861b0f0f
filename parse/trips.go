package parse

import (
	"fmt"

	"github.com/gocarina/gocsv"

	"github.com/transitdb/gtfsync/model"
)

type TripCSV struct {
	ID                   string `csv:"trip_id"`
	RouteID              string `csv:"route_id"`
	ServiceID            string `csv:"service_id"`
	Headsign             string `csv:"trip_headsign"`
	ShortName            string `csv:"trip_short_name"`
	DirectionID          int8   `csv:"direction_id"`
	BlockID              string `csv:"block_id"`
	ShapeID              string `csv:"shape_id"`
	WheelchairAccessible int8   `csv:"wheelchair_accessible"`
}

func ParseTrips(data []byte) ([]*model.Trip, error) {
	if err := requireColumns(data, "trips.txt", "trip_id", "route_id", "service_id"); err != nil {
		return nil, err
	}

	tripCsv := []*TripCSV{}
	if err := gocsv.UnmarshalBytes(data, &tripCsv); err != nil {
		return nil, fmt.Errorf("unmarshaling trips csv: %w", err)
	}

	seen := map[string]bool{}
	trips := make([]*model.Trip, 0, len(tripCsv))
	for _, t := range tripCsv {
		if t.ID == "" {
			return nil, fmt.Errorf("empty trip_id")
		}
		if seen[t.ID] {
			return nil, fmt.Errorf("repeated trip_id '%s'", t.ID)
		}
		seen[t.ID] = true

		if t.RouteID == "" {
			return nil, fmt.Errorf("trip '%s' has empty route_id", t.ID)
		}
		if t.ServiceID == "" {
			return nil, fmt.Errorf("trip '%s' has empty service_id", t.ID)
		}

		trips = append(trips, &model.Trip{
			ID:                   t.ID,
			RouteID:              t.RouteID,
			ServiceID:            t.ServiceID,
			Headsign:             t.Headsign,
			ShortName:            t.ShortName,
			DirectionID:          t.DirectionID,
			BlockID:              t.BlockID,
			ShapeID:              t.ShapeID,
			WheelchairAccessible: t.WheelchairAccessible,
		})
	}

	return trips, nil
}
