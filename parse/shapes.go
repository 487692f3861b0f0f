package parse

import (
	"fmt"
	"strconv"

	"github.com/gocarina/gocsv"

	"github.com/transitdb/gtfsync/model"
)

type ShapePointCSV struct {
	ShapeID      string `csv:"shape_id"`
	Lat          string `csv:"shape_pt_lat"`
	Lon          string `csv:"shape_pt_lon"`
	Sequence     string `csv:"shape_pt_sequence"`
	DistTraveled string `csv:"shape_dist_traveled"`
}

func ParseShapes(data []byte) ([]*model.ShapePoint, []error, error) {
	if err := requireColumns(data, "shapes.txt", "shape_id", "shape_pt_lat", "shape_pt_lon", "shape_pt_sequence"); err != nil {
		return nil, nil, err
	}

	shapeCsv := []*ShapePointCSV{}
	if err := gocsv.UnmarshalBytes(data, &shapeCsv); err != nil {
		return nil, nil, fmt.Errorf("unmarshaling shapes csv: %w", err)
	}

	var recordErrs []error
	points := make([]*model.ShapePoint, 0, len(shapeCsv))
	for _, sp := range shapeCsv {
		if sp.ShapeID == "" {
			return nil, nil, fmt.Errorf("empty shape_id")
		}

		badField := func(field, reason string) {
			recordErrs = append(recordErrs, &model.ValidationError{
				Entity: "shape_point",
				Key:    sp.ShapeID,
				Field:  field,
				Reason: reason,
			})
		}

		lat, err := strconv.ParseFloat(sp.Lat, 64)
		if err != nil {
			badField("shape_pt_lat", fmt.Sprintf("not a number: '%s'", sp.Lat))
			continue
		}
		lon, err := strconv.ParseFloat(sp.Lon, 64)
		if err != nil {
			badField("shape_pt_lon", fmt.Sprintf("not a number: '%s'", sp.Lon))
			continue
		}
		seq, err := strconv.ParseUint(sp.Sequence, 10, 32)
		if err != nil {
			badField("shape_pt_sequence", fmt.Sprintf("not a non-negative integer: '%s'", sp.Sequence))
			continue
		}

		dist := 0.0
		if sp.DistTraveled != "" {
			dist, err = strconv.ParseFloat(sp.DistTraveled, 64)
			if err != nil {
				badField("shape_dist_traveled", fmt.Sprintf("not a number: '%s'", sp.DistTraveled))
				continue
			}
		}

		points = append(points, &model.ShapePoint{
			ShapeID:      sp.ShapeID,
			Lat:          lat,
			Lon:          lon,
			Sequence:     uint32(seq),
			DistTraveled: dist,
		})
	}

	return points, recordErrs, nil
}
