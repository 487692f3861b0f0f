package parse

import (
	"fmt"

	"github.com/gocarina/gocsv"

	"github.com/transitdb/gtfsync/model"
)

type RouteCSV struct {
	ID        string `csv:"route_id"`
	AgencyID  string `csv:"agency_id"`
	ShortName string `csv:"route_short_name"`
	LongName  string `csv:"route_long_name"`
	Desc      string `csv:"route_desc"`
	Type      int    `csv:"route_type"`
	URL       string `csv:"route_url"`
	Color     string `csv:"route_color"`
	TextColor string `csv:"route_text_color"`
}

func ParseRoutes(data []byte) ([]*model.Route, error) {
	if err := requireColumns(data, "routes.txt", "route_id", "route_type"); err != nil {
		return nil, err
	}

	routeCsv := []*RouteCSV{}
	if err := gocsv.UnmarshalBytes(data, &routeCsv); err != nil {
		return nil, fmt.Errorf("unmarshaling routes csv: %w", err)
	}

	seen := map[string]bool{}
	routes := make([]*model.Route, 0, len(routeCsv))
	for _, r := range routeCsv {
		if r.ID == "" {
			return nil, fmt.Errorf("empty route_id")
		}
		if seen[r.ID] {
			return nil, fmt.Errorf("repeated route_id '%s'", r.ID)
		}
		seen[r.ID] = true

		// "Either route_short_name or route_long_name must be
		// specified, or potentially both."
		if r.ShortName == "" && r.LongName == "" {
			return nil, fmt.Errorf("route '%s' has neither route_short_name nor route_long_name", r.ID)
		}

		routes = append(routes, &model.Route{
			ID:        r.ID,
			AgencyID:  r.AgencyID,
			ShortName: r.ShortName,
			LongName:  r.LongName,
			Desc:      r.Desc,
			Type:      model.RouteType(r.Type),
			URL:       r.URL,
			Color:     r.Color,
			TextColor: r.TextColor,
		})
	}

	return routes, nil
}
