package parse

import (
	"fmt"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/transitdb/gtfsync/model"
)

type AgencyCSV struct {
	ID       string `csv:"agency_id"`
	Name     string `csv:"agency_name"`
	URL      string `csv:"agency_url"`
	Timezone string `csv:"agency_timezone"`
	Lang     string `csv:"agency_lang"`
	Phone    string `csv:"agency_phone"`
	FareURL  string `csv:"agency_fare_url"`
}

func ParseAgencies(data []byte) ([]*model.Agency, error) {
	if err := requireColumns(data, "agency.txt", "agency_name", "agency_url", "agency_timezone"); err != nil {
		return nil, err
	}

	agencyCsv := []*AgencyCSV{}
	if err := gocsv.UnmarshalBytes(data, &agencyCsv); err != nil {
		return nil, fmt.Errorf("unmarshaling agency csv: %w", err)
	}

	if len(agencyCsv) == 0 {
		return nil, fmt.Errorf("no agency record found")
	}

	seen := map[string]bool{}
	agencies := make([]*model.Agency, 0, len(agencyCsv))
	for _, a := range agencyCsv {
		if seen[a.ID] {
			return nil, fmt.Errorf("repeated agency_id '%s'", a.ID)
		}
		seen[a.ID] = true

		if a.Name == "" {
			return nil, fmt.Errorf("missing agency_name")
		}
		if a.Timezone == "" {
			return nil, fmt.Errorf("missing agency_timezone")
		}
		if _, err := time.LoadLocation(a.Timezone); err != nil {
			return nil, fmt.Errorf("agency_timezone '%s' is invalid: %w", a.Timezone, err)
		}

		agencies = append(agencies, &model.Agency{
			ID:       a.ID,
			Name:     a.Name,
			URL:      a.URL,
			Timezone: a.Timezone,
			Lang:     a.Lang,
			Phone:    a.Phone,
			FareURL:  a.FareURL,
		})
	}

	return agencies, nil
}
