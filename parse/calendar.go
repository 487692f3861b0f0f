package parse

import (
	"fmt"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/transitdb/gtfsync/model"
)

type CalendarCSV struct {
	ServiceID string `csv:"service_id"`
	Monday    int    `csv:"monday"`
	Tuesday   int    `csv:"tuesday"`
	Wednesday int    `csv:"wednesday"`
	Thursday  int    `csv:"thursday"`
	Friday    int    `csv:"friday"`
	Saturday  int    `csv:"saturday"`
	Sunday    int    `csv:"sunday"`
	StartDate string `csv:"start_date"`
	EndDate   string `csv:"end_date"`
}

func ParseCalendars(data []byte) ([]*model.Calendar, error) {
	if err := requireColumns(data, "calendar.txt", "service_id", "start_date", "end_date"); err != nil {
		return nil, err
	}

	calendarCsv := []*CalendarCSV{}
	if err := gocsv.UnmarshalBytes(data, &calendarCsv); err != nil {
		return nil, fmt.Errorf("unmarshaling calendar csv: %w", err)
	}

	seen := map[string]bool{}
	calendars := make([]*model.Calendar, 0, len(calendarCsv))
	for _, c := range calendarCsv {
		if c.ServiceID == "" {
			return nil, fmt.Errorf("empty service_id")
		}
		if seen[c.ServiceID] {
			return nil, fmt.Errorf("repeated service_id '%s'", c.ServiceID)
		}
		seen[c.ServiceID] = true

		if err := validDate(c.StartDate); err != nil {
			return nil, fmt.Errorf("service '%s': bad start_date: %w", c.ServiceID, err)
		}
		if err := validDate(c.EndDate); err != nil {
			return nil, fmt.Errorf("service '%s': bad end_date: %w", c.ServiceID, err)
		}

		calendars = append(calendars, &model.Calendar{
			ServiceID: c.ServiceID,
			Monday:    c.Monday == 1,
			Tuesday:   c.Tuesday == 1,
			Wednesday: c.Wednesday == 1,
			Thursday:  c.Thursday == 1,
			Friday:    c.Friday == 1,
			Saturday:  c.Saturday == 1,
			Sunday:    c.Sunday == 1,
			StartDate: c.StartDate,
			EndDate:   c.EndDate,
		})
	}

	return calendars, nil
}

// validDate checks a GTFS YYYYMMDD date string.
func validDate(s string) error {
	if _, err := time.Parse("20060102", s); err != nil {
		return fmt.Errorf("'%s' is not YYYYMMDD", s)
	}
	return nil
}
