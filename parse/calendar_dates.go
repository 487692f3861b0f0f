package parse

import (
	"fmt"

	"github.com/gocarina/gocsv"

	"github.com/transitdb/gtfsync/model"
)

type CalendarDateCSV struct {
	ServiceID     string `csv:"service_id"`
	Date          string `csv:"date"`
	ExceptionType int8   `csv:"exception_type"`
}

func ParseCalendarDates(data []byte) ([]*model.CalendarDate, error) {
	if err := requireColumns(data, "calendar_dates.txt", "service_id", "date", "exception_type"); err != nil {
		return nil, err
	}

	cdCsv := []*CalendarDateCSV{}
	if err := gocsv.UnmarshalBytes(data, &cdCsv); err != nil {
		return nil, fmt.Errorf("unmarshaling calendar_dates csv: %w", err)
	}

	dates := make([]*model.CalendarDate, 0, len(cdCsv))
	for _, cd := range cdCsv {
		if cd.ServiceID == "" {
			return nil, fmt.Errorf("empty service_id")
		}
		if err := validDate(cd.Date); err != nil {
			return nil, fmt.Errorf("service '%s': bad date: %w", cd.ServiceID, err)
		}
		if cd.ExceptionType != model.ExceptionAdded && cd.ExceptionType != model.ExceptionRemoved {
			return nil, fmt.Errorf("service '%s': bad exception_type %d", cd.ServiceID, cd.ExceptionType)
		}

		dates = append(dates, &model.CalendarDate{
			ServiceID:     cd.ServiceID,
			Date:          cd.Date,
			ExceptionType: cd.ExceptionType,
		})
	}

	return dates, nil
}
