package model

// Entity types for the schedule store. Field sets follow the GTFS
// static reference; keys are strings throughout.

type RouteType int

const (
	RouteTypeTram       RouteType = 0
	RouteTypeSubway     RouteType = 1
	RouteTypeRail       RouteType = 2
	RouteTypeBus        RouteType = 3
	RouteTypeFerry      RouteType = 4
	RouteTypeCable      RouteType = 5
	RouteTypeAerial     RouteType = 6
	RouteTypeFunicular  RouteType = 7
	RouteTypeTrolleybus RouteType = 11
	RouteTypeMonorail   RouteType = 12
)

type LocationType int

const (
	LocationTypeStop LocationType = iota
	LocationTypeStation
	LocationTypeEntranceExit
	LocationTypeGenericNode
	LocationTypeBoardingArea
)

// Calendar exception types, per calendar_dates.txt.
const (
	ExceptionAdded   = 1
	ExceptionRemoved = 2
)

type Agency struct {
	ID       string
	Name     string
	URL      string
	Timezone string
	Lang     string
	Phone    string
	FareURL  string
}

type Stop struct {
	ID            string
	Code          string
	Name          string
	Desc          string
	Lat           float64
	Lon           float64
	ZoneID        string
	URL           string
	LocationType  LocationType
	ParentStation string
}

type Calendar struct {
	ServiceID string
	Monday    bool
	Tuesday   bool
	Wednesday bool
	Thursday  bool
	Friday    bool
	Saturday  bool
	Sunday    bool
	StartDate string
	EndDate   string
}

type CalendarDate struct {
	ServiceID     string
	Date          string
	ExceptionType int8
}

type Route struct {
	ID        string
	AgencyID  string
	ShortName string
	LongName  string
	Desc      string
	Type      RouteType
	URL       string
	Color     string
	TextColor string
}

type Trip struct {
	ID                   string
	RouteID              string
	ServiceID            string
	Headsign             string
	ShortName            string
	DirectionID          int8
	BlockID              string
	ShapeID              string
	WheelchairAccessible int8
}

// Arrival and Departure are GTFS time-of-day strings (HH:MM:SS) and
// may exceed 24:00:00 for trips running past midnight.
type StopTime struct {
	TripID            string
	StopID            string
	StopSequence      uint32
	Arrival           string
	Departure         string
	Headsign          string
	PickupType        int8
	DropOffType       int8
	ShapeDistTraveled float64
	Timepoint         int8
}

type ShapePoint struct {
	ShapeID      string
	Lat          float64
	Lon          float64
	Sequence     uint32
	DistTraveled float64
}

type Transfer struct {
	FromStopID      string
	ToStopID        string
	TransferType    int8
	MinTransferTime int
}

// RouteStop is one row of the derived routes<->stops membership index.
type RouteStop struct {
	RouteID string
	StopID  string
}

// Bundle holds one decoded GTFS static dataset, one record slice per
// file. Errors collects record-level problems found while decoding
// (malformed numerics and the like); the affected records are dropped
// from the slices.
type Bundle struct {
	Agencies      []*Agency
	Stops         []*Stop
	Calendars     []*Calendar
	CalendarDates []*CalendarDate
	Routes        []*Route
	Trips         []*Trip
	StopTimes     []*StopTime
	ShapePoints   []*ShapePoint
	Transfers     []*Transfer

	Errors []error
}
