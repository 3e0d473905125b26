package transit

import "time"

// Query is one configured bus service to track at a stop.
type Query struct {
	StopCode    string `json:"stop_code"`
	ServiceNo   string `json:"service_no"`
	DisplayName string `json:"display_name"`
}

// Load is the passenger load reported for an arriving bus.
type Load string

const (
	LoadSeated   Load = "seated"
	LoadStanding Load = "standing"
	LoadLimited  Load = "limited"
	LoadUnknown  Load = "unknown"
)

func parseLoad(s string) Load {
	switch s {
	case "SEA":
		return LoadSeated
	case "SDA":
		return LoadStanding
	case "LSD":
		return LoadLimited
	default:
		return LoadUnknown
	}
}

// BusType is the vehicle type reported for an arriving bus.
type BusType string

const (
	BusSingleDeck BusType = "single"
	BusDoubleDeck BusType = "double"
	BusBendy      BusType = "bendy"
	BusUnknown    BusType = "unknown"
)

func parseBusType(s string) BusType {
	switch s {
	case "SD":
		return BusSingleDeck
	case "DD":
		return BusDoubleDeck
	case "BD":
		return BusBendy
	default:
		return BusUnknown
	}
}

// Arrival is a single upcoming bus for a service.
type Arrival struct {
	EstimatedArrival     time.Time `json:"estimated_arrival"`
	Minutes              int       `json:"minutes"`
	Load                 Load      `json:"load"`
	Type                 BusType   `json:"type"`
	WheelchairAccessible bool      `json:"wheelchair_accessible"`
}

// Arriving reports whether the bus is at most a minute away.
func (a Arrival) Arriving() bool {
	return a.Minutes <= 1
}

// StopArrivals holds every service reported at one bus stop.
type StopArrivals struct {
	StopCode  string
	FetchedAt time.Time
	Services  map[string][]Arrival
}

// For returns the upcoming arrivals for serviceNo, soonest first. A service
// the provider did not report yields nil.
func (s StopArrivals) For(serviceNo string) []Arrival {
	if arrivals, ok := s.Services[serviceNo]; ok {
		return arrivals
	}
	for k, arrivals := range s.Services {
		if equalService(k, serviceNo) {
			return arrivals
		}
	}
	return nil
}
