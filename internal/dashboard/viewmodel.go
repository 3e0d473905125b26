package dashboard

import (
	"sort"
	"time"

	"github.com/lox/homedash/internal/airquality"
	"github.com/lox/homedash/internal/forecast"
	"github.com/lox/homedash/internal/transit"
	"github.com/lox/homedash/internal/weather"
)

// BusArrival is the display state of one configured bus service.
type BusArrival struct {
	StopCode           string            `json:"stop_code"`
	ServiceNo          string            `json:"service_no"`
	DisplayName        string            `json:"display_name"`
	NextArrivalMinutes *int              `json:"next_arrival_minutes"`
	NextArrivalLoad    transit.Load      `json:"next_arrival_load"`
	Following          []transit.Arrival `json:"following,omitempty"`
	Unavailable        bool              `json:"unavailable,omitempty"`
}

// HasData reports whether an upcoming arrival is known. No data is distinct
// from a bus that is zero minutes away.
func (b BusArrival) HasData() bool {
	return b.NextArrivalMinutes != nil
}

// WeatherSnapshot merges the 2-hour area forecast with the 24-hour ranges.
// Fields from a dataset that could not be fetched stay nil.
type WeatherSnapshot struct {
	AreaName    string             `json:"area_name"`
	Forecast    *string            `json:"forecast"`
	Condition   forecast.Condition `json:"condition"`
	General     *string            `json:"general,omitempty"`
	Temperature *weather.Range     `json:"temperature"`
	Humidity    *weather.Range     `json:"humidity"`
}

// AirQualitySnapshot is the PM2.5 reading for the configured region.
type AirQualitySnapshot struct {
	Region airquality.Region `json:"region"`
	PM25   *int              `json:"pm25_value"`
}

// Band returns the PM2.5 descriptor, or false when there is no reading.
func (a AirQualitySnapshot) Band() (airquality.Band, bool) {
	if a.PM25 == nil {
		return "", false
	}
	return airquality.BandFor(*a.PM25), true
}

// ViewModel is one merged snapshot of every source. It is built once per
// fetch cycle and never mutated afterwards; callers share the same pointer.
type ViewModel struct {
	Buses       []BusArrival        `json:"buses"`
	Weather     *WeatherSnapshot    `json:"weather"`
	AirQuality  *AirQualitySnapshot `json:"air_quality"`
	GeneratedAt time.Time           `json:"generated_at"`
	Errors      map[string]string   `json:"per_source_errors"`
}

// ErrorSources returns the failed source names in sorted order.
func (vm *ViewModel) ErrorSources() []string {
	sources := make([]string, 0, len(vm.Errors))
	for s := range vm.Errors {
		sources = append(sources, s)
	}
	sort.Strings(sources)
	return sources
}

// Degraded reports whether any source failed in this cycle.
func (vm *ViewModel) Degraded() bool {
	return len(vm.Errors) > 0
}
