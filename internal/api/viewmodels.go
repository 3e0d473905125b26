package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/lox/homedash/internal/airquality"
	"github.com/lox/homedash/internal/dashboard"
	"github.com/lox/homedash/internal/forecast"
	"github.com/lox/homedash/internal/imagegen"
	"github.com/lox/homedash/internal/transit"
	"github.com/lox/homedash/internal/weather"
)

// Device is the display the page is styled for.
type Device string

const (
	DeviceKindle Device = "kindle"
	DeviceNest   Device = "nest"
)

// DetectDevice picks the device from ?device=, falling back to the
// User-Agent. Kindle browsers identify as Kindle or Silk.
func DetectDevice(r *http.Request) Device {
	switch Device(strings.ToLower(r.URL.Query().Get("device"))) {
	case DeviceKindle:
		return DeviceKindle
	case DeviceNest:
		return DeviceNest
	}

	ua := strings.ToLower(r.UserAgent())
	if strings.Contains(ua, "kindle") || strings.Contains(ua, "silk") {
		return DeviceKindle
	}
	return DeviceNest
}

const placeholder = "--"

// DashboardPage is everything the template needs, already formatted.
type DashboardPage struct {
	Device         Device
	RefreshSeconds int
	UpdatedAt      string
	Buses          []BusRow
	Weather        WeatherCard
	AirQuality     AirQualityCard
	Errors         []string
}

// BusRow is one configured service.
type BusRow struct {
	ServiceNo   string
	StopName    string
	StopCode    string
	ArrivalText string
	Arriving    bool
	Unavailable bool
	LoadText    string
	LoadClass   string
	Following   []string
}

// WeatherCard merges the 2-hour and 24-hour forecasts.
type WeatherCard struct {
	Area        string
	Forecast    string
	Icon        string
	Class       string
	Outlook     string
	Temperature string
	Humidity    string
}

// AirQualityCard is the PM2.5 reading.
type AirQualityCard struct {
	Region string
	Value  string
	Band   string
	Class  string
}

// NewDashboardPage formats vm for device. Every missing value becomes a
// placeholder so the page renders even when every source failed.
func NewDashboardPage(vm *dashboard.ViewModel, device Device, refresh time.Duration, loc *time.Location) DashboardPage {
	generated := vm.GeneratedAt.In(loc)
	page := DashboardPage{
		Device:         device,
		RefreshSeconds: int(refresh.Seconds()),
		UpdatedAt:      generated.Format("15:04"),
		Buses:          make([]BusRow, 0, len(vm.Buses)),
		Weather:        newWeatherCard(vm.Weather, forecast.GetTimeOfDay(generated)),
		AirQuality:     newAirQualityCard(vm.AirQuality),
	}

	for _, b := range vm.Buses {
		page.Buses = append(page.Buses, newBusRow(b))
	}
	for _, src := range vm.ErrorSources() {
		page.Errors = append(page.Errors, fmt.Sprintf("%s: %s", sourceLabel(src), vm.Errors[src]))
	}
	return page
}

func newBusRow(b dashboard.BusArrival) BusRow {
	row := BusRow{
		ServiceNo: b.ServiceNo,
		StopName:  b.DisplayName,
		StopCode:  b.StopCode,
		LoadText:  loadText(b.NextArrivalLoad),
		LoadClass: loadClass(b.NextArrivalLoad),
	}

	switch {
	case b.Unavailable:
		row.Unavailable = true
		row.ArrivalText = "Unavailable"
	case !b.HasData():
		row.ArrivalText = placeholder
	default:
		row.ArrivalText = minutesText(*b.NextArrivalMinutes)
		row.Arriving = *b.NextArrivalMinutes <= 1
	}

	for _, a := range b.Following {
		row.Following = append(row.Following, minutesText(a.Minutes))
	}
	return row
}

func minutesText(m int) string {
	if m <= 1 {
		return "Arr"
	}
	return strconv.Itoa(m) + " min"
}

func loadText(l transit.Load) string {
	switch l {
	case transit.LoadSeated:
		return "Seats Avail"
	case transit.LoadStanding:
		return "Standing"
	case transit.LoadLimited:
		return "Full"
	default:
		return "Unknown"
	}
}

func loadClass(l transit.Load) string {
	switch l {
	case transit.LoadSeated:
		return "load-seats"
	case transit.LoadStanding:
		return "load-standing"
	case transit.LoadLimited:
		return "load-full"
	default:
		return "load-unknown"
	}
}

func newWeatherCard(w *dashboard.WeatherSnapshot, tod forecast.TimeOfDay) WeatherCard {
	card := WeatherCard{
		Forecast:    "N/A",
		Icon:        forecast.ConditionUnknown.Icon(tod),
		Class:       forecast.ConditionUnknown.CSSClass(),
		Temperature: placeholder,
		Humidity:    placeholder,
	}
	if w == nil {
		return card
	}

	card.Area = w.AreaName
	if w.Forecast != nil {
		card.Forecast = *w.Forecast
		card.Icon = w.Condition.Icon(tod)
		card.Class = w.Condition.CSSClass()
	}
	if w.General != nil {
		card.Outlook = *w.General
	}
	if w.Temperature != nil {
		card.Temperature = rangeText(*w.Temperature, "°C")
	}
	if w.Humidity != nil {
		card.Humidity = rangeText(*w.Humidity, "%")
	}
	return card
}

func rangeText(r weather.Range, unit string) string {
	return fmt.Sprintf("%.0f–%.0f%s", r.Low, r.High, unit)
}

func newAirQualityCard(a *dashboard.AirQualitySnapshot) AirQualityCard {
	card := AirQualityCard{Value: placeholder, Class: "aqi-unknown"}
	if a == nil {
		return card
	}

	card.Region = string(a.Region)
	if band, ok := a.Band(); ok {
		card.Value = strconv.Itoa(*a.PM25)
		card.Band = string(band)
		card.Class = band.CSSClass()
	}
	return card
}

func sourceLabel(src string) string {
	switch {
	case strings.HasPrefix(src, "transit:"):
		return "Bus stop " + strings.TrimPrefix(src, "transit:")
	case src == weather.SourceForecast:
		return "2-hour forecast"
	case src == weather.SourceRange:
		return "24-hour forecast"
	case src == airquality.Source:
		return "PM2.5"
	default:
		return src
	}
}

// Frame lays the page out for the e-ink renderer.
func (p DashboardPage) Frame() imagegen.Frame {
	buses := imagegen.Section{Heading: "Buses"}
	for _, b := range p.Buses {
		row := imagegen.Row{
			Label: b.ServiceNo + "  " + b.StopName,
			Value: b.ArrivalText,
		}
		if b.HasArrival() {
			row.Detail = b.LoadText
			if len(b.Following) > 0 {
				row.Detail += " · then " + strings.Join(b.Following, ", ")
			}
		}
		buses.Rows = append(buses.Rows, row)
	}

	area := p.Weather.Area
	if area == "" {
		area = "Forecast"
	}
	wx := imagegen.Section{
		Heading: "Weather",
		Rows: []imagegen.Row{
			{Label: area, Value: p.Weather.Forecast},
			{Label: "Temperature", Value: p.Weather.Temperature},
			{Label: "Humidity", Value: p.Weather.Humidity},
		},
	}

	aq := imagegen.Row{Label: "PM2.5", Value: p.AirQuality.Value, Detail: p.AirQuality.Band}
	if p.AirQuality.Region != "" {
		aq.Label += " (" + p.AirQuality.Region + ")"
	}

	frame := imagegen.Frame{
		Title:    "Home",
		Subtitle: "Updated " + p.UpdatedAt,
		Sections: []imagegen.Section{buses, wx, {Heading: "Air Quality", Rows: []imagegen.Row{aq}}},
	}
	if len(p.Errors) > 0 {
		frame.Footer = fmt.Sprintf("%d source(s) unavailable", len(p.Errors))
	}
	return frame
}

// HasArrival reports whether the row shows a live arrival time.
func (b BusRow) HasArrival() bool {
	return !b.Unavailable && b.ArrivalText != placeholder
}
