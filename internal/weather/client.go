package weather

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/lox/homedash/internal/upstream"
)

const DefaultBaseURL = "https://api.data.gov.sg/v1/environment"

// Source names for the two independent datasets.
const (
	SourceForecast = "weather_forecast"
	SourceRange    = "weather_range"
)

// Range is a low/high pair as published by the 24-hour forecast.
type Range struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// AreaForecast is the 2-hour nowcast text for one planning area.
type AreaForecast struct {
	Area      string    `json:"area"`
	Forecast  string    `json:"forecast"`
	ValidFrom time.Time `json:"valid_from"`
	ValidTo   time.Time `json:"valid_to"`
}

// DayOutlook is the island-wide 24-hour general forecast.
type DayOutlook struct {
	Forecast    string `json:"forecast"`
	Temperature Range  `json:"temperature"`
	Humidity    Range  `json:"humidity"`
}

// Client fetches forecasts from data.gov.sg. The 2-hour and 24-hour datasets
// are separate sources and fail independently.
type Client struct {
	baseURL  string
	forecast *upstream.Client
	daily    *upstream.Client
}

// NewClient creates a data.gov.sg weather client.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		forecast: upstream.New(SourceForecast, httpClient),
		daily:    upstream.New(SourceRange, httpClient),
	}
}

type twoHourResponse struct {
	AreaMetadata []struct {
		Name string `json:"name"`
	} `json:"area_metadata"`
	Items []struct {
		UpdateTimestamp string `json:"update_timestamp"`
		ValidPeriod     struct {
			Start string `json:"start"`
			End   string `json:"end"`
		} `json:"valid_period"`
		Forecasts []struct {
			Area     string `json:"area"`
			Forecast string `json:"forecast"`
		} `json:"forecasts"`
	} `json:"items"`
}

type dayResponse struct {
	Items []struct {
		General *struct {
			Forecast         string     `json:"forecast"`
			RelativeHumidity *rangeJSON `json:"relative_humidity"`
			Temperature      *rangeJSON `json:"temperature"`
		} `json:"general"`
	} `json:"items"`
}

type rangeJSON struct {
	Low  *float64 `json:"low"`
	High *float64 `json:"high"`
}

func (r *rangeJSON) toRange() (Range, bool) {
	if r == nil || r.Low == nil || r.High == nil {
		return Range{}, false
	}
	return Range{Low: *r.Low, High: *r.High}, true
}

func (c *Client) fetchTwoHour(ctx context.Context) (*twoHourResponse, error) {
	var data twoHourResponse
	if err := c.forecast.GetJSON(ctx, c.baseURL+"/2-hour-weather-forecast", nil, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// FetchAreaForecast returns the current 2-hour forecast for area, matched
// case-insensitively against the provider's area names.
func (c *Client) FetchAreaForecast(ctx context.Context, area string) (AreaForecast, error) {
	data, err := c.fetchTwoHour(ctx)
	if err != nil {
		return AreaForecast{}, err
	}
	if len(data.Items) == 0 {
		return AreaForecast{}, upstream.Missing(SourceForecast, "items")
	}

	item := data.Items[0]
	for _, f := range item.Forecasts {
		if !strings.EqualFold(f.Area, area) {
			continue
		}
		if f.Forecast == "" {
			return AreaForecast{}, upstream.Missing(SourceForecast, "forecast")
		}
		af := AreaForecast{Area: f.Area, Forecast: f.Forecast}
		af.ValidFrom, _ = time.Parse(time.RFC3339, item.ValidPeriod.Start)
		af.ValidTo, _ = time.Parse(time.RFC3339, item.ValidPeriod.End)
		return af, nil
	}
	return AreaForecast{}, upstream.Missing(SourceForecast, "forecast for area "+area)
}

// Areas lists the area names the 2-hour forecast publishes.
func (c *Client) Areas(ctx context.Context) ([]string, error) {
	data, err := c.fetchTwoHour(ctx)
	if err != nil {
		return nil, err
	}

	var areas []string
	for _, m := range data.AreaMetadata {
		areas = append(areas, m.Name)
	}
	if len(areas) == 0 && len(data.Items) > 0 {
		for _, f := range data.Items[0].Forecasts {
			areas = append(areas, f.Area)
		}
	}
	if len(areas) == 0 {
		return nil, upstream.Missing(SourceForecast, "area_metadata")
	}
	return areas, nil
}

// FetchDayOutlook returns the 24-hour temperature and humidity ranges.
func (c *Client) FetchDayOutlook(ctx context.Context) (DayOutlook, error) {
	var data dayResponse
	if err := c.daily.GetJSON(ctx, c.baseURL+"/24-hour-weather-forecast", nil, &data); err != nil {
		return DayOutlook{}, err
	}
	if len(data.Items) == 0 || data.Items[0].General == nil {
		return DayOutlook{}, upstream.Missing(SourceRange, "items[0].general")
	}

	general := data.Items[0].General
	temp, ok := general.Temperature.toRange()
	if !ok {
		return DayOutlook{}, upstream.Missing(SourceRange, "general.temperature")
	}
	humidity, ok := general.RelativeHumidity.toRange()
	if !ok {
		return DayOutlook{}, upstream.Missing(SourceRange, "general.relative_humidity")
	}

	return DayOutlook{
		Forecast:    general.Forecast,
		Temperature: temp,
		Humidity:    humidity,
	}, nil
}

// MatchArea finds area in areas ignoring case and returns the provider's
// spelling.
func MatchArea(areas []string, area string) (string, bool) {
	for _, a := range areas {
		if strings.EqualFold(a, strings.TrimSpace(area)) {
			return a, true
		}
	}
	return "", false
}
