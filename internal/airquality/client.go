package airquality

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/lox/homedash/internal/upstream"
)

const (
	DefaultBaseURL = "https://api.data.gov.sg/v1/environment"
	Source         = "air_quality"
)

// Region is one of the five NEA reporting regions.
type Region string

const (
	RegionNorth   Region = "north"
	RegionSouth   Region = "south"
	RegionEast    Region = "east"
	RegionWest    Region = "west"
	RegionCentral Region = "central"
)

// Regions lists every valid region in display order.
var Regions = []Region{RegionNorth, RegionSouth, RegionEast, RegionWest, RegionCentral}

// ParseRegion validates s as a region name.
func ParseRegion(s string) (Region, error) {
	r := Region(strings.ToLower(strings.TrimSpace(s)))
	for _, valid := range Regions {
		if r == valid {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown region %q", s)
}

// Reading is a PM2.5 one-hourly value for a region.
type Reading struct {
	Region    Region    `json:"region"`
	PM25      int       `json:"pm25"`
	Timestamp time.Time `json:"timestamp"`
}

// Client fetches PM2.5 readings from data.gov.sg.
type Client struct {
	baseURL string
	src     *upstream.Client
}

// NewClient creates a PM2.5 client.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		src:     upstream.New(Source, httpClient),
	}
}

type pm25Response struct {
	Items []struct {
		Timestamp string `json:"timestamp"`
		Readings  struct {
			OneHourly map[string]*float64 `json:"pm25_one_hourly"`
		} `json:"readings"`
	} `json:"items"`
}

// Fetch returns the latest one-hourly PM2.5 reading for region. A response
// without a value for region is reported as a missing field.
func (c *Client) Fetch(ctx context.Context, region Region) (Reading, error) {
	var data pm25Response
	if err := c.src.GetJSON(ctx, c.baseURL+"/pm25", nil, &data); err != nil {
		return Reading{}, err
	}
	if len(data.Items) == 0 {
		return Reading{}, upstream.Missing(Source, "items")
	}

	item := data.Items[0]
	v, ok := item.Readings.OneHourly[string(region)]
	if !ok || v == nil {
		return Reading{}, upstream.Missing(Source, "pm25_one_hourly."+string(region))
	}

	r := Reading{Region: region, PM25: int(math.Round(*v))}
	r.Timestamp, _ = time.Parse(time.RFC3339, item.Timestamp)
	return r, nil
}
