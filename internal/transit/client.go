package transit

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/lox/homedash/internal/upstream"
)

const DefaultBaseURL = "https://datamall2.mytransport.sg/ltaodataservice/v3"

// SourceName is the per-stop source key used for errors and metrics.
func SourceName(stopCode string) string {
	return "transit:" + stopCode
}

// Client fetches bus arrivals from LTA DataMall. Each stop is tracked as its
// own source so one failing stop does not trip the breaker for the others.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	now        func() time.Time

	mu      sync.Mutex
	sources map[string]*upstream.Client
}

// NewClient creates a DataMall client authenticated with apiKey.
func NewClient(apiKey, baseURL string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		now:        time.Now,
		sources:    make(map[string]*upstream.Client),
	}
}

func (c *Client) source(stopCode string) *upstream.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	src, ok := c.sources[stopCode]
	if !ok {
		src = upstream.New(SourceName(stopCode), c.httpClient)
		c.sources[stopCode] = src
	}
	return src
}

type arrivalResponse struct {
	BusStopCode string         `json:"BusStopCode"`
	Services    []serviceEntry `json:"Services"`
}

type serviceEntry struct {
	ServiceNo string  `json:"ServiceNo"`
	Operator  string  `json:"Operator"`
	NextBus   nextBus `json:"NextBus"`
	NextBus2  nextBus `json:"NextBus2"`
	NextBus3  nextBus `json:"NextBus3"`
}

type nextBus struct {
	EstimatedArrival string `json:"EstimatedArrival"`
	Load             string `json:"Load"`
	Feature          string `json:"Feature"`
	Type             string `json:"Type"`
}

// FetchStop retrieves all services at stopCode in a single request. Services
// are filtered by the caller via StopArrivals.For.
func (c *Client) FetchStop(ctx context.Context, stopCode string) (StopArrivals, error) {
	src := c.source(stopCode)

	q := url.Values{}
	q.Set("BusStopCode", stopCode)
	u := fmt.Sprintf("%s/BusArrival?%s", c.baseURL, q.Encode())

	header := http.Header{}
	header.Set("AccountKey", c.apiKey)

	var data arrivalResponse
	if err := src.GetJSON(ctx, u, header, &data); err != nil {
		return StopArrivals{}, err
	}

	now := c.now()
	result := StopArrivals{
		StopCode:  stopCode,
		FetchedAt: now,
		Services:  make(map[string][]Arrival, len(data.Services)),
	}

	for _, svc := range data.Services {
		var arrivals []Arrival
		for _, nb := range []nextBus{svc.NextBus, svc.NextBus2, svc.NextBus3} {
			if nb.EstimatedArrival == "" {
				continue
			}
			a, err := parseArrival(nb, now)
			if err != nil {
				return StopArrivals{}, upstream.Unavailable(src.Source(), "malformed arrival time", err)
			}
			arrivals = append(arrivals, a)
		}
		result.Services[svc.ServiceNo] = arrivals
	}

	return result, nil
}

func parseArrival(nb nextBus, now time.Time) (Arrival, error) {
	eta, err := parseTimestamp(nb.EstimatedArrival)
	if err != nil {
		return Arrival{}, err
	}
	return Arrival{
		EstimatedArrival:     eta,
		Minutes:              MinutesUntil(eta, now),
		Load:                 parseLoad(nb.Load),
		Type:                 parseBusType(nb.Type),
		WheelchairAccessible: nb.Feature == "WAB",
	}, nil
}

// parseTimestamp accepts RFC 3339 and falls back to a zone-less layout in UTC.
func parseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation("2006-01-02T15:04:05", s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse arrival %q: %w", s, err)
	}
	return t, nil
}

// MinutesUntil returns whole minutes from now until eta, rounded to nearest
// and clamped at zero.
func MinutesUntil(eta, now time.Time) int {
	m := int(math.Round(eta.Sub(now).Seconds() / 60))
	if m < 0 {
		return 0
	}
	return m
}

func equalService(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
