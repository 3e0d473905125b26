package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/lox/homedash/internal/metrics"
)

const UserAgent = "HomeDash/1.0"

const (
	// Consecutive failures before a source's breaker opens.
	breakerThreshold = 5
	breakerOpenFor   = 30 * time.Second
)

// Client issues JSON GET requests on behalf of a single named source. It owns
// a circuit breaker so a provider that is down is short-circuited instead of
// being called on every fetch cycle. It never retries.
type Client struct {
	source  string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
}

// New creates a client for source using the shared HTTP client.
func New(source string, httpClient *http.Client) *Client {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        source,
		MaxRequests: 1,
		Timeout:     breakerOpenFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("upstream: %s breaker %s -> %s", name, from, to)
		},
	})

	return &Client{
		source:  source,
		http:    httpClient,
		breaker: cb,
	}
}

// Source returns the source name errors and metrics are reported under.
func (c *Client) Source() string {
	return c.source
}

// GetJSON fetches url and decodes the JSON body into v. Any failure is
// returned as a *SourceError.
func (c *Client) GetJSON(ctx context.Context, url string, header http.Header, v any) error {
	start := time.Now()
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.get(ctx, url, header, v)
	})
	metrics.UpstreamLatency.WithLabelValues(c.source).Observe(time.Since(start).Seconds())

	if err == nil {
		metrics.UpstreamCallsTotal.WithLabelValues(c.source, "ok").Inc()
		return nil
	}

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		metrics.UpstreamCallsTotal.WithLabelValues(c.source, "open").Inc()
		return Unavailable(c.source, "circuit open", err)
	}

	se := Classify(c.source, err)
	status := "error"
	if se.Timeout {
		status = "timeout"
	}
	metrics.UpstreamCallsTotal.WithLabelValues(c.source, status).Inc()
	return se
}

func (c *Client) get(ctx context.Context, url string, header http.Header, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Unavailable(c.source, "invalid request", fmt.Errorf("create request: %w", err))
	}
	for k, vals := range header {
		for _, val := range vals {
			req.Header.Add(k, val)
		}
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Classify(c.source, fmt.Errorf("fetch: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Unavailable(c.source, fmt.Sprintf("HTTP %d", resp.StatusCode), nil)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		if ctx.Err() != nil {
			return Classify(c.source, ctx.Err())
		}
		return Unavailable(c.source, "malformed JSON", fmt.Errorf("decode: %w", err))
	}
	return nil
}
