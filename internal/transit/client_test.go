package transit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lox/homedash/internal/upstream"
)

var fixedNow = time.Date(2026, 3, 2, 8, 0, 0, 0, time.FixedZone("SGT", 8*3600))

func arrivalsFixture(now time.Time) string {
	ts := func(d time.Duration) string { return now.Add(d).Format(time.RFC3339) }
	return fmt.Sprintf(`{
	"odata.metadata": "https://datamall2.mytransport.sg/ltaodataservice/v3/BusArrival",
	"BusStopCode": "65629",
	"Services": [
		{
			"ServiceNo": "34",
			"Operator": "SBST",
			"NextBus": {"EstimatedArrival": %q, "Load": "SEA", "Feature": "WAB", "Type": "DD"},
			"NextBus2": {"EstimatedArrival": %q, "Load": "SDA", "Feature": "", "Type": "SD"},
			"NextBus3": {"EstimatedArrival": "", "Load": "", "Feature": "", "Type": ""}
		},
		{
			"ServiceNo": "43e",
			"Operator": "SBST",
			"NextBus": {"EstimatedArrival": %q, "Load": "LSD", "Feature": "WAB", "Type": "BD"},
			"NextBus2": {"EstimatedArrival": "", "Load": "", "Feature": "", "Type": ""},
			"NextBus3": {"EstimatedArrival": "", "Load": "", "Feature": "", "Type": ""}
		}
	]
}`, ts(300*time.Second), ts(11*time.Minute+20*time.Second), ts(-30*time.Second))
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	c := NewClient("test-key", ts.URL, ts.Client())
	c.now = func() time.Time { return fixedNow }
	return c
}

func TestFetchStop(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/BusArrival" {
			t.Errorf("path = %q, want /BusArrival", r.URL.Path)
		}
		if got := r.URL.Query().Get("BusStopCode"); got != "65629" {
			t.Errorf("BusStopCode = %q, want 65629", got)
		}
		if got := r.URL.Query().Get("ServiceNo"); got != "" {
			t.Errorf("ServiceNo should not be sent, got %q", got)
		}
		if got := r.Header.Get("AccountKey"); got != "test-key" {
			t.Errorf("AccountKey = %q, want test-key", got)
		}
		w.Write([]byte(arrivalsFixture(fixedNow)))
	})

	stop, err := c.FetchStop(context.Background(), "65629")
	if err != nil {
		t.Fatalf("FetchStop: %v", err)
	}

	arrivals := stop.For("34")
	if len(arrivals) != 2 {
		t.Fatalf("len(arrivals) = %d, want 2", len(arrivals))
	}

	first := arrivals[0]
	if first.Minutes != 5 {
		t.Errorf("Minutes = %d, want 5", first.Minutes)
	}
	if first.Load != LoadSeated {
		t.Errorf("Load = %q, want seated", first.Load)
	}
	if first.Type != BusDoubleDeck {
		t.Errorf("Type = %q, want double", first.Type)
	}
	if !first.WheelchairAccessible {
		t.Error("expected wheelchair accessible")
	}

	second := arrivals[1]
	if second.Minutes != 11 {
		t.Errorf("second Minutes = %d, want 11", second.Minutes)
	}
	if second.Load != LoadStanding {
		t.Errorf("second Load = %q, want standing", second.Load)
	}

	// Departed buses clamp to zero and count as arriving.
	other := stop.For("43E")
	if len(other) != 1 {
		t.Fatalf("len(43e) = %d, want 1", len(other))
	}
	if other[0].Minutes != 0 || !other[0].Arriving() {
		t.Errorf("43e = %+v, want 0 minutes arriving", other[0])
	}
	if other[0].Load != LoadLimited || other[0].Type != BusBendy {
		t.Errorf("43e load/type = %s/%s", other[0].Load, other[0].Type)
	}

	if got := stop.For("999"); got != nil {
		t.Errorf("unknown service = %v, want nil", got)
	}
}

func TestFetchStop_MalformedArrival(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Services":[{"ServiceNo":"34","NextBus":{"EstimatedArrival":"soon"}}]}`))
	})

	_, err := c.FetchStop(context.Background(), "65629")
	var se *upstream.SourceError
	if !errors.As(err, &se) {
		t.Fatalf("expected SourceError, got %v", err)
	}
	if se.Source != "transit:65629" {
		t.Errorf("Source = %q", se.Source)
	}
	if se.Cause != "malformed arrival time" {
		t.Errorf("Cause = %q", se.Cause)
	}
}

func TestFetchStop_HTTPError(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := c.FetchStop(context.Background(), "65651")
	var se *upstream.SourceError
	if !errors.As(err, &se) {
		t.Fatalf("expected SourceError, got %v", err)
	}
	if se.Source != "transit:65651" || se.Cause != "HTTP 403" {
		t.Errorf("got %s / %s", se.Source, se.Cause)
	}
}

func TestMinutesUntil(t *testing.T) {
	now := fixedNow
	tests := []struct {
		offset time.Duration
		want   int
	}{
		{300 * time.Second, 5},
		{329 * time.Second, 5},
		{330 * time.Second, 6},
		{29 * time.Second, 0},
		{-5 * time.Minute, 0},
		{0, 0},
	}

	for _, tt := range tests {
		if got := MinutesUntil(now.Add(tt.offset), now); got != tt.want {
			t.Errorf("MinutesUntil(+%s) = %d, want %d", tt.offset, got, tt.want)
		}
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"2026-03-02T08:05:00+08:00", time.Date(2026, 3, 2, 0, 5, 0, 0, time.UTC), true},
		{"2026-03-02T00:05:00", time.Date(2026, 3, 2, 0, 5, 0, 0, time.UTC), true},
		{"not a time", time.Time{}, false},
	}

	for _, tt := range tests {
		got, err := parseTimestamp(tt.in)
		if (err == nil) != tt.ok {
			t.Errorf("parseTimestamp(%q) err = %v, want ok=%v", tt.in, err, tt.ok)
			continue
		}
		if tt.ok && !got.Equal(tt.want) {
			t.Errorf("parseTimestamp(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestParseLoad(t *testing.T) {
	tests := map[string]Load{
		"SEA": LoadSeated,
		"SDA": LoadStanding,
		"LSD": LoadLimited,
		"":    LoadUnknown,
		"XYZ": LoadUnknown,
	}
	for in, want := range tests {
		if got := parseLoad(in); got != want {
			t.Errorf("parseLoad(%q) = %q, want %q", in, got, want)
		}
	}
}
