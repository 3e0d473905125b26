package config

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lox/homedash/internal/airquality"
)

func validConfig() Config {
	return Config{
		LTAAPIKey:       "key",
		BusServices:     DefaultBusServices,
		WeatherArea:     "Punggol",
		PM25Region:      "north",
		RefreshSeconds:  30,
		UpstreamTimeout: 10 * time.Second,
		LTABaseURL:      "https://datamall2.mytransport.sg/ltaodataservice/v3",
		DataGovBaseURL:  "https://api.data.gov.sg/v1/environment",
		Host:            "0.0.0.0",
		Port:            8080,
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing key", func(c *Config) { c.LTAAPIKey = "" }, "LTA_API_KEY"},
		{"bad region", func(c *Config) { c.PM25Region = "northeast" }, "PM25_REGION"},
		{"mixed case region", func(c *Config) { c.PM25Region = " North " }, ""},
		{"zero refresh", func(c *Config) { c.RefreshSeconds = 0 }, "REFRESH_SECONDS"},
		{"timeout equals refresh", func(c *Config) { c.UpstreamTimeout = 30 * time.Second }, "UPSTREAM_TIMEOUT"},
		{"timeout exceeds refresh", func(c *Config) { c.UpstreamTimeout = time.Minute }, "UPSTREAM_TIMEOUT"},
		{"empty bus list", func(c *Config) { c.BusServices = "[]" }, "BUS_SERVICES"},
		{"bus JSON invalid", func(c *Config) { c.BusServices = "{" }, "BUS_SERVICES"},
		{"bus missing service", func(c *Config) { c.BusServices = `[{"stop_code": "65629"}]` }, "BUS_SERVICES[0].service_no"},
		{"bus bad stop code", func(c *Config) { c.BusServices = `[{"stop_code": "abc", "service_no": "34"}]` }, "BUS_SERVICES[0].stop_code"},
		{"bad port", func(c *Config) { c.Port = 0 }, "PORT"},
		{"bad base url", func(c *Config) { c.LTABaseURL = "not a url" }, "LTA_API_BASE_URL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}

			var ce *ConfigError
			if !errors.As(err, &ce) {
				t.Fatalf("Validate = %v, want *ConfigError", err)
			}
			if ce.Field != tt.wantField {
				t.Errorf("Field = %q, want %q (reason %q)", ce.Field, tt.wantField, ce.Reason)
			}
		})
	}
}

func TestBuses(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.BusServices = `[
		{"stop_code": "65629", "service_no": "34", "display_name": "Samudera"},
		{"stop_code": "65651", "service_no": "104", "stop_name": "Blk 413C"},
		{"stop_code": "65009", "service_no": "83"}
	]`

	buses, err := cfg.Buses()
	if err != nil {
		t.Fatalf("Buses: %v", err)
	}

	want := []struct{ stop, service, name string }{
		{"65629", "34", "Samudera"},
		{"65651", "104", "Blk 413C"},
		{"65009", "83", "65009"},
	}
	if len(buses) != len(want) {
		t.Fatalf("len = %d, want %d", len(buses), len(want))
	}
	for i, w := range want {
		b := buses[i]
		if b.StopCode != w.stop || b.ServiceNo != w.service || b.DisplayName != w.name {
			t.Errorf("buses[%d] = %+v, want %+v", i, b, w)
		}
	}
}

func TestBuses_DefaultWhenEmpty(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.BusServices = ""

	buses, err := cfg.Buses()
	if err != nil {
		t.Fatalf("Buses: %v", err)
	}
	if len(buses) != 2 || buses[0].StopCode != "65629" || buses[0].DisplayName != "Samudera Stn Exit A" {
		t.Errorf("buses = %+v, want the default pair", buses)
	}
}

func TestValidate_NormalizesRegion(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.PM25Region = "EAST"

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	r, err := cfg.Region()
	if err != nil {
		t.Fatalf("Region: %v", err)
	}
	if r != airquality.RegionEast {
		t.Errorf("Region = %q, want east", r)
	}
}

func TestRegionAndAddr(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.PM25Region = "Central"

	r, err := cfg.Region()
	if err != nil {
		t.Fatalf("Region: %v", err)
	}
	if r != airquality.RegionCentral {
		t.Errorf("Region = %q, want central", r)
	}
	if got := cfg.Addr(); got != "0.0.0.0:8080" {
		t.Errorf("Addr = %q", got)
	}
	if got := cfg.RefreshInterval(); got != 30*time.Second {
		t.Errorf("RefreshInterval = %s", got)
	}
}

type fakeLister struct {
	calls    atomic.Int32
	failures int32
	areas    []string
}

func (f *fakeLister) Areas(ctx context.Context) ([]string, error) {
	if f.calls.Add(1) <= f.failures {
		return nil, errors.New("connection refused")
	}
	return f.areas, nil
}

func TestValidateArea(t *testing.T) {
	t.Parallel()
	lister := &fakeLister{areas: []string{"Ang Mo Kio", "Punggol"}}

	got, err := ValidateArea(context.Background(), lister, "punggol", time.Second)
	if err != nil {
		t.Fatalf("ValidateArea: %v", err)
	}
	if got != "Punggol" {
		t.Errorf("area = %q, want provider spelling Punggol", got)
	}
}

func TestValidateArea_Unknown(t *testing.T) {
	t.Parallel()
	lister := &fakeLister{areas: []string{"Ang Mo Kio", "Punggol"}}

	_, err := ValidateArea(context.Background(), lister, "Atlantis", time.Second)
	var ce *ConfigError
	if !errors.As(err, &ce) || ce.Field != "WEATHER_AREA" {
		t.Fatalf("err = %v, want WEATHER_AREA ConfigError", err)
	}
	if errors.Is(err, ErrAreaListUnavailable) {
		t.Error("unknown area should not be reported as list unavailable")
	}
}

func TestValidateArea_RetriesTransientFailure(t *testing.T) {
	t.Parallel()
	lister := &fakeLister{failures: 2, areas: []string{"Punggol"}}

	if _, err := ValidateArea(context.Background(), lister, "Punggol", 10*time.Second); err != nil {
		t.Fatalf("ValidateArea: %v", err)
	}
	if got := lister.calls.Load(); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
}

func TestValidateArea_Unreachable(t *testing.T) {
	t.Parallel()
	lister := &fakeLister{failures: 1 << 30}

	start := time.Now()
	area, err := ValidateArea(context.Background(), lister, "Punggol", 500*time.Millisecond)
	if !errors.Is(err, ErrAreaListUnavailable) {
		t.Fatalf("err = %v, want ErrAreaListUnavailable", err)
	}
	var ce *ConfigError
	if errors.As(err, &ce) {
		t.Error("unreachable provider should not be a ConfigError")
	}
	if area != "Punggol" {
		t.Errorf("area = %q, want configured value passed through", area)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("took %s, want bounded by max elapsed", elapsed)
	}
}
