package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/lox/homedash/internal/airquality"
	"github.com/lox/homedash/internal/transit"
	"github.com/lox/homedash/internal/weather"
)

// DefaultBusServices is used when BUS_SERVICES is not set.
const DefaultBusServices = `[
	{"stop_code": "65629", "service_no": "34", "stop_name": "Samudera Stn Exit A"},
	{"stop_code": "65651", "service_no": "104", "stop_name": "Blk 413C"}
]`

// Config is the process configuration, bound from flags and environment.
type Config struct {
	LTAAPIKey       string        `name:"lta-api-key" env:"LTA_API_KEY" help:"LTA DataMall account key." validate:"required"`
	BusServices     string        `name:"bus-services" env:"BUS_SERVICES" default:"${default_bus_services}" help:"JSON list of {stop_code, service_no, display_name} to track."`
	WeatherArea     string        `name:"weather-area" env:"WEATHER_AREA" default:"Punggol" help:"2-hour forecast area name." validate:"required"`
	PM25Region      string        `name:"pm25-region" env:"PM25_REGION" default:"north" help:"PM2.5 region (north, south, east, west, central)." validate:"oneof=north south east west central"`
	RefreshSeconds  int           `name:"refresh-seconds" env:"REFRESH_SECONDS" default:"30" help:"Page refresh and cache lifetime in seconds." validate:"gt=0"`
	UpstreamTimeout time.Duration `name:"upstream-timeout" env:"UPSTREAM_TIMEOUT" default:"10s" help:"Per-call upstream timeout." validate:"gt=0"`
	LTABaseURL      string        `name:"lta-api-base-url" env:"LTA_API_BASE_URL" default:"https://datamall2.mytransport.sg/ltaodataservice/v3" help:"LTA DataMall base URL." validate:"url"`
	DataGovBaseURL  string        `name:"data-gov-base-url" env:"DATA_GOV_BASE_URL" default:"https://api.data.gov.sg/v1/environment" help:"data.gov.sg environment API base URL." validate:"url"`
	Host            string        `name:"host" env:"HOST" default:"0.0.0.0" help:"Listen address." validate:"omitempty,ip|hostname"`
	Port            int           `name:"port" env:"PORT" default:"8080" help:"Listen port." validate:"min=1,max=65535"`
	Prewarm         bool          `name:"prewarm" env:"PREWARM" help:"Refresh the cache in the background on every refresh interval."`
}

// ConfigError reports an invalid configuration value. The process must not
// start serving when one is returned.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

// busEntry accepts either display_name or stop_name for the label.
type busEntry struct {
	StopCode    string `json:"stop_code" validate:"required,numeric,len=5"`
	ServiceNo   string `json:"service_no" validate:"required,max=5"`
	DisplayName string `json:"display_name"`
	StopName    string `json:"stop_name"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their environment variable or JSON key.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("env"); name != "" {
			return name
		}
		if name, _, _ := strings.Cut(f.Tag.Get("json"), ","); name != "" && name != "-" {
			return name
		}
		return f.Name
	})
	return v
}

// Validate checks every field and the relationships between them.
func (c *Config) Validate() error {
	// Region names are case-insensitive.
	c.PM25Region = strings.ToLower(strings.TrimSpace(c.PM25Region))
	if err := validate.Struct(c); err != nil {
		return validationError("", err)
	}
	if _, err := c.Buses(); err != nil {
		return err
	}
	if c.UpstreamTimeout >= c.RefreshInterval() {
		return &ConfigError{
			Field:  "UPSTREAM_TIMEOUT",
			Reason: fmt.Sprintf("%s must be less than the refresh interval %s", c.UpstreamTimeout, c.RefreshInterval()),
		}
	}
	return nil
}

// Buses parses BUS_SERVICES, preserving order.
func (c *Config) Buses() ([]transit.Query, error) {
	raw := strings.TrimSpace(c.BusServices)
	if raw == "" {
		raw = DefaultBusServices
	}

	var entries []busEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, &ConfigError{Field: "BUS_SERVICES", Reason: "invalid JSON: " + err.Error()}
	}
	if len(entries) == 0 {
		return nil, &ConfigError{Field: "BUS_SERVICES", Reason: "must contain at least one service"}
	}

	queries := make([]transit.Query, 0, len(entries))
	for i, e := range entries {
		if err := validate.Struct(e); err != nil {
			return nil, validationError(fmt.Sprintf("BUS_SERVICES[%d].", i), err)
		}
		name := e.DisplayName
		if name == "" {
			name = e.StopName
		}
		if name == "" {
			name = e.StopCode
		}
		queries = append(queries, transit.Query{
			StopCode:    e.StopCode,
			ServiceNo:   e.ServiceNo,
			DisplayName: name,
		})
	}
	return queries, nil
}

// Region returns the validated PM2.5 region.
func (c *Config) Region() (airquality.Region, error) {
	r, err := airquality.ParseRegion(c.PM25Region)
	if err != nil {
		return "", &ConfigError{Field: "PM25_REGION", Reason: err.Error()}
	}
	return r, nil
}

// RefreshInterval is the cache lifetime and page auto-refresh period.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshSeconds) * time.Second
}

// Addr is the HTTP listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// WeatherBaseURL returns the data.gov.sg base, falling back to the public API.
func (c *Config) WeatherBaseURL() string {
	if c.DataGovBaseURL == "" {
		return weather.DefaultBaseURL
	}
	return c.DataGovBaseURL
}

func validationError(prefix string, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ConfigError{Field: strings.TrimSuffix(prefix, "."), Reason: err.Error()}
	}
	fe := verrs[0]
	return &ConfigError{Field: prefix + fe.Field(), Reason: describe(fe)}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return fmt.Sprintf("must be one of %s", fe.Param())
	case "numeric":
		return "must be numeric"
	case "len":
		return fmt.Sprintf("must be %s characters", fe.Param())
	case "url":
		return "must be a URL"
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	default:
		return fmt.Sprintf("failed %q check (%v)", fe.Tag(), fe.Value())
	}
}
