package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"

	"github.com/lox/homedash/internal/airquality"
	"github.com/lox/homedash/internal/api"
	"github.com/lox/homedash/internal/config"
	"github.com/lox/homedash/internal/dashboard"
	"github.com/lox/homedash/internal/httputil"
	"github.com/lox/homedash/internal/transit"
	"github.com/lox/homedash/internal/weather"
)

// areaCheckBudget bounds how long startup waits for the provider's area list.
const areaCheckBudget = 30 * time.Second

type CLI struct {
	Config config.Config `embed:""`

	Serve ServeCmd `cmd:"" default:"1" help:"Serve the dashboard over HTTP."`
	Check CheckCmd `cmd:"" help:"Run one fetch cycle, print the view model as JSON and exit non-zero if any source failed."`
}

type ServeCmd struct{}

func (s *ServeCmd) Run(cfg *config.Config) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	coord, err := newCoordinator(ctx, cfg)
	if err != nil {
		return err
	}

	if cfg.Prewarm {
		p := dashboard.NewPrewarmer(coord)
		if err := p.Start(); err != nil {
			return fmt.Errorf("start prewarmer: %w", err)
		}
		defer p.Stop()
	}

	server := api.NewServer(coord, cfg.Addr(), singapore())
	log.Printf("starting server on %s", cfg.Addr())
	return server.Run(ctx)
}

type CheckCmd struct{}

func (c *CheckCmd) Run(cfg *config.Config) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	coord, err := newCoordinator(ctx, cfg)
	if err != nil {
		return err
	}

	vm := coord.Refresh(ctx)
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(vm); err != nil {
		return fmt.Errorf("encode view model: %w", err)
	}

	if vm.Degraded() {
		return fmt.Errorf("%d source(s) failed: %s", len(vm.Errors), strings.Join(vm.ErrorSources(), ", "))
	}
	return nil
}

func newCoordinator(ctx context.Context, cfg *config.Config) (*dashboard.Coordinator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	buses, err := cfg.Buses()
	if err != nil {
		return nil, err
	}
	region, err := cfg.Region()
	if err != nil {
		return nil, err
	}

	hc := httputil.NewClient(cfg.UpstreamTimeout)
	tc := transit.NewClient(cfg.LTAAPIKey, cfg.LTABaseURL, hc)
	wc := weather.NewClient(cfg.WeatherBaseURL(), hc)
	ac := airquality.NewClient(cfg.WeatherBaseURL(), hc)

	area, err := config.ValidateArea(ctx, wc, cfg.WeatherArea, areaCheckBudget)
	switch {
	case errors.Is(err, config.ErrAreaListUnavailable):
		log.Printf("Warning: could not verify weather area %q, continuing: %v", cfg.WeatherArea, err)
	case err != nil:
		return nil, err
	}

	log.Printf("tracking %d bus services, weather for %s, PM2.5 for %s region", len(buses), area, region)
	return dashboard.NewCoordinator(tc, wc, ac, dashboard.Options{
		Buses:           buses,
		Area:            area,
		Region:          region,
		RefreshInterval: cfg.RefreshInterval(),
		Timeout:         cfg.UpstreamTimeout,
	}), nil
}

func singapore() *time.Location {
	loc, err := time.LoadLocation("Asia/Singapore")
	if err != nil {
		log.Printf("Warning: could not load Asia/Singapore timezone, using UTC+8: %v", err)
		return time.FixedZone("SGT", 8*3600)
	}
	return loc
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("homedash"),
		kong.Description("Bus arrivals, weather and air quality for Kindle and Nest Hub displays."),
		kong.Configuration(kongdotenv.ENVFileReader, ".env"),
		kong.Vars{"default_bus_services": config.DefaultBusServices},
		kong.UsageOnError(),
	)

	err := ctx.Run(&cli.Config)

	var ce *config.ConfigError
	if errors.As(err, &ce) {
		log.Printf("invalid configuration: %v", ce)
		os.Exit(2)
	}
	ctx.FatalIfErrorf(err)
}
