package dashboard

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/singleflight"

	"github.com/lox/homedash/internal/airquality"
	"github.com/lox/homedash/internal/forecast"
	"github.com/lox/homedash/internal/metrics"
	"github.com/lox/homedash/internal/transit"
	"github.com/lox/homedash/internal/upstream"
	"github.com/lox/homedash/internal/weather"
)

// TransitSource fetches every service at one bus stop.
type TransitSource interface {
	FetchStop(ctx context.Context, stopCode string) (transit.StopArrivals, error)
}

// WeatherSource fetches the two independent forecast datasets.
type WeatherSource interface {
	FetchAreaForecast(ctx context.Context, area string) (weather.AreaForecast, error)
	FetchDayOutlook(ctx context.Context) (weather.DayOutlook, error)
}

// AirQualitySource fetches the PM2.5 reading for a region.
type AirQualitySource interface {
	Fetch(ctx context.Context, region airquality.Region) (airquality.Reading, error)
}

// Options configures a Coordinator. Timeout must be shorter than
// RefreshInterval; config validation enforces this before startup.
type Options struct {
	Buses           []transit.Query
	Area            string
	Region          airquality.Region
	RefreshInterval time.Duration
	Timeout         time.Duration
	Now             func() time.Time
}

// Coordinator builds ViewModels by fanning out to every source concurrently
// and caches the result for one refresh interval.
type Coordinator struct {
	transit TransitSource
	weather WeatherSource
	air     AirQualitySource

	buses   []transit.Query
	stops   []string
	area    string
	region  airquality.Region
	refresh time.Duration
	timeout time.Duration
	now     func() time.Time

	cache   *Cache
	flight  singleflight.Group
	lookups *prometheus.CounterVec
}

const flightKey = "view"

// NewCoordinator creates a Coordinator over the given sources.
func NewCoordinator(ts TransitSource, ws WeatherSource, as AirQualitySource, opts Options) *Coordinator {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	buses := make([]transit.Query, len(opts.Buses))
	copy(buses, opts.Buses)

	return &Coordinator{
		transit: ts,
		weather: ws,
		air:     as,
		buses:   buses,
		stops:   distinctStops(buses),
		area:    opts.Area,
		region:  opts.Region,
		refresh: opts.RefreshInterval,
		timeout: opts.Timeout,
		now:     now,
		cache:   NewCache(now),
		lookups: metrics.CacheLookups,
	}
}

// RefreshInterval is the cache TTL and the page's auto-refresh period.
func (c *Coordinator) RefreshInterval() time.Duration {
	return c.refresh
}

// ViewModel returns the cached ViewModel, or runs a fetch cycle when the
// cache is empty or expired. Concurrent callers during a miss share a single
// fetch cycle. It never returns nil.
func (c *Coordinator) ViewModel(ctx context.Context) *ViewModel {
	if vm, ok := c.cache.Get(); ok {
		c.lookups.WithLabelValues("hit").Inc()
		return vm
	}
	vm, fetched := c.load(ctx, false)
	// Callers that shared another caller's cycle, or found the cache filled
	// on re-check, were served from cache.
	if fetched {
		c.lookups.WithLabelValues("miss").Inc()
	} else {
		c.lookups.WithLabelValues("hit").Inc()
	}
	return vm
}

// Refresh runs a fetch cycle regardless of cache state, still sharing an
// in-flight cycle if one is running.
func (c *Coordinator) Refresh(ctx context.Context) *ViewModel {
	vm, _ := c.load(ctx, true)
	return vm
}

// load reports whether this caller ran the fetch cycle itself.
func (c *Coordinator) load(ctx context.Context, force bool) (*ViewModel, bool) {
	// The cycle outlives any single caller; each upstream call carries its own
	// deadline.
	ctx = context.WithoutCancel(ctx)

	fetched := false
	v, _, _ := c.flight.Do(flightKey, func() (interface{}, error) {
		if !force {
			if vm, ok := c.cache.Get(); ok {
				return vm, nil
			}
		}
		fetched = true
		vm := c.fetch(ctx)
		c.cache.Set(vm, c.refresh)
		return vm, nil
	})
	return v.(*ViewModel), fetched
}

// outcome is the tagged result of one upstream call.
type outcome[T any] struct {
	value T
	err   *upstream.SourceError
}

// call runs fn under the per-call timeout. When the deadline passes the call
// is abandoned and reported as a timeout even if fn ignores cancellation.
func call[T any](ctx context.Context, timeout time.Duration, source string, fn func(context.Context) (T, error)) outcome[T] {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ch := make(chan outcome[T], 1)
	go func() {
		v, err := fn(ctx)
		ch <- outcome[T]{value: v, err: upstream.Classify(source, err)}
	}()

	select {
	case o := <-ch:
		return o
	case <-ctx.Done():
		return outcome[T]{err: upstream.Classify(source, ctx.Err())}
	}
}

func (c *Coordinator) fetch(ctx context.Context) *ViewModel {
	cycle := uuid.NewString()
	start := time.Now()
	metrics.FetchCycles.Inc()
	log.Printf("dashboard: cycle %s: fetching %d stops, weather and air quality", cycle, len(c.stops))

	var (
		wg     sync.WaitGroup
		stops  = make([]outcome[transit.StopArrivals], len(c.stops))
		areaFc outcome[weather.AreaForecast]
		dayFc  outcome[weather.DayOutlook]
		pm25   outcome[airquality.Reading]
	)

	for i, code := range c.stops {
		i, code := i, code
		wg.Add(1)
		go func() {
			defer wg.Done()
			stops[i] = call(ctx, c.timeout, transit.SourceName(code), func(ctx context.Context) (transit.StopArrivals, error) {
				return c.transit.FetchStop(ctx, code)
			})
		}()
	}

	wg.Add(3)
	go func() {
		defer wg.Done()
		areaFc = call(ctx, c.timeout, weather.SourceForecast, func(ctx context.Context) (weather.AreaForecast, error) {
			return c.weather.FetchAreaForecast(ctx, c.area)
		})
	}()
	go func() {
		defer wg.Done()
		dayFc = call(ctx, c.timeout, weather.SourceRange, c.weather.FetchDayOutlook)
	}()
	go func() {
		defer wg.Done()
		pm25 = call(ctx, c.timeout, airquality.Source, func(ctx context.Context) (airquality.Reading, error) {
			return c.air.Fetch(ctx, c.region)
		})
	}()

	wg.Wait()

	vm := &ViewModel{
		GeneratedAt: c.now(),
		Errors:      make(map[string]string),
	}
	record := func(se *upstream.SourceError) {
		vm.Errors[se.Source] = se.Cause
		metrics.SourceFailures.WithLabelValues(se.Source).Inc()
		log.Printf("dashboard: cycle %s: %v", cycle, se)
	}

	byStop := make(map[string]outcome[transit.StopArrivals], len(c.stops))
	for i, code := range c.stops {
		byStop[code] = stops[i]
		if stops[i].err != nil {
			record(stops[i].err)
		}
	}
	vm.Buses = mergeBuses(c.buses, byStop)

	if areaFc.err != nil {
		record(areaFc.err)
	}
	if dayFc.err != nil {
		record(dayFc.err)
	}
	vm.Weather = mergeWeather(c.area, areaFc, dayFc)

	vm.AirQuality = &AirQualitySnapshot{Region: c.region}
	if pm25.err != nil {
		record(pm25.err)
	} else {
		v := pm25.value.PM25
		vm.AirQuality.PM25 = &v
	}

	elapsed := time.Since(start)
	metrics.FetchCycleDuration.Observe(elapsed.Seconds())
	log.Printf("dashboard: cycle %s: done in %s (%d sources failed)", cycle, elapsed.Round(time.Millisecond), len(vm.Errors))
	return vm
}

func mergeBuses(queries []transit.Query, byStop map[string]outcome[transit.StopArrivals]) []BusArrival {
	buses := make([]BusArrival, 0, len(queries))
	for _, q := range queries {
		b := BusArrival{
			StopCode:        q.StopCode,
			ServiceNo:       q.ServiceNo,
			DisplayName:     q.DisplayName,
			NextArrivalLoad: transit.LoadUnknown,
		}

		res := byStop[q.StopCode]
		if res.err != nil {
			b.Unavailable = true
			buses = append(buses, b)
			continue
		}

		arrivals := res.value.For(q.ServiceNo)
		if len(arrivals) > 0 {
			minutes := arrivals[0].Minutes
			b.NextArrivalMinutes = &minutes
			b.NextArrivalLoad = arrivals[0].Load
			b.Following = arrivals[1:]
		}
		buses = append(buses, b)
	}
	return buses
}

func mergeWeather(area string, areaFc outcome[weather.AreaForecast], dayFc outcome[weather.DayOutlook]) *WeatherSnapshot {
	if areaFc.err != nil && dayFc.err != nil {
		return nil
	}

	snap := &WeatherSnapshot{
		AreaName:  area,
		Condition: forecast.ConditionUnknown,
	}
	if areaFc.err == nil {
		text := areaFc.value.Forecast
		snap.AreaName = areaFc.value.Area
		snap.Forecast = &text
		snap.Condition = forecast.ExtractCondition(text)
	}
	if dayFc.err == nil {
		temp := dayFc.value.Temperature
		humidity := dayFc.value.Humidity
		snap.Temperature = &temp
		snap.Humidity = &humidity
		if dayFc.value.Forecast != "" {
			general := dayFc.value.Forecast
			snap.General = &general
		}
	}
	return snap
}

func distinctStops(queries []transit.Query) []string {
	seen := make(map[string]bool)
	var stops []string
	for _, q := range queries {
		if seen[q.StopCode] {
			continue
		}
		seen[q.StopCode] = true
		stops = append(stops, q.StopCode)
	}
	return stops
}
