package config

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/lox/homedash/internal/weather"
)

// ErrAreaListUnavailable means the provider's area list could not be
// fetched, so the configured area was not checked.
var ErrAreaListUnavailable = errors.New("weather area list unavailable")

// AreaLister lists the area names the weather provider publishes.
type AreaLister interface {
	Areas(ctx context.Context) ([]string, error)
}

// ValidateArea checks area against the provider's list, retrying with
// exponential backoff for up to maxElapsed. It returns the provider's
// spelling of the area. An area that is not listed is a ConfigError; a list
// that cannot be fetched returns ErrAreaListUnavailable.
func ValidateArea(ctx context.Context, lister AreaLister, area string, maxElapsed time.Duration) (string, error) {
	if strings.TrimSpace(area) == "" {
		return "", &ConfigError{Field: "WEATHER_AREA", Reason: "is required"}
	}

	var areas []string
	operation := func() error {
		var err error
		areas, err = lister.Areas(ctx)
		if err != nil {
			log.Printf("config: listing weather areas: %v", err)
		}
		return err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 250 * time.Millisecond
	bo.MaxElapsedTime = maxElapsed
	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		return area, fmt.Errorf("%w: %w", ErrAreaListUnavailable, err)
	}

	match, ok := weather.MatchArea(areas, area)
	if !ok {
		return "", &ConfigError{
			Field:  "WEATHER_AREA",
			Reason: fmt.Sprintf("%q is not a known forecast area", area),
		}
	}
	return match, nil
}
