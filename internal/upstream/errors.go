package upstream

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// SourceError reports that an upstream source could not supply data for this
// fetch cycle. Transport failures, non-2xx responses, malformed payloads and
// missing fields all surface as a SourceError so callers never see raw
// transport errors.
type SourceError struct {
	Source  string
	Cause   string
	Timeout bool
	Err     error
}

func (e *SourceError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("%s: timed out", e.Source)
	}
	return fmt.Sprintf("%s: %s", e.Source, e.Cause)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// Unavailable builds a SourceError with a human-readable cause.
func Unavailable(source, cause string, err error) *SourceError {
	return &SourceError{Source: source, Cause: cause, Err: err}
}

// Missing reports an expected field absent from an otherwise valid response.
func Missing(source, field string) *SourceError {
	return &SourceError{Source: source, Cause: "missing field: " + field}
}

// TimedOut reports that the call for source did not finish within its deadline.
func TimedOut(source string, err error) *SourceError {
	return &SourceError{Source: source, Cause: "timed out", Timeout: true, Err: err}
}

// IsTimeout reports whether err is a SourceError of the timeout kind.
func IsTimeout(err error) bool {
	var se *SourceError
	return errors.As(err, &se) && se.Timeout
}

// Classify converts an arbitrary error into a SourceError for source. Errors
// that already are SourceErrors are returned unchanged.
func Classify(source string, err error) *SourceError {
	if err == nil {
		return nil
	}
	var se *SourceError
	if errors.As(err, &se) {
		return se
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return TimedOut(source, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return TimedOut(source, err)
	}
	if errors.Is(err, context.Canceled) {
		return Unavailable(source, "request canceled", err)
	}
	return Unavailable(source, "network error", err)
}
