// Package studioerr defines the error taxonomy shared across the toolkit.
//
// Generation and enrichment helpers never return these errors; they degrade to
// defaults. Remote CRUD operations surface TransportError verbatim (status and
// body) so user-initiated actions are never silently retried.
package studioerr

import (
	"errors"
	"fmt"
	"strings"
)

// ConfigurationError reports missing credentials or base URL. Fatal to any
// remote call.
type ConfigurationError struct {
	Missing string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s is not set", e.Missing)
}

// TransportError reports a non-2xx HTTP response or a network failure.
type TransportError struct {
	Op     string
	Status int
	Body   string
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		body := strings.TrimSpace(e.Body)
		if body != "" {
			return fmt.Sprintf("%s: http %d: %s", e.Op, e.Status, body)
		}
		return fmt.Sprintf("%s: http %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ValidationError carries structural schema problems. Soft: the user may
// override and proceed.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", strings.Join(e.Problems, "; "))
}

// TimeoutError reports an exhausted poll loop. Soft: callers degrade to
// partial data.
type TimeoutError struct {
	Op       string
	Attempts int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: no terminal response after %d attempts", e.Op, e.Attempts)
}

// ParseError reports malformed JSON in an editable document. Blocks save.
type ParseError struct {
	Msg string
	Err error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse: %s: %v", e.Msg, e.Err)
	}
	return "parse: " + e.Msg
}

func (e *ParseError) Unwrap() error { return e.Err }

// IsTimeout reports whether err is (or wraps) a TimeoutError.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}
