package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by a Geocoder when every resolution tier failed.
var ErrNotFound = errors.New("location not found")

// FetchError is a network or HTTP failure fetching an upstream page. It aborts
// the poll cycle; the previous snapshot stays authoritative.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// RenderError is a headless-rendering failure. It aborts the warning poll.
type RenderError struct {
	URL string
	Err error
}

func (e *RenderError) Error() string { return fmt.Sprintf("render %s: %v", e.URL, e.Err) }

func (e *RenderError) Unwrap() error { return e.Err }

// ParseError describes one block that could not be turned into a record. It is
// logged and the block skipped.
type ParseError struct {
	Source string
	Block  int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s block %d: %s", e.Source, e.Block, e.Reason)
}

// GeocodeError is a provider failure for one query after retries.
type GeocodeError struct {
	Query string
	Err   error
}

func (e *GeocodeError) Error() string { return fmt.Sprintf("geocode %q: %v", e.Query, e.Err) }

func (e *GeocodeError) Unwrap() error { return e.Err }

// DispatchError is a delivery failure to a single session.
type DispatchError struct {
	SessionID string
	Err       error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch to session %s: %v", e.SessionID, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }
