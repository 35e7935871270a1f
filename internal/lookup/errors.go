// Package lookup holds the clients for the public OpenStreetMap services the
// tracker consults: Nominatim for reverse geocoding and Overpass for road
// attributes and nearby amenities.
package lookup

import (
	"errors"
	"fmt"

	"github.com/banshee-data/speedwatch/internal/httputil"
)

// Lookup failures. Both are logged by callers and never retried.
var (
	ErrNetwork   = errors.New("lookup: network failure")
	ErrMalformed = errors.New("lookup: malformed response")
)

// classify wraps an httputil error with the matching lookup sentinel while
// keeping the original chain (including context errors) reachable.
func classify(service string, err error) error {
	var decodeErr *httputil.DecodeError
	if errors.As(err, &decodeErr) {
		return fmt.Errorf("%s: %w: %w", service, ErrMalformed, err)
	}
	return fmt.Errorf("%s: %w: %w", service, ErrNetwork, err)
}
