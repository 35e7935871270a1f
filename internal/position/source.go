// Package position supplies timestamped position fixes to the tracker.
//
// A Source offers the two operations a browser's geolocation facility does:
// a one-shot fix and a continuous watch, each with a high-accuracy hint and a
// timeout. Concrete sources read NMEA from a serial receiver, UDP, a pcap
// capture or a recorded file, or accept fixes pushed over HTTP by a browser.
package position

import (
	"context"
	"errors"
	"time"

	"github.com/banshee-data/speedwatch/internal/geo"
)

// Errors delivered by sources. They mirror the geolocation error codes.
var (
	ErrPermissionDenied    = errors.New("position: permission denied")
	ErrTimeout             = errors.New("position: timeout")
	ErrPositionUnavailable = errors.New("position: position unavailable")
	// ErrUnsupported means no location facility is configured at all.
	ErrUnsupported = errors.New("position: location facility unavailable")
)

// Options tune a fix request.
type Options struct {
	// HighAccuracy drops fixes whose reported accuracy is worse than the
	// source's configured maximum.
	HighAccuracy bool
	// Timeout bounds the wait for a fix. Zero waits forever.
	Timeout time.Duration
}

// Update is one event on a watch: either a sample or an error.
type Update struct {
	Sample geo.Sample
	Err    error
}

// Source is a provider of position fixes.
type Source interface {
	// CurrentPosition waits for the next acceptable fix.
	CurrentPosition(ctx context.Context, opts Options) (geo.Sample, error)
	// Watch streams fixes and errors until ctx is cancelled, then closes
	// the channel.
	Watch(ctx context.Context, opts Options) <-chan Update
}

// Runner is implemented by sources that must be driven by a goroutine
// reading from a device, socket or file.
type Runner interface {
	Run(ctx context.Context) error
}

// ErrorCode returns the wire name of a source error, as used by the push API
// and the status endpoint.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return "permission-denied"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrPositionUnavailable):
		return "position-unavailable"
	case errors.Is(err, ErrUnsupported):
		return "unsupported"
	case err == nil:
		return ""
	}
	return "unknown"
}

// ParseErrorCode maps a wire name back to its sentinel error.
func ParseErrorCode(code string) (error, bool) {
	switch code {
	case "permission-denied", "PERMISSION_DENIED", "1":
		return ErrPermissionDenied, true
	case "position-unavailable", "POSITION_UNAVAILABLE", "2":
		return ErrPositionUnavailable, true
	case "timeout", "TIMEOUT", "3":
		return ErrTimeout, true
	}
	return nil, false
}
