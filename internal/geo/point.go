// Package geo holds the position-to-speed pipeline: great-circle distance
// between fixes, speed estimation from consecutive samples and the
// classification of a speed against the legal limit.
package geo

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Point is a geographic coordinate in decimal degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func (p Point) String() string {
	return fmt.Sprintf("%.6f,%.6f", p.Lat, p.Lon)
}

// ParsePoint parses latitude and longitude query values. Range is not
// checked; out-of-range values propagate through the trigonometry.
func ParsePoint(lat, lon string) (Point, error) {
	la, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil {
		return Point{}, fmt.Errorf("invalid latitude %q: %w", lat, err)
	}
	lo, err := strconv.ParseFloat(strings.TrimSpace(lon), 64)
	if err != nil {
		return Point{}, fmt.Errorf("invalid longitude %q: %w", lon, err)
	}
	return Point{Lat: la, Lon: lo}, nil
}

// Sample is a single timestamped position fix. Samples are never mutated;
// each new fix supersedes the previous one.
type Sample struct {
	Lat             float64 `json:"lat"`
	Lon             float64 `json:"lon"`
	TimestampMillis int64   `json:"timestamp"`
	// AccuracyM is the horizontal accuracy radius in meters, 0 when the
	// source does not report one.
	AccuracyM float64 `json:"accuracy_m,omitempty"`
}

// Point returns the sample's coordinate.
func (s Sample) Point() Point {
	return Point{Lat: s.Lat, Lon: s.Lon}
}

// Time returns the sample timestamp as a UTC time.
func (s Sample) Time() time.Time {
	return time.UnixMilli(s.TimestampMillis).UTC()
}
