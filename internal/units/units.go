// Package units provides shared constants and validation for speed units
package units

import (
	"fmt"
	"time"
)

// Unit constants
const (
	MPS  = "mps"
	MPH  = "mph"
	KMPH = "kmph"
	KPH  = "kph"
)

// Distance factors used when converting tagged limits and display speeds.
const (
	KMPerMile         = 1.609344
	KMPerNauticalMile = 1.852
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{MPS, MPH, KMPH, KPH}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return "mps, mph, kmph, kph"
}

// ConvertSpeed converts a speed from km/h to the target units.
// Estimates and limits are always held in km/h internally.
func ConvertSpeed(speedKMH float64, targetUnits string) float64 {
	switch targetUnits {
	case MPS:
		return speedKMH / 3.6
	case MPH:
		return speedKMH / KMPerMile
	case KMPH, KPH:
		return speedKMH
	default:
		return speedKMH
	}
}

// Label returns the display suffix for a unit.
func Label(unit string) string {
	switch unit {
	case MPS:
		return "m/s"
	case MPH:
		return "mph"
	default:
		return "km/h"
	}
}

// MPHToKMH converts miles per hour to km/h.
func MPHToKMH(mph float64) float64 {
	return mph * KMPerMile
}

// KnotsToKMH converts knots to km/h.
func KnotsToKMH(knots float64) float64 {
	return knots * KMPerNauticalMile
}

// LoadTimezone resolves a tz database name for display of sample times.
// An empty name means UTC.
func LoadTimezone(tz string) (*time.Location, error) {
	if tz == "" || tz == "UTC" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %s: %w", tz, err)
	}
	return loc, nil
}
