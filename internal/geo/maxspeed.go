package geo

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/banshee-data/speedwatch/internal/units"
)

// ErrUnknownMaxSpeed is returned for maxspeed tag values that cannot be
// turned into a limit, such as "signals" or an unknown zone code.
var ErrUnknownMaxSpeed = errors.New("unrecognised maxspeed value")

// walkingPaceKMH is used for maxspeed=walk and living streets.
const walkingPaceKMH = 7

// zoneLimits maps implicit maxspeed zone codes to km/h. A value of 0 means
// the zone has no general limit.
var zoneLimits = map[string]float64{
	"AT:urban":      50,
	"AT:rural":      100,
	"AT:motorway":   130,
	"CH:urban":      50,
	"CH:rural":      80,
	"CH:motorway":   120,
	"DE:urban":      50,
	"DE:rural":      100,
	"DE:motorway":   0,
	"FR:urban":      50,
	"FR:rural":      80,
	"FR:motorway":   130,
	"IT:urban":      50,
	"IT:rural":      90,
	"IT:motorway":   130,
	"NL:urban":      50,
	"NL:rural":      80,
	"NL:motorway":   100,
	"GB:nsl_single": 96.56,
	"GB:nsl_dual":   112.65,
	"GB:motorway":   112.65,
}

var (
	numericMaxSpeed = regexp.MustCompile(`^([0-9]+(?:\.[0-9]+)?)\s*(mph|knots|km/h|kmh|kph)?$`)
	zoneMaxSpeed    = regexp.MustCompile(`^[A-Z]{2}:zone:?([0-9]+)$`)
)

// ParseMaxSpeed converts an OSM maxspeed tag value into a SpeedLimit.
// Numbers without a unit are km/h. For ";"-separated values the lowest limit
// wins.
func ParseMaxSpeed(raw string) (SpeedLimit, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return SpeedLimit{}, fmt.Errorf("%w: empty", ErrUnknownMaxSpeed)
	}

	if strings.Contains(value, ";") {
		var best *SpeedLimit
		for _, part := range strings.Split(value, ";") {
			limit, err := parseSingleMaxSpeed(part)
			if err != nil {
				return SpeedLimit{}, err
			}
			if best == nil || lowerLimit(limit, *best) {
				l := limit
				best = &l
			}
		}
		best.Raw = value
		return *best, nil
	}

	limit, err := parseSingleMaxSpeed(value)
	if err != nil {
		return SpeedLimit{}, err
	}
	limit.Raw = value
	return limit, nil
}

func lowerLimit(a, b SpeedLimit) bool {
	if a.Unlimited {
		return false
	}
	if b.Unlimited {
		return true
	}
	return a.KMH < b.KMH
}

func parseSingleMaxSpeed(raw string) (SpeedLimit, error) {
	value := strings.TrimSpace(raw)

	switch value {
	case "none":
		return SpeedLimit{Unlimited: true}, nil
	case "walk":
		return SpeedLimit{KMH: walkingPaceKMH}, nil
	}

	if m := numericMaxSpeed.FindStringSubmatch(value); m != nil {
		n, err := strconv.ParseFloat(m[1], 64)
		if err != nil || n <= 0 {
			return SpeedLimit{}, fmt.Errorf("%w: %q", ErrUnknownMaxSpeed, raw)
		}
		switch m[2] {
		case "mph":
			n = units.MPHToKMH(n)
		case "knots":
			n = units.KnotsToKMH(n)
		}
		return SpeedLimit{KMH: n}, nil
	}

	if m := zoneMaxSpeed.FindStringSubmatch(value); m != nil {
		n, _ := strconv.ParseFloat(m[1], 64)
		if n > 0 {
			return SpeedLimit{KMH: n}, nil
		}
	}

	if strings.HasSuffix(value, ":living_street") {
		return SpeedLimit{KMH: walkingPaceKMH}, nil
	}

	if kmh, ok := zoneLimits[value]; ok {
		if kmh == 0 {
			return SpeedLimit{Unlimited: true}, nil
		}
		return SpeedLimit{KMH: kmh}, nil
	}

	return SpeedLimit{}, fmt.Errorf("%w: %q", ErrUnknownMaxSpeed, raw)
}
