package geo

import "fmt"

// DefaultSpeedLimitKMH applies until the first successful limit lookup, and
// whenever a lookup finds no tagged way near the position.
const DefaultSpeedLimitKMH = 50

// SpeedLimit is the legal limit of the current road segment in km/h.
type SpeedLimit struct {
	KMH float64 `json:"kmh"`
	// Unlimited is set for roads tagged maxspeed=none.
	Unlimited bool `json:"unlimited,omitempty"`
	// Raw is the tag value the limit was parsed from.
	Raw string `json:"raw,omitempty"`
	// Default marks a limit that did not come from a tagged way.
	Default bool `json:"default,omitempty"`
}

// DefaultSpeedLimit returns the fallback limit of kmh, or
// DefaultSpeedLimitKMH when kmh is not positive.
func DefaultSpeedLimit(kmh float64) SpeedLimit {
	if kmh <= 0 {
		kmh = DefaultSpeedLimitKMH
	}
	return SpeedLimit{KMH: kmh, Default: true}
}

func (l SpeedLimit) String() string {
	if l.Unlimited {
		return "unlimited"
	}
	return fmt.Sprintf("%g km/h", l.KMH)
}

// Classification is the outcome of comparing a speed with a limit.
type Classification string

const (
	WithinLimit  Classification = "within-limit"
	Exceeding    Classification = "exceeding"
	Unclassified Classification = "no-estimate"
)

// Classify compares est against limit. The boundary is inclusive on the
// within-limit side. Without a valid estimate the result is Unclassified.
func Classify(est SpeedEstimate, limit SpeedLimit) Classification {
	if !est.Valid {
		return Unclassified
	}
	if limit.Unlimited {
		return WithinLimit
	}
	if est.KMH > limit.KMH {
		return Exceeding
	}
	return WithinLimit
}
