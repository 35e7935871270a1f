package position

import (
	"fmt"
	"math"

	"github.com/banshee-data/speedwatch/internal/geo"
	"github.com/banshee-data/speedwatch/internal/timeutil"
)

// PushSource accepts fixes posted by a browser page that runs the platform
// geolocation API and forwards what it reports.
type PushSource struct {
	*Hub
	clock timeutil.Clock
}

// NewPushSource creates a push source.
func NewPushSource(hub *Hub, clock timeutil.Clock) *PushSource {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &PushSource{Hub: hub, clock: clock}
}

// Push validates and publishes one fix. A zero timestamp is stamped with the
// current time.
func (p *PushSource) Push(s geo.Sample) (geo.Sample, error) {
	if math.IsNaN(s.Lat) || math.IsNaN(s.Lon) || s.Lat < -90 || s.Lat > 90 || s.Lon < -180 || s.Lon > 180 {
		return geo.Sample{}, fmt.Errorf("coordinates out of range: %v,%v", s.Lat, s.Lon)
	}
	if s.AccuracyM < 0 || math.IsNaN(s.AccuracyM) {
		return geo.Sample{}, fmt.Errorf("invalid accuracy: %v", s.AccuracyM)
	}
	if s.TimestampMillis == 0 {
		s.TimestampMillis = p.clock.Now().UnixMilli()
	}
	p.Publish(s)
	return s, nil
}

// PushError publishes a geolocation error reported by the browser.
func (p *PushSource) PushError(code string) error {
	err, ok := ParseErrorCode(code)
	if !ok {
		return fmt.Errorf("unknown position error code %q", code)
	}
	p.PublishError(err)
	return nil
}
