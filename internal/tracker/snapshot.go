package tracker

import (
	"time"

	"github.com/banshee-data/speedwatch/internal/geo"
	"github.com/banshee-data/speedwatch/internal/position"
)

// Snapshot is a consistent copy of the tracker's state.
type Snapshot struct {
	State State `json:"state"`
	// Seq numbers processed samples from 1.
	Seq     uint64      `json:"seq"`
	Samples int         `json:"samples"`
	Sample  *geo.Sample `json:"sample,omitempty"`
	// Center and Zoom position the map on the latest fix.
	Center         *geo.Point         `json:"center,omitempty"`
	Zoom           int                `json:"zoom"`
	LocationName   string             `json:"location_name,omitempty"`
	Limit          geo.SpeedLimit     `json:"limit"`
	SpeedKMH       *float64           `json:"speed_kmh,omitempty"`
	Classification geo.Classification `json:"classification"`
	// SourceError is the code of the last source error since the last fix.
	SourceError         string    `json:"source_error,omitempty"`
	LookupError         string    `json:"lookup_error,omitempty"`
	LocationUnavailable bool      `json:"location_unavailable,omitempty"`
	UpdatedAt           time.Time `json:"updated_at,omitempty"`
}

// Estimate returns the speed estimate the snapshot carries.
func (s Snapshot) Estimate() geo.SpeedEstimate {
	if s.SpeedKMH == nil {
		return geo.NoEstimate
	}
	return geo.SpeedEstimate{KMH: *s.SpeedKMH, Valid: true}
}

// Snapshot returns the current state.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snapshotLocked()
}

func (t *Tracker) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:               t.state,
		Seq:                 t.seq,
		Samples:             t.samples,
		Zoom:                t.cfg.MapZoom,
		LocationName:        t.location,
		Limit:               t.limit,
		SpeedKMH:            t.estimate.Ptr(),
		Classification:      t.classification,
		SourceError:         position.ErrorCode(t.sourceErr),
		LocationUnavailable: t.unavailable,
		UpdatedAt:           t.updatedAt,
	}
	if err := t.lookupError(); err != nil {
		snap.LookupError = err.Error()
	}
	if t.prev != nil {
		s := *t.prev
		c := s.Point()
		snap.Sample = &s
		snap.Center = &c
	}
	return snap
}
