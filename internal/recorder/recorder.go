// Package recorder persists tracker events as trip samples.
package recorder

import (
	"context"
	"fmt"

	"github.com/banshee-data/speedwatch/internal/db"
	"github.com/banshee-data/speedwatch/internal/geo"
	"github.com/banshee-data/speedwatch/internal/monitoring"
	"github.com/banshee-data/speedwatch/internal/tracker"
)

// Store is the subset of *db.DB the recorder writes through.
type Store interface {
	InsertSample(r db.SampleRecord) error
	UpdateSampleLocation(tripID string, seq uint64, name string) error
	UpdateSampleLimit(tripID string, seq uint64, limit geo.SpeedLimit) error
}

// Recorder writes every processed sample of one trip and patches it when
// its lookups resolve.
type Recorder struct {
	store  Store
	tripID string
}

func New(store Store, tripID string) *Recorder {
	return &Recorder{store: store, tripID: tripID}
}

// TripID returns the trip being recorded.
func (r *Recorder) TripID() string {
	return r.tripID
}

// Run records events until ctx is cancelled or events is closed. Write
// failures are logged and do not stop recording.
func (r *Recorder) Run(ctx context.Context, events <-chan tracker.Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e, ok := <-events:
			if !ok {
				return nil
			}
			if err := r.Record(e); err != nil {
				monitoring.Logf("recorder: %v", err)
			}
		}
	}
}

// Record applies one event. Events that carry no per-sample change are
// ignored.
func (r *Recorder) Record(e tracker.Event) error {
	snap := e.Snapshot
	switch e.Kind {
	case tracker.EventSample:
		if snap.Sample == nil {
			return fmt.Errorf("sample event #%d without a sample", e.Seq)
		}
		return r.store.InsertSample(db.SampleRecord{
			TripID:         r.tripID,
			Seq:            e.Seq,
			Sample:         *snap.Sample,
			SpeedKMH:       snap.SpeedKMH,
			Limit:          snap.Limit,
			Classification: snap.Classification,
			LocationName:   snap.LocationName,
		})
	case tracker.EventLocation:
		return r.store.UpdateSampleLocation(r.tripID, e.Seq, snap.LocationName)
	case tracker.EventLimit:
		return r.store.UpdateSampleLimit(r.tripID, e.Seq, snap.Limit)
	}
	return nil
}
