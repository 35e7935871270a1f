// Package tracker follows a position source, estimates speed between
// consecutive fixes, looks up the place name and legal limit for each fix,
// and classifies the speed against the limit.
package tracker

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/speedwatch/internal/geo"
	"github.com/banshee-data/speedwatch/internal/monitoring"
	"github.com/banshee-data/speedwatch/internal/position"
)

// State is the tracker lifecycle.
type State string

const (
	StateUninitialized    State = "uninitialized"
	StateAwaitingFirstFix State = "awaiting-first-fix"
	StateTracking         State = "tracking"
)

// Geocoder resolves a position to a place name.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, p geo.Point) (string, error)
}

// LimitLookup resolves a position to the legal limit of the nearest road.
type LimitLookup interface {
	SpeedLimit(ctx context.Context, p geo.Point) (geo.SpeedLimit, error)
}

// Config tunes a Tracker.
type Config struct {
	// OneShot is used for the initial fix request.
	OneShot position.Options
	// Watch is used for the continuous watch.
	Watch position.Options
	// DefaultLimitKMH applies until the first successful limit lookup.
	DefaultLimitKMH float64
	// MapZoom is reported with the map centre.
	MapZoom int
	// LookupTimeout bounds each lookup. Zero relies on the client's own.
	LookupTimeout time.Duration
}

// DefaultConfig returns the browser-equivalent settings: a high-accuracy
// one-shot fix with a 10 s timeout, a high-accuracy watch with 5 s, and a
// 50 km/h default limit.
func DefaultConfig() Config {
	return Config{
		OneShot:         position.Options{HighAccuracy: true, Timeout: 10 * time.Second},
		Watch:           position.Options{HighAccuracy: true, Timeout: 5 * time.Second},
		DefaultLimitKMH: geo.DefaultSpeedLimitKMH,
		MapZoom:         15,
	}
}

// Tracker owns all per-run state. Samples are processed one at a time, in
// arrival order, by the Run goroutine; lookups run concurrently and apply
// their results only if nothing newer has been applied.
type Tracker struct {
	source   position.Source
	geocoder Geocoder
	limits   LimitLookup
	cfg      Config

	mu             sync.RWMutex
	state          State
	seq            uint64
	samples        int
	prev           *geo.Sample
	limit          geo.SpeedLimit
	location       string
	estimate       geo.SpeedEstimate
	classification geo.Classification
	sourceErr      error
	unavailable    bool
	updatedAt      time.Time

	limitLookup    lookupState
	locationLookup lookupState
	lookups        sync.WaitGroup

	subMu  sync.Mutex
	nextID int
	subs   map[int]chan Event
}

// New creates a tracker. geocoder and limits may be nil to disable that
// lookup.
func New(source position.Source, geocoder Geocoder, limits LimitLookup, cfg Config) *Tracker {
	return &Tracker{
		source:         source,
		geocoder:       geocoder,
		limits:         limits,
		cfg:            cfg,
		state:          StateUninitialized,
		limit:          geo.DefaultSpeedLimit(cfg.DefaultLimitKMH),
		classification: geo.Unclassified,
		subs:           make(map[int]chan Event),
	}
}

// Run requests a one-shot fix and a continuous watch and processes samples
// until ctx is cancelled. Source errors are logged and do not stop it.
func (t *Tracker) Run(ctx context.Context) error {
	t.setState(StateAwaitingFirstFix)

	fixes := make(chan position.Update, 1)
	go func() {
		s, err := t.source.CurrentPosition(ctx, t.cfg.OneShot)
		if ctx.Err() != nil {
			return
		}
		fixes <- position.Update{Sample: s, Err: err}
	}()
	watch := t.source.Watch(ctx, t.cfg.Watch)

	defer func() {
		t.mu.Lock()
		t.limitLookup.cancelAll()
		t.locationLookup.cancelAll()
		t.mu.Unlock()
		t.lookups.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case u := <-fixes:
			if t.Snapshot().Samples > 0 {
				// The watch got there first; its fixes are at least as new.
				monitoring.Debugf("tracker: ignoring initial fix that arrived after a watch fix")
				continue
			}
			t.handle(ctx, "initial fix", u)
		case u, ok := <-watch:
			if !ok {
				<-ctx.Done()
				return ctx.Err()
			}
			t.handle(ctx, "watch", u)
		}
	}
}

func (t *Tracker) handle(ctx context.Context, origin string, u position.Update) {
	if u.Err != nil {
		t.sourceError(origin, u.Err)
		return
	}
	t.Process(ctx, u.Sample)
}

func (t *Tracker) sourceError(origin string, err error) {
	monitoring.Logf("tracker: %s error: %v", origin, err)
	t.mu.Lock()
	t.sourceErr = err
	if errors.Is(err, position.ErrUnsupported) {
		t.unavailable = true
	}
	t.publish(Event{Kind: EventSourceError, Snapshot: t.snapshotLocked()})
	t.mu.Unlock()
}

// Process handles one sample: it dispatches both lookups, estimates speed
// against the previous sample, classifies it, and stores the sample as the
// new previous one. Run calls it for every fix; it is exported for callers
// that drive the tracker directly.
//
// A sample identical to the previous one, timestamp included, is the same
// fix delivered twice (the one-shot request and the watch both report the
// first fix) and is ignored, leaving the estimate untouched. A sample older
// than the previous one is ignored too. A different sample with the same
// timestamp is processed and yields no estimate.
//
// The sample event is published before any lookup result for the same
// sample can be applied, so subscribers always see a sample before the
// changes that belong to it.
func (t *Tracker) Process(ctx context.Context, s geo.Sample) {
	t.mu.Lock()
	if t.prev != nil && *t.prev == s {
		t.mu.Unlock()
		monitoring.Debugf("tracker: skipping duplicate fix at %d", s.TimestampMillis)
		return
	}
	if t.prev != nil && s.TimestampMillis < t.prev.TimestampMillis {
		prevMillis := t.prev.TimestampMillis
		t.mu.Unlock()
		monitoring.Debugf("tracker: skipping fix at %d older than %d", s.TimestampMillis, prevMillis)
		return
	}
	t.seq++
	seq := t.seq

	t.dispatchLookupsLocked(ctx, seq, s.Point())

	est := geo.NoEstimate
	if t.prev != nil {
		est = geo.EstimateSpeed(*t.prev, s, geo.ElapsedMillis(*t.prev, s))
	}
	t.estimate = est
	t.classification = geo.Classify(est, t.limit)
	prev := s
	t.prev = &prev
	t.samples++
	t.state = StateTracking
	t.sourceErr = nil
	t.updatedAt = time.Now()
	snap := t.snapshotLocked()
	t.publish(Event{Kind: EventSample, Seq: seq, Snapshot: snap})
	t.mu.Unlock()

	if est.Valid {
		monitoring.Debugf("tracker: #%d %s %.2f km/h (%s, limit %s)", seq, s.Point(), est.KMH, snap.Classification, snap.Limit)
	}
}

// dispatchLookupsLocked starts the geocoding and limit lookups for sample
// seq. t.mu must be held; the lookups block on it before applying their
// results. Older lookups keep running until they time out or a newer result
// for the same field is applied, so a slow service still answers while fixes
// keep arriving.
func (t *Tracker) dispatchLookupsLocked(ctx context.Context, seq uint64, p geo.Point) {
	if t.geocoder == nil && t.limits == nil {
		return
	}

	// Each lookup logs and swallows its own error, so a failure of one
	// never cancels the other.
	var g errgroup.Group
	if t.geocoder != nil {
		lctx := t.startLookupLocked(ctx, &t.locationLookup, seq)
		g.Go(func() error {
			defer t.finishLookup(&t.locationLookup, seq)
			name, err := t.geocoder.ReverseGeocode(lctx, p)
			if err != nil {
				t.lookupFailed(&t.locationLookup, "reverse geocoding", seq, err)
				return nil
			}
			t.applyLocation(seq, name)
			return nil
		})
	}
	if t.limits != nil {
		lctx := t.startLookupLocked(ctx, &t.limitLookup, seq)
		g.Go(func() error {
			defer t.finishLookup(&t.limitLookup, seq)
			limit, err := t.limits.SpeedLimit(lctx, p)
			if err != nil {
				t.lookupFailed(&t.limitLookup, "speed limit lookup", seq, err)
				return nil
			}
			t.applyLimit(seq, limit)
			return nil
		})
	}

	t.lookups.Add(1)
	go func() {
		defer t.lookups.Done()
		g.Wait()
	}()
}

func (t *Tracker) startLookupLocked(ctx context.Context, l *lookupState, seq uint64) context.Context {
	var lctx context.Context
	var cancel context.CancelFunc
	if t.cfg.LookupTimeout > 0 {
		lctx, cancel = context.WithTimeout(ctx, t.cfg.LookupTimeout)
	} else {
		lctx, cancel = context.WithCancel(ctx)
	}
	l.start(seq, cancel)
	return lctx
}

func (t *Tracker) finishLookup(l *lookupState, seq uint64) {
	t.mu.Lock()
	l.finish(seq)
	t.mu.Unlock()
}

func (t *Tracker) lookupFailed(l *lookupState, what string, seq uint64, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if seq <= l.applied {
		monitoring.Debugf("tracker: %s for #%d superseded", what, seq)
		return
	}
	if errors.Is(err, context.Canceled) {
		monitoring.Debugf("tracker: %s for #%d cancelled", what, seq)
		return
	}
	monitoring.Logf("tracker: %s for #%d failed: %v", what, seq, err)
	l.failed(seq, err)
}

// applyLocation stores name unless a newer sample's name is already applied.
func (t *Tracker) applyLocation(seq uint64, name string) bool {
	t.mu.Lock()
	if !t.locationLookup.accept(seq) {
		t.mu.Unlock()
		monitoring.Debugf("tracker: dropping stale location for #%d", seq)
		return false
	}
	t.location = name
	t.updatedAt = time.Now()
	t.publish(Event{Kind: EventLocation, Seq: seq, Snapshot: t.snapshotLocked()})
	t.mu.Unlock()
	return true
}

// applyLimit stores limit unless a newer sample's limit is already applied,
// and reclassifies the current estimate against it.
func (t *Tracker) applyLimit(seq uint64, limit geo.SpeedLimit) bool {
	t.mu.Lock()
	if !t.limitLookup.accept(seq) {
		t.mu.Unlock()
		monitoring.Debugf("tracker: dropping stale limit for #%d", seq)
		return false
	}
	t.limit = limit
	t.classification = geo.Classify(t.estimate, limit)
	t.updatedAt = time.Now()
	t.publish(Event{Kind: EventLimit, Seq: seq, Snapshot: t.snapshotLocked()})
	t.mu.Unlock()
	return true
}

func (t *Tracker) setState(s State) {
	t.mu.Lock()
	t.state = s
	t.publish(Event{Kind: EventState, Snapshot: t.snapshotLocked()})
	t.mu.Unlock()
}

// State returns the current lifecycle state.
func (t *Tracker) State() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

// CurrentPosition requests a one-shot fix with the tracker's settings. The
// navigation redirect uses it.
func (t *Tracker) CurrentPosition(ctx context.Context) (geo.Sample, error) {
	return t.source.CurrentPosition(ctx, t.cfg.OneShot)
}
