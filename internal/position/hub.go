package position

import (
	"context"
	"sync"
	"time"

	"github.com/banshee-data/speedwatch/internal/geo"
	"github.com/banshee-data/speedwatch/internal/monitoring"
	"github.com/banshee-data/speedwatch/internal/timeutil"
)

// feedBuffer is the per-subscriber queue between a feed and its watchers.
const feedBuffer = 16

// Hub implements Source over a feed of published samples and errors. Feed
// goroutines call Publish and PublishError; any number of CurrentPosition
// and Watch callers receive them. Each watch applies its own timeout and
// accuracy filter.
type Hub struct {
	clock        timeutil.Clock
	maxAccuracyM float64

	mu     sync.Mutex
	nextID int
	subs   map[int]chan Update
	last   *geo.Sample
}

// NewHub creates a hub. maxAccuracyM is the worst accuracy accepted when a
// caller asks for high accuracy; zero disables the filter.
func NewHub(clock timeutil.Clock, maxAccuracyM float64) *Hub {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Hub{
		clock:        clock,
		maxAccuracyM: maxAccuracyM,
		subs:         make(map[int]chan Update),
	}
}

// Publish fans a sample out to every current subscriber. Slow subscribers
// miss samples rather than stall the feed.
func (h *Hub) Publish(s geo.Sample) {
	h.mu.Lock()
	h.last = &s
	h.mu.Unlock()
	h.broadcast(Update{Sample: s})
}

// PublishError fans an error out to every current subscriber.
func (h *Hub) PublishError(err error) {
	h.broadcast(Update{Err: err})
}

// Last returns the most recently published sample.
func (h *Hub) Last() (geo.Sample, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.last == nil {
		return geo.Sample{}, false
	}
	return *h.last, true
}

// Subscribers reports how many callers are waiting on the hub.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub) broadcast(u Update) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- u:
		default:
			monitoring.Debugf("position: dropped update for slow subscriber")
		}
	}
}

func (h *Hub) subscribe() (int, <-chan Update) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextID
	h.nextID++
	ch := make(chan Update, feedBuffer)
	h.subs[id] = ch
	return id, ch
}

func (h *Hub) unsubscribe(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs, id)
}

// accept applies the high-accuracy filter.
func (h *Hub) accept(s geo.Sample, opts Options) bool {
	if !opts.HighAccuracy || h.maxAccuracyM <= 0 || s.AccuracyM <= 0 {
		return true
	}
	if s.AccuracyM > h.maxAccuracyM {
		monitoring.Debugf("position: dropping fix with accuracy %.1fm (max %.1fm)", s.AccuracyM, h.maxAccuracyM)
		return false
	}
	return true
}

// CurrentPosition returns the next acceptable fix, the first feed error, or
// ErrTimeout once opts.Timeout elapses.
func (h *Hub) CurrentPosition(ctx context.Context, opts Options) (geo.Sample, error) {
	id, ch := h.subscribe()
	defer h.unsubscribe(id)

	var timeout <-chan time.Time
	if opts.Timeout > 0 {
		timer := h.clock.NewTimer(opts.Timeout)
		defer timer.Stop()
		timeout = timer.C()
	}

	for {
		select {
		case <-ctx.Done():
			return geo.Sample{}, ctx.Err()
		case <-timeout:
			return geo.Sample{}, ErrTimeout
		case u := <-ch:
			if u.Err != nil {
				return geo.Sample{}, u.Err
			}
			if h.accept(u.Sample, opts) {
				return u.Sample, nil
			}
		}
	}
}

// Watch streams acceptable fixes and feed errors. When no fix arrives within
// opts.Timeout an ErrTimeout update is emitted and the watch continues.
func (h *Hub) Watch(ctx context.Context, opts Options) <-chan Update {
	id, ch := h.subscribe()
	out := make(chan Update, 1)

	go func() {
		defer close(out)
		defer h.unsubscribe(id)

		var timer timeutil.Timer
		var timeout <-chan time.Time
		if opts.Timeout > 0 {
			timer = h.clock.NewTimer(opts.Timeout)
			defer timer.Stop()
			timeout = timer.C()
		}

		send := func(u Update) bool {
			select {
			case out <- u:
				return true
			case <-ctx.Done():
				return false
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case <-timeout:
				if !send(Update{Err: ErrTimeout}) {
					return
				}
				timer.Reset(opts.Timeout)
			case u := <-ch:
				if u.Err == nil && !h.accept(u.Sample, opts) {
					continue
				}
				if !send(u) {
					return
				}
				if u.Err == nil && timer != nil {
					timer.Stop()
					timer.Reset(opts.Timeout)
				}
			}
		}
	}()

	return out
}
