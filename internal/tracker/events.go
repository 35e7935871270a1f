package tracker

import "github.com/banshee-data/speedwatch/internal/monitoring"

// EventKind says what changed.
type EventKind string

const (
	EventState       EventKind = "state"
	EventSample      EventKind = "sample"
	EventLocation    EventKind = "location"
	EventLimit       EventKind = "limit"
	EventSourceError EventKind = "source-error"
)

// Event is delivered to subscribers after every change. Seq is the sample
// the change belongs to; for lookup results it may be older than
// Snapshot.Seq.
type Event struct {
	Kind     EventKind `json:"kind"`
	Seq      uint64    `json:"seq,omitempty"`
	Snapshot Snapshot  `json:"snapshot"`
}

// subscriberBuffer absorbs short stalls in a subscriber.
const subscriberBuffer = 64

// Subscribe returns a channel of events. Slow subscribers miss events rather
// than stall the tracker. Call Unsubscribe to release it.
func (t *Tracker) Subscribe() (int, <-chan Event) {
	t.subMu.Lock()
	defer t.subMu.Unlock()
	id := t.nextID
	t.nextID++
	ch := make(chan Event, subscriberBuffer)
	t.subs[id] = ch
	return id, ch
}

// Unsubscribe closes and removes a subscription.
func (t *Tracker) Unsubscribe(id int) {
	t.subMu.Lock()
	defer t.subMu.Unlock()
	if ch, ok := t.subs[id]; ok {
		close(ch)
		delete(t.subs, id)
	}
}

// Close closes every subscription.
func (t *Tracker) Close() {
	t.subMu.Lock()
	defer t.subMu.Unlock()
	for id, ch := range t.subs {
		close(ch)
		delete(t.subs, id)
	}
}

func (t *Tracker) publish(e Event) {
	t.subMu.Lock()
	defer t.subMu.Unlock()
	for id, ch := range t.subs {
		select {
		case ch <- e:
		default:
			monitoring.Logf("tracker: subscriber %d is slow, dropped %s event", id, e.Kind)
		}
	}
}
