package tracker

import (
	"context"
	"errors"
)

// lookupState tracks one looked-up field across samples: the newest sample
// whose result was applied, the error of the newest failed attempt not yet
// followed by a success, and the attempts still running. It is guarded by
// Tracker.mu.
type lookupState struct {
	applied uint64
	err     error
	errSeq  uint64
	pending map[uint64]context.CancelFunc
}

func (l *lookupState) start(seq uint64, cancel context.CancelFunc) {
	if l.pending == nil {
		l.pending = make(map[uint64]context.CancelFunc)
	}
	l.pending[seq] = cancel
}

func (l *lookupState) finish(seq uint64) {
	if cancel, ok := l.pending[seq]; ok {
		cancel()
		delete(l.pending, seq)
	}
}

// accept reports whether a result for seq is newer than the applied one and
// records it if so. Attempts for older samples can no longer apply and are
// cancelled.
func (l *lookupState) accept(seq uint64) bool {
	if seq <= l.applied {
		return false
	}
	l.applied = seq
	if seq >= l.errSeq {
		l.err, l.errSeq = nil, 0
	}
	for s, cancel := range l.pending {
		if s < seq {
			cancel()
			delete(l.pending, s)
		}
	}
	return true
}

func (l *lookupState) failed(seq uint64, err error) {
	if seq >= l.errSeq {
		l.err, l.errSeq = err, seq
	}
}

func (l *lookupState) cancelAll() {
	for s, cancel := range l.pending {
		cancel()
		delete(l.pending, s)
	}
}

// lookupError joins the outstanding lookup errors, or returns nil.
func (t *Tracker) lookupError() error {
	return errors.Join(t.locationLookup.err, t.limitLookup.err)
}
