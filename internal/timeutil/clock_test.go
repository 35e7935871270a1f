package timeutil

import (
	"testing"
	"time"
)

func TestRealClock_Now(t *testing.T) {
	clock := RealClock{}
	before := time.Now()
	now := clock.Now()
	after := time.Now()

	if now.Before(before) || now.After(after) {
		t.Errorf("Now() = %v, expected between %v and %v", now, before, after)
	}
}

func TestRealClock_Since(t *testing.T) {
	clock := RealClock{}
	past := time.Now().Add(-time.Second)
	d := clock.Since(past)

	if d < time.Second {
		t.Errorf("Since() returned %v, expected >= 1s", d)
	}
}

func TestRealClock_NewTimer(t *testing.T) {
	clock := RealClock{}
	timer := clock.NewTimer(10 * time.Millisecond)
	defer timer.Stop()

	select {
	case <-timer.C():
	case <-time.After(time.Second):
		t.Error("timer did not fire")
	}
}

func TestMockClock_Advance(t *testing.T) {
	start := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := NewMockClock(start)

	clock.Advance(5 * time.Second)
	if got := clock.Since(start); got != 5*time.Second {
		t.Errorf("Since(start) = %v, want 5s", got)
	}
}

func TestMockClock_TimerFiresAtDeadline(t *testing.T) {
	clock := NewMockClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	timer := clock.NewTimer(5 * time.Second)

	clock.Advance(4 * time.Second)
	select {
	case <-timer.C():
		t.Fatal("timer fired early")
	default:
	}

	clock.Advance(time.Second)
	select {
	case <-timer.C():
	default:
		t.Fatal("timer did not fire at deadline")
	}
}

func TestMockClock_TimerStop(t *testing.T) {
	clock := NewMockClock(time.Now())
	timer := clock.NewTimer(time.Second)

	if !timer.Stop() {
		t.Error("Stop on an active timer should report true")
	}
	clock.Advance(2 * time.Second)
	select {
	case <-timer.C():
		t.Fatal("stopped timer fired")
	default:
	}
	if timer.Stop() {
		t.Error("second Stop should report false")
	}
}

func TestMockClock_TimerResetUsesCurrentTime(t *testing.T) {
	clock := NewMockClock(time.Now())
	timer := clock.NewTimer(5 * time.Second)

	clock.Advance(4 * time.Second)
	timer.Reset(5 * time.Second)

	// Original deadline passes; reset deadline does not.
	clock.Advance(2 * time.Second)
	select {
	case <-timer.C():
		t.Fatal("timer fired at the original deadline after Reset")
	default:
	}

	clock.Advance(3 * time.Second)
	select {
	case <-timer.C():
	default:
		t.Fatal("timer did not fire at the reset deadline")
	}
}

func TestMockClock_After(t *testing.T) {
	clock := NewMockClock(time.Now())
	ch := clock.After(time.Minute)

	clock.Advance(time.Minute)
	select {
	case <-ch:
	default:
		t.Fatal("After channel did not fire")
	}
}

func TestMockClock_BlockUntil(t *testing.T) {
	clock := NewMockClock(time.Now())
	done := make(chan struct{})

	go func() {
		timer := clock.NewTimer(time.Second)
		<-timer.C()
		close(done)
	}()

	clock.BlockUntil(1)
	clock.Advance(time.Second)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("goroutine did not observe the timer")
	}
}
