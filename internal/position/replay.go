package position

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/banshee-data/speedwatch/internal/geo"
	"github.com/banshee-data/speedwatch/internal/timeutil"
)

// ReplaySource plays back a recorded NMEA log, pacing fixes by the gaps
// between their recorded timestamps. It backs --dev mode and tests.
type ReplaySource struct {
	*Hub
	path  string
	clock timeutil.Clock
	// Rate scales playback speed: 1 is real time, 2 twice as fast, and 0
	// publishes fixes back to back.
	Rate float64
	// Loop restarts from the top of the file at EOF.
	Loop bool
}

// NewReplaySource creates a real-time replay of the file at path.
func NewReplaySource(hub *Hub, path string, clock timeutil.Clock) *ReplaySource {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &ReplaySource{Hub: hub, path: path, clock: clock, Rate: 1}
}

// Run plays the file until EOF (or forever with Loop) or cancellation.
func (r *ReplaySource) Run(ctx context.Context) error {
	for {
		n, err := r.playOnce(ctx)
		if err != nil {
			return err
		}
		log.Printf("replay of %s complete: %d fixes", r.path, n)
		if !r.Loop || n == 0 {
			return nil
		}
	}
}

func (r *ReplaySource) playOnce(ctx context.Context) (int, error) {
	f, err := os.Open(r.path)
	if err != nil {
		return 0, fmt.Errorf("failed to open replay file: %w", err)
	}
	defer f.Close()

	feed := lineFeed{hub: r.Hub, name: "replay"}
	var prevTS int64
	first := true
	return feed.readLines(ctx, f, func(s geo.Sample) error {
		defer func() { prevTS, first = s.TimestampMillis, false }()
		if first || r.Rate <= 0 {
			return nil
		}
		gap := time.Duration(float64(time.Duration(s.TimestampMillis-prevTS)*time.Millisecond) / r.Rate)
		if gap <= 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.clock.After(gap):
			return nil
		}
	})
}
