package position

import (
	"context"

	"github.com/banshee-data/speedwatch/internal/serialmux"
)

// SerialSource reads NMEA from a GPS receiver through a serial mux. The mux's
// Monitor loop must be running for lines to arrive.
type SerialSource struct {
	*Hub
	mux  serialmux.SerialMuxInterface
	feed lineFeed
}

// NewSerialSource creates a source fed by mux.
func NewSerialSource(hub *Hub, mux serialmux.SerialMuxInterface) *SerialSource {
	return &SerialSource{
		Hub:  hub,
		mux:  mux,
		feed: lineFeed{hub: hub, name: "serial"},
	}
}

// Run subscribes to the mux and publishes decoded fixes until ctx is done or
// the mux closes.
func (s *SerialSource) Run(ctx context.Context) error {
	id, lines := s.mux.Subscribe()
	defer s.mux.Unsubscribe(id)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if serialmux.ClassifySentence(line) != serialmux.SentenceFix {
				continue
			}
			s.feed.handle(line)
		}
	}
}
