package position

import (
	"context"
	"fmt"
	"log"
	"net"
	"time"
)

// UDPSource receives NMEA datagrams, the form most marine and vehicle GPS
// gateways broadcast on the local network.
type UDPSource struct {
	*Hub
	addr string
	feed lineFeed

	ready chan net.Addr
}

// NewUDPSource creates a source listening on addr (host:port).
func NewUDPSource(hub *Hub, addr string) *UDPSource {
	return &UDPSource{
		Hub:   hub,
		addr:  addr,
		feed:  lineFeed{hub: hub, name: "udp"},
		ready: make(chan net.Addr, 1),
	}
}

// Ready delivers the bound address once Run is listening.
func (u *UDPSource) Ready() <-chan net.Addr { return u.ready }

// Run listens until ctx is cancelled.
func (u *UDPSource) Run(ctx context.Context) error {
	conn, err := net.ListenPacket("udp", u.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on UDP address %s: %w", u.addr, err)
	}
	defer conn.Close()

	log.Printf("NMEA UDP listener started on %s", conn.LocalAddr())
	u.ready <- conn.LocalAddr()

	buffer := make([]byte, 4096)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		// Short deadline so cancellation is observed.
		conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
		n, from, err := conn.ReadFrom(buffer)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("UDP read error from %v: %v", from, err)
			continue
		}
		u.feed.handlePayload(buffer[:n])
	}
}
