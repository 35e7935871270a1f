//go:build pcap
// +build pcap

package position

import (
	"context"
	"fmt"
	"log"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
)

// PCAPSource replays NMEA UDP payloads from a packet capture.
type PCAPSource struct {
	*Hub
	file string
	port int
	feed lineFeed
}

// NewPCAPSource creates a source reading file, keeping UDP packets to port.
func NewPCAPSource(hub *Hub, file string, port int) *PCAPSource {
	return &PCAPSource{Hub: hub, file: file, port: port, feed: lineFeed{hub: hub, name: "pcap"}}
}

// Run reads the capture once. Packets are published as fast as they are
// read; the capture timestamps are not used for pacing.
func (p *PCAPSource) Run(ctx context.Context) error {
	handle, err := pcap.OpenOffline(p.file)
	if err != nil {
		return fmt.Errorf("failed to open PCAP file %s: %w", p.file, err)
	}
	defer handle.Close()

	filterStr := fmt.Sprintf("udp port %d", p.port)
	if err := handle.SetBPFFilter(filterStr); err != nil {
		return fmt.Errorf("failed to set BPF filter '%s': %w", filterStr, err)
	}
	log.Printf("PCAP BPF filter set: %s", filterStr)

	packetSource := gopacket.NewPacketSource(handle, handle.LinkType())
	count := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case packet := <-packetSource.Packets():
			if packet == nil {
				log.Printf("PCAP file reading complete: %d packets", count)
				return nil
			}
			count++
			udpLayer := packet.Layer(layers.LayerTypeUDP)
			if udpLayer == nil {
				continue
			}
			udp, ok := udpLayer.(*layers.UDP)
			if !ok || len(udp.Payload) == 0 {
				continue
			}
			p.feed.handlePayload(udp.Payload)
		}
	}
}

// PCAPSupported reports whether this binary can read captures.
const PCAPSupported = true
