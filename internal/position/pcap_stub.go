//go:build !pcap
// +build !pcap

package position

import (
	"context"
	"fmt"
)

// PCAPSource is a stub; pcap support requires the pcap build tag.
type PCAPSource struct {
	*Hub
	file string
}

// NewPCAPSource creates a stub source whose Run always fails.
func NewPCAPSource(hub *Hub, file string, port int) *PCAPSource {
	return &PCAPSource{Hub: hub, file: file}
}

// Run returns an error explaining that pcap support is not compiled in.
func (p *PCAPSource) Run(ctx context.Context) error {
	return fmt.Errorf("cannot read %s: PCAP support not compiled in (requires pcap build tag)", p.file)
}

// PCAPSupported reports whether this binary can read captures.
const PCAPSupported = false
