package main

import (
	"fmt"
	"os"

	"github.com/banshee-data/speedwatch/internal/position"
	"github.com/banshee-data/speedwatch/internal/serialmux"
	"github.com/banshee-data/speedwatch/internal/timeutil"
)

// sourceOptions selects and configures the position source.
type sourceOptions struct {
	Name       string
	Port       string
	Baud       int
	UDPAddr    string
	ReplayFile string
	PCAPFile   string
	PCAPPort   int
	Dev        bool
}

// sourceSet is the wired position source. Runner is nil when fixes arrive
// from elsewhere (push, none). Serial is the receiver's mux for the serial
// source and a DisabledSerialMux otherwise; either way its Monitor loop must
// run.
type sourceSet struct {
	Source position.Source
	Runner position.Runner
	Push   *position.PushSource
	Serial serialmux.SerialMuxInterface
}

var sourceNames = []string{"serial", "udp", "pcap", "replay", "push", "none"}

func newSource(opts sourceOptions, hub *position.Hub) (*sourceSet, error) {
	set, err := pickSource(opts, hub)
	if err != nil {
		return nil, err
	}
	if set.Serial == nil {
		set.Serial = serialmux.NewDisabledSerialMux()
	}
	return set, nil
}

func pickSource(opts sourceOptions, hub *position.Hub) (*sourceSet, error) {
	switch opts.Name {
	case "serial":
		mux, err := openSerial(opts)
		if err != nil {
			return nil, err
		}
		return &sourceSet{Source: hub, Runner: position.NewSerialSource(hub, mux), Serial: mux}, nil
	case "udp":
		if opts.UDPAddr == "" {
			return nil, fmt.Errorf("--udp-addr is required for the udp source")
		}
		return &sourceSet{Source: hub, Runner: position.NewUDPSource(hub, opts.UDPAddr)}, nil
	case "pcap":
		if opts.PCAPFile == "" {
			return nil, fmt.Errorf("--pcap-file is required for the pcap source")
		}
		return &sourceSet{Source: hub, Runner: position.NewPCAPSource(hub, opts.PCAPFile, opts.PCAPPort)}, nil
	case "replay":
		if opts.ReplayFile == "" {
			return nil, fmt.Errorf("--replay-file is required for the replay source")
		}
		return &sourceSet{Source: hub, Runner: position.NewReplaySource(hub, opts.ReplayFile, timeutil.RealClock{})}, nil
	case "push":
		push := position.NewPushSource(hub, nil)
		return &sourceSet{Source: push, Push: push}, nil
	case "none":
		return &sourceSet{Source: position.NoneSource{}}, nil
	}
	return nil, fmt.Errorf("unknown source %q, must be one of %v", opts.Name, sourceNames)
}

// openSerial opens the receiver on opts.Port. In dev mode the receiver is
// simulated by a port preloaded with the replay file.
func openSerial(opts sourceOptions) (serialmux.SerialMuxInterface, error) {
	if opts.Dev {
		if opts.ReplayFile == "" {
			return nil, fmt.Errorf("--replay-file is required for the serial source in dev mode")
		}
		data, err := os.ReadFile(opts.ReplayFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open fixtures file: %w", err)
		}
		port := serialmux.NewTestableSerialPort()
		port.AddReadData(data)
		port.BlockReads = true
		return serialmux.NewSerialMux(port), nil
	}

	if opts.Port == "" {
		return nil, fmt.Errorf("--port is required for the serial source")
	}
	mux, err := serialmux.NewRealSerialMux(opts.Port, serialmux.PortOptions{BaudRate: opts.Baud})
	if err != nil {
		return nil, fmt.Errorf("failed to open GPS port: %w", err)
	}
	return mux, nil
}
