package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/banshee-data/speedwatch/internal/config"
	"github.com/banshee-data/speedwatch/internal/units"
)

// TestSourceFlagDefault verifies the browser push source is the default, as
// the page at / posts its geolocation fixes.
func TestSourceFlagDefault(t *testing.T) {
	if sourceName == nil {
		t.Fatal("source flag not defined")
	}
	if *sourceName != "push" {
		t.Errorf("expected source default to be push, got %q", *sourceName)
	}
}

func TestUnitsFlagDefault(t *testing.T) {
	if !units.IsValid(*unitsFlag) {
		t.Errorf("units default %q is not a valid unit", *unitsFlag)
	}
	if *unitsFlag != units.KPH {
		t.Errorf("expected units default to be %q, got %q", units.KPH, *unitsFlag)
	}
}

// TestGRPCListenDisabledByDefault verifies the health server is opt-in.
func TestGRPCListenDisabledByDefault(t *testing.T) {
	if *grpcListen != "" {
		t.Errorf("expected grpc-listen default to be empty, got %q", *grpcListen)
	}
}

func TestTrackerConfigDefaults(t *testing.T) {
	got := trackerConfig(config.EmptyTrackerConfig())

	if got.OneShot.Timeout != 10*time.Second || !got.OneShot.HighAccuracy {
		t.Errorf("unexpected one-shot options %+v", got.OneShot)
	}
	if got.Watch.Timeout != 5*time.Second || !got.Watch.HighAccuracy {
		t.Errorf("unexpected watch options %+v", got.Watch)
	}
	if got.DefaultLimitKMH != 50 {
		t.Errorf("expected default limit 50, got %v", got.DefaultLimitKMH)
	}
	if got.MapZoom != 15 {
		t.Errorf("expected map zoom 15, got %d", got.MapZoom)
	}
}

func TestLoadConfig(t *testing.T) {
	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig with no path: %v", err)
	}
	if cfg.GetDefaultSpeedLimitKMH() != config.DefaultSpeedLimitKMH {
		t.Errorf("expected default limit, got %v", cfg.GetDefaultSpeedLimitKMH())
	}

	path := filepath.Join(t.TempDir(), "tracker.json")
	if err := os.WriteFile(path, []byte(`{"default_speed_limit_kmh": 30, "watch_timeout": "2s", "high_accuracy": false}`), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err = loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig(%s): %v", path, err)
	}
	got := trackerConfig(cfg)
	if got.DefaultLimitKMH != 30 {
		t.Errorf("expected limit 30, got %v", got.DefaultLimitKMH)
	}
	if got.Watch.Timeout != 2*time.Second {
		t.Errorf("expected watch timeout 2s, got %v", got.Watch.Timeout)
	}
	if got.Watch.HighAccuracy || got.OneShot.HighAccuracy {
		t.Error("expected high accuracy to be off")
	}

	if _, err := loadConfig(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected an error for a missing config file")
	}
}
