package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical tracker defaults file.
const DefaultConfigPath = "config/tracker.defaults.json"

// Defaults used when a field is omitted from the config file.
const (
	DefaultSpeedLimitKMH     = 50.0
	DefaultLimitSearchRadius = 50.0
	DefaultOneShotTimeout    = 10 * time.Second
	DefaultWatchTimeout      = 5 * time.Second
	DefaultMaxAccuracyM      = 50.0
	DefaultMapZoom           = 15
	DefaultNominatimURL      = "https://nominatim.openstreetmap.org"
	DefaultOverpassURL       = "https://overpass-api.de/api/interpreter"
	DefaultLookupTimeout     = 10 * time.Second
	DefaultNearbyRadiusM     = 5000.0
	DefaultNearbyMaxResults  = 5
)

// TrackerConfig holds the tunable parameters of the tracker, its position
// sources and the map-data lookups. Every field is optional; the Get*
// methods fall back to the defaults above.
type TrackerConfig struct {
	// Speed limit comparison
	DefaultSpeedLimitKMH *float64 `json:"default_speed_limit_kmh,omitempty"`
	LimitSearchRadiusM   *float64 `json:"limit_search_radius_m,omitempty"`

	// Position source
	OneShotTimeout *string  `json:"one_shot_timeout,omitempty"` // duration string like "10s"
	WatchTimeout   *string  `json:"watch_timeout,omitempty"`    // duration string like "5s"
	HighAccuracy   *bool    `json:"high_accuracy,omitempty"`
	MaxAccuracyM   *float64 `json:"max_accuracy_m,omitempty"`

	// Map surface
	MapZoom *int `json:"map_zoom,omitempty"`

	// Lookups
	NominatimURL  *string `json:"nominatim_url,omitempty"`
	OverpassURL   *string `json:"overpass_url,omitempty"`
	LookupTimeout *string `json:"lookup_timeout,omitempty"`
	UserAgent     *string `json:"user_agent,omitempty"`

	// Nearby services
	NearbyRadiusM    *float64 `json:"nearby_radius_m,omitempty"`
	NearbyMaxResults *int     `json:"nearby_max_results,omitempty"`
}

// EmptyTrackerConfig returns a TrackerConfig with all fields set to nil,
// so every Get* method returns its default.
func EmptyTrackerConfig() *TrackerConfig {
	return &TrackerConfig{}
}

// LoadTrackerConfig loads a TrackerConfig from a JSON file.
// The file must have a .json extension and be under 1MB. Fields omitted
// from the file keep their defaults, so partial configs are safe.
func LoadTrackerConfig(path string) (*TrackerConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTrackerConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical defaults from DefaultConfigPath,
// searching upwards from the working directory. Intended for test setup.
func MustLoadDefaultConfig() *TrackerConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath, // from internal/config/
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadTrackerConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TrackerConfig) Validate() error {
	if c.DefaultSpeedLimitKMH != nil && *c.DefaultSpeedLimitKMH <= 0 {
		return fmt.Errorf("default_speed_limit_kmh must be positive, got %f", *c.DefaultSpeedLimitKMH)
	}
	if c.LimitSearchRadiusM != nil && *c.LimitSearchRadiusM <= 0 {
		return fmt.Errorf("limit_search_radius_m must be positive, got %f", *c.LimitSearchRadiusM)
	}
	if c.MaxAccuracyM != nil && *c.MaxAccuracyM < 0 {
		return fmt.Errorf("max_accuracy_m must be non-negative, got %f", *c.MaxAccuracyM)
	}
	if c.MapZoom != nil && (*c.MapZoom < 0 || *c.MapZoom > 19) {
		return fmt.Errorf("map_zoom must be between 0 and 19, got %d", *c.MapZoom)
	}
	if c.NearbyRadiusM != nil && *c.NearbyRadiusM <= 0 {
		return fmt.Errorf("nearby_radius_m must be positive, got %f", *c.NearbyRadiusM)
	}
	if c.NearbyMaxResults != nil && *c.NearbyMaxResults <= 0 {
		return fmt.Errorf("nearby_max_results must be positive, got %d", *c.NearbyMaxResults)
	}

	for name, v := range map[string]*string{
		"one_shot_timeout": c.OneShotTimeout,
		"watch_timeout":    c.WatchTimeout,
		"lookup_timeout":   c.LookupTimeout,
	} {
		if v == nil || *v == "" {
			continue
		}
		d, err := time.ParseDuration(*v)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", name, *v, err)
		}
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, *v)
		}
	}

	for name, v := range map[string]*string{
		"nominatim_url": c.NominatimURL,
		"overpass_url":  c.OverpassURL,
	} {
		if v == nil {
			continue
		}
		u, err := url.Parse(*v)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid %s '%s'", name, *v)
		}
	}

	return nil
}

func durationOr(v *string, def time.Duration) time.Duration {
	if v == nil || *v == "" {
		return def
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return def
	}
	return d
}

// GetDefaultSpeedLimitKMH returns the limit assumed before the first lookup.
func (c *TrackerConfig) GetDefaultSpeedLimitKMH() float64 {
	if c.DefaultSpeedLimitKMH == nil {
		return DefaultSpeedLimitKMH
	}
	return *c.DefaultSpeedLimitKMH
}

// GetLimitSearchRadiusM returns the road search radius around a fix.
func (c *TrackerConfig) GetLimitSearchRadiusM() float64 {
	if c.LimitSearchRadiusM == nil {
		return DefaultLimitSearchRadius
	}
	return *c.LimitSearchRadiusM
}

// GetOneShotTimeout returns the timeout of the initial fix request.
func (c *TrackerConfig) GetOneShotTimeout() time.Duration {
	return durationOr(c.OneShotTimeout, DefaultOneShotTimeout)
}

// GetWatchTimeout returns how long a watch waits for each fix.
func (c *TrackerConfig) GetWatchTimeout() time.Duration {
	return durationOr(c.WatchTimeout, DefaultWatchTimeout)
}

// GetHighAccuracy returns the high_accuracy value or the default.
func (c *TrackerConfig) GetHighAccuracy() bool {
	if c.HighAccuracy == nil {
		return true
	}
	return *c.HighAccuracy
}

// GetMaxAccuracyM returns the worst accuracy accepted in high-accuracy mode.
func (c *TrackerConfig) GetMaxAccuracyM() float64 {
	if c.MaxAccuracyM == nil {
		return DefaultMaxAccuracyM
	}
	return *c.MaxAccuracyM
}

// GetMapZoom returns the map_zoom value or the default.
func (c *TrackerConfig) GetMapZoom() int {
	if c.MapZoom == nil {
		return DefaultMapZoom
	}
	return *c.MapZoom
}

// GetNominatimURL returns the reverse geocoding base URL.
func (c *TrackerConfig) GetNominatimURL() string {
	if c.NominatimURL == nil {
		return DefaultNominatimURL
	}
	return *c.NominatimURL
}

// GetOverpassURL returns the Overpass interpreter URL.
func (c *TrackerConfig) GetOverpassURL() string {
	if c.OverpassURL == nil {
		return DefaultOverpassURL
	}
	return *c.OverpassURL
}

// GetLookupTimeout returns the per-request timeout of the lookup clients.
func (c *TrackerConfig) GetLookupTimeout() time.Duration {
	return durationOr(c.LookupTimeout, DefaultLookupTimeout)
}

// GetUserAgent returns the configured User-Agent, or "" to use the build's.
func (c *TrackerConfig) GetUserAgent() string {
	if c.UserAgent == nil {
		return ""
	}
	return *c.UserAgent
}

// GetNearbyRadiusM returns the nearby_radius_m value or the default.
func (c *TrackerConfig) GetNearbyRadiusM() float64 {
	if c.NearbyRadiusM == nil {
		return DefaultNearbyRadiusM
	}
	return *c.NearbyRadiusM
}

// GetNearbyMaxResults returns the nearby_max_results value or the default.
func (c *TrackerConfig) GetNearbyMaxResults() int {
	if c.NearbyMaxResults == nil {
		return DefaultNearbyMaxResults
	}
	return *c.NearbyMaxResults
}
