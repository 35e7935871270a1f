// Package nearby finds named amenities around a position: hospitals, fuel
// stations, car workshops and police stations.
package nearby

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"

	"github.com/banshee-data/speedwatch/internal/geo"
	"github.com/banshee-data/speedwatch/internal/lookup"
)

// Tag is an OSM key=value filter.
type Tag struct {
	Key, Value string
}

func (t Tag) String() string { return t.Key + "=" + t.Value }

// ServiceTags maps the service names accepted by the API to OSM tags.
var ServiceTags = map[string]Tag{
	"hospital": {"amenity", "hospital"},
	"fuel":     {"amenity", "fuel"},
	"workshop": {"shop", "car_repair"},
	"police":   {"amenity", "police"},
}

// Services returns the known service names in sorted order.
func Services() []string {
	names := make([]string, 0, len(ServiceTags))
	for name := range ServiceTags {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Place is one named amenity.
type Place struct {
	Name      string  `json:"name"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	DistanceM float64 `json:"distance_m"`
	OSMID     string  `json:"osm_id"`
}

// Querier runs Overpass QL queries.
type Querier interface {
	Query(ctx context.Context, query string) ([]lookup.Element, error)
}

// Finder looks up places through Overpass.
type Finder struct {
	overpass   Querier
	RadiusM    float64
	MaxResults int
}

// NewFinder creates a finder with a 5 km radius returning up to 5 places.
func NewFinder(overpass Querier) *Finder {
	return &Finder{overpass: overpass, RadiusM: 5000, MaxResults: 5}
}

// Query builds the Overpass QL for nodes carrying tag within radiusM of p.
func Query(tag Tag, p geo.Point, radiusM float64) string {
	return fmt.Sprintf("[out:json];node(around:%s,%s,%s)[%s];out body;",
		strconv.FormatFloat(radiusM, 'f', -1, 64),
		strconv.FormatFloat(p.Lat, 'f', -1, 64),
		strconv.FormatFloat(p.Lon, 'f', -1, 64),
		tag)
}

// Find returns up to MaxResults named places of the given service around p,
// in the order Overpass returned them. An unknown service yields no places
// and no error.
func (f *Finder) Find(ctx context.Context, service string, p geo.Point) ([]Place, error) {
	tag, ok := ServiceTags[service]
	if !ok {
		return []Place{}, nil
	}

	elements, err := f.overpass.Query(ctx, Query(tag, p, f.RadiusM))
	if err != nil {
		return nil, err
	}

	places := make([]Place, 0, f.MaxResults)
	for _, e := range elements {
		name := e.Tags.Find("name")
		if name == "" {
			continue
		}
		places = append(places, Place{
			Name:      name,
			Lat:       e.Lat,
			Lon:       e.Lon,
			DistanceM: geo.Distance(p, geo.Point{Lat: e.Lat, Lon: e.Lon}),
			OSMID:     e.FeatureID().String(),
		})
		if len(places) == f.MaxResults {
			break
		}
	}
	return places, nil
}

// RedirectURL builds the relative URL of the nearby page for service at p.
func RedirectURL(service string, p geo.Point) string {
	return "nearby?service=" + url.QueryEscape(service) +
		"&lat=" + strconv.FormatFloat(p.Lat, 'f', -1, 64) +
		"&lng=" + strconv.FormatFloat(p.Lon, 'f', -1, 64)
}
