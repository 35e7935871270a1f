package lookup

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/paulmach/osm"
	"golang.org/x/sync/singleflight"

	"github.com/banshee-data/speedwatch/internal/geo"
	"github.com/banshee-data/speedwatch/internal/httputil"
	"github.com/banshee-data/speedwatch/internal/version"
)

// Element is one node or way from an Overpass JSON answer.
type Element struct {
	Type string   `json:"type"`
	ID   int64    `json:"id"`
	Lat  float64  `json:"lat"`
	Lon  float64  `json:"lon"`
	Tags osm.Tags `json:"tags"`
}

// FeatureID returns the element's typed OSM identifier, e.g. "way/1000".
func (e Element) FeatureID() osm.FeatureID {
	switch e.Type {
	case "node":
		return osm.NodeID(e.ID).FeatureID()
	case "relation":
		return osm.RelationID(e.ID).FeatureID()
	}
	return osm.WayID(e.ID).FeatureID()
}

type overpassResponse struct {
	Elements []Element `json:"elements"`
	Remark   string    `json:"remark"`
}

// Overpass is a client for the Overpass QL interpreter.
type Overpass struct {
	client    httputil.HTTPClient
	url       string
	userAgent string

	// RadiusM is the search radius around a fix for SpeedLimit.
	RadiusM float64
	// DefaultLimitKMH is returned when no road with a maxspeed tag is near.
	DefaultLimitKMH float64
	// Timeout bounds a shared request, which outlives the callers waiting
	// on it.
	Timeout time.Duration

	group singleflight.Group
}

// NewOverpass creates a client for the interpreter at interpreterURL.
func NewOverpass(client httputil.HTTPClient, interpreterURL, userAgent string) *Overpass {
	if userAgent == "" {
		userAgent = version.UserAgent()
	}
	return &Overpass{
		client:          client,
		url:             interpreterURL,
		userAgent:       userAgent,
		RadiusM:         50,
		DefaultLimitKMH: geo.DefaultSpeedLimitKMH,
		Timeout:         DefaultOverpassTimeout,
	}
}

// DefaultOverpassTimeout bounds a shared Overpass request.
const DefaultOverpassTimeout = 30 * time.Second

// Query runs an Overpass QL query and returns its elements. Concurrent
// identical queries share one request. The request is detached from the
// caller that started it and bounded by o.Timeout, so cancelling one caller
// never fails the others; each caller stops waiting when its own ctx is done.
func (o *Overpass) Query(ctx context.Context, query string) ([]Element, error) {
	ch := o.group.DoChan(query, func() (interface{}, error) {
		rctx := context.WithoutCancel(ctx)
		if o.Timeout > 0 {
			var cancel context.CancelFunc
			rctx, cancel = context.WithTimeout(rctx, o.Timeout)
			defer cancel()
		}

		var resp overpassResponse
		q := url.Values{"data": {query}}
		hdr := http.Header{"User-Agent": {o.userAgent}}
		if err := httputil.GetJSON(rctx, o.client, o.url, q, hdr, &resp); err != nil {
			return nil, classify("overpass", err)
		}
		if resp.Elements == nil && resp.Remark != "" {
			return nil, fmt.Errorf("overpass: %w: %s", ErrMalformed, resp.Remark)
		}
		return resp.Elements, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]Element), nil
	}
}

// SpeedLimitQuery is the Overpass QL used to find tagged roads around p.
func SpeedLimitQuery(p geo.Point, radiusM float64) string {
	return fmt.Sprintf(`[out:json];way(around:%s,%s,%s)["maxspeed"];out body;`,
		formatFloat(radiusM), formatFloat(p.Lat), formatFloat(p.Lon))
}

// SpeedLimit returns the posted limit of the first tagged road near p, or
// the default limit when none is found. An unparseable maxspeed tag is an
// ErrMalformed error so the caller keeps its previous limit.
func (o *Overpass) SpeedLimit(ctx context.Context, p geo.Point) (geo.SpeedLimit, error) {
	elements, err := o.Query(ctx, SpeedLimitQuery(p, o.RadiusM))
	if err != nil {
		return geo.SpeedLimit{}, err
	}
	if len(elements) == 0 {
		return geo.DefaultSpeedLimit(o.DefaultLimitKMH), nil
	}

	first := elements[0]
	raw := first.Tags.Find("maxspeed")
	limit, err := geo.ParseMaxSpeed(raw)
	if err != nil {
		return geo.SpeedLimit{}, fmt.Errorf("overpass: %w: %s maxspeed=%q: %w", ErrMalformed, first.FeatureID(), raw, err)
	}
	return limit, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
