package lookup

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/banshee-data/speedwatch/internal/geo"
	"github.com/banshee-data/speedwatch/internal/httputil"
	"github.com/banshee-data/speedwatch/internal/version"
)

// Nominatim is a reverse geocoding client.
type Nominatim struct {
	client    httputil.HTTPClient
	baseURL   string
	userAgent string
}

// NewNominatim creates a client for the Nominatim instance at baseURL.
// An empty userAgent uses the build's default; the public instance rejects
// requests without one.
func NewNominatim(client httputil.HTTPClient, baseURL, userAgent string) *Nominatim {
	if userAgent == "" {
		userAgent = version.UserAgent()
	}
	return &Nominatim{
		client:    client,
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
	}
}

type reverseResponse struct {
	DisplayName string `json:"display_name"`
	Error       string `json:"error"`
}

// ReverseGeocode returns the human-readable place name for p.
func (n *Nominatim) ReverseGeocode(ctx context.Context, p geo.Point) (string, error) {
	q := url.Values{
		"lat":    {strconv.FormatFloat(p.Lat, 'f', -1, 64)},
		"lon":    {strconv.FormatFloat(p.Lon, 'f', -1, 64)},
		"format": {"json"},
	}
	hdr := http.Header{"User-Agent": {n.userAgent}}

	var resp reverseResponse
	if err := httputil.GetJSON(ctx, n.client, n.baseURL+"/reverse", q, hdr, &resp); err != nil {
		return "", classify("nominatim", err)
	}
	if resp.DisplayName == "" {
		if resp.Error != "" {
			return "", fmt.Errorf("nominatim: %w: %s", ErrMalformed, resp.Error)
		}
		return "", fmt.Errorf("nominatim: %w: missing display_name", ErrMalformed)
	}
	return resp.DisplayName, nil
}
