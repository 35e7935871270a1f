// Package testutil provides shared test utilities and fixtures.
//
// It holds the NMEA sentence builders used by the position source tests and
// canned Overpass and Nominatim bodies used by the lookup and tracker tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// NewTestRequest creates a test HTTP request.
func NewTestRequest(method, path string) *http.Request {
	return httptest.NewRequest(method, path, nil)
}

// NMEAChecksum returns the XOR of every byte of body, the part of a
// sentence between '$' and '*'.
func NMEAChecksum(body string) byte {
	var sum byte
	for i := 0; i < len(body); i++ {
		sum ^= body[i]
	}
	return sum
}

// NMEASentence wraps body as a complete sentence with its checksum.
func NMEASentence(body string) string {
	return fmt.Sprintf("$%s*%02X", body, NMEAChecksum(body))
}

// nmeaCoord formats an absolute coordinate as (d)ddmm.mmmm.
func nmeaCoord(v float64, degWidth int) string {
	v = math.Abs(v)
	deg := math.Floor(v)
	minutes := (v - deg) * 60
	return fmt.Sprintf("%0*d%07.4f", degWidth, int(deg), minutes)
}

func latLon(lat, lon float64) string {
	ns, ew := "N", "E"
	if lat < 0 {
		ns = "S"
	}
	if lon < 0 {
		ew = "W"
	}
	return fmt.Sprintf("%s,%s,%s,%s", nmeaCoord(lat, 2), ns, nmeaCoord(lon, 3), ew)
}

// RMC builds a GPRMC sentence for a fix at ts. valid=false produces a "V"
// (void) status, which receivers emit while they have no fix.
func RMC(ts time.Time, lat, lon float64, valid bool) string {
	ts = ts.UTC()
	status := "A"
	if !valid {
		status = "V"
	}
	body := fmt.Sprintf("GPRMC,%s,%s,%s,0.0,0.0,%s,,,A",
		ts.Format("150405.000"), status, latLon(lat, lon), ts.Format("020106"))
	return NMEASentence(body)
}

// GGA builds a GPGGA sentence carrying hdop for the given fix.
func GGA(ts time.Time, lat, lon, hdop float64) string {
	body := fmt.Sprintf("GPGGA,%s,%s,1,08,%.1f,34.0,M,47.0,M,,",
		ts.UTC().Format("150405.000"), latLon(lat, lon), hdop)
	return NMEASentence(body)
}

// OverpassWays returns an Overpass JSON body with one way per maxspeed value.
func OverpassWays(maxspeeds ...string) string {
	elements := make([]map[string]interface{}, 0, len(maxspeeds))
	for i, ms := range maxspeeds {
		elements = append(elements, map[string]interface{}{
			"type":  "way",
			"id":    1000 + i,
			"nodes": []int{1, 2},
			"tags":  map[string]string{"highway": "residential", "maxspeed": ms},
		})
	}
	return overpassBody(elements)
}

// Node is a named point used to build Overpass node fixtures.
type Node struct {
	Name     string
	Lat, Lon float64
}

// OverpassNodes returns an Overpass JSON body with one node per entry. A
// node with an empty Name is emitted without a name tag.
func OverpassNodes(nodes ...Node) string {
	elements := make([]map[string]interface{}, 0, len(nodes))
	for i, n := range nodes {
		tags := map[string]string{"amenity": "fuel"}
		if n.Name != "" {
			tags["name"] = n.Name
		}
		elements = append(elements, map[string]interface{}{
			"type": "node",
			"id":   2000 + i,
			"lat":  n.Lat,
			"lon":  n.Lon,
			"tags": tags,
		})
	}
	return overpassBody(elements)
}

func overpassBody(elements []map[string]interface{}) string {
	b, err := json.Marshal(map[string]interface{}{
		"version":   0.6,
		"generator": "Overpass API",
		"elements":  elements,
	})
	if err != nil {
		panic(err)
	}
	return string(b)
}

// NominatimReverse returns a reverse geocoding body with the given name.
func NominatimReverse(displayName string) string {
	b, err := json.Marshal(map[string]interface{}{
		"place_id":     1,
		"lat":          "52.5200",
		"lon":          "13.4050",
		"display_name": displayName,
	})
	if err != nil {
		panic(err)
	}
	return string(b)
}

// Lines joins sentences with CRLF the way receivers emit them.
func Lines(sentences ...string) string {
	return strings.Join(sentences, "\r\n") + "\r\n"
}
