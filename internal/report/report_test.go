package report

import (
	"bytes"
	"encoding/json"
	"image/png"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/speedwatch/internal/db"
	"github.com/banshee-data/speedwatch/internal/geo"
	"github.com/banshee-data/speedwatch/internal/units"
)

func speed(v float64) *float64 { return &v }

// tripRecords builds a northbound track, 0.001 degrees (~111 m) every ten
// seconds, with the given speeds; a nil speed is a sample without estimate.
func tripRecords(limitKMH float64, speeds ...*float64) []db.SampleRecord {
	limit := geo.SpeedLimit{KMH: limitKMH, Raw: "test"}
	records := make([]db.SampleRecord, 0, len(speeds))
	for i, s := range speeds {
		est := geo.NoEstimate
		if s != nil {
			est = geo.SpeedEstimate{KMH: *s, Valid: true}
		}
		records = append(records, db.SampleRecord{
			TripID:         "trip",
			Seq:            uint64(i + 1),
			Sample:         geo.Sample{Lat: 52.52 + float64(i)*0.001, Lon: 13.405, TimestampMillis: int64(i) * 10_000},
			SpeedKMH:       s,
			Limit:          limit,
			Classification: geo.Classify(est, limit),
		})
	}
	return records
}

func TestCompute(t *testing.T) {
	records := tripRecords(50, nil, speed(40), speed(45), speed(55), speed(60), speed(30))

	got := Compute(records, units.KPH)

	want := Stats{
		Units:             units.KPH,
		Samples:           6,
		Estimates:         5,
		DistanceKM:        0.556,
		DurationS:         50,
		MeanSpeed:         46,
		MaxSpeed:          60,
		P50Speed:          45,
		P85Speed:          60,
		P98Speed:          60,
		Exceeding:         2,
		ExceedingFraction: 0.4,
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 0.001)); diff != "" {
		t.Errorf("Compute() mismatch (-want +got):\n%s", diff)
	}
}

func TestCompute_Units(t *testing.T) {
	records := tripRecords(50, nil, speed(36))
	got := Compute(records, units.MPS)
	assert.InDelta(t, 10, got.MaxSpeed, 1e-9)
	assert.Equal(t, units.MPS, got.Units)
}

func TestCompute_Empty(t *testing.T) {
	assert.Equal(t, Stats{Units: units.MPH}, Compute(nil, units.MPH))

	onlyFirst := Compute(tripRecords(50, nil), units.KPH)
	assert.Equal(t, 1, onlyFirst.Samples)
	assert.Zero(t, onlyFirst.Estimates)
	assert.Zero(t, onlyFirst.ExceedingFraction)
}

func TestRenderChart(t *testing.T) {
	trip := &db.Trip{ID: "trip-1", Source: "replay", StartedAt: time.Unix(0, 0)}
	var buf bytes.Buffer

	require.NoError(t, RenderChart(&buf, trip, tripRecords(50, nil, speed(40)), units.KPH, nil))

	html := buf.String()
	assert.Contains(t, html, "Trip trip-1")
	assert.Contains(t, html, "echarts")
	assert.Contains(t, html, "km/h")
}

func TestWritePlotPNG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePlotPNG(&buf, tripRecords(50, nil, speed(40), speed(55)), units.KPH))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Greater(t, img.Bounds().Dx(), 0)

	buf.Reset()
	require.NoError(t, WritePlotPNG(&buf, nil, units.KPH))
	assert.NotZero(t, buf.Len())
}

func TestTripGeoJSON(t *testing.T) {
	trip := &db.Trip{ID: "trip-1", Source: "serial"}
	records := tripRecords(50, nil, speed(40))
	records[1].LocationName = "Mitte"

	fc := TripGeoJSON(trip, records)
	require.Len(t, fc.Features, 3)
	assert.Equal(t, "LineString", fc.Features[0].Geometry.GeoJSONType())
	assert.Equal(t, "trip-1", fc.Features[0].Properties["trip_id"])

	raw, err := json.Marshal(fc)
	require.NoError(t, err)

	var decoded struct {
		Type     string `json:"type"`
		Features []struct {
			Geometry struct {
				Type        string          `json:"type"`
				Coordinates json.RawMessage `json:"coordinates"`
			} `json:"geometry"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "FeatureCollection", decoded.Type)
	assert.JSONEq(t, `[13.405, 52.52]`, string(decoded.Features[1].Geometry.Coordinates))
	assert.NotContains(t, decoded.Features[1].Properties, "speed_kmh")
	assert.Equal(t, 40.0, decoded.Features[2].Properties["speed_kmh"])
	assert.Equal(t, "Mitte", decoded.Features[2].Properties["location_name"])

	assert.Empty(t, TripGeoJSON(trip, nil).Features)
}
