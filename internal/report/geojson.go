package report

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/banshee-data/speedwatch/internal/db"
)

// TripGeoJSON returns the trip as a feature collection: one LineString for
// the track followed by one Point per sample carrying its derived values.
func TripGeoJSON(trip *db.Trip, records []db.SampleRecord) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	if len(records) == 0 {
		return fc
	}

	track := make(orb.LineString, 0, len(records))
	for _, r := range records {
		track = append(track, orb.Point{r.Sample.Lon, r.Sample.Lat})
	}
	line := geojson.NewFeature(track)
	line.Properties["trip_id"] = trip.ID
	line.Properties["source"] = trip.Source
	fc.Append(line)

	for i, r := range records {
		f := geojson.NewFeature(track[i])
		f.Properties["seq"] = r.Seq
		f.Properties["timestamp"] = r.Sample.TimestampMillis
		f.Properties["limit_kmh"] = r.Limit.KMH
		f.Properties["classification"] = string(r.Classification)
		if r.SpeedKMH != nil {
			f.Properties["speed_kmh"] = *r.SpeedKMH
		}
		if r.Limit.Unlimited {
			f.Properties["limit_unlimited"] = true
		}
		if r.LocationName != "" {
			f.Properties["location_name"] = r.LocationName
		}
		fc.Append(f)
	}
	return fc
}
