// Package report summarises recorded trips: speed statistics, charts and
// GeoJSON tracks.
package report

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/speedwatch/internal/db"
	"github.com/banshee-data/speedwatch/internal/geo"
	"github.com/banshee-data/speedwatch/internal/units"
)

// Stats summarises a trip. Speeds are in the requested units; samples
// without an estimate count towards Samples and DistanceKM only.
type Stats struct {
	Units      string  `json:"units"`
	Samples    int     `json:"samples"`
	Estimates  int     `json:"estimates"`
	DistanceKM float64 `json:"distance_km"`
	DurationS  float64 `json:"duration_s"`
	MeanSpeed  float64 `json:"mean_speed"`
	MaxSpeed   float64 `json:"max_speed"`
	P50Speed   float64 `json:"p50_speed"`
	P85Speed   float64 `json:"p85_speed"`
	P98Speed   float64 `json:"p98_speed"`
	Exceeding  int     `json:"exceeding"`
	// ExceedingFraction is Exceeding over Estimates.
	ExceedingFraction float64 `json:"exceeding_fraction"`
}

// Compute summarises records, which must be in processing order.
func Compute(records []db.SampleRecord, unit string) Stats {
	s := Stats{Units: unit, Samples: len(records)}
	if len(records) == 0 {
		return s
	}

	points := make([]geo.Point, 0, len(records))
	speeds := make([]float64, 0, len(records))
	for _, r := range records {
		points = append(points, r.Sample.Point())
		est := r.Estimate()
		if !est.Valid {
			continue
		}
		speeds = append(speeds, units.ConvertSpeed(est.KMH, unit))
		if r.Classification == geo.Exceeding {
			s.Exceeding++
		}
	}

	s.DistanceKM = geo.PathLength(points) / 1000
	first, last := records[0].Sample, records[len(records)-1].Sample
	if d := geo.ElapsedMillis(first, last); d > 0 {
		s.DurationS = float64(d) / 1000
	}

	s.Estimates = len(speeds)
	if s.Estimates == 0 {
		return s
	}
	sort.Float64s(speeds)
	s.MeanSpeed = stat.Mean(speeds, nil)
	s.MaxSpeed = speeds[len(speeds)-1]
	s.P50Speed = stat.Quantile(0.50, stat.Empirical, speeds, nil)
	s.P85Speed = stat.Quantile(0.85, stat.Empirical, speeds, nil)
	s.P98Speed = stat.Quantile(0.98, stat.Empirical, speeds, nil)
	s.ExceedingFraction = float64(s.Exceeding) / float64(s.Estimates)
	return s
}
