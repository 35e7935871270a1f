package geo

import "math"

const millisPerHour = 1000 * 60 * 60

// SpeedEstimate is a derived speed in km/h. Valid is false when no estimate
// can be made: for the first sample, and when the elapsed time between two
// samples is not positive.
type SpeedEstimate struct {
	KMH   float64 `json:"kmh"`
	Valid bool    `json:"valid"`
}

// NoEstimate is the zero SpeedEstimate.
var NoEstimate = SpeedEstimate{}

// ElapsedMillis returns the time between two samples in milliseconds.
func ElapsedMillis(prev, cur Sample) int64 {
	return cur.TimestampMillis - prev.TimestampMillis
}

// EstimateSpeed derives the speed between prev and cur: distance in km
// divided by elapsedMillis converted to hours. A non-positive elapsed time
// yields NoEstimate rather than an infinite or NaN speed.
func EstimateSpeed(prev, cur Sample, elapsedMillis int64) SpeedEstimate {
	if elapsedMillis <= 0 {
		return NoEstimate
	}

	km := Distance(prev.Point(), cur.Point()) / 1000
	hours := float64(elapsedMillis) / millisPerHour
	kmh := km / hours

	if math.IsNaN(kmh) || math.IsInf(kmh, 0) {
		return NoEstimate
	}
	return SpeedEstimate{KMH: kmh, Valid: true}
}

// Ptr returns the speed for JSON output, or nil when there is no estimate.
func (e SpeedEstimate) Ptr() *float64 {
	if !e.Valid {
		return nil
	}
	v := e.KMH
	return &v
}
