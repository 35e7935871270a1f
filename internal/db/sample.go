package db

import (
	"database/sql"
	"fmt"

	"github.com/banshee-data/speedwatch/internal/geo"
)

// SampleRecord is a processed sample together with what the tracker derived
// from it. Lookup results arrive later and update the row in place.
type SampleRecord struct {
	TripID         string             `json:"trip_id"`
	Seq            uint64             `json:"seq"`
	Sample         geo.Sample         `json:"sample"`
	SpeedKMH       *float64           `json:"speed_kmh,omitempty"`
	Limit          geo.SpeedLimit     `json:"limit"`
	Classification geo.Classification `json:"classification"`
	LocationName   string             `json:"location_name,omitempty"`
}

// Estimate returns the stored speed estimate.
func (r SampleRecord) Estimate() geo.SpeedEstimate {
	if r.SpeedKMH == nil {
		return geo.NoEstimate
	}
	return geo.SpeedEstimate{KMH: *r.SpeedKMH, Valid: true}
}

// InsertSample records a processed sample.
func (db *DB) InsertSample(r SampleRecord) error {
	_, err := db.Exec(`
		INSERT INTO trip_samples (
			trip_id, seq, lat, lon, timestamp_ms, accuracy_m, speed_kmh,
			limit_kmh, limit_unlimited, limit_raw, limit_default,
			classification, location_name
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.TripID, r.Seq, r.Sample.Lat, r.Sample.Lon, r.Sample.TimestampMillis, r.Sample.AccuracyM, r.SpeedKMH,
		r.Limit.KMH, r.Limit.Unlimited, r.Limit.Raw, r.Limit.Default,
		string(r.Classification), r.LocationName,
	)
	if err != nil {
		return fmt.Errorf("failed to insert sample %d: %w", r.Seq, err)
	}
	return nil
}

// UpdateSampleLocation sets the place name resolved for a sample.
func (db *DB) UpdateSampleLocation(tripID string, seq uint64, name string) error {
	_, err := db.Exec(`UPDATE trip_samples SET location_name = ? WHERE trip_id = ? AND seq = ?`, name, tripID, seq)
	if err != nil {
		return fmt.Errorf("failed to update location of sample %d: %w", seq, err)
	}
	return nil
}

// UpdateSampleLimit sets the limit resolved for a sample and reclassifies
// the sample's stored speed against it.
func (db *DB) UpdateSampleLimit(tripID string, seq uint64, limit geo.SpeedLimit) error {
	var speed sql.NullFloat64
	err := db.QueryRow(`SELECT speed_kmh FROM trip_samples WHERE trip_id = ? AND seq = ?`, tripID, seq).Scan(&speed)
	if err == sql.ErrNoRows {
		return fmt.Errorf("sample %d of trip %s: %w", seq, tripID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to read sample %d: %w", seq, err)
	}

	est := geo.NoEstimate
	if speed.Valid {
		est = geo.SpeedEstimate{KMH: speed.Float64, Valid: true}
	}
	class := geo.Classify(est, limit)

	_, err = db.Exec(`
		UPDATE trip_samples
		SET limit_kmh = ?, limit_unlimited = ?, limit_raw = ?, limit_default = ?, classification = ?
		WHERE trip_id = ? AND seq = ?`,
		limit.KMH, limit.Unlimited, limit.Raw, limit.Default, string(class), tripID, seq,
	)
	if err != nil {
		return fmt.Errorf("failed to update limit of sample %d: %w", seq, err)
	}
	return nil
}

// TripSamples returns a trip's samples in processing order.
func (db *DB) TripSamples(tripID string) ([]SampleRecord, error) {
	rows, err := db.Query(`
		SELECT seq, lat, lon, timestamp_ms, accuracy_m, speed_kmh,
			limit_kmh, limit_unlimited, limit_raw, limit_default,
			classification, location_name
		FROM trip_samples WHERE trip_id = ? ORDER BY seq`, tripID)
	if err != nil {
		return nil, fmt.Errorf("failed to query samples: %w", err)
	}
	defer rows.Close()

	records := []SampleRecord{}
	for rows.Next() {
		var (
			r     = SampleRecord{TripID: tripID}
			speed sql.NullFloat64
			class string
		)
		if err := rows.Scan(
			&r.Seq, &r.Sample.Lat, &r.Sample.Lon, &r.Sample.TimestampMillis, &r.Sample.AccuracyM, &speed,
			&r.Limit.KMH, &r.Limit.Unlimited, &r.Limit.Raw, &r.Limit.Default,
			&class, &r.LocationName,
		); err != nil {
			return nil, fmt.Errorf("failed to scan sample: %w", err)
		}
		if speed.Valid {
			v := speed.Float64
			r.SpeedKMH = &v
		}
		r.Classification = geo.Classification(class)
		records = append(records, r)
	}
	return records, rows.Err()
}
