package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Trip is one tracking run. The tracker starts a new trip every time the
// process starts.
type Trip struct {
	ID        string     `json:"id"`
	Source    string     `json:"source"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	Samples   int        `json:"samples"`
}

// CreateTrip starts a trip fed by source.
func (db *DB) CreateTrip(source string, startedAt time.Time) (*Trip, error) {
	trip := &Trip{
		ID:        uuid.NewString(),
		Source:    source,
		StartedAt: startedAt.UTC().Truncate(time.Millisecond),
	}
	_, err := db.Exec(
		`INSERT INTO trips (trip_id, source, started_at_ms) VALUES (?, ?, ?)`,
		trip.ID, trip.Source, trip.StartedAt.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create trip: %w", err)
	}
	return trip, nil
}

// EndTrip records when a trip finished.
func (db *DB) EndTrip(id string, endedAt time.Time) error {
	res, err := db.Exec(`UPDATE trips SET ended_at_ms = ? WHERE trip_id = ?`, endedAt.UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("failed to end trip: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("trip %s: %w", id, ErrNotFound)
	}
	return nil
}

const tripColumns = `
	t.trip_id, t.source, t.started_at_ms, t.ended_at_ms,
	(SELECT COUNT(*) FROM trip_samples s WHERE s.trip_id = t.trip_id)`

// GetTrip returns one trip, or ErrNotFound.
func (db *DB) GetTrip(id string) (*Trip, error) {
	row := db.QueryRow(`SELECT `+tripColumns+` FROM trips t WHERE t.trip_id = ?`, id)
	trip, err := scanTrip(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("trip %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trip: %w", err)
	}
	return trip, nil
}

// ListTrips returns the most recent trips first.
func (db *DB) ListTrips(limit int) ([]Trip, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.Query(`SELECT `+tripColumns+` FROM trips t ORDER BY t.started_at_ms DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list trips: %w", err)
	}
	defer rows.Close()

	trips := []Trip{}
	for rows.Next() {
		trip, err := scanTrip(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trip: %w", err)
		}
		trips = append(trips, *trip)
	}
	return trips, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTrip(s scanner) (*Trip, error) {
	var (
		trip    Trip
		started int64
		ended   sql.NullInt64
	)
	if err := s.Scan(&trip.ID, &trip.Source, &started, &ended, &trip.Samples); err != nil {
		return nil, err
	}
	trip.StartedAt = time.UnixMilli(started).UTC()
	if ended.Valid {
		t := time.UnixMilli(ended.Int64).UTC()
		trip.EndedAt = &t
	}
	return &trip, nil
}
