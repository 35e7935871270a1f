package db

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/speedwatch/internal/geo"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "speedwatch.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestPragmasApplied(t *testing.T) {
	db := newTestDB(t)

	var journalMode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&journalMode))
	assert.Equal(t, "wal", journalMode)

	var busyTimeout int
	require.NoError(t, db.QueryRow("PRAGMA busy_timeout").Scan(&busyTimeout))
	assert.Equal(t, 5000, busyTimeout)

	var foreignKeys int
	require.NoError(t, db.QueryRow("PRAGMA foreign_keys").Scan(&foreignKeys))
	assert.Equal(t, 1, foreignKeys)
}

func TestMigrations(t *testing.T) {
	db := newTestDB(t)
	migrations, err := getMigrationsFS()
	require.NoError(t, err)

	latest, err := GetLatestMigrationVersion(migrations)
	require.NoError(t, err)
	assert.Equal(t, uint(2), latest)

	version, dirty, err := db.MigrateVersion(migrations)
	require.NoError(t, err)
	assert.Equal(t, latest, version)
	assert.False(t, dirty)

	require.NoError(t, db.MigrateDown(migrations))
	version, _, err = db.MigrateVersion(migrations)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)

	var tables int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='trip_samples'`).Scan(&tables))
	assert.Zero(t, tables)

	require.NoError(t, db.MigrateUp(migrations))
	version, _, err = db.MigrateVersion(migrations)
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
}

func TestRunMigrateCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cli.db")

	var out bytes.Buffer
	require.NoError(t, RunMigrateCommand([]string{"status"}, path, &out))
	assert.Contains(t, out.String(), "Current version: 0")
	assert.Contains(t, out.String(), "2 version(s) behind")

	out.Reset()
	require.NoError(t, RunMigrateCommand([]string{"up"}, path, &out))
	assert.Contains(t, out.String(), "Current version: 2 (dirty: false)")

	out.Reset()
	require.NoError(t, RunMigrateCommand([]string{"version", "1"}, path, &out))
	assert.Contains(t, out.String(), "Current version: 1")

	out.Reset()
	require.NoError(t, RunMigrateCommand([]string{"help"}, path, &out))
	assert.Contains(t, out.String(), "Usage: speedwatch migrate")

	assert.Error(t, RunMigrateCommand(nil, path, &out))
	assert.Error(t, RunMigrateCommand([]string{"sideways"}, path, &out))
	assert.Error(t, RunMigrateCommand([]string{"version", "x"}, path, &out))
}

func TestTrips(t *testing.T) {
	db := newTestDB(t)
	start := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

	first, err := db.CreateTrip("serial", start)
	require.NoError(t, err)
	second, err := db.CreateTrip("push", start.Add(time.Hour))
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Len(t, first.ID, 36)

	got, err := db.GetTrip(first.ID)
	require.NoError(t, err)
	assert.Equal(t, "serial", got.Source)
	assert.True(t, got.StartedAt.Equal(start))
	assert.Nil(t, got.EndedAt)

	require.NoError(t, db.EndTrip(first.ID, start.Add(30*time.Minute)))
	got, err = db.GetTrip(first.ID)
	require.NoError(t, err)
	require.NotNil(t, got.EndedAt)
	assert.True(t, got.EndedAt.Equal(start.Add(30*time.Minute)))

	trips, err := db.ListTrips(0)
	require.NoError(t, err)
	require.Len(t, trips, 2)
	assert.Equal(t, second.ID, trips[0].ID)

	_, err = db.GetTrip("missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, db.EndTrip("missing", start), ErrNotFound)
}

func TestTripSamples(t *testing.T) {
	db := newTestDB(t)
	trip, err := db.CreateTrip("replay", time.Now())
	require.NoError(t, err)

	speed := 40.03
	records := []SampleRecord{
		{
			TripID:         trip.ID,
			Seq:            1,
			Sample:         geo.Sample{Lat: 52.52, Lon: 13.405, TimestampMillis: 1000, AccuracyM: 5},
			Limit:          geo.DefaultSpeedLimit(0),
			Classification: geo.Unclassified,
		},
		{
			TripID:         trip.ID,
			Seq:            2,
			Sample:         geo.Sample{Lat: 52.521, Lon: 13.405, TimestampMillis: 11000},
			SpeedKMH:       &speed,
			Limit:          geo.DefaultSpeedLimit(0),
			Classification: geo.WithinLimit,
		},
	}
	for _, r := range records {
		require.NoError(t, db.InsertSample(r))
	}
	assert.Error(t, db.InsertSample(records[0]), "duplicate seq")

	require.NoError(t, db.UpdateSampleLocation(trip.ID, 2, "Mitte, Berlin"))
	require.NoError(t, db.UpdateSampleLimit(trip.ID, 2, geo.SpeedLimit{KMH: 30, Raw: "30"}))
	assert.ErrorIs(t, db.UpdateSampleLimit(trip.ID, 9, geo.SpeedLimit{KMH: 30}), ErrNotFound)

	got, err := db.TripSamples(trip.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, records[0], got[0])
	assert.Equal(t, geo.NoEstimate, got[0].Estimate())

	assert.Equal(t, "Mitte, Berlin", got[1].LocationName)
	assert.Equal(t, geo.SpeedLimit{KMH: 30, Raw: "30"}, got[1].Limit)
	assert.Equal(t, geo.Exceeding, got[1].Classification)
	assert.Equal(t, geo.SpeedEstimate{KMH: 40.03, Valid: true}, got[1].Estimate())

	tr, err := db.GetTrip(trip.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, tr.Samples)

	empty, err := db.TripSamples("missing")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestAttachAdminRoutes_Backup(t *testing.T) {
	db := newTestDB(t)
	mux := http.NewServeMux()
	db.AttachAdminRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/debug/backup", nil)
	req.RemoteAddr = "127.0.0.1:1234"
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/gzip", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Body.Bytes())
}
