package position

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/speedwatch/internal/geo"
	"github.com/banshee-data/speedwatch/internal/testutil"
)

var fixTime = time.Date(2025, time.June, 23, 23, 3, 46, 467e6, time.UTC)

func TestNMEADecoder_RMC(t *testing.T) {
	var d NMEADecoder

	s, ok, err := d.Decode(testutil.RMC(fixTime, 52.52, 13.405, true))
	require.NoError(t, err)
	require.True(t, ok)

	assert.InDelta(t, 52.52, s.Lat, 1e-6)
	assert.InDelta(t, 13.405, s.Lon, 1e-6)
	assert.InDelta(t, fixTime.UnixMilli(), s.TimestampMillis, 1)
	assert.Zero(t, s.AccuracyM, "no GGA seen yet")
}

func TestNMEADecoder_SouthWest(t *testing.T) {
	var d NMEADecoder

	s, ok, err := d.Decode(testutil.RMC(fixTime, -33.8688, -70.65, true))
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, -33.8688, s.Lat, 1e-6)
	assert.InDelta(t, -70.65, s.Lon, 1e-6)
}

func TestNMEADecoder_GGAAccuracy(t *testing.T) {
	var d NMEADecoder

	_, ok, err := d.Decode(testutil.GGA(fixTime, 52.52, 13.405, 1.2))
	require.NoError(t, err)
	assert.False(t, ok, "GGA alone does not produce a sample")

	s, ok, err := d.Decode(testutil.RMC(fixTime, 52.52, 13.405, true))
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 6.0, s.AccuracyM, 1e-9)
}

func TestNMEADecoder_VoidFix(t *testing.T) {
	var d NMEADecoder

	_, ok, err := d.Decode(testutil.RMC(fixTime, 0, 0, false))
	assert.False(t, ok)
	assert.True(t, errors.Is(err, ErrPositionUnavailable))
}

func TestNMEADecoder_Garbage(t *testing.T) {
	var d NMEADecoder

	tests := []string{
		"not nmea at all",
		"$GPRMC,230346.467,A,5231.2000,N*00", // bad checksum and short
	}
	for _, line := range tests {
		_, ok, err := d.Decode(line)
		assert.False(t, ok)
		assert.Error(t, err, line)
		assert.False(t, errors.Is(err, ErrPositionUnavailable))
	}

	_, ok, err := d.Decode("   ")
	assert.False(t, ok)
	assert.NoError(t, err)
}

func TestNMEADecoder_IgnoresOtherSentences(t *testing.T) {
	var d NMEADecoder

	_, ok, err := d.Decode(testutil.NMEASentence("GPVTG,054.7,T,034.4,M,005.5,N,010.2,K,A"))
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestLineFeed_ReadLines(t *testing.T) {
	hub, _ := newTestHub()
	feed := lineFeed{hub: hub, name: "test"}
	input := testutil.Lines(
		testutil.RMC(fixTime, 1, 1, true),
		"garbage line",
		testutil.RMC(fixTime.Add(time.Second), 2, 2, true),
		testutil.RMC(fixTime.Add(2*time.Second), 3, 3, true),
	)

	stop := errors.New("stop")
	var waited []float64
	n, err := feed.readLines(context.Background(), strings.NewReader(input), func(s geo.Sample) error {
		if s.Lat == 3 {
			return stop
		}
		waited = append(waited, s.Lat)
		return nil
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 2, n)
	assert.Equal(t, []float64{1, 2}, waited)

	last, ok := hub.Last()
	require.True(t, ok)
	assert.Equal(t, 2.0, last.Lat)
}

func TestLineFeed_ReadLinesCancelled(t *testing.T) {
	hub, _ := newTestHub()
	feed := lineFeed{hub: hub, name: "test"}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n, err := feed.readLines(ctx, strings.NewReader(testutil.RMC(fixTime, 1, 1, true)+"\n"), nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, n)
	_, ok := hub.Last()
	assert.False(t, ok)
}
