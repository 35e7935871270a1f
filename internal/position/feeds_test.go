package position

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/speedwatch/internal/geo"
	"github.com/banshee-data/speedwatch/internal/serialmux"
	"github.com/banshee-data/speedwatch/internal/testutil"
	"github.com/banshee-data/speedwatch/internal/timeutil"
)

func TestSerialSource(t *testing.T) {
	port := serialmux.NewTestableSerialPort()
	port.BlockReads = true
	mux := serialmux.NewSerialMux(port)
	hub, _ := newTestHub()
	src := NewSerialSource(hub, mux)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w := src.Watch(ctx, Options{})

	go mux.Monitor(ctx)
	go src.Run(ctx)
	t.Cleanup(func() { port.Close() })

	// Give Run time to subscribe before the receiver speaks.
	time.Sleep(20 * time.Millisecond)
	port.AddReadData([]byte(testutil.Lines(
		testutil.NMEASentence("GPGSV,3,1,11,03,03,111,00"),
		testutil.GGA(fixTime, 52.52, 13.405, 0.8),
		testutil.RMC(fixTime, 52.52, 13.405, true),
		testutil.RMC(fixTime, 0, 0, false),
	)))

	u := recv(t, w)
	require.NoError(t, u.Err)
	assert.InDelta(t, 52.52, u.Sample.Lat, 1e-6)
	assert.InDelta(t, 4.0, u.Sample.AccuracyM, 1e-9)

	assert.ErrorIs(t, recv(t, w).Err, ErrPositionUnavailable)
}

func TestUDPSource(t *testing.T) {
	hub, _ := newTestHub()
	src := NewUDPSource(hub, "127.0.0.1:0")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w := src.Watch(ctx, Options{})

	errc := make(chan error, 1)
	go func() { errc <- src.Run(ctx) }()

	var addr net.Addr
	select {
	case addr = <-src.Ready():
	case err := <-errc:
		t.Fatalf("Run failed: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("UDP source did not start")
	}

	conn, err := net.Dial("udp", addr.String())
	require.NoError(t, err)
	defer conn.Close()

	// Two sentences in one datagram.
	_, err = conn.Write([]byte(testutil.Lines(
		testutil.RMC(fixTime, 48.8566, 2.3522, true),
		testutil.RMC(fixTime.Add(time.Second), 48.8567, 2.3522, true),
	)))
	require.NoError(t, err)

	first := recv(t, w)
	second := recv(t, w)
	assert.InDelta(t, 48.8566, first.Sample.Lat, 1e-6)
	assert.Equal(t, int64(1000), second.Sample.TimestampMillis-first.Sample.TimestampMillis)

	cancel()
	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
}

func writeReplayFile(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "drive.nmea")
	require.NoError(t, os.WriteFile(path, []byte(testutil.Lines(lines...)), 0o644))
	return path
}

func TestReplaySource_Paced(t *testing.T) {
	path := writeReplayFile(t,
		testutil.RMC(fixTime, 52.5200, 13.4050, true),
		"garbage line",
		testutil.RMC(fixTime.Add(2*time.Second), 52.5201, 13.4050, true),
	)
	clock := timeutil.NewMockClock(fixTime)
	hub := NewHub(clock, 0)
	src := NewReplaySource(hub, path, clock)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w := src.Watch(ctx, Options{})

	errc := make(chan error, 1)
	go func() { errc <- src.Run(ctx) }()

	assert.InDelta(t, 52.52, recv(t, w).Sample.Lat, 1e-6)

	// The second fix waits for the recorded 2s gap.
	clock.BlockUntil(1)
	select {
	case u := <-w:
		t.Fatalf("second fix published early: %+v", u)
	default:
	}
	clock.Advance(2 * time.Second)
	assert.InDelta(t, 52.5201, recv(t, w).Sample.Lat, 1e-6)

	require.NoError(t, <-errc)
}

func TestReplaySource_Unpaced(t *testing.T) {
	path := writeReplayFile(t,
		testutil.RMC(fixTime, 1, 1, true),
		testutil.RMC(fixTime, 0, 0, false),
		testutil.RMC(fixTime.Add(time.Hour), 2, 2, true),
	)
	hub, _ := newTestHub()
	src := NewReplaySource(hub, path, nil)
	src.Rate = 0

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w := src.Watch(ctx, Options{})

	require.NoError(t, src.Run(ctx))
	assert.Equal(t, 1.0, recv(t, w).Sample.Lat)
	assert.ErrorIs(t, recv(t, w).Err, ErrPositionUnavailable)
	assert.Equal(t, 2.0, recv(t, w).Sample.Lat)
}

func TestReplaySource_MissingFile(t *testing.T) {
	hub, _ := newTestHub()
	src := NewReplaySource(hub, filepath.Join(t.TempDir(), "missing.nmea"), nil)
	assert.Error(t, src.Run(context.Background()))
}

func TestPushSource(t *testing.T) {
	hub, clock := newTestHub()
	src := NewPushSource(hub, clock)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w := src.Watch(ctx, Options{})

	got, err := src.Push(geo.Sample{Lat: 52.52, Lon: 13.405})
	require.NoError(t, err)
	assert.Equal(t, clock.Now().UnixMilli(), got.TimestampMillis, "zero timestamp is stamped with now")
	assert.Equal(t, got, recv(t, w).Sample)

	_, err = src.Push(geo.Sample{Lat: 91, Lon: 0})
	assert.Error(t, err)
	_, err = src.Push(geo.Sample{Lat: 0, Lon: 0, AccuracyM: -1})
	assert.Error(t, err)

	require.NoError(t, src.PushError("permission-denied"))
	assert.ErrorIs(t, recv(t, w).Err, ErrPermissionDenied)
	assert.Error(t, src.PushError("bogus"))
}

func TestNoneSource(t *testing.T) {
	var src Source = NoneSource{}
	_, err := src.CurrentPosition(context.Background(), Options{})
	assert.ErrorIs(t, err, ErrUnsupported)

	ctx, cancel := context.WithCancel(context.Background())
	w := src.Watch(ctx, Options{})
	assert.ErrorIs(t, recv(t, w).Err, ErrUnsupported)
	cancel()
	select {
	case _, ok := <-w:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not close")
	}
}

func TestPCAPSource_Stub(t *testing.T) {
	if PCAPSupported {
		t.Skip("pcap support compiled in")
	}
	hub, _ := newTestHub()
	err := NewPCAPSource(hub, "drive.pcap", 10110).Run(context.Background())
	assert.ErrorContains(t, err, "pcap build tag")
}

func TestErrorCodes(t *testing.T) {
	for _, err := range []error{ErrPermissionDenied, ErrTimeout, ErrPositionUnavailable} {
		parsed, ok := ParseErrorCode(ErrorCode(err))
		assert.True(t, ok)
		assert.Equal(t, err, parsed)
	}
	assert.Equal(t, "unsupported", ErrorCode(ErrUnsupported))
	assert.Equal(t, "", ErrorCode(nil))

	// Numeric GeolocationPositionError codes are accepted too.
	parsed, ok := ParseErrorCode("3")
	assert.True(t, ok)
	assert.Equal(t, ErrTimeout, parsed)
}
