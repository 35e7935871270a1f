package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/banshee-data/speedwatch/internal/geo"
	"github.com/banshee-data/speedwatch/internal/position"
	"github.com/banshee-data/speedwatch/internal/tracker"
)

func checkHealth(t *testing.T, hs *health.Server) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	resp, err := hs.Check(context.Background(), &healthpb.HealthCheckRequest{Service: healthService})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN
	}
	return resp.GetStatus()
}

func TestWatchHealth(t *testing.T) {
	hub := position.NewHub(nil, 0)
	push := position.NewPushSource(hub, nil)
	tr := tracker.New(push, nil, nil, tracker.DefaultConfig())
	hs := health.NewServer()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go watchHealth(ctx, tr, hs)

	require.Eventually(t, func() bool {
		return checkHealth(t, hs) == healthpb.HealthCheckResponse_NOT_SERVING
	}, 2*time.Second, time.Millisecond)

	done := make(chan struct{})
	go func() {
		defer close(done)
		tr.Run(ctx)
	}()
	require.Eventually(t, func() bool { return hub.Subscribers() == 2 }, 2*time.Second, time.Millisecond)
	require.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, checkHealth(t, hs))

	_, err := push.Push(geo.Sample{Lat: 52.52, Lon: 13.405, TimestampMillis: 1})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return checkHealth(t, hs) == healthpb.HealthCheckResponse_SERVING
	}, 2*time.Second, time.Millisecond)

	cancel()
	<-done
}

func TestServingStatus(t *testing.T) {
	require.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, servingStatus(tracker.StateUninitialized))
	require.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, servingStatus(tracker.StateAwaitingFirstFix))
	require.Equal(t, healthpb.HealthCheckResponse_SERVING, servingStatus(tracker.StateTracking))
}
