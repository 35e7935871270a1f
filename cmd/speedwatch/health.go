package main

import (
	"context"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/banshee-data/speedwatch/internal/tracker"
)

// healthService is the gRPC health service name of the tracker.
const healthService = "speedwatch.Tracker"

func servingStatus(s tracker.State) healthpb.HealthCheckResponse_ServingStatus {
	if s == tracker.StateTracking {
		return healthpb.HealthCheckResponse_SERVING
	}
	return healthpb.HealthCheckResponse_NOT_SERVING
}

// watchHealth mirrors the tracker state into hs until ctx is done. The
// service is NOT_SERVING until the first fix.
func watchHealth(ctx context.Context, tr *tracker.Tracker, hs *health.Server) {
	id, events := tr.Subscribe()
	defer tr.Unsubscribe(id)

	hs.SetServingStatus(healthService, servingStatus(tr.State()))
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			hs.SetServingStatus(healthService, servingStatus(e.Snapshot.State))
		}
	}
}
