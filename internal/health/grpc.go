package health

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the name the relay registers with the gRPC health service.
const ServiceName = "livetranslate.Relay"

// Sync publishes the current readiness to the gRPC health server.
func (h *Handler) Sync(ctx context.Context, srv *health.Server) Status {
	status := h.Check(ctx).Status

	serving := healthpb.HealthCheckResponse_SERVING
	if status == StatusUnhealthy {
		serving = healthpb.HealthCheckResponse_NOT_SERVING
	}
	srv.SetServingStatus("", serving)
	srv.SetServingStatus(ServiceName, serving)
	return status
}

// Report re-syncs on every tick until ctx ends, then marks everything not serving.
func (h *Handler) Report(ctx context.Context, srv *health.Server, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := h.Sync(ctx, srv)
	for {
		select {
		case <-ctx.Done():
			srv.Shutdown()
			return
		case <-ticker.C:
			checkCtx, cancel := context.WithTimeout(ctx, interval)
			status := h.Sync(checkCtx, srv)
			cancel()
			if status != last {
				logger.Info("health status changed", "from", last, "to", status)
				last = status
			}
		}
	}
}
