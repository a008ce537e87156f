package olcclient

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/device-infra-sub009/internal/olcpb"
)

// killServerShutdownTimeout bounds the best-effort KillServer call the
// shutdown hook sends: it must not block process exit.
const killServerShutdownTimeout = 2 * time.Second

// ShutdownHook returns a function suitable for registering against signal
// delivery: it sends a best-effort KillServer and never blocks longer
// than killServerShutdownTimeout, regardless of outcome.
func ShutdownHook(channel Channel, clientID string, logger *slog.Logger) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), killServerShutdownTimeout)
		defer cancel()

		controlClient, err := channel.ControlClient()
		if err != nil {
			logger.Warn("shutdown: could not obtain control stub", "error", err)
			return
		}

		if _, err := controlClient.KillServer(ctx, &olcpb.KillServerRequest{ClientId: clientID}); err != nil {
			logger.Warn("shutdown: best-effort kill_server failed", "error", err)
		}
	}
}
