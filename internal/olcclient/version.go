package olcclient

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/device-infra-sub009/internal/olcpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ServerVersion is the (major, minor, patch) triple the server reports. The
// zero value is the sentinel "remote did not implement the version
// service" meaning, exactly as ServerVersion{} == ServerVersion{0,0,0}.
type ServerVersion struct {
	Major, Minor, Patch int32
}

// IsLegacySentinel reports whether v is the (0,0,0) "legacy server"
// sentinel rather than a real reported version.
func (v ServerVersion) IsLegacySentinel() bool {
	return v == ServerVersion{}
}

// VersionProbeOutcome classifies why GetVersion failed to produce a
// version. This is not part of the closed ErrorKind taxonomy in
// errors.go; it's a narrower classification the Server Preparer state
// machine switches on to decide its next transition.
type VersionProbeOutcome int

const (
	VersionProbeOK VersionProbeOutcome = iota
	VersionProbeNetworkUnavailable
	VersionProbeProtocolError
)

// VersionProbeError wraps the underlying transport error with its
// classification.
type VersionProbeError struct {
	Outcome VersionProbeOutcome
	Cause   error
}

func (e *VersionProbeError) Error() string {
	kind := "protocol error"
	if e.Outcome == VersionProbeNetworkUnavailable {
		kind = "network unavailable"
	}
	return fmt.Sprintf("version probe: %s: %s", kind, e.Cause)
}

func (e *VersionProbeError) Unwrap() error { return e.Cause }

// GetVersion probes the server's version service and classifies failures:
// an Unavailable transport status means no server is listening;
// Unimplemented means a legacy server answers requests but never
// registered this service, so we synthesize the (0,0,0) sentinel instead
// of failing; anything else is a protocol error.
func GetVersion(ctx context.Context, client olcpb.VersionServiceClient, logger *slog.Logger) (ServerVersion, error) {
	resp, err := client.GetVersion(ctx, &olcpb.VersionRequest{})
	if err == nil {
		return ServerVersion{Major: resp.Major, Minor: resp.Minor, Patch: resp.Patch}, nil
	}

	st, ok := status.FromError(err)
	if !ok {
		return ServerVersion{}, &VersionProbeError{Outcome: VersionProbeProtocolError, Cause: err}
	}

	switch st.Code() {
	case codes.Unavailable:
		return ServerVersion{}, &VersionProbeError{Outcome: VersionProbeNetworkUnavailable, Cause: err}
	case codes.Unimplemented:
		logger.Info("connected to a legacy server with no version service")
		return ServerVersion{}, nil
	default:
		return ServerVersion{}, &VersionProbeError{Outcome: VersionProbeProtocolError, Cause: err}
	}
}
