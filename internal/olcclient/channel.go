package olcclient

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/device-infra-sub009/internal/olcpb"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// ServerEndpoint is host+port for the local OLC server, resolved once from
// internal/consoleinfo configuration.
type ServerEndpoint struct {
	Host string
	Port int
}

// Channel is the stub-producing surface every component that talks to the
// server depends on. *ServerChannel is the real implementation; tests
// substitute a fake so the preparer, session stub, and log streamer can
// be driven without a real gRPC connection.
type Channel interface {
	VersionClient() (olcpb.VersionServiceClient, error)
	ControlClient() (olcpb.ControlServiceClient, error)
	SessionClient() (olcpb.SessionServiceClient, error)
}

func (e ServerEndpoint) String() string { return fmt.Sprintf("%s:%d", e.Host, e.Port) }

// ServerChannel is the shared, process-lifetime local network channel to
// the server (C1). It is never explicitly closed by accessors; Close
// exists only for the process exit path. Dials once against a fixed
// loopback endpoint rather than a runner-discovered socket address.
type ServerChannel struct {
	endpoint ServerEndpoint
	logger   *slog.Logger

	mu   sync.Mutex
	conn *grpc.ClientConn
}

// NewServerChannel builds (but does not yet dial) a channel descriptor for
// endpoint. Dialing is lazy: the first stub accessor call establishes the
// connection and every later accessor reuses it.
func NewServerChannel(endpoint ServerEndpoint, logger *slog.Logger) *ServerChannel {
	return &ServerChannel{endpoint: endpoint, logger: logger}
}

func (c *ServerChannel) getConn() (*grpc.ClientConn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return c.conn, nil
	}

	// ForceCodec overrides grpc-go's default "proto" codec for every call
	// on this connection: olcpb's request/response structs aren't real
	// protobuf messages, so the default codec would silently marshal them
	// to empty payloads. See olcpb.WireCodec.
	conn, err := grpc.NewClient(
		c.endpoint.String(),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(olcpb.WireCodec())),
	)
	if err != nil {
		return nil, fmt.Errorf("dial olc server at %s: %w", c.endpoint, err)
	}
	c.logger.Debug("opened server channel", "endpoint", c.endpoint.String())
	c.conn = conn
	return conn, nil
}

// VersionClient returns a stub bound to this channel.
func (c *ServerChannel) VersionClient() (olcpb.VersionServiceClient, error) {
	conn, err := c.getConn()
	if err != nil {
		return nil, err
	}
	return olcpb.NewVersionServiceClient(conn), nil
}

// ControlClient returns a stub bound to this channel.
func (c *ServerChannel) ControlClient() (olcpb.ControlServiceClient, error) {
	conn, err := c.getConn()
	if err != nil {
		return nil, err
	}
	return olcpb.NewControlServiceClient(conn), nil
}

// SessionClient returns a stub bound to this channel.
func (c *ServerChannel) SessionClient() (olcpb.SessionServiceClient, error) {
	conn, err := c.getConn()
	if err != nil {
		return nil, err
	}
	return olcpb.NewSessionServiceClient(conn), nil
}

// Close releases the underlying connection. Only the process exit path
// calls this (cmd/ats-console defers it in runOnce); ordinary operation
// never closes the shared channel.
func (c *ServerChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}
