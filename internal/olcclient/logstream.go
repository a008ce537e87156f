package olcclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/google/device-infra-sub009/internal/olcpb"
)

// LogStreamer maintains the toggleable, server-push log channel (C5). Its
// state is exactly one enabled bool and
// an optional request-stream handle, both guarded by one mutex so at most
// one stream is ever open.
type LogStreamer struct {
	preparer *Preparer
	channel  Channel
	clientID string
	minImportance int32
	out      io.Writer
	logger   *slog.Logger

	mu      sync.Mutex
	enabled bool
	stream  olcpb.ControlService_GetLogClient
}

// NewLogStreamer builds a streamer bound to preparer/channel. preparer must
// have already completed (or complete as part of Enable(true)) before any
// stream is opened.
func NewLogStreamer(preparer *Preparer, channel Channel, clientID string, minImportance int32, out io.Writer, logger *slog.Logger) *LogStreamer {
	return &LogStreamer{
		preparer:      preparer,
		channel:       channel,
		clientID:      clientID,
		minImportance: minImportance,
		out:           out,
		logger:        logger,
	}
}

// Enable toggles streaming on or off. It is idempotent and thread-safe:
// Enable(true) while already enabled, or Enable(false) while already
// disabled, are no-ops.
func (s *LogStreamer) Enable(ctx context.Context, on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if on == s.enabled {
		return nil
	}

	if !on {
		if s.stream != nil {
			_ = s.stream.Send(&olcpb.LogRequest{Enable: false, ClientId: s.clientID})
			_ = s.stream.CloseSend()
			s.stream = nil
		}
		s.enabled = false
		return nil
	}

	if err := s.preparer.Prepare(ctx); err != nil {
		return fmt.Errorf("log streamer: server not ready: %w", err)
	}

	controlClient, err := s.channel.ControlClient()
	if err != nil {
		return fmt.Errorf("log streamer: %w", err)
	}

	stream, err := controlClient.GetLog(ctx)
	if err != nil {
		return fmt.Errorf("log streamer: open stream: %w", err)
	}
	if err := stream.Send(&olcpb.LogRequest{Enable: true, ClientId: s.clientID, MinImportance: s.minImportance}); err != nil {
		return fmt.Errorf("log streamer: send start request: %w", err)
	}

	s.stream = stream
	s.enabled = true

	go s.pump(stream)

	return nil
}

// pump reads log records off the stream until it errors or the server
// closes it cleanly. Both cases just clear the request channel silently
// — no retries here; the operator
// re-enables explicitly.
func (s *LogStreamer) pump(stream olcpb.ControlService_GetLogClient) {
	for {
		resp, err := stream.Recv()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.logger.Debug("log stream ended", "error", err)
			}
			s.clearIfCurrent(stream)
			return
		}

		for _, rec := range resp.Records {
			if rec.Importance < s.minImportance {
				continue
			}
			fmt.Fprintln(s.out, styleHint(rec.SourceType)+rec.Text)
		}
	}
}

func (s *LogStreamer) clearIfCurrent(stream olcpb.ControlService_GetLogClient) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stream == stream {
		s.stream = nil
		s.enabled = false
	}
}

func styleHint(source olcpb.LogSourceType) string {
	switch source {
	case olcpb.LogSourceTypeTestFramework:
		return "[tf] "
	case olcpb.LogSourceTypeServerInternal:
		return "[olc] "
	default:
		return ""
	}
}
