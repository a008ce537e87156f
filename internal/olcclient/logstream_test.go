package olcclient

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/device-infra-sub009/internal/olcpb"
	"github.com/stretchr/testify/require"
)

func newTestLogStreamer(t *testing.T, control *fakeControlClient, out io.Writer) *LogStreamer {
	t.Helper()
	channel := &fakeChannel{
		version: &fakeVersionClient{resp: &olcpb.VersionResponse{Major: 1}},
		control: control,
	}
	preparer := newTestPreparer(t, PreparerConfig{Channel: channel})
	return NewLogStreamer(preparer, channel, "client-1", 0, out, discardLogger())
}

func TestLogStreamer_EnableIdempotent(t *testing.T) {
	opens := 0
	control := &fakeControlClient{
		streamFunc: func(ctx context.Context) (olcpb.ControlService_GetLogClient, error) {
			opens++
			return &fakeLogStream{}, nil
		},
	}
	var out bytes.Buffer
	streamer := newTestLogStreamer(t, control, &out)

	require.NoError(t, streamer.Enable(context.Background(), true))
	require.NoError(t, streamer.Enable(context.Background(), true))
	require.Equal(t, 1, opens)
}

func TestLogStreamer_DisableIdempotent(t *testing.T) {
	control := &fakeControlClient{
		streamFunc: func(ctx context.Context) (olcpb.ControlService_GetLogClient, error) {
			return &fakeLogStream{}, nil
		},
	}
	var out bytes.Buffer
	streamer := newTestLogStreamer(t, control, &out)

	require.NoError(t, streamer.Enable(context.Background(), false))
	require.NoError(t, streamer.Enable(context.Background(), false))
}

func TestLogStreamer_FiltersByMinImportance(t *testing.T) {
	stream := &fakeLogStream{
		toRecv: []*olcpb.LogResponse{{Records: []*olcpb.LogRecord{
			{SourceType: olcpb.LogSourceTypeTestFramework, Importance: 1, Text: "low"},
			{SourceType: olcpb.LogSourceTypeServerInternal, Importance: 5, Text: "high"},
		}}},
	}
	control := &fakeControlClient{
		streamFunc: func(ctx context.Context) (olcpb.ControlService_GetLogClient, error) {
			return stream, nil
		},
	}
	var out bytes.Buffer
	channel := &fakeChannel{
		version: &fakeVersionClient{resp: &olcpb.VersionResponse{Major: 1}},
		control: control,
	}
	preparer := newTestPreparer(t, PreparerConfig{Channel: channel})
	streamer := NewLogStreamer(preparer, channel, "client-1", 3, &out, discardLogger())

	require.NoError(t, streamer.Enable(context.Background(), true))
	require.Eventually(t, func() bool {
		return bytes.Contains(out.Bytes(), []byte("high"))
	}, time.Second, time.Millisecond)
	require.NotContains(t, out.String(), "low")
}

func TestLogStreamer_StreamErrorClearsState(t *testing.T) {
	stream := &fakeLogStream{recvErr: context.Canceled}
	reopened := make(chan struct{}, 1)
	control := &fakeControlClient{
		streamFunc: func(ctx context.Context) (olcpb.ControlService_GetLogClient, error) {
			select {
			case reopened <- struct{}{}:
			default:
			}
			return stream, nil
		},
	}
	var out bytes.Buffer
	streamer := newTestLogStreamer(t, control, &out)

	require.NoError(t, streamer.Enable(context.Background(), true))

	require.Eventually(t, func() bool {
		streamer.mu.Lock()
		defer streamer.mu.Unlock()
		return !streamer.enabled
	}, time.Second, time.Millisecond)

	// Re-enabling after the stream died (e.g. the server restarted out of
	// band) opens a fresh stream rather than reusing the dead one.
	require.NoError(t, streamer.Enable(context.Background(), true))
}
