package olcpb

import (
	"context"

	"google.golang.org/grpc"
)

// LogSourceType distinguishes test-framework chatter from server-internal
// log lines so the console can render them with a different style hint.
type LogSourceType int32

const (
	LogSourceTypeUnspecified LogSourceType = 0
	LogSourceTypeTestFramework LogSourceType = 1
	LogSourceTypeServerInternal LogSourceType = 2
)

// KillServerRequest tags the kill request with the requesting client so
// multi-client servers can log who asked.
type KillServerRequest struct {
	ClientId string
}

type KillServerResponse struct{}

// LogRecord is one pre-formatted, importance-tagged line from the server.
type LogRecord struct {
	SourceType LogSourceType
	Importance int32
	Text       string
}

// LogRequest is sent on the request half of the bidi GetLog stream. The
// first message on a stream carries Enable=true plus the client id and
// threshold; a final message with Enable=false signals end-of-stream.
type LogRequest struct {
	Enable        bool
	ClientId      string
	MinImportance int32
}

// LogResponse batches zero or more records per message to amortize
// stream overhead.
type LogResponse struct {
	Records []*LogRecord
}

// ControlServiceClient is the client half of server control: kill and the
// bidirectional log stream.
type ControlServiceClient interface {
	KillServer(ctx context.Context, in *KillServerRequest, opts ...grpc.CallOption) (*KillServerResponse, error)
	GetLog(ctx context.Context, opts ...grpc.CallOption) (ControlService_GetLogClient, error)
}

// ControlService_GetLogClient is the duplex stream handle for GetLog.
type ControlService_GetLogClient interface {
	Send(*LogRequest) error
	Recv() (*LogResponse, error)
	grpc.ClientStream
}

type controlServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewControlServiceClient wraps a shared channel with the control stub.
func NewControlServiceClient(cc grpc.ClientConnInterface) ControlServiceClient {
	return &controlServiceClient{cc: cc}
}

func (c *controlServiceClient) KillServer(ctx context.Context, in *KillServerRequest, opts ...grpc.CallOption) (*KillServerResponse, error) {
	out := new(KillServerResponse)
	if err := c.cc.Invoke(ctx, "/olc.ControlService/KillServer", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *controlServiceClient) GetLog(ctx context.Context, opts ...grpc.CallOption) (ControlService_GetLogClient, error) {
	stream, err := c.cc.(grpc.ClientConnInterface).NewStream(ctx, &ControlServiceGetLogStreamDesc, "/olc.ControlService/GetLog", opts...)
	if err != nil {
		return nil, err
	}
	return &controlServiceGetLogClient{stream}, nil
}

type controlServiceGetLogClient struct {
	grpc.ClientStream
}

func (x *controlServiceGetLogClient) Send(m *LogRequest) error {
	return x.ClientStream.SendMsg(m)
}

func (x *controlServiceGetLogClient) Recv() (*LogResponse, error) {
	m := new(LogResponse)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

// ControlServiceGetLogStreamDesc describes the bidirectional GetLog stream.
var ControlServiceGetLogStreamDesc = grpc.StreamDesc{
	StreamName:    "GetLog",
	ServerStreams: true,
	ClientStreams: true,
}

// ControlServiceServer is the server-side contract for KillServer; nothing
// in this module implements it.
type ControlServiceServer interface {
	KillServer(context.Context, *KillServerRequest) (*KillServerResponse, error)
}
