package olcclient

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/google/device-infra-sub009/internal/olcpb"
	"google.golang.org/grpc"
)

// fakeChannel implements Channel entirely in memory for unit tests, so C3
// and C4 can be driven without a real gRPC connection.
type fakeChannel struct {
	version olcpb.VersionServiceClient
	control olcpb.ControlServiceClient
	session olcpb.SessionServiceClient
}

func (f *fakeChannel) VersionClient() (olcpb.VersionServiceClient, error) { return f.version, nil }
func (f *fakeChannel) ControlClient() (olcpb.ControlServiceClient, error) { return f.control, nil }
func (f *fakeChannel) SessionClient() (olcpb.SessionServiceClient, error) { return f.session, nil }

// fakeControlClient is an in-memory ControlServiceClient.
type fakeControlClient struct {
	killErr    error
	killCalls  int
	streamFunc func(ctx context.Context) (olcpb.ControlService_GetLogClient, error)
}

func (f *fakeControlClient) KillServer(ctx context.Context, in *olcpb.KillServerRequest, opts ...grpc.CallOption) (*olcpb.KillServerResponse, error) {
	f.killCalls++
	if f.killErr != nil {
		return nil, f.killErr
	}
	return &olcpb.KillServerResponse{}, nil
}

func (f *fakeControlClient) GetLog(ctx context.Context, opts ...grpc.CallOption) (olcpb.ControlService_GetLogClient, error) {
	return f.streamFunc(ctx)
}

// fakeLogStream is an in-memory ControlService_GetLogClient.
type fakeLogStream struct {
	grpc.ClientStream
	sent     []*olcpb.LogRequest
	toRecv   []*olcpb.LogResponse
	recvErr  error
	recvIdx  int
	closed   bool
}

func (s *fakeLogStream) Send(r *olcpb.LogRequest) error {
	s.sent = append(s.sent, r)
	return nil
}

func (s *fakeLogStream) Recv() (*olcpb.LogResponse, error) {
	if s.recvIdx < len(s.toRecv) {
		r := s.toRecv[s.recvIdx]
		s.recvIdx++
		return r, nil
	}
	if s.recvErr != nil {
		return nil, s.recvErr
	}
	return nil, context.Canceled
}

func (s *fakeLogStream) CloseSend() error {
	s.closed = true
	return nil
}

// fakeSessionClient is an in-memory SessionServiceClient driving a single
// session through a scripted status sequence.
type fakeSessionClient struct {
	createResp *olcpb.CreateSessionResponse
	createErr  error

	runResp *olcpb.RunSessionResponse
	runErr  error

	// statusSequence is returned in order to successive status-only
	// GetSession calls; the last entry repeats once exhausted.
	statusSequence []olcpb.SessionStatus
	getCalls       int

	finalDetail *olcpb.SessionDetail

	getAllResp *olcpb.GetAllSessionsResponse
	notifyResp *olcpb.NotifySessionResponse
}

func (f *fakeSessionClient) CreateSession(ctx context.Context, in *olcpb.CreateSessionRequest, opts ...grpc.CallOption) (*olcpb.CreateSessionResponse, error) {
	return f.createResp, f.createErr
}

func (f *fakeSessionClient) RunSession(ctx context.Context, in *olcpb.RunSessionRequest, opts ...grpc.CallOption) (*olcpb.RunSessionResponse, error) {
	return f.runResp, f.runErr
}

func (f *fakeSessionClient) GetSession(ctx context.Context, in *olcpb.GetSessionRequest, opts ...grpc.CallOption) (*olcpb.GetSessionResponse, error) {
	if in.FieldMask == nil {
		return &olcpb.GetSessionResponse{SessionDetail: f.finalDetail}, nil
	}

	idx := f.getCalls
	if idx >= len(f.statusSequence) {
		idx = len(f.statusSequence) - 1
	}
	f.getCalls++
	return &olcpb.GetSessionResponse{SessionDetail: &olcpb.SessionDetail{SessionStatus: f.statusSequence[idx]}}, nil
}

func (f *fakeSessionClient) GetAllSessions(ctx context.Context, in *olcpb.GetAllSessionsRequest, opts ...grpc.CallOption) (*olcpb.GetAllSessionsResponse, error) {
	return f.getAllResp, nil
}

func (f *fakeSessionClient) NotifySession(ctx context.Context, in *olcpb.NotifySessionRequest, opts ...grpc.CallOption) (*olcpb.NotifySessionResponse, error) {
	return f.notifyResp, nil
}

// noSleep is a Sleeper that doesn't actually block, so polling tests run
// instantly regardless of how many attempts they script.
type noSleep struct{ calls int }

func (n *noSleep) Sleep(d time.Duration) { n.calls++ }

// fakeClock is a Clock that advances by a fixed step on every Now() call,
// so tests can assert it was actually consulted without depending on wall
// time.
type fakeClock struct {
	calls int
	t     time.Time
}

func (c *fakeClock) Now() time.Time {
	c.calls++
	c.t = c.t.Add(time.Second)
	return c.t
}

// fakeCmd is an in-memory cmdRunner standing in for a spawned server
// process: its stderr is whatever the test hands it, and Wait blocks until
// the test sends on exitCh (a test that pre-fills exitCh gets an immediate
// exit).
type fakeCmd struct {
	stderr     io.ReadCloser
	exitCh     chan error
	killCalled bool
}

func newFakeCmd(stderrContents string) *fakeCmd {
	return &fakeCmd{
		stderr: io.NopCloser(strings.NewReader(stderrContents)),
		exitCh: make(chan error, 1),
	}
}

func (c *fakeCmd) Start() error                        { return nil }
func (c *fakeCmd) Wait() error                          { return <-c.exitCh }
func (c *fakeCmd) StderrPipe() (io.ReadCloser, error)   { return c.stderr, nil }
func (c *fakeCmd) Kill() error                          { c.killCalled = true; return nil }
