package olcpb

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/anypb"
)

// SessionStatus mirrors the monotonic session status lifecycle. The zero
// value is UNSPECIFIED so a freshly created, never-polled SessionDetail
// compares correctly against the ordering below.
type SessionStatus int32

const (
	SessionStatusUnspecified SessionStatus = 0
	SessionStatusSubmitted   SessionStatus = 1
	SessionStatusRunning     SessionStatus = 2
	SessionStatusFinished    SessionStatus = 3
)

func (s SessionStatus) String() string {
	switch s {
	case SessionStatusSubmitted:
		return "SUBMITTED"
	case SessionStatusRunning:
		return "RUNNING"
	case SessionStatusFinished:
		return "FINISHED"
	default:
		return "UNSPECIFIED"
	}
}

// AnyPayload is the opaque, typed-by-convention container every plugin
// payload and plugin output travels in. The core never looks past
// TypeUrl; callers unpack Value themselves via a Codec. It is a plain
// alias for the standard protobuf Any message, since that's exactly its
// wire shape and real clients of this service exchange genuine Any values.
type AnyPayload = anypb.Any

// PluginLoadingConfig names the plugin class the server should instantiate.
type PluginLoadingConfig struct {
	PluginClassName string
}

// PluginExecutionConfig carries the plugin's opaque configuration payload.
type PluginExecutionConfig struct {
	Config *AnyPayload
}

// SessionPluginConfig is the per-plugin entry inside a SessionConfig.
type SessionPluginConfig struct {
	Loading   *PluginLoadingConfig
	Execution *PluginExecutionConfig
}

// SessionConfig is the session creation envelope. The session stub always
// populates exactly one entry in SessionPluginConfigs, but the wire shape
// is a map because the server accepts multi-plugin sessions from other
// clients.
type SessionConfig struct {
	SessionName          string
	SessionPluginConfigs map[string]*SessionPluginConfig
}

// PluginError is a single plugin-reported failure, tagged by label and the
// RPC/method name that produced it.
type PluginError struct {
	PluginLabel string
	MethodName  string
	Message     string
}

func (e *PluginError) Error() string { return e.PluginLabel + "/" + e.MethodName + ": " + e.Message }

// SessionRunnerError is a server-runner-level failure, not attributable to
// any single plugin.
type SessionRunnerError struct {
	Message string
}

func (e *SessionRunnerError) Error() string { return e.Message }

// PluginOutputEnvelope is either empty or carries an opaque payload the
// caller unpacks via a Codec.
type PluginOutputEnvelope struct {
	Output *AnyPayload
}

// SessionDetail is the server-side record for a session: status, the
// per-plugin output map, the runner error (if any), and the flat list of
// plugin errors.
type SessionDetail struct {
	SessionId     string
	SessionStatus SessionStatus
	SessionOutput map[string]*PluginOutputEnvelope
	RunnerError   *SessionRunnerError
	PluginErrors  []*PluginError
}

// FieldMask names which SessionDetail fields GetSession should populate.
// A mask of just {"session_status"} is what the poller uses to minimize
// bandwidth; nil/empty means "everything".
type FieldMask struct {
	Paths []string
}

const FieldMaskPathSessionStatus = "session_status"

type CreateSessionRequest struct {
	SessionConfig *SessionConfig
}

type CreateSessionResponse struct {
	SessionId string
}

type RunSessionRequest struct {
	SessionConfig *SessionConfig
}

type RunSessionResponse struct {
	Result *SessionDetail
}

type GetSessionRequest struct {
	SessionId string
	FieldMask *FieldMask
}

type GetSessionResponse struct {
	SessionDetail *SessionDetail
}

// GetAllSessionsRequest filters by name and status via server-side regex.
type GetAllSessionsRequest struct {
	SessionNameRegex   string
	SessionStatusRegex string
}

type GetAllSessionsResponse struct {
	SessionDetails []*SessionDetail
}

type NotifySessionRequest struct {
	SessionId    string
	Notification *AnyPayload
}

type NotifySessionResponse struct {
	Accepted bool
}

// SessionServiceClient is the client half of session lifecycle management.
type SessionServiceClient interface {
	CreateSession(ctx context.Context, in *CreateSessionRequest, opts ...grpc.CallOption) (*CreateSessionResponse, error)
	RunSession(ctx context.Context, in *RunSessionRequest, opts ...grpc.CallOption) (*RunSessionResponse, error)
	GetSession(ctx context.Context, in *GetSessionRequest, opts ...grpc.CallOption) (*GetSessionResponse, error)
	GetAllSessions(ctx context.Context, in *GetAllSessionsRequest, opts ...grpc.CallOption) (*GetAllSessionsResponse, error)
	NotifySession(ctx context.Context, in *NotifySessionRequest, opts ...grpc.CallOption) (*NotifySessionResponse, error)
}

type sessionServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewSessionServiceClient wraps a shared channel with the session stub.
func NewSessionServiceClient(cc grpc.ClientConnInterface) SessionServiceClient {
	return &sessionServiceClient{cc: cc}
}

func (c *sessionServiceClient) CreateSession(ctx context.Context, in *CreateSessionRequest, opts ...grpc.CallOption) (*CreateSessionResponse, error) {
	out := new(CreateSessionResponse)
	if err := c.cc.Invoke(ctx, "/olc.SessionService/CreateSession", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *sessionServiceClient) RunSession(ctx context.Context, in *RunSessionRequest, opts ...grpc.CallOption) (*RunSessionResponse, error) {
	out := new(RunSessionResponse)
	if err := c.cc.Invoke(ctx, "/olc.SessionService/RunSession", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *sessionServiceClient) GetSession(ctx context.Context, in *GetSessionRequest, opts ...grpc.CallOption) (*GetSessionResponse, error) {
	out := new(GetSessionResponse)
	if err := c.cc.Invoke(ctx, "/olc.SessionService/GetSession", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *sessionServiceClient) GetAllSessions(ctx context.Context, in *GetAllSessionsRequest, opts ...grpc.CallOption) (*GetAllSessionsResponse, error) {
	out := new(GetAllSessionsResponse)
	if err := c.cc.Invoke(ctx, "/olc.SessionService/GetAllSessions", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *sessionServiceClient) NotifySession(ctx context.Context, in *NotifySessionRequest, opts ...grpc.CallOption) (*NotifySessionResponse, error) {
	out := new(NotifySessionResponse)
	if err := c.cc.Invoke(ctx, "/olc.SessionService/NotifySession", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// SessionServiceServer is the server-side contract.
type SessionServiceServer interface {
	CreateSession(context.Context, *CreateSessionRequest) (*CreateSessionResponse, error)
	RunSession(context.Context, *RunSessionRequest) (*RunSessionResponse, error)
	GetSession(context.Context, *GetSessionRequest) (*GetSessionResponse, error)
	GetAllSessions(context.Context, *GetAllSessionsRequest) (*GetAllSessionsResponse, error)
	NotifySession(context.Context, *NotifySessionRequest) (*NotifySessionResponse, error)
}
