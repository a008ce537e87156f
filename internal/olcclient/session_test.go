package olcclient

import (
	"context"
	"errors"
	"testing"

	"github.com/google/device-infra-sub009/internal/olcpb"
	"github.com/stretchr/testify/require"
)

func newTestStub(session olcpb.SessionServiceClient) *SessionStub[[]byte, []byte] {
	channel := &fakeChannel{session: session}
	return NewSessionStub[[]byte, []byte](channel, "", "test.PluginClass", NewRawCodec("test.raw"), RealClock{}, &noSleep{}, discardLogger())
}

func TestAggregateSessionError_OwnPluginBeatsRunnerBeatsOther(t *testing.T) {
	detail := &olcpb.SessionDetail{
		RunnerError: &olcpb.SessionRunnerError{Message: "runner blew up"},
		PluginErrors: []*olcpb.PluginError{
			{PluginLabel: "other_plugin", MethodName: "run", Message: "other failed"},
			{PluginLabel: DefaultPluginLabel, MethodName: "run", Message: "mine failed"},
		},
	}

	err := aggregateSessionError(detail, DefaultPluginLabel)
	require.Error(t, err)

	var e *Error
	require.True(t, errors.As(err, &e))
	require.Equal(t, ErrorKindPluginError, e.Kind)
	require.Len(t, e.Suppressed(), 2)

	var runnerErr, otherErr *Error
	require.True(t, errors.As(e.Suppressed()[0], &runnerErr))
	require.Equal(t, ErrorKindRunnerError, runnerErr.Kind)
	require.True(t, errors.As(e.Suppressed()[1], &otherErr))
	require.Equal(t, ErrorKindOtherPluginError, otherErr.Kind)
}

func TestAggregateSessionError_RunnerOnly(t *testing.T) {
	detail := &olcpb.SessionDetail{RunnerError: &olcpb.SessionRunnerError{Message: "runner blew up"}}

	err := aggregateSessionError(detail, DefaultPluginLabel)
	require.Equal(t, ErrorKindRunnerError, KindOf(err))
	require.Empty(t, err.(*Error).Suppressed())
}

func TestAggregateSessionError_NothingToReport(t *testing.T) {
	require.Nil(t, aggregateSessionError(&olcpb.SessionDetail{}, DefaultPluginLabel))
}

func TestRunSession_ReturnsOutput(t *testing.T) {
	client := &fakeSessionClient{
		createResp:     &olcpb.CreateSessionResponse{SessionId: "s1"},
		statusSequence: []olcpb.SessionStatus{olcpb.SessionStatusRunning, olcpb.SessionStatusFinished},
		finalDetail: &olcpb.SessionDetail{
			SessionId:     "s1",
			SessionStatus: olcpb.SessionStatusFinished,
			SessionOutput: map[string]*olcpb.PluginOutputEnvelope{
				DefaultPluginLabel: {Output: &olcpb.AnyPayload{TypeUrl: "test.raw", Value: []byte("result")}},
			},
		},
	}
	stub := newTestStub(client)

	out, err := stub.RunSession(context.Background(), "my-run", []byte("payload"))
	require.NoError(t, err)
	require.Equal(t, []byte("result"), out)
}

func TestRunSession_NoOutputNoError(t *testing.T) {
	client := &fakeSessionClient{
		createResp:     &olcpb.CreateSessionResponse{SessionId: "s1"},
		statusSequence: []olcpb.SessionStatus{olcpb.SessionStatusFinished},
		finalDetail:    &olcpb.SessionDetail{SessionId: "s1", SessionStatus: olcpb.SessionStatusFinished},
	}
	stub := newTestStub(client)

	_, err := stub.RunSession(context.Background(), "my-run", nil)
	require.Equal(t, ErrorKindNoPluginOutput, KindOf(err))
}

func TestRunSessionAsync_WaitMatchesRunSession(t *testing.T) {
	client := &fakeSessionClient{
		createResp:     &olcpb.CreateSessionResponse{SessionId: "s1"},
		statusSequence: []olcpb.SessionStatus{olcpb.SessionStatusFinished},
		finalDetail: &olcpb.SessionDetail{
			SessionId:     "s1",
			SessionStatus: olcpb.SessionStatusFinished,
			SessionOutput: map[string]*olcpb.PluginOutputEnvelope{
				DefaultPluginLabel: {Output: &olcpb.AnyPayload{Value: []byte("async-result")}},
			},
		},
	}
	stub := newTestStub(client)

	future := stub.RunSessionAsync(context.Background(), "my-run", nil)
	out, err := future.Wait()
	require.NoError(t, err)
	require.Equal(t, []byte("async-result"), out)
	require.Equal(t, SessionHandle("s1"), future.Handle())
}

func TestRunShortSession(t *testing.T) {
	client := &fakeSessionClient{
		runResp: &olcpb.RunSessionResponse{Result: &olcpb.SessionDetail{
			SessionOutput: map[string]*olcpb.PluginOutputEnvelope{
				DefaultPluginLabel: {Output: &olcpb.AnyPayload{Value: []byte("short-result")}},
			},
		}},
	}
	stub := newTestStub(client)

	out, err := stub.RunShortSession(context.Background(), "my-run", nil)
	require.NoError(t, err)
	require.Equal(t, []byte("short-result"), out)
}

func TestGetAllSessions(t *testing.T) {
	client := &fakeSessionClient{
		getAllResp: &olcpb.GetAllSessionsResponse{SessionDetails: []*olcpb.SessionDetail{{SessionId: "a"}, {SessionId: "b"}}},
	}
	stub := newTestStub(client)

	details, err := stub.GetAllSessions(context.Background(), ".*", "FINISHED")
	require.NoError(t, err)
	require.Len(t, details, 2)
}

func TestCancelSession_SendsCancelNotification(t *testing.T) {
	client := &fakeSessionClient{notifyResp: &olcpb.NotifySessionResponse{Accepted: true}}
	stub := newTestStub(client)

	accepted, err := stub.CancelSession(context.Background(), SessionHandle("s1"))
	require.NoError(t, err)
	require.True(t, accepted)
}

func TestRunSession_UsesInjectedClock(t *testing.T) {
	client := &fakeSessionClient{
		createResp:     &olcpb.CreateSessionResponse{SessionId: "s1"},
		statusSequence: []olcpb.SessionStatus{olcpb.SessionStatusRunning, olcpb.SessionStatusFinished},
		finalDetail: &olcpb.SessionDetail{
			SessionId:     "s1",
			SessionStatus: olcpb.SessionStatusFinished,
			SessionOutput: map[string]*olcpb.PluginOutputEnvelope{
				DefaultPluginLabel: {Output: &olcpb.AnyPayload{TypeUrl: "test.raw", Value: []byte("result")}},
			},
		},
	}
	channel := &fakeChannel{session: client}
	clock := &fakeClock{}
	stub := NewSessionStub[[]byte, []byte](channel, "", "test.PluginClass", NewRawCodec("test.raw"), clock, &noSleep{}, discardLogger())

	_, err := stub.RunSession(context.Background(), "my-run", []byte("payload"))
	require.NoError(t, err)
	require.Greater(t, clock.calls, 0)
}
