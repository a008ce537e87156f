package olcclient

import (
	"context"
	"log/slog"

	"github.com/google/device-infra-sub009/internal/olcpb"
)

// SessionHandle is the opaque, server-assigned session identifier
// returned by creation.
type SessionHandle string

// NotificationCancel is the well-known notification type url CancelSession
// sends; servers recognize it as "stop this session".
const NotificationCancel = "olc.notification.cancel"

// SessionStub is the session-lifecycle client (C4), generic over the
// caller's plugin payload and output types so the core never parses a
// plugin schema. One SessionStub is bound to exactly one plugin label
// and class for its lifetime; a console driving several plugin types
// constructs one stub per plugin.
type SessionStub[Payload, Output any] struct {
	channel         Channel
	pluginLabel     string
	pluginClassName string
	codec           Codec[Payload, Output]

	clock   Clock
	sleeper Sleeper
	logger  *slog.Logger
}

// NewSessionStub builds a stub bound to pluginLabel/pluginClassName. An
// empty pluginLabel falls back to DefaultPluginLabel.
func NewSessionStub[Payload, Output any](channel Channel, pluginLabel, pluginClassName string, codec Codec[Payload, Output], clock Clock, sleeper Sleeper, logger *slog.Logger) *SessionStub[Payload, Output] {
	if pluginLabel == "" {
		pluginLabel = DefaultPluginLabel
	}
	return &SessionStub[Payload, Output]{
		channel:         channel,
		pluginLabel:     pluginLabel,
		pluginClassName: pluginClassName,
		codec:           codec,
		clock:           clock,
		sleeper:         sleeper,
		logger:          logger,
	}
}

// CreateSession submits a new session and returns its handle without
// waiting for it to run.
func (s *SessionStub[Payload, Output]) CreateSession(ctx context.Context, name string, payload Payload) (SessionHandle, error) {
	cfg, err := buildSessionConfig(name, s.pluginLabel, s.pluginClassName, payload, s.codec)
	if err != nil {
		return "", err
	}

	client, err := s.channel.SessionClient()
	if err != nil {
		return "", NewError(ErrorKindCreateSession, err)
	}

	resp, err := client.CreateSession(ctx, &olcpb.CreateSessionRequest{SessionConfig: cfg})
	if err != nil {
		return "", NewError(ErrorKindCreateSession, err)
	}
	return SessionHandle(resp.SessionId), nil
}

// RunSession blocks until the session finishes, then returns its unpacked
// plugin output.
func (s *SessionStub[Payload, Output]) RunSession(ctx context.Context, name string, payload Payload) (Output, error) {
	var zero Output

	handle, err := s.CreateSession(ctx, name, payload)
	if err != nil {
		return zero, err
	}

	detail, err := s.pollUntilFinished(ctx, handle)
	if err != nil {
		return zero, err
	}

	return s.resolve(detail)
}

// RunSessionAsync returns immediately with a SessionFuture that completes
// once the session finishes.
func (s *SessionStub[Payload, Output]) RunSessionAsync(ctx context.Context, name string, payload Payload) *SessionFuture[Output] {
	ctx, cancel := context.WithCancel(ctx)
	future := &SessionFuture[Output]{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(future.done)

		handle, err := s.CreateSession(ctx, name, payload)
		if err != nil {
			future.err = err
			return
		}
		future.handle = handle

		detail, err := s.pollUntilFinished(ctx, handle)
		if err != nil {
			future.err = err
			return
		}

		future.output, future.err = s.resolve(detail)
	}()

	return future
}

// RunShortSession uses the server's one-shot RunSession RPC, which blocks
// server-side until the session finishes; no client polling is involved.
func (s *SessionStub[Payload, Output]) RunShortSession(ctx context.Context, name string, payload Payload) (Output, error) {
	var zero Output

	cfg, err := buildSessionConfig(name, s.pluginLabel, s.pluginClassName, payload, s.codec)
	if err != nil {
		return zero, err
	}

	client, err := s.channel.SessionClient()
	if err != nil {
		return zero, NewError(ErrorKindRunSession, err)
	}

	resp, err := client.RunSession(ctx, &olcpb.RunSessionRequest{SessionConfig: cfg})
	if err != nil {
		return zero, NewError(ErrorKindRunSession, err)
	}

	return s.resolve(resp.Result)
}

// GetAllSessions enumerates sessions whose name and status match the
// given server-side regexes.
func (s *SessionStub[Payload, Output]) GetAllSessions(ctx context.Context, nameRegex, statusRegex string) ([]*olcpb.SessionDetail, error) {
	client, err := s.channel.SessionClient()
	if err != nil {
		return nil, NewError(ErrorKindListSessions, err)
	}

	resp, err := client.GetAllSessions(ctx, &olcpb.GetAllSessionsRequest{
		SessionNameRegex:   nameRegex,
		SessionStatusRegex: statusRegex,
	})
	if err != nil {
		return nil, NewError(ErrorKindListSessions, err)
	}
	return resp.SessionDetails, nil
}

// NotifySession sends a typed notification envelope to a running session
// and reports whether the server accepted it.
func (s *SessionStub[Payload, Output]) NotifySession(ctx context.Context, handle SessionHandle, typeURL string, notification []byte) (bool, error) {
	client, err := s.channel.SessionClient()
	if err != nil {
		return false, NewError(ErrorKindNotifySession, err)
	}

	resp, err := client.NotifySession(ctx, &olcpb.NotifySessionRequest{
		SessionId:    string(handle),
		Notification: &olcpb.AnyPayload{TypeUrl: typeURL, Value: notification},
	})
	if err != nil {
		return false, NewError(ErrorKindNotifySession, err)
	}
	return resp.Accepted, nil
}

// CancelSession is NotifySession specialized to the well-known cancel
// notification.
func (s *SessionStub[Payload, Output]) CancelSession(ctx context.Context, handle SessionHandle) (bool, error) {
	return s.NotifySession(ctx, handle, NotificationCancel, nil)
}

// pollUntilFinished is the adaptive-backoff poller: a
// status-only GetSession on a schedule until FINISHED, then one final
// unmasked GetSession to fetch the result.
func (s *SessionStub[Payload, Output]) pollUntilFinished(ctx context.Context, handle SessionHandle) (*olcpb.SessionDetail, error) {
	client, err := s.channel.SessionClient()
	if err != nil {
		return nil, NewError(ErrorKindGetSessionStatus, err)
	}

	statusMask := &olcpb.FieldMask{Paths: []string{olcpb.FieldMaskPathSessionStatus}}
	lastStatus := olcpb.SessionStatusUnspecified
	started := s.clock.Now()

	for attempt := 1; ; attempt++ {
		select {
		case <-ctx.Done():
			return nil, NewError(ErrorKindGetSessionStatus, ctx.Err())
		default:
		}

		s.sleeper.Sleep(PollInterval(attempt))

		resp, err := client.GetSession(ctx, &olcpb.GetSessionRequest{SessionId: string(handle), FieldMask: statusMask})
		if err != nil {
			return nil, NewError(ErrorKindGetSessionStatus, err)
		}

		status := resp.SessionDetail.SessionStatus
		if status != lastStatus {
			s.logger.Debug("session status changed", "session_id", handle, "status", status.String(), "elapsed", s.clock.Now().Sub(started))
			lastStatus = status
		}

		if status == olcpb.SessionStatusFinished {
			break
		}
	}

	full, err := client.GetSession(ctx, &olcpb.GetSessionRequest{SessionId: string(handle)})
	if err != nil {
		return nil, NewError(ErrorKindGetSessionResult, err)
	}
	return full.SessionDetail, nil
}

// resolve unpacks the plugin output from a finished SessionDetail, or
// returns the aggregated error per its priority order.
func (s *SessionStub[Payload, Output]) resolve(detail *olcpb.SessionDetail) (Output, error) {
	var zero Output

	env := detail.SessionOutput[s.pluginLabel]
	if env != nil && env.Output != nil {
		out, err := s.codec.unmarshalOutput(env)
		if err != nil {
			return zero, NewError(ErrorKindUnpackOutput, err)
		}
		return out, nil
	}

	if aggErr := aggregateSessionError(detail, s.pluginLabel); aggErr != nil {
		return zero, aggErr
	}

	return zero, NewError(ErrorKindNoPluginOutput, ErrNoPluginOutput)
}

// aggregateSessionError builds the single primary error (with suppressed
// companions) from a finished SessionDetail per its priority
// order: own-plugin errors, then the runner error, then other plugins'
// errors. Returns nil if there is nothing to report.
func aggregateSessionError(detail *olcpb.SessionDetail, pluginLabel string) error {
	var ordered []*Error

	for _, pe := range detail.PluginErrors {
		if pe.PluginLabel == pluginLabel {
			ordered = append(ordered, NewError(ErrorKindPluginError, pe))
		}
	}
	if detail.RunnerError != nil {
		ordered = append(ordered, NewError(ErrorKindRunnerError, detail.RunnerError))
	}
	for _, pe := range detail.PluginErrors {
		if pe.PluginLabel != pluginLabel {
			ordered = append(ordered, NewError(ErrorKindOtherPluginError, pe))
		}
	}

	if len(ordered) == 0 {
		return nil
	}

	primary := ordered[0]
	for _, e := range ordered[1:] {
		primary.suppressed = append(primary.suppressed, e)
	}
	return primary
}

// SessionFuture is the handle RunSessionAsync returns: it completes with
// the unpacked output, or can be cancelled before that (
// "Cancellation" — cancelling stops the polling task promptly but does
// not itself cancel the session server-side).
type SessionFuture[Output any] struct {
	cancel context.CancelFunc
	done   chan struct{}

	handle SessionHandle
	output Output
	err    error
}

// Handle returns the session handle once CreateSession has completed;
// the zero value before that.
func (f *SessionFuture[Output]) Handle() SessionHandle { return f.handle }

// Cancel stops the polling task promptly. It does not cancel the session
// on the server; call SessionStub.CancelSession separately for that.
func (f *SessionFuture[Output]) Cancel() { f.cancel() }

// Wait blocks until the future completes (success, failure, or Cancel)
// and returns its result.
func (f *SessionFuture[Output]) Wait() (Output, error) {
	<-f.done
	return f.output, f.err
}

// Done returns a channel closed when the future completes.
func (f *SessionFuture[Output]) Done() <-chan struct{} { return f.done }
