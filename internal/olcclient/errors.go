package olcclient

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed taxonomy of client-facing error categories.
// Nothing in this package should synthesize a category that isn't named
// here.
type ErrorKind int

const (
	ErrorKindUnspecified ErrorKind = iota
	ErrorKindServerConnect
	ErrorKindServerStart
	ErrorKindServerInitTimeout
	ErrorKindServerInitAbort
	ErrorKindCreateSession
	ErrorKindRunSession
	ErrorKindGetSessionStatus
	ErrorKindGetSessionResult
	ErrorKindListSessions
	ErrorKindNotifySession
	ErrorKindUnpackOutput
	ErrorKindPluginError
	ErrorKindRunnerError
	ErrorKindOtherPluginError
	ErrorKindNoPluginOutput
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorKindServerConnect:
		return "ServerConnect"
	case ErrorKindServerStart:
		return "ServerStart"
	case ErrorKindServerInitTimeout:
		return "ServerInitTimeout"
	case ErrorKindServerInitAbort:
		return "ServerInitAbort"
	case ErrorKindCreateSession:
		return "CreateSession"
	case ErrorKindRunSession:
		return "RunSession"
	case ErrorKindGetSessionStatus:
		return "GetSessionStatus"
	case ErrorKindGetSessionResult:
		return "GetSessionResult"
	case ErrorKindListSessions:
		return "ListSessions"
	case ErrorKindNotifySession:
		return "NotifySession"
	case ErrorKindUnpackOutput:
		return "UnpackOutput"
	case ErrorKindPluginError:
		return "PluginError"
	case ErrorKindRunnerError:
		return "RunnerError"
	case ErrorKindOtherPluginError:
		return "OtherPluginError"
	case ErrorKindNoPluginOutput:
		return "NoPluginOutput"
	default:
		return "Unspecified"
	}
}

// Error is the typed error every core operation returns when it fails.
// It wraps the underlying cause and, for session-level aggregation,
// carries the suppressed companions from session-level aggregation.
type Error struct {
	Kind       ErrorKind
	Cause      error
	suppressed []error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

// Suppressed returns the lower-priority errors that were observed
// alongside the primary one but not chosen as primary. Never nil; may be
// empty.
func (e *Error) Suppressed() []error {
	if e.suppressed == nil {
		return []error{}
	}
	return e.suppressed
}

// NewError builds a *Error of the given kind wrapping cause.
func NewError(kind ErrorKind, cause error) *Error {
	return &Error{Kind: kind, Cause: cause}
}

// KindOf unwraps err looking for an *Error and returns its Kind, or
// ErrorKindUnspecified if err isn't one of ours.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrorKindUnspecified
}

// ErrNoPluginOutput is the sentinel cause wrapped by a NoPluginOutput
// *Error when a finished session has neither output nor any recorded
// error.
var ErrNoPluginOutput = errors.New("session finished without plugin output or any recorded error")
