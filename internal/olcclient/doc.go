// Package olcclient implements the session-lifecycle client subsystem that
// drives a remote OLC server: discovering or spawning it (Preparer),
// creating and polling xTS test sessions (SessionStub), and streaming its
// logs back to the operator (LogStreamer).
package olcclient
