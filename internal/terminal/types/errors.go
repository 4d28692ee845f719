package types

import "errors"

// Sentinel errors returned by the terminal components, checked with
// errors.Is at every boundary (the HTTP layer maps each to a status
// code; see internal/api/http).
var (
	// ErrSpawn is returned when a Host fails to start (missing shell,
	// missing tmux binary, fork/exec failure).
	ErrSpawn = errors.New("terminal: failed to spawn host")
	// ErrNotFound is returned when a window ID has no entry in the Registry.
	ErrNotFound = errors.New("terminal: window not found")
	// ErrTerminal is returned by any operation attempted on a Window that
	// has already exited.
	ErrTerminal = errors.New("terminal: window is in terminal state")
	// ErrClosed is returned when writing to or resizing a Host whose
	// underlying pipe has already been closed.
	ErrClosed = errors.New("terminal: host closed")
	// ErrGone is returned when an External Session Adapter call targets a
	// tmux session that no longer exists.
	ErrGone = errors.New("terminal: external session gone")
	// ErrSlowConsumer names the condition of a Subscriber whose drops have
	// passed the eviction threshold. Fanout reports an eviction to the
	// Subscriber as a ChunkSlowConsumerEvicted chunk; no component returns
	// this error.
	ErrSlowConsumer = errors.New("terminal: subscriber evicted as slow consumer")
	// ErrInvalid is returned for non-positive cols or rows. An empty shell
	// command is not rejected (the PTY host falls back to $SHELL, then
	// /bin/bash), and an unknown or malformed window ID is reported as
	// ErrNotFound.
	ErrInvalid = errors.New("terminal: invalid argument")
	// ErrTimeout is returned when an operation exceeds its deadline, e.g.
	// a Kill that does not observe exit within the grace period.
	ErrTimeout = errors.New("terminal: operation timed out")
	// ErrUnavailable is returned by the External Session Adapter when its
	// circuit breaker rejects a tmux call (open, or half-open with its
	// request quota used). A tmux binary missing from PATH is not reported
	// this way: the Coordinator falls back to a direct PTY instead.
	ErrUnavailable = errors.New("terminal: external multiplexer unavailable")
)
