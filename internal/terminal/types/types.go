// Package types defines the data model shared by every Terminal
// Multiplexer component: the Window, its Subscribers, the byte-level
// Scrollback ring, and the sentinel errors the whole stack reports
// through.
package types

import (
	"sync"
	"time"

	"github.com/GriffinCanCode/AgentOS/backend/internal/shared/id"
)

// State is a Window's position in the attach/detach/kill state machine.
type State int

const (
	// Idle: Host alive, no Subscribers.
	StateIdle State = iota
	// Active: at least one Subscriber attached.
	StateActive
	// Terminal: Host released, Subscribers drained, removable from the Registry.
	StateTerminal
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateActive:
		return "active"
	case StateTerminal:
		return "terminal"
	default:
		return "unknown"
	}
}

// Host is the capability set a Window's byte pipe exposes, implemented by
// both the direct-PTY host and the external-multiplexer adapter. Window,
// Fanout, and the Coordinator depend only on this interface, never on a
// concrete backend.
type Host interface {
	Write(p []byte) (n int, err error)
	Resize(cols, rows int) error
	Kill(sig Signal) error
	// OnBytes registers the single byte-stream callback, invoked from the
	// Host's dedicated reader task. Must be called before the Host starts
	// producing output.
	OnBytes(func(chunk []byte))
	// OnExit registers the callback invoked exactly once when the backing
	// process (or, for a multiplexed Host, the local attach PTY) exits.
	OnExit(func(exitCode int, signal string))
}

// Signal is the subset of process signals the core needs to send.
type Signal int

const (
	SignalTerm Signal = iota
	SignalKill
)

// Window is one logical interactive terminal session owned by the broker.
//
// ID is immutable and never reused. Exactly one Host backs a live Window
// for its entire life; a Window whose external backing vanishes is torn
// down and removed rather than rebound to a new Host (see
// coordinator.ReconcileExternal). State == StateTerminal implies Host is
// nil and Subscribers is empty.
type Window struct {
	ID          string
	Name        string
	ProjectPath string
	CreatedAt   time.Time
	Source      id.Source

	mu          sync.Mutex
	cols, rows  int
	host        Host
	state       State
	subscribers map[id.SubID]*Subscriber
	scrollback  *Scrollback
	writerMu    sync.Mutex // single-writer-to-process discipline
}

// NewWindow constructs a Window in StateIdle backed by host, with an
// empty Scrollback of the given capacity.
func NewWindow(winID, name, projectPath string, source id.Source, host Host, cols, rows, sbCap int) *Window {
	return &Window{
		ID:          winID,
		Name:        name,
		ProjectPath: projectPath,
		CreatedAt:   time.Now(),
		Source:      source,
		cols:        cols,
		rows:        rows,
		host:        host,
		state:       StateIdle,
		subscribers: make(map[id.SubID]*Subscriber),
		scrollback:  NewScrollback(sbCap),
	}
}

// Host returns the Window's current Host, or nil if Terminal.
func (w *Window) Host() Host {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.host
}

// State returns the Window's current state.
func (w *Window) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Dims returns the current viewport.
func (w *Window) Dims() (cols, rows int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cols, w.rows
}

// SetDims records the last-wins viewport after a successful resize.
func (w *Window) SetDims(cols, rows int) {
	w.mu.Lock()
	w.cols, w.rows = cols, rows
	w.mu.Unlock()
}

// Scrollback returns the Window's scrollback ring.
func (w *Window) Scrollback() *Scrollback {
	return w.scrollback
}

// AttachSubscriber inserts s into the live subscriber set and returns a
// Scrollback snapshot, both taken under the same lock AppendOutput uses.
// That shared lock is what makes replay-then-live-join exact: a chunk
// AppendOutput records is captured by exactly one of the returned
// snapshot or a subsequent live delivery to s, never both and never
// neither. Returns ErrTerminal if the Window has already exited.
func (w *Window) AttachSubscriber(s *Subscriber) ([]byte, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == StateTerminal {
		return nil, ErrTerminal
	}
	snapshot := w.scrollback.Snapshot()
	w.subscribers[s.SubID] = s
	w.state = StateActive
	return snapshot, nil
}

// AppendOutput records chunk in the Scrollback and returns a snapshot of
// the Subscribers currently attached, taken under the same lock
// AttachSubscriber uses — see AttachSubscriber.
func (w *Window) AppendOutput(chunk []byte) []*Subscriber {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.scrollback.Append(chunk)
	out := make([]*Subscriber, 0, len(w.subscribers))
	for _, s := range w.subscribers {
		out = append(out, s)
	}
	return out
}

// WriterLock serializes Write calls from distinct callers into a single
// stream sent to the Host, so input bytes are never interleaved mid-call.
func (w *Window) WriterLock() func() {
	w.writerMu.Lock()
	return w.writerMu.Unlock
}

// AddSubscriber inserts s into the live subscriber set and transitions
// the Window to Active. Returns ErrTerminal if the Window has already
// exited.
func (w *Window) AddSubscriber(s *Subscriber) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == StateTerminal {
		return ErrTerminal
	}
	w.subscribers[s.SubID] = s
	w.state = StateActive
	return nil
}

// RemoveSubscriber deletes s from the live subscriber set, idempotently.
// If no Subscribers remain and the Window is not Terminal, it reverts to
// Idle.
func (w *Window) RemoveSubscriber(subID id.SubID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.subscribers, subID)
	if len(w.subscribers) == 0 && w.state == StateActive {
		w.state = StateIdle
	}
}

// Subscribers returns a snapshot of the currently attached Subscribers.
// Taken under a short lock, per the fanout's no-suspend-while-locked rule.
func (w *Window) Subscribers() []*Subscriber {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]*Subscriber, 0, len(w.subscribers))
	for _, s := range w.subscribers {
		out = append(out, s)
	}
	return out
}

// MarkTerminal transitions the Window to Terminal, releasing its Host and
// clearing its Subscriber set. Idempotent. Returns the Subscribers that
// were attached at the moment of transition, so the caller can deliver a
// final control event to each.
func (w *Window) MarkTerminal() []*Subscriber {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == StateTerminal {
		return nil
	}
	out := make([]*Subscriber, 0, len(w.subscribers))
	for _, s := range w.subscribers {
		out = append(out, s)
	}
	w.subscribers = make(map[id.SubID]*Subscriber)
	w.host = nil
	w.state = StateTerminal
	return out
}

// Summary is the read-only, JSON-shaped view of a Window returned by List
// and Get.
type Summary struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	ProjectPath string    `json:"project_path"`
	CreatedAt   time.Time `json:"created_at"`
	Cols        int       `json:"cols"`
	Rows        int       `json:"rows"`
	Source      string    `json:"source"`
	State       string    `json:"state"`
	Subscribers int       `json:"subscribers"`
}

// ToSummary renders the Window's current state as a Summary.
func (w *Window) ToSummary() Summary {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Summary{
		ID:          w.ID,
		Name:        w.Name,
		ProjectPath: w.ProjectPath,
		CreatedAt:   w.CreatedAt,
		Cols:        w.cols,
		Rows:        w.rows,
		Source:      w.Source.String(),
		State:       w.state.String(),
		Subscribers: len(w.subscribers),
	}
}

// ChunkKind distinguishes a byte chunk from a control event on a Sink.
type ChunkKind int

const (
	ChunkBytes ChunkKind = iota
	ChunkWindowExited
	ChunkSlowConsumerEvicted
	// ChunkWindowGone marks a multiplexed Window whose external backing
	// vanished, discovered by Coordinator.ReconcileExternal rather than
	// by the Host's own exit callback.
	ChunkWindowGone
)

// Chunk is the unit delivered to a Subscriber's SinkFn: either a raw byte
// chunk or a control event, never ambiguous between the two.
type Chunk struct {
	Kind         ChunkKind
	Bytes        []byte
	ExitCode     int
	Signal       string
	DroppedBytes int64
}

// SinkFn delivers one Chunk to a transport. It may block and may fail; a
// non-nil error removes the owning Subscriber.
type SinkFn func(Chunk) error

// Subscriber is one attached client's read side on a Window.
type Subscriber struct {
	SubID     id.SubID
	WindowID  string
	Queue     chan Chunk
	SinkFn    SinkFn
	CreatedAt time.Time

	dropped int64
	mu      sync.Mutex
	evicted bool
	closed  bool
}

// NewSubscriber constructs a Subscriber with a queue of capacity qCap.
func NewSubscriber(winID string, qCap int, sink SinkFn) *Subscriber {
	return &Subscriber{
		SubID:     id.NewSubID(),
		WindowID:  winID,
		Queue:     make(chan Chunk, qCap),
		SinkFn:    sink,
		CreatedAt: time.Now(),
	}
}

// TryEnqueue attempts a non-blocking send. Returns false if the queue is
// full or already closed, in which case the caller must account the
// chunk as dropped rather than block the reader task. Guarded by the
// same lock Close uses, so a send can never land on a closed channel.
func (s *Subscriber) TryEnqueue(c Chunk) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.Queue <- c:
		return true
	default:
		return false
	}
}

// Close marks the Subscriber closed and closes Queue, waking its Pump
// goroutine. Idempotent. Serialized against TryEnqueue so a concurrent
// send can never race a close of the same channel.
func (s *Subscriber) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.Queue)
}

// AddDropped increments the dropped-byte counter and reports whether the
// Subscriber has now crossed evictThresh and should be evicted.
func (s *Subscriber) AddDropped(n int, evictThresh int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.evicted {
		return false
	}
	s.dropped += int64(n)
	if s.dropped > evictThresh {
		s.evicted = true
		return true
	}
	return false
}

// DroppedBytes returns the current dropped-byte count.
func (s *Subscriber) DroppedBytes() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}
