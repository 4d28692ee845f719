// Package id provides centralized ID generation for the broker.
//
// Two ID families are used across the backend:
//   - ULIDs for internal, ephemeral identifiers (subscribers, requests,
//     trace/span IDs) where lexicographic sortability is convenient.
//   - Window IDs, which are not raw ULIDs: pty-{uuid-v4} for direct PTY
//     windows and mux-{sessionName}:{index} for multiplexed windows.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// SubID identifies a Subscriber.
type SubID string

// RequestID identifies an inbound API request, for log correlation.
type RequestID string

const (
	SubPrefix     = "sub"
	RequestPrefix = "req"
)

// Generator generates ULIDs with optional prefixes.
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the singleton generator instance.
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a new ULID generator using crypto-random entropy.
func NewGenerator() *Generator {
	return &Generator{entropy: rand.Reader}
}

// Generate creates a new ULID.
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateString creates a new ULID as a string.
func (g *Generator) GenerateString() string {
	return g.Generate().String()
}

// GenerateWithPrefix creates a prefixed ULID string, e.g. "sub_01H...".
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.GenerateString())
}

// IsValid checks if a string is a valid ULID.
func IsValid(s string) bool {
	_, err := Parse(s)
	return err == nil
}

// IsValidPrefixed checks whether prefixed has the "<prefix>_<ulid>" shape
// GenerateWithPrefix produces and carries a valid ULID after the
// underscore. Used to reject a caller-supplied correlation ID (e.g. an
// inbound X-Trace-ID header) that isn't one of ours, rather than
// propagating it unchecked.
func IsValidPrefixed(prefixed string) bool {
	parts := strings.SplitN(prefixed, "_", 2)
	return len(parts) == 2 && IsValid(parts[1])
}

// Parse parses a ULID string.
func Parse(s string) (ulid.ULID, error) {
	return ulid.Parse(s)
}

// Timestamp extracts the embedded timestamp from a ULID string.
func Timestamp(s string) (time.Time, error) {
	parsed, err := Parse(s)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}

// NewSubID generates a new Subscriber ID.
func NewSubID() SubID {
	return SubID(Default().GenerateWithPrefix(SubPrefix))
}

// NewRequestID generates a new request ID.
func NewRequestID() RequestID {
	return RequestID(Default().GenerateWithPrefix(RequestPrefix))
}

func (id SubID) String() string     { return string(id) }
func (id RequestID) String() string { return string(id) }

// ============================================================================
// Window ID grammar: pty-{uuid-v4} | mux-{sessionName}:{index}
// ============================================================================

const (
	// MuxNamespace prefixes every tmux session name the broker creates,
	// distinguishing them from sessions a user started by hand.
	MuxNamespace = "mobile-"
	maxSessLen   = 30
)

var sessionNameCharset = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// NewPTYWindowID generates a new direct-PTY window ID.
func NewPTYWindowID() string {
	return "pty-" + uuid.NewString()
}

// SessionName derives the deterministic tmux session name for a project
// path: the final path component, sanitized to [A-Za-z0-9_-], prefixed
// with the broker's namespace, and truncated so the whole name
// (namespace included) is at most 30 characters.
func SessionName(projectPath string) string {
	base := projectPath
	if idx := strings.LastIndexAny(base, "/\\"); idx >= 0 {
		base = base[idx+1:]
	}
	if base == "" {
		base = "root"
	}
	sanitized := sessionNameCharset.ReplaceAllString(base, "-")
	if len(sanitized) > maxSessLen-len(MuxNamespace) {
		sanitized = sanitized[:maxSessLen-len(MuxNamespace)]
	}
	return MuxNamespace + sanitized
}

// NewMuxWindowID builds a multiplexed window ID from its session name and
// multiplexer-assigned index.
func NewMuxWindowID(sessionName string, index int) string {
	return fmt.Sprintf("mux-%s:%d", sessionName, index)
}

// Source identifies which Host backs a Window.
type Source int

const (
	SourceDirectPTY Source = iota
	SourceMultiplexed
)

func (s Source) String() string {
	switch s {
	case SourceDirectPTY:
		return "direct-pty"
	case SourceMultiplexed:
		return "multiplexed"
	default:
		return "unknown"
	}
}

// ParseWindowID recovers (source, sessionName, index) from a window ID.
// Legacy multiplexed IDs without an index suffix are rejected rather than
// silently treated as index 0, so a malformed or truncated ID never
// silently maps to a live window.
func ParseWindowID(winID string) (source Source, sessionName string, index int, err error) {
	switch {
	case strings.HasPrefix(winID, "pty-"):
		rest := strings.TrimPrefix(winID, "pty-")
		if _, err := uuid.Parse(rest); err != nil {
			return 0, "", 0, fmt.Errorf("id: malformed pty window id %q: %w", winID, err)
		}
		return SourceDirectPTY, "", 0, nil
	case strings.HasPrefix(winID, "mux-"):
		rest := strings.TrimPrefix(winID, "mux-")
		sep := strings.LastIndex(rest, ":")
		if sep < 0 {
			return 0, "", 0, fmt.Errorf("id: malformed mux window id %q: missing index", winID)
		}
		name := rest[:sep]
		idx, err := strconv.Atoi(rest[sep+1:])
		if err != nil {
			return 0, "", 0, fmt.Errorf("id: malformed mux window id %q: %w", winID, err)
		}
		return SourceMultiplexed, name, idx, nil
	default:
		return 0, "", 0, fmt.Errorf("id: unrecognized window id %q", winID)
	}
}
