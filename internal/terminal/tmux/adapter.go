// Package tmux implements the External Session Adapter (C2): it drives
// an installed tmux binary to create and address named sessions, and
// attaches a local PTY to a session's client so the resulting
// MuxHost satisfies the same types.Host capability set the direct-PTY
// backend does. Grounded on the reference tty backend's
// TmuxManager/TmuxSession wrapper, generalized to the broker's Window
// model. The new-session, list-sessions and kill-session calls go
// through a circuit breaker, so after repeated tmux failures those calls
// fail fast with types.ErrUnavailable. The breaker sets no per-call
// timeout, and has-session and the attach client run outside it.
package tmux

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/GriffinCanCode/AgentOS/backend/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/AgentOS/backend/internal/terminal/types"
)

// Adapter drives the tmux binary. A single Adapter is shared by every
// multiplexed Window in the broker.
type Adapter struct {
	binary  string
	breaker *resilience.Breaker
}

// NewAdapter constructs an Adapter. binary defaults to "tmux" resolved
// via PATH.
func NewAdapter(binary string) *Adapter {
	if binary == "" {
		binary = "tmux"
	}
	return &Adapter{
		binary: binary,
		breaker: resilience.New("tmux", resilience.Settings{
			MaxRequests: 1,
			Interval:    30 * time.Second,
			Timeout:     10 * time.Second,
			ReadyToTrip: func(c resilience.Counts) bool {
				return c.ConsecutiveFailures >= 3
			},
		}),
	}
}

// IsAvailable reports whether the tmux binary can be found on PATH.
func (a *Adapter) IsAvailable() bool {
	_, err := exec.LookPath(a.binary)
	return err == nil
}

func (a *Adapter) run(args ...string) error {
	_, err := a.breaker.Execute(func() (interface{}, error) {
		return nil, exec.Command(a.binary, args...).Run()
	})
	if err == resilience.ErrCircuitOpen || err == resilience.ErrTooManyRequests {
		return fmt.Errorf("%w: %v", types.ErrUnavailable, err)
	}
	return err
}

func (a *Adapter) output(args ...string) (string, error) {
	res, err := a.breaker.Execute(func() (interface{}, error) {
		return exec.Command(a.binary, args...).Output()
	})
	if err == resilience.ErrCircuitOpen || err == resilience.ErrTooManyRequests {
		return "", fmt.Errorf("%w: %v", types.ErrUnavailable, err)
	}
	if err != nil {
		return "", err
	}
	return string(res.([]byte)), nil
}

// HasSession reports whether a tmux session with the given name exists.
func (a *Adapter) HasSession(name string) bool {
	return exec.Command(a.binary, "has-session", "-t", name).Run() == nil
}

// EnsureSession creates the named session if it does not already exist,
// running shellCmd (or the user's default shell, if empty) inside it.
func (a *Adapter) EnsureSession(name, workDir, shellCmd string) error {
	if a.HasSession(name) {
		return nil
	}
	args := []string{"new-session", "-d", "-s", name}
	if workDir != "" {
		args = append(args, "-c", workDir)
	}
	if shellCmd != "" {
		args = append(args, shellCmd)
	}
	if err := a.run(args...); err != nil {
		return fmt.Errorf("%w: tmux new-session: %v", types.ErrSpawn, err)
	}
	return nil
}

// ListSessions returns the names of tmux sessions with the given prefix.
// A breaker-open or otherwise unavailable tmux is reported as an error
// rather than folded into "no sessions", since a caller reconciling the
// Registry against this list must not mistake a transient tmux outage
// for every session having vanished.
func (a *Adapter) ListSessions(prefix string) ([]string, error) {
	out, err := a.output("list-sessions", "-F", "#{session_name}")
	if err != nil {
		if errors.Is(err, types.ErrUnavailable) {
			return nil, err
		}
		// tmux exits non-zero with no server running; that means no
		// sessions, not an error condition.
		return nil, nil
	}
	var names []string
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		line = strings.TrimSpace(line)
		if line != "" && strings.HasPrefix(line, prefix) {
			names = append(names, line)
		}
	}
	return names, nil
}

// KillSession terminates a tmux session outright.
func (a *Adapter) KillSession(name string) error {
	if !a.HasSession(name) {
		return nil
	}
	if err := a.run("kill-session", "-t", name); err != nil {
		return fmt.Errorf("%w: tmux kill-session: %v", types.ErrGone, err)
	}
	return nil
}
