package tmux

import (
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/GriffinCanCode/AgentOS/backend/internal/terminal/types"
)

func requireTmux(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("tmux"); err != nil {
		t.Skip("tmux not installed")
	}
}

func TestEnsureSessionAndKillSession(t *testing.T) {
	requireTmux(t)
	a := NewAdapter("")
	const name = "mobile-adaptertest"
	_ = a.KillSession(name)

	if err := a.EnsureSession(name, "", ""); err != nil {
		t.Fatalf("EnsureSession: %v", err)
	}
	if !a.HasSession(name) {
		t.Fatal("expected session to exist after EnsureSession")
	}
	// Idempotent: calling again must not error.
	if err := a.EnsureSession(name, "", ""); err != nil {
		t.Fatalf("EnsureSession (second call): %v", err)
	}

	if err := a.KillSession(name); err != nil {
		t.Fatalf("KillSession: %v", err)
	}
	if a.HasSession(name) {
		t.Fatal("expected session to be gone after KillSession")
	}
}

func TestListSessionsFiltersByPrefix(t *testing.T) {
	requireTmux(t)
	a := NewAdapter("")
	const name = "mobile-listsessionstest"
	_ = a.KillSession(name)
	if err := a.EnsureSession(name, "", ""); err != nil {
		t.Fatalf("EnsureSession: %v", err)
	}
	defer a.KillSession(name)

	names, err := a.ListSessions("mobile-")
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	found := false
	for _, n := range names {
		if n == name {
			found = true
		}
	}
	if !found {
		t.Errorf("expected %q in %v", name, names)
	}

	names, err = a.ListSessions("no-such-prefix-")
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(names) != 0 {
		t.Errorf("expected no matches, got %v", names)
	}
}

func TestAttachRejectsUnknownSession(t *testing.T) {
	requireTmux(t)
	a := NewAdapter("")
	if _, err := a.Attach("mobile-does-not-exist", 80, 24); err == nil {
		t.Error("expected an error attaching to a nonexistent session")
	}
}

func TestMuxHostWriteAndReadback(t *testing.T) {
	requireTmux(t)
	a := NewAdapter("")
	const name = "mobile-muxhosttest"
	_ = a.KillSession(name)
	if err := a.EnsureSession(name, "", ""); err != nil {
		t.Fatalf("EnsureSession: %v", err)
	}
	defer a.KillSession(name)

	h, err := a.Attach(name, 80, 24)
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}

	got := make(chan []byte, 16)
	h.OnBytes(func(b []byte) { got <- b })

	if _, err := h.Write([]byte("echo marker456\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	deadline := time.After(3 * time.Second)
	found := false
	var buf []byte
	for !found {
		select {
		case chunk := <-got:
			buf = append(buf, chunk...)
			if strings.Contains(string(buf), "marker456") {
				found = true
			}
		case <-deadline:
			t.Fatalf("timed out waiting for marker in output, got %q", buf)
		}
	}
}

func TestKillSessionExitsMuxHost(t *testing.T) {
	requireTmux(t)
	a := NewAdapter("")
	const name = "mobile-muxhostkill"
	_ = a.KillSession(name)
	if err := a.EnsureSession(name, "", ""); err != nil {
		t.Fatalf("EnsureSession: %v", err)
	}

	h, err := a.Attach(name, 80, 24)
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}

	exited := make(chan struct{})
	h.OnExit(func(code int, sig string) { close(exited) })

	if err := h.Kill(types.SignalTerm); err != nil {
		t.Fatalf("Kill: %v", err)
	}

	select {
	case <-exited:
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for OnExit after KillSession")
	}
}
