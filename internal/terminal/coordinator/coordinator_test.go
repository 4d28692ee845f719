package coordinator

import (
	"context"
	"errors"
	"os/exec"
	"testing"
	"time"

	"github.com/GriffinCanCode/AgentOS/backend/internal/shared/id"
	"github.com/GriffinCanCode/AgentOS/backend/internal/terminal/types"
)

func requireTmux(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("tmux"); err != nil {
		t.Skip("tmux not installed")
	}
}

func TestCreateAndGet(t *testing.T) {
	c := New(Config{}, nil)
	win, err := c.Create(context.Background(), CreateSpec{Shell: "/bin/sh", Cols: 80, Rows: 24})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer c.Kill(context.Background(), win.ID)

	got, err := c.Get(win.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != win.ID {
		t.Errorf("Get returned a different window")
	}
}

func TestCreateRejectsInvalidDims(t *testing.T) {
	c := New(Config{}, nil)
	if _, err := c.Create(context.Background(), CreateSpec{Shell: "/bin/sh", Cols: 0, Rows: 24}); !errors.Is(err, types.ErrInvalid) {
		t.Errorf("expected ErrInvalid, got %v", err)
	}
}

func TestAttachReplaysAndStreams(t *testing.T) {
	c := New(Config{}, nil)
	win, err := c.Create(context.Background(), CreateSpec{Shell: "/bin/sh", Cols: 80, Rows: 24})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer c.Kill(context.Background(), win.ID)

	received := make(chan types.Chunk, 16)
	_, sub, err := c.Attach(win.ID, func(ch types.Chunk) error {
		received <- ch
		return nil
	})
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	go pump(win, sub)

	if err := c.Write(win.ID, []byte("echo marker789\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	deadline := time.After(3 * time.Second)
	var buf []byte
	for {
		select {
		case c := <-received:
			if c.Kind == types.ChunkBytes {
				buf = append(buf, c.Bytes...)
			}
			if containsMarker(buf) {
				return
			}
		case <-deadline:
			t.Fatalf("timed out, got %q", buf)
		}
	}
}

func TestKillTransitionsWindowAndRemovesFromRegistry(t *testing.T) {
	c := New(Config{}, nil)
	win, err := c.Create(context.Background(), CreateSpec{Shell: "/bin/sh", Cols: 80, Rows: 24})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := c.Kill(ctx, win.ID); err != nil {
		t.Fatalf("Kill: %v", err)
	}

	if _, err := c.Get(win.ID); err != types.ErrNotFound {
		t.Errorf("expected ErrNotFound after Kill, got %v", err)
	}
}

func TestWriteOnUnknownWindowReturnsErrNotFound(t *testing.T) {
	c := New(Config{}, nil)
	if err := c.Write("pty-nope", []byte("x")); err != types.ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestReconcileExternalIsNoopWithoutTmux(t *testing.T) {
	c := New(Config{TmuxEnabled: false}, nil)
	if gone := c.ReconcileExternal(); gone != nil {
		t.Errorf("expected nil, got %v", gone)
	}
}

func TestReconcileExternalDropsDeadSession(t *testing.T) {
	requireTmux(t)
	c := New(Config{TmuxEnabled: true}, nil)

	win, err := c.Create(context.Background(), CreateSpec{
		ProjectPath:    "/tmp/mobile-reconciletest",
		Shell:          "/bin/sh",
		Cols:           80,
		Rows:           24,
		UseMultiplexer: true,
	})
	if err != nil {
		t.Skipf("tmux multiplexed create unavailable: %v", err)
	}

	received := make(chan types.Chunk, 4)
	_, sub, err := c.Attach(win.ID, func(ch types.Chunk) error {
		received <- ch
		return nil
	})
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	go pump(win, sub)

	_, sessName, _, err := id.ParseWindowID(win.ID)
	if err != nil {
		t.Fatalf("ParseWindowID: %v", err)
	}
	if err := c.tmux.KillSession(sessName); err != nil {
		t.Fatalf("KillSession: %v", err)
	}

	gone := c.ReconcileExternal()
	if len(gone) != 1 || gone[0] != win.ID {
		t.Fatalf("expected [%s] reported gone, got %v", win.ID, gone)
	}
	if _, err := c.Get(win.ID); err != types.ErrNotFound {
		t.Errorf("expected ErrNotFound after reconcile, got %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case ch := <-received:
			if ch.Kind == types.ChunkWindowGone {
				return
			}
		case <-deadline:
			t.Fatal("never received a ChunkWindowGone event")
		}
	}
}

// pump mirrors fanout.Pump without importing it, since coordinator_test
// wants to exercise the Coordinator's own public surface only.
func pump(win *types.Window, sub *types.Subscriber) {
	for c := range sub.Queue {
		if sub.SinkFn(c) != nil || c.Kind != types.ChunkBytes {
			win.RemoveSubscriber(sub.SubID)
			return
		}
	}
}

func containsMarker(b []byte) bool {
	s := string(b)
	const marker = "marker789"
	for i := 0; i+len(marker) <= len(s); i++ {
		if s[i:i+len(marker)] == marker {
			return true
		}
	}
	return false
}
