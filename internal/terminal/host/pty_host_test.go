package host

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/GriffinCanCode/AgentOS/backend/internal/terminal/types"
)

func TestSpawnEchoesWrittenInput(t *testing.T) {
	h, err := Spawn(Spec{Shell: "/bin/sh", Cols: 80, Rows: 24})
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	defer h.Kill(types.SignalKill)

	var mu sync.Mutex
	var got bytes.Buffer
	done := make(chan struct{})
	h.OnBytes(func(chunk []byte) {
		mu.Lock()
		got.Write(chunk)
		found := bytes.Contains(got.Bytes(), []byte("marker123"))
		mu.Unlock()
		if found {
			select {
			case done <- struct{}{}:
			default:
			}
		}
	})

	if _, err := h.Write([]byte("echo marker123\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for echoed output")
	}
}

func TestKillInvokesOnExit(t *testing.T) {
	h, err := Spawn(Spec{Shell: "/bin/sh"})
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}

	exited := make(chan struct{})
	h.OnExit(func(code int, sig string) {
		close(exited)
	})

	if err := h.Kill(types.SignalTerm); err != nil {
		t.Fatalf("Kill: %v", err)
	}

	select {
	case <-exited:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for OnExit")
	}

	if _, err := h.Write([]byte("x")); err != types.ErrClosed {
		t.Errorf("expected ErrClosed after exit, got %v", err)
	}
}

func TestResizeUpdatesDims(t *testing.T) {
	h, err := Spawn(Spec{Shell: "/bin/sh", Cols: 80, Rows: 24})
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	defer h.Kill(types.SignalKill)

	if err := h.Resize(120, 40); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	cols, rows := h.Dims()
	if cols != 120 || rows != 40 {
		t.Errorf("Dims() = (%d, %d), want (120, 40)", cols, rows)
	}
}
