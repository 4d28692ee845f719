package registry

import (
	"testing"

	"github.com/GriffinCanCode/AgentOS/backend/internal/shared/id"
	"github.com/GriffinCanCode/AgentOS/backend/internal/terminal/types"
)

type fakeHost struct{}

func (fakeHost) Write(p []byte) (int, error)          { return len(p), nil }
func (fakeHost) Resize(cols, rows int) error          { return nil }
func (fakeHost) Kill(sig types.Signal) error          { return nil }
func (fakeHost) OnBytes(func(chunk []byte))           {}
func (fakeHost) OnExit(func(exitCode int, sig string)) {}

func newTestWindow(winID string) *types.Window {
	return types.NewWindow(winID, "shell", "/tmp", id.SourceDirectPTY, fakeHost{}, 80, 24, types.DefaultScrollbackCap)
}

func TestInsertAndGet(t *testing.T) {
	r := New()
	w := newTestWindow("pty-a")
	r.Insert(w)

	got, err := r.Get("pty-a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != w {
		t.Error("expected Get to return the same Window pointer")
	}
}

func TestGetMissingReturnsErrNotFound(t *testing.T) {
	r := New()
	if _, err := r.Get("pty-nope"); err != types.ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListFiltersByPredicate(t *testing.T) {
	r := New()
	a := newTestWindow("pty-a")
	b := newTestWindow("pty-b")
	r.Insert(a)
	r.Insert(b)
	_ = b.MarkTerminal()

	active := r.List(func(w *types.Window) bool { return w.State() != types.StateTerminal })
	if len(active) != 1 || active[0].ID != "pty-a" {
		t.Errorf("expected only pty-a to remain, got %v", active)
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	r := New()
	w := newTestWindow("pty-a")
	r.Insert(w)
	r.Remove("pty-a")
	r.Remove("pty-a")

	if _, err := r.Get("pty-a"); err != types.ErrNotFound {
		t.Errorf("expected ErrNotFound after Remove, got %v", err)
	}
	if r.Count() != 0 {
		t.Errorf("Count() = %d, want 0", r.Count())
	}
}
