package types

import (
	"testing"

	"github.com/GriffinCanCode/AgentOS/backend/internal/shared/id"
)

type fakeHost struct{}

func (fakeHost) Write(p []byte) (int, error)          { return len(p), nil }
func (fakeHost) Resize(cols, rows int) error          { return nil }
func (fakeHost) Kill(sig Signal) error                { return nil }
func (fakeHost) OnBytes(func(chunk []byte))           {}
func (fakeHost) OnExit(func(exitCode int, sig string)) {}

func TestWindowStartsIdle(t *testing.T) {
	w := NewWindow("pty-x", "shell", "/tmp", id.SourceDirectPTY, fakeHost{}, 80, 24, DefaultScrollbackCap)
	if w.State() != StateIdle {
		t.Errorf("expected StateIdle, got %v", w.State())
	}
}

func TestWindowTransitionsToActiveOnSubscribe(t *testing.T) {
	w := NewWindow("pty-x", "shell", "/tmp", id.SourceDirectPTY, fakeHost{}, 80, 24, DefaultScrollbackCap)
	sub := NewSubscriber(w.ID, DefaultQueueCap, func(Chunk) error { return nil })

	if err := w.AddSubscriber(sub); err != nil {
		t.Fatalf("AddSubscriber: %v", err)
	}
	if w.State() != StateActive {
		t.Errorf("expected StateActive, got %v", w.State())
	}

	w.RemoveSubscriber(sub.SubID)
	if w.State() != StateIdle {
		t.Errorf("expected reversion to StateIdle, got %v", w.State())
	}
}

func TestWindowRejectsSubscribeAfterTerminal(t *testing.T) {
	w := NewWindow("pty-x", "shell", "/tmp", id.SourceDirectPTY, fakeHost{}, 80, 24, DefaultScrollbackCap)
	w.MarkTerminal()

	sub := NewSubscriber(w.ID, DefaultQueueCap, func(Chunk) error { return nil })
	if err := w.AddSubscriber(sub); err != ErrTerminal {
		t.Errorf("expected ErrTerminal, got %v", err)
	}
}

func TestWindowMarkTerminalIsIdempotentAndReturnsSubscribersOnce(t *testing.T) {
	w := NewWindow("pty-x", "shell", "/tmp", id.SourceDirectPTY, fakeHost{}, 80, 24, DefaultScrollbackCap)
	sub := NewSubscriber(w.ID, DefaultQueueCap, func(Chunk) error { return nil })
	_ = w.AddSubscriber(sub)

	first := w.MarkTerminal()
	if len(first) != 1 {
		t.Fatalf("expected 1 subscriber on first MarkTerminal, got %d", len(first))
	}
	second := w.MarkTerminal()
	if second != nil {
		t.Errorf("expected nil on repeated MarkTerminal, got %v", second)
	}
	if w.Host() != nil {
		t.Error("expected Host to be released after MarkTerminal")
	}
}

func TestSubscriberTryEnqueueNonBlocking(t *testing.T) {
	sub := NewSubscriber("pty-x", 1, func(Chunk) error { return nil })
	if !sub.TryEnqueue(Chunk{Kind: ChunkBytes, Bytes: []byte("a")}) {
		t.Fatal("expected first enqueue to succeed")
	}
	if sub.TryEnqueue(Chunk{Kind: ChunkBytes, Bytes: []byte("b")}) {
		t.Error("expected second enqueue on a full queue to fail without blocking")
	}
}

func TestSubscriberEvictsPastThreshold(t *testing.T) {
	sub := NewSubscriber("pty-x", 1, func(Chunk) error { return nil })
	if sub.AddDropped(5, 10) {
		t.Error("should not evict before crossing threshold")
	}
	if !sub.AddDropped(6, 10) {
		t.Error("should evict once cumulative drops exceed threshold")
	}
	if sub.AddDropped(100, 10) {
		t.Error("eviction should fire exactly once")
	}
}
