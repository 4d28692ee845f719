// Package fanout implements the Output Fanout (C4): it drives each
// Window's single byte-stream callback, appends every chunk to the
// Window's Scrollback, and delivers the same chunk to every attached
// Subscriber through a bounded, non-blocking per-Subscriber queue.
//
// Delivery never blocks on a slow Subscriber: TryEnqueue either lands
// the chunk or the chunk is dropped for that Subscriber alone, and
// cumulative drops past types.DefaultEvictThresh evict the Subscriber
// rather than let it fall further behind. Each Subscriber's deliveries
// run on its own goroutine draining Queue into SinkFn, so one slow
// transport cannot stall another Subscriber's delivery.
package fanout

import (
	"github.com/GriffinCanCode/AgentOS/backend/internal/terminal/types"
)

// Fanout drives output delivery for a single Window. One Fanout is
// created per Window, immediately after its Host is spawned.
type Fanout struct {
	win         *types.Window
	evictThresh int64
	onEvict     func(sub *types.Subscriber)
}

// New wires a Fanout to win's Host: it registers the Host's OnBytes
// callback, which appends every chunk to the Window's Scrollback and
// fans it out to every current Subscriber. onEvict is invoked whenever
// a Subscriber crosses evictThresh and is evicted, so the Coordinator
// can detach it and deliver a slow_consumer_evicted control event.
func New(win *types.Window, evictThresh int64, onEvict func(*types.Subscriber)) *Fanout {
	f := &Fanout{win: win, evictThresh: evictThresh, onEvict: onEvict}
	host := win.Host()
	if host != nil {
		host.OnBytes(f.deliver)
		host.OnExit(f.onHostExit)
	}
	return f
}

// deliver is the Host's byte-stream callback: append to Scrollback and
// take the current Subscriber set in the same atomic step Subscribe uses
// (types.Window.AppendOutput), then offer the chunk to each Subscriber
// without blocking on any one of them.
func (f *Fanout) deliver(chunk []byte) {
	for _, sub := range f.win.AppendOutput(chunk) {
		c := types.Chunk{Kind: types.ChunkBytes, Bytes: chunk}
		if sub.TryEnqueue(c) {
			continue
		}
		if sub.AddDropped(len(chunk), f.evictThresh) {
			f.evict(sub)
		}
	}
}

// onHostExit marks the Window Terminal and delivers a final
// window_exited Chunk to every Subscriber attached at that moment.
func (f *Fanout) onHostExit(exitCode int, signal string) {
	subs := f.win.MarkTerminal()
	for _, sub := range subs {
		sub.TryEnqueue(types.Chunk{Kind: types.ChunkWindowExited, ExitCode: exitCode, Signal: signal})
	}
}

func (f *Fanout) evict(sub *types.Subscriber) {
	sub.TryEnqueue(types.Chunk{Kind: types.ChunkSlowConsumerEvicted, DroppedBytes: sub.DroppedBytes()})
	f.win.RemoveSubscriber(sub.SubID)
	if f.onEvict != nil {
		f.onEvict(sub)
	}
}

// Subscribe attaches a new Subscriber to win: it atomically takes a
// Scrollback snapshot and joins the live subscriber set
// (types.Window.AttachSubscriber), then replays that snapshot through
// sink before returning. The atomic snapshot-plus-join is what closes
// the gap between "read scrollback" and "join live fan out" — a chunk
// deliver appends concurrently is captured by exactly one of the
// snapshot or the live queue, never both and never neither, since
// AppendOutput and AttachSubscriber share the same Window lock.
func Subscribe(win *types.Window, qCap int, sink types.SinkFn) (*types.Subscriber, error) {
	sub := types.NewSubscriber(win.ID, qCap, sink)

	snapshot, err := win.AttachSubscriber(sub)
	if err != nil {
		return nil, err
	}

	if len(snapshot) > 0 {
		if err := sink(types.Chunk{Kind: types.ChunkBytes, Bytes: snapshot}); err != nil {
			win.RemoveSubscriber(sub.SubID)
			return nil, err
		}
	}

	return sub, nil
}

// Pump drains sub.Queue into sub.SinkFn until the queue is closed or the
// sink returns an error, at which point the caller should detach the
// Subscriber. Callers run this on its own goroutine per Subscriber.
func Pump(win *types.Window, sub *types.Subscriber) {
	for c := range sub.Queue {
		if err := sub.SinkFn(c); err != nil {
			win.RemoveSubscriber(sub.SubID)
			return
		}
		if c.Kind != types.ChunkBytes {
			win.RemoveSubscriber(sub.SubID)
			return
		}
	}
}
