// Package coordinator implements the Attachment Coordinator (C5): the
// single entry point the transport layer calls through. It owns Window
// creation (choosing and spawning the right Host for a request), Attach
// and Detach (wiring and unwiring a Subscriber through fanout.Subscribe
// and fanout.Pump), Write (serialized per-Window through
// types.Window.WriterLock), Resize, and Kill (tearing a Window down and
// removing it from the Registry once it reaches Terminal).
//
// Kill is the only operation bounded by a deadline (Config.OpTimeout
// plus types.DefaultKillGrace), so a wedged backend cannot hold the
// caller forever; the bound is a deadline rather than a breaker, since
// the backend (a spawned child, or tmux via its own breaker) is not a
// shared resource whose failure should be remembered across calls.
// Create, Attach, Write and Resize run without a deadline and return
// only when the underlying Host call returns.
package coordinator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/backend/internal/shared/id"
	"github.com/GriffinCanCode/AgentOS/backend/internal/terminal/fanout"
	"github.com/GriffinCanCode/AgentOS/backend/internal/terminal/host"
	"github.com/GriffinCanCode/AgentOS/backend/internal/terminal/registry"
	"github.com/GriffinCanCode/AgentOS/backend/internal/terminal/tmux"
	"github.com/GriffinCanCode/AgentOS/backend/internal/terminal/types"
)

// Config bounds the Coordinator's resource and timing defaults.
type Config struct {
	ScrollbackCap int
	QueueCap      int
	EvictThresh   int64
	OpTimeout     time.Duration
	TmuxEnabled   bool
	TmuxBinary    string
}

// Coordinator is the broker's single point of entry for window lifecycle
// and I/O operations.
type Coordinator struct {
	reg  *registry.Registry
	cfg  Config
	tmux *tmux.Adapter
	log  *zap.Logger
}

// New constructs a Coordinator. log may be nil, in which case a no-op
// logger is used.
func New(cfg Config, log *zap.Logger) *Coordinator {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.ScrollbackCap <= 0 {
		cfg.ScrollbackCap = types.DefaultScrollbackCap
	}
	if cfg.QueueCap <= 0 {
		cfg.QueueCap = types.DefaultQueueCap
	}
	if cfg.EvictThresh <= 0 {
		cfg.EvictThresh = types.DefaultEvictThresh
	}
	if cfg.OpTimeout <= 0 {
		cfg.OpTimeout = types.DefaultOpTimeout
	}
	c := &Coordinator{reg: registry.New(), cfg: cfg, log: log}
	if cfg.TmuxEnabled {
		c.tmux = tmux.NewAdapter(cfg.TmuxBinary)
	}
	return c
}

// CreateSpec describes a window creation request.
type CreateSpec struct {
	Name        string
	ProjectPath string
	Shell       string
	Cols, Rows  int
	Env         map[string]string
	// UseMultiplexer selects the External Session Adapter rather than a
	// direct PTY. Ignored (treated as false) when the Coordinator was
	// constructed without tmux enabled or no tmux binary is reachable.
	UseMultiplexer bool
}

// Create spawns a new Window and inserts it into the Registry. The
// returned Window has no Subscribers yet; Fanout is already wired so no
// output is lost between Create and the first Attach, since the
// Scrollback begins accumulating immediately.
func (c *Coordinator) Create(ctx context.Context, spec CreateSpec) (*types.Window, error) {
	if spec.Cols <= 0 || spec.Rows <= 0 {
		return nil, fmt.Errorf("%w: cols and rows must be positive", types.ErrInvalid)
	}

	useMux := spec.UseMultiplexer && c.tmux != nil && c.tmux.IsAvailable()

	var (
		winID  string
		source id.Source
		h      types.Host
	)

	if useMux {
		sessName := id.SessionName(spec.ProjectPath)
		if err := c.tmux.EnsureSession(sessName, spec.ProjectPath, spec.Shell); err != nil {
			return nil, err
		}
		muxHost, attachErr := c.tmux.Attach(sessName, spec.Cols, spec.Rows)
		if attachErr != nil {
			return nil, attachErr
		}
		h = muxHost
		source = id.SourceMultiplexed
		winID = id.NewMuxWindowID(sessName, 0)
	} else {
		pHost, spawnErr := host.Spawn(host.Spec{
			Shell:      spec.Shell,
			WorkingDir: spec.ProjectPath,
			Cols:       spec.Cols,
			Rows:       spec.Rows,
			Env:        spec.Env,
		})
		if spawnErr != nil {
			return nil, spawnErr
		}
		h = pHost
		source = id.SourceDirectPTY
		winID = id.NewPTYWindowID()
	}

	name := spec.Name
	if name == "" {
		name = spec.Shell
	}

	win := types.NewWindow(winID, name, spec.ProjectPath, source, h, spec.Cols, spec.Rows, c.cfg.ScrollbackCap)
	fanout.New(win, c.cfg.EvictThresh, func(sub *types.Subscriber) {
		c.log.Warn("subscriber evicted as slow consumer",
			zap.String("window_id", win.ID), zap.String("sub_id", string(sub.SubID)))
	})
	c.reg.Insert(win)

	c.log.Info("window created",
		zap.String("window_id", win.ID), zap.String("source", source.String()))
	return win, nil
}

// Get resolves a window ID.
func (c *Coordinator) Get(winID string) (*types.Window, error) {
	return c.reg.Get(winID)
}

// List returns a Summary for every currently-indexed Window.
func (c *Coordinator) List() []types.Summary {
	windows := c.reg.List(nil)
	out := make([]types.Summary, 0, len(windows))
	for _, w := range windows {
		out = append(out, w.ToSummary())
	}
	return out
}

// Attach registers a new Subscriber on winID and returns it already
// replaying the Window's Scrollback through sink. Callers must run
// fanout.Pump(win, sub) on their own goroutine to receive the live
// stream, and call Detach when the transport closes.
func (c *Coordinator) Attach(winID string, sink types.SinkFn) (*types.Window, *types.Subscriber, error) {
	win, err := c.reg.Get(winID)
	if err != nil {
		return nil, nil, err
	}
	sub, err := fanout.Subscribe(win, c.cfg.QueueCap, sink)
	if err != nil {
		return nil, nil, err
	}
	return win, sub, nil
}

// Detach removes sub from win and closes its queue, stopping the
// associated fanout.Pump goroutine. sub.Close is serialized against
// fanout's concurrent TryEnqueue, so a chunk delivered mid-detach can
// never be sent on an already-closed queue.
func (c *Coordinator) Detach(win *types.Window, sub *types.Subscriber) {
	win.RemoveSubscriber(sub.SubID)
	sub.Close()
}

// Write serializes input bytes to winID's Host. Concurrent Write calls
// on the same Window never interleave, enforced by Window.WriterLock.
func (c *Coordinator) Write(winID string, p []byte) error {
	win, err := c.reg.Get(winID)
	if err != nil {
		return err
	}
	if win.State() == types.StateTerminal {
		return types.ErrTerminal
	}
	unlock := win.WriterLock()
	defer unlock()

	h := win.Host()
	if h == nil {
		return types.ErrTerminal
	}
	_, err = h.Write(p)
	return err
}

// Resize changes winID's viewport.
func (c *Coordinator) Resize(winID string, cols, rows int) error {
	if cols <= 0 || rows <= 0 {
		return fmt.Errorf("%w: cols and rows must be positive", types.ErrInvalid)
	}
	win, err := c.reg.Get(winID)
	if err != nil {
		return err
	}
	h := win.Host()
	if h == nil {
		return types.ErrTerminal
	}
	if err := h.Resize(cols, rows); err != nil {
		return err
	}
	win.SetDims(cols, rows)
	return nil
}

// Kill tears down winID's Host and waits for the Window to reach
// Terminal (driven by the Host's exit callback via fanout.onHostExit)
// before removing it from the Registry, bounded by ctx and by
// Config.OpTimeout plus types.DefaultKillGrace so a Host that never
// reports exit cannot wedge the caller forever.
func (c *Coordinator) Kill(ctx context.Context, winID string) error {
	win, err := c.reg.Get(winID)
	if err != nil {
		return err
	}
	h := win.Host()
	if h == nil {
		c.reg.Remove(winID)
		return nil
	}
	if err := h.Kill(types.SignalTerm); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.OpTimeout+types.DefaultKillGrace)
	defer cancel()

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		if win.State() == types.StateTerminal {
			c.reg.Remove(winID)
			c.log.Info("window killed", zap.String("window_id", winID))
			return nil
		}
		select {
		case <-ctx.Done():
			return types.ErrTimeout
		case <-ticker.C:
		}
	}
}

// ReconcileExternal re-enumerates the broker's tmux sessions via
// tmux.Adapter.ListSessions and drops Registry entries for multiplexed
// Windows whose backing session is no longer in that list — e.g. after
// the broker restarted and lost its in-memory Registry while tmux
// sessions it previously created were killed independently. It is a
// no-op when the Coordinator was constructed without tmux enabled.
// Returns the IDs of Windows removed this way.
func (c *Coordinator) ReconcileExternal() []string {
	if c.tmux == nil {
		return nil
	}
	live, err := c.tmux.ListSessions(id.MuxNamespace)
	if err != nil {
		c.log.Warn("reconcile: list sessions failed", zap.Error(err))
		return nil
	}
	liveSet := make(map[string]struct{}, len(live))
	for _, name := range live {
		liveSet[name] = struct{}{}
	}

	windows := c.reg.List(func(w *types.Window) bool {
		return w.Source == id.SourceMultiplexed
	})

	var gone []string
	for _, win := range windows {
		_, sessName, _, err := id.ParseWindowID(win.ID)
		if err != nil {
			continue
		}
		if _, ok := liveSet[sessName]; ok {
			continue
		}
		for _, sub := range win.MarkTerminal() {
			sub.TryEnqueue(types.Chunk{Kind: types.ChunkWindowGone})
		}
		c.reg.Remove(win.ID)
		gone = append(gone, win.ID)
		c.log.Info("external window gone", zap.String("window_id", win.ID))
	}
	return gone
}
