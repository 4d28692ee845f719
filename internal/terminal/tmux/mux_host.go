package tmux

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/creack/pty"

	"github.com/GriffinCanCode/AgentOS/backend/internal/terminal/types"
)

// MuxHost is a types.Host backed by a local `tmux attach-session` client
// running under its own PTY. Bytes written to MuxHost go to the attach
// client's PTY, which tmux forwards to the named session exactly as a
// real terminal would; bytes read back are the session's rendered
// output. Killing a MuxHost kills the underlying tmux session, not just
// the local attach client, since the session has no other owner once
// the broker created it.
type MuxHost struct {
	adapter *Adapter
	session string

	cmd  *exec.Cmd
	ptmx *os.File

	mu       sync.Mutex
	closed   bool
	onBytes  func([]byte)
	onExit   func(int, string)
	exitOnce sync.Once
}

// Attach starts a local `tmux attach-session -t session` client under a
// PTY of the given size and returns the resulting MuxHost. The named
// session must already exist (see Adapter.EnsureSession).
func (a *Adapter) Attach(session string, cols, rows int) (*MuxHost, error) {
	if !a.HasSession(session) {
		return nil, fmt.Errorf("%w: no tmux session %q", types.ErrGone, session)
	}

	cmd := exec.Command(a.binary, "attach-session", "-t", session)
	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)})
	if err != nil {
		return nil, fmt.Errorf("%w: tmux attach-session: %v", types.ErrSpawn, err)
	}

	h := &MuxHost{adapter: a, session: session, cmd: cmd, ptmx: ptmx}
	go h.readLoop()
	go h.waitLoop()
	return h, nil
}

func (h *MuxHost) OnBytes(fn func([]byte)) {
	h.mu.Lock()
	h.onBytes = fn
	h.mu.Unlock()
}

func (h *MuxHost) OnExit(fn func(int, string)) {
	h.mu.Lock()
	h.onExit = fn
	h.mu.Unlock()
}

func (h *MuxHost) readLoop() {
	buf := make([]byte, 4096)
	for {
		n, err := h.ptmx.Read(buf)
		if n > 0 {
			h.mu.Lock()
			cb := h.onBytes
			h.mu.Unlock()
			if cb != nil {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				cb(chunk)
			}
		}
		if err != nil {
			if err != io.EOF {
				// EOF or a torn-down PTY both mean the attach client is gone.
			}
			return
		}
	}
}

// waitLoop waits for the local attach client to exit. This happens when
// the tmux session itself is killed (by us or externally) or the
// attach client is detached with a forced exit; a plain `tmux detach`
// from inside the session is not observable here since it terminates
// the client too, which is the desired behavior for this broker (a
// Window's lifetime is the session's lifetime, not one client's).
func (h *MuxHost) waitLoop() {
	err := h.cmd.Wait()

	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()
	h.ptmx.Close()

	exitCode := 0
	signal := ""
	if err != nil {
		exitCode = -1
	}

	h.exitOnce.Do(func() {
		h.mu.Lock()
		cb := h.onExit
		h.mu.Unlock()
		if cb != nil {
			cb(exitCode, signal)
		}
	})
}

// Write sends input bytes to the tmux client's PTY.
func (h *MuxHost) Write(p []byte) (int, error) {
	h.mu.Lock()
	closed := h.closed
	h.mu.Unlock()
	if closed {
		return 0, types.ErrClosed
	}
	return h.ptmx.Write(p)
}

// Resize changes the local attach PTY's window size; tmux propagates
// this to the session's window as the largest attached client's size.
func (h *MuxHost) Resize(cols, rows int) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return types.ErrClosed
	}
	h.mu.Unlock()
	return pty.Setsize(h.ptmx, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)})
}

// Kill terminates the tmux session backing this Host, not just the
// local attach client, since the broker is the session's sole owner.
func (h *MuxHost) Kill(sig types.Signal) error {
	return h.adapter.KillSession(h.session)
}
