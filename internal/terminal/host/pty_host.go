// Package host implements the direct-PTY backend (C1): it spawns a shell
// under a pseudo-terminal and exposes it through the types.Host
// capability set, a single-Window-per-Host shape the Coordinator can
// wire uniformly alongside the multiplexed backend.
package host

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/creack/pty"

	"github.com/GriffinCanCode/AgentOS/backend/internal/terminal/types"
)

// Spec describes how to spawn a direct-PTY Host.
type Spec struct {
	Shell      string
	WorkingDir string
	Cols, Rows int
	Env        map[string]string
}

// PTYHost is a types.Host backed by a spawned child process attached to
// a pseudo-terminal.
type PTYHost struct {
	cmd  *exec.Cmd
	ptmx *os.File

	mu       sync.Mutex
	closed   bool
	cols     int
	rows     int
	onBytes  func([]byte)
	onExit   func(int, string)
	exitOnce sync.Once
}

// Spawn starts a new shell under a PTY per spec, placing it in its own
// session (Setsid) so signals delivered to the broker's own process
// group never reach the child.
func Spawn(spec Spec) (*PTYHost, error) {
	shell := spec.Shell
	if shell == "" {
		shell = os.Getenv("SHELL")
		if shell == "" {
			shell = "/bin/bash"
		}
	}
	workingDir := spec.WorkingDir
	if workingDir == "" {
		workingDir = os.Getenv("HOME")
		if workingDir == "" {
			workingDir = "/tmp"
		}
	}
	cols, rows := spec.Cols, spec.Rows
	if cols <= 0 {
		cols = 80
	}
	if rows <= 0 {
		rows = 24
	}

	cmd := exec.Command(shell)
	cmd.Dir = workingDir
	cmd.Env = os.Environ()
	cmd.Env = append(cmd.Env, "TERM=xterm-256color")
	for k, v := range spec.Env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrSpawn, err)
	}

	h := &PTYHost{cmd: cmd, ptmx: ptmx, cols: cols, rows: rows}
	go h.readLoop()
	go h.waitLoop()
	return h, nil
}

// OnBytes registers the reader task's byte-stream callback. Must be
// called before output arrives to avoid dropping early bytes; callers
// invoke it immediately after Spawn returns, before releasing the
// Window to the Registry.
func (h *PTYHost) OnBytes(fn func([]byte)) {
	h.mu.Lock()
	h.onBytes = fn
	h.mu.Unlock()
}

// OnExit registers the exit callback, invoked exactly once.
func (h *PTYHost) OnExit(fn func(int, string)) {
	h.mu.Lock()
	h.onExit = fn
	h.mu.Unlock()
}

func (h *PTYHost) readLoop() {
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
				// A PTY read error other than EOF means the master side is
				// gone; treat it the same as process exit.
			}
			return
		}
	}
}

func (h *PTYHost) waitLoop() {
	err := h.cmd.Wait()

	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()
	h.ptmx.Close()

	exitCode, signal := exitResult(err)
	h.exitOnce.Do(func() {
		h.mu.Lock()
		cb := h.onExit
		h.mu.Unlock()
		if cb != nil {
			cb(exitCode, signal)
		}
	})
}

func exitResult(waitErr error) (exitCode int, signal string) {
	if waitErr == nil {
		return 0, ""
	}
	if exitErr, ok := waitErr.(*exec.ExitError); ok {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
			if status.Signaled() {
				return -1, status.Signal().String()
			}
			return status.ExitStatus(), ""
		}
		return exitErr.ExitCode(), ""
	}
	return -1, ""
}

// Write sends input bytes to the child's PTY.
func (h *PTYHost) Write(p []byte) (int, error) {
	h.mu.Lock()
	closed := h.closed
	h.mu.Unlock()
	if closed {
		return 0, types.ErrClosed
	}
	return h.ptmx.Write(p)
}

// Resize changes the PTY's window size.
func (h *PTYHost) Resize(cols, rows int) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return types.ErrClosed
	}
	h.cols, h.rows = cols, rows
	h.mu.Unlock()
	return pty.Setsize(h.ptmx, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)})
}

// Kill terminates the child: SIGTERM, then SIGKILL if it has not exited
// within types.DefaultKillGrace.
func (h *PTYHost) Kill(sig types.Signal) error {
	h.mu.Lock()
	closed := h.closed
	proc := h.cmd.Process
	h.mu.Unlock()
	if closed || proc == nil {
		return nil
	}

	if sig == types.SignalKill {
		return proc.Signal(syscall.SIGKILL)
	}

	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return err
	}

	deadline := time.Now().Add(types.DefaultKillGrace)
	for time.Now().Before(deadline) {
		h.mu.Lock()
		closed = h.closed
		h.mu.Unlock()
		if closed {
			return nil
		}
		time.Sleep(10 * time.Millisecond)
	}

	h.mu.Lock()
	closed = h.closed
	h.mu.Unlock()
	if closed {
		return nil
	}
	return proc.Signal(syscall.SIGKILL)
}

// Dims returns the PTY's current window size.
func (h *PTYHost) Dims() (cols, rows int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cols, h.rows
}
