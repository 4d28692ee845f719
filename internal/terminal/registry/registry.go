// Package registry implements the Window Registry (C3): the index from
// window ID to the live *types.Window, grounded on the app.Manager's
// sync.Map-plus-narrow-lock pattern. The Registry holds no domain
// behavior of its own; it is the single place a Window ID resolves to
// its Window, and the single place a Window is removed once Terminal.
package registry

import (
	"sync"

	"github.com/GriffinCanCode/AgentOS/backend/internal/terminal/types"
)

// Registry indexes every live Window by ID. Its zero value is ready to
// use.
type Registry struct {
	windows sync.Map // map[string]*types.Window
}

// New constructs an empty Registry.
func New() *Registry {
	return &Registry{}
}

// Insert adds w to the Registry. Callers insert a Window exactly once,
// immediately after construction, before it is reachable by any other
// goroutine.
func (r *Registry) Insert(w *types.Window) {
	r.windows.Store(w.ID, w)
}

// Get resolves a window ID to its Window.
func (r *Registry) Get(winID string) (*types.Window, error) {
	v, ok := r.windows.Load(winID)
	if !ok {
		return nil, types.ErrNotFound
	}
	return v.(*types.Window), nil
}

// List returns every currently-indexed Window, optionally filtered by
// predicate (nil means no filter).
func (r *Registry) List(predicate func(*types.Window) bool) []*types.Window {
	var out []*types.Window
	r.windows.Range(func(_, value interface{}) bool {
		w := value.(*types.Window)
		if predicate == nil || predicate(w) {
			out = append(out, w)
		}
		return true
	})
	return out
}

// Remove deletes a window ID from the Registry. Callers must have
// already transitioned the Window to Terminal (see types.Window.MarkTerminal)
// before removing it, so a concurrent Get racing the removal either sees
// the Window in Terminal state or gets ErrNotFound, never a half-torn-down
// Window.
func (r *Registry) Remove(winID string) {
	r.windows.Delete(winID)
}

// Count returns the number of currently-indexed Windows.
func (r *Registry) Count() int {
	n := 0
	r.windows.Range(func(_, _ interface{}) bool {
		n++
		return true
	})
	return n
}
