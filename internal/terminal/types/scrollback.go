package types

import "sync"

// Scrollback is a bounded, byte-transparent record of a Window's most
// recent output, used to replay history to a Subscriber on Attach before
// switching it to the live stream.
//
// Unlike a byte-level circular buffer, eviction is whole-chunk: when an
// appended chunk would push the buffer over capacity, the oldest chunks
// are dropped entire until the new chunk fits, never slicing a chunk in
// two. This keeps replay boundaries aligned with whatever boundaries the
// Host produced, at the cost of occasionally holding slightly less than
// the full nominal capacity.
type Scrollback struct {
	mu     sync.Mutex
	cap    int
	size   int
	chunks [][]byte
}

// NewScrollback constructs an empty Scrollback with the given byte
// capacity. A capacity of 0 disables retention entirely: Append is a
// no-op and Snapshot always returns nil.
func NewScrollback(capBytes int) *Scrollback {
	return &Scrollback{cap: capBytes}
}

// Append records chunk, evicting the oldest retained chunks as needed to
// stay within capacity. A single chunk larger than the whole capacity is
// retained alone, truncated to the trailing capBytes bytes of itself,
// since there is no older data to prefer over it.
func (s *Scrollback) Append(chunk []byte) {
	if s.cap <= 0 || len(chunk) == 0 {
		return
	}
	cp := make([]byte, len(chunk))
	copy(cp, chunk)

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(cp) > s.cap {
		cp = cp[len(cp)-s.cap:]
		s.chunks = [][]byte{cp}
		s.size = len(cp)
		return
	}
	s.chunks = append(s.chunks, cp)
	s.size += len(cp)
	for s.size > s.cap && len(s.chunks) > 1 {
		s.size -= len(s.chunks[0])
		s.chunks = s.chunks[1:]
	}
}

// Snapshot returns the currently retained bytes in order, oldest first,
// as a single contiguous slice safe for the caller to retain.
func (s *Scrollback) Snapshot() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.size == 0 {
		return nil
	}
	out := make([]byte, 0, s.size)
	for _, c := range s.chunks {
		out = append(out, c...)
	}
	return out
}

// Len returns the number of bytes currently retained.
func (s *Scrollback) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}
