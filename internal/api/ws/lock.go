package ws

import "sync"

// sinkLock serializes the sink's writes to a single WebSocket connection
// (the scrollback replay during Attach and every later delivery from
// Pump's goroutine), since gorilla/websocket forbids concurrent writers.
type sinkLock struct {
	sync.Mutex
}
