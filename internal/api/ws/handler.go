// Package ws implements the broker's WebSocket transport: one connection
// per Attach. Binary frames carry Window output and inbound keystrokes;
// text frames carry the resize control message and outbound control
// events (window_exited, slow_consumer_evicted, window_gone).
package ws

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/backend/internal/terminal/coordinator"
	"github.com/GriffinCanCode/AgentOS/backend/internal/terminal/fanout"
	"github.com/GriffinCanCode/AgentOS/backend/internal/terminal/types"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// controlMessage is the shape of every inbound and outbound text frame.
type controlMessage struct {
	Type string `json:"type"`
	Cols int    `json:"cols,omitempty"`
	Rows int    `json:"rows,omitempty"`

	ExitCode     int    `json:"exit_code,omitempty"`
	Signal       string `json:"signal,omitempty"`
	DroppedBytes int64  `json:"dropped_bytes,omitempty"`
}

// Handler manages WebSocket connections for the Attach/stream endpoint.
type Handler struct {
	coord   *coordinator.Coordinator
	metrics *monitoring.Metrics
	log     *zap.Logger
}

// NewHandler constructs a Handler. log may be nil.
func NewHandler(coord *coordinator.Coordinator, metrics *monitoring.Metrics, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{coord: coord, metrics: metrics, log: log}
}

// HandleStream handles GET /windows/:id/stream?cols=&rows=. It upgrades
// the connection, attaches to the Window, relays Fanout deliveries as
// outbound frames, and forwards inbound frames to Write/Resize until the
// socket closes, at which point it detaches.
func (h *Handler) HandleStream(c *gin.Context) {
	winID := c.Param("id")

	if _, err := h.coord.Get(winID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.String("window_id", winID), zap.Error(err))
		return
	}
	defer conn.Close()

	h.metrics.IncWSConnections()
	defer h.metrics.DecWSConnections()

	if cols, err := strconv.Atoi(c.Query("cols")); err == nil && cols > 0 {
		if rows, err := strconv.Atoi(c.Query("rows")); err == nil && rows > 0 {
			if err := h.coord.Resize(winID, cols, rows); err != nil {
				h.log.Warn("initial resize failed", zap.String("window_id", winID), zap.Error(err))
			}
		}
	}

	var writeMu sinkLock
	win, sub, err := h.coord.Attach(winID, func(chunk types.Chunk) error {
		return h.deliver(conn, &writeMu, chunk)
	})
	if err != nil {
		h.log.Warn("attach failed", zap.String("window_id", winID), zap.Error(err))
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, err.Error()))
		return
	}
	h.metrics.IncSubscribersActive()

	go fanout.Pump(win, sub)

	defer func() {
		h.coord.Detach(win, sub)
		h.metrics.DecSubscribersActive()
	}()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		switch msgType {
		case websocket.BinaryMessage:
			if err := h.coord.Write(winID, data); err != nil {
				h.log.Warn("write failed", zap.String("window_id", winID), zap.Error(err))
				return
			}
			h.metrics.AddBytesWritten(len(data))
		case websocket.TextMessage:
			var msg controlMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				continue
			}
			if msg.Type == "resize" && msg.Cols > 0 && msg.Rows > 0 {
				if err := h.coord.Resize(winID, msg.Cols, msg.Rows); err != nil {
					h.log.Warn("resize failed", zap.String("window_id", winID), zap.Error(err))
				}
			}
		}
	}
}

// deliver writes one Chunk to conn: a binary frame for output bytes, a
// JSON text frame for a control event. Writes are serialized through mu,
// since gorilla/websocket forbids concurrent writers on one connection.
func (h *Handler) deliver(conn *websocket.Conn, mu *sinkLock, chunk types.Chunk) error {
	mu.Lock()
	defer mu.Unlock()

	switch chunk.Kind {
	case types.ChunkBytes:
		h.metrics.AddBytesRead(len(chunk.Bytes))
		return conn.WriteMessage(websocket.BinaryMessage, chunk.Bytes)
	case types.ChunkWindowExited:
		return conn.WriteJSON(controlMessage{Type: "window_exited", ExitCode: chunk.ExitCode, Signal: chunk.Signal})
	case types.ChunkSlowConsumerEvicted:
		h.metrics.IncSlowConsumerEvictions()
		return conn.WriteJSON(controlMessage{Type: "slow_consumer_evicted", DroppedBytes: chunk.DroppedBytes})
	case types.ChunkWindowGone:
		return conn.WriteJSON(controlMessage{Type: "window_gone"})
	default:
		return nil
	}
}
