// Package http implements the broker's REST surface: window lifecycle
// (Create/List/Get/Kill/Resize) and a scrollback snapshot endpoint,
// backed entirely by the Attachment Coordinator. Sentinel errors from
// internal/terminal/types are mapped to status codes at this boundary;
// the Coordinator itself never knows about HTTP.
package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/backend/internal/terminal/coordinator"
	"github.com/GriffinCanCode/AgentOS/backend/internal/terminal/types"
)

// Handlers holds the dependencies every REST handler needs.
type Handlers struct {
	coord   *coordinator.Coordinator
	metrics *monitoring.Metrics
	log     *zap.Logger
}

// NewHandlers constructs a Handlers. log may be nil.
func NewHandlers(coord *coordinator.Coordinator, metrics *monitoring.Metrics, log *zap.Logger) *Handlers {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handlers{coord: coord, metrics: metrics, log: log}
}

// statusFor maps a sentinel error from internal/terminal/types to an
// HTTP status code.
func statusFor(err error) int {
	switch {
	case errors.Is(err, types.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, types.ErrTerminal):
		return http.StatusConflict
	case errors.Is(err, types.ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, types.ErrSpawn), errors.Is(err, types.ErrGone), errors.Is(err, types.ErrUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handlers) fail(c *gin.Context, op string, err error) {
	status := statusFor(err)
	h.log.Error("request failed", zap.String("op", op), zap.Int("status", status), zap.Error(err))
	c.JSON(status, gin.H{"error": err.Error()})
}

// createRequest is the JSON body for POST /windows.
type createRequest struct {
	Name           string            `json:"name"`
	ProjectPath    string            `json:"project_path"`
	Shell          string            `json:"shell"`
	Cols           int               `json:"cols" binding:"required"`
	Rows           int               `json:"rows" binding:"required"`
	Env            map[string]string `json:"env"`
	UseMultiplexer bool              `json:"use_multiplexer"`
}

// Create handles POST /windows.
func (h *Handlers) Create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	timer := monitoring.NewTimer(h.metrics, "create")
	win, err := h.coord.Create(c.Request.Context(), coordinator.CreateSpec{
		Name:           req.Name,
		ProjectPath:    req.ProjectPath,
		Shell:          req.Shell,
		Cols:           req.Cols,
		Rows:           req.Rows,
		Env:            req.Env,
		UseMultiplexer: req.UseMultiplexer,
	})
	if err != nil {
		timer.Stop("error")
		h.fail(c, "create", err)
		return
	}
	timer.Stop("ok")
	h.metrics.IncWindowsActive(win.Source.String())

	c.JSON(http.StatusCreated, win.ToSummary())
}

// List handles GET /windows. Query params project, source, state filter
// the result when present.
func (h *Handlers) List(c *gin.Context) {
	project := c.Query("project")
	source := c.Query("source")
	state := c.Query("state")

	summaries := h.coord.List()
	out := make([]types.Summary, 0, len(summaries))
	for _, s := range summaries {
		if project != "" && s.ProjectPath != project {
			continue
		}
		if source != "" && s.Source != source {
			continue
		}
		if state != "" && s.State != state {
			continue
		}
		out = append(out, s)
	}
	c.JSON(http.StatusOK, gin.H{"windows": out})
}

// Get handles GET /windows/:id.
func (h *Handlers) Get(c *gin.Context) {
	win, err := h.coord.Get(c.Param("id"))
	if err != nil {
		h.fail(c, "get", err)
		return
	}
	c.JSON(http.StatusOK, win.ToSummary())
}

// Kill handles DELETE /windows/:id.
func (h *Handlers) Kill(c *gin.Context) {
	winID := c.Param("id")
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	timer := monitoring.NewTimer(h.metrics, "kill")
	if err := h.coord.Kill(ctx, winID); err != nil {
		timer.Stop("error")
		h.fail(c, "kill", err)
		return
	}
	timer.Stop("ok")
	c.Status(http.StatusNoContent)
}

// resizeRequest is the JSON body for POST /windows/:id/resize.
type resizeRequest struct {
	Cols int `json:"cols" binding:"required"`
	Rows int `json:"rows" binding:"required"`
}

// Resize handles POST /windows/:id/resize.
func (h *Handlers) Resize(c *gin.Context) {
	var req resizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	if err := h.coord.Resize(c.Param("id"), req.Cols, req.Rows); err != nil {
		h.fail(c, "resize", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Scrollback handles GET /windows/:id/scrollback: a snapshot of the
// Window's current retained output, returned as raw bytes.
func (h *Handlers) Scrollback(c *gin.Context) {
	win, err := h.coord.Get(c.Param("id"))
	if err != nil {
		h.fail(c, "scrollback", err)
		return
	}
	c.Data(http.StatusOK, "application/octet-stream", win.Scrollback().Snapshot())
}

// Health handles GET /healthz.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
