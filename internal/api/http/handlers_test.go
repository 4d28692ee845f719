package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/GriffinCanCode/AgentOS/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/backend/internal/terminal/coordinator"
)

func newTestHandlers(t *testing.T) *Handlers {
	t.Helper()
	gin.SetMode(gin.TestMode)
	prometheus.DefaultRegisterer = prometheus.NewRegistry()
	coord := coordinator.New(coordinator.Config{TmuxEnabled: false}, nil)
	return NewHandlers(coord, monitoring.NewMetrics(), nil)
}

func router(h *Handlers) *gin.Engine {
	r := gin.New()
	r.GET("/healthz", h.Health)
	r.POST("/windows", h.Create)
	r.GET("/windows", h.List)
	r.GET("/windows/:id", h.Get)
	r.DELETE("/windows/:id", h.Kill)
	r.POST("/windows/:id/resize", h.Resize)
	r.GET("/windows/:id/scrollback", h.Scrollback)
	return r
}

func createWindow(t *testing.T, r *gin.Engine) string {
	t.Helper()
	body, _ := json.Marshal(createRequest{Shell: "/bin/sh", Cols: 80, Rows: 24})
	req := httptest.NewRequest(http.MethodPost, "/windows", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var summary struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("unmarshal summary: %v", err)
	}
	return summary.ID
}

func TestHealthReturnsOK(t *testing.T) {
	h := newTestHandlers(t)
	r := router(h)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestCreateAndGetWindow(t *testing.T) {
	h := newTestHandlers(t)
	r := router(h)

	winID := createWindow(t, r)
	defer h.coord.Kill(context.Background(), winID)

	req := httptest.NewRequest(http.MethodGet, "/windows/"+winID, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestGetUnknownWindowReturns404(t *testing.T) {
	h := newTestHandlers(t)
	r := router(h)

	req := httptest.NewRequest(http.MethodGet, "/windows/pty-does-not-exist", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestCreateRejectsMissingDims(t *testing.T) {
	h := newTestHandlers(t)
	r := router(h)

	body, _ := json.Marshal(map[string]string{"shell": "/bin/sh"})
	req := httptest.NewRequest(http.MethodPost, "/windows", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestResizeWindow(t *testing.T) {
	h := newTestHandlers(t)
	r := router(h)

	winID := createWindow(t, r)
	defer h.coord.Kill(context.Background(), winID)

	body, _ := json.Marshal(resizeRequest{Cols: 100, Rows: 40})
	req := httptest.NewRequest(http.MethodPost, "/windows/"+winID+"/resize", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestKillWindowThenGetReturns404(t *testing.T) {
	h := newTestHandlers(t)
	r := router(h)

	winID := createWindow(t, r)

	req := httptest.NewRequest(http.MethodDelete, "/windows/"+winID, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
	}

	time.Sleep(20 * time.Millisecond)

	req = httptest.NewRequest(http.MethodGet, "/windows/"+winID, nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after kill, got %d", rec.Code)
	}
}

func TestListFiltersBySource(t *testing.T) {
	h := newTestHandlers(t)
	r := router(h)

	winID := createWindow(t, r)
	defer h.coord.Kill(context.Background(), winID)

	req := httptest.NewRequest(http.MethodGet, "/windows?source=direct-pty", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var listed struct {
		Windows []struct {
			ID string `json:"id"`
		} `json:"windows"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &listed); err != nil {
		t.Fatalf("unmarshal list: %v", err)
	}
	found := false
	for _, w := range listed.Windows {
		if w.ID == winID {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected window %s in filtered list", winID)
	}
}
