package web

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cjeanneret/boothcam/internal/booth"
	"github.com/cjeanneret/boothcam/internal/debug"
	"github.com/cjeanneret/boothcam/internal/logic/capture"
	"github.com/cjeanneret/boothcam/internal/logic/settings"
)

// Booth is the camera service behind the API.
type Booth interface {
	Capture(ctx context.Context) (capture.Result, error)
	Settings(ctx context.Context) (map[string]settings.Record, error)
	Library() string
	OutputDir() string
	Active() int
	BreakerState() string
}

// Info identifies the daemon in health responses.
type Info struct {
	Service string
	Version string
}

// HealthResponse is returned by GET /api/health.
type HealthResponse struct {
	Status              string `json:"status"`
	Service             string `json:"service"`
	Version             string `json:"version"`
	Library             string `json:"library"`
	LibGPhoto2Available bool   `json:"libgphoto2_available"`
}

// StatusResponse is returned by GET /api/status.
type StatusResponse struct {
	DaemonRunning       bool   `json:"daemon_running"`
	LibGPhoto2Available bool   `json:"libgphoto2_available"`
	ActiveSessions      int    `json:"active_sessions"`
	Breaker             string `json:"breaker"`
	StreamClients       int    `json:"stream_clients"`
}

// PhotoDeleteResponse is returned by DELETE /api/photo/{filename}.
type PhotoDeleteResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

type errorBody struct {
	Error string `json:"error"`
}

// Endpoints are listed in 404 responses.
var Endpoints = []string{
	"/api/health",
	"/api/capture",
	"/api/status",
	"/api/status/stream",
	"/api/camera/config",
	"/api/photo/{filename}",
	"/metrics",
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	Booth       Booth
	Broadcaster *StatusBroadcaster
	Info        Info
	heartbeat   time.Duration
}

// NewHandlers creates handlers with the given dependencies.
// If b is nil, camera endpoints return 503 Service Unavailable.
func NewHandlers(b Booth, broadcaster *StatusBroadcaster, info Info) *Handlers {
	return &Handlers{
		Booth:       b,
		Broadcaster: broadcaster,
		Info:        info,
		heartbeat:   30 * time.Second,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		debug.Warn("web: encode response: %v", err)
	}
}

func (h *Handlers) gphoto2() bool {
	return h.Booth != nil && h.Booth.Library() == "gphoto2"
}

// HandleHealth handles GET /api/health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	lib := ""
	if h.Booth != nil {
		lib = h.Booth.Library()
	}
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:              "ok",
		Service:             h.Info.Service,
		Version:             h.Info.Version,
		Library:             lib,
		LibGPhoto2Available: h.gphoto2(),
	})
}

// HandleStatus handles GET /api/status.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		DaemonRunning:       true,
		LibGPhoto2Available: h.gphoto2(),
		Breaker:             "closed",
	}
	if h.Booth != nil {
		resp.ActiveSessions = h.Booth.Active()
		resp.Breaker = h.Booth.BreakerState()
	}
	if h.Broadcaster != nil {
		resp.StreamClients = h.Broadcaster.Clients()
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleCapture handles POST /api/capture. A capture that ran answers 200
// with its result, successful or not.
//
// The capture is not tied to the request: a client that disconnects
// mid-capture does not stop the download and the camera cleanup.
func (h *Handlers) HandleCapture(w http.ResponseWriter, r *http.Request) {
	if h.Booth == nil {
		writeJSON(w, http.StatusServiceUnavailable, capture.Failure(errors.New("camera not configured")))
		return
	}

	res, err := h.Booth.Capture(context.WithoutCancel(r.Context()))
	switch {
	case errors.Is(err, booth.ErrBusy):
		writeJSON(w, http.StatusConflict, res)
		return
	case booth.Unavailable(err):
		writeJSON(w, http.StatusServiceUnavailable, res)
		return
	}

	if h.Broadcaster != nil {
		if res.Success {
			h.Broadcaster.Broadcast("info", "Capture saved to "+res.LocalPath)
		} else {
			h.Broadcaster.Broadcast("error", "Capture failed: "+res.Error)
		}
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleCameraConfig handles GET /api/camera/config.
func (h *Handlers) HandleCameraConfig(w http.ResponseWriter, r *http.Request) {
	if h.Booth == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "camera not configured"})
		return
	}

	out, err := h.Booth.Settings(r.Context())
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, out)
	case errors.Is(err, booth.ErrBusy):
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error()})
	case booth.Unavailable(err):
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
	}
}

// ValidFilename accepts ASCII letters, digits, '.', '_' and '-', with no leading dot.
func ValidFilename(name string) bool {
	if name == "" || name[0] == '.' {
		return false
	}
	for _, c := range name {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '.', c == '_', c == '-':
		default:
			return false
		}
	}
	return true
}

// ContentType picks the response type from the file extension.
func ContentType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	}
	return "application/octet-stream"
}

func (h *Handlers) photoPath(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	name := chi.URLParam(r, "filename")
	if !ValidFilename(name) {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid filename"})
		return "", "", false
	}
	dir := capture.DefaultOutputDir
	if h.Booth != nil {
		dir = h.Booth.OutputDir()
	}
	return name, filepath.Join(dir, name), true
}

// HandlePhoto handles GET /api/photo/{filename}.
func (h *Handlers) HandlePhoto(w http.ResponseWriter, r *http.Request) {
	name, path, ok := h.photoPath(w, r)
	if !ok {
		return
	}

	f, err := os.Open(path)
	if err != nil {
		debug.Warn("web: open %s: %v", path, err)
		writeJSON(w, http.StatusNotFound, errorBody{Error: "File not found: " + name})
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "File not found: " + name})
		return
	}
	w.Header().Set("Content-Type", ContentType(name))
	http.ServeContent(w, r, name, info.ModTime(), f)
}

// HandleDeletePhoto handles DELETE /api/photo/{filename}.
func (h *Handlers) HandleDeletePhoto(w http.ResponseWriter, r *http.Request) {
	name, path, ok := h.photoPath(w, r)
	if !ok {
		return
	}

	if err := os.Remove(path); err != nil {
		debug.Warn("web: delete %s: %v", path, err)
		status := http.StatusInternalServerError
		if errors.Is(err, fs.ErrNotExist) {
			status = http.StatusNotFound
		}
		writeJSON(w, status, PhotoDeleteResponse{Success: false, Error: "Failed to delete: " + err.Error()})
		return
	}
	debug.Info("web: deleted %s", path)
	writeJSON(w, http.StatusOK, PhotoDeleteResponse{Success: true, Message: "Deleted " + name})
}

// HandleNotFound lists the available endpoints.
func (h *Handlers) HandleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, errorBody{
		Error: "Not found - available endpoints: " + strings.Join(Endpoints, ", "),
	})
}

// HandleStatusStream handles GET /api/status/stream for SSE.
func (h *Handlers) HandleStatusStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}
	if h.Broadcaster == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "status stream not configured"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // nginx

	ch, unsub := h.Broadcaster.Subscribe()
	defer unsub()

	// Send initial comment to establish connection
	w.Write([]byte(": connected\n\n"))
	flusher.Flush()

	// Heartbeat while idle
	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			w.Write([]byte("data: " + msg + "\n\n"))
			flusher.Flush()

		case <-ticker.C:
			w.Write([]byte(": heartbeat\n\n"))
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
