package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/yndnr/shopmate-go/internal/core/domain"
	"github.com/yndnr/shopmate-go/internal/core/persist"
	"github.com/yndnr/shopmate-go/internal/core/service"
	"github.com/yndnr/shopmate-go/internal/telemetry/logger"
)

// maxBodyBytes caps a session payload upload.
const maxBodyBytes = 1 << 20

// WorkerInspector reports the persistence worker's state.
type WorkerInspector interface {
	Status() persist.WorkerStatus
}

// SweepTrigger runs the orphan sweeper on demand.
type SweepTrigger interface {
	Sweep(ctx context.Context) (*persist.SweepResult, error)
	Last() *persist.SweepResult
}

// Pinger is a dependency probed by the readiness check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Check names one readiness dependency.
type Check struct {
	Name   string
	Pinger Pinger
}

// Deps holds everything the handlers call into. Worker and Sweeper may be
// nil when those components are disabled.
type Deps struct {
	Sessions *service.SessionService
	Archive  *service.ArchiveService
	Worker   WorkerInspector
	Sweeper  SweepTrigger
	Checks   []Check
	Logger   *slog.Logger
}

// Handler routes requests to the session, archive and admin handlers.
type Handler struct {
	sessions *service.SessionService
	archive  *service.ArchiveService
	worker   WorkerInspector
	sweeper  SweepTrigger
	checks   []Check
	logger   *slog.Logger
	mux      *http.ServeMux
}

// New creates a Handler.
func New(d Deps) *Handler {
	h := &Handler{
		sessions: d.Sessions,
		archive:  d.Archive,
		worker:   d.Worker,
		sweeper:  d.Sweeper,
		checks:   d.Checks,
		logger:   d.Logger,
		mux:      http.NewServeMux(),
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}

	h.registerRoutes()
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// Routes lists the method and pattern of every registered route.
func Routes() []string {
	return []string{
		"GET /health",
		"GET /ready",
		"POST /sessions",
		"GET /sessions/{id}",
		"PUT /sessions/{id}",
		"DELETE /sessions/{id}",
		"GET /sessions/{id}/ttl",
		"GET /sessions/{id}/archive",
		"GET /admin/v1/worker",
		"GET /admin/v1/sweep",
		"POST /admin/v1/sweep",
	}
}

func (h *Handler) registerRoutes() {
	h.mux.HandleFunc("GET /health", h.handleHealth)
	h.mux.HandleFunc("GET /ready", h.handleReady)

	h.mux.HandleFunc("POST /sessions", h.handleCreateSession)
	h.mux.HandleFunc("GET /sessions/{id}", h.handleGetSession)
	h.mux.HandleFunc("PUT /sessions/{id}", h.handleUpdateSession)
	h.mux.HandleFunc("DELETE /sessions/{id}", h.handleDeleteSession)
	h.mux.HandleFunc("GET /sessions/{id}/ttl", h.handleSessionTTL)
	h.mux.HandleFunc("GET /sessions/{id}/archive", h.handleListArchive)

	h.mux.HandleFunc("GET /admin/v1/worker", h.handleWorkerStatus)
	h.mux.HandleFunc("GET /admin/v1/sweep", h.handleLastSweep)
	h.mux.HandleFunc("POST /admin/v1/sweep", h.handleTriggerSweep)
}

// writeJSON writes a success envelope.
func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	requestID := logger.RequestIDFromContext(r.Context())

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(NewResponse(requestID, data)); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

// writeError writes an error envelope.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, details any) {
	requestID := logger.RequestIDFromContext(r.Context())

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Error-Code", code)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(NewErrorResponse(requestID, code, message, details))
}

// handleServiceError converts service errors to HTTP responses.
func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var de *domain.DomainError
	if errors.As(err, &de) {
		status := errorCodeToHTTPStatus(de.Code)
		if status >= http.StatusInternalServerError {
			h.logger.ErrorContext(r.Context(), "request failed", "code", de.Code, "error", err)
		}
		var details any
		if de.Details != "" {
			details = de.Details
		}
		h.writeError(w, r, status, de.Code, de.Message, details)
		return
	}

	h.logger.ErrorContext(r.Context(), "internal error", "error", err)
	h.writeError(w, r, http.StatusInternalServerError, domain.ErrInternalServer.Code, domain.ErrInternalServer.Message, nil)
}

// errorCodeToHTTPStatus maps error codes to HTTP status codes.
func errorCodeToHTTPStatus(code string) int {
	switch {
	case strings.HasSuffix(code, "-4040"):
		return http.StatusNotFound
	case strings.HasSuffix(code, "-4090"), strings.HasSuffix(code, "-4091"), strings.HasSuffix(code, "-4092"):
		return http.StatusConflict
	case strings.HasSuffix(code, "-4220"):
		return http.StatusUnprocessableEntity
	case strings.HasSuffix(code, "-4000"), strings.HasSuffix(code, "-4001"):
		return http.StatusBadRequest
	case strings.HasPrefix(code, "SM-ARG-"):
		return http.StatusBadRequest
	case strings.HasSuffix(code, "-5030"):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
