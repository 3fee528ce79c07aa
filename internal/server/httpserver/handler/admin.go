package handler

import (
	"net/http"

	"github.com/yndnr/shopmate-go/internal/core/domain"
)

// handleWorkerStatus handles GET /admin/v1/worker.
func (h *Handler) handleWorkerStatus(w http.ResponseWriter, r *http.Request) {
	if h.worker == nil {
		h.writeJSON(w, r, http.StatusOK, map[string]string{"state": "disabled"})
		return
	}
	h.writeJSON(w, r, http.StatusOK, h.worker.Status())
}

// handleLastSweep handles GET /admin/v1/sweep.
func (h *Handler) handleLastSweep(w http.ResponseWriter, r *http.Request) {
	if h.sweeper == nil {
		h.handleServiceError(w, r, domain.ErrServiceUnavailable.WithDetails("sweeper is disabled"))
		return
	}
	last := h.sweeper.Last()
	if last == nil {
		h.writeJSON(w, r, http.StatusOK, map[string]any{"last": nil})
		return
	}
	h.writeJSON(w, r, http.StatusOK, last)
}

// handleTriggerSweep handles POST /admin/v1/sweep. The sweep runs within
// the request.
func (h *Handler) handleTriggerSweep(w http.ResponseWriter, r *http.Request) {
	if h.sweeper == nil {
		h.handleServiceError(w, r, domain.ErrServiceUnavailable.WithDetails("sweeper is disabled"))
		return
	}
	res, err := h.sweeper.Sweep(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, res)
}
