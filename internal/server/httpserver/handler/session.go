package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/yndnr/shopmate-go/internal/core/domain"
	"github.com/yndnr/shopmate-go/internal/core/service"
)

// readPayload reads the raw request body as the session payload.
func (h *Handler) readPayload(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, r, http.StatusRequestEntityTooLarge, "SM-SYS-4130", "payload too large", nil)
			return nil, false
		}
		h.writeError(w, r, http.StatusBadRequest, domain.ErrBadRequest.Code, "invalid request body", nil)
		return nil, false
	}
	return body, true
}

// handleCreateSession handles POST /sessions. The body is the payload.
func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	payload, ok := h.readPayload(w, r)
	if !ok {
		return
	}

	resp, err := h.sessions.Create(r.Context(), &service.CreateSessionRequest{Payload: payload})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusCreated, CreateSessionResponse{
		SessionID: resp.SessionID,
		ExpiresAt: resp.ExpiresAt.UTC(),
	})
}

// handleGetSession handles GET /sessions/{id}. A missing session yields
// the empty payload with X-Session-Found: false.
func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	resp, err := h.sessions.Get(r.Context(), &service.GetSessionRequest{SessionID: r.PathValue("id")})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	if resp.Found {
		w.Header().Set("X-Session-Found", "true")
	} else {
		w.Header().Set("X-Session-Found", "false")
	}
	h.writeJSON(w, r, http.StatusOK, sessionPayload(resp.Payload))
}

// handleUpdateSession handles PUT /sessions/{id}.
func (h *Handler) handleUpdateSession(w http.ResponseWriter, r *http.Request) {
	payload, ok := h.readPayload(w, r)
	if !ok {
		return
	}

	err := h.sessions.Update(r.Context(), &service.UpdateSessionRequest{
		SessionID: r.PathValue("id"),
		Payload:   payload,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleDeleteSession handles DELETE /sessions/{id}.
func (h *Handler) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Delete(r.Context(), &service.DeleteSessionRequest{SessionID: r.PathValue("id")}); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSessionTTL handles GET /sessions/{id}/ttl without touching the TTL.
func (h *Handler) handleSessionTTL(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	d, err := h.sessions.Remaining(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	ttl := int64(d.Seconds())
	if d < 0 {
		ttl = -1
	}
	h.writeJSON(w, r, http.StatusOK, SessionTTLResponse{SessionID: id, TTLSeconds: ttl})
}

// handleListArchive handles GET /sessions/{id}/archive.
func (h *Handler) handleListArchive(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	records, err := h.archive.List(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	if records == nil {
		records = []*domain.DurableRecord{}
	}
	h.writeJSON(w, r, http.StatusOK, ArchiveResponse{SessionID: id, Records: records, Total: len(records)})
}
