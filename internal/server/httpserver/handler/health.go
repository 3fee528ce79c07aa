package handler

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// readyTimeout bounds each dependency probe.
const readyTimeout = 2 * time.Second

// handleHealth handles GET /health.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// handleReady handles GET /ready. Every check is probed concurrently.
func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	resp := ReadyResponse{Status: "ready", Checks: make(map[string]string, len(h.checks))}

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, c := range h.checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
			defer cancel()

			result := "ok"
			if err := c.Pinger.Ping(ctx); err != nil {
				result = err.Error()
			}
			mu.Lock()
			resp.Checks[c.Name] = result
			if result != "ok" {
				resp.Status = "unavailable"
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	if resp.Status != "ready" {
		h.writeError(w, r, http.StatusServiceUnavailable, "SM-SYS-5030", "service unavailable", resp)
		return
	}
	h.writeJSON(w, r, http.StatusOK, resp)
}
