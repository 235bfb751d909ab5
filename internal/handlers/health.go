package handlers

import (
	"encoding/json"
	"net/http"
	"time"
)

var startTime = time.Now()

// HealthHandlers serves liveness and readiness probes.
type HealthHandlers struct {
	ready func() bool
}

// NewHealthHandlers constructs the probe handlers. The optional readiness
// probe reports whether backing stores are reachable.
func NewHealthHandlers(ready func() bool) *HealthHandlers {
	return &HealthHandlers{ready: ready}
}

func (h *HealthHandlers) Healthz(w http.ResponseWriter, r *http.Request) {
	writeHealthPayload(w, "ok")
}

func (h *HealthHandlers) Readyz(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil && !h.ready() {
		w.WriteHeader(http.StatusServiceUnavailable)
		writeHealthPayload(w, "unavailable")
		return
	}
	writeHealthPayload(w, "ok")
}

func writeHealthPayload(w http.ResponseWriter, status string) {
	w.Header().Set("Content-Type", "application/json")
	payload := map[string]any{
		"status":    status,
		"uptime":    time.Since(startTime).String(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
