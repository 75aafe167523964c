package rest

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"
)

type componentStatus string

const (
	statusUp   componentStatus = "up"
	statusDown componentStatus = "down"
)

type componentCheck struct {
	Status    componentStatus `json:"status"`
	Error     string          `json:"error,omitempty"`
	LatencyMs int64           `json:"latency_ms"`
}

type healthResponse struct {
	Status     componentStatus           `json:"status"`
	CheckedAt  time.Time                 `json:"checked_at"`
	UptimeSecs int64                     `json:"uptime_secs"`
	Components map[string]componentCheck `json:"components"`
}

type HealthHandler struct {
	db      *sql.DB
	started time.Time
}

func NewHealthHandler(db *sql.DB) *HealthHandler {
	return &HealthHandler{db: db, started: time.Now()}
}

// pingHandler answers liveness only; it must not touch the database.
func (h *HealthHandler) pingHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "OK"})
}

// healthCheckHandler answers readiness: the service is ready only when
// postgres responds to a ping within the check timeout.
func (h *HealthHandler) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	check := h.checkPostgres(ctx)

	resp := healthResponse{
		Status:     check.Status,
		CheckedAt:  time.Now().UTC(),
		UptimeSecs: int64(time.Since(h.started).Seconds()),
		Components: map[string]componentCheck{"postgres": check},
	}

	code := http.StatusOK
	if resp.Status != statusUp {
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(resp)
}

func (h *HealthHandler) checkPostgres(ctx context.Context) componentCheck {
	start := time.Now()
	err := h.db.PingContext(ctx)

	check := componentCheck{
		Status:    statusUp,
		LatencyMs: time.Since(start).Milliseconds(),
	}
	if err != nil {
		check.Status = statusDown
		check.Error = err.Error()
	}
	return check
}
