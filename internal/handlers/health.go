package handlers

import (
	"context"
	"net/http"
	"time"
)

// HealthChecker is anything with a pingable backing connection.
type HealthChecker interface {
	Health(ctx context.Context) error
}

type HealthHandler struct {
	db    HealthChecker
	redis HealthChecker
}

func NewHealthHandler(db, redis HealthChecker) *HealthHandler {
	return &HealthHandler{db: db, redis: redis}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := map[string]string{}

	if err := h.db.Health(ctx); err != nil {
		checks["database"] = err.Error()
		status = http.StatusServiceUnavailable
	} else {
		checks["database"] = "ok"
	}

	if err := h.redis.Health(ctx); err != nil {
		checks["redis"] = err.Error()
		status = http.StatusServiceUnavailable
	} else {
		checks["redis"] = "ok"
	}

	writeJSON(w, status, checks)
}

func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
