package handlers

import (
	"context"
	"net/http"
	"time"
)

const version = "1.0.0"

// Check represents the status of a health check.
type Check struct {
	Status  string `json:"status"`            // "pass", "fail" or "skip"
	Latency string `json:"latency,omitempty"` // e.g., "2ms"
	Message string `json:"message,omitempty"`
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    string           `json:"status"` // "healthy" or "degraded"
	Version   string           `json:"version"`
	Checks    map[string]Check `json:"checks"`
	Timestamp string           `json:"timestamp"`
}

func probe(ctx context.Context, p Pinger) Check {
	start := time.Now()
	if err := p.Ping(ctx); err != nil {
		return Check{Status: "fail", Message: "connection failed"}
	}
	return Check{Status: "pass", Latency: time.Since(start).String()}
}

// Health handles the health check endpoint. Redis is optional: when it is
// not configured its check is skipped rather than failed.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := make(map[string]Check)
	allHealthy := true

	if h.db != nil {
		checks["database"] = probe(ctx, h.db)
	} else {
		checks["database"] = Check{Status: "fail", Message: "not configured"}
	}
	if checks["database"].Status != "pass" {
		allHealthy = false
	}

	if h.redis != nil {
		checks["redis"] = probe(ctx, h.redis)
		if checks["redis"].Status != "pass" {
			allHealthy = false
		}
	} else {
		checks["redis"] = Check{Status: "skip", Message: "not configured"}
	}

	status := "healthy"
	statusCode := http.StatusOK
	if !allHealthy {
		status = "degraded"
		statusCode = http.StatusServiceUnavailable
	}

	h.JSON(w, statusCode, HealthResponse{
		Status:    status,
		Version:   version,
		Checks:    checks,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// RootResponse represents the root endpoint response.
type RootResponse struct {
	Name         string   `json:"name"`
	Version      string   `json:"version"`
	TypingWindow string   `json:"typing_window"`
	Endpoints    []string `json:"endpoints"`
}

// Root handles the root endpoint.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	h.JSON(w, http.StatusOK, RootResponse{
		Name:         "Sunshine Properties messaging",
		Version:      version,
		TypingWindow: h.svc.TypingWindow().String(),
		Endpoints: []string{
			"POST /messages",
			"GET /messages",
			"GET /messages/unread",
			"GET /conversations",
			"GET /typing",
			"POST /typing",
			"GET /health",
			"GET /metrics",
		},
	})
}
