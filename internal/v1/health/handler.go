// Package health exposes liveness and readiness probes in the shape the
// teacher's health.Handler uses: liveness never checks dependencies,
// readiness aggregates a map of named checks into one status.
package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// DependencyChecker reports whether a named dependency is currently healthy.
// The question provider's circuit breaker satisfies this to surface its
// state in the readiness probe without the probe importing gobreaker
// directly.
type DependencyChecker interface {
	Healthy(ctx context.Context) bool
}

// Handler serves /health/live and /health/ready.
type Handler struct {
	questionSource DependencyChecker
}

// NewHandler builds a Handler. questionSource may be nil, in which case the
// readiness check reports it as "fallback_deck_only" and stays "ready".
func NewHandler(questionSource DependencyChecker) *Handler {
	return &Handler{questionSource: questionSource}
}

type livenessResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

type readinessResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks"`
	Timestamp string            `json:"timestamp"`
}

// Liveness always returns 200 while the process is running.
func (h *Handler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, livenessResponse{
		Status:    "alive",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Readiness always reports 200. The question provider is a soft dependency:
// the room core falls back to the embedded deck, so an unhealthy provider
// only turns the status field to "degraded".
func (h *Handler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	checks := make(map[string]string)
	status := "ready"

	if h.questionSource != nil {
		if h.questionSource.Healthy(ctx) {
			checks["question_source"] = "healthy"
		} else {
			checks["question_source"] = "degraded"
			status = "degraded"
		}
	} else {
		checks["question_source"] = "fallback_deck_only"
	}

	statusCode := http.StatusOK
	c.JSON(statusCode, readinessResponse{
		Status:    status,
		Checks:    checks,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
