package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-pickup/internal/service"
)

// ReadinessCheck reports whether a dependency can serve requests.
type ReadinessCheck func(ctx context.Context) error

type persistenceReporter interface {
	Persistent() bool
}

// MetricsHandler exposes observability endpoints.
type MetricsHandler struct {
	metrics *service.MetricsService
	checks  map[string]ReadinessCheck
	storage persistenceReporter
}

// NewMetricsHandler constructs a metrics handler. checks are run by Ready;
// storage reports whether the session survives a restart.
func NewMetricsHandler(metrics *service.MetricsService, checks map[string]ReadinessCheck, storage persistenceReporter) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, checks: checks, storage: storage}
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Health responds with an OK payload and the request counters.
func (h *MetricsHandler) Health(c *gin.Context) {
	requests, backendCalls := h.metrics.Counts()
	c.JSON(http.StatusOK, gin.H{"status": "ok", "requests": requests, "backend_calls": backendCalls})
}

// Ready runs every readiness check and reports the failing ones.
func (h *MetricsHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	failures := gin.H{}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			failures[name] = err.Error()
		}
	}
	persistent := h.storage != nil && h.storage.Persistent()
	if len(failures) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "checks": failures, "session_storage_persistent": persistent})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "session_storage_persistent": persistent})
}
