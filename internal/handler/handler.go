package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler serves the health and metrics endpoints.
type Handler struct {
	store    Pinger
	gatherer prometheus.Gatherer
}

// NewHandler creates a new handler instance. A nil gatherer serves the
// default registry.
func NewHandler(store Pinger, gatherer prometheus.Gatherer) *Handler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Handler{store: store, gatherer: gatherer}
}

func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
		"time":   time.Now(),
	})
}

func (h *Handler) ReadinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not_ready",
			"reason": "database connection failed",
			"time":   time.Now(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now(),
	})
}

func (h *Handler) MetricsHandler(c *gin.Context) {
	promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}).ServeHTTP(c.Writer, c.Request)
}
