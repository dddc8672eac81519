package handler

import (
	"context"
	"net/http"
	"time"

	"dira-go/pkg/feed"
	"dira-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) error

// SystemHandler serves health and the live feed.
type SystemHandler struct {
	checks map[string]HealthCheck
	hub    *feed.Hub
}

// NewSystemHandler creates a SystemHandler. hub may be nil when the feed is disabled.
func NewSystemHandler(checks map[string]HealthCheck, hub *feed.Hub) *SystemHandler {
	return &SystemHandler{checks: checks, hub: hub}
}

// Health runs every check with a short timeout. Any failure makes the response 503.
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	results := gin.H{}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			log.Warnf("[Health] %s unhealthy: %v", name, err)
			results[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}
	message := "healthy"
	if status != http.StatusOK {
		message = "unhealthy"
	}
	c.JSON(status, gin.H{"code": status, "message": message, "data": results})
}

// Feed upgrades the connection to a websocket that receives report events.
func (h *SystemHandler) Feed(c *gin.Context) {
	if h.hub == nil {
		fail(c, http.StatusNotFound, "live feed disabled")
		return
	}
	if err := h.hub.Serve(c.Writer, c.Request); err != nil {
		log.Warnf("[Feed] websocket upgrade failed: %v", err)
	}
}
