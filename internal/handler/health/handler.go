package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger is satisfied by the actor repository of either storage driver.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	store   Pinger
	timeout time.Duration
}

func NewHandler(store Pinger) *Handler {
	return &Handler{
		store:   store,
		timeout: 2 * time.Second,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	health := r.Group("/health")
	{
		health.GET("/live", h.LivenessCheck)
		health.GET("/ready", h.ReadinessCheck)
	}
}

func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "UP"})
}

func (h *Handler) ReadinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "DOWN",
			"reason": "storage unavailable",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "UP"})
}
