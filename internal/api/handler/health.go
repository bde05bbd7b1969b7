package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Counter reports how many jobs a registry holds.
type Counter interface {
	Len() int
}

// HealthHandler handles health check endpoints
type HealthHandler struct {
	html, video Counter
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(html, video Counter) *HealthHandler {
	return &HealthHandler{html: html, video: video}
}

// Health returns the service status and the number of tracked jobs.
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"jobs": gin.H{
			"html":  h.html.Len(),
			"video": h.video.Len(),
		},
	})
}
