package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/HuiYanWanXiang/HuiYanWanXiang/internal/domain"
	"github.com/HuiYanWanXiang/HuiYanWanXiang/internal/logger"
)

// Sweeper evicts expired jobs from a registry.
type Sweeper interface {
	Len() int
	Sweep(now time.Time) int
}

// StatusCounter aggregates persisted jobs by status.
type StatusCounter interface {
	CountByStatus(ctx context.Context, kind domain.JobKind) (map[domain.JobStatus]int64, error)
}

// AdminHandler handles operator endpoints.
type AdminHandler struct {
	registries map[domain.JobKind]Sweeper
	counter    StatusCounter
}

// NewAdminHandler creates a new admin handler. counter may be nil when the
// database is disabled.
func NewAdminHandler(html, video Sweeper, counter StatusCounter) *AdminHandler {
	return &AdminHandler{
		registries: map[domain.JobKind]Sweeper{
			domain.JobKindHTML:  html,
			domain.JobKindVideo: video,
		},
		counter: counter,
	}
}

// KindStats describes one job kind.
type KindStats struct {
	Live      int                        `json:"live"`
	Persisted map[domain.JobStatus]int64 `json:"persisted,omitempty"`
}

// Stats handles GET /api/admin/stats.
func (h *AdminHandler) Stats(c *gin.Context) {
	out := make(map[domain.JobKind]KindStats, len(h.registries))
	for kind, reg := range h.registries {
		stats := KindStats{Live: reg.Len()}
		if h.counter != nil {
			counts, err := h.counter.CountByStatus(c.Request.Context(), kind)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count jobs: " + err.Error()})
				return
			}
			stats.Persisted = counts
		}
		out[kind] = stats
	}
	c.JSON(http.StatusOK, out)
}

// Sweep handles POST /api/admin/sweep, evicting expired jobs immediately.
func (h *AdminHandler) Sweep(c *gin.Context) {
	now := time.Now()
	evicted := 0
	for _, reg := range h.registries {
		evicted += reg.Sweep(now)
	}
	logger.With(logger.Fields{logger.FieldCount: evicted}).
		Info(c.Request.Context(), "Manual sweep finished")
	c.JSON(http.StatusOK, gin.H{"evicted": evicted})
}
