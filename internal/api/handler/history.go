package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/HuiYanWanXiang/HuiYanWanXiang/internal/domain"
)

// HistoryStore lists persisted terminal jobs.
type HistoryStore interface {
	List(ctx context.Context, kind domain.JobKind, limit int) ([]domain.JobRecord, error)
}

// HistoryHandler serves persisted job history. A nil store means the
// database is disabled and every listing is empty.
type HistoryHandler struct {
	store HistoryStore
}

// NewHistoryHandler creates a new history handler.
func NewHistoryHandler(store HistoryStore) *HistoryHandler {
	return &HistoryHandler{store: store}
}

// List handles GET /api/jobs/history?kind=&limit=.
func (h *HistoryHandler) List(c *gin.Context) {
	kind := domain.JobKind(c.Query("kind"))
	if kind != "" && kind != domain.JobKindHTML && kind != domain.JobKindVideo {
		c.JSON(http.StatusBadRequest, gin.H{"error": "kind must be html or video"})
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer"})
		return
	}

	items := []domain.JobRecord{}
	if h.store != nil {
		items, err = h.store.List(c.Request.Context(), kind, limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list jobs: " + err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}
