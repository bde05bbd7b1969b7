package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/HuiYanWanXiang/HuiYanWanXiang/internal/archive"
	"github.com/HuiYanWanXiang/HuiYanWanXiang/internal/domain"
)

// HTMLJobs is the part of the HTML service the handlers use.
type HTMLJobs interface {
	Submit(ctx context.Context, req domain.HTMLRequest) (string, error)
	Get(id string) (domain.Job, bool)
}

// HTMLHandler serves HTML page generation.
type HTMLHandler struct {
	jobs HTMLJobs
}

// NewHTMLHandler creates a new HTML handler.
func NewHTMLHandler(jobs HTMLJobs) *HTMLHandler {
	return &HTMLHandler{jobs: jobs}
}

// HTMLStatus is the polling response for an HTML job.
type HTMLStatus struct {
	JobID          string           `json:"job_id"`
	Status         domain.JobStatus `json:"status"`
	HTML           string           `json:"html,omitempty"`
	SavedPath      string           `json:"saved_path,omitempty"`
	ArtifactURL    string           `json:"artifact_url,omitempty"`
	Timestamp      string           `json:"timestamp,omitempty"`
	Error          string           `json:"error,omitempty"`
	KnowledgeTopic string           `json:"knowledge_topic,omitempty"`
}

// Generate handles POST /api/generate-html.
func (h *HTMLHandler) Generate(c *gin.Context) {
	var req domain.HTMLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	id, err := h.jobs.Submit(c.Request.Context(), req)
	if err != nil {
		writeSubmitError(c, err)
		return
	}
	c.JSON(http.StatusOK, submitted{Status: string(domain.JobStatusQueued), JobID: id})
}

// Status handles GET /api/html-status/:job_id.
func (h *HTMLHandler) Status(c *gin.Context) {
	id := c.Param("job_id")
	job, ok := h.jobs.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": errJobNotFound})
		return
	}

	resp := HTMLStatus{
		JobID:          job.ID,
		Status:         job.Status(),
		KnowledgeTopic: job.Diagnostics.KnowledgeTopic,
	}
	switch s := job.State.(type) {
	case domain.Done:
		resp.HTML = s.Content
		resp.SavedPath = s.ArtifactRef
		resp.ArtifactURL = s.ArtifactURL
		if len(s.ArtifactRef) >= len(archive.TimestampLayout) {
			resp.Timestamp = s.ArtifactRef[:len(archive.TimestampLayout)]
		}
	case domain.Failed:
		resp.Error = s.Message
	}
	c.JSON(http.StatusOK, resp)
}
