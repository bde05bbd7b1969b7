package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/HuiYanWanXiang/HuiYanWanXiang/internal/domain"
	"github.com/HuiYanWanXiang/HuiYanWanXiang/internal/service"
)

// VideoJobs is the part of the video service the handlers use.
type VideoJobs interface {
	Submit(ctx context.Context, req domain.VideoRequest) (string, error)
	Get(id string) (domain.Job, bool)
	Errors() []service.VideoErrorEntry
}

// VideoHandler serves video generation.
type VideoHandler struct {
	jobs VideoJobs
}

// NewVideoHandler creates a new video handler.
func NewVideoHandler(jobs VideoJobs) *VideoHandler {
	return &VideoHandler{jobs: jobs}
}

// VideoStatus is the polling response for a video job. Diagnostics are
// present in every status.
type VideoStatus struct {
	JobID          string           `json:"job_id"`
	Status         domain.JobStatus `json:"status"`
	VideoURL       *string          `json:"video_url"`
	ArtifactURL    string           `json:"artifact_url,omitempty"`
	Error          string           `json:"error,omitempty"`
	ReturnCode     *int             `json:"returncode"`
	StdoutTail     string           `json:"stdout_tail"`
	StderrTail     string           `json:"stderr_tail"`
	Cmd            string           `json:"cmd"`
	RenderAttempts int              `json:"render_attempts"`
	Repairs        int              `json:"repairs"`
}

// Generate handles POST /api/generate-video.
func (h *VideoHandler) Generate(c *gin.Context) {
	var req domain.VideoRequest
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

// Status handles GET /api/video-status/:job_id.
func (h *VideoHandler) Status(c *gin.Context) {
	job, ok := h.jobs.Get(c.Param("job_id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": errJobNotFound})
		return
	}

	d := job.Diagnostics
	resp := VideoStatus{
		JobID:          job.ID,
		Status:         job.Status(),
		ReturnCode:     d.ReturnCode,
		StdoutTail:     d.StdoutTail,
		StderrTail:     d.StderrTail,
		Cmd:            d.Cmd,
		RenderAttempts: d.RenderAttempts,
		Repairs:        d.Repairs,
	}
	switch s := job.State.(type) {
	case domain.Done:
		url := s.ArtifactRef
		resp.VideoURL = &url
		resp.ArtifactURL = s.ArtifactURL
	case domain.Failed:
		resp.Error = s.Message
	}
	c.JSON(http.StatusOK, resp)
}

// Errors handles GET /api/video-errors.
func (h *VideoHandler) Errors(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"items": h.jobs.Errors()})
}
