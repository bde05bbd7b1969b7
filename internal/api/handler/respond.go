package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/HuiYanWanXiang/HuiYanWanXiang/internal/logger"
	"github.com/HuiYanWanXiang/HuiYanWanXiang/internal/service"
)

// errJobNotFound is the body of every unknown-id status read.
const errJobNotFound = "job not found"

// submitted is the response to an accepted submission.
type submitted struct {
	Status string `json:"status"`
	JobID  string `json:"job_id"`
}

// writeSubmitError maps a rejected submission to a status code. Bad input is
// a 400 and is reported before any job exists.
func writeSubmitError(c *gin.Context, err error) {
	var verr *service.ValidationError
	switch {
	case errors.Is(err, service.ErrEmptyPrompt):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
	default:
		logger.CtxError(c.Request.Context(), "Submission failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
