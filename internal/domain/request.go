package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// Credentials identify the OpenAI-compatible endpoint a job talks to.
type Credentials struct {
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url"`
	Model   string `json:"model"`
}

// HTMLRequest is a submission for an interactive HTML page.
type HTMLRequest struct {
	Prompt string `json:"prompt"`
	Credentials
}

// Quality is the renderer quality tier.
type Quality string

const (
	QualityLow    Quality = "l"
	QualityMedium Quality = "m"
	QualityHigh   Quality = "h"
	Quality4K     Quality = "k"
)

// Valid reports whether q is one of the four supported tiers.
func (q Quality) Valid() bool {
	switch q {
	case QualityLow, QualityMedium, QualityHigh, Quality4K:
		return true
	}
	return false
}

// VideoRequest is a submission for a rendered teaching video.
type VideoRequest struct {
	Prompt string `json:"prompt"`
	Credentials
	Duration   float64 `json:"duration"`
	Quality    Quality `json:"quality"`
	FPS        int     `json:"fps"`
	Resolution string  `json:"resolution"`
}

// Video request defaults.
const (
	DefaultDuration   = 12.0
	DefaultFPS        = 30
	DefaultResolution = "1920,1080"
	MaxFPS            = 120
)

var resolutionRE = regexp.MustCompile(`^[1-9][0-9]{1,4},[1-9][0-9]{1,4}$`)

// ApplyDefaults fills unset optional fields.
func (r *VideoRequest) ApplyDefaults(defaultQuality Quality) {
	if r.Duration <= 0 {
		r.Duration = DefaultDuration
	}
	if r.Quality == "" {
		r.Quality = defaultQuality
	}
	if r.FPS == 0 {
		r.FPS = DefaultFPS
	}
	r.Resolution = strings.ReplaceAll(strings.TrimSpace(r.Resolution), " ", "")
	if r.Resolution == "" {
		r.Resolution = DefaultResolution
	}
}

// Validate checks the render parameters. The prompt is checked by the services.
func (r *VideoRequest) Validate() error {
	if !r.Quality.Valid() {
		return fmt.Errorf("quality must be one of l, m, h, k (got %q)", r.Quality)
	}
	if r.FPS < 1 || r.FPS > MaxFPS {
		return fmt.Errorf("fps must be between 1 and %d (got %d)", MaxFPS, r.FPS)
	}
	if !resolutionRE.MatchString(r.Resolution) {
		return fmt.Errorf("resolution must look like width,height (got %q)", r.Resolution)
	}
	return nil
}
