package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/HuiYanWanXiang/HuiYanWanXiang/internal/domain"
	"github.com/HuiYanWanXiang/HuiYanWanXiang/internal/logger"
	"github.com/HuiYanWanXiang/HuiYanWanXiang/internal/prompts"
	"github.com/HuiYanWanXiang/HuiYanWanXiang/internal/render"
)

// Files written into every run directory.
const (
	ScriptFileName = "generated_scene.py"
	PromptFileName = "prompt.txt"
	MediaDirName   = "media"
)

// fixPromptStderr bounds how much renderer stderr goes into a fix prompt.
const fixPromptStderr = 8000

// RepairInput is one invocation of the render-repair loop.
type RepairInput struct {
	Request    string
	Code       string
	RunDir     string
	Quality    domain.Quality
	Resolution string
	FPS        int
	MaxFix     int
	MaxGen     int
}

// RepairResult reports what the loop did. It is returned alongside errors so
// diagnostics survive failures.
type RepairResult struct {
	Code      string
	VideoPath string
	// Attempts counts render invocations; Repairs counts fix generations.
	Attempts int
	Repairs  int
	Last     *render.Result
}

// Repairer renders generated scenes and regenerates them from stderr when
// the renderer fails.
type Repairer struct {
	renderer  render.Renderer
	generator *Generator
	pipeline  Pipeline
	tail      int
}

// NewRepairer creates a repairer. tail bounds the stderr kept in RenderError.
func NewRepairer(renderer render.Renderer, generator *Generator, pipeline Pipeline, tail int) *Repairer {
	if tail <= 0 {
		tail = 4000
	}
	return &Repairer{renderer: renderer, generator: generator, pipeline: pipeline, tail: tail}
}

// Run renders in.Code up to MaxFix+1 times. After each non-zero exit except
// the last it asks the generator for a fixed script and overwrites it on
// disk. Every attempt's output is written to render_stdout_<n>.txt and
// render_stderr_<n>.txt in the run directory.
func (r *Repairer) Run(ctx context.Context, in RepairInput) (*RepairResult, error) {
	script := filepath.Join(in.RunDir, ScriptFileName)
	mediaDir := filepath.Join(in.RunDir, MediaDirName)
	result := &RepairResult{Code: in.Code}

	if err := os.WriteFile(script, []byte(in.Code), 0o644); err != nil {
		return result, fmt.Errorf("failed to write script: %w", err)
	}

	for attempt := 0; attempt <= in.MaxFix; attempt++ {
		res, err := r.renderer.Render(ctx, render.Request{
			Script:     script,
			Quality:    in.Quality,
			MediaDir:   mediaDir,
			Resolution: in.Resolution,
			FPS:        in.FPS,
		})
		if err != nil {
			return result, fmt.Errorf("renderer could not start: %w", err)
		}
		result.Attempts++
		result.Last = res
		r.writeOutput(ctx, in.RunDir, attempt, res)

		if res.ExitCode == 0 {
			video, err := render.FindLatestVideo(mediaDir)
			if err != nil {
				return result, fmt.Errorf("failed to scan media dir: %w", err)
			}
			if video == "" {
				return result, ErrOutputMissing
			}
			result.VideoPath = video
			return result, nil
		}

		logger.With(logger.Fields{
			logger.FieldAttempt:  attempt + 1,
			logger.FieldExitCode: res.ExitCode,
		}).Warn(ctx, "Render failed")

		if attempt == in.MaxFix {
			break
		}

		fix := prompts.ManimFixPrompt(in.Request, result.Code, render.Tail(res.Stderr, fixPromptStderr))
		result.Repairs++
		gen, err := r.generator.Generate(ctx, r.pipeline, GenerateInput{
			Request:     in.Request,
			Prompt:      fix,
			MaxAttempts: in.MaxGen,
		})
		if err != nil {
			return result, fmt.Errorf("failed to repair scene: %w", err)
		}
		result.Code = gen.Text
		if err := os.WriteFile(script, []byte(gen.Text), 0o644); err != nil {
			return result, fmt.Errorf("failed to write script: %w", err)
		}
	}

	return result, &RenderError{
		ExitCode:   result.Last.ExitCode,
		StderrTail: render.Tail(result.Last.Stderr, r.tail),
	}
}

func (r *Repairer) writeOutput(ctx context.Context, runDir string, attempt int, res *render.Result) {
	files := map[string]string{
		fmt.Sprintf("render_stdout_%d.txt", attempt): res.Stdout,
		fmt.Sprintf("render_stderr_%d.txt", attempt): res.Stderr,
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(runDir, name), []byte(content), 0o644); err != nil {
			logger.CtxWarn(ctx, "Failed to write %s: %v", name, err)
		}
	}
}
