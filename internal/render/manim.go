package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/HuiYanWanXiang/HuiYanWanXiang/internal/logger"
)

const defaultMaxOutput = 4 << 20

// ManimRenderer invokes `python -m manim` as a subprocess.
type ManimRenderer struct {
	python    string
	scene     string
	maxOutput int64
}

// ManimConfig configures a ManimRenderer.
type ManimConfig struct {
	Python         string
	SceneName      string
	MaxOutputBytes int64
}

// NewManimRenderer creates a renderer for the configured interpreter.
func NewManimRenderer(cfg ManimConfig) *ManimRenderer {
	r := &ManimRenderer{
		python:    cfg.Python,
		scene:     cfg.SceneName,
		maxOutput: cfg.MaxOutputBytes,
	}
	if r.python == "" {
		r.python = "python3"
	}
	if r.scene == "" {
		r.scene = "GeneratedScene"
	}
	if r.maxOutput <= 0 {
		r.maxOutput = defaultMaxOutput
	}
	return r
}

// Args returns the interpreter arguments for a request.
func (r *ManimRenderer) Args(req Request) []string {
	return []string{
		"-m", "manim",
		"-q" + string(req.Quality),
		"--media_dir", req.MediaDir,
		"--resolution", req.Resolution,
		"--fps", strconv.Itoa(req.FPS),
		req.Script,
		r.scene,
	}
}

// Render runs the process to completion. There is no timeout; the context
// only matters when the caller cancels it.
func (r *ManimRenderer) Render(ctx context.Context, req Request) (*Result, error) {
	args := r.Args(req)
	cmd := exec.CommandContext(ctx, r.python, args...)

	var stdoutBuf, stderrBuf bytes.Buffer
	stdout := &tailWriter{w: &stdoutBuf, max: r.maxOutput}
	stderr := &tailWriter{w: &stderrBuf, max: r.maxOutput}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	result := &Result{
		ExitCode: -1,
		Cmd:      strings.Join(append([]string{r.python}, args...), " "),
	}

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	result.Stdout = stdout.String()
	result.Stderr = stderr.String()
	result.Truncated = stdout.discarded > 0 || stderr.discarded > 0

	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("failed to start renderer %q: %w", r.python, err)
		}
		result.ExitCode = exitErr.ExitCode()
	} else {
		result.ExitCode = 0
	}

	logger.With(logger.Fields{
		logger.FieldExitCode:   result.ExitCode,
		logger.FieldDurationMs: duration.Milliseconds(),
		logger.FieldTruncated:  result.Truncated,
	}).Info(ctx, "Renderer exited: quality=%s, resolution=%s, fps=%d", req.Quality, req.Resolution, req.FPS)

	return result, nil
}

// tailWriter keeps at most max bytes, discarding the oldest output first so
// the end of a traceback survives.
type tailWriter struct {
	w         *bytes.Buffer
	max       int64
	discarded int64
}

var _ io.Writer = (*tailWriter)(nil)

func (tw *tailWriter) Write(p []byte) (int, error) {
	n := len(p)
	if int64(n) >= tw.max {
		tw.discarded += int64(tw.w.Len()) + int64(n) - tw.max
		tw.w.Reset()
		tw.w.Write(p[int64(n)-tw.max:])
		return n, nil
	}
	if over := int64(tw.w.Len()+n) - tw.max; over > 0 {
		tw.w.Next(int(over))
		tw.discarded += over
	}
	tw.w.Write(p)
	return n, nil
}

func (tw *tailWriter) String() string {
	return tw.w.String()
}
