// Package render runs the external Manim toolchain against generated scripts.
//
// Generated code is only ever executed in a child process; the orchestrator
// treats the exit code and captured streams as plain data.
package render

import (
	"context"

	"github.com/HuiYanWanXiang/HuiYanWanXiang/internal/domain"
)

// Request describes one render invocation.
type Request struct {
	Script     string
	Quality    domain.Quality
	MediaDir   string
	Resolution string
	FPS        int
}

// Result is the outcome of a process that started.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Cmd      string
	// Truncated is set when either stream exceeded the capture limit and
	// its oldest output was dropped.
	Truncated bool
}

// Renderer executes a scene script. The error is non-nil only when the
// process could not be started; a failing render is a Result with a non-zero
// ExitCode.
type Renderer interface {
	Render(ctx context.Context, req Request) (*Result, error)
}
