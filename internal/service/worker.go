package service

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/HuiYanWanXiang/HuiYanWanXiang/internal/domain"
	"github.com/HuiYanWanXiang/HuiYanWanXiang/internal/jobs"
	"github.com/HuiYanWanXiang/HuiYanWanXiang/internal/llm"
	"github.com/HuiYanWanXiang/HuiYanWanXiang/internal/logger"
)

// JobRecorder persists terminal job snapshots. It is optional.
type JobRecorder interface {
	Save(ctx context.Context, rec *domain.JobRecord) error
}

// ClientFactory builds an LLM client for one job's credentials.
type ClientFactory func(cfg llm.Config) llm.Completer

// DefaultClientFactory returns resty-backed clients.
func DefaultClientFactory(cfg llm.Config) llm.Completer {
	return llm.NewClient(cfg)
}

// resolveCredentials fills fields the request left empty from defaults.
func resolveCredentials(req, defaults domain.Credentials) domain.Credentials {
	out := domain.Credentials{
		APIKey:  strings.TrimSpace(req.APIKey),
		BaseURL: strings.TrimSpace(req.BaseURL),
		Model:   strings.TrimSpace(req.Model),
	}
	if out.APIKey == "" {
		out.APIKey = defaults.APIKey
	}
	if out.BaseURL == "" {
		out.BaseURL = defaults.BaseURL
	}
	if out.Model == "" {
		out.Model = defaults.Model
	}
	return out
}

// jobRun is the worker's handle on its own job.
type jobRun struct {
	id       string
	registry *jobs.Registry
	Diag     domain.Diagnostics
}

// Publish makes the current diagnostics visible to pollers.
func (r *jobRun) Publish() {
	d := r.Diag
	r.registry.Update(r.id, jobs.Patch{Diagnostics: &d})
}

type jobFunc func(ctx context.Context, run *jobRun) (domain.Done, error)

// runJob is the worker boundary. It marks the job running, executes fn and
// converts every error or panic into the error state, so nothing escapes
// the goroutine.
func runJob(ctx context.Context, registry *jobs.Registry, recorder JobRecorder, now func() time.Time, id string, fn jobFunc) {
	run := &jobRun{id: id, registry: registry}
	start := now()

	defer func() {
		if rec := recover(); rec != nil {
			logger.FromContext(ctx).WithField("stack", string(debug.Stack())).
				Errorf("Job worker panicked: %v", rec)
			finishJob(ctx, registry, recorder, id, domain.Failed{
				Message:     fmt.Sprintf("internal error: %v", rec),
				CompletedAt: now(),
			}, run.Diag)
		}
	}()

	registry.Update(id, jobs.Patch{State: domain.Running{StartedAt: start}})

	done, err := fn(ctx, run)

	var state domain.JobState
	if err != nil {
		state = domain.Failed{Message: err.Error(), CompletedAt: now()}
	} else {
		done.CompletedAt = now()
		state = done
	}
	finishJob(ctx, registry, recorder, id, state, run.Diag)

	logger.With(logger.Fields{
		logger.FieldStatus:     string(state.Status()),
		logger.FieldDurationMs: now().Sub(start).Milliseconds(),
	}).Info(ctx, "Job finished")
}

func finishJob(ctx context.Context, registry *jobs.Registry, recorder JobRecorder, id string, state domain.JobState, diag domain.Diagnostics) {
	if !registry.Update(id, jobs.Patch{State: state, Diagnostics: &diag}) {
		return
	}
	if recorder == nil {
		return
	}
	job, ok := registry.Get(id)
	if !ok {
		return
	}
	if err := recorder.Save(ctx, domain.NewJobRecord(job)); err != nil {
		logger.CtxWarn(ctx, "Failed to persist job history: %v", err)
	}
}
