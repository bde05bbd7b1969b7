// Package jobs holds the in-memory registries that track generation jobs
// between submission and polling.
package jobs

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/HuiYanWanXiang/HuiYanWanXiang/internal/domain"
	"github.com/HuiYanWanXiang/HuiYanWanXiang/internal/logger"
)

// NewJob holds the fields known at submission time.
type NewJob struct {
	Kind   domain.JobKind
	Prompt string
	Model  string
}

// Patch is a partial update. Nil fields are left unchanged.
type Patch struct {
	State       domain.JobState
	Diagnostics *domain.Diagnostics
}

// Options configures retention.
type Options struct {
	// Retention is how long terminal jobs are kept. Zero keeps them forever.
	Retention time.Duration
	// SweepInterval is how often Run evicts expired jobs.
	SweepInterval time.Duration
	// Now overrides the clock in tests.
	Now func() time.Time
}

// Registry maps job ids to job records. All methods are safe for concurrent
// use; reads return copies that later updates never touch.
type Registry struct {
	mu   sync.RWMutex
	jobs map[string]*domain.Job

	name      string
	retention time.Duration
	interval  time.Duration
	now       func() time.Time
}

// NewRegistry creates an empty registry. name only appears in logs.
func NewRegistry(name string, opts Options) *Registry {
	r := &Registry{
		jobs:      make(map[string]*domain.Job),
		name:      name,
		retention: opts.Retention,
		interval:  opts.SweepInterval,
		now:       opts.Now,
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.interval <= 0 {
		r.interval = 10 * time.Minute
	}
	return r
}

// Create stores a queued job and returns its new id.
func (r *Registry) Create(nj NewJob) string {
	job := &domain.Job{
		ID:        newID(),
		Kind:      nj.Kind,
		Prompt:    nj.Prompt,
		Model:     nj.Model,
		CreatedAt: r.now(),
		State:     domain.Queued{},
	}

	r.mu.Lock()
	for {
		if _, exists := r.jobs[job.ID]; !exists {
			break
		}
		job.ID = newID()
	}
	r.jobs[job.ID] = job
	r.mu.Unlock()

	return job.ID
}

// Get returns a snapshot of the job.
func (r *Registry) Get(id string) (domain.Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[id]
	if !ok {
		return domain.Job{}, false
	}
	return job.Clone(), true
}

// Update applies p to the job. It reports false, without error, when the id
// is unknown or the state change is not a forward transition.
func (r *Registry) Update(id string, p Patch) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return false
	}
	if p.State != nil {
		if !domain.CanTransition(job.Status(), p.State.Status()) {
			logger.Warn("Ignoring %s job transition %s -> %s for %s", r.name, job.Status(), p.State.Status(), id)
			return false
		}
		job.State = p.State
	}
	if p.Diagnostics != nil {
		job.Diagnostics = p.Diagnostics.Clone()
	}
	return true
}

// Len returns the number of stored jobs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}

// Sweep evicts terminal jobs that completed more than the retention period
// before now and returns how many were removed.
func (r *Registry) Sweep(now time.Time) int {
	if r.retention <= 0 {
		return 0
	}
	cutoff := now.Add(-r.retention)

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, job := range r.jobs {
		if !job.Status().IsTerminal() {
			continue
		}
		if job.CompletedAt().Before(cutoff) {
			delete(r.jobs, id)
			removed++
		}
	}
	return removed
}

// Run sweeps on every interval until ctx is done. It returns nil when
// retention is disabled or the context ends.
func (r *Registry) Run(ctx context.Context) error {
	if r.retention <= 0 {
		return nil
	}
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := r.Sweep(r.now()); n > 0 {
				logger.With(logger.Fields{logger.FieldCount: n}).
					Info(ctx, "Evicted expired %s jobs", r.name)
			}
		}
	}
}

func newID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
