package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/HuiYanWanXiang/HuiYanWanXiang/internal/domain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestRegistry_CreateGet(t *testing.T) {
	r := NewRegistry("html", Options{})
	id := r.Create(NewJob{Kind: domain.JobKindHTML, Prompt: "振动", Model: "deepseek-chat"})
	assert.Len(t, id, 32)

	job, ok := r.Get(id)
	require.True(t, ok)
	assert.Equal(t, id, job.ID)
	assert.Equal(t, domain.JobStatusQueued, job.Status())
	assert.Equal(t, "振动", job.Prompt)

	_, ok = r.Get("missing")
	assert.False(t, ok)
}

func TestRegistry_ConcurrentCreate(t *testing.T) {
	r := NewRegistry("video", Options{})
	const n = 200

	var wg sync.WaitGroup
	ids := make(chan string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids <- r.Create(NewJob{Kind: domain.JobKindVideo, Prompt: "p"})
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool, n)
	for id := range ids {
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
	assert.Equal(t, n, r.Len())
}

func TestRegistry_UpdateUnknownIsNoop(t *testing.T) {
	r := NewRegistry("html", Options{})
	assert.NotPanics(t, func() {
		assert.False(t, r.Update("nope", Patch{State: domain.Running{StartedAt: time.Now()}}))
	})
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_SnapshotIsolation(t *testing.T) {
	r := NewRegistry("video", Options{})
	id := r.Create(NewJob{Kind: domain.JobKindVideo})

	rc := 1
	require.True(t, r.Update(id, Patch{
		State:       domain.Running{StartedAt: time.Now()},
		Diagnostics: &domain.Diagnostics{ReturnCode: &rc, StderrTail: "first"},
	}))

	before, _ := r.Get(id)

	rc2 := 2
	require.True(t, r.Update(id, Patch{
		State:       domain.Failed{Message: "render failed", CompletedAt: time.Now()},
		Diagnostics: &domain.Diagnostics{ReturnCode: &rc2, StderrTail: "second"},
	}))

	assert.Equal(t, domain.JobStatusRunning, before.Status())
	assert.Equal(t, 1, *before.Diagnostics.ReturnCode)
	assert.Equal(t, "first", before.Diagnostics.StderrTail)

	// Mutating a snapshot never reaches the stored job.
	*before.Diagnostics.ReturnCode = 99
	after, _ := r.Get(id)
	assert.Equal(t, 2, *after.Diagnostics.ReturnCode)
	assert.Equal(t, domain.JobStatusError, after.Status())
}

func TestRegistry_ForwardOnly(t *testing.T) {
	r := NewRegistry("html", Options{})
	id := r.Create(NewJob{Kind: domain.JobKindHTML})

	assert.False(t, r.Update(id, Patch{State: domain.Done{}}), "queued -> done skips running")
	assert.True(t, r.Update(id, Patch{State: domain.Running{}}))
	assert.True(t, r.Update(id, Patch{State: domain.Done{ArtifactRef: "a.html"}}))
	assert.False(t, r.Update(id, Patch{State: domain.Failed{Message: "late"}}))
	assert.False(t, r.Update(id, Patch{State: domain.Running{}}))

	job, _ := r.Get(id)
	done, ok := job.State.(domain.Done)
	require.True(t, ok)
	assert.Equal(t, "a.html", done.ArtifactRef)
}

func TestRegistry_QueuedCanFail(t *testing.T) {
	r := NewRegistry("video", Options{})
	id := r.Create(NewJob{Kind: domain.JobKindVideo})
	assert.True(t, r.Update(id, Patch{State: domain.Failed{Message: "worker panic"}}))
}

func TestRegistry_Sweep(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r := NewRegistry("html", Options{Retention: time.Hour, Now: func() time.Time { return now }})

	old := r.Create(NewJob{Kind: domain.JobKindHTML})
	r.Update(old, Patch{State: domain.Running{}})
	r.Update(old, Patch{State: domain.Done{CompletedAt: now.Add(-2 * time.Hour)}})

	fresh := r.Create(NewJob{Kind: domain.JobKindHTML})
	r.Update(fresh, Patch{State: domain.Running{}})
	r.Update(fresh, Patch{State: domain.Failed{CompletedAt: now.Add(-10 * time.Minute)}})

	live := r.Create(NewJob{Kind: domain.JobKindHTML})
	r.Update(live, Patch{State: domain.Running{StartedAt: now.Add(-5 * time.Hour)}})

	assert.Equal(t, 1, r.Sweep(now))
	_, ok := r.Get(old)
	assert.False(t, ok)
	_, ok = r.Get(fresh)
	assert.True(t, ok)
	_, ok = r.Get(live)
	assert.True(t, ok, "running jobs are never evicted")
}

func TestRegistry_SweepDisabled(t *testing.T) {
	r := NewRegistry("html", Options{})
	id := r.Create(NewJob{Kind: domain.JobKindHTML})
	r.Update(id, Patch{State: domain.Failed{}})
	assert.Equal(t, 0, r.Sweep(time.Now().Add(1000*time.Hour)))
	assert.NoError(t, r.Run(context.Background()))
}

func TestRegistry_RunStopsOnCancel(t *testing.T) {
	r := NewRegistry("video", Options{Retention: time.Minute, SweepInterval: time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
