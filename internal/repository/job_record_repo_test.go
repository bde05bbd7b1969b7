package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HuiYanWanXiang/HuiYanWanXiang/internal/config"
	"github.com/HuiYanWanXiang/HuiYanWanXiang/internal/domain"
)

func newTestRepo(t *testing.T) *JobRecordRepository {
	t.Helper()
	db, err := InitDB(&config.DatabaseConfig{
		Driver:       "sqlite",
		Path:         fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()),
		MaxIdleConns: 1,
		MaxOpenConns: 1,
		AutoMigrate:  true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return NewJobRecordRepository(db)
}

func TestJobRecordRepository_SaveAndGet(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	rc := 1
	job := domain.Job{
		ID:          "abc",
		Kind:        domain.JobKindVideo,
		Prompt:      "单摆",
		Model:       "deepseek-chat",
		CreatedAt:   time.Now().Add(-time.Minute),
		State:       domain.Failed{Message: "render failed", CompletedAt: time.Now()},
		Diagnostics: domain.Diagnostics{ReturnCode: &rc, Repairs: 2},
	}
	require.NoError(t, repo.Save(ctx, domain.NewJobRecord(job)))

	got, err := repo.GetByID(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusError, got.Status)
	assert.Equal(t, "render failed", got.ErrorMessage)
	require.NotNil(t, got.ReturnCode)
	assert.Equal(t, 1, *got.ReturnCode)
	assert.Equal(t, 2, got.Repairs)

	// Saving again overwrites instead of failing on the primary key.
	job.State = domain.Failed{Message: "second", CompletedAt: time.Now()}
	require.NoError(t, repo.Save(ctx, domain.NewJobRecord(job)))
	got, err = repo.GetByID(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "second", got.ErrorMessage)
}

func TestJobRecordRepository_List(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		kind := domain.JobKindHTML
		if i%2 == 1 {
			kind = domain.JobKindVideo
		}
		job := domain.Job{
			ID:        fmt.Sprintf("job-%d", i),
			Kind:      kind,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			State:     domain.Done{ArtifactRef: "a", CompletedAt: base},
		}
		require.NoError(t, repo.Save(ctx, domain.NewJobRecord(job)))
	}

	all, err := repo.List(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, "job-4", all[0].ID)

	videos, err := repo.List(ctx, domain.JobKindVideo, 1)
	require.NoError(t, err)
	require.Len(t, videos, 1)
	assert.Equal(t, "job-3", videos[0].ID)

	counts, err := repo.CountByStatus(ctx, domain.JobKindHTML)
	require.NoError(t, err)
	assert.Equal(t, int64(3), counts[domain.JobStatusDone])
}
