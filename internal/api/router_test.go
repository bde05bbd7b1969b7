package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HuiYanWanXiang/HuiYanWanXiang/internal/archive"
	"github.com/HuiYanWanXiang/HuiYanWanXiang/internal/domain"
	"github.com/HuiYanWanXiang/HuiYanWanXiang/internal/jobs"
	"github.com/HuiYanWanXiang/HuiYanWanXiang/internal/llm"
	"github.com/HuiYanWanXiang/HuiYanWanXiang/internal/service"
)

type unusedCompleter struct{}

func (unusedCompleter) Complete(context.Context, llm.Request) (string, error) {
	panic("LLM must not be called")
}

// fakeVideoJobs serves canned jobs.
type fakeVideoJobs struct {
	jobs   map[string]domain.Job
	errors []service.VideoErrorEntry
}

func (f *fakeVideoJobs) Submit(context.Context, domain.VideoRequest) (string, error) {
	return "", service.ErrEmptyPrompt
}

func (f *fakeVideoJobs) Get(id string) (domain.Job, bool) {
	j, ok := f.jobs[id]
	return j, ok
}

func (f *fakeVideoJobs) Errors() []service.VideoErrorEntry {
	return f.errors
}

type fakeHistory struct {
	kind  domain.JobKind
	limit int
}

func (f *fakeHistory) List(_ context.Context, kind domain.JobKind, limit int) ([]domain.JobRecord, error) {
	f.kind, f.limit = kind, limit
	return []domain.JobRecord{{ID: "abc", Kind: domain.JobKindHTML, Status: domain.JobStatusDone}}, nil
}

func (f *fakeHistory) CountByStatus(context.Context, domain.JobKind) (map[domain.JobStatus]int64, error) {
	return map[domain.JobStatus]int64{domain.JobStatusDone: 2}, nil
}

type testEnv struct {
	router       *httptest.Server
	htmlRegistry *jobs.Registry
	htmlService  *service.HTMLService
	videoJobs    *fakeVideoJobs
	runsDir      string
}

func newTestEnv(t *testing.T, history Repository) *testEnv {
	t.Helper()
	htmlRegistry := jobs.NewRegistry("html", jobs.Options{})
	videoRegistry := jobs.NewRegistry("video", jobs.Options{})
	htmlService := service.NewHTMLService(
		htmlRegistry,
		archive.NewArchiver(t.TempDir()),
		func(llm.Config) llm.Completer { return unusedCompleter{} },
		nil,
		service.HTMLConfig{MaxAttempts: 1},
	)
	videoJobs := &fakeVideoJobs{jobs: map[string]domain.Job{}}
	runsDir := t.TempDir()

	r := SetupRouter(Deps{
		HTML:          htmlService,
		Video:         videoJobs,
		HTMLRegistry:  htmlRegistry,
		VideoRegistry: videoRegistry,
		History:       history,
		RunsDir:       runsDir,
	}, "test")

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &testEnv{router: srv, htmlRegistry: htmlRegistry, htmlService: htmlService, videoJobs: videoJobs, runsDir: runsDir}
}

func (e *testEnv) do(t *testing.T, method, path, body string) (*http.Response, map[string]interface{}) {
	t.Helper()
	req, err := http.NewRequest(method, e.router.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestGenerateHTML_EmptyPromptRejected(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, body := env.do(t, http.MethodPost, "/api/generate-html", `{"prompt": "   "}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "prompt is empty", body["error"])
	assert.Zero(t, env.htmlRegistry.Len())
}

func TestGenerateHTML_MalformedBody(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, _ := env.do(t, http.MethodPost, "/api/generate-html", `{"prompt":`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Zero(t, env.htmlRegistry.Len())
}

func TestStatus_UnknownJob(t *testing.T) {
	env := newTestEnv(t, nil)

	for _, path := range []string{"/api/html-status/nope", "/api/video-status/nope"} {
		resp, body := env.do(t, http.MethodGet, path, "")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
		assert.Equal(t, "job not found", body["error"], path)
	}
}

func TestHTMLStatus_Done(t *testing.T) {
	env := newTestEnv(t, nil)
	id := env.htmlRegistry.Create(jobs.NewJob{Kind: domain.JobKindHTML, Prompt: "振动"})
	env.htmlRegistry.Update(id, jobs.Patch{State: domain.Running{StartedAt: time.Now()}})
	env.htmlRegistry.Update(id, jobs.Patch{
		State:       domain.Done{ArtifactRef: "20260224_124937_振动.html", Content: "<html></html>", CompletedAt: time.Now()},
		Diagnostics: &domain.Diagnostics{KnowledgeTopic: "mechanics_damped_oscillation"},
	})

	resp, body := env.do(t, http.MethodGet, "/api/html-status/"+id, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "done", body["status"])
	assert.Equal(t, "<html></html>", body["html"])
	assert.Equal(t, "20260224_124937_振动.html", body["saved_path"])
	assert.Equal(t, "20260224_124937", body["timestamp"])
	assert.Equal(t, "mechanics_damped_oscillation", body["knowledge_topic"])
	assert.NotContains(t, body, "error")
}

func TestHTMLStatus_Queued(t *testing.T) {
	env := newTestEnv(t, nil)
	id := env.htmlRegistry.Create(jobs.NewJob{Kind: domain.JobKindHTML, Prompt: "振动"})

	_, body := env.do(t, http.MethodGet, "/api/html-status/"+id, "")
	assert.Equal(t, "queued", body["status"])
	assert.NotContains(t, body, "html")
	assert.NotContains(t, body, "error")
}

func TestVideoStatus_Failed(t *testing.T) {
	env := newTestEnv(t, nil)
	rc := 1
	env.videoJobs.jobs["v1"] = domain.Job{
		ID:    "v1",
		Kind:  domain.JobKindVideo,
		State: domain.Failed{Message: "render failed (returncode=1)"},
		Diagnostics: domain.Diagnostics{
			ReturnCode:     &rc,
			StderrTail:     "NameError",
			Cmd:            "python3 -m manim",
			RenderAttempts: 3,
			Repairs:        2,
		},
	}

	resp, body := env.do(t, http.MethodGet, "/api/video-status/v1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, "render failed (returncode=1)", body["error"])
	assert.Nil(t, body["video_url"])
	assert.EqualValues(t, 1, body["returncode"])
	assert.Equal(t, "NameError", body["stderr_tail"])
	assert.EqualValues(t, 3, body["render_attempts"])
	assert.EqualValues(t, 2, body["repairs"])
}

func TestVideoStatus_Done(t *testing.T) {
	env := newTestEnv(t, nil)
	env.videoJobs.jobs["v2"] = domain.Job{
		ID:    "v2",
		State: domain.Done{ArtifactRef: "/video/runs/v2/20260101_000000/media/a.mp4"},
	}

	_, body := env.do(t, http.MethodGet, "/api/video-status/v2", "")
	assert.Equal(t, "done", body["status"])
	assert.Equal(t, "/video/runs/v2/20260101_000000/media/a.mp4", body["video_url"])
}

func TestGenerateVideo_Rejected(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, body := env.do(t, http.MethodPost, "/api/generate-video", `{"prompt": ""}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "prompt is empty", body["error"])
}

func TestVideoErrors(t *testing.T) {
	env := newTestEnv(t, nil)
	env.videoJobs.errors = []service.VideoErrorEntry{{Time: "2026-01-01 00:00:00", Message: "render failed (returncode=1)"}}

	_, body := env.do(t, http.MethodGet, "/api/video-errors", "")
	items, ok := body["items"].([]interface{})
	require.True(t, ok)
	assert.Len(t, items, 1)
}

func TestHistory(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		env := newTestEnv(t, nil)
		resp, body := env.do(t, http.MethodGet, "/api/jobs/history", "")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Empty(t, body["items"])
	})

	t.Run("enabled", func(t *testing.T) {
		store := &fakeHistory{}
		env := newTestEnv(t, store)
		resp, body := env.do(t, http.MethodGet, "/api/jobs/history?kind=html&limit=5", "")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Len(t, body["items"], 1)
		assert.Equal(t, domain.JobKindHTML, store.kind)
		assert.Equal(t, 5, store.limit)
	})

	t.Run("bad kind", func(t *testing.T) {
		env := newTestEnv(t, &fakeHistory{})
		resp, _ := env.do(t, http.MethodGet, "/api/jobs/history?kind=audio", "")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestHealthAndAdmin(t *testing.T) {
	env := newTestEnv(t, &fakeHistory{})
	env.htmlRegistry.Create(jobs.NewJob{Kind: domain.JobKindHTML, Prompt: "x"})

	resp, body := env.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 1, body["jobs"].(map[string]interface{})["html"])

	_, body = env.do(t, http.MethodGet, "/api/admin/stats", "")
	html := body["html"].(map[string]interface{})
	assert.EqualValues(t, 1, html["live"])
	assert.EqualValues(t, 2, html["persisted"].(map[string]interface{})["done"])

	resp, body = env.do(t, http.MethodPost, "/api/admin/sweep", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 0, body["evicted"])
}

func TestRunsDirServed(t *testing.T) {
	env := newTestEnv(t, nil)
	dir := filepath.Join(env.runsDir, "job1", "ts")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.mp4"), []byte("mp4"), 0o644))

	resp, err := http.Get(env.router.URL + "/video/runs/job1/ts/a.mp4")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRunsDirNotListed(t *testing.T) {
	env := newTestEnv(t, nil)
	dir := filepath.Join(env.runsDir, "job1", "ts")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "prompt.txt"), []byte("secret prompt"), 0o644))

	resp, err := http.Get(env.router.URL + "/video/runs/job1/ts/")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.NotContains(t, string(body), "prompt.txt")
}

func TestRequestIDEchoed(t *testing.T) {
	env := newTestEnv(t, nil)
	req, _ := http.NewRequest(http.MethodGet, env.router.URL+"/health", nil)
	req.Header.Set("X-Request-ID", "req-42")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "req-42", resp.Header.Get("X-Request-ID"))
}
