package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/HuiYanWanXiang/HuiYanWanXiang/internal/archive"
	"github.com/HuiYanWanXiang/HuiYanWanXiang/internal/codecheck"
	"github.com/HuiYanWanXiang/HuiYanWanXiang/internal/domain"
	"github.com/HuiYanWanXiang/HuiYanWanXiang/internal/jobs"
	"github.com/HuiYanWanXiang/HuiYanWanXiang/internal/llm"
	"github.com/HuiYanWanXiang/HuiYanWanXiang/internal/logger"
	"github.com/HuiYanWanXiang/HuiYanWanXiang/internal/prompts"
	"github.com/HuiYanWanXiang/HuiYanWanXiang/internal/render"
)

// VideoRunsURLPrefix is where run directories are served over HTTP.
const VideoRunsURLPrefix = "/video/runs"

// errorDetailTail bounds the stderr kept in an error log entry.
const errorDetailTail = 2000

// RunDirLayout names per-attempt run directories.
const RunDirLayout = "20060102_150405"

// PipelineConfig configures scene generation and rendering.
type PipelineConfig struct {
	MaxGen       int
	MaxFix       int
	QualityCheck bool
	// OutputTail bounds the renderer output kept for diagnostics.
	OutputTail int
}

// VideoOutcome is what a pipeline run produced. It is returned together
// with errors so callers can report diagnostics.
type VideoOutcome struct {
	RunDir           string
	GenerateAttempts int
	Repair           *RepairResult
}

// VideoPath returns the rendered file, or "" when rendering did not succeed.
func (o *VideoOutcome) VideoPath() string {
	if o == nil || o.Repair == nil {
		return ""
	}
	return o.Repair.VideoPath
}

// VideoPipeline generates a scene and renders it with repair. It has no job
// bookkeeping, so the CLI drives it directly.
type VideoPipeline struct {
	renderer render.Renderer
	cfg      PipelineConfig
}

// NewVideoPipeline creates a pipeline.
func NewVideoPipeline(renderer render.Renderer, cfg PipelineConfig) *VideoPipeline {
	if cfg.MaxGen < 1 {
		cfg.MaxGen = 1
	}
	if cfg.MaxFix < 0 {
		cfg.MaxFix = 0
	}
	if cfg.OutputTail <= 0 {
		cfg.OutputTail = 4000
	}
	return &VideoPipeline{renderer: renderer, cfg: cfg}
}

// Produce runs one request inside runDir, which must not exist yet or be
// empty. The prompt, the script and every attempt's output are kept there.
func (p *VideoPipeline) Produce(ctx context.Context, client llm.Completer, model string, req domain.VideoRequest, runDir string) (*VideoOutcome, error) {
	out := &VideoOutcome{RunDir: runDir}
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return out, fmt.Errorf("failed to create run dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(runDir, PromptFileName), []byte(req.Prompt), 0o644); err != nil {
		return out, fmt.Errorf("failed to write prompt: %w", err)
	}

	pipeline := ScenePipeline(codecheck.QualityGate{Enabled: p.cfg.QualityCheck})
	gen := NewGenerator(client, model)

	first, err := gen.Generate(ctx, pipeline, GenerateInput{
		Request:     req.Prompt,
		Prompt:      prompts.ManimInitialPrompt(req.Prompt, req.Duration),
		MaxAttempts: p.cfg.MaxGen,
	})
	if err != nil {
		return out, err
	}
	out.GenerateAttempts = first.Attempts

	rep, err := NewRepairer(p.renderer, gen, pipeline, p.cfg.OutputTail).Run(ctx, RepairInput{
		Request:    req.Prompt,
		Code:       first.Text,
		RunDir:     runDir,
		Quality:    req.Quality,
		Resolution: req.Resolution,
		FPS:        req.FPS,
		MaxFix:     p.cfg.MaxFix,
		MaxGen:     p.cfg.MaxGen,
	})
	out.Repair = rep
	return out, err
}

// VideoConfig configures the video service.
type VideoConfig struct {
	Defaults       domain.Credentials
	RunsDir        string
	DefaultQuality domain.Quality
	ErrorLogSize   int
	Pipeline       PipelineConfig
}

// VideoService runs video generation jobs.
type VideoService struct {
	registry *jobs.Registry
	pipeline *VideoPipeline
	archiver *archive.Archiver
	clients  ClientFactory
	recorder JobRecorder
	errors   *ErrorLog
	cfg      VideoConfig
	now      func() time.Time
	wg       sync.WaitGroup
}

// NewVideoService creates the service. archiver and recorder may be nil.
func NewVideoService(registry *jobs.Registry, renderer render.Renderer, archiver *archive.Archiver, clients ClientFactory, recorder JobRecorder, cfg VideoConfig) *VideoService {
	if clients == nil {
		clients = DefaultClientFactory
	}
	if cfg.DefaultQuality == "" {
		cfg.DefaultQuality = domain.QualityMedium
	}
	pipeline := NewVideoPipeline(renderer, cfg.Pipeline)
	cfg.Pipeline = pipeline.cfg
	return &VideoService{
		registry: registry,
		pipeline: pipeline,
		archiver: archiver,
		clients:  clients,
		recorder: recorder,
		errors:   NewErrorLog(cfg.ErrorLogSize),
		cfg:      cfg,
		now:      time.Now,
	}
}

// Submit validates the request, registers a queued job and starts its
// worker.
func (s *VideoService) Submit(ctx context.Context, req domain.VideoRequest) (string, error) {
	req.Prompt = strings.TrimSpace(req.Prompt)
	if req.Prompt == "" {
		return "", ErrEmptyPrompt
	}
	req.ApplyDefaults(s.cfg.DefaultQuality)
	if err := req.Validate(); err != nil {
		return "", &ValidationError{Field: "request", Message: err.Error()}
	}
	req.Credentials = resolveCredentials(req.Credentials, s.cfg.Defaults)

	id := s.registry.Create(jobs.NewJob{Kind: domain.JobKindVideo, Prompt: req.Prompt, Model: req.Model})
	jobCtx := logger.SetJob(context.WithoutCancel(ctx), id, string(domain.JobKindVideo))
	logger.With(logger.Fields{logger.FieldModel: req.Model}).
		Info(jobCtx, "Video job queued: quality=%s, fps=%d, resolution=%s, key=%s",
			req.Quality, req.FPS, req.Resolution, llm.MaskKey(req.APIKey))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		runJob(jobCtx, s.registry, s.recorder, s.now, id, func(ctx context.Context, run *jobRun) (domain.Done, error) {
			return s.execute(ctx, run, req)
		})
	}()

	return id, nil
}

func (s *VideoService) execute(ctx context.Context, run *jobRun, req domain.VideoRequest) (domain.Done, error) {
	runDir := filepath.Join(s.cfg.RunsDir, run.id, s.now().Format(RunDirLayout))
	client := s.clients(llm.Config{APIKey: req.APIKey, BaseURL: req.BaseURL})

	out, err := s.pipeline.Produce(ctx, client, req.Model, req, runDir)
	s.fillDiagnostics(&run.Diag, out)
	if err != nil {
		s.recordFailure(run.id, req, err, out)
		return domain.Done{}, err
	}

	videoPath := out.VideoPath()
	url, err := s.videoURL(videoPath)
	if err != nil {
		return domain.Done{}, err
	}

	done := domain.Done{ArtifactRef: url}
	if s.archiver != nil {
		key := path.Join("video", run.id, filepath.Base(videoPath))
		published, err := s.archiver.PublishVideo(ctx, videoPath, key)
		if err != nil {
			logger.CtxWarn(ctx, "Failed to publish video: %v", err)
		}
		done.ArtifactURL = published
	}
	return done, nil
}

func (s *VideoService) fillDiagnostics(d *domain.Diagnostics, out *VideoOutcome) {
	if out == nil || out.Repair == nil {
		return
	}
	rep := out.Repair
	d.RenderAttempts = rep.Attempts
	d.Repairs = rep.Repairs
	if rep.Last == nil {
		return
	}
	rc := rep.Last.ExitCode
	d.ReturnCode = &rc
	d.Cmd = rep.Last.Cmd
	d.StdoutTail = render.Tail(rep.Last.Stdout, s.cfg.Pipeline.OutputTail)
	d.StderrTail = render.Tail(rep.Last.Stderr, s.cfg.Pipeline.OutputTail)
}

func (s *VideoService) recordFailure(id string, req domain.VideoRequest, err error, out *VideoOutcome) {
	message := err.Error()
	if errors.Is(err, ErrOutputMissing) {
		message = "render ok but mp4 not found"
	}

	var stderr string
	if out != nil && out.Repair != nil && out.Repair.Last != nil {
		stderr = render.Tail(out.Repair.Last.Stderr, errorDetailTail)
	}
	detail := fmt.Sprintf("job_id=%s | prompt=%s | model=%s | base_url=%s\n%s",
		id, req.Prompt, req.Model, req.BaseURL, stderr)
	s.errors.Record(message, detail)
}

// videoURL maps a file under RunsDir to its public path.
func (s *VideoService) videoURL(p string) (string, error) {
	rel, err := filepath.Rel(s.cfg.RunsDir, p)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("video %s is outside the runs dir", p)
	}
	return VideoRunsURLPrefix + "/" + filepath.ToSlash(rel), nil
}

// Get returns a snapshot of a video job.
func (s *VideoService) Get(id string) (domain.Job, bool) {
	return s.registry.Get(id)
}

// Errors returns recent video failures, oldest first.
func (s *VideoService) Errors() []VideoErrorEntry {
	return s.errors.List()
}

// Wait blocks until every started worker has finished.
func (s *VideoService) Wait() {
	s.wg.Wait()
}
