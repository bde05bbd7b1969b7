package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/HuiYanWanXiang/HuiYanWanXiang/internal/archive"
	"github.com/HuiYanWanXiang/HuiYanWanXiang/internal/domain"
	"github.com/HuiYanWanXiang/HuiYanWanXiang/internal/jobs"
	"github.com/HuiYanWanXiang/HuiYanWanXiang/internal/llm"
	"github.com/HuiYanWanXiang/HuiYanWanXiang/internal/logger"
	"github.com/HuiYanWanXiang/HuiYanWanXiang/internal/prompts"
)

// HTMLConfig configures the HTML pipeline.
type HTMLConfig struct {
	Defaults         domain.Credentials
	SystemPromptFile string
	MaxAttempts      int
}

// HTMLOutcome is a validated page before it is archived.
type HTMLOutcome struct {
	Content        string
	KnowledgeTopic string
	Attempts       int
}

// HTMLService runs interactive page generation jobs.
type HTMLService struct {
	registry *jobs.Registry
	archiver *archive.Archiver
	clients  ClientFactory
	recorder JobRecorder
	cfg      HTMLConfig
	now      func() time.Time
	wg       sync.WaitGroup
}

// NewHTMLService creates the service. recorder may be nil.
func NewHTMLService(registry *jobs.Registry, archiver *archive.Archiver, clients ClientFactory, recorder JobRecorder, cfg HTMLConfig) *HTMLService {
	if clients == nil {
		clients = DefaultClientFactory
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 3
	}
	return &HTMLService{
		registry: registry,
		archiver: archiver,
		clients:  clients,
		recorder: recorder,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Submit validates the request, registers a queued job and starts its
// worker. It returns before any LLM call is made.
func (s *HTMLService) Submit(ctx context.Context, req domain.HTMLRequest) (string, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return "", ErrEmptyPrompt
	}
	creds := resolveCredentials(req.Credentials, s.cfg.Defaults)

	id := s.registry.Create(jobs.NewJob{Kind: domain.JobKindHTML, Prompt: prompt, Model: creds.Model})
	jobCtx := logger.SetJob(context.WithoutCancel(ctx), id, string(domain.JobKindHTML))
	logger.With(logger.Fields{logger.FieldModel: creds.Model}).
		Info(jobCtx, "HTML job queued: base_url=%s, key=%s", creds.BaseURL, llm.MaskKey(creds.APIKey))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		runJob(jobCtx, s.registry, s.recorder, s.now, id, func(ctx context.Context, run *jobRun) (domain.Done, error) {
			run.Diag.KnowledgeTopic = prompts.KnowledgeTopic(prompt)
			run.Publish()

			client := s.clients(llm.Config{APIKey: creds.APIKey, BaseURL: creds.BaseURL})
			out, err := s.Generate(ctx, client, creds.Model, prompt)
			if err != nil {
				return domain.Done{}, err
			}
			art, err := s.archiver.SaveHTML(ctx, out.Content, prompt)
			if err != nil {
				return domain.Done{}, err
			}
			return domain.Done{ArtifactRef: art.Name, ArtifactURL: art.URL, Content: out.Content}, nil
		})
	}()

	return id, nil
}

// Generate produces a validated page for prompt. Prompts that name a
// curated topic get the matching reference material in the system prompt.
func (s *HTMLService) Generate(ctx context.Context, client llm.Completer, model, prompt string) (*HTMLOutcome, error) {
	topic := prompts.KnowledgeTopic(prompt)
	if topic != "" {
		logger.CtxInfo(ctx, "Knowledge augmentation enabled: topic=%s", topic)
	}
	system := prompts.HTMLSystemPrompt(prompts.LoadSystemPrompt(s.cfg.SystemPromptFile), prompts.Knowledge(topic))

	res, err := NewGenerator(client, model).Generate(ctx, MarkupPipeline(system), GenerateInput{
		Request:     prompt,
		Prompt:      prompts.HTMLUserPrompt(prompt),
		MaxAttempts: s.cfg.MaxAttempts,
	})
	if err != nil {
		return nil, err
	}
	return &HTMLOutcome{Content: res.Text, KnowledgeTopic: topic, Attempts: res.Attempts}, nil
}

// Get returns a snapshot of an HTML job.
func (s *HTMLService) Get(id string) (domain.Job, bool) {
	return s.registry.Get(id)
}

// Wait blocks until every started worker has finished.
func (s *HTMLService) Wait() {
	s.wg.Wait()
}
