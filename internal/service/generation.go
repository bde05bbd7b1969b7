package service

import (
	"context"
	"time"

	"github.com/HuiYanWanXiang/HuiYanWanXiang/internal/codecheck"
	"github.com/HuiYanWanXiang/HuiYanWanXiang/internal/llm"
	"github.com/HuiYanWanXiang/HuiYanWanXiang/internal/logger"
	"github.com/HuiYanWanXiang/HuiYanWanXiang/internal/prompts"
)

// Pipeline describes how one artifact type is generated and validated.
type Pipeline struct {
	Name         string
	SystemPrompt string
	Temperature  float64
	MaxTokens    int
	// Check validates a sanitized candidate and returns the text to keep.
	// The error message is fed into the next prompt verbatim.
	Check func(candidate, request string) (string, error)
	// RetryPrompt builds the prompt that follows a failed attempt.
	RetryPrompt func(reason, request, previous string) string
}

// ScenePipeline generates Manim scene code: patch, static safety validation
// and the optional quality gate.
func ScenePipeline(gate codecheck.QualityGate) Pipeline {
	return Pipeline{
		Name:         "scene",
		SystemPrompt: prompts.ManimSystemPrompt,
		Temperature:  0.6,
		MaxTokens:    4096,
		Check: func(candidate, request string) (string, error) {
			code := codecheck.Patch(candidate)
			if err := codecheck.CheckSafety(code); err != nil {
				return "", err
			}
			if err := gate.Check(code, request); err != nil {
				return "", err
			}
			return code, nil
		},
		RetryPrompt: prompts.ManimRetryPrompt,
	}
}

// MarkupPipeline generates a single HTML document. Documents cut off before
// </html> are completed rather than rejected.
func MarkupPipeline(systemPrompt string) Pipeline {
	return Pipeline{
		Name:         "markup",
		SystemPrompt: systemPrompt,
		Temperature:  0.7,
		MaxTokens:    8192,
		Check: func(candidate, _ string) (string, error) {
			if err := codecheck.CheckMarkup(candidate); err != nil {
				return "", err
			}
			doc, appended := codecheck.CompleteMarkup(candidate)
			if appended {
				logger.Warn("Markup truncated before </html>, closing tags appended")
			}
			return doc, nil
		},
		RetryPrompt: prompts.HTMLRetryPrompt,
	}
}

// GenerateInput is one invocation of the retry loop.
type GenerateInput struct {
	// Request is the original user request, used by quality checks and
	// restated in retry prompts.
	Request string
	// Prompt is the first user prompt.
	Prompt string
	// MaxAttempts bounds the LLM round trips; values below 1 mean 1.
	MaxAttempts int
}

// GenerateResult is the validated output of the retry loop.
type GenerateResult struct {
	Text     string
	Attempts int
}

// Generator runs the generate-validate-regenerate loop against one LLM.
type Generator struct {
	client llm.Completer
	model  string
}

// NewGenerator creates a generator bound to a client and model.
func NewGenerator(client llm.Completer, model string) *Generator {
	return &Generator{client: client, model: model}
}

// Generate calls the LLM until a candidate passes p.Check or the attempt
// budget runs out. Attempts are sequential because each prompt carries the
// previous failure. An LLM error ends the loop immediately as *UpstreamError;
// exhaustion returns *ExhaustedError with the last failure reason.
func (g *Generator) Generate(ctx context.Context, p Pipeline, in GenerateInput) (*GenerateResult, error) {
	maxAttempts := in.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	prompt := in.Prompt
	lastReason := ""
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		start := time.Now()
		raw, err := g.client.Complete(ctx, llm.Request{
			Model: g.model,
			Messages: []llm.Message{
				{Role: llm.RoleSystem, Content: p.SystemPrompt},
				{Role: llm.RoleUser, Content: prompt},
			},
			Temperature: p.Temperature,
			MaxTokens:   p.MaxTokens,
		})
		if err != nil {
			return nil, &UpstreamError{Attempt: attempt, Err: err}
		}

		entry := logger.With(logger.Fields{
			logger.FieldComponent:  p.Name,
			logger.FieldAttempt:    attempt,
			logger.FieldDurationMs: time.Since(start).Milliseconds(),
		})

		candidate := codecheck.Sanitize(raw)
		out, err := p.Check(candidate, in.Request)
		if err == nil {
			entry.Info(ctx, "Candidate accepted")
			return &GenerateResult{Text: out, Attempts: attempt}, nil
		}

		lastReason = err.Error()
		entry.Warn(ctx, "Candidate rejected: %s", lastReason)
		prompt = p.RetryPrompt(lastReason, in.Request, candidate)
	}

	return nil, &ExhaustedError{Attempts: maxAttempts, LastReason: lastReason}
}
