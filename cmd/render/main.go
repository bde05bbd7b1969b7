// Command render turns one natural-language request into a Manim video
// without running the HTTP server. Each run gets its own directory under
// --outdir holding the prompt, the script, renderer logs and media.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/HuiYanWanXiang/HuiYanWanXiang/internal/config"
	"github.com/HuiYanWanXiang/HuiYanWanXiang/internal/domain"
	"github.com/HuiYanWanXiang/HuiYanWanXiang/internal/llm"
	"github.com/HuiYanWanXiang/HuiYanWanXiang/internal/logger"
	"github.com/HuiYanWanXiang/HuiYanWanXiang/internal/render"
	"github.com/HuiYanWanXiang/HuiYanWanXiang/internal/service"
)

type options struct {
	configPath     string
	quality        string
	resolution     string
	fps            int
	duration       float64
	outdir         string
	maxFix         int
	maxGen         int
	noQualityCheck bool
}

func main() {
	logger.SetDefaultLogger(logger.NewDefault())
	defer logger.Sync()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "render <prompt>",
		Short:         "Generate and render a Manim teaching video",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx, cmd.OutOrStdout(), args[0], opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.configPath, "config", "", "Path to config file")
	f.StringVar(&opts.quality, "quality", string(domain.QualityLow), "Render quality: l, m, h or k")
	f.StringVar(&opts.resolution, "resolution", domain.DefaultResolution, "width,height e.g. 1920,1080 or 1080,1920")
	f.IntVar(&opts.fps, "fps", domain.DefaultFPS, "Frames per second")
	f.Float64Var(&opts.duration, "duration", domain.DefaultDuration, "Target duration in seconds (soft constraint)")
	f.StringVar(&opts.outdir, "outdir", "runs", "Output directory (scripts, logs and videos per run)")
	f.IntVar(&opts.maxFix, "max-fix", 2, "Max render-fix attempts when render fails")
	f.IntVar(&opts.maxGen, "max-gen", 2, "Max generation attempts per LLM round (safety and quality)")
	f.BoolVar(&opts.noQualityCheck, "no-quality-check", false, "Disable quality checks (not recommended)")
	return cmd
}

func run(ctx context.Context, out io.Writer, prompt string, opts *options) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	req := domain.VideoRequest{
		Prompt:     prompt,
		Duration:   opts.duration,
		Quality:    domain.Quality(opts.quality),
		FPS:        opts.fps,
		Resolution: opts.resolution,
	}
	req.ApplyDefaults(domain.QualityLow)
	if err := req.Validate(); err != nil {
		return err
	}

	client := llm.NewClient(llm.Config{APIKey: cfg.LLM.APIKey, BaseURL: cfg.LLM.BaseURL})
	renderer := render.NewManimRenderer(render.ManimConfig{
		Python:         cfg.Render.Python,
		SceneName:      cfg.Render.SceneName,
		MaxOutputBytes: cfg.Render.MaxOutputBytes,
	})
	pipeline := service.NewVideoPipeline(renderer, service.PipelineConfig{
		MaxGen:       opts.maxGen,
		MaxFix:       opts.maxFix,
		QualityCheck: !opts.noQualityCheck,
		OutputTail:   cfg.Render.OutputTail,
	})

	runDir := filepath.Join(opts.outdir, time.Now().Format(service.RunDirLayout))
	ctx = logger.WithFields(ctx, logger.Fields{logger.FieldComponent: "cli"})
	outcome, runErr := pipeline.Produce(ctx, client, cfg.LLM.Model, req, runDir)

	printSummary(out, summary{
		BaseURL: client.Endpoint(),
		Model:   cfg.LLM.Model,
		Request: req,
		Outcome: outcome,
		Err:     runErr,
	})
	return runErr
}

type summary struct {
	BaseURL string
	Model   string
	Request domain.VideoRequest
	Outcome *service.VideoOutcome
	Err     error
}

func printSummary(w io.Writer, s summary) {
	code := ""
	if s.Outcome != nil {
		code = absPath(filepath.Join(s.Outcome.RunDir, service.ScriptFileName))
	}

	if s.Err == nil {
		fmt.Fprintln(w, "[OK] Render success")
		fmt.Fprintf(w, "BaseURL: %s\n", s.BaseURL)
		fmt.Fprintf(w, "Model: %s\n", s.Model)
		fmt.Fprintf(w, "Resolution: %s  FPS: %d  Quality: -q%s\n", s.Request.Resolution, s.Request.FPS, s.Request.Quality)
		fmt.Fprintf(w, "Code:  %s\n", code)
		fmt.Fprintf(w, "Video: %s\n", absPath(s.Outcome.VideoPath()))
		return
	}

	if errors.Is(s.Err, service.ErrOutputMissing) {
		fmt.Fprintln(w, "Rendered but no mp4 found under run media dir (check run_dir/media).")
		return
	}

	fmt.Fprintln(w, "[ERROR] Render failed (logs saved under the run directory)")
	fmt.Fprintf(w, "BaseURL: %s\n", s.BaseURL)
	fmt.Fprintf(w, "Model: %s\n", s.Model)
	if code != "" {
		fmt.Fprintf(w, "Code:  %s\n", code)
	}
	var renderErr *service.RenderError
	if errors.As(s.Err, &renderErr) && s.Outcome != nil && s.Outcome.Repair != nil && s.Outcome.Repair.Last != nil {
		fmt.Fprintf(w, "Last returncode=%d\n", renderErr.ExitCode)
		fmt.Fprintln(w, render.Head(s.Outcome.Repair.Last.Stderr, 2000))
		return
	}
	fmt.Fprintln(w, s.Err.Error())
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}
