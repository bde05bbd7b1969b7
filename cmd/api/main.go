package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/HuiYanWanXiang/HuiYanWanXiang/internal/api"
	"github.com/HuiYanWanXiang/HuiYanWanXiang/internal/api/middleware"
	"github.com/HuiYanWanXiang/HuiYanWanXiang/internal/archive"
	"github.com/HuiYanWanXiang/HuiYanWanXiang/internal/config"
	"github.com/HuiYanWanXiang/HuiYanWanXiang/internal/domain"
	"github.com/HuiYanWanXiang/HuiYanWanXiang/internal/jobs"
	"github.com/HuiYanWanXiang/HuiYanWanXiang/internal/logger"
	"github.com/HuiYanWanXiang/HuiYanWanXiang/internal/render"
	"github.com/HuiYanWanXiang/HuiYanWanXiang/internal/repository"
	"github.com/HuiYanWanXiang/HuiYanWanXiang/internal/service"
	"github.com/HuiYanWanXiang/HuiYanWanXiang/internal/storage"
)

const shutdownTimeout = 5 * time.Second

func main() {
	logger.SetDefaultLogger(logger.NewDefault())
	defer logger.Sync()

	// Support CONFIG_PATH environment variable for production deployments
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		logger.Fatal("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Fatal("Server stopped with error: %v", err)
	}
	logger.Info("Server exited")
}

func run(ctx context.Context, cfg *config.Config) error {
	var history *repository.JobRecordRepository
	if cfg.Database.Enabled {
		db, err := repository.InitDB(&cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		history = repository.NewJobRecordRepository(db)
	}

	objectStorage, err := storage.NewStorage(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	var archiveOpts []archive.Option
	if objectStorage != nil {
		if err := objectStorage.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure storage bucket: %w", err)
		}
		archiveOpts = append(archiveOpts, archive.WithStorage(objectStorage))
	}
	archiver := archive.NewArchiver(cfg.Archive.Dir, archiveOpts...)

	registryOpts := jobs.Options{Retention: cfg.Jobs.Retention, SweepInterval: cfg.Jobs.SweepInterval}
	htmlRegistry := jobs.NewRegistry(string(domain.JobKindHTML), registryOpts)
	videoRegistry := jobs.NewRegistry(string(domain.JobKindVideo), registryOpts)

	defaults := domain.Credentials{APIKey: cfg.LLM.APIKey, BaseURL: cfg.LLM.BaseURL, Model: cfg.LLM.Model}

	// A nil *JobRecordRepository must not become a non-nil interface
	var recorder service.JobRecorder
	var repo api.Repository
	if history != nil {
		recorder, repo = history, history
	}

	htmlService := service.NewHTMLService(htmlRegistry, archiver, service.DefaultClientFactory, recorder, service.HTMLConfig{
		Defaults:         defaults,
		SystemPromptFile: cfg.Prompts.SystemFile,
		MaxAttempts:      cfg.Generation.HTMLMaxAttempts,
	})

	renderer := render.NewManimRenderer(render.ManimConfig{
		Python:         cfg.Render.Python,
		SceneName:      cfg.Render.SceneName,
		MaxOutputBytes: cfg.Render.MaxOutputBytes,
	})
	videoService := service.NewVideoService(videoRegistry, renderer, archiver, service.DefaultClientFactory, recorder, service.VideoConfig{
		Defaults:       defaults,
		RunsDir:        cfg.Render.RunsDir,
		DefaultQuality: domain.Quality(cfg.Generation.DefaultQuality),
		ErrorLogSize:   cfg.Jobs.ErrorLogSize,
		Pipeline: service.PipelineConfig{
			MaxGen:       cfg.Generation.MaxGen,
			MaxFix:       cfg.Generation.MaxFix,
			QualityCheck: cfg.Generation.QualityCheck,
			OutputTail:   cfg.Render.OutputTail,
		},
	})

	for _, dir := range []string{cfg.Render.RunsDir, cfg.Archive.Dir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	router := api.SetupRouter(api.Deps{
		HTML:          htmlService,
		Video:         videoService,
		HTMLRegistry:  htmlRegistry,
		VideoRegistry: videoRegistry,
		History:       repo,
		StaticDir:     cfg.Server.StaticDir,
		IndexFile:     cfg.Server.IndexFile,
		RunsDir:       cfg.Render.RunsDir,
		ArchiveDir:    cfg.Archive.Dir,
		CORS: middleware.CORSConfig{
			AllowedOrigins:  cfg.Server.CORS.AllowedOrigins,
			AllowAllOrigins: cfg.Server.CORS.AllowAllOrigins,
		},
	}, cfg.Server.Mode)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.With(logger.Fields{"port": cfg.Server.Port, "mode": cfg.Server.Mode}).
			Info(gctx, "Starting API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	})
	g.Go(func() error { return htmlRegistry.Run(gctx) })
	g.Go(func() error { return videoRegistry.Run(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	err = g.Wait()
	// In-flight jobs have no cancellation; their results would be lost
	// anyway, so shutdown does not wait for them.
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
