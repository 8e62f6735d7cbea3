// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"meeting-recap/internal/config"
	"meeting-recap/internal/domain/model"
	"meeting-recap/internal/infra/adapters/ollama"
	"meeting-recap/internal/infra/adapters/whisper"
	"meeting-recap/internal/infra/api"
	"meeting-recap/internal/infra/export"
	"meeting-recap/internal/infra/jobstore"
	"meeting-recap/internal/infra/logging"
	"meeting-recap/internal/infra/metrics"
	"meeting-recap/internal/infra/prompts"
	"meeting-recap/internal/infra/sched"
	"meeting-recap/internal/infra/tokens"
	"meeting-recap/internal/infra/watcher"
	"meeting-recap/internal/infra/worker"
	"meeting-recap/internal/usecase"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev, os.Stdout)
	if cfg.Runtime.FromDefaults {
		logger.Warn().Str("path", *cfgPath).Msg("config file not found; using defaults")
	}
	if cfg.Server.APIKey == "" {
		logger.Fatal().Msg("server.api_key (or RECAP_API_KEY) must be set")
	}

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Backends ----
	catalog := prompts.Default()
	pipeline := usecase.NewPipeline(cfg, usecase.PipelineDeps{
		Transcribers: whisper.NewProvider(cfg.Whisper, logger),
		Generators:   ollama.NewProvider(cfg.Ollama, logger),
		Prompts:      catalog,
		Tokens:       tokens.NewCounter(cfg.Analysis.TokenEncoding, logger),
		Exporter:     export.NewDocx("Meeting Recap"),
	}, logger)

	// ---- Jobs ----
	jobs := jobstore.NewMemory()
	pool := worker.NewPool(cfg.Jobs.MaxConcurrent, logger)
	pool.Start(ctx)
	processor := worker.NewJobProcessor(jobs, pool, logger)
	jobUC := usecase.NewJobUseCase(pipeline, jobs, processor, logger)

	// ---- Retention worker (opt-in) ----
	if cfg.Jobs.Retention > 0 {
		retention := sched.NewRetentionWorker(cfg.Jobs.SweepInterval, cfg.Jobs.Retention, jobs, logger)
		go func() { _ = retention.Run(ctx) }()
	}

	// ---- Inbox watcher (optional) ----
	if cfg.Watch.Dir != "" {
		validator := pipeline.Validator()
		w, err := watcher.New(cfg.Watch.Dir, cfg.Watch.SettleDelay,
			func(path string) bool {
				c := usecase.Classify(path)
				return c == model.FileAudio || c == model.FileVideo
			},
			func(ctx context.Context, path string) error {
				if err := validator.ValidateMedia(path); err != nil {
					return err
				}
				_, err := jobUC.SubmitTranscription(ctx, model.TranscriptionRequest{
					SourcePath: path,
					Model:      cfg.Watch.Model,
					OutputDir:  cfg.Watch.OutputDir,
				})
				return err
			},
			logger)
		if err != nil {
			logger.Fatal().Err(err).Str("dir", cfg.Watch.Dir).Msg("inbox watcher")
		}
		go func() {
			if err := w.Run(ctx); err != nil {
				logger.Error().Err(err).Msg("inbox watcher stopped")
			}
		}()
	}

	// ---- HTTP server ----
	srv := api.NewServer(jobUC, api.Options{
		APIKey:         cfg.Server.APIKey,
		APIKeyHeader:   cfg.Server.APIKeyHeader,
		RequestTimeout: cfg.Server.RequestTimeout,
	}, logger)
	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Str("version", version).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server error")
			cancel()
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigc:
	case <-ctx.Done():
	}
	logger.Info().Msg("shutdown requested")

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("http shutdown")
	}
	cancel()
	pool.Stop()
}
