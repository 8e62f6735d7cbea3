// Command bridge serves the recap pipeline to a desktop shell over stdio.
// Standard output carries only protocol JSON; all logs go to standard error.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"meeting-recap/internal/config"
	"meeting-recap/internal/infra/adapters/ollama"
	"meeting-recap/internal/infra/adapters/whisper"
	"meeting-recap/internal/infra/bridge"
	"meeting-recap/internal/infra/export"
	"meeting-recap/internal/infra/logging"
	"meeting-recap/internal/infra/tokens"
	"meeting-recap/internal/usecase"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pipeline := usecase.NewPipeline(cfg, usecase.PipelineDeps{
		Transcribers: whisper.NewProvider(cfg.Whisper, logger),
		Generators:   ollama.NewProvider(cfg.Ollama, logger),
		Tokens:       tokens.NewCounter(cfg.Analysis.TokenEncoding, logger),
		Exporter:     export.NewDocx("Meeting Recap"),
	}, logger)

	// Unblock the stdin read on SIGINT/SIGTERM.
	go func() {
		<-ctx.Done()
		_ = os.Stdin.Close()
	}()

	h := bridge.NewHandler(pipeline, os.Stdout, logger)
	if err := h.Serve(ctx, os.Stdin); err != nil && ctx.Err() == nil {
		logger.Error().Err(err).Msg("bridge stopped")
		os.Exit(1)
	}
	logger.Info().Msg("bridge shutting down")
}
