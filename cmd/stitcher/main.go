// Package main provides the entry point for the stitcher CLI.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/maauso/stitcher/internal/bootstrap"
	"github.com/maauso/stitcher/internal/config"
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	os.Exit(code)
}

func run() (int, error) {
	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		return 1, fmt.Errorf("load config: %w", err)
	}

	// Structured logs go to stderr; stdout carries the console report
	logger := cfg.NewLogger(os.Stderr)
	slog.SetDefault(logger)

	logger.Info("starting stitcher",
		slog.String("main", cfg.MainClip),
		slog.String("background", cfg.BackgroundClip),
		slog.String("output", cfg.OutputPath),
		slog.String("layout_file", cfg.LayoutFile),
		slog.String("preset", cfg.EncodePreset),
		slog.Int("crf", cfg.EncodeCRF),
		slog.Bool("s3_enabled", cfg.S3Enabled()),
	)
	logger.Debug("configuration", slog.String("config", cfg.String()))

	// Interrupts cancel the running encode
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := bootstrap.NewDependencies(ctx, cfg, os.Stdin, os.Stdout, logger)
	if err != nil {
		return 1, fmt.Errorf("initialize dependencies: %w", err)
	}

	status := deps.Orchestrator.Run(ctx, cfg.MainClip, cfg.BackgroundClip, cfg.OutputPath)
	return status.Code(), nil
}
