// Package bootstrap provides dependency initialization for the stitcher CLI.
package bootstrap

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/maauso/stitcher/internal/config"
	"github.com/maauso/stitcher/internal/media"
	"github.com/maauso/stitcher/internal/runid"
	"github.com/maauso/stitcher/internal/stitch"
	"github.com/maauso/stitcher/internal/storage"
)

// Dependencies holds all initialized dependencies for a run.
type Dependencies struct {
	RunID        string
	StartedAt    time.Time
	Backend      *media.FFmpegBackend
	Orchestrator *stitch.Orchestrator
}

// NewDependencies creates and initializes all dependencies for the application.
// Console lines go to stdout and the overwrite prompt reads from stdin.
func NewDependencies(ctx context.Context, cfg *config.Config, stdin io.Reader, stdout io.Writer, logger *slog.Logger) (*Dependencies, error) {
	id := runid.Generate()
	runLogger := logger.With(slog.String("run_id", id))
	startedAt, _ := runid.Time(id)
	runLogger.Info("run started", slog.Time("started_at", startedAt))

	spec, err := cfg.Layout()
	if err != nil {
		return nil, fmt.Errorf("load layout: %w", err)
	}

	store, publisher, err := initStorage(ctx, cfg, id, runLogger)
	if err != nil {
		return nil, err
	}

	backend := media.NewFFmpegBackend(cfg.FFmpegPath, cfg.FFprobePath, runLogger)

	encode := media.DefaultEncodeOptions()
	encode.Preset = cfg.EncodePreset
	encode.CRF = cfg.EncodeCRF

	opts := []stitch.Option{
		stitch.WithEncodeOptions(encode),
		stitch.WithRunID(id),
	}
	if publisher != nil {
		opts = append(opts, stitch.WithPublisher(publisher))
	}

	orch := stitch.NewOrchestrator(
		backend,
		store,
		spec,
		stitch.NewLineConfirmer(stdin, stdout),
		stdout,
		logger,
		opts...,
	)

	return &Dependencies{
		RunID:        id,
		StartedAt:    startedAt,
		Backend:      backend,
		Orchestrator: orch,
	}, nil
}

// initStorage creates the staging store and, when S3 is configured, a
// publisher that uploads the output under <prefix>/<run id>/<file name>.
func initStorage(ctx context.Context, cfg *config.Config, id string, logger *slog.Logger) (storage.Storage, stitch.Publisher, error) {
	tempDir := cfg.TempDir
	if tempDir == "" {
		tempDir = filepath.Dir(cfg.OutputPath)
	}

	if cfg.S3Enabled() {
		s3Cfg := storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			Prefix:          cfg.S3Prefix,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		}
		s3Store, err := storage.NewS3Storage(ctx, tempDir, s3Cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 storage configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
			slog.String("temp_dir", tempDir),
		)
		publisher := stitch.NewStoragePublisher(s3Store, func(path string) string {
			return s3Store.Key(runid.ObjectName(id, path))
		})
		return s3Store, publisher, nil
	}

	localStore, err := storage.NewLocalStorage(tempDir)
	if err != nil {
		return nil, nil, fmt.Errorf("create local storage: %w", err)
	}
	logger.Info("local storage configured",
		slog.String("temp_dir", tempDir),
	)
	return localStore, nil, nil
}
