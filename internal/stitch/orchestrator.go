// Package stitch stacks a main clip over a looped or trimmed background clip
// on a vertical canvas and writes the result as a single MP4.
package stitch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/maauso/stitcher/internal/layout"
	"github.com/maauso/stitcher/internal/media"
	"github.com/maauso/stitcher/internal/storage"
)

// ExitStatus is the outcome of a run.
type ExitStatus int

// Run outcomes.
const (
	StatusSucceeded ExitStatus = iota
	StatusCancelled
	StatusInterrupted
	StatusNotFound
	StatusFailed
)

// Code returns the process exit code for the status. A declined overwrite is
// not a failure.
func (s ExitStatus) Code() int {
	switch s {
	case StatusSucceeded, StatusCancelled:
		return 0
	case StatusInterrupted:
		return 130
	default:
		return 1
	}
}

func (s ExitStatus) String() string {
	switch s {
	case StatusSucceeded:
		return "succeeded"
	case StatusCancelled:
		return "cancelled"
	case StatusInterrupted:
		return "interrupted"
	case StatusNotFound:
		return "not_found"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// openCounter is implemented by backends that can report unreleased sources.
type openCounter interface {
	OpenCount() int
}

// Orchestrator runs the fixed load, match, composite and report pipeline.
type Orchestrator struct {
	backend    media.Backend
	loader     *Loader
	compositor *Compositor
	layout     layout.Spec
	reporter   *Reporter
	publisher  Publisher
	runID      string
	logger     *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithEncodeOptions sets the encoder settings. Progress is always routed to
// the console report.
func WithEncodeOptions(opts media.EncodeOptions) Option {
	return func(o *Orchestrator) {
		opts.Progress = o.reporter.Progress
		o.compositor.SetEncodeOptions(opts)
	}
}

// WithPublisher uploads the written output after a successful run.
func WithPublisher(p Publisher) Option {
	return func(o *Orchestrator) {
		o.publisher = p
	}
}

// WithRunID tags every log record of the run.
func WithRunID(id string) Option {
	return func(o *Orchestrator) {
		o.runID = id
	}
}

// NewOrchestrator creates an Orchestrator. Console lines go to stdout;
// confirm answers the overwrite prompt.
func NewOrchestrator(
	backend media.Backend,
	store storage.Storage,
	spec layout.Spec,
	confirm Confirmer,
	stdout io.Writer,
	logger *slog.Logger,
	opts ...Option,
) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	o := &Orchestrator{
		backend:  backend,
		layout:   spec,
		reporter: NewReporter(stdout),
		logger:   logger,
	}
	o.loader = NewLoader(backend, logger)
	o.compositor = NewCompositor(backend, store, spec, confirm, logger)

	encode := media.DefaultEncodeOptions()
	encode.Progress = o.reporter.Progress
	o.compositor.SetEncodeOptions(encode)

	for _, opt := range opts {
		opt(o)
	}
	if o.runID != "" {
		o.logger = o.logger.With(slog.String("run_id", o.runID))
		o.loader.logger = o.logger
		o.compositor.logger = o.logger
	}
	return o
}

// Run stitches mainPath over backgroundPath into outputPath and reports the
// outcome on the console. Errors never escape: each becomes a console line,
// a log record and an ExitStatus.
func (o *Orchestrator) Run(ctx context.Context, mainPath, backgroundPath, outputPath string) ExitStatus {
	o.logger.Info("run started",
		slog.String("main", mainPath),
		slog.String("background", backgroundPath),
		slog.String("output", outputPath),
	)

	status := o.run(ctx, mainPath, backgroundPath, outputPath)

	if c, ok := o.backend.(openCounter); ok {
		if n := c.OpenCount(); n > 0 {
			o.logger.Warn("clip handles leaked", slog.Int("open", n))
		}
	}
	o.logger.Info("run finished",
		slog.String("status", status.String()),
		slog.Int("exit_code", status.Code()),
	)
	return status
}

func (o *Orchestrator) run(ctx context.Context, mainPath, backgroundPath, outputPath string) ExitStatus {
	o.reporter.Step("Loading main clip...")
	mainClip, err := o.loader.Load(ctx, mainPath, o.layout.Top.Size)
	if err != nil {
		return o.fail(ctx, err)
	}
	defer o.release(mainClip)

	o.reporter.Step("Loading background clip...")
	background, err := o.loader.Load(ctx, backgroundPath, o.layout.Bottom.Size)
	if err != nil {
		return o.fail(ctx, err)
	}
	defer o.release(background)

	o.reporter.Step("Processing background clip...")
	matched, err := MatchDuration(background.WithoutAudio(), mainClip.Duration())
	if err != nil {
		return o.fail(ctx, fmt.Errorf("match background duration: %w", err))
	}
	o.logger.Debug("background matched",
		slog.Float64("source_duration", background.Duration()),
		slog.Float64("target_duration", mainClip.Duration()),
		slog.Int("loops", matched.Loops()),
	)

	o.reporter.Step("Creating final video...")
	written, err := o.compositor.Composite(ctx, Request{
		Top:        mainClip,
		Bottom:     matched,
		OutputPath: outputPath,
	})
	if err != nil {
		return o.fail(ctx, err)
	}
	if !written {
		o.reporter.Cancelled()
		return StatusCancelled
	}

	summary := Summary{
		Path:     outputPath,
		Duration: mainClip.Duration(),
		Canvas:   o.layout.Canvas,
		Aspect:   o.layout.AspectRatio(),
	}
	if info, err := os.Stat(outputPath); err == nil {
		summary.Bytes = info.Size()
	}
	o.reporter.Summary(summary)

	if o.publisher != nil {
		url, err := o.publisher.Publish(ctx, outputPath)
		if err != nil {
			return o.fail(ctx, fmt.Errorf("publish: %w", err))
		}
		o.reporter.Uploaded(url)
		o.logger.Info("output published", slog.String("url", url))
	}
	return StatusSucceeded
}

// fail reports err and maps it to an ExitStatus.
func (o *Orchestrator) fail(ctx context.Context, err error) ExitStatus {
	switch {
	case ctx.Err() != nil || errors.Is(err, context.Canceled):
		o.logger.Warn("run interrupted", slog.String("error", err.Error()))
		o.reporter.Cancelled()
		return StatusInterrupted
	case errors.Is(err, media.ErrNotFound):
		o.logger.Error("input missing", slog.String("error", err.Error()))
		o.reporter.NotFound(err)
		return StatusNotFound
	default:
		o.logger.Error("run failed", slog.String("error", err.Error()))
		o.reporter.Failed(err)
		return StatusFailed
	}
}

func (o *Orchestrator) release(clip media.Clip) {
	if err := o.backend.Close(clip); err != nil {
		o.logger.Warn("failed to release clip",
			slog.Any("sources", clip.Sources()),
			slog.String("error", err.Error()),
		)
	}
}
