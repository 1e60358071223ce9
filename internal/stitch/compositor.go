package stitch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/maauso/stitcher/internal/layout"
	"github.com/maauso/stitcher/internal/media"
	"github.com/maauso/stitcher/internal/storage"
)

// durationTolerance is how far apart the two slot durations may be.
const durationTolerance = 1e-3

// ErrPrecondition is returned when a Request's clips are not ready to stack.
var ErrPrecondition = errors.New("composition precondition violated")

// Request is a pair of sized, duration-matched clips and their destination.
type Request struct {
	Top        media.Clip
	Bottom     media.Clip
	OutputPath string
}

// validate checks that the clips are present, equally long and equally wide.
func (r Request) validate() error {
	switch {
	case r.Top.IsZero() || r.Bottom.IsZero():
		return fmt.Errorf("%w: missing clip", ErrPrecondition)
	case r.OutputPath == "":
		return fmt.Errorf("%w: empty output path", ErrPrecondition)
	case math.Abs(r.Top.Duration()-r.Bottom.Duration()) > durationTolerance:
		return fmt.Errorf("%w: durations %.3fs and %.3fs differ",
			ErrPrecondition, r.Top.Duration(), r.Bottom.Duration())
	case r.Top.Size().Width != r.Bottom.Size().Width:
		return fmt.Errorf("%w: widths %d and %d differ",
			ErrPrecondition, r.Top.Size().Width, r.Bottom.Size().Width)
	}
	return nil
}

// Compositor stacks two clips on the layout canvas and encodes the result.
type Compositor struct {
	backend media.Backend
	store   storage.Storage
	layout  layout.Spec
	confirm Confirmer
	encode  media.EncodeOptions
	logger  *slog.Logger
}

// NewCompositor creates a Compositor that encodes with media.DefaultEncodeOptions.
func NewCompositor(
	backend media.Backend,
	store storage.Storage,
	spec layout.Spec,
	confirm Confirmer,
	logger *slog.Logger,
) *Compositor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Compositor{
		backend: backend,
		store:   store,
		layout:  spec,
		confirm: confirm,
		encode:  media.DefaultEncodeOptions(),
		logger:  logger,
	}
}

// SetEncodeOptions replaces the encoder settings.
func (c *Compositor) SetEncodeOptions(opts media.EncodeOptions) {
	c.encode = opts
}

// Composite places req.Top in the top slot and req.Bottom in the bottom slot,
// then encodes the canvas to req.OutputPath.
//
// An existing output is only replaced after the operator confirms; a declined
// prompt returns (false, nil) without encoding. The encode goes to a staging
// file which replaces the output only on success. The request's clips and the
// composite are released on every return path.
func (c *Compositor) Composite(ctx context.Context, req Request) (written bool, err error) {
	var composite media.Clip
	defer func() {
		c.release(req.Top, req.Bottom, composite)
	}()

	if err := req.validate(); err != nil {
		return false, err
	}

	ok, err := c.allowWrite(req.OutputPath)
	if err != nil || !ok {
		return false, err
	}

	top := req.Top.SetPosition(media.Point{
		X: c.layout.CenterX(req.Top.Size().Width),
		Y: c.layout.Top.Offset.Y,
	})
	bottom := req.Bottom.SetPosition(media.Point{
		X: c.layout.CenterX(req.Bottom.Size().Width),
		Y: c.layout.Bottom.Offset.Y,
	})
	composite, err = media.Composite(c.layout.Canvas, top, bottom)
	if err != nil {
		return false, fmt.Errorf("composite: %w", err)
	}

	staged, err := c.store.Reserve(ctx, stagingPattern(req.OutputPath))
	if err != nil {
		return false, &media.EncodeError{Path: req.OutputPath, Err: err}
	}
	promoted := false
	defer func() {
		if promoted {
			return
		}
		if cerr := c.store.CleanupTemp(context.WithoutCancel(ctx), []string{staged}); cerr != nil {
			c.logger.Warn("failed to remove staging file",
				slog.String("path", staged),
				slog.String("error", cerr.Error()),
			)
		}
	}()

	c.logger.Info("writing composite",
		slog.String("output", req.OutputPath),
		slog.String("staging", staged),
		slog.Float64("duration", composite.Duration()),
		slog.String("canvas", composite.Size().String()),
	)

	if err := c.backend.Write(ctx, composite, staged, c.encode); err != nil {
		return false, err
	}
	if err := c.store.Promote(ctx, staged, req.OutputPath); err != nil {
		return false, &media.EncodeError{Path: req.OutputPath, Err: err}
	}
	promoted = true
	return true, nil
}

// allowWrite reports whether path may be written, prompting when it exists.
func (c *Compositor) allowWrite(path string) (bool, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return true, nil
		}
		return false, fmt.Errorf("stat output: %w", err)
	}

	ok, err := c.confirm.Confirm(fmt.Sprintf("Output file '%s' already exists. Overwrite? (y/n): ", path))
	if err != nil {
		return false, fmt.Errorf("confirm overwrite: %w", err)
	}
	if !ok {
		c.logger.Info("overwrite declined", slog.String("output", path))
	}
	return ok, nil
}

func (c *Compositor) release(clips ...media.Clip) {
	for _, clip := range clips {
		if clip.IsZero() {
			continue
		}
		if err := c.backend.Close(clip); err != nil {
			c.logger.Warn("failed to release clip",
				slog.Any("sources", clip.Sources()),
				slog.String("error", err.Error()),
			)
		}
	}
}

// stagingPattern names the staging file after the output, hidden and with
// the same extension so the encoder picks the same container.
func stagingPattern(output string) string {
	base := filepath.Base(output)
	ext := filepath.Ext(base)
	if ext == "" {
		ext = ".mp4"
	}
	return "." + strings.TrimSuffix(base, filepath.Ext(base)) + "_*" + ext
}
