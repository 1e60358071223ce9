package stitch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/maauso/stitcher/internal/media"
)

// Loader opens video files through a media backend and sizes them for a slot.
type Loader struct {
	backend media.Backend
	logger  *slog.Logger
}

// NewLoader creates a Loader.
func NewLoader(backend media.Backend, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{backend: backend, logger: logger}
}

// Load opens path and resizes it to exactly size, ignoring aspect ratio.
// A missing path fails with media.ErrNotFound before the backend is touched.
// The caller owns the returned clip and must release it with the backend.
func (l *Loader) Load(ctx context.Context, path string, size media.Size) (media.Clip, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return media.Clip{}, fmt.Errorf("%w: %s", media.ErrNotFound, path)
		}
		return media.Clip{}, fmt.Errorf("stat %s: %w", path, err)
	}

	clip, err := l.backend.Open(ctx, path)
	if err != nil {
		return media.Clip{}, err
	}

	resized, err := clip.Resize(size)
	if err != nil {
		if cerr := l.backend.Close(clip); cerr != nil {
			l.logger.Warn("failed to release clip",
				slog.String("path", path),
				slog.String("error", cerr.Error()),
			)
		}
		return media.Clip{}, fmt.Errorf("resize %s: %w", path, err)
	}

	l.logger.Info("clip loaded",
		slog.String("path", path),
		slog.Float64("duration", clip.Duration()),
		slog.String("source_size", clip.Size().String()),
		slog.String("size", size.String()),
	)
	return resized, nil
}
