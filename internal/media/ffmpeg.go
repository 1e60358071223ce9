package media

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"
)

// Compile-time check that FFmpegBackend implements Backend.
var _ Backend = (*FFmpegBackend)(nil)

// FFmpegBackend implements Backend using the ffmpeg and ffprobe CLIs.
// It tracks which opened sources are still live so that writes of released
// clips fail loudly instead of silently re-reading files.
type FFmpegBackend struct {
	// ffmpegPath is the path to the ffmpeg binary. Defaults to "ffmpeg".
	ffmpegPath string
	// ffprobePath is the path to the ffprobe binary. Defaults to "ffprobe".
	ffprobePath string
	logger      *slog.Logger

	mu   sync.Mutex
	open map[*source]struct{}
}

// NewFFmpegBackend creates a new FFmpegBackend.
// Empty binary paths default to "ffmpeg" and "ffprobe" (found via PATH).
func NewFFmpegBackend(ffmpegPath, ffprobePath string, logger *slog.Logger) *FFmpegBackend {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FFmpegBackend{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		logger:      logger.With(slog.String("component", "ffmpeg")),
		open:        make(map[*source]struct{}),
	}
}

// Open probes path and returns a clip covering its full timeline.
func (b *FFmpegBackend) Open(ctx context.Context, path string) (Clip, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Clip{}, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return Clip{}, &DecodeError{Path: path, Err: err}
	}

	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return Clip{}, &DecodeError{Path: path, Err: err}
	}
	if !isVideo(mt) {
		return Clip{}, &DecodeError{Path: path, Err: fmt.Errorf("%w: %s", ErrNotVideo, mt.String())}
	}

	info, err := b.probe(ctx, path)
	if err != nil {
		return Clip{}, &DecodeError{Path: path, Err: err}
	}

	clip := NewClip(path, info.duration, info.size, info.fps, info.hasAudio)

	b.mu.Lock()
	for _, src := range clip.sources() {
		b.open[src] = struct{}{}
	}
	b.mu.Unlock()

	b.logger.Debug("opened clip",
		slog.String("path", path),
		slog.String("mime", mt.String()),
		slog.Float64("duration", info.duration),
		slog.String("size", info.size.String()),
		slog.Bool("has_audio", info.hasAudio),
	)
	return clip, nil
}

// Write renders clip into path with the given encoder settings.
// ffmpeg is invoked with -y, so callers decide beforehand whether an
// existing file may be replaced.
func (b *FFmpegBackend) Write(ctx context.Context, clip Clip, path string, opts EncodeOptions) error {
	if err := b.checkOpen(clip); err != nil {
		return &EncodeError{Path: path, Err: err}
	}

	args, err := buildArgs(clip, path, opts)
	if err != nil {
		return &EncodeError{Path: path, Err: err}
	}

	b.logger.Info("encoding",
		slog.String("output", path),
		slog.Float64("duration", clip.Duration()),
		slog.String("size", clip.Size().String()),
		slog.Int("inputs", len(clip.Sources())),
	)

	if err := b.runFFmpeg(ctx, args, clip.Duration(), opts.Progress); err != nil {
		return &EncodeError{Path: path, Err: err}
	}
	return nil
}

// Close releases every source referenced by clip.
func (b *FFmpegBackend) Close(clip Clip) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, src := range clip.sources() {
		delete(b.open, src)
	}
	return nil
}

// OpenCount returns the number of sources opened and not yet released.
func (b *FFmpegBackend) OpenCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.open)
}

func (b *FFmpegBackend) checkOpen(clip Clip) error {
	if clip.IsZero() {
		return ErrNoLayers
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, src := range clip.sources() {
		if _, ok := b.open[src]; !ok {
			return fmt.Errorf("%w: %s", ErrClipClosed, src.path)
		}
	}
	return nil
}

// runFFmpeg executes ffmpeg with the given arguments and returns an error
// containing stderr output if the command fails. Progress blocks are parsed
// out of stderr and passed to onProgress.
func (b *FFmpegBackend) runFFmpeg(ctx context.Context, args []string, total float64, onProgress ProgressFunc) error {
	args = append([]string{"-y", "-hide_banner", "-nostats", "-progress", "pipe:2"}, args...)

	b.logger.Debug("executing ffmpeg", slog.Any("args", args))

	// #nosec G204 - ffmpegPath is set by the application, not user input
	cmd := exec.CommandContext(ctx, b.ffmpegPath, args...)

	var stderr bytes.Buffer
	pw := newProgressWriter(&stderr, total, onProgress)
	cmd.Stderr = pw

	err := cmd.Run()
	pw.Flush()
	if err != nil {
		// Check if context was cancelled
		if ctx.Err() != nil {
			return fmt.Errorf("ffmpeg cancelled: %w", ctx.Err())
		}
		return &FFmpegError{
			Args:   args,
			Stderr: stderr.String(),
			Err:    err,
		}
	}

	return nil
}

// probeInfo is the subset of ffprobe output the stitcher consumes.
type probeInfo struct {
	duration float64
	size     Size
	fps      float64
	hasAudio bool
}

// probeResult matches ffprobe JSON output structure.
type probeResult struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType  string `json:"codec_type"`
		Width      int    `json:"width"`
		Height     int    `json:"height"`
		RFrameRate string `json:"r_frame_rate"`
		Duration   string `json:"duration"`
	} `json:"streams"`
}

// probe reads duration, dimensions, frame rate and audio presence via ffprobe.
func (b *FFmpegBackend) probe(ctx context.Context, path string) (probeInfo, error) {
	// #nosec G204 - ffprobePath is set by the application, not user input
	cmd := exec.CommandContext(ctx, b.ffprobePath,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return probeInfo{}, fmt.Errorf("ffprobe cancelled: %w", ctx.Err())
		}
		return probeInfo{}, fmt.Errorf("%w: %w, stderr: %s", ErrFFprobeExecution, err, stderr.String())
	}

	return parseProbe(stdout.Bytes())
}

func parseProbe(data []byte) (probeInfo, error) {
	var res probeResult
	if err := json.Unmarshal(data, &res); err != nil {
		return probeInfo{}, fmt.Errorf("parse ffprobe output: %w", err)
	}

	var info probeInfo
	var videoFound bool
	var streamDuration float64
	for _, s := range res.Streams {
		switch s.CodecType {
		case "video":
			if videoFound {
				continue
			}
			videoFound = true
			info.size = Size{Width: s.Width, Height: s.Height}
			info.fps = parseFrameRate(s.RFrameRate)
			streamDuration, _ = strconv.ParseFloat(s.Duration, 64)
		case "audio":
			info.hasAudio = true
		}
	}
	if !videoFound || !info.size.Valid() {
		return probeInfo{}, ErrNoVideoStream
	}

	if d, err := strconv.ParseFloat(res.Format.Duration, 64); err == nil && d > 0 {
		info.duration = d
	} else if streamDuration > 0 {
		info.duration = streamDuration
	} else {
		return probeInfo{}, fmt.Errorf("parse duration: %q", res.Format.Duration)
	}
	return info, nil
}

// parseFrameRate converts an ffprobe rational such as "30000/1001".
func parseFrameRate(rate string) float64 {
	num, den, ok := strings.Cut(rate, "/")
	if !ok {
		f, _ := strconv.ParseFloat(rate, 64)
		return f
	}
	n, err1 := strconv.ParseFloat(num, 64)
	d, err2 := strconv.ParseFloat(den, 64)
	if err1 != nil || err2 != nil || d == 0 {
		return 0
	}
	return n / d
}

// isVideo reports whether mt, or one of its parents, is a video type.
func isVideo(mt *mimetype.MIME) bool {
	for m := mt; m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), "video/") {
			return true
		}
	}
	return false
}
