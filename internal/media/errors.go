package media

import (
	"errors"
	"fmt"
)

// Static errors for media operations.
var (
	// ErrNotFound is returned when an input path does not exist.
	ErrNotFound = errors.New("video file not found")
	// ErrInvalidDimensions is returned when the provided dimensions are not positive.
	ErrInvalidDimensions = errors.New("invalid dimensions: width and height must be positive")
	// ErrInvalidRange is returned when a subclip range is empty or outside the clip.
	ErrInvalidRange = errors.New("invalid subclip range")
	// ErrInvalidLoopCount is returned when a loop count is below one.
	ErrInvalidLoopCount = errors.New("invalid loop count: must be at least 1")
	// ErrCompositeTransform is returned when a timeline transform is applied to a composite.
	ErrCompositeTransform = errors.New("transform not supported on composite clips")
	// ErrLoopTrimmed is returned when a trimmed clip is looped.
	ErrLoopTrimmed = errors.New("looping a trimmed clip is not supported")
	// ErrNoLayers is returned when a composite is built without layers.
	ErrNoLayers = errors.New("composite requires at least one non-empty layer")
	// ErrClipClosed is returned when a released clip is written.
	ErrClipClosed = errors.New("clip has been closed")
	// ErrNotVideo is returned when a file is not a recognised video container.
	ErrNotVideo = errors.New("not a video container")
	// ErrNoVideoStream is returned when a container holds no video stream.
	ErrNoVideoStream = errors.New("no video stream found")
	// ErrFFprobeExecution is returned when ffprobe command fails.
	ErrFFprobeExecution = errors.New("ffprobe execution failed")
)

// FFmpegError represents an error from running ffmpeg, including the stderr output.
type FFmpegError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *FFmpegError) Error() string {
	return fmt.Sprintf("ffmpeg error: %v\nargs: %v\nstderr: %s", e.Err, e.Args, e.Stderr)
}

func (e *FFmpegError) Unwrap() error {
	return e.Err
}

// DecodeError reports a file that exists but could not be opened as video.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// EncodeError reports a failed render or write of an output file.
type EncodeError struct {
	Path string
	Err  error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode %s: %v", e.Path, e.Err)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}
