// Package media provides clip handles and the ffmpeg-backed media backend
// used to open, composite and encode video files.
package media

import "context"

// Default encoder settings for the stitched output.
const (
	DefaultVideoCodec = "libx264"
	DefaultAudioCodec = "aac"
	DefaultPreset     = "medium"
	DefaultCRF        = 23
)

// EncodeOptions configures a Backend.Write call.
type EncodeOptions struct {
	// VideoCodec is the ffmpeg video encoder. Defaults to libx264.
	VideoCodec string
	// AudioCodec is the ffmpeg audio encoder. Defaults to aac.
	AudioCodec string
	// Preset is the x264 speed preset. Defaults to medium.
	Preset string
	// CRF is the constant rate factor (0-51). Zero is lossless; start from
	// DefaultEncodeOptions for the default quality.
	CRF int
	// Progress, when set, receives encode progress updates.
	Progress ProgressFunc
}

// DefaultEncodeOptions returns the H.264/AAC configuration used for MP4 output.
func DefaultEncodeOptions() EncodeOptions {
	return EncodeOptions{
		VideoCodec: DefaultVideoCodec,
		AudioCodec: DefaultAudioCodec,
		Preset:     DefaultPreset,
		CRF:        DefaultCRF,
	}
}

func (o EncodeOptions) withDefaults() EncodeOptions {
	if o.VideoCodec == "" {
		o.VideoCodec = DefaultVideoCodec
	}
	if o.AudioCodec == "" {
		o.AudioCodec = DefaultAudioCodec
	}
	if o.Preset == "" {
		o.Preset = DefaultPreset
	}
	return o
}

// Backend defines the decode and encode operations the stitcher delegates to.
// Clip transforms (resize, trim, loop, reposition) are pure and live on Clip;
// only operations that touch files or hold resources go through the backend.
type Backend interface {
	// Open probes a video file and returns a handle to its full timeline.
	// The caller owns the handle and must release it with Close.
	Open(ctx context.Context, path string) (Clip, error)

	// Write renders the clip and encodes it to path.
	// Failures are reported as *EncodeError.
	Write(ctx context.Context, clip Clip, path string, opts EncodeOptions) error

	// Close releases every source referenced by the clip.
	// Closing an already released clip is a no-op.
	Close(clip Clip) error
}
