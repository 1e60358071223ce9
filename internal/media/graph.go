package media

import (
	"fmt"
	"strconv"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// defaultFPS is the canvas frame rate used when no layer reports one.
const defaultFPS = 30

// baseQueueSize is the input thread_queue_size given to repeated inputs.
const baseQueueSize = 512

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

// buildArgs compiles the ffmpeg arguments that render c into output.
// A plain clip is rendered as a single layer on a canvas of its own size.
//
// Each layer is one input: a trimmed base span becomes -ss/-t, repetitions
// become -stream_loop, and a window over the repeated timeline becomes a
// trim/atrim filter. Layers are overlaid in order on a black lavfi canvas;
// the first layer carrying audio provides the output audio track.
func buildArgs(c Clip, output string, opts EncodeOptions) ([]string, error) {
	if c.IsZero() {
		return nil, ErrNoLayers
	}
	if !c.IsComposite() {
		single, err := Composite(c.Size(), c.SetPosition(Point{}))
		if err != nil {
			return nil, err
		}
		c = single
	}
	opts = opts.withDefaults()
	duration := c.Duration()

	canvas := ffmpeg.Input(
		fmt.Sprintf("color=c=black:s=%s:r=%s:d=%s", c.size, strconv.FormatFloat(canvasFPS(c), 'f', -1, 64), formatSeconds(duration)),
		ffmpeg.KwArgs{"f": "lavfi"},
	)

	video := canvas.Video()
	var audio *ffmpeg.Stream
	seen := make(map[string]int)
	for _, layer := range c.layers {
		kw := inputArgs(layer)
		// identical inputs collapse into one graph node; a distinct queue
		// size keeps a repeated input separate
		key := layer.src.path + "|" + fmt.Sprint(kw)
		if n := seen[key]; n > 0 {
			kw["thread_queue_size"] = baseQueueSize + n
		}
		seen[key]++

		v, a := layerStreams(layer, ffmpeg.Input(layer.src.path, kw))
		video = ffmpeg.Filter(
			[]*ffmpeg.Stream{video, v},
			"overlay",
			ffmpeg.Args{},
			ffmpeg.KwArgs{"x": layer.pos.X, "y": layer.pos.Y, "eof_action": "pass"},
		)
		if audio == nil && a != nil {
			audio = a
		}
	}
	video = video.Filter("format", ffmpeg.Args{"yuv420p"})

	streams := []*ffmpeg.Stream{video}
	outArgs := ffmpeg.KwArgs{
		"c:v":      opts.VideoCodec,
		"preset":   opts.Preset,
		"crf":      opts.CRF,
		"t":        formatSeconds(duration),
		"movflags": "+faststart",
	}
	if audio != nil {
		streams = append(streams, audio)
		outArgs["c:a"] = opts.AudioCodec
	}

	return ffmpeg.Output(streams, output, outArgs).GetArgs(), nil
}

// inputArgs returns the demuxer options that produce the layer's base
// timeline, repeated loops times.
func inputArgs(l Clip) ffmpeg.KwArgs {
	kw := ffmpeg.KwArgs{}
	if l.loops > 1 {
		kw["stream_loop"] = l.loops - 1
		return kw
	}
	if !l.fullSource() {
		kw["ss"] = formatSeconds(l.base.start)
		kw["t"] = formatSeconds(l.base.length())
	}
	return kw
}

// layerStreams returns the scaled video stream of a layer and, when the layer
// keeps its audio, the matching audio stream.
func layerStreams(l Clip, in *ffmpeg.Stream) (video, audio *ffmpeg.Stream) {
	video = in.Video()
	if l.window != nil {
		video = video.
			Filter("trim", ffmpeg.Args{}, ffmpeg.KwArgs{"start": formatSeconds(l.window.start), "end": formatSeconds(l.window.end)}).
			Filter("setpts", ffmpeg.Args{"PTS-STARTPTS"})
	}
	video = video.
		Filter("scale", ffmpeg.Args{}, ffmpeg.KwArgs{"w": l.size.Width, "h": l.size.Height}).
		Filter("setsar", ffmpeg.Args{"1"})

	if !l.audio || !l.src.hasAudio {
		return video, nil
	}
	audio = in.Audio()
	if l.window != nil {
		audio = audio.
			Filter("atrim", ffmpeg.Args{}, ffmpeg.KwArgs{"start": formatSeconds(l.window.start), "end": formatSeconds(l.window.end)}).
			Filter("asetpts", ffmpeg.Args{"PTS-STARTPTS"})
	}
	return video, audio
}

func canvasFPS(c Clip) float64 {
	var fps float64
	for _, src := range c.sources() {
		if src.fps > fps {
			fps = src.fps
		}
	}
	if fps <= 0 {
		return defaultFPS
	}
	return fps
}
