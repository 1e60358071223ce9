package media

import (
	"fmt"
	"math"

	"github.com/samber/lo"
)

// durationEpsilon is the tolerance used when comparing timeline positions.
const durationEpsilon = 1e-9

// Size is a pixel dimension.
type Size struct {
	Width  int `yaml:"width" validate:"gt=0"`
	Height int `yaml:"height" validate:"gt=0"`
}

// Valid reports whether both dimensions are positive.
func (s Size) Valid() bool {
	return s.Width > 0 && s.Height > 0
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// Point is a pixel offset on a canvas, measured from the top-left corner.
type Point struct {
	X int `yaml:"x" validate:"gte=0"`
	Y int `yaml:"y" validate:"gte=0"`
}

// source is an opened media file. Every clip derived from the same Open call
// shares the source, and Close releases it as a unit.
type source struct {
	path     string
	duration float64
	size     Size
	fps      float64
	hasAudio bool
}

// span is a [start, end) interval in seconds.
type span struct {
	start float64
	end   float64
}

func (s span) length() float64 {
	return s.end - s.start
}

// Clip is a handle to a video timeline. Clips are values: every transform
// returns a new Clip and leaves the receiver untouched.
//
// A plain clip reads base (a span of its source), repeats it loops times and
// optionally cuts the repeated timeline to window. A composite clip (see
// Composite) instead holds positioned layers drawn on a canvas of size.
type Clip struct {
	src    *source
	base   span
	loops  int
	window *span
	layers []Clip
	size   Size
	audio  bool
	pos    Point
}

// NewClip returns a handle to the full timeline of a single source.
// Backends call this after probing a file; tests use it to fabricate clips.
func NewClip(path string, duration float64, size Size, fps float64, hasAudio bool) Clip {
	return Clip{
		src: &source{
			path:     path,
			duration: duration,
			size:     size,
			fps:      fps,
			hasAudio: hasAudio,
		},
		base:  span{start: 0, end: duration},
		loops: 1,
		size:  size,
		audio: hasAudio,
	}
}

// IsZero reports whether the clip is the zero value (no timeline).
func (c Clip) IsZero() bool {
	return c.src == nil && len(c.layers) == 0
}

// IsComposite reports whether the clip was built by Composite.
func (c Clip) IsComposite() bool {
	return len(c.layers) > 0
}

// Duration returns the timeline length in seconds.
func (c Clip) Duration() float64 {
	switch {
	case c.IsComposite():
		var longest float64
		for _, l := range c.layers {
			longest = math.Max(longest, l.Duration())
		}
		return longest
	case c.src == nil:
		return 0
	case c.window != nil:
		return c.window.length()
	default:
		return c.base.length() * float64(c.loops)
	}
}

// Size returns the rendered pixel size (the canvas size for composites).
func (c Clip) Size() Size {
	return c.size
}

// HasAudio reports whether rendering the clip produces an audio track.
func (c Clip) HasAudio() bool {
	if c.IsComposite() {
		for _, l := range c.layers {
			if l.HasAudio() {
				return true
			}
		}
		return false
	}
	return c.audio
}

// Position returns the canvas offset used when the clip is a composite layer.
func (c Clip) Position() Point {
	return c.pos
}

// Loops returns how many times the base span repeats.
func (c Clip) Loops() int {
	return c.loops
}

// Layers returns a copy of the layers of a composite clip.
func (c Clip) Layers() []Clip {
	return append([]Clip(nil), c.layers...)
}

// Sources returns the distinct file paths the clip reads from, in layer order.
func (c Clip) Sources() []string {
	return lo.Uniq(lo.Map(c.sources(), func(src *source, _ int) string {
		return src.path
	}))
}

func (c Clip) sources() []*source {
	if c.IsComposite() {
		var all []*source
		for _, l := range c.layers {
			all = append(all, l.sources()...)
		}
		return all
	}
	if c.src == nil {
		return nil
	}
	return []*source{c.src}
}

// fullSource reports whether the base span covers the whole source file.
func (c Clip) fullSource() bool {
	return c.base.start <= durationEpsilon && c.base.end >= c.src.duration-durationEpsilon
}

// Resize scales the clip to exactly size. Aspect ratio is not preserved.
func (c Clip) Resize(size Size) (Clip, error) {
	if !size.Valid() {
		return Clip{}, fmt.Errorf("%w: width=%d, height=%d", ErrInvalidDimensions, size.Width, size.Height)
	}
	if c.IsComposite() {
		return Clip{}, fmt.Errorf("resize: %w", ErrCompositeTransform)
	}
	out := c.clone()
	out.size = size
	return out, nil
}

// Subclip cuts the timeline to [start, end). An end past the clip duration
// is clamped to the duration.
func (c Clip) Subclip(start, end float64) (Clip, error) {
	if c.IsComposite() {
		return Clip{}, fmt.Errorf("subclip: %w", ErrCompositeTransform)
	}
	total := c.Duration()
	if c.IsZero() || start < 0 || end <= start || start >= total {
		return Clip{}, fmt.Errorf("%w: [%.3f, %.3f) of %.3fs", ErrInvalidRange, start, end, total)
	}
	end = math.Min(end, total)

	out := c.clone()
	switch {
	case c.window != nil:
		out.window = &span{start: c.window.start + start, end: c.window.start + end}
	case c.loops > 1:
		out.window = &span{start: start, end: end}
	default:
		out.base = span{start: c.base.start + start, end: c.base.start + end}
	}
	return out, nil
}

// Loop repeats the timeline n times back to back, audio included.
// Only untrimmed timelines can be looped: a trimmed clip is rendered with a
// seek, and a seek does not survive wrapping back to the start of the file.
func (c Clip) Loop(n int) (Clip, error) {
	if n < 1 {
		return Clip{}, fmt.Errorf("%w: %d", ErrInvalidLoopCount, n)
	}
	if c.IsComposite() {
		return Clip{}, fmt.Errorf("loop: %w", ErrCompositeTransform)
	}
	if c.IsZero() {
		return Clip{}, fmt.Errorf("loop: %w", ErrNoLayers)
	}
	if c.window != nil || !c.fullSource() {
		return Clip{}, ErrLoopTrimmed
	}
	out := c.clone()
	out.loops = c.loops * n
	return out, nil
}

// WithoutAudio drops the audio track.
func (c Clip) WithoutAudio() Clip {
	out := c.clone()
	out.audio = false
	for i := range out.layers {
		out.layers[i] = out.layers[i].WithoutAudio()
	}
	return out
}

// SetPosition places the clip at p when it is used as a composite layer.
func (c Clip) SetPosition(p Point) Clip {
	out := c.clone()
	out.pos = p
	return out
}

func (c Clip) clone() Clip {
	out := c
	if c.window != nil {
		w := *c.window
		out.window = &w
	}
	out.layers = append([]Clip(nil), c.layers...)
	return out
}

// Composite layers clips onto a canvas of the given size. Layers are drawn in
// order, so later layers cover earlier ones; uncovered canvas is black.
// The composite lasts as long as its longest layer.
func Composite(size Size, layers ...Clip) (Clip, error) {
	if !size.Valid() {
		return Clip{}, fmt.Errorf("%w: width=%d, height=%d", ErrInvalidDimensions, size.Width, size.Height)
	}
	if len(layers) == 0 {
		return Clip{}, ErrNoLayers
	}
	for i, l := range layers {
		if l.IsZero() {
			return Clip{}, fmt.Errorf("layer %d: %w", i, ErrNoLayers)
		}
		if l.IsComposite() {
			return Clip{}, fmt.Errorf("layer %d: %w", i, ErrCompositeTransform)
		}
	}
	return Clip{
		layers: append([]Clip(nil), layers...),
		size:   size,
	}, nil
}
