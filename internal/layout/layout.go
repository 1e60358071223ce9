// Package layout describes the output canvas and the two slots the stitched
// clips are placed into.
package layout

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/maauso/stitcher/internal/media"
)

// Default canvas: vertical 9:16 split into two equal halves.
const (
	DefaultWidth  = 1080
	DefaultHeight = 1920
)

// ErrInvalidLayout is returned when the slots do not tile the canvas.
var ErrInvalidLayout = errors.New("invalid layout")

// Slot is a rectangle on the canvas.
type Slot struct {
	Offset media.Point `yaml:"offset"`
	Size   media.Size  `yaml:"size"`
}

// Spec is the target canvas with a top and a bottom slot.
type Spec struct {
	Canvas media.Size `yaml:"canvas"`
	Top    Slot       `yaml:"top"`
	Bottom Slot       `yaml:"bottom"`
}

// Default returns the 1080x1920 layout with two 1080x960 slots.
func Default() Spec {
	half := DefaultHeight / 2
	return Spec{
		Canvas: media.Size{Width: DefaultWidth, Height: DefaultHeight},
		Top: Slot{
			Offset: media.Point{X: 0, Y: 0},
			Size:   media.Size{Width: DefaultWidth, Height: half},
		},
		Bottom: Slot{
			Offset: media.Point{X: 0, Y: half},
			Size:   media.Size{Width: DefaultWidth, Height: DefaultHeight - half},
		},
	}
}

// Validate checks field constraints and that the slots stack exactly on the
// canvas: equal widths no wider than the canvas, horizontally centred, top
// at y=0, bottom directly below.
func (s Spec) Validate() error {
	if err := validator.New().Struct(s); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidLayout, err)
	}

	x := s.CenterX(s.Top.Size.Width)
	switch {
	case s.Top.Size.Height+s.Bottom.Size.Height != s.Canvas.Height:
		return fmt.Errorf("%w: slot heights %d+%d do not fill canvas height %d",
			ErrInvalidLayout, s.Top.Size.Height, s.Bottom.Size.Height, s.Canvas.Height)
	case s.Top.Size.Width != s.Bottom.Size.Width:
		return fmt.Errorf("%w: slot widths %d/%d differ",
			ErrInvalidLayout, s.Top.Size.Width, s.Bottom.Size.Width)
	case s.Top.Size.Width > s.Canvas.Width:
		return fmt.Errorf("%w: slot width %d exceeds canvas width %d",
			ErrInvalidLayout, s.Top.Size.Width, s.Canvas.Width)
	case s.Top.Offset != (media.Point{X: x}):
		return fmt.Errorf("%w: top slot must start at %d,0", ErrInvalidLayout, x)
	case s.Bottom.Offset != (media.Point{X: x, Y: s.Top.Size.Height}):
		return fmt.Errorf("%w: bottom slot must start at %d,%d", ErrInvalidLayout, x, s.Top.Size.Height)
	}
	return nil
}

// AspectRatio returns the reduced canvas ratio, e.g. "9:16".
func (s Spec) AspectRatio() string {
	w, h := s.Canvas.Width, s.Canvas.Height
	g := gcd(w, h)
	if g == 0 {
		return "0:0"
	}
	return fmt.Sprintf("%d:%d", w/g, h/g)
}

// CenterX returns the x offset that centres an element of width w.
func (s Spec) CenterX(w int) int {
	return (s.Canvas.Width - w) / 2
}

// LoadFile reads a YAML layout and validates it.
func LoadFile(path string) (Spec, error) {
	data, err := os.ReadFile(path) // #nosec G304 - path comes from operator config
	if err != nil {
		return Spec{}, fmt.Errorf("read layout: %w", err)
	}

	var s Spec
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Spec{}, fmt.Errorf("parse layout %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return Spec{}, err
	}
	return s, nil
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	if a < 0 {
		return -a
	}
	return a
}
