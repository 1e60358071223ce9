package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClip(duration float64) Clip {
	return NewClip("clip.mp4", duration, Size{Width: 1920, Height: 1080}, 30, true)
}

func TestNewClip(t *testing.T) {
	c := testClip(12.5)

	assert.False(t, c.IsZero())
	assert.False(t, c.IsComposite())
	assert.InDelta(t, 12.5, c.Duration(), 1e-9)
	assert.Equal(t, Size{Width: 1920, Height: 1080}, c.Size())
	assert.True(t, c.HasAudio())
	assert.Equal(t, Point{}, c.Position())
	assert.Equal(t, []string{"clip.mp4"}, c.Sources())
	assert.Equal(t, 1, c.Loops())
}

func TestClip_Resize(t *testing.T) {
	c := testClip(5)

	resized, err := c.Resize(Size{Width: 1080, Height: 960})
	require.NoError(t, err)
	assert.Equal(t, Size{Width: 1080, Height: 960}, resized.Size())
	assert.Equal(t, Size{Width: 1920, Height: 1080}, c.Size(), "receiver must not change")

	for _, s := range []Size{{0, 960}, {1080, 0}, {-1, 960}} {
		_, err := c.Resize(s)
		assert.ErrorIs(t, err, ErrInvalidDimensions, "size %v", s)
	}
}

func TestClip_Subclip(t *testing.T) {
	c := testClip(12)

	t.Run("trims to range", func(t *testing.T) {
		sub, err := c.Subclip(0, 5)
		require.NoError(t, err)
		assert.InDelta(t, 5.0, sub.Duration(), 1e-9)
		assert.Nil(t, sub.window, "unlooped clips trim the base span")
		assert.InDelta(t, 12.0, c.Duration(), 1e-9, "receiver must not change")
	})

	t.Run("full range is a no-op on duration", func(t *testing.T) {
		sub, err := c.Subclip(0, 12)
		require.NoError(t, err)
		assert.InDelta(t, 12.0, sub.Duration(), 1e-9)
	})

	t.Run("end is clamped", func(t *testing.T) {
		sub, err := c.Subclip(2, 100)
		require.NoError(t, err)
		assert.InDelta(t, 10.0, sub.Duration(), 1e-9)
	})

	t.Run("invalid ranges", func(t *testing.T) {
		for _, r := range [][2]float64{{-1, 2}, {3, 3}, {4, 2}, {12, 13}} {
			_, err := c.Subclip(r[0], r[1])
			assert.ErrorIs(t, err, ErrInvalidRange, "range %v", r)
		}
	})
}

func TestClip_Loop(t *testing.T) {
	c := testClip(10)

	looped, err := c.Loop(4)
	require.NoError(t, err)
	assert.InDelta(t, 40.0, looped.Duration(), 1e-9)
	assert.Equal(t, 4, looped.Loops())
	assert.Equal(t, 1, c.Loops(), "receiver must not change")
	assert.True(t, looped.HasAudio())

	_, err = c.Loop(0)
	assert.ErrorIs(t, err, ErrInvalidLoopCount)

	twice, err := looped.Loop(2)
	require.NoError(t, err)
	assert.Equal(t, 8, twice.Loops())
	assert.InDelta(t, 80.0, twice.Duration(), 1e-9)
}

func TestClip_LoopTrimmed(t *testing.T) {
	c := testClip(10)

	trimmed, err := c.Subclip(2, 6)
	require.NoError(t, err)
	_, err = trimmed.Loop(2)
	assert.ErrorIs(t, err, ErrLoopTrimmed)

	looped, err := c.Loop(3)
	require.NoError(t, err)
	windowed, err := looped.Subclip(0, 25)
	require.NoError(t, err)
	_, err = windowed.Loop(2)
	assert.ErrorIs(t, err, ErrLoopTrimmed)
}

func TestClip_LoopThenSubclip(t *testing.T) {
	c := testClip(10)

	looped, err := c.Loop(4)
	require.NoError(t, err)
	trimmed, err := looped.Subclip(0, 30)
	require.NoError(t, err)

	assert.InDelta(t, 30.0, trimmed.Duration(), 1e-9)
	assert.Equal(t, 4, trimmed.Loops())
	require.NotNil(t, trimmed.window)
	assert.InDelta(t, 0.0, trimmed.window.start, 1e-9)
	assert.InDelta(t, 30.0, trimmed.window.end, 1e-9)

	// windows compose relative to the current timeline
	partial, err := trimmed.Subclip(5, 27.5)
	require.NoError(t, err)
	assert.InDelta(t, 22.5, partial.Duration(), 1e-9)
	assert.InDelta(t, 5.0, partial.window.start, 1e-9)
	assert.InDelta(t, 27.5, partial.window.end, 1e-9)

	nested, err := partial.Subclip(1, 2)
	require.NoError(t, err)
	assert.InDelta(t, 6.0, nested.window.start, 1e-9)
	assert.InDelta(t, 7.0, nested.window.end, 1e-9)
}

func TestClip_WithoutAudio(t *testing.T) {
	c := testClip(3)
	muted := c.WithoutAudio()

	assert.False(t, muted.HasAudio())
	assert.True(t, c.HasAudio())
}

func TestClip_SetPosition(t *testing.T) {
	c := testClip(3)
	placed := c.SetPosition(Point{X: 0, Y: 960})

	assert.Equal(t, Point{X: 0, Y: 960}, placed.Position())
	assert.Equal(t, Point{}, c.Position())
}

func TestComposite(t *testing.T) {
	canvas := Size{Width: 1080, Height: 1920}
	slot := Size{Width: 1080, Height: 960}

	top, err := NewClip("main.mp4", 30, Size{Width: 1920, Height: 1080}, 30, true).Resize(slot)
	require.NoError(t, err)
	bottom, err := NewClip("bg.mp4", 30, Size{Width: 1280, Height: 720}, 60, true).Resize(slot)
	require.NoError(t, err)
	bottom = bottom.WithoutAudio()

	comp, err := Composite(canvas, top.SetPosition(Point{}), bottom.SetPosition(Point{Y: 960}))
	require.NoError(t, err)

	assert.True(t, comp.IsComposite())
	assert.Equal(t, canvas, comp.Size())
	assert.InDelta(t, 30.0, comp.Duration(), 1e-9)
	assert.True(t, comp.HasAudio())
	assert.Equal(t, []string{"main.mp4", "bg.mp4"}, comp.Sources())
	assert.Len(t, comp.Layers(), 2)

	t.Run("timeline transforms are rejected", func(t *testing.T) {
		_, err := comp.Loop(2)
		assert.ErrorIs(t, err, ErrCompositeTransform)
		_, err = comp.Subclip(0, 1)
		assert.ErrorIs(t, err, ErrCompositeTransform)
		_, err = comp.Resize(slot)
		assert.ErrorIs(t, err, ErrCompositeTransform)
	})

	t.Run("without audio reaches layers", func(t *testing.T) {
		assert.False(t, comp.WithoutAudio().HasAudio())
	})

	t.Run("invalid inputs", func(t *testing.T) {
		_, err := Composite(canvas)
		assert.ErrorIs(t, err, ErrNoLayers)
		_, err = Composite(canvas, Clip{})
		assert.ErrorIs(t, err, ErrNoLayers)
		_, err = Composite(Size{}, top)
		assert.ErrorIs(t, err, ErrInvalidDimensions)
		_, err = Composite(canvas, comp)
		assert.ErrorIs(t, err, ErrCompositeTransform)
	})
}
