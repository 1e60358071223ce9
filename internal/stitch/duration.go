package stitch

import (
	"errors"
	"fmt"
	"math"

	"github.com/maauso/stitcher/internal/media"
)

var (
	// ErrInvalidTarget is returned when the target duration is not positive.
	ErrInvalidTarget = errors.New("target duration must be positive")
	// ErrEmptyClip is returned when a clip has no duration to loop.
	ErrEmptyClip = errors.New("clip has zero duration")
)

// LoopsNeeded returns how many back-to-back copies of a clip of length d
// cover target: floor(target/d) + 1. The result always satisfies
// LoopsNeeded(d, target) * d >= target. There is no upper bound; a ratio
// target/d beyond the int range overflows, so callers must keep it sane.
func LoopsNeeded(d, target float64) int {
	return int(math.Floor(target/d)) + 1
}

// MatchDuration returns clip cut to exactly target seconds. A clip that is
// at least as long is trimmed to [0, target); a shorter one is looped
// LoopsNeeded times first and then trimmed.
func MatchDuration(clip media.Clip, target float64) (media.Clip, error) {
	if target <= 0 {
		return media.Clip{}, fmt.Errorf("%w: %.3f", ErrInvalidTarget, target)
	}
	d := clip.Duration()
	if d <= 0 {
		return media.Clip{}, ErrEmptyClip
	}

	if d >= target {
		return clip.Subclip(0, target)
	}

	looped, err := clip.Loop(LoopsNeeded(d, target))
	if err != nil {
		return media.Clip{}, fmt.Errorf("loop: %w", err)
	}
	return looped.Subclip(0, target)
}
