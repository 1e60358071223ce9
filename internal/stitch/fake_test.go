package stitch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/maauso/stitcher/internal/media"
)

// probe is what fakeBackend reports for an input file.
type probe struct {
	duration float64
	size     media.Size
	audio    bool
}

// fakeBackend is an in-memory media.Backend. Write records the clip and
// writes a small placeholder file instead of encoding.
type fakeBackend struct {
	mu       sync.Mutex
	probes   map[string]probe
	open     map[string]int
	openErr  error
	writeErr error
	writes   []media.Clip
	opts     []media.EncodeOptions
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		probes: make(map[string]probe),
		open:   make(map[string]int),
	}
}

func (b *fakeBackend) Open(_ context.Context, path string) (media.Clip, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.openErr != nil {
		return media.Clip{}, &media.DecodeError{Path: path, Err: b.openErr}
	}
	p, ok := b.probes[path]
	if !ok {
		return media.Clip{}, &media.DecodeError{Path: path, Err: media.ErrNotVideo}
	}
	b.open[path]++
	return media.NewClip(path, p.duration, p.size, 30, p.audio), nil
}

func (b *fakeBackend) Write(_ context.Context, clip media.Clip, path string, opts media.EncodeOptions) error {
	b.mu.Lock()
	b.writes = append(b.writes, clip)
	b.opts = append(b.opts, opts)
	err := b.writeErr
	b.mu.Unlock()

	if err != nil {
		return &media.EncodeError{Path: path, Err: err}
	}
	if opts.Progress != nil {
		for _, out := range []float64{0.25, 0.5, 0.75} {
			opts.Progress(media.Progress{OutTime: out * clip.Duration(), Total: clip.Duration()})
		}
		opts.Progress(media.Progress{OutTime: clip.Duration(), Total: clip.Duration(), Done: true})
	}
	return os.WriteFile(path, []byte(fmt.Sprintf("rendered %s %.3f", clip.Size(), clip.Duration())), 0600)
}

func (b *fakeBackend) Close(clip media.Clip) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, p := range clip.Sources() {
		delete(b.open, p)
	}
	return nil
}

func (b *fakeBackend) OpenCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.open)
}

func (b *fakeBackend) writeCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.writes)
}

// addInput creates a placeholder file in dir and registers its probe result.
func (b *fakeBackend) addInput(t *testing.T, dir, name string, duration float64, size media.Size, audio bool) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("video:"+name), 0600))
	b.probes[path] = probe{duration: duration, size: size, audio: audio}
	return path
}

// staticConfirmer answers every prompt with answer and records the prompts.
type staticConfirmer struct {
	answer  bool
	err     error
	prompts []string
}

func (c *staticConfirmer) Confirm(prompt string) (bool, error) {
	c.prompts = append(c.prompts, prompt)
	return c.answer, c.err
}

// stagingFiles lists hidden staging files left in dir.
func stagingFiles(t *testing.T, dir string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, ".*_*"))
	require.NoError(t, err)
	return matches
}
