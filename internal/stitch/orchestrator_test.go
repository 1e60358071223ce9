package stitch

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maauso/stitcher/internal/layout"
	"github.com/maauso/stitcher/internal/media"
	"github.com/maauso/stitcher/internal/storage"
)

type runFixture struct {
	dir     string
	backend *fakeBackend
	stdout  *bytes.Buffer
	main    string
	bg      string
	output  string
}

func newRunFixture(t *testing.T, mainDur, bgDur float64) *runFixture {
	t.Helper()
	dir := t.TempDir()
	backend := newFakeBackend()
	return &runFixture{
		dir:     dir,
		backend: backend,
		stdout:  &bytes.Buffer{},
		main:    backend.addInput(t, dir, "main_clip.mp4", mainDur, media.Size{Width: 1920, Height: 1080}, true),
		bg:      backend.addInput(t, dir, "background_clip.mp4", bgDur, media.Size{Width: 1280, Height: 720}, true),
		output:  filepath.Join(dir, "stitched_output.mp4"),
	}
}

func (f *runFixture) orchestrator(t *testing.T, confirm Confirmer, opts ...Option) *Orchestrator {
	t.Helper()
	store, err := storage.NewLocalStorage(f.dir)
	require.NoError(t, err)
	if confirm == nil {
		confirm = &staticConfirmer{}
	}
	return NewOrchestrator(f.backend, store, layout.Default(), confirm, f.stdout, nil, opts...)
}

func (f *runFixture) run(t *testing.T, o *Orchestrator) ExitStatus {
	t.Helper()
	return o.Run(context.Background(), f.main, f.bg, f.output)
}

func TestOrchestrator_LoopsShortBackground(t *testing.T) {
	f := newRunFixture(t, 30, 10)

	status := f.run(t, f.orchestrator(t, nil))

	assert.Equal(t, StatusSucceeded, status)
	assert.Equal(t, 0, status.Code())

	require.Equal(t, 1, f.backend.writeCount())
	out := f.backend.writes[0]
	assert.InDelta(t, 30.0, out.Duration(), 1e-9)
	assert.Equal(t, media.Size{Width: 1080, Height: 1920}, out.Size())

	layers := out.Layers()
	require.Len(t, layers, 2)
	assert.Equal(t, []string{f.main}, layers[0].Sources())
	assert.Equal(t, []string{f.bg}, layers[1].Sources())
	assert.Equal(t, 4, layers[1].Loops())
	assert.InDelta(t, 30.0, layers[1].Duration(), 1e-9)
	assert.False(t, layers[1].HasAudio(), "background audio stripped")
	assert.True(t, layers[0].HasAudio())

	stdout := f.stdout.String()
	assert.True(t, strings.HasPrefix(stdout,
		"Loading main clip...\n"+
			"Loading background clip...\n"+
			"Processing background clip...\n"+
			"Creating final video...\n"), stdout)
	assert.Contains(t, stdout, "Encoding: 100%\n")
	assert.Contains(t, stdout, "Video successfully created: "+f.output+"\n")
	assert.Contains(t, stdout, "Duration: 30.00 seconds\n")
	assert.Contains(t, stdout, "Resolution: 1080x1920 (9:16)\n")
	assert.Contains(t, stdout, "Size: ")

	assert.FileExists(t, f.output)
	assert.Equal(t, 0, f.backend.OpenCount())
}

func TestOrchestrator_TrimsLongBackground(t *testing.T) {
	f := newRunFixture(t, 5, 12)

	status := f.run(t, f.orchestrator(t, nil))
	require.Equal(t, StatusSucceeded, status)

	bottom := f.backend.writes[0].Layers()[1]
	assert.Equal(t, 1, bottom.Loops(), "no looping")
	assert.InDelta(t, 5.0, bottom.Duration(), 1e-9)
	assert.Contains(t, f.stdout.String(), "Duration: 5.00 seconds\n")
}

func TestOrchestrator_MissingMain(t *testing.T) {
	f := newRunFixture(t, 30, 10)
	require.NoError(t, os.Remove(f.main))

	status := f.run(t, f.orchestrator(t, nil))

	assert.Equal(t, StatusNotFound, status)
	assert.Equal(t, 1, status.Code())
	assert.Equal(t,
		"Loading main clip...\nError: video file not found: "+f.main+"\n",
		f.stdout.String())
	assert.NoFileExists(t, f.output)
	assert.Equal(t, 0, f.backend.writeCount())
	assert.Equal(t, 0, f.backend.OpenCount())
}

func TestOrchestrator_MissingBackgroundReleasesMain(t *testing.T) {
	f := newRunFixture(t, 30, 10)
	require.NoError(t, os.Remove(f.bg))

	status := f.run(t, f.orchestrator(t, nil))

	assert.Equal(t, StatusNotFound, status)
	assert.Contains(t, f.stdout.String(), "Error: video file not found: "+f.bg+"\n")
	assert.Equal(t, 0, f.backend.OpenCount(), "main clip released")
}

func TestOrchestrator_DeclinedOverwrite(t *testing.T) {
	f := newRunFixture(t, 30, 10)
	original := []byte("keep me")
	require.NoError(t, os.WriteFile(f.output, original, 0600))

	var prompt bytes.Buffer
	confirm := NewLineConfirmer(strings.NewReader("n\n"), &prompt)
	status := f.run(t, f.orchestrator(t, confirm))

	assert.Equal(t, StatusCancelled, status)
	assert.Equal(t, 0, status.Code())
	assert.Contains(t, prompt.String(), "already exists. Overwrite? (y/n): ")
	assert.True(t, strings.HasSuffix(f.stdout.String(), "Operation cancelled.\n"))

	content, err := os.ReadFile(f.output)
	require.NoError(t, err)
	assert.Equal(t, original, content)
	assert.Equal(t, 0, f.backend.writeCount())
	assert.Equal(t, 0, f.backend.OpenCount())
}

func TestOrchestrator_EncodeFailure(t *testing.T) {
	f := newRunFixture(t, 30, 10)
	f.backend.writeErr = errors.New("codec unavailable")

	status := f.run(t, f.orchestrator(t, nil))

	assert.Equal(t, StatusFailed, status)
	assert.Equal(t, 1, status.Code())
	assert.Contains(t, f.stdout.String(), "An error occurred: encode ")
	assert.Contains(t, f.stdout.String(), "codec unavailable")
	assert.NoFileExists(t, f.output)
	assert.Equal(t, 0, f.backend.OpenCount())
}

func TestOrchestrator_DecodeFailure(t *testing.T) {
	f := newRunFixture(t, 30, 10)
	f.backend.openErr = errors.New("invalid data found when processing input")

	status := f.run(t, f.orchestrator(t, nil))

	assert.Equal(t, StatusFailed, status)
	assert.Contains(t, f.stdout.String(), "An error occurred: decode "+f.main)
}

func TestOrchestrator_Interrupted(t *testing.T) {
	f := newRunFixture(t, 30, 10)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	status := f.orchestrator(t, nil).Run(ctx, f.main, f.bg, f.output)

	assert.Equal(t, StatusInterrupted, status)
	assert.Equal(t, 130, status.Code())
	assert.True(t, strings.HasSuffix(f.stdout.String(), "Operation cancelled.\n"), f.stdout.String())
	assert.NoFileExists(t, f.output)
	assert.Equal(t, 0, f.backend.OpenCount())
}

func TestOrchestrator_EncodeOptions(t *testing.T) {
	f := newRunFixture(t, 5, 5)
	opts := media.DefaultEncodeOptions()
	opts.Preset = "veryfast"
	opts.CRF = 28

	status := f.run(t, f.orchestrator(t, nil, WithEncodeOptions(opts), WithRunID("run-test")))
	require.Equal(t, StatusSucceeded, status)

	got := f.backend.opts[0]
	assert.Equal(t, "veryfast", got.Preset)
	assert.Equal(t, 28, got.CRF)
	assert.NotNil(t, got.Progress)
}

type recordingPublisher struct {
	paths []string
	url   string
	err   error
}

func (p *recordingPublisher) Publish(_ context.Context, path string) (string, error) {
	p.paths = append(p.paths, path)
	return p.url, p.err
}

func TestOrchestrator_Publish(t *testing.T) {
	t.Run("uploaded", func(t *testing.T) {
		f := newRunFixture(t, 5, 5)
		pub := &recordingPublisher{url: "https://bucket.s3.eu-west-1.amazonaws.com/run/stitched_output.mp4"}

		status := f.run(t, f.orchestrator(t, nil, WithPublisher(pub)))

		assert.Equal(t, StatusSucceeded, status)
		assert.Equal(t, []string{f.output}, pub.paths)
		assert.True(t, strings.HasSuffix(f.stdout.String(), "Uploaded: "+pub.url+"\n"))
	})

	t.Run("upload fails", func(t *testing.T) {
		f := newRunFixture(t, 5, 5)
		pub := &recordingPublisher{err: errors.New("access denied")}

		status := f.run(t, f.orchestrator(t, nil, WithPublisher(pub)))

		assert.Equal(t, StatusFailed, status)
		assert.Contains(t, f.stdout.String(), "Video successfully created: ")
		assert.Contains(t, f.stdout.String(), "An error occurred: publish: access denied\n")
		assert.FileExists(t, f.output, "local output is kept")
	})

	t.Run("declined run is not published", func(t *testing.T) {
		f := newRunFixture(t, 5, 5)
		require.NoError(t, os.WriteFile(f.output, []byte("old"), 0600))
		pub := &recordingPublisher{}

		status := f.run(t, f.orchestrator(t, &staticConfirmer{answer: false}, WithPublisher(pub)))

		assert.Equal(t, StatusCancelled, status)
		assert.Empty(t, pub.paths)
	})
}

type uploadStore struct {
	*storage.LocalStorage
	keys []string
	body []byte
}

func (s *uploadStore) Upload(_ context.Context, key string, data io.Reader) (string, error) {
	body, err := io.ReadAll(data)
	if err != nil {
		return "", err
	}
	s.keys = append(s.keys, key)
	s.body = body
	return "mem://" + key, nil
}

func TestStoragePublisher(t *testing.T) {
	dir := t.TempDir()
	local, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)
	store := &uploadStore{LocalStorage: local}

	path := filepath.Join(dir, "out.mp4")
	require.NoError(t, os.WriteFile(path, []byte("mp4 bytes"), 0600))

	pub := NewStoragePublisher(store, func(p string) string { return "shorts/" + filepath.Base(p) })
	url, err := pub.Publish(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "mem://shorts/out.mp4", url)
	assert.Equal(t, []string{"shorts/out.mp4"}, store.keys)
	assert.Equal(t, "mp4 bytes", string(store.body))

	_, err = NewStoragePublisher(local, filepath.Base).Publish(context.Background(), path)
	assert.ErrorIs(t, err, storage.ErrS3NotConfigured)

	_, err = pub.Publish(context.Background(), filepath.Join(dir, "missing.mp4"))
	assert.Error(t, err)
}

func TestExitStatus(t *testing.T) {
	tests := []struct {
		status ExitStatus
		code   int
		name   string
	}{
		{StatusSucceeded, 0, "succeeded"},
		{StatusCancelled, 0, "cancelled"},
		{StatusInterrupted, 130, "interrupted"},
		{StatusNotFound, 1, "not_found"},
		{StatusFailed, 1, "failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.status.Code())
			assert.Equal(t, tt.name, tt.status.String())
		})
	}
}
