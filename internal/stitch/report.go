package stitch

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"

	"github.com/maauso/stitcher/internal/media"
)

// Summary describes a written output.
type Summary struct {
	Path     string
	Duration float64
	Canvas   media.Size
	Aspect   string
	Bytes    int64
}

// Reporter writes the operator-facing console lines. Errors go to the same
// writer as progress.
type Reporter struct {
	w      io.Writer
	decile int
}

// NewReporter creates a Reporter writing to w.
func NewReporter(w io.Writer) *Reporter {
	return &Reporter{w: w}
}

// Step announces a pipeline stage and resets encode progress.
func (r *Reporter) Step(msg string) {
	r.decile = 0
	r.printf("%s\n", msg)
}

// Progress prints encode progress each time it crosses a 10% boundary.
func (r *Reporter) Progress(p media.Progress) {
	d := int(p.Percent()) / 10
	if d <= r.decile {
		return
	}
	r.decile = d
	r.printf("Encoding: %d%%\n", d*10)
}

// Summary prints the result block for a written output.
func (r *Reporter) Summary(s Summary) {
	r.printf("Video successfully created: %s\n", s.Path)
	r.printf("Duration: %.2f seconds\n", s.Duration)
	r.printf("Resolution: %s (%s)\n", s.Canvas, s.Aspect)
	if s.Bytes > 0 {
		r.printf("Size: %s\n", humanize.Bytes(uint64(s.Bytes)))
	}
}

// Uploaded prints where the output was published.
func (r *Reporter) Uploaded(url string) {
	r.printf("Uploaded: %s\n", url)
}

// NotFound reports a missing input.
func (r *Reporter) NotFound(err error) {
	r.printf("Error: %v\n", err)
}

// Failed reports any other error.
func (r *Reporter) Failed(err error) {
	r.printf("An error occurred: %v\n", err)
}

// Cancelled reports a declined overwrite or an interrupted run.
func (r *Reporter) Cancelled() {
	r.printf("Operation cancelled.\n")
}

func (r *Reporter) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(r.w, format, args...)
}
