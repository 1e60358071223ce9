package media

import (
	"bytes"
	"io"
	"strconv"
	"strings"
)

// Progress is a snapshot of a running encode, built from ffmpeg's
// -progress key=value blocks.
type Progress struct {
	// OutTime is the amount of output encoded so far, in seconds.
	OutTime float64
	// Total is the expected output duration in seconds.
	Total float64
	// Speed is ffmpeg's reported speed factor, e.g. "1.5x".
	Speed string
	// Done is set on the final block.
	Done bool
}

// Percent returns completion in the range [0, 100].
func (p Progress) Percent() float64 {
	if p.Done {
		return 100
	}
	if p.Total <= 0 {
		return 0
	}
	pct := p.OutTime / p.Total * 100
	if pct > 100 {
		return 100
	}
	if pct < 0 {
		return 0
	}
	return pct
}

// ProgressFunc is a callback for progress updates during an encode.
type ProgressFunc func(Progress)

// progressWriter splits ffmpeg stderr into progress blocks, which are handed
// to fn, and ordinary log lines, which are kept in log for error reporting.
type progressWriter struct {
	log     io.Writer
	fn      ProgressFunc
	total   float64
	pending []byte
	current Progress
}

func newProgressWriter(log io.Writer, total float64, fn ProgressFunc) *progressWriter {
	return &progressWriter{log: log, fn: fn, total: total, current: Progress{Total: total}}
}

func (w *progressWriter) Write(p []byte) (int, error) {
	w.pending = append(w.pending, p...)
	for {
		i := bytes.IndexByte(w.pending, '\n')
		if i < 0 {
			break
		}
		line := strings.TrimRight(string(w.pending[:i]), "\r")
		w.pending = w.pending[i+1:]
		if err := w.handleLine(line); err != nil {
			return len(p), err
		}
	}
	return len(p), nil
}

// Flush writes any unterminated trailing line to the log.
func (w *progressWriter) Flush() {
	if len(w.pending) == 0 {
		return
	}
	_ = w.handleLine(string(w.pending))
	w.pending = nil
}

func (w *progressWriter) handleLine(line string) error {
	key, value, ok := strings.Cut(line, "=")
	if !ok || strings.ContainsAny(key, " \t") || key == "" {
		_, err := io.WriteString(w.log, line+"\n")
		return err
	}

	switch key {
	case "out_time_us", "out_time_ms":
		// both keys carry microseconds
		if us, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil && us >= 0 {
			w.current.OutTime = float64(us) / 1e6
		}
	case "speed":
		w.current.Speed = strings.TrimSpace(value)
	case "progress":
		w.current.Done = strings.TrimSpace(value) == "end"
		if w.fn != nil {
			w.fn(w.current)
		}
		w.current = Progress{Total: w.total}
	}
	return nil
}
