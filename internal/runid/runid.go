// Package runid provides identifiers that tag the logs and published
// objects of a single stitching run.
package runid

import (
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"github.com/segmentio/ksuid"
)

const prefix = "run-"

// Generate creates a new run ID. IDs sort by creation time.
// Format: run-<ksuid>
// Example: run-0ujtsYcgvSTl8PAuAdqWYSMnLOv
func Generate() string {
	return generate(time.Now())
}

func generate(now time.Time) string {
	id, err := ksuid.NewRandomWithTime(now)
	if err != nil {
		// Fallback to the process-wide generator
		id = ksuid.New()
	}
	return prefix + id.String()
}

// Time returns the creation time encoded in a run ID.
func Time(id string) (time.Time, bool) {
	k, err := ksuid.Parse(strings.TrimPrefix(id, prefix))
	if err != nil {
		return time.Time{}, false
	}
	return k.Time(), true
}

// ObjectName returns the name a run's output is published under: the run ID
// followed by the output's base name, slugified so it is safe in URLs.
func ObjectName(id, outputPath string) string {
	base := filepath.Base(outputPath)
	ext := strings.ToLower(filepath.Ext(base))
	name := slug.Make(strings.TrimSuffix(base, filepath.Ext(base)))
	if name == "" {
		name = "output"
	}
	return path.Join(id, name+ext)
}
