// Package processors turns files into facet records. Each processor owns one
// facet type: it declares the extensions it handles, extracts type-specific
// metadata, and scores entry-point candidates for composite content.
//
// The set of processors is closed at registry construction. There is no
// runtime discovery; callers needing an extra type pass it to NewRegistry.
package processors

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"librarian/internal/facets"
	"librarian/internal/logging"
)

// Processor extracts one facet type from files.
type Processor interface {
	// Name is the facet type this processor produces.
	Name() string
	// Extensions lists the lowercase file suffixes handled, "." included.
	// Empty means every file.
	Extensions() []string
	// CanProcess reports whether the processor handles path.
	CanProcess(path string) bool
	// ProcessFile merges this processor's contribution into acc. Partial
	// mode contributes only the path and the type bit. Extraction failures
	// degrade to the partial contribution.
	ProcessFile(path string, acc facets.Record, partial bool) facets.Record
	// DeprocessFile undoes side effects of processing, if any.
	DeprocessFile(path string)
	// IsEntryPoint reports whether candidate should replace incumbent as a
	// folder's main file. Ties keep the incumbent.
	IsEntryPoint(candidate, incumbent string) bool
}

// Thumbnailer is implemented by processors that can render cover thumbnails.
type Thumbnailer interface {
	// CreateThumb renders a thumbnail of src at dest. Returns dest on
	// success and "" when rendering fails.
	CreateThumb(ctx context.Context, src, dest string, width, height, quality int) string
}

// Config carries the external-tool settings the media processors need.
type Config struct {
	FFmpegBinary  string
	FFprobeBinary string
	ThumbTimeout  time.Duration
}

func (c Config) withDefaults() Config {
	if c.FFmpegBinary == "" {
		c.FFmpegBinary = "ffmpeg"
	}
	if c.FFprobeBinary == "" {
		c.FFprobeBinary = "ffprobe"
	}
	if c.ThumbTimeout <= 0 {
		c.ThumbTimeout = 5 * time.Second
	}
	return c
}

// Registry dispatches files to processors.
type Registry struct {
	ordered []Processor
	byName  map[string]Processor
}

// NewRegistry builds a registry with all built-in processors plus any custom
// ones. A later processor with the same name replaces the earlier one.
func NewRegistry(cfg Config, logger *slog.Logger, custom ...Processor) *Registry {
	if logger == nil {
		logger = logging.NewNop()
	}
	cfg = cfg.withDefaults()
	registry := &Registry{byName: make(map[string]Processor)}
	builtins := []Processor{
		NewGeneric(),
		NewHTML(logger),
		NewAudio(cfg, logger),
		NewVideo(cfg, logger),
		NewImage(cfg, logger),
	}
	for _, proc := range append(builtins, custom...) {
		registry.register(proc)
	}
	return registry
}

func (r *Registry) register(proc Processor) {
	if existing, ok := r.byName[proc.Name()]; ok {
		for i, p := range r.ordered {
			if p == existing {
				r.ordered[i] = proc
				break
			}
		}
	} else {
		r.ordered = append(r.ordered, proc)
	}
	r.byName[proc.Name()] = proc
}

// ForPath returns every processor handling path. The generic processor is
// always included.
func (r *Registry) ForPath(path string) []Processor {
	var matched []Processor
	for _, proc := range r.ordered {
		if proc.CanProcess(path) {
			matched = append(matched, proc)
		}
	}
	return matched
}

// ForType looks a processor up by facet type name.
func (r *Registry) ForType(name string) (Processor, bool) {
	proc, ok := r.byName[name]
	return proc, ok
}

// ProcessFile runs every applicable processor over path and merges their
// contributions into a single record.
func (r *Registry) ProcessFile(path string, partial bool) facets.Record {
	acc := facets.Record{Path: path}
	for _, proc := range r.ForPath(path) {
		acc = proc.ProcessFile(path, acc, partial)
	}
	return acc
}

// DeprocessFile runs the cleanup hooks of every applicable processor.
func (r *Registry) DeprocessFile(path string) {
	for _, proc := range r.ForPath(path) {
		proc.DeprocessFile(path)
	}
}

func hasExtension(path string, extensions []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, candidate := range extensions {
		if ext == candidate {
			return true
		}
	}
	return false
}

// entryPointOrder ranks candidate main-file names, best first.
var entryPointOrder = []string{
	"index.html", "index.htm", "index.xhtml",
	"main.html", "main.htm", "main.xhtml",
	"start.html", "start.htm", "start.xhtml",
}

func entryPointScore(name string) int {
	base := strings.ToLower(filepath.Base(name))
	for i, candidate := range entryPointOrder {
		if base == candidate {
			return len(entryPointOrder) - i
		}
	}
	return 0
}

// betterEntryPoint reports whether candidate outranks incumbent. Equal scores
// keep the incumbent.
func betterEntryPoint(candidate, incumbent string) bool {
	return entryPointScore(candidate) > entryPointScore(incumbent)
}
