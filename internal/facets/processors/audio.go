package processors

import (
	"context"
	"log/slog"
	"os"

	"github.com/dhowden/tag"

	"librarian/internal/facets"
	"librarian/internal/logging"
)

var audioExtensions = []string{".mp3", ".ogg", ".flac", ".m4a", ".wav"}

// Audio extracts embedded tags from audio files.
type Audio struct {
	cfg    Config
	logger *slog.Logger
}

func NewAudio(cfg Config, logger *slog.Logger) *Audio {
	return &Audio{cfg: cfg, logger: logger.With(logging.String(logging.FieldComponent, "facets"))}
}

func (*Audio) Name() string { return facets.TypeAudio }

func (*Audio) Extensions() []string { return audioExtensions }

func (*Audio) CanProcess(path string) bool { return hasExtension(path, audioExtensions) }

func (p *Audio) ProcessFile(path string, acc facets.Record, partial bool) facets.Record {
	acc.Path = path
	acc.FacetTypes |= facets.BitAudio
	if partial {
		return acc
	}

	if result, ok := probeMedia(context.Background(), p.logger, p.cfg, path); ok {
		acc.Duration = result.durationSeconds()
	}

	file, err := os.Open(path)
	if err != nil {
		p.logger.Debug("audio facet read failed", logging.String(logging.FieldPath, path), logging.Error(err))
		return acc
	}
	defer file.Close()

	meta, err := tag.ReadFrom(file)
	if err != nil {
		p.logger.Debug("audio tag parse failed", logging.String(logging.FieldPath, path), logging.Error(err))
		return acc
	}
	acc.Author = meta.Artist()
	acc.Title = meta.Title()
	acc.Album = meta.Album()
	acc.Genre = meta.Genre()
	return acc
}

func (*Audio) DeprocessFile(string) {}

func (*Audio) IsEntryPoint(string, string) bool { return false }

// CreateThumb renders the embedded cover art, when present, as a thumbnail.
func (p *Audio) CreateThumb(ctx context.Context, src, dest string, width, height, quality int) string {
	args := []string{"-an", "-vf", scaleFilter(width, height), "-q:v", qualityArg(quality), "-frames:v", "1"}
	return runFFmpeg(ctx, p.logger, p.cfg, src, dest, args)
}
