package processors

import (
	"context"
	"log/slog"
	"os"

	"github.com/dhowden/tag"

	"librarian/internal/facets"
	"librarian/internal/logging"
)

var videoExtensions = []string{".mp4", ".m4v", ".mov", ".webm", ".mkv", ".avi"}

// Video extracts container metadata from video files. Only MP4-family
// containers carry tags the parser understands; other formats contribute the
// bit alone.
type Video struct {
	cfg    Config
	logger *slog.Logger
}

func NewVideo(cfg Config, logger *slog.Logger) *Video {
	return &Video{cfg: cfg, logger: logger.With(logging.String(logging.FieldComponent, "facets"))}
}

func (*Video) Name() string { return facets.TypeVideo }

func (*Video) Extensions() []string { return videoExtensions }

func (*Video) CanProcess(path string) bool { return hasExtension(path, videoExtensions) }

func (p *Video) ProcessFile(path string, acc facets.Record, partial bool) facets.Record {
	acc.Path = path
	acc.FacetTypes |= facets.BitVideo
	if partial {
		return acc
	}

	if result, ok := probeMedia(context.Background(), p.logger, p.cfg, path); ok {
		acc.Duration = result.durationSeconds()
		acc.Width, acc.Height = result.videoDimensions()
	}

	file, err := os.Open(path)
	if err != nil {
		p.logger.Debug("video facet read failed", logging.String(logging.FieldPath, path), logging.Error(err))
		return acc
	}
	defer file.Close()

	meta, err := tag.ReadFrom(file)
	if err != nil {
		p.logger.Debug("video tag parse failed", logging.String(logging.FieldPath, path), logging.Error(err))
		return acc
	}
	acc.Author = meta.Artist()
	acc.Title = meta.Title()
	acc.Description = meta.Comment()
	return acc
}

func (*Video) DeprocessFile(string) {}

func (*Video) IsEntryPoint(string, string) bool { return false }

// CreateThumb grabs a frame a few seconds in and scales it down.
func (p *Video) CreateThumb(ctx context.Context, src, dest string, width, height, quality int) string {
	args := []string{"-ss", "3", "-vf", scaleFilter(width, height), "-q:v", qualityArg(quality), "-frames:v", "1"}
	return runFFmpeg(ctx, p.logger, p.cfg, src, dest, args)
}
