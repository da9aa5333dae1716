package processors

import (
	"context"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"strings"

	"github.com/rwcarlsen/goexif/exif"

	"librarian/internal/facets"
	"librarian/internal/logging"
)

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".gif"}

// Image extracts dimensions from image headers and a title from EXIF data
// when the format carries one.
type Image struct {
	cfg    Config
	logger *slog.Logger
}

func NewImage(cfg Config, logger *slog.Logger) *Image {
	return &Image{cfg: cfg, logger: logger.With(logging.String(logging.FieldComponent, "facets"))}
}

func (*Image) Name() string { return facets.TypeImage }

func (*Image) Extensions() []string { return imageExtensions }

func (*Image) CanProcess(path string) bool { return hasExtension(path, imageExtensions) }

func (p *Image) ProcessFile(path string, acc facets.Record, partial bool) facets.Record {
	acc.Path = path
	acc.FacetTypes |= facets.BitImage
	if partial {
		return acc
	}

	file, err := os.Open(path)
	if err != nil {
		p.logger.Debug("image facet read failed", logging.String(logging.FieldPath, path), logging.Error(err))
		return acc
	}
	defer file.Close()

	config, _, err := image.DecodeConfig(file)
	if err != nil {
		p.logger.Debug("image decode failed", logging.String(logging.FieldPath, path), logging.Error(err))
		return acc
	}
	acc.Width = config.Width
	acc.Height = config.Height

	ext := strings.ToLower(path)
	if strings.HasSuffix(ext, ".jpg") || strings.HasSuffix(ext, ".jpeg") {
		acc.Title = exifTitle(file)
	}
	return acc
}

func exifTitle(file *os.File) string {
	if _, err := file.Seek(0, 0); err != nil {
		return ""
	}
	data, err := exif.Decode(file)
	if err != nil {
		return ""
	}
	for _, field := range []exif.FieldName{exif.ImageDescription, exif.XPTitle} {
		if tag, err := data.Get(field); err == nil {
			if value, err := tag.StringVal(); err == nil {
				return strings.TrimSpace(value)
			}
		}
	}
	return ""
}

func (*Image) DeprocessFile(string) {}

func (*Image) IsEntryPoint(string, string) bool { return false }

// CreateThumb scales the image down with ffmpeg.
func (p *Image) CreateThumb(ctx context.Context, src, dest string, width, height, quality int) string {
	args := []string{"-vf", scaleFilter(width, height), "-q:v", qualityArg(quality), "-frames:v", "1"}
	return runFFmpeg(ctx, p.logger, p.cfg, src, dest, args)
}
