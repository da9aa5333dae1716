package archive

import (
	"context"
	"os"
	"path/filepath"

	"librarian/internal/facets/processors"
	"librarian/internal/logging"
)

// Cover renders a cover image for the content tree rooted at rel into the
// covers directory as <md5>.jpg. The first file a thumbnail-capable processor
// can render wins; trees with nothing renderable (plain HTML bundles, broken
// media) produce no cover and return "".
func (s *Store) Cover(ctx context.Context, rel, md5 string) string {
	if s.coversDir == "" || s.registry == nil {
		return ""
	}
	dest := filepath.Join(s.coversDir, md5+".jpg")
	if out := s.renderCover(ctx, rel, dest, 0); out != "" {
		s.logger.Debug("cover rendered",
			logging.String(logging.FieldContentID, md5),
			logging.String(logging.FieldPath, out))
		return out
	}
	return ""
}

func (s *Store) renderCover(ctx context.Context, dir, dest string, depth int) string {
	if ctx.Err() != nil {
		return ""
	}
	dirs, files, err := s.fs.ListDir(dir)
	if err != nil {
		return ""
	}
	for _, file := range files {
		for _, proc := range s.registry.ForPath(file.Path) {
			thumber, ok := proc.(processors.Thumbnailer)
			if !ok {
				continue
			}
			if out := thumber.CreateThumb(ctx, s.abs(file.Path), dest,
				s.thumbWidth, s.thumbHeight, s.thumbQuality); out != "" {
				return out
			}
		}
	}
	if s.maxDepth > 0 && depth+1 >= s.maxDepth {
		return ""
	}
	for _, sub := range dirs {
		if out := s.renderCover(ctx, sub.Path, dest, depth+1); out != "" {
			return out
		}
	}
	return ""
}

// RemoveCover deletes the cover image of md5, if one was ever rendered.
func (s *Store) RemoveCover(md5 string) {
	if s.coversDir == "" {
		return
	}
	path := filepath.Join(s.coversDir, md5+".jpg")
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("cover removal failed",
			logging.String(logging.FieldPath, path), logging.Error(err))
	}
}
