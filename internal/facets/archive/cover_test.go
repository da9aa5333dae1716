package archive_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"librarian/internal/facets"
	"librarian/internal/facets/archive"
	"librarian/internal/facets/processors"
	"librarian/internal/fsal"
	"librarian/internal/logging"
	"librarian/internal/testsupport"
)

// coverStub replaces the image processor so cover tests do not need ffmpeg.
type coverStub struct{}

func (coverStub) Name() string               { return facets.TypeImage }
func (coverStub) Extensions() []string       { return []string{".jpg"} }
func (coverStub) CanProcess(path string) bool { return strings.HasSuffix(path, ".jpg") }

func (coverStub) ProcessFile(path string, acc facets.Record, partial bool) facets.Record {
	acc.Path = path
	acc.FacetTypes |= facets.BitImage
	return acc
}

func (coverStub) DeprocessFile(string)             {}
func (coverStub) IsEntryPoint(string, string) bool { return false }

func (coverStub) CreateThumb(_ context.Context, _, dest string, _, _, _ int) string {
	if err := os.WriteFile(dest, []byte("thumb"), 0o644); err != nil {
		return ""
	}
	return dest
}

func openCoverStore(t *testing.T) (*archive.Store, string, string) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	registry := processors.NewRegistry(processors.Config{}, logging.NewNop(), coverStub{})
	store, err := archive.Open(cfg, fsal.NewLocal(cfg.Paths.ContentDir), registry, nil, logging.NewNop())
	if err != nil {
		t.Fatalf("archive.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store, cfg.Paths.ContentDir, cfg.Paths.CoversDir
}

func TestCoverRendersFirstThumbnailableFile(t *testing.T) {
	store, contentDir, coversDir := openCoverStore(t)
	testsupport.WriteFile(t, filepath.Join(contentDir, "art/index.html"), "<html></html>")
	testsupport.WriteFile(t, filepath.Join(contentDir, "art/photo.jpg"), "fake-jpeg")

	const md5 = "0caf49e00758223b089b48b00e17a7bd"
	out := store.Cover(context.Background(), ".", md5)
	want := filepath.Join(coversDir, md5+".jpg")
	if out != want {
		t.Fatalf("Cover = %q, want %q", out, want)
	}
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("cover file missing: %v", err)
	}

	store.RemoveCover(md5)
	if _, err := os.Stat(want); !os.IsNotExist(err) {
		t.Fatalf("cover still present after removal: %v", err)
	}
}

func TestCoverSkipsTreesWithoutRenderableMedia(t *testing.T) {
	store, contentDir, coversDir := openCoverStore(t)
	testsupport.WriteFile(t, filepath.Join(contentDir, "docs/index.html"), "<html></html>")

	const md5 = "97bc24a9a1dcee77d9c3aa0cc9b3b08b"
	if out := store.Cover(context.Background(), ".", md5); out != "" {
		t.Fatalf("Cover = %q, want empty", out)
	}
	if _, err := os.Stat(filepath.Join(coversDir, md5+".jpg")); !os.IsNotExist(err) {
		t.Fatalf("unexpected cover file: %v", err)
	}
}
