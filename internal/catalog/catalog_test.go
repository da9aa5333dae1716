package catalog_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"librarian/internal/catalog"
	"librarian/internal/contentid"
	"librarian/internal/errkind"
	"librarian/internal/testsupport"
)

const (
	idAlpha = "0caf49e00758223b089b48b00e17a7bd"
	idBeta  = "97bc24a9a1dcee77d9c3aa0cc9b3b08b"
)

func mustAdd(t *testing.T, store *catalog.Store, spoolDir, id, title string, extra map[string]string) {
	t.Helper()
	entries := map[string]string{
		"info.json":  testsupport.InfoJSON(title),
		"index.html": "<html></html>",
	}
	for name, body := range extra {
		entries[name] = body
	}
	testsupport.BuildZipball(t, spoolDir, id, entries)
	if _, err := store.AddToArchive(context.Background(), []string{id}); err != nil {
		t.Fatalf("AddToArchive(%s): %v", id, err)
	}
}

func TestAddToArchiveIngestsSpoolFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)
	mustAdd(t, store, cfg.Paths.SpoolDir, idAlpha, "Alpha", nil)

	item, err := store.GetSingle(context.Background(), idAlpha)
	if err != nil {
		t.Fatalf("GetSingle: %v", err)
	}
	if item.Meta.Title != "Alpha" || item.Meta.License != "CC-BY" {
		t.Fatalf("item = %+v", item)
	}
	if item.Size == 0 {
		t.Fatal("size not recorded")
	}

	// The spool file is gone and the tree is extracted at the nested path.
	if _, err := os.Stat(cfg.Paths.SpoolDir + "/" + idAlpha + ".zip"); !os.IsNotExist(err) {
		t.Fatal("spool file survived ingest")
	}
	tree, _ := contentid.ToPath(idAlpha, cfg.Paths.ContentDir)
	if _, err := os.Stat(tree + "/index.html"); err != nil {
		t.Fatalf("extracted tree missing: %v", err)
	}
}

func TestProcessReplacesPredecessor(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)
	ctx := context.Background()
	mustAdd(t, store, cfg.Paths.SpoolDir, idAlpha, "Alpha", nil)

	info := fmt.Sprintf(`{
	"url": "example.org/beta",
	"title": "Beta",
	"timestamp": "2026-08-02 09:00:00",
	"license": "CC-BY",
	"replaces": "%s"
}`, idAlpha)
	testsupport.BuildZipball(t, cfg.Paths.SpoolDir, idBeta, map[string]string{
		"info.json":  info,
		"index.html": "<html></html>",
	})
	affected, err := store.AddToArchive(ctx, []string{idBeta})
	if err != nil {
		t.Fatalf("AddToArchive: %v", err)
	}
	if affected != 2 {
		t.Fatalf("affected = %d, want insert + delete", affected)
	}

	if _, err := store.GetSingle(ctx, idAlpha); !errors.Is(err, errkind.ErrNotFound) {
		t.Fatalf("replaced item still present: %v", err)
	}
	tree, _ := contentid.ToPath(idAlpha, cfg.Paths.ContentDir)
	if _, err := os.Stat(tree); !os.IsNotExist(err) {
		t.Fatal("replaced tree survived")
	}
	if _, err := store.GetSingle(ctx, idBeta); err != nil {
		t.Fatalf("replacement missing: %v", err)
	}
}

func TestProcessWithMissingReplacedIDIsHarmless(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)

	info := fmt.Sprintf(`{
	"url": "example.org/beta",
	"title": "Beta",
	"timestamp": "2026-08-02 09:00:00",
	"license": "CC-BY",
	"replaces": "%s"
}`, idAlpha)
	testsupport.BuildZipball(t, cfg.Paths.SpoolDir, idBeta, map[string]string{
		"info.json":  info,
		"index.html": "<html></html>",
	})
	if _, err := store.AddToArchive(context.Background(), []string{idBeta}); err != nil {
		t.Fatalf("AddToArchive: %v", err)
	}
	if _, err := store.GetSingle(context.Background(), idBeta); err != nil {
		t.Fatalf("GetSingle: %v", err)
	}
}

func TestGetContentOrdersByUpdatedThenViews(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)
	ctx := context.Background()
	mustAdd(t, store, cfg.Paths.SpoolDir, idAlpha, "Alpha", nil)
	mustAdd(t, store, cfg.Paths.SpoolDir, idBeta, "Beta", nil)

	// Same updated batch: views break the tie.
	if err := store.AddView(ctx, idAlpha); err != nil {
		t.Fatalf("AddView: %v", err)
	}

	items, err := store.GetContent(ctx, 0, 10, catalog.Filter{})
	if err != nil {
		t.Fatalf("GetContent: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("items = %v", items)
	}

	count, err := store.GetCount(ctx, catalog.Filter{})
	if err != nil || count != 2 {
		t.Fatalf("GetCount = %d, %v", count, err)
	}
}

func TestSearchContentMatchesTitleSubstring(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)
	ctx := context.Background()
	mustAdd(t, store, cfg.Paths.SpoolDir, idAlpha, "Offline Encyclopedia", nil)
	mustAdd(t, store, cfg.Paths.SpoolDir, idBeta, "City Guide", nil)

	items, err := store.SearchContent(ctx, "ENCYCLO", 0, 10, catalog.Filter{})
	if err != nil {
		t.Fatalf("SearchContent: %v", err)
	}
	if len(items) != 1 || items[0].MD5 != idAlpha {
		t.Fatalf("items = %v", items)
	}

	count, err := store.GetSearchCount(ctx, "guide", catalog.Filter{})
	if err != nil || count != 1 {
		t.Fatalf("GetSearchCount = %d, %v", count, err)
	}
}

func TestAddViewRequiresExistingRow(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)

	err := store.AddView(context.Background(), idAlpha)
	if !errors.Is(err, errkind.ErrConflict) {
		t.Fatalf("AddView on missing row = %v, want conflict", err)
	}
}

func TestTagLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)
	ctx := context.Background()
	mustAdd(t, store, cfg.Paths.SpoolDir, idAlpha, "Alpha", nil)
	mustAdd(t, store, cfg.Paths.SpoolDir, idBeta, "Beta", nil)

	if err := store.AddTags(ctx, idAlpha, []string{"science", "reference"}); err != nil {
		t.Fatalf("AddTags: %v", err)
	}
	if err := store.AddTags(ctx, idBeta, []string{"science"}); err != nil {
		t.Fatalf("AddTags: %v", err)
	}

	item, err := store.GetSingle(ctx, idAlpha)
	if err != nil {
		t.Fatalf("GetSingle: %v", err)
	}
	if len(item.Tags) != 2 {
		t.Fatalf("tag mirror = %v", item.Tags)
	}
	if _, ok := item.Tags["science"]; !ok {
		t.Fatalf("tag mirror = %v", item.Tags)
	}

	cloud, err := store.TagCloud(ctx)
	if err != nil {
		t.Fatalf("TagCloud: %v", err)
	}
	if len(cloud) != 2 || cloud[0].Name != "science" || cloud[0].Count != 2 {
		t.Fatalf("cloud = %v", cloud)
	}

	tagged, err := store.GetContent(ctx, 0, 10, catalog.Filter{Tag: "reference"})
	if err != nil {
		t.Fatalf("GetContent: %v", err)
	}
	if len(tagged) != 1 || tagged[0].MD5 != idAlpha {
		t.Fatalf("tagged = %v", tagged)
	}

	if err := store.RemoveTags(ctx, idAlpha, []string{"science"}); err != nil {
		t.Fatalf("RemoveTags: %v", err)
	}
	item, err = store.GetSingle(ctx, idAlpha)
	if err != nil {
		t.Fatalf("GetSingle: %v", err)
	}
	if len(item.Tags) != 1 {
		t.Fatalf("tag mirror after removal = %v", item.Tags)
	}
}

func TestGetTitlesAndReplacements(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)
	ctx := context.Background()
	mustAdd(t, store, cfg.Paths.SpoolDir, idAlpha, "Alpha", nil)

	titles, err := store.GetTitles(ctx, []string{idAlpha, idBeta})
	if err != nil {
		t.Fatalf("GetTitles: %v", err)
	}
	if len(titles) != 1 || titles[idAlpha] != "Alpha" {
		t.Fatalf("titles = %v", titles)
	}

	items := []catalog.Item{{MD5: idBeta}}
	items[0].Meta.Replaces = idAlpha
	items, err = store.GetReplacements(ctx, items)
	if err != nil {
		t.Fatalf("GetReplacements: %v", err)
	}
	if items[0].ReplacesTitle != "Alpha" {
		t.Fatalf("replacements = %v", items)
	}
}

func TestRemoveFromArchive(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)
	ctx := context.Background()
	mustAdd(t, store, cfg.Paths.SpoolDir, idAlpha, "Alpha", nil)
	if err := store.AddTags(ctx, idAlpha, []string{"science"}); err != nil {
		t.Fatalf("AddTags: %v", err)
	}

	failed, err := store.RemoveFromArchive(ctx, []string{idAlpha})
	if err != nil {
		t.Fatalf("RemoveFromArchive: %v", err)
	}
	if len(failed) != 0 {
		t.Fatalf("failed = %v", failed)
	}
	if _, err := store.GetSingle(ctx, idAlpha); !errors.Is(err, errkind.ErrNotFound) {
		t.Fatalf("row survived removal: %v", err)
	}
	tree, _ := contentid.ToPath(idAlpha, cfg.Paths.ContentDir)
	if _, err := os.Stat(tree); !os.IsNotExist(err) {
		t.Fatal("tree survived removal")
	}
	cloud, err := store.TagCloud(ctx)
	if err != nil {
		t.Fatalf("TagCloud: %v", err)
	}
	if len(cloud) != 0 {
		t.Fatalf("cloud after removal = %v", cloud)
	}
}

func TestReloadDataRebuildsFromTrees(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)
	ctx := context.Background()
	mustAdd(t, store, cfg.Paths.SpoolDir, idAlpha, "Alpha", nil)

	affected, err := store.ClearAndReload(ctx)
	if err != nil {
		t.Fatalf("ClearAndReload: %v", err)
	}
	if affected != 1 {
		t.Fatalf("affected = %d", affected)
	}
	item, err := store.GetSingle(ctx, idAlpha)
	if err != nil {
		t.Fatalf("GetSingle after reload: %v", err)
	}
	if item.Meta.Title != "Alpha" {
		t.Fatalf("item = %+v", item)
	}
}

func TestNeedsFormatting(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)
	ctx := context.Background()
	mustAdd(t, store, cfg.Paths.SpoolDir, idAlpha, "Alpha", nil)

	needs, err := store.NeedsFormatting(ctx, idAlpha)
	if err != nil {
		t.Fatalf("NeedsFormatting: %v", err)
	}
	if !needs {
		t.Fatal("default content should need formatting")
	}
	if _, err := store.NeedsFormatting(ctx, idBeta); !errors.Is(err, errkind.ErrNotFound) {
		t.Fatalf("missing id = %v", err)
	}
}
