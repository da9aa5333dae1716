package zipball_test

import (
	"archive/zip"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"librarian/internal/zipball"
)

const testID = "0caf49e00758223b089b48b00e17a7bd"

const testInfo = `{
	"url": "example.org/article",
	"title": "Test Article",
	"timestamp": "2026-08-01 10:00:00",
	"license": "CC-BY"
}`

func buildZip(t *testing.T, dir, name string, entries map[string]string) string {
	t.Helper()
	var buf bytes.Buffer
	writer := zip.NewWriter(&buf)
	for entry, body := range entries {
		w, err := writer.Create(entry)
		if err != nil {
			t.Fatalf("create entry %s: %v", entry, err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatalf("write entry %s: %v", entry, err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func buildValidZip(t *testing.T, dir string) string {
	t.Helper()
	return buildZip(t, dir, testID+".zip", map[string]string{
		testID + "/info.json":  testInfo,
		testID + "/index.html": "<html></html>",
		testID + "/img/a.png":  "png-bytes",
	})
}

func wantReason(t *testing.T, err error, reason string) {
	t.Helper()
	var verr *zipball.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error %v is not a ValidationError", err)
	}
	if verr.Reason != reason {
		t.Fatalf("reason = %q, want %q (detail: %s)", verr.Reason, reason, verr.Detail)
	}
}

func TestContentID(t *testing.T) {
	if got := zipball.ContentID("/spool/" + testID + ".zip"); got != testID {
		t.Fatalf("ContentID = %q", got)
	}
	for _, bad := range []string{"readme.zip", testID + ".tar", testID} {
		if got := zipball.ContentID(bad); got != "" {
			t.Fatalf("ContentID(%q) = %q, want empty", bad, got)
		}
	}
}

func TestValidateAcceptsWellFormedZipball(t *testing.T) {
	path := buildValidZip(t, t.TempDir())
	meta, err := zipball.Validate(path)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if meta.Title != "Test Article" || meta.License != "CC-BY" {
		t.Fatalf("meta = %+v", meta)
	}
}

func TestValidateRejectsWrongExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, testID+".tar")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := zipball.Validate(path)
	wantReason(t, err, zipball.ReasonBadPath)
}

func TestValidateRejectsBadName(t *testing.T) {
	path := buildZip(t, t.TempDir(), "not-a-hash.zip", map[string]string{"a/info.json": testInfo})
	_, err := zipball.Validate(path)
	wantReason(t, err, zipball.ReasonBadName)
}

func TestValidateRejectsBadMagic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, testID+".zip")
	if err := os.WriteFile(path, []byte("this is not a zip archive"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := zipball.Validate(path)
	wantReason(t, err, zipball.ReasonBadMagic)
}

func TestValidateRejectsEmptyZip(t *testing.T) {
	path := buildZip(t, t.TempDir(), testID+".zip", nil)
	_, err := zipball.Validate(path)
	wantReason(t, err, zipball.ReasonBadStructure)
	var verr *zipball.ValidationError
	errors.As(err, &verr)
	if verr.Detail != "ZIP file is empty" {
		t.Fatalf("detail = %q", verr.Detail)
	}
}

func TestValidateRejectsUnrootedEntries(t *testing.T) {
	path := buildZip(t, t.TempDir(), testID+".zip", map[string]string{
		testID + "/info.json": testInfo,
		"loose.html":          "<html></html>",
	})
	_, err := zipball.Validate(path)
	wantReason(t, err, zipball.ReasonBadStructure)
}

func TestValidateRejectsMissingInfo(t *testing.T) {
	path := buildZip(t, t.TempDir(), testID+".zip", map[string]string{
		testID + "/index.html": "<html></html>",
	})
	_, err := zipball.Validate(path)
	wantReason(t, err, zipball.ReasonBadStructure)
}

func TestValidateRejectsBadMetadata(t *testing.T) {
	path := buildZip(t, t.TempDir(), testID+".zip", map[string]string{
		testID + "/info.json": `{"title": "missing everything else"}`,
	})
	_, err := zipball.Validate(path)
	wantReason(t, err, zipball.ReasonBadMetadata)
}

func TestExtractUnpacksAtNestedPath(t *testing.T) {
	spool := t.TempDir()
	content := t.TempDir()
	path := buildValidZip(t, spool)

	dest, err := zipball.Extract(path, content)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	for _, name := range []string{"info.json", "index.html", "img/a.png"} {
		if _, err := os.Stat(filepath.Join(dest, name)); err != nil {
			t.Fatalf("extracted tree misses %s: %v", name, err)
		}
	}
	entries, err := os.ReadDir(content)
	if err != nil {
		t.Fatal(err)
	}
	for _, entry := range entries {
		if entry.Name() == "" || entry.Name()[0] == '.' {
			t.Fatalf("staging residue left behind: %s", entry.Name())
		}
	}
}

func TestExtractReplacesPreviousTree(t *testing.T) {
	spool := t.TempDir()
	content := t.TempDir()

	first := buildValidZip(t, spool)
	dest, err := zipball.Extract(first, content)
	if err != nil {
		t.Fatalf("first Extract: %v", err)
	}
	stale := filepath.Join(dest, "old-file.txt")
	if err := os.WriteFile(stale, []byte("stale"), 0o644); err != nil {
		t.Fatal(err)
	}

	second := buildZip(t, spool, testID+".zip", map[string]string{
		testID + "/info.json":  testInfo,
		testID + "/index.html": "<html>v2</html>",
	})
	dest2, err := zipball.Extract(second, content)
	if err != nil {
		t.Fatalf("second Extract: %v", err)
	}
	if dest2 != dest {
		t.Fatalf("dest changed: %s vs %s", dest2, dest)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatal("previous tree survived replacement")
	}
	body, err := os.ReadFile(filepath.Join(dest, "index.html"))
	if err != nil || string(body) != "<html>v2</html>" {
		t.Fatalf("index.html = %q, %v", body, err)
	}
	if _, err := os.Stat(dest + ".backup"); !os.IsNotExist(err) {
		t.Fatal("backup tree not cleaned up")
	}
}

func TestExtractRejectsEscapingEntries(t *testing.T) {
	spool := t.TempDir()
	content := t.TempDir()
	path := buildZip(t, spool, testID+".zip", map[string]string{
		"../escape.txt": "outside",
	})
	if _, err := zipball.Extract(path, content); err == nil {
		t.Fatal("expected rejection of path traversal entry")
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(content), "escape.txt")); err == nil {
		t.Fatal("traversal entry escaped the staging dir")
	}
}

func TestCreateRoundTrip(t *testing.T) {
	content := t.TempDir()
	tree := filepath.Join(content, testID)
	if err := os.MkdirAll(filepath.Join(tree, "img"), 0o755); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{"info.json": testInfo, "index.html": "<html></html>", "img/a.png": "png-bytes"}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(tree, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	data, err := zipball.Create(tree)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	spool := t.TempDir()
	path := filepath.Join(spool, testID+".zip")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := zipball.Validate(path); err != nil {
		t.Fatalf("repacked zipball fails validation: %v", err)
	}
}

func TestGetFile(t *testing.T) {
	path := buildValidZip(t, t.TempDir())
	body, err := zipball.GetFile(path, "info.json")
	if err != nil {
		t.Fatalf("GetFile: %v", err)
	}
	if string(body) != testInfo {
		t.Fatalf("body = %q", body)
	}
	if _, err := zipball.GetFile(path, "missing.txt"); err == nil {
		t.Fatal("expected error for missing entry")
	}
}
