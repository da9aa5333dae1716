package testsupport

import (
	"archive/zip"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// WriteFile creates path with the given content, creating parent directories
// as needed.
func WriteFile(t testing.TB, path, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// InfoJSON renders a minimal valid metadata document for a zipball.
func InfoJSON(title string) string {
	return fmt.Sprintf(`{
	"url": "example.org/%s",
	"title": "%s",
	"timestamp": "2026-08-01 10:00:00",
	"license": "CC-BY"
}`, title, title)
}

// BuildZipball writes a <id>.zip into dir whose entries live under the id
// directory, and returns its path.
func BuildZipball(t testing.TB, dir, id string, entries map[string]string) string {
	t.Helper()

	var buf bytes.Buffer
	writer := zip.NewWriter(&buf)
	for name, body := range entries {
		entry, err := writer.Create(id + "/" + name)
		if err != nil {
			t.Fatalf("create zip entry %s: %v", name, err)
		}
		if _, err := entry.Write([]byte(body)); err != nil {
			t.Fatalf("write zip entry %s: %v", name, err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close zipball: %v", err)
	}

	path := filepath.Join(dir, id+".zip")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write zipball: %v", err)
	}
	return path
}
