package contentid_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"librarian/internal/contentid"
)

const sampleID = "202ab62b551f6d7fc002f65652525544"

func TestToPathNesting(t *testing.T) {
	path, ok := contentid.ToPath(sampleID)
	if !ok {
		t.Fatalf("ToPath rejected valid id %q", sampleID)
	}
	segments := strings.Split(path, string(os.PathSeparator))
	if len(segments) != contentid.SegmentCount {
		t.Fatalf("expected %d segments, got %d (%q)", contentid.SegmentCount, len(segments), path)
	}
	if segments[0] != "202" || segments[len(segments)-1] != "44" {
		t.Fatalf("unexpected segment layout: %q", path)
	}
}

func TestToPathWithPrefix(t *testing.T) {
	path, ok := contentid.ToPath(sampleID, filepath.Join("srv", "content"))
	if !ok {
		t.Fatal("ToPath rejected valid id")
	}
	if !strings.HasPrefix(path, filepath.Join("srv", "content")) {
		t.Fatalf("prefix not applied: %q", path)
	}
}

func TestToPathRejectsMalformed(t *testing.T) {
	cases := []string{
		"",
		"notahash",
		"202AB62B551F6D7FC002F65652525544", // uppercase
		sampleID + "0",
		sampleID[:31],
	}
	for _, id := range cases {
		if _, ok := contentid.ToPath(id); ok {
			t.Errorf("ToPath accepted malformed id %q", id)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	ids := []string{
		sampleID,
		"00000000000000000000000000000000",
		"ffffffffffffffffffffffffffffffff",
	}
	for _, id := range ids {
		path, ok := contentid.ToPath(id, "root")
		if !ok {
			t.Fatalf("ToPath rejected %q", id)
		}
		if got := contentid.ToMD5(path); got != id {
			t.Errorf("round trip mismatch: %q -> %q -> %q", id, path, got)
		}
	}
}

func TestToMD5IgnoresUnrelatedPaths(t *testing.T) {
	if got := contentid.ToMD5(filepath.Join("some", "random", "path")); got != "" {
		t.Fatalf("expected empty id, got %q", got)
	}
}

func TestWalkShallowStopsAtMatch(t *testing.T) {
	root := t.TempDir()
	nested, _ := contentid.ToPath(sampleID, root)
	if err := os.MkdirAll(filepath.Join(nested, "deeper"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	var matches []string
	contentid.Walk(root, func(path string) bool {
		return contentid.ToMD5(path) != ""
	}, true, func(path string) bool {
		matches = append(matches, path)
		return true
	})
	if len(matches) != 1 || matches[0] != nested {
		t.Fatalf("expected single shallow match %q, got %v", nested, matches)
	}
}

func TestFindContentDirs(t *testing.T) {
	root := t.TempDir()
	ids := []string{sampleID, "a3f5c92b551f6d7fc002f65652525511"}
	for _, id := range ids {
		nested, _ := contentid.ToPath(id, root)
		if err := os.MkdirAll(nested, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	// Noise that must not match.
	if err := os.MkdirAll(filepath.Join(root, "spool", "tmp"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	dirs := contentid.FindContentDirs(root)
	if len(dirs) != len(ids) {
		t.Fatalf("expected %d content dirs, got %d: %v", len(ids), len(dirs), dirs)
	}
	found := make(map[string]bool)
	for _, dir := range dirs {
		found[contentid.ToMD5(dir)] = true
	}
	for _, id := range ids {
		if !found[id] {
			t.Errorf("content dir for %q not discovered", id)
		}
	}
}
