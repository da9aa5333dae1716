package facets_test

import (
	"reflect"
	"testing"

	"librarian/internal/facets"
)

func TestBitValues(t *testing.T) {
	expected := map[string]int{
		facets.TypeGeneric: 1,
		facets.TypeHTML:    2,
		facets.TypeVideo:   4,
		facets.TypeAudio:   8,
		facets.TypeImage:   16,
	}
	for name, bit := range expected {
		if got := facets.Bit(name); got != bit {
			t.Errorf("Bit(%q) = %d, want %d", name, got, bit)
		}
	}
	if facets.Bit(facets.TypeUpdates) != 0 {
		t.Error("virtual updates type must not carry a bit")
	}
}

func TestBitmaskRoundTrip(t *testing.T) {
	mask := facets.ToBitmask(facets.TypeAudio, facets.TypeImage, facets.TypeGeneric)
	if mask != facets.BitAudio|facets.BitImage|facets.BitGeneric {
		t.Fatalf("unexpected mask %d", mask)
	}
	names := facets.FromBitmask(mask)
	want := []string{"audio", "generic", "image"}
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("FromBitmask = %v, want %v", names, want)
	}
}

func TestToBitmaskIgnoresUnknown(t *testing.T) {
	if mask := facets.ToBitmask("bogus", facets.TypeHTML); mask != facets.BitHTML {
		t.Fatalf("unexpected mask %d", mask)
	}
}

func TestKeys(t *testing.T) {
	specialized := facets.Keys(facets.TypeAudio, true)
	want := []string{"author", "title", "album", "genre", "duration"}
	if !reflect.DeepEqual(specialized, want) {
		t.Fatalf("audio keys = %v, want %v", specialized, want)
	}

	full := facets.Keys(facets.TypeImage, false)
	if full[0] != "path" || full[1] != "facet_types" {
		t.Fatalf("shared keys missing from %v", full)
	}

	if keys := facets.Keys(facets.TypeGeneric, true); len(keys) != 0 {
		t.Fatalf("generic should have no specialized keys, got %v", keys)
	}
}

func TestSearchKeysUnion(t *testing.T) {
	union := facets.SearchKeys("")
	seen := make(map[string]bool)
	for _, key := range union {
		if seen[key] {
			t.Fatalf("duplicate key %q in union %v", key, union)
		}
		seen[key] = true
	}
	for _, key := range []string{"author", "title", "album", "genre", "description", "keywords"} {
		if !seen[key] {
			t.Errorf("union missing %q: %v", key, union)
		}
	}
}

func TestSanitizeStripsForeignKeys(t *testing.T) {
	record := facets.Record{
		Path:       "/pub/a.jpg",
		FacetTypes: facets.BitGeneric | facets.BitImage,
		Title:      "Sunset",
		Width:      320,
		Height:     240,
		Author:     "should be dropped",
		Duration:   9.5,
	}
	clean := record.Sanitize()
	if clean.Title != "Sunset" || clean.Width != 320 || clean.Height != 240 {
		t.Fatalf("image keys lost: %#v", clean)
	}
	if clean.Author != "" || clean.Duration != 0 {
		t.Fatalf("foreign keys survived: %#v", clean)
	}
}
