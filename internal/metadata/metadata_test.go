package metadata_test

import (
	"errors"
	"testing"
	"time"

	"librarian/internal/metadata"
)

func validRaw() map[string]any {
	return map[string]any{
		"url":       "outernet://pub/article",
		"title":     "Sample Article",
		"timestamp": "2020-01-01T00:00:00Z",
		"license":   "CC-BY",
	}
}

func TestConvertFillsDefaults(t *testing.T) {
	meta, err := metadata.Convert(validRaw())
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	if meta.EntryPoint != "index.html" {
		t.Errorf("entry_point default = %q", meta.EntryPoint)
	}
	if meta.Broadcast != "2020-01-01" {
		t.Errorf("broadcast default = %q", meta.Broadcast)
	}
	if meta.Images != 0 || meta.KeepFormatting || meta.IsPartner || meta.IsSponsored || meta.Multipage {
		t.Errorf("optional defaults wrong: %#v", meta)
	}
	if !meta.Timestamp.Equal(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("timestamp = %v", meta.Timestamp)
	}
}

func TestConvertRequiredKeys(t *testing.T) {
	for _, key := range []string{"url", "title", "timestamp", "license"} {
		raw := validRaw()
		delete(raw, key)
		_, err := metadata.Convert(raw)
		var formatErr *metadata.FormatError
		if !errors.As(err, &formatErr) {
			t.Fatalf("missing %s: expected FormatError, got %v", key, err)
		}
		if formatErr.Key != key {
			t.Errorf("missing %s reported as %q", key, formatErr.Key)
		}
	}
}

func TestConvertFoldsAliases(t *testing.T) {
	raw := validRaw()
	raw["partner"] = "Outernet Press"
	raw["index"] = "start.html"
	meta, err := metadata.Convert(raw)
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	if meta.Publisher != "Outernet Press" {
		t.Errorf("partner alias not folded: %q", meta.Publisher)
	}
	if meta.EntryPoint != "start.html" {
		t.Errorf("index alias not folded: %q", meta.EntryPoint)
	}
}

func TestConvertAliasDoesNotOverrideStandardKey(t *testing.T) {
	raw := validRaw()
	raw["publisher"] = "Official"
	raw["partner"] = "Legacy"
	meta, err := metadata.Convert(raw)
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	if meta.Publisher != "Official" {
		t.Errorf("alias overrode standard key: %q", meta.Publisher)
	}
}

func TestConvertStripsUnknownKeys(t *testing.T) {
	raw := validRaw()
	raw["bogus"] = "value"
	if _, err := metadata.Convert(raw); err != nil {
		t.Fatalf("unknown keys must be stripped, not rejected: %v", err)
	}
}

func TestConvertRejectsBadTimestamp(t *testing.T) {
	raw := validRaw()
	raw["timestamp"] = "yesterday"
	_, err := metadata.Convert(raw)
	var formatErr *metadata.FormatError
	if !errors.As(err, &formatErr) || formatErr.Key != "timestamp" {
		t.Fatalf("expected timestamp FormatError, got %v", err)
	}
}

func TestConvertRejectsUnknownLicense(t *testing.T) {
	raw := validRaw()
	raw["license"] = "WTFPL"
	_, err := metadata.Convert(raw)
	var formatErr *metadata.FormatError
	if !errors.As(err, &formatErr) || formatErr.Key != "license" {
		t.Fatalf("expected license FormatError, got %v", err)
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	raw := validRaw()
	raw["language"] = "en"
	raw["keywords"] = "news,science"
	raw["multipage"] = true
	raw["images"] = float64(3)
	meta, err := metadata.Convert(raw)
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}

	data, err := metadata.Serialize(meta)
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	again, err := metadata.Parse(data)
	if err != nil {
		t.Fatalf("Parse of serialized meta failed: %v", err)
	}
	if again != meta {
		t.Fatalf("round trip mismatch:\n first %#v\nsecond %#v", meta, again)
	}
}

func TestParseRejectsNonObject(t *testing.T) {
	if _, err := metadata.Parse([]byte(`["not", "an", "object"]`)); err == nil {
		t.Fatal("expected error for non-object payload")
	}
}
