package metadata

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"
)

// Timestamp layouts accepted on input. Output always uses time.RFC3339.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// BroadcastLayout is the calendar-date form of the broadcast field.
const BroadcastLayout = "2006-01-02"

// DefaultEntryPoint is the filename a zipball resolves to when opened unless
// its metadata says otherwise.
const DefaultEntryPoint = "index.html"

// requiredKeys must all be present in a raw info.json object.
var requiredKeys = []string{"url", "title", "timestamp", "license"}

// aliases maps legacy key names onto their standard replacements.
var aliases = map[string]string{
	"partner": "publisher",
	"index":   "entry_point",
}

// standardKeys is the closed key set of a normalized record; everything else
// is stripped.
var standardKeys = map[string]struct{}{
	"url": {}, "title": {}, "timestamp": {}, "license": {}, "broadcast": {},
	"language": {}, "images": {}, "keep_formatting": {}, "is_partner": {},
	"is_sponsored": {}, "archive": {}, "publisher": {}, "multipage": {},
	"entry_point": {}, "keywords": {}, "replaces": {},
}

// Licenses enumerates the recognized license codes.
var Licenses = map[string]struct{}{
	"CC-BY": {}, "CC-BY-ND": {}, "CC-BY-NC": {}, "CC-BY-ND-NC": {},
	"CC-BY-SA": {}, "CC-BY-NC-SA": {}, "GFDL": {}, "OPL": {}, "OCL": {},
	"ADL": {}, "FAL": {}, "PD": {}, "OF": {}, "ARL": {}, "ON": {},
}

// FormatError reports a missing or malformed metadata key.
type FormatError struct {
	Key    string
	Detail string
}

func (e *FormatError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("metadata: invalid or missing key %q", e.Key)
	}
	return fmt.Sprintf("metadata: key %q: %s", e.Key, e.Detail)
}

// Meta is a normalized content metadata record.
type Meta struct {
	URL            string    `json:"url"`
	Title          string    `json:"title"`
	Timestamp      time.Time `json:"-"`
	License        string    `json:"license"`
	Broadcast      string    `json:"broadcast"`
	Language       string    `json:"language"`
	Images         int       `json:"images"`
	KeepFormatting bool      `json:"keep_formatting"`
	IsPartner      bool      `json:"is_partner"`
	IsSponsored    bool      `json:"is_sponsored"`
	Archive        string    `json:"archive"`
	Publisher      string    `json:"publisher"`
	Multipage      bool      `json:"multipage"`
	EntryPoint     string    `json:"entry_point"`
	Keywords       string    `json:"keywords"`
	Replaces       string    `json:"replaces,omitempty"`
}

// Parse decodes and normalizes a raw info.json payload.
func Parse(data []byte) (Meta, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return Meta{}, &FormatError{Key: "", Detail: fmt.Sprintf("not a JSON object: %v", err)}
	}
	return Convert(raw)
}

// Convert normalizes an already-decoded JSON object.
func Convert(raw map[string]any) (Meta, error) {
	cleaned := replaceAliases(raw)
	for _, key := range requiredKeys {
		value, ok := cleaned[key]
		if !ok || value == nil {
			return Meta{}, &FormatError{Key: key, Detail: "required key missing"}
		}
		if s, isString := value.(string); isString && strings.TrimSpace(s) == "" {
			return Meta{}, &FormatError{Key: key, Detail: "required key empty"}
		}
	}

	meta := Meta{
		URL:            stringValue(cleaned, "url"),
		Title:          stringValue(cleaned, "title"),
		License:        stringValue(cleaned, "license"),
		Broadcast:      stringValue(cleaned, "broadcast"),
		Language:       stringValue(cleaned, "language"),
		Images:         intValue(cleaned, "images"),
		KeepFormatting: boolValue(cleaned, "keep_formatting"),
		IsPartner:      boolValue(cleaned, "is_partner"),
		IsSponsored:    boolValue(cleaned, "is_sponsored"),
		Archive:        stringValue(cleaned, "archive"),
		Publisher:      stringValue(cleaned, "publisher"),
		Multipage:      boolValue(cleaned, "multipage"),
		EntryPoint:     stringValue(cleaned, "entry_point"),
		Keywords:       stringValue(cleaned, "keywords"),
		Replaces:       stringValue(cleaned, "replaces"),
	}

	timestamp, err := parseTimestamp(stringValue(cleaned, "timestamp"))
	if err != nil {
		return Meta{}, &FormatError{Key: "timestamp", Detail: err.Error()}
	}
	meta.Timestamp = timestamp

	if _, ok := Licenses[meta.License]; !ok {
		return Meta{}, &FormatError{Key: "license", Detail: fmt.Sprintf("unknown license code %q", meta.License)}
	}

	if meta.EntryPoint == "" {
		meta.EntryPoint = DefaultEntryPoint
	}
	if meta.Broadcast == "" {
		meta.Broadcast = meta.Timestamp.UTC().Format(BroadcastLayout)
	} else if _, err := time.Parse(BroadcastLayout, meta.Broadcast); err != nil {
		return Meta{}, &FormatError{Key: "broadcast", Detail: err.Error()}
	}
	if meta.Language != "" {
		if tag, err := language.Parse(meta.Language); err == nil {
			meta.Language = tag.String()
		}
	}

	return meta, nil
}

// Serialize renders a normalized record back into the standard JSON form.
func Serialize(meta Meta) ([]byte, error) {
	raw := make(map[string]any)
	data, err := json.Marshal(meta)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	raw["timestamp"] = meta.Timestamp.UTC().Format(time.RFC3339)
	return json.Marshal(raw)
}

func replaceAliases(raw map[string]any) map[string]any {
	cleaned := make(map[string]any, len(raw))
	for key, value := range raw {
		if standard, ok := aliases[key]; ok {
			if _, taken := raw[standard]; !taken {
				cleaned[standard] = value
			}
			continue
		}
		if _, ok := standardKeys[key]; !ok {
			continue
		}
		cleaned[key] = value
	}
	return cleaned
}

func parseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", value)
}

func stringValue(raw map[string]any, key string) string {
	if v, ok := raw[key].(string); ok {
		return v
	}
	return ""
}

func boolValue(raw map[string]any, key string) bool {
	if v, ok := raw[key].(bool); ok {
		return v
	}
	return false
}

func intValue(raw map[string]any, key string) int {
	switch v := raw[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}
