package facets

import "sort"

// Facet type names.
const (
	TypeGeneric = "generic"
	TypeHTML    = "html"
	TypeVideo   = "video"
	TypeAudio   = "audio"
	TypeImage   = "image"

	// TypeUpdates is a virtual grouping for freshly ingested content. It has
	// no bitmask value and is never stored.
	TypeUpdates = "updates"
)

// Bitmask values for the stored facet types.
const (
	BitGeneric = 1 << iota
	BitHTML
	BitVideo
	BitAudio
	BitImage
)

var typeBits = map[string]int{
	TypeGeneric: BitGeneric,
	TypeHTML:    BitHTML,
	TypeVideo:   BitVideo,
	TypeAudio:   BitAudio,
	TypeImage:   BitImage,
}

// typeKeys lists the type-specific metadata keys for each stored facet type.
var typeKeys = map[string][]string{
	TypeGeneric: nil,
	TypeAudio:   {"author", "title", "album", "genre", "duration"},
	TypeVideo:   {"author", "title", "description", "width", "height", "duration"},
	TypeImage:   {"title", "width", "height"},
	TypeHTML:    {"author", "title", "description", "keywords", "language", "copyright", "outernet_formatting"},
}

// searchKeys lists the subset of type-specific keys used by text search.
var searchKeys = map[string][]string{
	TypeAudio: {"author", "title", "album", "genre"},
	TypeVideo: {"author", "title", "description"},
	TypeImage: {"title"},
	TypeHTML:  {"author", "title", "description", "keywords"},
}

// Types returns the stored facet type names in bit order.
func Types() []string {
	return []string{TypeGeneric, TypeHTML, TypeVideo, TypeAudio, TypeImage}
}

// IsType reports whether name is a stored facet type.
func IsType(name string) bool {
	_, ok := typeBits[name]
	return ok
}

// Bit returns the bitmask value for a single type name, or 0 when unknown.
func Bit(name string) int {
	return typeBits[name]
}

// ToBitmask encodes a set of type names into a bitmask. Unknown names are
// ignored.
func ToBitmask(names ...string) int {
	mask := 0
	for _, name := range names {
		mask |= typeBits[name]
	}
	return mask
}

// FromBitmask decodes a bitmask into the sorted set of type names it covers.
func FromBitmask(mask int) []string {
	var names []string
	for name, bit := range typeBits {
		if mask&bit != 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Keys returns the metadata keys for a facet type. Unless specializedOnly is
// set, the shared keys (path, facet_types) are included.
func Keys(name string, specializedOnly bool) []string {
	specialized := typeKeys[name]
	if specializedOnly {
		return append([]string(nil), specialized...)
	}
	keys := []string{"path", "facet_types"}
	return append(keys, specialized...)
}

// SearchKeys returns the keys text search matches against for a facet type.
// An empty name returns the union across all types.
func SearchKeys(name string) []string {
	if name != "" {
		return append([]string(nil), searchKeys[name]...)
	}
	seen := make(map[string]struct{})
	var union []string
	for _, keys := range searchKeys {
		for _, key := range keys {
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			union = append(union, key)
		}
	}
	sort.Strings(union)
	return union
}
