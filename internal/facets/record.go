package facets

import "path/filepath"

// Record is the merged facet view of a single file. FacetTypes carries one
// bit per processor that matched the file; the remaining fields are the union
// of the per-type key schemas and are only meaningful for the types present
// in the mask.
type Record struct {
	Path       string
	FacetTypes int

	Author             string
	Title              string
	Album              string
	Genre              string
	Description        string
	Keywords           string
	Language           string
	Copyright          string
	OuternetFormatting bool
	Width              int
	Height             int
	Duration           float64
}

// Folder aggregates the facet types seen beneath a directory plus the elected
// entry-point filename for composite content.
type Folder struct {
	Path       string
	FacetTypes int
	Main       string
}

// Parent returns the directory holding the record's file.
func (r Record) Parent() string {
	return filepath.Dir(r.Path)
}

// HasType reports whether the record carries the named facet type's bit.
func (r Record) HasType(name string) bool {
	bit := Bit(name)
	return bit != 0 && r.FacetTypes&bit == bit
}

// Sanitize zeroes every type-specific field that does not belong to one of
// the facet types present in the record's bitmask.
func (r Record) Sanitize() Record {
	allowed := make(map[string]struct{})
	for _, name := range FromBitmask(r.FacetTypes) {
		for _, key := range Keys(name, true) {
			allowed[key] = struct{}{}
		}
	}
	keep := func(key string) bool {
		_, ok := allowed[key]
		return ok
	}
	out := Record{Path: r.Path, FacetTypes: r.FacetTypes}
	if keep("author") {
		out.Author = r.Author
	}
	if keep("title") {
		out.Title = r.Title
	}
	if keep("album") {
		out.Album = r.Album
	}
	if keep("genre") {
		out.Genre = r.Genre
	}
	if keep("description") {
		out.Description = r.Description
	}
	if keep("keywords") {
		out.Keywords = r.Keywords
	}
	if keep("language") {
		out.Language = r.Language
	}
	if keep("copyright") {
		out.Copyright = r.Copyright
	}
	if keep("outernet_formatting") {
		out.OuternetFormatting = r.OuternetFormatting
	}
	if keep("width") {
		out.Width = r.Width
	}
	if keep("height") {
		out.Height = r.Height
	}
	if keep("duration") {
		out.Duration = r.Duration
	}
	return out
}
