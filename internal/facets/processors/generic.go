package processors

import "librarian/internal/facets"

// Generic matches every file and contributes only the generic bit. It is the
// floor under every other processor: a file nothing else understands still
// gets a facet row.
type Generic struct{}

func NewGeneric() *Generic { return &Generic{} }

func (*Generic) Name() string { return facets.TypeGeneric }

func (*Generic) Extensions() []string { return nil }

func (*Generic) CanProcess(string) bool { return true }

func (*Generic) ProcessFile(path string, acc facets.Record, _ bool) facets.Record {
	acc.Path = path
	acc.FacetTypes |= facets.BitGeneric
	return acc
}

func (*Generic) DeprocessFile(string) {}

func (*Generic) IsEntryPoint(string, string) bool { return false }
