package processors_test

import (
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"librarian/internal/facets"
	"librarian/internal/facets/processors"
	"librarian/internal/logging"
)

func newRegistry() *processors.Registry {
	return processors.NewRegistry(processors.Config{}, logging.NewNop())
}

func TestForPathAlwaysIncludesGeneric(t *testing.T) {
	registry := newRegistry()

	procs := registry.ForPath("docs/readme.txt")
	if len(procs) != 1 || procs[0].Name() != facets.TypeGeneric {
		t.Fatalf("plain file processors = %v", names(procs))
	}

	procs = registry.ForPath("docs/index.html")
	got := names(procs)
	if len(got) != 2 || got[0] != facets.TypeGeneric || got[1] != facets.TypeHTML {
		t.Fatalf("html file processors = %v", got)
	}
}

func names(procs []processors.Processor) []string {
	var out []string
	for _, proc := range procs {
		out = append(out, proc.Name())
	}
	return out
}

func TestForType(t *testing.T) {
	registry := newRegistry()
	proc, ok := registry.ForType(facets.TypeAudio)
	if !ok || proc.Name() != facets.TypeAudio {
		t.Fatalf("ForType(audio) = %v, %v", proc, ok)
	}
	if _, ok := registry.ForType("nonsense"); ok {
		t.Fatal("unknown type should not resolve")
	}
}

func TestProcessFilePartialContributesOnlyBits(t *testing.T) {
	registry := newRegistry()
	record := registry.ProcessFile("content/index.html", true)
	if record.FacetTypes != facets.BitGeneric|facets.BitHTML {
		t.Fatalf("facet types = %d", record.FacetTypes)
	}
	if record.Title != "" || record.Author != "" {
		t.Fatalf("partial record carries metadata: %+v", record)
	}
}

func TestProcessFileExtractsHTMLMetadata(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.html")
	body := `<!DOCTYPE html>
<html><head>
<title> Offline Encyclopedia </title>
<meta name="author" content="Jane Doe">
<meta name="description" content="A compact reference.">
<meta name="keywords" content="reference, offline">
<meta name="language" content="en">
<meta name="outernet-formatting" content="true">
</head><body></body></html>`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	record := newRegistry().ProcessFile(path, false)
	if record.Title != "Offline Encyclopedia" {
		t.Fatalf("title = %q", record.Title)
	}
	if record.Author != "Jane Doe" || record.Keywords != "reference, offline" {
		t.Fatalf("record = %+v", record)
	}
	if !record.OuternetFormatting {
		t.Fatal("outernet-formatting meta not honored")
	}
	if record.FacetTypes != facets.BitGeneric|facets.BitHTML {
		t.Fatalf("facet types = %d", record.FacetTypes)
	}
}

func TestProcessFileExtractsImageDimensions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "photo.png")
	file, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(file, image.NewRGBA(image.Rect(0, 0, 12, 7))); err != nil {
		t.Fatal(err)
	}
	file.Close()

	record := newRegistry().ProcessFile(path, false)
	if record.Width != 12 || record.Height != 7 {
		t.Fatalf("dims = %dx%d", record.Width, record.Height)
	}
	if record.FacetTypes != facets.BitGeneric|facets.BitImage {
		t.Fatalf("facet types = %d", record.FacetTypes)
	}
}

func TestProcessFileContributesBitOnExtractorError(t *testing.T) {
	record := newRegistry().ProcessFile("missing/song.mp3", false)
	if record.FacetTypes != facets.BitGeneric|facets.BitAudio {
		t.Fatalf("facet types = %d", record.FacetTypes)
	}
	if record.Title != "" || record.Album != "" {
		t.Fatalf("error path leaked metadata: %+v", record)
	}
}

func TestEntryPointElection(t *testing.T) {
	registry := newRegistry()
	htmlProc, _ := registry.ForType(facets.TypeHTML)

	cases := []struct {
		candidate, incumbent string
		want                 bool
	}{
		{"index.html", "", true},
		{"index.html", "main.html", true},
		{"main.html", "index.html", false},
		{"start.html", "start.html", false},
		{"index.htm", "index.html", false},
		{"index.html", "index.htm", true},
		{"random.html", "", false},
		{"start.xhtml", "random.html", true},
	}
	for _, tc := range cases {
		if got := htmlProc.IsEntryPoint(tc.candidate, tc.incumbent); got != tc.want {
			t.Errorf("IsEntryPoint(%q, %q) = %v, want %v", tc.candidate, tc.incumbent, got, tc.want)
		}
	}

	generic, _ := registry.ForType(facets.TypeGeneric)
	if generic.IsEntryPoint("index.html", "") {
		t.Fatal("generic processor should never elect an entry point")
	}
}

func TestCustomProcessorReplacesBuiltin(t *testing.T) {
	custom := processors.NewGeneric()
	registry := processors.NewRegistry(processors.Config{}, logging.NewNop(), custom)
	proc, ok := registry.ForType(facets.TypeGeneric)
	if !ok || proc != processors.Processor(custom) {
		t.Fatal("custom processor did not replace the builtin")
	}
	procs := registry.ForPath("anything.bin")
	if len(procs) != 1 {
		t.Fatalf("duplicate registration: %v", names(procs))
	}
}
