package processors

import (
	"log/slog"
	"os"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"

	"librarian/internal/facets"
	"librarian/internal/logging"
)

var htmlExtensions = []string{".html", ".htm", ".xhtml"}

// HTML extracts document metadata from hypertext files. Declared charsets
// are honored; undeclared or broken encodings degrade to a best-effort parse
// rather than a failure.
type HTML struct {
	logger *slog.Logger
}

func NewHTML(logger *slog.Logger) *HTML {
	return &HTML{logger: logger.With(logging.String(logging.FieldComponent, "facets"))}
}

func (*HTML) Name() string { return facets.TypeHTML }

func (*HTML) Extensions() []string { return htmlExtensions }

func (*HTML) CanProcess(path string) bool { return hasExtension(path, htmlExtensions) }

func (p *HTML) ProcessFile(path string, acc facets.Record, partial bool) facets.Record {
	acc.Path = path
	acc.FacetTypes |= facets.BitHTML
	if partial {
		return acc
	}

	file, err := os.Open(path)
	if err != nil {
		p.logger.Debug("html facet read failed", logging.String(logging.FieldPath, path), logging.Error(err))
		return acc
	}
	defer file.Close()

	reader, err := charset.NewReader(file, "text/html")
	if err != nil {
		reader = file
	}
	doc, err := html.Parse(reader)
	if err != nil {
		p.logger.Debug("html facet parse failed", logging.String(logging.FieldPath, path), logging.Error(err))
		return acc
	}

	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.ElementNode {
			switch node.Data {
			case "title":
				if node.FirstChild != nil && node.FirstChild.Type == html.TextNode {
					acc.Title = strings.TrimSpace(node.FirstChild.Data)
				}
			case "meta":
				applyMeta(node, &acc)
			}
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)
	return acc
}

func applyMeta(node *html.Node, acc *facets.Record) {
	var name, content string
	for _, attr := range node.Attr {
		switch strings.ToLower(attr.Key) {
		case "name":
			name = strings.ToLower(attr.Val)
		case "content":
			content = strings.TrimSpace(attr.Val)
		}
	}
	if content == "" {
		return
	}
	switch name {
	case "author":
		acc.Author = content
	case "description":
		acc.Description = content
	case "keywords":
		acc.Keywords = content
	case "language":
		acc.Language = content
	case "copyright":
		acc.Copyright = content
	case "outernet-formatting":
		acc.OuternetFormatting = strings.EqualFold(content, "true")
	}
}

func (*HTML) DeprocessFile(string) {}

func (*HTML) IsEntryPoint(candidate, incumbent string) bool {
	return betterEntryPoint(candidate, incumbent)
}
