// Package textproc turns markdown documents into the plain paragraphs the
// analyzer scores, one per line.
package textproc

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

// Paragraphs extracts the readable blocks of a markdown document. Headings,
// paragraphs, list items and table cells each become one entry; code and raw
// HTML are dropped. Soft line breaks inside a block collapse to spaces.
func Paragraphs(markdown []byte) []string {
	reader := text.NewReader(markdown)
	doc := md.Parser().Parse(reader)

	var out []string
	emit := func(s string) {
		s = strings.Join(strings.Fields(s), " ")
		if s != "" {
			out = append(out, s)
		}
	}

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n.Kind() {
		case ast.KindCodeBlock, ast.KindFencedCodeBlock, ast.KindHTMLBlock:
			return ast.WalkSkipChildren, nil
		case ast.KindHeading, ast.KindParagraph, ast.KindTextBlock, extast.KindTableCell:
			var b strings.Builder
			inline(n, reader.Source(), &b)
			emit(b.String())
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return out
}

// Flatten returns Paragraphs joined by newlines, the input format of the
// sentiment analyzer.
func Flatten(markdown []byte) string {
	return strings.Join(Paragraphs(markdown), "\n")
}

// inline writes the text content of a block's inline children.
func inline(n ast.Node, source []byte, b *strings.Builder) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch c := c.(type) {
		case *ast.Text:
			b.Write(c.Segment.Value(source))
			if c.SoftLineBreak() || c.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(c.Value)
		case *ast.RawHTML:
			// inline tags carry no prose
		case *ast.AutoLink:
			b.Write(c.Label(source))
		case *ast.Image:
			// alt text only; the URL is noise when read aloud
			inline(c, source, b)
		default:
			inline(c, source, b)
		}
	}
}
