// Package markdown analyzes and rewrites exported Markdown. Converted pages
// carry image references with spaces in their destinations and leftover
// blob: URLs from Confluence exports, so analysis pairs a strict Goldmark
// parse with a permissive offset-based scan, and rewriting applies targeted
// byte-range edits instead of re-rendering.
package markdown

import (
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// ParseBody parses a Markdown body into a Goldmark AST.
func ParseBody(body []byte, _ Options) (gmast.Node, error) {
	md := goldmark.New()
	root := md.Parser().Parse(text.NewReader(body))
	return root, nil
}

// ExtractLinks parses a Markdown body and extracts link-like constructs.
//
// This is an analysis API; it does not attempt to re-render Markdown.
func ExtractLinks(body []byte, _ Options) ([]Link, error) {
	md := goldmark.New()
	ctx := parser.NewContext()
	root := md.Parser().Parse(text.NewReader(body), parser.WithContext(ctx))

	links := make([]Link, 0)
	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *gmast.AutoLink:
			links = append(links, Link{Kind: LinkKindAuto, Destination: string(node.URL(body))})
		case *gmast.Image:
			links = append(links, Link{Kind: LinkKindImage, Destination: string(node.Destination)})
		case *gmast.Link:
			links = append(links, Link{Kind: LinkKindInline, Destination: string(node.Destination)})
		}
		return gmast.WalkContinue, nil
	})

	// Reference definitions live in the parse context, not the AST.
	refs := ctx.References()
	sort.Slice(refs, func(i, j int) bool {
		return string(refs[i].Label()) < string(refs[j].Label())
	})
	for _, ref := range refs {
		links = append(links, Link{Kind: LinkKindReferenceDefinition, Destination: string(ref.Destination())})
	}

	// Goldmark follows CommonMark strictly and drops destinations containing
	// spaces, which converted image references routinely have. A permissive
	// pass catches those; the whitespace filter keeps it from duplicating
	// what Goldmark already found.
	for _, sp := range scanSpans(body) {
		if !containsWhitespace(sp.dest) {
			continue
		}
		links = append(links, Link{Kind: sp.kind, Text: sp.text, Destination: sp.dest})
	}

	return links, nil
}

func containsWhitespace(s string) bool {
	return strings.ContainsAny(s, " \t")
}
