package markdown

// Options controls how Markdown is parsed for internal analysis.
//
// Intentionally small for now; it exists so parsing behavior (extensions,
// settings) can evolve without rewriting call sites.
type Options struct{}

type LinkKind string

const (
	LinkKindInline              LinkKind = "inline"
	LinkKindImage               LinkKind = "image"
	LinkKindAuto                LinkKind = "auto"
	LinkKindReferenceDefinition LinkKind = "reference_definition"
)

// Link is a link-like construct found in a Markdown body.
type Link struct {
	Kind        LinkKind
	Text        string
	Destination string
}
