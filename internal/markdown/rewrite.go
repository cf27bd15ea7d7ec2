package markdown

import (
	"strings"

	"git.home.luguber.info/inful/confexport/internal/convert"
)

// RewriteFunc inspects one link occurrence and returns a replacement
// destination. Returning false leaves the occurrence untouched.
type RewriteFunc func(Link) (string, bool)

// RewriteLinks rewrites inline link and image destinations in place.
// Everything outside the rewritten destinations stays byte-identical.
func RewriteLinks(source []byte, rewrite RewriteFunc) ([]byte, error) {
	edits := make([]Edit, 0)
	for _, sp := range scanSpans(source) {
		repl, ok := rewrite(Link{Kind: sp.kind, Text: sp.text, Destination: sp.dest})
		if !ok || repl == sp.dest {
			continue
		}
		edits = append(edits, Edit{Start: sp.destStart, End: sp.destEnd, Replacement: []byte(repl)})
	}
	return ApplyEdits(source, edits)
}

// LocalImageRefs returns the destinations of image references that point
// into the page-local images directory, in document order.
func LocalImageRefs(source []byte) []string {
	var refs []string
	for _, sp := range scanSpans(source) {
		if sp.kind == LinkKindImage && strings.HasPrefix(sp.dest, "images/") {
			refs = append(refs, sp.dest)
		}
	}
	return refs
}

// RewriteBlobImages redirects blob: image references to the attachment file
// the exporter downloads. Confluence leaves these behind for pasted images;
// the alt text carries the attachment name. A reference is only rewritten
// when one of the page's attachment filenames appears in the alt text, so
// refs without a downloadable attachment stay as they are.
func RewriteBlobImages(source []byte, attachments []string) ([]byte, error) {
	return RewriteLinks(source, func(l Link) (string, bool) {
		if l.Kind != LinkKindImage || !strings.HasPrefix(l.Destination, "blob:") {
			return "", false
		}
		for _, name := range attachments {
			if name != "" && strings.Contains(l.Text, name) {
				return "images/" + convert.SanitizeTitle(name), true
			}
		}
		return "", false
	})
}
