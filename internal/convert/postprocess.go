package convert

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	headingLinePattern   = regexp.MustCompile(`(?m)^(#+\s+.*)$`)
	imageStartPattern    = regexp.MustCompile(`([^\n])(!\[)`)
	localImageRefPattern = regexp.MustCompile(`(\]\(images/[^)]+\))`)
	srcPrefixPattern     = regexp.MustCompile(`(?m)^src:\s*`)
	bareURLPattern       = regexp.MustCompile(`(^|[\s])(https?://[^\s)\]]+)`)
	unicodeEscapePattern = regexp.MustCompile(`(\\u[0-9A-Fa-f]{4}|\\U[0-9A-Fa-f]{8})+`)
)

// postProcess cleans converter output: bold markers never survive inside
// headings, image references sit on their own lines, literal unicode escape
// sequences decode to their characters, and bare URLs become links.
func postProcess(text string) string {
	out := headingLinePattern.ReplaceAllStringFunc(text, func(line string) string {
		return strings.ReplaceAll(line, "**", "")
	})
	out = imageStartPattern.ReplaceAllString(out, "$1\n$2")
	out = localImageRefPattern.ReplaceAllString(out, "$1\n")
	out = srcPrefixPattern.ReplaceAllString(out, "")

	lines := strings.Split(out, "\n")
	for i, ln := range lines {
		lines[i] = strings.TrimRight(ln, " \t")
	}
	out = strings.Join(lines, "\n")

	out = decodeLiteralUnicodeEscapes(out)
	return wrapBareURLs(out)
}

// wrapBareURLs turns free-standing URLs into Markdown links. URLs already
// inside link or image destinations are untouched because they are preceded
// by "(" rather than whitespace.
func wrapBareURLs(text string) string {
	return bareURLPattern.ReplaceAllString(text, "$1[Click Me ️👆]($2#code)")
}

// decodeLiteralUnicodeEscapes decodes literal backslash-escaped sequences
// like ✓ or \U0001F600 that Confluence leaves in exported content.
func decodeLiteralUnicodeEscapes(text string) string {
	return unicodeEscapePattern.ReplaceAllStringFunc(text, func(raw string) string {
		units := make([]uint32, 0, 4)
		i := 0
		for i < len(raw) {
			if raw[i] != '\\' || i+1 >= len(raw) {
				return raw
			}
			var width int
			switch raw[i+1] {
			case 'u':
				width = 4
			case 'U':
				width = 8
			default:
				return raw
			}
			n, err := strconv.ParseUint(raw[i+2:i+2+width], 16, 32)
			if err != nil || n > 0x10FFFF {
				return raw
			}
			units = append(units, uint32(n))
			i += 2 + width
		}

		var b strings.Builder
		for j := 0; j < len(units); j++ {
			u := units[j]
			// Recombine UTF-16 surrogate pairs left by upstream JSON encoders.
			if u >= 0xD800 && u <= 0xDBFF && j+1 < len(units) {
				lo := units[j+1]
				if lo >= 0xDC00 && lo <= 0xDFFF {
					b.WriteRune(rune(0x10000 + (u-0xD800)<<10 + (lo - 0xDC00)))
					j++
					continue
				}
			}
			b.WriteRune(rune(u))
		}
		return b.String()
	})
}
