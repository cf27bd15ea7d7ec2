package markdown

import "strings"

// linkSpan is an inline link or image occurrence with the byte range of its
// destination, so rewrites can edit the destination in place.
type linkSpan struct {
	kind      LinkKind
	text      string
	dest      string
	destStart int
	destEnd   int // exclusive
}

// scanSpans walks the body line by line and locates inline links and images,
// including ones whose destinations contain spaces. Fenced code blocks,
// indented code, and inline code spans are skipped.
func scanSpans(body []byte) []linkSpan {
	lines := strings.Split(string(body), "\n")

	inCodeBlock := false
	activeFence := ""
	offset := 0

	out := make([]linkSpan, 0)
	for _, line := range lines {
		lineOffset := offset
		offset += len(line) + 1

		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			inCodeBlock, activeFence = toggleFencedBlock(inCodeBlock, activeFence, "```")
			continue
		}
		if strings.HasPrefix(trimmed, "~~~") {
			inCodeBlock, activeFence = toggleFencedBlock(inCodeBlock, activeFence, "~~~")
			continue
		}
		if inCodeBlock || strings.HasPrefix(line, "    ") || strings.HasPrefix(line, "\t") {
			continue
		}

		out = append(out, scanLine(line, lineOffset)...)
	}
	return out
}

func toggleFencedBlock(inCodeBlock bool, activeFence string, fence string) (bool, string) {
	if !inCodeBlock {
		return true, fence
	}
	if activeFence == fence {
		return false, ""
	}
	return inCodeBlock, activeFence
}

func scanLine(line string, base int) []linkSpan {
	masked := codeSpanMask(line)

	spans := make([]linkSpan, 0)
	for i := 0; i+1 < len(line); i++ {
		if line[i] != ']' || line[i+1] != '(' || masked[i] {
			continue
		}

		textStart := -1
		for j := i - 1; j >= 0; j-- {
			if line[j] == '[' && !masked[j] {
				textStart = j
				break
			}
			if line[j] == ']' {
				break
			}
		}
		if textStart == -1 {
			continue
		}

		end := strings.Index(line[i+2:], ")")
		if end == -1 {
			continue
		}
		end += i + 2

		kind := LinkKindInline
		if textStart > 0 && line[textStart-1] == '!' {
			kind = LinkKindImage
		}

		spans = append(spans, linkSpan{
			kind:      kind,
			text:      line[textStart+1 : i],
			dest:      line[i+2 : end],
			destStart: base + i + 2,
			destEnd:   base + end,
		})
	}
	return spans
}

// codeSpanMask marks the byte positions of line covered by inline code
// spans, including the backtick delimiters.
func codeSpanMask(line string) []bool {
	masked := make([]bool, len(line))
	if !strings.Contains(line, "`") {
		return masked
	}

	for i := 0; i < len(line); {
		if line[i] != '`' {
			i++
			continue
		}
		run := 1
		for i+run < len(line) && line[i+run] == '`' {
			run++
		}
		marker := strings.Repeat("`", run)
		closeRel := strings.Index(line[i+run:], marker)
		if closeRel == -1 {
			// Unclosed code span; the backticks are literal.
			i += run
			continue
		}
		spanEnd := i + run + closeRel + run
		for j := i; j < spanEnd; j++ {
			masked[j] = true
		}
		i = spanEnd
	}
	return masked
}
