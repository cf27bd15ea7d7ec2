package convert

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// TransformTableHTML rewrites preserved table HTML so Confluence task
// elements render as HTML checkbox list items. All other markup passes
// through byte-for-byte.
func TransformTableHTML(tableHTML string) string {
	t := &tableTransformer{}
	t.run(tableHTML)
	return t.out.String()
}

type tableTransformer struct {
	out          strings.Builder
	inTask       bool
	inTaskBody   bool
	inTaskStatus bool
	inTaskID     bool
	skipSpan     int
	taskStatus   string
	taskBodyBuf  strings.Builder
}

func (t *tableTransformer) run(tableHTML string) {
	z := html.NewTokenizer(strings.NewReader(tableHTML))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			// EOF or a malformed fragment: keep whatever rendered so far.
			return
		}
		raw := string(z.Raw())
		switch tt {
		case html.StartTagToken, html.SelfClosingTagToken:
			t.startTag(z.Token(), raw)
		case html.EndTagToken:
			t.endTag(z.Token(), raw)
		case html.TextToken:
			t.text(z.Token().Data, raw)
		default:
			if t.skipSpan == 0 {
				t.out.WriteString(raw)
			}
		}
	}
}

func (t *tableTransformer) startTag(tok html.Token, raw string) {
	if t.skipSpan > 0 {
		if tok.Data == "span" {
			t.skipSpan++
		}
		return
	}
	attrs := attrMap(tok)
	switch tok.Data {
	case "ac:task-list":
		t.out.WriteString("<ul>")
	case "ac:task":
		t.inTask = true
		t.taskStatus = "incomplete"
		if s := attrs["ac:task-status"]; s != "" {
			t.taskStatus = strings.ToLower(s)
		}
		t.taskBodyBuf.Reset()
	case "ac:task-body":
		t.inTaskBody = true
	case "ac:task-status":
		t.inTaskStatus = true
	case "ac:task-id":
		t.inTaskID = true
	case "span":
		if attrs["class"] == "placeholder-inline-tasks" {
			t.skipSpan = 1
			return
		}
		t.out.WriteString(raw)
	default:
		t.out.WriteString(raw)
	}
}

func (t *tableTransformer) endTag(tok html.Token, raw string) {
	if t.skipSpan > 0 {
		if tok.Data == "span" {
			t.skipSpan--
		}
		return
	}
	switch tok.Data {
	case "ac:task-list":
		t.out.WriteString("</ul>")
	case "ac:task":
		text := scrubTaskDecoration(strings.TrimSpace(t.taskBodyBuf.String()))
		box := "<input type='checkbox'>"
		if t.taskStatus == "complete" {
			box = "<input type='checkbox' checked>"
		}
		t.out.WriteString("<li>" + box + " " + text + "</li>")
		t.taskBodyBuf.Reset()
		t.inTask = false
	case "ac:task-body":
		t.inTaskBody = false
	case "ac:task-status":
		t.inTaskStatus = false
	case "ac:task-id":
		t.inTaskID = false
	case "span":
		if t.skipSpan > 0 {
			t.skipSpan--
			return
		}
		t.out.WriteString(raw)
	default:
		t.out.WriteString(raw)
	}
}

var taskDecorationPattern = regexp.MustCompile(`(?i)^[0-9.)(\-_\s]*(complete|incomplete)?\s*`)

func (t *tableTransformer) text(data, raw string) {
	switch {
	case t.skipSpan > 0:
		// Placeholder spans never render.
	case t.inTaskStatus:
		t.taskStatus = strings.ToLower(strings.TrimSpace(data))
	case t.inTaskBody:
		t.taskBodyBuf.WriteString(data)
	case t.inTask || t.inTaskID:
		// Only the task body renders.
	default:
		t.out.WriteString(raw)
	}
}

// scrubTaskDecoration strips leading task IDs, numbering punctuation, and
// status words from a task body.
func scrubTaskDecoration(s string) string {
	return taskDecorationPattern.ReplaceAllString(s, "")
}
