// Package convert transforms Confluence storage-format XHTML into Markdown.
//
// Non-table content is converted to Markdown; table HTML is preserved and
// post-processed so Confluence tasks render as HTML checkboxes. Code macros
// become fenced code blocks, Gliffy macros become image references derived
// from the diagram name parameter, and task lists become checkbox items.
package convert

import (
	"io"
	"strings"

	"golang.org/x/net/html"

	"git.home.luguber.info/inful/confexport/internal/foundation/errors"
)

// Converter drives a single storage-format document through the tokenizer.
// A Converter is single-use; Convert may only be called once per instance.
type Converter struct {
	out           strings.Builder
	tagStack      []string
	listStack     []listState
	inListItem    bool
	listItemBuf   strings.Builder
	taskStatus    string
	inTaskBody    bool
	inTaskStatus  bool
	inTaskID      bool
	taskBodyBuf   strings.Builder
	inLink        bool
	linkHref      string
	paramDepth    int
	tableDepth    int
	tableBuf      strings.Builder
	code          codeMacro
	gliffy        gliffyMacro
	acImage       acImageState
	pendingParam  string // ac:parameter name currently capturing
}

type listState struct {
	kind    string // "ul" or "ol"
	counter int
}

type acImageState struct {
	active   bool
	alt      string
	filename string
}

// New creates a Converter.
func New() *Converter {
	return &Converter{}
}

// Convert transforms storage-format XHTML into Markdown.
func Convert(content string) (string, error) {
	return New().Convert(content)
}

var cdataEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// maskCDATA rewrites CDATA sections as entity-escaped text before
// tokenization. The tokenizer only recognizes CDATA in foreign content and
// reads the section as a bogus comment ending at the first ">", which splits
// code bodies that contain one.
func maskCDATA(s string) string {
	const opening, closing = "<![CDATA[", "]]>"
	start := strings.Index(s, opening)
	if start < 0 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for start >= 0 {
		end := strings.Index(s[start+len(opening):], closing)
		if end < 0 {
			break
		}
		b.WriteString(s[:start])
		_, _ = cdataEscaper.WriteString(&b, s[start+len(opening):start+len(opening)+end])
		s = s[start+len(opening)+end+len(closing):]
		start = strings.Index(s, opening)
	}
	b.WriteString(s)
	return b.String()
}

// Convert runs the token stream through the state machine and post-processes
// the collected output.
func (c *Converter) Convert(content string) (string, error) {
	z := html.NewTokenizer(strings.NewReader(maskCDATA(content)))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if z.Err() == io.EOF {
				break
			}
			return "", errors.ConvertError("failed to tokenize storage format").
				WithCause(z.Err()).Build()
		}
		raw := string(z.Raw())
		switch tt {
		case html.StartTagToken:
			c.handleStart(z.Token(), raw)
		case html.EndTagToken:
			c.handleEnd(z.Token(), raw)
		case html.SelfClosingTagToken:
			c.handleSelfClosing(z.Token(), raw)
		case html.TextToken:
			c.handleText(z.Token().Data, raw)
		case html.CommentToken:
			c.handleComment(raw)
		}
	}
	return postProcess(c.out.String()), nil
}

func (c *Converter) handleStart(tok html.Token, raw string) {
	name := tok.Data
	if c.inTable() {
		c.tableBuf.WriteString(raw)
		if name == "table" {
			c.tableDepth++
		}
		return
	}
	c.tagStack = append(c.tagStack, name)

	if name == "ac:structured-macro" {
		c.startMacro(attrMap(tok))
		return
	}
	if name == "ac:parameter" {
		c.paramDepth++
		c.pendingParam = attrMap(tok)["ac:name"]
		return
	}
	if c.code.active && name == "ac:plain-text-body" {
		c.code.inBody = true
		return
	}

	if h, ok := startHandlers[name]; ok {
		h(c, tok)
	}
	if name == "table" {
		c.startTable(raw)
	}
}

func (c *Converter) handleEnd(tok html.Token, raw string) {
	name := tok.Data
	if c.inTable() {
		c.tableBuf.WriteString(raw)
		if name == "table" {
			c.tableDepth--
			if c.tableDepth == 0 {
				c.endTable()
			}
		}
		c.popTag(name)
		return
	}
	c.popTag(name)

	switch name {
	case "ac:structured-macro":
		c.endMacro()
		return
	case "ac:parameter":
		if c.paramDepth > 0 {
			c.paramDepth--
		}
		c.pendingParam = ""
		return
	case "ac:plain-text-body":
		if c.code.active {
			c.code.inBody = false
		}
		return
	}

	if h, ok := endHandlers[name]; ok {
		h(c)
	}
}

func (c *Converter) handleSelfClosing(tok html.Token, raw string) {
	name := tok.Data
	if c.inTable() {
		c.tableBuf.WriteString(raw)
		return
	}
	if h, ok := selfClosingHandlers[name]; ok {
		h(c, tok)
	}
}

func (c *Converter) handleText(data, raw string) {
	if c.inTable() {
		c.tableBuf.WriteString(raw)
		return
	}
	// Parameter payloads configure macros; they are never document content.
	if c.paramDepth > 0 {
		if c.code.active && c.pendingParam == "language" {
			c.code.language += strings.TrimSpace(data)
		}
		if c.gliffy.active && c.pendingParam == "name" {
			c.gliffy.name += strings.TrimSpace(data)
		}
		return
	}
	if c.code.active {
		if c.code.inBody {
			c.code.body.WriteString(data)
		}
		return
	}
	if c.gliffy.active {
		return
	}
	if c.inTaskStatus {
		c.taskStatus = strings.ToLower(strings.TrimSpace(data))
		return
	}
	if c.inTaskID {
		return
	}
	trimmed := strings.TrimSpace(data)
	if trimmed != "" {
		c.appendText(trimmed)
	}
}

func (c *Converter) handleComment(raw string) {
	if c.inTable() {
		c.tableBuf.WriteString(raw)
	}
}

// appendText routes text to the active buffer, handling inline trimming.
func (c *Converter) appendText(text string) {
	if c.inInlineFormatting() {
		text = strings.TrimRight(text, " \t")
	}
	switch {
	case c.inListItem:
		c.listItemBuf.WriteString(text)
	case c.inTaskBody:
		c.taskBodyBuf.WriteString(text)
	default:
		c.out.WriteString(text)
	}
}

func (c *Converter) inInlineFormatting() bool {
	for _, tag := range c.tagStack {
		switch tag {
		case "strong", "b", "em", "i", "u", "del", "strike":
			return true
		}
	}
	return false
}

func (c *Converter) inTable() bool { return c.tableDepth > 0 }

func (c *Converter) startTable(raw string) {
	c.tableDepth = 1
	c.tableBuf.Reset()
	c.tableBuf.WriteString(raw)
}

func (c *Converter) endTable() {
	transformed := TransformTableHTML(c.tableBuf.String())
	c.out.WriteString("\n" + transformed + "\n")
	c.tableBuf.Reset()
}

func (c *Converter) popTag(name string) {
	for i := len(c.tagStack) - 1; i >= 0; i-- {
		if c.tagStack[i] == name {
			c.tagStack = append(c.tagStack[:i], c.tagStack[i+1:]...)
			return
		}
	}
}

func attrMap(tok html.Token) map[string]string {
	m := make(map[string]string, len(tok.Attr))
	for _, a := range tok.Attr {
		key := a.Key
		if a.Namespace != "" {
			key = a.Namespace + ":" + a.Key
		}
		m[strings.ToLower(key)] = a.Val
	}
	return m
}
