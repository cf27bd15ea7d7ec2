package convert

import (
	"strings"
)

// codeMacro tracks extraction of a Confluence code macro into a fenced block.
type codeMacro struct {
	active   bool
	inBody   bool
	language string
	body     strings.Builder
}

// gliffyMacro tracks extraction of a Gliffy diagram macro into an image ref.
type gliffyMacro struct {
	active bool
	name   string
}

// startMacro dispatches on the ac:name attribute of a structured macro.
// Code and Gliffy macros buffer until their end tag; anything else collapses
// to a single space so surrounding words do not run together.
func (c *Converter) startMacro(attrs map[string]string) {
	switch strings.ToLower(attrs["ac:name"]) {
	case "code":
		c.code = codeMacro{active: true}
	case "gliffy":
		c.gliffy = gliffyMacro{active: true}
	default:
		c.appendText(" ")
	}
}

// endMacro finalizes whichever macro is active.
func (c *Converter) endMacro() {
	switch {
	case c.code.active:
		c.out.WriteString(c.code.fence())
		c.code = codeMacro{}
	case c.gliffy.active:
		c.out.WriteString(c.gliffy.imageRef())
		c.gliffy = gliffyMacro{}
	}
}

// fence renders the captured code body as a fenced block.
func (m *codeMacro) fence() string {
	lang := m.language
	if lang == "" {
		lang = "plaintext"
	}
	body := strings.TrimLeft(m.body.String(), "\n\r")
	body = strings.TrimRight(body, " \t\n\r")
	return "\n```" + lang + "\n" + body + "\n```\n"
}

// imageRef derives the diagram image reference from the name parameter.
func (m *gliffyMacro) imageRef() string {
	name := strings.TrimSpace(m.name)
	if name == "" {
		name = "gliffy_diagram"
	}
	return "\n![" + name + "](images/" + SanitizeTitle(name) + ".png)\n"
}
