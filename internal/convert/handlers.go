package convert

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// startHandlers maps tag names to their start-tag behavior. Tags without an
// entry contribute nothing structural; their text still flows through.
var startHandlers = map[string]func(*Converter, html.Token){
	"h1": handleHeading, "h2": handleHeading, "h3": handleHeading,
	"h4": handleHeading, "h5": handleHeading, "h6": handleHeading,
	"p":  func(c *Converter, _ html.Token) { c.appendText("\n\n") },
	"br": func(c *Converter, _ html.Token) { c.appendText("\n") },
	"ul": func(c *Converter, _ html.Token) {
		c.listStack = append(c.listStack, listState{kind: "ul"})
		c.appendText("\n")
	},
	"ol": func(c *Converter, _ html.Token) {
		c.listStack = append(c.listStack, listState{kind: "ol", counter: 1})
		c.appendText("\n")
	},
	"li": func(c *Converter, _ html.Token) {
		c.inListItem = true
		c.listItemBuf.Reset()
	},
	"code":   func(c *Converter, _ html.Token) { c.appendText(" `") },
	"pre":    func(c *Converter, _ html.Token) { c.appendText("\n```\n") },
	"strong": handleStrong, "b": handleStrong,
	"em": handleEm, "i": handleEm,
	"u":   func(c *Converter, _ html.Token) { c.appendText(" <u>") },
	"del": handleDel, "strike": handleDel,
	"a": func(c *Converter, tok html.Token) {
		href := attrMap(tok)["href"]
		if href == "" {
			return
		}
		c.inLink = true
		c.linkHref = href
		c.appendText(" [")
	},
	"img": handleImg,
	"ac:image": func(c *Converter, tok html.Token) {
		c.acImage.active = true
		c.acImage.alt = strings.TrimSpace(attrMap(tok)["ac:alt"])
	},
	"ac:emoticon": handleEmoticon,
	"ac:task-list": func(c *Converter, _ html.Token) { c.appendText("\n") },
	"ac:task": func(c *Converter, tok html.Token) {
		status := attrMap(tok)["ac:task-status"]
		if status == "" {
			status = "incomplete"
		}
		c.taskStatus = strings.ToLower(status)
		c.inTaskBody = true
		c.taskBodyBuf.Reset()
	},
	"ac:task-body":   func(c *Converter, _ html.Token) { c.inTaskBody = true },
	"ac:task-status": func(c *Converter, _ html.Token) { c.inTaskStatus = true },
	"ac:task-id":     func(c *Converter, _ html.Token) { c.inTaskID = true },
}

var endHandlers = map[string]func(*Converter){
	"h1": handleHeadingEnd, "h2": handleHeadingEnd, "h3": handleHeadingEnd,
	"h4": handleHeadingEnd, "h5": handleHeadingEnd, "h6": handleHeadingEnd,
	"ul": handleListEnd,
	"ol": handleListEnd,
	"li": func(c *Converter) {
		c.inListItem = false
		prefix := "- "
		depth := 0
		if n := len(c.listStack); n > 0 {
			depth = n - 1
			top := &c.listStack[n-1]
			if top.kind == "ol" {
				prefix = fmt.Sprintf("%d. ", top.counter)
				top.counter++
			}
		}
		content := strings.TrimSpace(c.listItemBuf.String())
		c.out.WriteString("\n" + strings.Repeat("    ", depth) + prefix + content)
	},
	"code":   func(c *Converter) { c.appendText("` ") },
	"pre":    func(c *Converter) { c.appendText("\n```\n") },
	"strong": func(c *Converter) { c.appendText("** ") },
	"b":      func(c *Converter) { c.appendText("** ") },
	"em":     func(c *Converter) { c.appendText("_ ") },
	"i":      func(c *Converter) { c.appendText("_ ") },
	"u":      func(c *Converter) { c.appendText("</u> ") },
	"del":    func(c *Converter) { c.appendText("~~ ") },
	"strike": func(c *Converter) { c.appendText("~~ ") },
	"a": func(c *Converter) {
		if !c.inLink {
			return
		}
		c.appendText("](" + c.linkHref + ") ")
		c.inLink = false
		c.linkHref = ""
	},
	"ac:task-list": func(c *Converter) { c.appendText("\n") },
	"ac:task": func(c *Converter) {
		cbox := "[ ]"
		if c.taskStatus == "complete" {
			cbox = "[x]"
		}
		body := scrubTaskPrefix(strings.TrimSpace(c.taskBodyBuf.String()))
		c.out.WriteString("\n- " + cbox + " " + body)
		c.inTaskBody = false
		c.taskBodyBuf.Reset()
		c.taskStatus = ""
	},
	"ac:task-body":   func(c *Converter) { c.inTaskBody = false },
	"ac:task-status": func(c *Converter) { c.inTaskStatus = false },
	"ac:task-id":     func(c *Converter) { c.inTaskID = false },
	"ac:image": func(c *Converter) {
		if !c.acImage.active {
			return
		}
		c.emitImage(c.acImage.alt, c.acImage.filename)
		c.acImage = acImageState{}
	},
}

var selfClosingHandlers = map[string]func(*Converter, html.Token){
	"br":  func(c *Converter, _ html.Token) { c.appendText("\n") },
	"img": handleImg,
	"ac:image": func(c *Converter, tok html.Token) {
		attrs := attrMap(tok)
		c.emitImage(strings.TrimSpace(attrs["ac:alt"]), strings.TrimSpace(attrs["ri:filename"]))
	},
	"ri:attachment": func(c *Converter, tok html.Token) {
		if c.acImage.active {
			c.acImage.filename = strings.TrimSpace(attrMap(tok)["ri:filename"])
		}
	},
	"ac:emoticon": handleEmoticon,
}

var headingLevels = map[string]int{"h1": 1, "h2": 2, "h3": 3, "h4": 4, "h5": 5, "h6": 6}

func handleHeading(c *Converter, tok html.Token) {
	lv := headingLevels[tok.Data]
	if lv == 0 {
		lv = 1
	}
	c.appendText("\n" + strings.Repeat("#", lv) + " ")
}

func handleHeadingEnd(c *Converter) { c.appendText("\n") }

func handleStrong(c *Converter, _ html.Token) { c.appendText(" **") }
func handleEm(c *Converter, _ html.Token)     { c.appendText(" _") }
func handleDel(c *Converter, _ html.Token)    { c.appendText(" ~~") }

func handleListEnd(c *Converter) {
	if len(c.listStack) > 0 {
		c.listStack = c.listStack[:len(c.listStack)-1]
	}
	if len(c.listStack) == 0 {
		c.appendText("\n")
	}
}

// handleImg keeps the source URL for plain img tags. Pasted images carry
// blob: sources that a later rewrite pass resolves against the page's
// attachments; sanitizing them here would lose that information.
func handleImg(c *Converter, tok html.Token) {
	attrs := attrMap(tok)
	alt := strings.TrimSpace(attrs["alt"])
	src := strings.TrimSpace(attrs["src"])
	if src == "" {
		c.emitImage(alt, "")
		return
	}
	if alt == "" {
		alt = "image"
	}
	c.appendText("\n![" + alt + "](" + src + ")\n")
}

// emitImage writes an inline image reference. The display name prefers the
// alt text, falling back to the attachment filename, then a generic label.
// The reference always points at the attachment filename when one exists so
// it matches the file the exporter downloads.
func (c *Converter) emitImage(alt, filename string) {
	name := alt
	if name == "" {
		name = filename
	}
	if name == "" {
		name = "image"
	}
	ref := SanitizeTitle(filename)
	if ref == "" {
		ref = SanitizeTitle(name)
	}
	c.appendText("\n![" + SanitizeTitle(name) + "](images/" + ref + ")\n")
}

func handleEmoticon(c *Converter, tok html.Token) {
	attrs := attrMap(tok)
	if fb := attrs["ac:emoji-fallback"]; fb != "" {
		c.appendText(fb)
	} else if sn := attrs["ac:emoji-shortname"]; sn != "" {
		c.appendText(sn)
	}
}

// Confluence server exports prefix task bodies with the numeric task ID and
// status word; strip them so only the human text remains.
var taskPrefixPattern = regexp.MustCompile(`(?i)^[0-9]+\s*(complete|incomplete)\s*`)

func scrubTaskPrefix(s string) string {
	return taskPrefixPattern.ReplaceAllString(s, "")
}
