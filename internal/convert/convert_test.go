package convert

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertHeadings(t *testing.T) {
	out, err := Convert("<h1>Overview</h1>")
	require.NoError(t, err)
	assert.Equal(t, "\n# Overview\n", out)

	out, err = Convert("<h3>Details</h3>")
	require.NoError(t, err)
	assert.Equal(t, "\n### Details\n", out)
}

func TestConvertHeadingDropsBoldMarkers(t *testing.T) {
	out, err := Convert("<h2><strong>Release Notes</strong></h2>")
	require.NoError(t, err)
	assert.Contains(t, out, "Release Notes")
	assert.NotContains(t, out, "**")
}

func TestConvertInlineFormatting(t *testing.T) {
	out, err := Convert("<p>a <strong>bold</strong> b</p>")
	require.NoError(t, err)
	assert.Equal(t, "\n\na **bold** b", out)

	out, err = Convert("<p>an <em>italic</em> word</p>")
	require.NoError(t, err)
	assert.Equal(t, "\n\nan _italic_ word", out)

	out, err = Convert("<p>use <code>go test</code> here</p>")
	require.NoError(t, err)
	assert.Contains(t, out, "`go test`")
}

func TestConvertUnorderedList(t *testing.T) {
	out, err := Convert("<ul><li>one</li><li>two</li></ul>")
	require.NoError(t, err)
	assert.Equal(t, "\n\n- one\n- two\n", out)
}

func TestConvertOrderedList(t *testing.T) {
	out, err := Convert("<ol><li>first</li><li>second</li><li>third</li></ol>")
	require.NoError(t, err)
	assert.Equal(t, "\n\n1. first\n2. second\n3. third\n", out)
}

func TestConvertNestedListIndents(t *testing.T) {
	out, err := Convert("<ul><li>top</li><ul><li>inner</li></ul></ul>")
	require.NoError(t, err)
	assert.Contains(t, out, "- top")
	assert.Contains(t, out, "    - inner")
}

func TestConvertLink(t *testing.T) {
	out, err := Convert(`<p>See <a href="https://example.com/docs">docs</a> now</p>`)
	require.NoError(t, err)
	assert.Equal(t, "\n\nSee [docs](https://example.com/docs) now", out)
}

func TestConvertTaskList(t *testing.T) {
	in := "<ac:task-list>" +
		"<ac:task><ac:task-id>5</ac:task-id><ac:task-status>complete</ac:task-status><ac:task-body>Ship it</ac:task-body></ac:task>" +
		"<ac:task><ac:task-id>6</ac:task-id><ac:task-status>incomplete</ac:task-status><ac:task-body>Write docs</ac:task-body></ac:task>" +
		"</ac:task-list>"
	out, err := Convert(in)
	require.NoError(t, err)
	assert.Contains(t, out, "- [x] Ship it")
	assert.Contains(t, out, "- [ ] Write docs")
	assert.NotContains(t, out, "5")
	assert.NotContains(t, out, "complete")
}

func TestConvertTaskBodyScrubsIDPrefix(t *testing.T) {
	in := "<ac:task-list><ac:task><ac:task-body>12 incomplete Buy milk</ac:task-body></ac:task></ac:task-list>"
	out, err := Convert(in)
	require.NoError(t, err)
	assert.Contains(t, out, "- [ ] Buy milk")
	assert.NotContains(t, out, "12 incomplete")
}

func TestConvertCodeMacro(t *testing.T) {
	in := `<ac:structured-macro ac:name="code">` +
		`<ac:parameter ac:name="language">go</ac:parameter>` +
		`<ac:plain-text-body><![CDATA[fmt.Println("hi")]]></ac:plain-text-body>` +
		`</ac:structured-macro>`
	out, err := Convert(in)
	require.NoError(t, err)
	assert.Equal(t, "\n```go\nfmt.Println(\"hi\")\n```\n", out)
}

// A ">" inside a CDATA body must survive: the tokenizer would otherwise end
// the section early and leak the CDATA framing into the fence.
func TestConvertCodeMacroBodyWithComparison(t *testing.T) {
	in := `<ac:structured-macro ac:name="code">` +
		`<ac:parameter ac:name="language">go</ac:parameter>` +
		`<ac:plain-text-body><![CDATA[if a > b { return a }]]></ac:plain-text-body>` +
		`</ac:structured-macro>`
	out, err := Convert(in)
	require.NoError(t, err)
	assert.Equal(t, "\n```go\nif a > b { return a }\n```\n", out)
	assert.NotContains(t, out, "CDATA")
}

func TestConvertCodeMacroMultilineBody(t *testing.T) {
	in := `<ac:structured-macro ac:name="code">` +
		`<ac:parameter ac:name="language">bash</ac:parameter>` +
		"<ac:plain-text-body><![CDATA[x=1\necho $x -> done\nls <dir>]]></ac:plain-text-body>" +
		`</ac:structured-macro>`
	out, err := Convert(in)
	require.NoError(t, err)
	assert.Equal(t, "\n```bash\nx=1\necho $x -> done\nls <dir>\n```\n", out)
}

func TestConvertCodeMacroDefaultsLanguage(t *testing.T) {
	in := `<ac:structured-macro ac:name="code">` +
		`<ac:plain-text-body><![CDATA[plain text]]></ac:plain-text-body>` +
		`</ac:structured-macro>`
	out, err := Convert(in)
	require.NoError(t, err)
	assert.Contains(t, out, "```plaintext\nplain text\n```")
}

func TestConvertImgKeepsSource(t *testing.T) {
	out, err := Convert(`<p><img src="blob:https://wiki.example.com/abc" alt="shot.png"/></p>`)
	require.NoError(t, err)
	assert.Contains(t, out, "![shot.png](blob:https://wiki.example.com/abc)")
}

func TestConvertImgWithoutSource(t *testing.T) {
	out, err := Convert(`<p><img alt="shot.png"/></p>`)
	require.NoError(t, err)
	assert.Contains(t, out, "![shot.png](images/shot.png)")
}

func TestConvertGliffyMacro(t *testing.T) {
	in := `<ac:structured-macro ac:name="gliffy">` +
		`<ac:parameter ac:name="name">My Diagram</ac:parameter>` +
		`</ac:structured-macro>`
	out, err := Convert(in)
	require.NoError(t, err)
	assert.Contains(t, out, "![My Diagram](images/My Diagram.png)")
}

func TestConvertGliffyMacroWithoutName(t *testing.T) {
	in := `<ac:structured-macro ac:name="gliffy"></ac:structured-macro>`
	out, err := Convert(in)
	require.NoError(t, err)
	assert.Contains(t, out, "![gliffy_diagram](images/gliffy_diagram.png)")
}

func TestConvertUnknownMacroLeavesSpace(t *testing.T) {
	in := `<p>before</p><ac:structured-macro ac:name="toc"></ac:structured-macro><p>after</p>`
	out, err := Convert(in)
	require.NoError(t, err)
	assert.Contains(t, out, "before")
	assert.Contains(t, out, "after")
	assert.NotContains(t, out, "toc")
}

func TestConvertAttachmentImage(t *testing.T) {
	in := `<p><ac:image><ri:attachment ri:filename="arch.png" /></ac:image></p>`
	out, err := Convert(in)
	require.NoError(t, err)
	assert.Contains(t, out, "![arch.png](images/arch.png)")
}

func TestConvertImageAltStillPointsAtAttachment(t *testing.T) {
	in := `<ac:image ac:alt="Architecture"><ri:attachment ri:filename="arch.png" /></ac:image>`
	out, err := Convert(in)
	require.NoError(t, err)
	assert.Contains(t, out, "![Architecture](images/arch.png)")
}

func TestConvertEmoticon(t *testing.T) {
	out, err := Convert(`<p><ac:emoticon ac:name="smile" ac:emoji-fallback="😄"/></p>`)
	require.NoError(t, err)
	assert.Contains(t, out, "😄")
}

func TestConvertTablePreservedVerbatim(t *testing.T) {
	in := "<table><tbody><tr><th>H</th></tr><tr><td>v</td></tr></tbody></table>"
	out, err := Convert(in)
	require.NoError(t, err)
	assert.Equal(t, "\n"+in+"\n", out)
}

func TestConvertTableTasksBecomeCheckboxes(t *testing.T) {
	in := "<table><tr><td>" +
		"<ac:task-list><ac:task><ac:task-status>complete</ac:task-status><ac:task-body>Done</ac:task-body></ac:task></ac:task-list>" +
		"</td></tr></table>"
	out, err := Convert(in)
	require.NoError(t, err)
	assert.Contains(t, out, "<ul><li><input type='checkbox' checked> Done</li></ul>")
	assert.NotContains(t, out, "ac:task")
}

func TestConvertMixedDocument(t *testing.T) {
	in := `<h1>Guide</h1><p>Intro text</p><ul><li>item</li></ul>` +
		`<ac:structured-macro ac:name="code"><ac:parameter ac:name="language">sh</ac:parameter>` +
		`<ac:plain-text-body><![CDATA[ls -la]]></ac:plain-text-body></ac:structured-macro>`
	out, err := Convert(in)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "\n# Guide\n"))
	assert.Contains(t, out, "Intro text")
	assert.Contains(t, out, "- item")
	assert.Contains(t, out, "```sh\nls -la\n```")
}

func TestConvertReusableViaPackageFunc(t *testing.T) {
	// Two sequential documents through fresh converters must not share state.
	a, err := Convert("<ul><li>a</li></ul>")
	require.NoError(t, err)
	b, err := Convert("<ol><li>b</li></ol>")
	require.NoError(t, err)
	assert.Contains(t, a, "- a")
	assert.Contains(t, b, "1. b")
}
