package convert

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransformTableHTMLPassthrough(t *testing.T) {
	in := "<table><tbody><tr><th>Name</th><td>Value</td></tr></tbody></table>"
	assert.Equal(t, in, TransformTableHTML(in))
}

func TestTransformTableHTMLTaskList(t *testing.T) {
	in := "<table><tr><td><ac:task-list>" +
		"<ac:task><ac:task-id>1</ac:task-id><ac:task-status>complete</ac:task-status><ac:task-body>Done thing</ac:task-body></ac:task>" +
		"<ac:task><ac:task-id>2</ac:task-id><ac:task-status>incomplete</ac:task-status><ac:task-body>Open thing</ac:task-body></ac:task>" +
		"</ac:task-list></td></tr></table>"
	out := TransformTableHTML(in)
	assert.Equal(t, "<table><tr><td><ul>"+
		"<li><input type='checkbox' checked> Done thing</li>"+
		"<li><input type='checkbox'> Open thing</li>"+
		"</ul></td></tr></table>", out)
}

func TestTransformTableHTMLStatusAttribute(t *testing.T) {
	in := `<ac:task-list><ac:task ac:task-status="complete"><ac:task-body>Attr status</ac:task-body></ac:task></ac:task-list>`
	out := TransformTableHTML(in)
	assert.Contains(t, out, "<input type='checkbox' checked> Attr status")
}

func TestTransformTableHTMLScrubsTaskDecoration(t *testing.T) {
	in := "<ac:task-list><ac:task><ac:task-body>3. incomplete Review PR</ac:task-body></ac:task></ac:task-list>"
	out := TransformTableHTML(in)
	assert.Contains(t, out, "<input type='checkbox'> Review PR")
}

func TestTransformTableHTMLSkipsPlaceholderSpans(t *testing.T) {
	in := `<td><span class="placeholder-inline-tasks">hidden <span>deep</span> text</span>visible</td>`
	out := TransformTableHTML(in)
	assert.Equal(t, "<td>visible</td>", out)
}

func TestTransformTableHTMLKeepsRegularSpans(t *testing.T) {
	in := `<td><span class="highlight">kept</span></td>`
	assert.Equal(t, in, TransformTableHTML(in))
}

func TestScrubTaskDecoration(t *testing.T) {
	cases := map[string]string{
		"12 complete Ship release": "Ship release",
		"3. incomplete Review PR":  "Review PR",
		"- complete cleanup":       "cleanup",
		"plain body":               "plain body",
		"":                         "",
	}
	for in, want := range cases {
		assert.Equal(t, want, scrubTaskDecoration(in), "input %q", in)
	}
}
