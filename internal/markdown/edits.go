package markdown

import (
	"fmt"
	"sort"

	"git.home.luguber.info/inful/confexport/internal/foundation/errors"
)

// Edit is a targeted byte-range replacement.
//
// Start and End are byte offsets into the original source, End exclusive.
// Replacement replaces source[Start:End]. Edits keep rewrites minimal-diff:
// the untouched Markdown stays byte-identical.
type Edit struct {
	Start       int
	End         int
	Replacement []byte
}

// ApplyEdits applies non-overlapping byte-range edits to source.
//
// Edits are sorted and applied from the end of the file toward the beginning
// so earlier edits do not invalidate offsets for later ones.
func ApplyEdits(source []byte, edits []Edit) ([]byte, error) {
	if len(edits) == 0 {
		return source, nil
	}

	sorted := make([]Edit, len(edits))
	copy(sorted, edits)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Start == sorted[j].Start {
			return sorted[i].End > sorted[j].End
		}
		return sorted[i].Start > sorted[j].Start
	})

	for i, e := range sorted {
		if e.Start < 0 || e.End < e.Start || e.End > len(source) {
			return nil, errors.ConvertError(fmt.Sprintf("invalid edit range [%d:%d]", e.Start, e.End)).Build()
		}
		if i > 0 && e.End > sorted[i-1].Start {
			return nil, errors.ConvertError("overlapping edit ranges").Build()
		}
	}

	out := append([]byte(nil), source...)
	for _, e := range sorted {
		next := make([]byte, 0, len(out)-(e.End-e.Start)+len(e.Replacement))
		next = append(next, out[:e.Start]...)
		next = append(next, e.Replacement...)
		next = append(next, out[e.End:]...)
		out = next
	}
	return out, nil
}
