package confluence

import (
	"context"
	"net/url"
	"regexp"

	"git.home.luguber.info/inful/confexport/internal/foundation/errors"
)

var (
	numericPagePattern = regexp.MustCompile(`/pages/(\d+)`)
	spaceTitlePattern  = regexp.MustCompile(`/display/([^/]+)/([^/]+)$`)
)

// ResolvePageID extracts the numeric page ID from a Confluence URL.
// Supported forms are "/pages/<id>" and "/display/<SPACE>/<TITLE>"; the
// latter requires an API lookup by space key and title.
func (c *Client) ResolvePageID(ctx context.Context, pageURL string) (string, error) {
	if m := numericPagePattern.FindStringSubmatch(pageURL); m != nil {
		return m[1], nil
	}
	if m := spaceTitlePattern.FindStringSubmatch(pageURL); m != nil {
		spaceKey := m[1]
		title, err := url.PathUnescape(m[2])
		if err != nil {
			title = m[2]
		}
		return c.PageIDByTitle(ctx, spaceKey, title)
	}
	return "", errors.ValidationError("unrecognized Confluence URL format").
		WithContext("page_url", pageURL).Build()
}
