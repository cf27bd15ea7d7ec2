// Package confluence implements a read-only client for the Confluence
// REST content API: page bodies in storage format, child page listings,
// and attachment downloads. Listings follow the API's limit/start/size
// pagination contract regardless of the server's page size.
package confluence

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"git.home.luguber.info/inful/confexport/internal/foundation/errors"
	"git.home.luguber.info/inful/confexport/internal/logfields"
	"git.home.luguber.info/inful/confexport/internal/metrics"
	"git.home.luguber.info/inful/confexport/internal/retry"
)

const (
	defaultPageLimit = 50
	userAgent        = "confexport/1.0"
)

// Client talks to the Confluence REST content API with basic auth.
type Client struct {
	httpClient *http.Client
	domain     string // scheme://host[/context]
	apiURL     string // domain + /rest/api/content
	username   string
	token      string
	policy     retry.Policy
	recorder   metrics.Recorder
}

// NewClient creates a Confluence client for the given base URL and credentials.
func NewClient(baseURL, username, token string, timeout time.Duration, policy retry.Policy) (*Client, error) {
	trimmed := strings.TrimSuffix(baseURL, "/")
	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, errors.ConfigError("invalid Confluence base URL").
			WithContext("base_url", baseURL).Build()
	}
	domain := fmt.Sprintf("%s://%s%s", parsed.Scheme, parsed.Host, parsed.Path)
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		domain:     domain,
		apiURL:     domain + "/rest/api/content",
		username:   username,
		token:      token,
		policy:     policy,
		recorder:   metrics.NoopRecorder{},
	}, nil
}

// WithRecorder enables API request and retry metrics.
func (c *Client) WithRecorder(r metrics.Recorder) *Client {
	if r != nil {
		c.recorder = r
	}
	return c
}

// Domain returns the normalized scheme://host[/context] of the instance.
func (c *Client) Domain() string { return c.domain }

// GetPage retrieves a page by ID with storage body and version expanded.
func (c *Client) GetPage(ctx context.Context, pageID string) (*Page, error) {
	endpoint := fmt.Sprintf("%s/%s?expand=body.storage,version", c.apiURL, pageID)
	var page Page
	if err := c.getJSON(ctx, "page", endpoint, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetChildren retrieves all immediate child pages, following pagination.
func (c *Client) GetChildren(ctx context.Context, pageID string) ([]ChildPage, error) {
	var children []ChildPage
	start := 0
	for {
		endpoint := fmt.Sprintf("%s/%s/child/page?limit=%d&start=%d", c.apiURL, pageID, defaultPageLimit, start)
		var list contentList
		if err := c.getJSON(ctx, "children", endpoint, &list); err != nil {
			return nil, err
		}
		for _, r := range list.Results {
			children = append(children, ChildPage{ID: r.ID, Title: r.Title})
		}
		if list.Size < list.Limit || list.Size == 0 {
			return children, nil
		}
		start += list.Size
	}
}

// GetAttachments retrieves all image attachments of a page, following
// pagination and resolving download links against the instance domain.
func (c *Client) GetAttachments(ctx context.Context, pageID string) ([]Attachment, error) {
	var attachments []Attachment
	start := 0
	for {
		endpoint := fmt.Sprintf("%s/%s/child/attachment?limit=%d&start=%d", c.apiURL, pageID, defaultPageLimit, start)
		var list contentList
		if err := c.getJSON(ctx, "attachments", endpoint, &list); err != nil {
			return nil, err
		}
		for _, r := range list.Results {
			mediaType := r.Metadata.MediaType
			if mediaType == "" {
				mediaType = r.Extensions.MediaType
			}
			att := Attachment{
				Filename:  r.Title,
				MediaType: mediaType,
				URL:       c.absoluteURL(r.Links.Download),
				FileSize:  r.Extensions.FileSize,
			}
			if att.IsImage() {
				attachments = append(attachments, att)
			}
		}
		if list.Size < list.Limit || list.Size == 0 {
			return attachments, nil
		}
		start += list.Size
	}
}

// PageIDByTitle looks up a page's numeric ID by space key and title.
func (c *Client) PageIDByTitle(ctx context.Context, spaceKey, title string) (string, error) {
	endpoint := fmt.Sprintf("%s?spaceKey=%s&title=%s&limit=1",
		c.apiURL, url.QueryEscape(spaceKey), url.QueryEscape(title))
	var list contentList
	if err := c.getJSON(ctx, "search", endpoint, &list); err != nil {
		return "", err
	}
	if len(list.Results) == 0 {
		return "", errors.NotFoundError("no page found for space and title").
			WithContext("space", spaceKey).
			WithContext("title", title).Build()
	}
	return list.Results[0].ID, nil
}

// DownloadAttachment streams an attachment body. The caller owns the reader.
func (c *Client) DownloadAttachment(ctx context.Context, downloadURL string) (io.ReadCloser, error) {
	var body io.ReadCloser
	attempt := 0
	err := c.policy.DoWithHint(ctx, func() error {
		attempt++
		if attempt > 1 {
			c.recorder.IncRetry("download")
		}
		c.recorder.IncAPIRequest("download")
		req, err := c.newRequest(ctx, downloadURL)
		if err != nil {
			return err
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return errors.NetworkError("attachment download failed").
				WithCause(err).WithContext("url", downloadURL).Build()
		}
		if resp.StatusCode >= 400 {
			_ = resp.Body.Close()
			return c.statusError(resp.StatusCode, resp.Header, downloadURL)
		}
		body = resp.Body
		return nil
	}, isRetryable, RetryAfter)
	if err != nil {
		return nil, err
	}
	return body, nil
}

// getJSON performs a GET with retry and decodes the JSON response into out.
// op is a low-cardinality operation label for metrics.
func (c *Client) getJSON(ctx context.Context, op, endpoint string, out any) error {
	attempt := 0
	return c.policy.DoWithHint(ctx, func() error {
		attempt++
		if attempt > 1 {
			c.recorder.IncRetry(op)
		}
		c.recorder.IncAPIRequest(op)
		req, err := c.newRequest(ctx, endpoint)
		if err != nil {
			return err
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return errors.NetworkError("Confluence request failed").
				WithCause(err).WithContext("url", endpoint).Build()
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode >= 400 {
			return c.statusError(resp.StatusCode, resp.Header, endpoint)
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return errors.ConfluenceError("failed to decode Confluence response").
				WithCause(err).WithRetry(errors.RetryNever).
				WithContext("url", endpoint).Build()
		}
		return nil
	}, isRetryable, RetryAfter)
}

func (c *Client) newRequest(ctx context.Context, rawURL string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, errors.ConfluenceError("failed to create request").
			WithCause(err).WithRetry(errors.RetryNever).
			WithContext("url", rawURL).Build()
	}
	req.SetBasicAuth(c.username, c.token)
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// statusError classifies an HTTP error status into retryable/permanent errors.
func (c *Client) statusError(status int, header http.Header, endpoint string) error {
	b := errors.ConfluenceError(fmt.Sprintf("Confluence returned status %d", status)).
		WithContext("status", status).
		WithContext("url", endpoint)
	switch {
	case status == http.StatusTooManyRequests:
		b = b.RateLimit()
		if ra := header.Get("Retry-After"); ra != "" {
			b = b.WithContext("retry_after", ra)
		}
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		b = errors.AuthError(fmt.Sprintf("Confluence denied the request (status %d)", status)).
			WithContext("url", endpoint)
	case status == http.StatusNotFound:
		b = errors.NotFoundError("Confluence content not found").
			WithContext("url", endpoint)
	case status >= 500:
		b = b.Retryable()
	default:
		b = b.WithRetry(errors.RetryNever)
	}
	slog.Debug("Confluence API error", logfields.URL(endpoint), logfields.Status(status))
	return b.Build()
}

// isRetryable consults the classified retry strategy; unclassified errors are
// treated as permanent.
func isRetryable(err error) bool {
	switch errors.GetRetryStrategy(err) {
	case errors.RetryImmediate, errors.RetryBackoff, errors.RetryRateLimit:
		return true
	default:
		return false
	}
}

// RetryAfter extracts a Retry-After hint from a classified rate limit error.
func RetryAfter(err error) (time.Duration, bool) {
	classified, ok := errors.AsClassified(err)
	if !ok || classified.RetryStrategy() != errors.RetryRateLimit {
		return 0, false
	}
	raw, ok := classified.Context()["retry_after"].(string)
	if !ok {
		return 0, false
	}
	secs, err2 := strconv.Atoi(raw)
	if err2 != nil || secs < 0 {
		return 0, false
	}
	return time.Duration(secs) * time.Second, true
}

func (c *Client) absoluteURL(rel string) string {
	if rel == "" || strings.HasPrefix(rel, "http://") || strings.HasPrefix(rel, "https://") {
		return rel
	}
	if strings.HasPrefix(rel, "/") {
		return c.domain + rel
	}
	return c.domain + "/" + rel
}
