package export

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/confexport/internal/confluence"
	"git.home.luguber.info/inful/confexport/internal/retry"
	"git.home.luguber.info/inful/confexport/internal/state"
)

type fakePage struct {
	title    string
	body     string
	version  int
	children []string
	images   []string
	fail     bool
}

// fakeConfluence serves the subset of the content API the exporter uses.
type fakeConfluence struct {
	pages map[string]fakePage
}

func (f *fakeConfluence) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/rest/api/content/", func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/rest/api/content/")
		parts := strings.Split(rest, "/")
		id := parts[0]
		page, ok := f.pages[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if page.fail {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		switch {
		case len(parts) == 1:
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id":      id,
				"title":   page.title,
				"body":    map[string]any{"storage": map[string]any{"value": page.body, "representation": "storage"}},
				"version": map[string]any{"number": page.version},
			})
		case parts[1] == "child" && parts[2] == "page":
			results := make([]map[string]any, 0, len(page.children))
			for _, cid := range page.children {
				results = append(results, map[string]any{"id": cid, "title": f.pages[cid].title})
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"results": results, "start": 0, "limit": 50, "size": len(results),
			})
		case parts[1] == "child" && parts[2] == "attachment":
			results := make([]map[string]any, 0, len(page.images))
			for _, name := range page.images {
				results = append(results, map[string]any{
					"title":    name,
					"metadata": map[string]any{"mediaType": "image/png"},
					"_links":   map[string]any{"download": "/download/" + name},
				})
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"results": results, "start": 0, "limit": 50, "size": len(results),
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	mux.HandleFunc("/download/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "png-bytes-%s", strings.TrimPrefix(r.URL.Path, "/download/"))
	})
	return mux
}

func testPolicy() retry.Policy {
	return retry.NewPolicy(retry.BackoffFixed, time.Millisecond, time.Millisecond, 2)
}

func newTestExporter(t *testing.T, fake *fakeConfluence, opts Options) *Exporter {
	t.Helper()
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)
	client, err := confluence.NewClient(srv.URL, "user", "token", 5*time.Second, testPolicy())
	require.NoError(t, err)
	if opts.OutputDir == "" {
		opts.OutputDir = t.TempDir()
	}
	return New(client, opts)
}

func treeFixture() *fakeConfluence {
	return &fakeConfluence{pages: map[string]fakePage{
		"1": {title: "Handbook", body: "<p>welcome</p>", version: 1, children: []string{"2", "3"}},
		"2": {title: "Operations", body: "<p>ops</p>", version: 1, children: []string{"4"}},
		"3": {title: "FAQ", body: "<p>answers</p>", version: 1},
		"4": {title: "Runbook", body: "<p>steps</p>", version: 2},
	}}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestRunExportsTreeLayout(t *testing.T) {
	out := t.TempDir()
	e := newTestExporter(t, treeFixture(), Options{OutputDir: out})

	res, err := e.Run(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, 4, res.Exported)
	assert.Zero(t, res.Failed)

	// Root becomes index.md, a branch becomes a directory with its own
	// index.md, leaves sit beside their siblings.
	assert.Contains(t, readFile(t, filepath.Join(out, "index.md")), "# Handbook")
	assert.Contains(t, readFile(t, filepath.Join(out, "Operations", "index.md")), "# Operations")
	assert.Contains(t, readFile(t, filepath.Join(out, "Operations", "Runbook.md")), "# Runbook")
	assert.Contains(t, readFile(t, filepath.Join(out, "FAQ.md")), "# FAQ")
}

func TestRunTitleHeadingAndBody(t *testing.T) {
	fake := &fakeConfluence{pages: map[string]fakePage{
		"1": {title: "Guide", body: "<h2>Section</h2><p>text</p>", version: 1},
	}}
	out := t.TempDir()
	e := newTestExporter(t, fake, Options{OutputDir: out})

	_, err := e.Run(context.Background(), "1")
	require.NoError(t, err)

	content := readFile(t, filepath.Join(out, "index.md"))
	assert.True(t, strings.HasPrefix(content, "# Guide\n\n"))
	assert.Contains(t, content, "## Section")
	assert.Contains(t, content, "text")
}

func TestRunToleratesChildFailure(t *testing.T) {
	fake := treeFixture()
	p := fake.pages["3"]
	p.fail = true
	fake.pages["3"] = p

	e := newTestExporter(t, fake, Options{})
	res, err := e.Run(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, 3, res.Exported)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "3", res.Failures[0].PageID)
}

func TestRunRootFailureAborts(t *testing.T) {
	fake := &fakeConfluence{pages: map[string]fakePage{}}
	e := newTestExporter(t, fake, Options{})

	_, err := e.Run(context.Background(), "404")
	require.Error(t, err)
}

func TestRunDownloadsImages(t *testing.T) {
	fake := &fakeConfluence{pages: map[string]fakePage{
		"1": {title: "Pics", body: "<p>images here</p>", version: 1, images: []string{"a.png", "b.png"}},
	}}
	out := t.TempDir()
	e := newTestExporter(t, fake, Options{OutputDir: out, IncludeAttachments: true, Concurrency: 2})

	res, err := e.Run(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Images)
	assert.Equal(t, "png-bytes-a.png", readFile(t, filepath.Join(out, "images", "a.png")))
	assert.Equal(t, "png-bytes-b.png", readFile(t, filepath.Join(out, "images", "b.png")))
}

// Pasted-image blob: refs are only redirected when the alt text names a real
// attachment; anything else keeps its original destination.
func TestRunRewritesMatchedBlobImages(t *testing.T) {
	fake := &fakeConfluence{pages: map[string]fakePage{
		"1": {
			title:   "Pasted",
			version: 1,
			body: `<p><img src="blob:https://wiki.example.com/a" alt="shot.png"/>` +
				`<img src="blob:https://wiki.example.com/b" alt="mystery"/></p>`,
			images: []string{"shot.png"},
		},
	}}
	out := t.TempDir()
	e := newTestExporter(t, fake, Options{OutputDir: out, IncludeAttachments: true, Concurrency: 1})

	_, err := e.Run(context.Background(), "1")
	require.NoError(t, err)

	content := readFile(t, filepath.Join(out, "index.md"))
	assert.Contains(t, content, "![shot.png](images/shot.png)")
	assert.Contains(t, content, "![mystery](blob:https://wiki.example.com/b)")
}

func TestRunRawHTML(t *testing.T) {
	fake := &fakeConfluence{pages: map[string]fakePage{
		"1": {title: "Raw", body: "<p>keep me</p>", version: 1},
	}}
	out := t.TempDir()
	e := newTestExporter(t, fake, Options{OutputDir: out, RawHTML: true})

	_, err := e.Run(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "<p>keep me</p>", readFile(t, filepath.Join(out, "index.html")))
}

func TestRunCleanRemovesPreviousOutput(t *testing.T) {
	out := t.TempDir()
	leftover := filepath.Join(out, "stale.md")
	require.NoError(t, os.WriteFile(leftover, []byte("old"), 0o644))

	fake := &fakeConfluence{pages: map[string]fakePage{
		"1": {title: "Fresh", body: "<p>new</p>", version: 1},
	}}
	e := newTestExporter(t, fake, Options{OutputDir: out, Clean: true})

	_, err := e.Run(context.Background(), "1")
	require.NoError(t, err)
	_, statErr := os.Stat(leftover)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunSkipsUnchangedPages(t *testing.T) {
	store, err := state.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	fake := treeFixture()
	out := t.TempDir()
	e := newTestExporter(t, fake, Options{OutputDir: out, SkipUnchanged: true}).WithStore(store)

	first, err := e.Run(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, 4, first.Exported)

	// Bump one page's version; only it should re-export.
	p := fake.pages["4"]
	p.version = 3
	fake.pages["4"] = p

	second, err := e.Run(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, 1, second.Exported)
	assert.Equal(t, 3, second.Skipped)

	rec, found, err := store.GetPage(context.Background(), "4")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 3, rec.Version)
}

func TestRunReportsStalePages(t *testing.T) {
	store, err := state.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	fake := treeFixture()
	e := newTestExporter(t, fake, Options{}).WithStore(store)
	_, err = e.Run(context.Background(), "1")
	require.NoError(t, err)

	// Remove a leaf from the tree; the next run should flag it.
	p := fake.pages["2"]
	p.children = nil
	fake.pages["2"] = p

	res, err := e.Run(context.Background(), "1")
	require.NoError(t, err)
	require.Len(t, res.Stale, 1)
	assert.Equal(t, "4", res.Stale[0].PageID)
}

func TestRunRecordsEvents(t *testing.T) {
	store, err := state.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	fake := &fakeConfluence{pages: map[string]fakePage{
		"1": {title: "Only", body: "<p>x</p>", version: 1},
	}}
	e := newTestExporter(t, fake, Options{}).WithStore(store)

	res, err := e.Run(context.Background(), "1")
	require.NoError(t, err)

	events, err := store.EventsByJob(context.Background(), res.JobID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, state.EventExported, events[0].EventType)
}

func TestPageLocation(t *testing.T) {
	dir, rel, name := pageLocation("/out", "", "Root", true, true)
	assert.Equal(t, "/out", dir)
	assert.Equal(t, "index.md", name)
	assert.Empty(t, rel)

	dir, rel, name = pageLocation("/out", "", "Branch Page", false, true)
	assert.Equal(t, "/out/Branch Page", dir)
	assert.Equal(t, "Branch Page", rel)
	assert.Equal(t, "index.md", name)

	dir, rel, name = pageLocation("/out/Branch Page", "Branch Page", "Leaf", false, false)
	assert.Equal(t, "/out/Branch Page", dir)
	assert.Equal(t, "Branch Page", rel)
	assert.Equal(t, "Leaf.md", name)
}
