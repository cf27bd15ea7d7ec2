// Package export walks a Confluence page tree and writes it to disk as a
// Markdown hierarchy.
//
// Layout rules: the root page becomes index.md in the output directory, a
// page with children becomes a directory named after its title holding an
// index.md, and a leaf page becomes <title>.md beside its siblings. Image
// attachments land in an images/ directory next to the files that reference
// them.
package export

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/confexport/internal/confluence"
	"git.home.luguber.info/inful/confexport/internal/convert"
	"git.home.luguber.info/inful/confexport/internal/foundation/errors"
	"git.home.luguber.info/inful/confexport/internal/logfields"
	"git.home.luguber.info/inful/confexport/internal/markdown"
	"git.home.luguber.info/inful/confexport/internal/metrics"
	"git.home.luguber.info/inful/confexport/internal/state"
)

// Options tunes one export run.
type Options struct {
	OutputDir          string
	Clean              bool // remove the output directory before exporting
	RawHTML            bool // keep raw storage-format HTML beside each page
	Concurrency        int  // image download workers
	IncludeAttachments bool
	SkipUnchanged      bool // skip pages whose Confluence version is unchanged
}

// Exporter exports a page tree. Collaborators default to no-ops and are
// swapped in through the With methods.
type Exporter struct {
	client   *confluence.Client
	store    *state.Store
	recorder metrics.Recorder
	log      *slog.Logger
	opts     Options
}

// New creates an Exporter with a noop recorder and the default logger.
func New(client *confluence.Client, opts Options) *Exporter {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Exporter{
		client:   client,
		recorder: metrics.NoopRecorder{},
		log:      slog.Default(),
		opts:     opts,
	}
}

// WithStore enables export state tracking.
func (e *Exporter) WithStore(s *state.Store) *Exporter {
	e.store = s
	return e
}

// WithRecorder enables metrics collection.
func (e *Exporter) WithRecorder(r metrics.Recorder) *Exporter {
	if r != nil {
		e.recorder = r
	}
	return e
}

// WithLogger replaces the default logger.
func (e *Exporter) WithLogger(log *slog.Logger) *Exporter {
	if log != nil {
		e.log = log
	}
	return e
}

// Run exports the tree rooted at rootID. Individual page failures are
// tolerated and reported in the Result; only a failure on the root page or
// context cancellation aborts the run.
func (e *Exporter) Run(ctx context.Context, rootID string) (*Result, error) {
	res := newResult(uuid.NewString(), rootID)
	log := e.log.With(logfields.JobID(res.JobID))
	log.Info("starting export", logfields.PageID(rootID), logfields.Path(e.opts.OutputDir))
	e.recorder.SetWorkerConcurrency(e.opts.Concurrency)

	if e.opts.Clean {
		if err := os.RemoveAll(e.opts.OutputDir); err != nil {
			return nil, errors.FileSystemError("failed to clean output directory").
				WithCause(err).WithContext("path", e.opts.OutputDir).Build()
		}
	}
	if err := os.MkdirAll(e.opts.OutputDir, 0o755); err != nil {
		return nil, errors.FileSystemError("failed to create output directory").
			WithCause(err).WithContext("path", e.opts.OutputDir).Build()
	}

	if err := e.exportPage(ctx, log, rootID, e.opts.OutputDir, "", true, res); err != nil {
		return nil, err
	}

	if e.store != nil {
		stale, err := e.store.StalePages(ctx, res.seen)
		if err != nil {
			log.Warn("failed to check for stale pages", logfields.Error(err))
		} else {
			res.Stale = stale
		}
	}

	res.Duration = time.Since(res.Started)
	e.recorder.ObserveExportDuration(res.Duration)
	log.Info("export finished",
		slog.Int("exported", res.Exported),
		slog.Int("skipped", res.Skipped),
		slog.Int("failed", res.Failed),
		slog.Int("images", res.Images),
		logfields.DurationMS(float64(res.Duration.Milliseconds())))
	return res, nil
}

// exportPage exports one page and recurses into its children. dir is the
// directory the page's file belongs in; relDir is the same path relative to
// the output root, used for state records.
func (e *Exporter) exportPage(ctx context.Context, log *slog.Logger, pageID, dir, relDir string, isRoot bool, res *Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	pageStart := time.Now()

	page, err := e.client.GetPage(ctx, pageID)
	if err != nil {
		e.fail(ctx, log, res, pageID, "", err)
		if isRoot {
			return err
		}
		return nil
	}
	res.seen[pageID] = struct{}{}
	plog := log.With(logfields.PageID(pageID), logfields.PageTitle(page.Title))

	children, err := e.client.GetChildren(ctx, pageID)
	if err != nil {
		plog.Warn("failed to list children, treating page as leaf", logfields.Error(err))
		children = nil
	}

	pageDir, relPageDir, fileName := pageLocation(dir, relDir, page.Title, isRoot, len(children) > 0)
	relPath := filepath.Join(relPageDir, fileName)

	if e.skipUnchanged(ctx, page) {
		res.Skipped++
		e.recorder.IncPageResult(metrics.ResultSkipped)
		e.recordEvent(ctx, log, res.JobID, pageID, state.EventSkipped, "version unchanged")
		plog.Debug("skipping unchanged page", logfields.Version(page.Version.Number))
	} else if err := e.writePage(ctx, plog, page, pageDir, fileName, relPath, res); err != nil {
		e.fail(ctx, log, res, pageID, page.Title, err)
		if isRoot {
			return err
		}
	} else {
		res.Exported++
		e.recorder.IncPageResult(metrics.ResultExported)
		e.recorder.ObservePageDuration(time.Since(pageStart))
		e.recordEvent(ctx, log, res.JobID, pageID, state.EventExported, "")
		plog.Info("exported page",
			logfields.Version(page.Version.Number),
			logfields.Path(relPath))
	}

	for _, child := range children {
		if err := e.exportPage(ctx, log, child.ID, pageDir, relPageDir, false, res); err != nil {
			return err
		}
	}
	return nil
}

// pageLocation applies the layout rules and returns the page's directory,
// the same directory relative to the output root, and the file name.
func pageLocation(dir, relDir, title string, isRoot, hasChildren bool) (string, string, string) {
	switch {
	case isRoot:
		return dir, relDir, "index.md"
	case hasChildren:
		name := convert.SanitizeTitle(title)
		return filepath.Join(dir, name), filepath.Join(relDir, name), "index.md"
	default:
		return dir, relDir, convert.SanitizeTitle(title) + ".md"
	}
}

func (e *Exporter) skipUnchanged(ctx context.Context, page *confluence.Page) bool {
	if !e.opts.SkipUnchanged || e.store == nil {
		return false
	}
	prev, found, err := e.store.GetPage(ctx, page.ID)
	return err == nil && found && prev.Version == page.Version.Number
}

// writePage converts, rewrites, and writes one page, then downloads its
// image attachments.
func (e *Exporter) writePage(ctx context.Context, log *slog.Logger, page *confluence.Page, dir, fileName, relPath string, res *Result) error {
	var attachments []confluence.Attachment
	if e.opts.IncludeAttachments {
		atts, err := e.client.GetAttachments(ctx, page.ID)
		if err != nil {
			log.Warn("failed to list attachments", logfields.PageID(page.ID), logfields.Error(err))
		} else {
			attachments = atts
		}
	}

	body, err := renderMarkdown(page, attachmentNames(attachments))
	if err != nil {
		return err
	}
	if err := writeFile(dir, fileName, []byte(body)); err != nil {
		return err
	}
	if e.opts.RawHTML {
		rawName := strings.TrimSuffix(fileName, ".md") + ".html"
		if err := writeFile(dir, rawName, []byte(page.Body.Storage.Value)); err != nil {
			return err
		}
	}

	if e.opts.IncludeAttachments {
		e.downloadImages(ctx, log, page.ID, dir, attachments, res)
		for _, ref := range markdown.LocalImageRefs([]byte(body)) {
			if _, err := os.Stat(filepath.Join(dir, filepath.FromSlash(ref))); err != nil {
				log.Warn("image reference has no downloaded attachment",
					logfields.PageID(page.ID), logfields.Attachment(ref))
			}
		}
	}

	if e.store != nil {
		sum := sha256.Sum256([]byte(body))
		err := e.store.UpsertPage(ctx, state.PageRecord{
			PageID:      page.ID,
			Version:     page.Version.Number,
			Title:       page.Title,
			RelPath:     relPath,
			ContentHash: hex.EncodeToString(sum[:]),
			ExportedAt:  time.Now(),
		})
		if err != nil {
			log.Warn("failed to record page state", logfields.PageID(page.ID), logfields.Error(err))
		}
	}
	return nil
}

// renderMarkdown converts storage-format XHTML to Markdown, prefixes the
// page title as a top-level heading, and redirects blob: image references
// that match one of the page's attachments.
func renderMarkdown(page *confluence.Page, attachments []string) (string, error) {
	body, err := convert.Convert(page.Body.Storage.Value)
	if err != nil {
		return "", err
	}
	out := "# " + page.Title + "\n\n" + strings.TrimLeft(body, "\n")
	rewritten, err := markdown.RewriteBlobImages([]byte(out), attachments)
	if err != nil {
		return "", err
	}
	return string(rewritten), nil
}

func attachmentNames(attachments []confluence.Attachment) []string {
	if len(attachments) == 0 {
		return nil
	}
	names := make([]string, 0, len(attachments))
	for _, att := range attachments {
		names = append(names, att.Filename)
	}
	return names
}

func (e *Exporter) fail(ctx context.Context, log *slog.Logger, res *Result, pageID, title string, err error) {
	res.Failed++
	res.Failures = append(res.Failures, PageFailure{PageID: pageID, Title: title, Err: err})
	e.recorder.IncPageResult(metrics.ResultFailed)
	e.recordEvent(ctx, log, res.JobID, pageID, state.EventFailed, err.Error())
	log.Error("page export failed", logfields.PageID(pageID), logfields.Error(err))
}

func (e *Exporter) recordEvent(ctx context.Context, log *slog.Logger, jobID, pageID, eventType, detail string) {
	if e.store == nil {
		return
	}
	if err := e.store.RecordEvent(ctx, jobID, pageID, eventType, detail); err != nil {
		log.Warn("failed to record export event", logfields.PageID(pageID), logfields.Error(err))
	}
}
