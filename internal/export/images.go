package export

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"git.home.luguber.info/inful/confexport/internal/confluence"
	"git.home.luguber.info/inful/confexport/internal/convert"
	"git.home.luguber.info/inful/confexport/internal/foundation/errors"
	"git.home.luguber.info/inful/confexport/internal/logfields"
)

// downloadImages fetches the given attachments into dir/images using a
// bounded worker pool. Individual download failures are logged and counted
// but never fail the page.
func (e *Exporter) downloadImages(ctx context.Context, log *slog.Logger, pageID, dir string, attachments []confluence.Attachment, res *Result) {
	if len(attachments) == 0 {
		return
	}

	imgDir := filepath.Join(dir, "images")
	if err := os.MkdirAll(imgDir, 0o755); err != nil {
		log.Warn("failed to create images directory", logfields.Path(imgDir), logfields.Error(err))
		return
	}

	sem := make(chan struct{}, e.opts.Concurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex
	for _, att := range attachments {
		wg.Add(1)
		go func(att confluence.Attachment) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			err := e.downloadOne(ctx, imgDir, att)
			e.recorder.IncImageDownload(err == nil)
			if err != nil {
				log.Warn("attachment download failed",
					logfields.PageID(pageID),
					logfields.Attachment(att.Filename),
					logfields.Error(err))
				return
			}
			mu.Lock()
			res.Images++
			mu.Unlock()
		}(att)
	}
	wg.Wait()
}

func (e *Exporter) downloadOne(ctx context.Context, imgDir string, att confluence.Attachment) error {
	body, err := e.client.DownloadAttachment(ctx, att.URL)
	if err != nil {
		return err
	}
	defer func() { _ = body.Close() }()

	target := filepath.Join(imgDir, convert.SanitizeTitle(att.Filename))
	f, err := os.Create(target)
	if err != nil {
		return errors.FileSystemError("failed to create attachment file").
			WithCause(err).WithContext("path", target).Build()
	}
	if _, err := io.Copy(f, body); err != nil {
		_ = f.Close()
		return errors.FileSystemError("failed to write attachment file").
			WithCause(err).WithContext("path", target).Build()
	}
	return f.Close()
}
