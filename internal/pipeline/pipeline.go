// Package pipeline runs one full export cycle: resolve the root page,
// export the tree, update the mkdocs nav, and publish to git. The export
// command runs it once; the daemon runs it on a schedule.
package pipeline

import (
	"context"
	"log/slog"
	"os"

	"git.home.luguber.info/inful/confexport/internal/config"
	"git.home.luguber.info/inful/confexport/internal/confluence"
	"git.home.luguber.info/inful/confexport/internal/export"
	"git.home.luguber.info/inful/confexport/internal/foundation/errors"
	"git.home.luguber.info/inful/confexport/internal/load"
	"git.home.luguber.info/inful/confexport/internal/logfields"
	"git.home.luguber.info/inful/confexport/internal/metrics"
	"git.home.luguber.info/inful/confexport/internal/nav"
	"git.home.luguber.info/inful/confexport/internal/state"
)

// Pipeline wires the export stages together from configuration.
type Pipeline struct {
	cfg      *config.Config
	store    *state.Store
	recorder metrics.Recorder
	log      *slog.Logger
}

// New creates a Pipeline with a noop recorder and the default logger.
func New(cfg *config.Config) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		recorder: metrics.NoopRecorder{},
		log:      slog.Default(),
	}
}

// WithStore enables export state tracking.
func (p *Pipeline) WithStore(s *state.Store) *Pipeline {
	p.store = s
	return p
}

// WithRecorder enables metrics collection.
func (p *Pipeline) WithRecorder(r metrics.Recorder) *Pipeline {
	if r != nil {
		p.recorder = r
	}
	return p
}

// WithLogger replaces the default logger.
func (p *Pipeline) WithLogger(log *slog.Logger) *Pipeline {
	if log != nil {
		p.log = log
	}
	return p
}

// Client builds the Confluence client from configuration.
func (p *Pipeline) Client() (*confluence.Client, error) {
	c := p.cfg.Confluence
	client, err := confluence.NewClient(c.BaseURL, c.Username, c.Token, c.Timeout.Std(), p.cfg.Retry.Policy())
	if err != nil {
		return nil, err
	}
	return client.WithRecorder(p.recorder), nil
}

// RootPageID resolves the configured export root to a numeric page ID.
func (p *Pipeline) RootPageID(ctx context.Context, client *confluence.Client) (string, error) {
	c := p.cfg.Confluence
	if c.PageID != "" {
		return c.PageID, nil
	}
	if c.PageURL != "" {
		return client.ResolvePageID(ctx, c.PageURL)
	}
	return "", errors.ConfigError("no export root configured: set page_id or page_url").Build()
}

// Run executes one export cycle.
func (p *Pipeline) Run(ctx context.Context) (*export.Result, error) {
	client, err := p.Client()
	if err != nil {
		return nil, err
	}
	rootID, err := p.RootPageID(ctx, client)
	if err != nil {
		return nil, err
	}

	exporter := export.New(client, export.Options{
		OutputDir:          p.cfg.Output.Dir(),
		Clean:              p.cfg.Output.Clean,
		RawHTML:            p.cfg.Output.RawHTML,
		Concurrency:        p.cfg.Export.Concurrency,
		IncludeAttachments: p.cfg.Export.IncludeAttachments,
		SkipUnchanged:      p.cfg.Export.SkipUnchanged,
	}).WithRecorder(p.recorder).WithLogger(p.log)
	if p.store != nil {
		exporter = exporter.WithStore(p.store)
	}

	result, err := exporter.Run(ctx, rootID)
	if err != nil {
		return nil, err
	}

	if mkdocsFile := p.cfg.Nav.MkdocsFile; mkdocsFile != "" {
		if _, err := os.Stat(mkdocsFile); os.IsNotExist(err) {
			p.log.Debug("no mkdocs file, skipping nav update", logfields.File(mkdocsFile))
		} else {
			if err := nav.Update(mkdocsFile, p.cfg.Output.Dir(), p.cfg.Nav.ExcludedDirs); err != nil {
				return result, err
			}
			p.log.Info("updated mkdocs nav", logfields.File(mkdocsFile))
		}
	}

	if p.cfg.Load != nil {
		loadRes, err := load.New(*p.cfg.Load).WithLogger(p.log).Run(ctx, p.cfg.Output.Dir())
		if err != nil {
			return result, err
		}
		if loadRes.Pushed {
			p.log.Info("published export", logfields.URL(p.cfg.Load.URL))
		}
	}

	return result, nil
}
