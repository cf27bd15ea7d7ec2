package commands

import (
	"context"
	"fmt"
	"log/slog"

	"git.home.luguber.info/inful/confexport/internal/config"
	"git.home.luguber.info/inful/confexport/internal/logfields"
	"git.home.luguber.info/inful/confexport/internal/pipeline"
	"git.home.luguber.info/inful/confexport/internal/state"
)

// ExportCmd implements the 'export' command: one full export cycle.
type ExportCmd struct {
	Output string `short:"o" help:"Output directory (overrides config)"`
	Clean  bool   `help:"Remove the output directory before exporting"`
	Page   string `short:"p" help:"Export root page ID (overrides config)"`
}

func (e *ExportCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	root.ApplyLogging(cfg)
	e.applyOverrides(cfg)

	store, err := state.Open(cfg.State.Path)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Warn("Failed to close state store", logfields.Error(err))
		}
	}()

	res, err := pipeline.New(cfg).WithStore(store).Run(context.Background())
	if err != nil {
		return err
	}

	slog.Info("Export completed",
		logfields.JobID(res.JobID),
		slog.Int("exported", res.Exported),
		slog.Int("skipped", res.Skipped),
		slog.Int("failed", res.Failed),
		slog.Int("images", res.Images),
		logfields.DurationMS(float64(res.Duration.Milliseconds())))

	for _, f := range res.Failures {
		slog.Warn("Page failed", logfields.PageID(f.PageID), logfields.PageTitle(f.Title), logfields.Error(f.Err))
	}
	for _, stale := range res.Stale {
		slog.Warn("Stale page no longer reachable from export root",
			logfields.PageID(stale.PageID), logfields.Path(stale.RelPath))
	}
	return nil
}

func (e *ExportCmd) applyOverrides(cfg *config.Config) {
	if e.Output != "" {
		cfg.Output.Directory = e.Output
		cfg.Output.BaseDirectory = ""
	}
	if e.Clean {
		cfg.Output.Clean = true
	}
	if e.Page != "" {
		cfg.Confluence.PageID = e.Page
		cfg.Confluence.PageURL = ""
	}
}
