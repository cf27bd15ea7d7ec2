package commands

import (
	"fmt"
	"log/slog"

	"git.home.luguber.info/inful/confexport/internal/config"
	"git.home.luguber.info/inful/confexport/internal/logfields"
	"git.home.luguber.info/inful/confexport/internal/nav"
)

// NavCmd implements the 'nav' command: rebuild the mkdocs nav section
// from the exported tree on disk.
type NavCmd struct {
	MkdocsFile string `help:"Path to mkdocs.yml (overrides config)"`
	DocsDir    string `help:"Exported docs directory (overrides config)"`
}

func (n *NavCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	mkdocsFile := cfg.Nav.MkdocsFile
	if n.MkdocsFile != "" {
		mkdocsFile = n.MkdocsFile
	}
	docsDir := ResolveOutputDir(n.DocsDir, cfg)

	if err := nav.Update(mkdocsFile, docsDir, cfg.Nav.ExcludedDirs); err != nil {
		return err
	}
	slog.Info("Navigation updated", logfields.File(mkdocsFile), logfields.Path(docsDir))
	return nil
}
