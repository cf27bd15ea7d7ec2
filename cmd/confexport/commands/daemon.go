package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/confexport/internal/config"
	"git.home.luguber.info/inful/confexport/internal/daemon"
	"git.home.luguber.info/inful/confexport/internal/logfields"
	"git.home.luguber.info/inful/confexport/internal/state"
)

// DaemonCmd implements the 'daemon' command: periodic exports until
// interrupted.
type DaemonCmd struct {
	NoWatch bool `help:"Disable configuration file watching"`
}

func (dc *DaemonCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	root.ApplyLogging(cfg)

	store, err := state.Open(cfg.State.Path)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Warn("Failed to close state store", logfields.Error(err))
		}
	}()

	configPath := root.Config
	if dc.NoWatch {
		configPath = ""
	}

	d, err := daemon.New(cfg, configPath, daemon.PipelineCycle(store), slog.Default())
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := d.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
