package commands

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/confexport/internal/config"
)

// Global context passed to subcommands if we need to share global state later.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"confexport.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Format  string           `help:"Log output format (text|json)"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Export   ExportCmd   `cmd:"" help:"Export a Confluence page tree to Markdown"`
	Init     InitCmd     `cmd:"" help:"Initialize a new configuration file"`
	Discover DiscoverCmd `cmd:"" help:"List the page tree that would be exported, without writing files"`
	Nav      NavCmd      `cmd:"" help:"Rebuild the mkdocs navigation from an exported tree"`
	Daemon   DaemonCmd   `cmd:"" help:"Run continuous export mode"`
}

// AfterApply runs after flag parsing; setup logging once.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if config.NormalizeLogFormat(c.Format) == config.LogFormatJSON {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
	return nil
}

// ApplyLogging reconfigures the default logger from the loaded config.
// The --verbose and --format flags win over the config file.
func (c *CLI) ApplyLogging(cfg *config.Config) {
	level := slog.LevelInfo
	switch config.NormalizeLogLevel(cfg.Logging.Level) {
	case config.LogLevelDebug:
		level = slog.LevelDebug
	case config.LogLevelWarn:
		level = slog.LevelWarn
	case config.LogLevelError:
		level = slog.LevelError
	}
	if c.Verbose {
		level = slog.LevelDebug
	}

	format := config.NormalizeLogFormat(cfg.Logging.Format)
	if c.Format != "" {
		format = config.NormalizeLogFormat(c.Format)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if format == config.LogFormatJSON {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// ResolveOutputDir determines the final output directory.
// Priority: CLI flag > config base_directory + directory > config directory.
func ResolveOutputDir(cliOutput string, cfg *config.Config) string {
	if cliOutput != "" {
		return cliOutput
	}
	return cfg.Output.Dir()
}
