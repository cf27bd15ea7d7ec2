package config

import "time"

// Default values applied after unmarshalling. Kept in one place so the
// example config and the loader cannot drift apart silently.
const (
	DefaultOutputDirectory = "./docs"
	DefaultConcurrency     = 4
	DefaultTimeout         = Duration(30 * time.Second)
	DefaultStatePath       = "./confexport.db"
	DefaultMkdocsFile      = "mkdocs.yml"
	DefaultDaemonInterval  = Duration(30 * time.Minute)
	DefaultNATSSubject     = "confexport.events"
	DefaultNATSStream      = "CONFEXPORT"
	DefaultMetricsListen   = ":9180"
	DefaultLoadBranch      = "main"
	DefaultCommitMessage   = "confexport: update exported documentation"
)

// DefaultNavExcludedDirs are output subdirectories never added to the nav.
var DefaultNavExcludedDirs = []string{"css", "img", "javascript", "overrides", "icons", "images"}

func applyDefaults(cfg *Config) {
	if cfg.Output.Directory == "" {
		cfg.Output.Directory = DefaultOutputDirectory
	}
	if cfg.Export.Concurrency <= 0 {
		cfg.Export.Concurrency = DefaultConcurrency
	}
	if cfg.Confluence.Timeout <= 0 {
		cfg.Confluence.Timeout = DefaultTimeout
	}
	if cfg.State.Path == "" {
		cfg.State.Path = DefaultStatePath
	}
	if cfg.Nav.MkdocsFile == "" {
		cfg.Nav.MkdocsFile = DefaultMkdocsFile
	}
	if len(cfg.Nav.ExcludedDirs) == 0 {
		cfg.Nav.ExcludedDirs = append([]string(nil), DefaultNavExcludedDirs...)
	}
	if cfg.Load != nil {
		if cfg.Load.Branch == "" {
			cfg.Load.Branch = DefaultLoadBranch
		}
		if cfg.Load.CommitMessage == "" {
			cfg.Load.CommitMessage = DefaultCommitMessage
		}
	}
	if cfg.Daemon != nil {
		if cfg.Daemon.Interval <= 0 {
			cfg.Daemon.Interval = DefaultDaemonInterval
		}
		if cfg.Daemon.MetricsListen == "" {
			cfg.Daemon.MetricsListen = DefaultMetricsListen
		}
		if cfg.Daemon.NATS != nil {
			if cfg.Daemon.NATS.Subject == "" {
				cfg.Daemon.NATS.Subject = DefaultNATSSubject
			}
			if cfg.Daemon.NATS.Stream == "" {
				cfg.Daemon.NATS.Stream = DefaultNATSStream
			}
		}
	}
}
