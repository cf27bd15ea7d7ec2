package daemon

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"git.home.luguber.info/inful/confexport/internal/config"
	"git.home.luguber.info/inful/confexport/internal/export"
	"git.home.luguber.info/inful/confexport/internal/foundation/errors"
	"git.home.luguber.info/inful/confexport/internal/logfields"
	"git.home.luguber.info/inful/confexport/internal/metrics"
	"git.home.luguber.info/inful/confexport/internal/pipeline"
	"git.home.luguber.info/inful/confexport/internal/state"
)

// CycleFunc performs one export cycle. The daemon supplies the current
// configuration and a metrics recorder on each invocation so config
// reloads take effect on the next cycle.
type CycleFunc func(ctx context.Context, cfg *config.Config, rec metrics.Recorder) (*export.Result, error)

// PipelineCycle returns the standard cycle: a full export -> nav -> load
// pipeline run, sharing one state store across cycles.
func PipelineCycle(store *state.Store) CycleFunc {
	return func(ctx context.Context, cfg *config.Config, rec metrics.Recorder) (*export.Result, error) {
		return pipeline.New(cfg).WithStore(store).WithRecorder(rec).Run(ctx)
	}
}

// Daemon runs export cycles on a fixed interval until its context is
// cancelled. It optionally serves Prometheus metrics, publishes cycle
// events to NATS, and reloads its configuration when the config file
// changes on disk.
type Daemon struct {
	mu         sync.RWMutex
	cfg        *config.Config
	configPath string

	cycle     CycleFunc
	recorder  metrics.Recorder
	publisher *Publisher
	scheduler gocron.Scheduler
	jobID     uuid.UUID
	log       *slog.Logger

	// cycleRunning prevents overlapping cycles when a cycle outlasts
	// the interval.
	cycleRunning sync.Mutex
}

// New creates a daemon. configPath may be empty to disable config
// reloading.
func New(cfg *config.Config, configPath string, cycle CycleFunc, log *slog.Logger) (*Daemon, error) {
	if cfg.Daemon == nil {
		return nil, errors.ConfigError("daemon mode requires a daemon configuration section").Build()
	}
	if cfg.Daemon.Interval <= 0 {
		return nil, errors.ConfigError("daemon interval must be positive").
			WithContext("interval", cfg.Daemon.Interval.String()).Build()
	}
	if cycle == nil {
		return nil, errors.ConfigError("daemon cycle function is required").Build()
	}
	if log == nil {
		log = slog.Default()
	}

	return &Daemon{
		cfg:        cfg,
		configPath: configPath,
		cycle:      cycle,
		recorder:   metrics.NoopRecorder{},
		log:        log,
	}, nil
}

// GetConfig returns the current configuration.
func (d *Daemon) GetConfig() *config.Config {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cfg
}

// ReloadConfig swaps in a new configuration. An interval change
// reschedules the periodic job; everything else takes effect on the
// next cycle.
func (d *Daemon) ReloadConfig(ctx context.Context, newCfg *config.Config) error {
	if newCfg.Daemon == nil {
		return errors.ConfigError("reloaded configuration removed the daemon section").Build()
	}
	if newCfg.Daemon.Interval <= 0 {
		return errors.ConfigError("reloaded daemon interval must be positive").Build()
	}

	d.mu.Lock()
	oldInterval := d.cfg.Daemon.Interval
	d.cfg = newCfg
	scheduler := d.scheduler
	jobID := d.jobID
	d.mu.Unlock()

	if scheduler != nil && newCfg.Daemon.Interval != oldInterval {
		if _, err := scheduler.Update(jobID,
			gocron.DurationJob(newCfg.Daemon.Interval.Std()),
			gocron.NewTask(d.runCycle, ctx),
		); err != nil {
			return errors.ConfigError("failed to reschedule export cycle").WithCause(err).Build()
		}
		d.log.Info("Export interval updated",
			slog.String("old", oldInterval.String()),
			slog.String("new", newCfg.Daemon.Interval.String()))
	}

	return nil
}

// Run starts the daemon and blocks until ctx is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	cfg := d.GetConfig()

	var metricsSrv *http.Server
	if cfg.Daemon.MetricsListen != "" {
		reg := prom.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector())
		d.recorder = metrics.NewPrometheusRecorder(reg)
		metricsSrv = d.startMetricsServer(cfg.Daemon.MetricsListen, reg)
	}

	if cfg.Daemon.NATS != nil {
		pub, err := NewPublisher(ctx, cfg.Daemon.NATS, d.log)
		if err != nil {
			return err
		}
		d.publisher = pub
		defer d.publisher.Close()
	}

	var watcher *ConfigWatcher
	if d.configPath != "" {
		w, err := NewConfigWatcher(d.configPath, d, d.log)
		if err != nil {
			return err
		}
		if err := w.Start(ctx); err != nil {
			return err
		}
		watcher = w
		defer watcher.Stop()
	}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return errors.ConfigError("failed to create scheduler").WithCause(err).Build()
	}

	job, err := scheduler.NewJob(
		gocron.DurationJob(cfg.Daemon.Interval.Std()),
		gocron.NewTask(d.runCycle, ctx),
		gocron.WithName("export-cycle"),
	)
	if err != nil {
		return errors.ConfigError("failed to schedule export cycle").WithCause(err).Build()
	}

	d.mu.Lock()
	d.scheduler = scheduler
	d.jobID = job.ID()
	d.mu.Unlock()

	d.log.Info("Daemon started",
		slog.String("interval", cfg.Daemon.Interval.String()),
		slog.String("metrics_listen", cfg.Daemon.MetricsListen))

	scheduler.Start()

	// First cycle runs immediately rather than waiting one interval.
	d.runCycle(ctx)

	<-ctx.Done()

	d.log.Info("Daemon shutting down")
	if err := scheduler.Shutdown(); err != nil {
		d.log.Error("Scheduler shutdown failed", logfields.Error(err))
	}
	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			d.log.Error("Metrics server shutdown failed", logfields.Error(err))
		}
	}

	return ctx.Err()
}

// RunCycle performs one export cycle immediately. Exposed for the
// one-shot trigger path; the scheduler calls the same code.
func (d *Daemon) RunCycle(ctx context.Context) {
	d.runCycle(ctx)
}

func (d *Daemon) runCycle(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if !d.cycleRunning.TryLock() {
		d.log.Warn("Skipping export cycle: previous cycle still running")
		return
	}
	defer d.cycleRunning.Unlock()

	cfg := d.GetConfig()

	d.publisher.Publish(ctx, Started())
	d.log.Info("Export cycle starting")

	res, err := d.cycle(ctx, cfg, d.recorder)
	if err != nil {
		d.log.Error("Export cycle failed", logfields.Error(err))
		d.publisher.Publish(ctx, FailedEvent(res, err))
		return
	}

	d.log.Info("Export cycle completed",
		logfields.JobID(res.JobID),
		slog.Int("exported", res.Exported),
		slog.Int("skipped", res.Skipped),
		slog.Int("failed", res.Failed),
		logfields.DurationMS(float64(res.Duration.Milliseconds())))
	d.publisher.Publish(ctx, Completed(res))
}

func (d *Daemon) startMetricsServer(listen string, reg *prom.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.HTTPHandler(reg))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{Addr: listen, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			d.log.Error("Metrics server failed", logfields.Error(err))
		}
	}()
	return srv
}
