// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package main

import (
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/gnuflag"
	"github.com/juju/loggo/v2"
	"github.com/juju/lumberjack/v2"
	"github.com/juju/worker/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"

	"github.com/juju/backupd/cmd"
	"github.com/juju/backupd/domain/backup/service"
	"github.com/juju/backupd/internal/apiserver/backups"
	"github.com/juju/backupd/internal/backups/config"
	"github.com/juju/backupd/internal/worker/backupscheduler"
	"github.com/juju/backupd/internal/worker/httpserver"
	"github.com/juju/backupd/internal/worker/signalwatcher"
)

const logFileWriter = "log-file"

type serveCommand struct {
	configCommandBase
	listenAddress string
	schedule      string

	// notifySignals registers ch for the shutdown signals.
	notifySignals func(ch chan<- os.Signal)
}

func newServeCommand() *serveCommand {
	return &serveCommand{
		notifySignals: func(ch chan<- os.Signal) {
			signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
		},
	}
}

func (c *serveCommand) Info() *cmd.Info {
	return &cmd.Info{
		Name:    "serve",
		Purpose: "run the backup daemon",
		Doc: `
Serves the backups HTTP API and the /metrics endpoint, takes backups on the
configured schedule and periodically reconciles the records with the
archives in the backups root. The daemon stops on SIGINT or SIGTERM.

The logging-config of the configuration file replaces the command line
logging configuration.
`,
	}
}

func (c *serveCommand) SetFlags(f *gnuflag.FlagSet) {
	c.configCommandBase.SetFlags(f)
	f.StringVar(&c.listenAddress, "listen-address", "", "override the HTTP API address")
	f.StringVar(&c.schedule, "schedule", "", "override the backup schedule (cron expression)")
}

func (c *serveCommand) Init(args []string) error {
	return cmd.CheckEmpty(args)
}

func (c *serveCommand) Run(ctx *cmd.Context) error {
	cfg, err := c.loadConfig(ctx)
	if err != nil {
		return errors.Trace(err)
	}
	overrides := make(map[string]interface{})
	if c.listenAddress != "" {
		overrides[config.ListenAddressKey] = c.listenAddress
	}
	if c.schedule != "" {
		overrides[config.ScheduleKey] = c.schedule
	}
	if cfg, err = cfg.Apply(overrides); err != nil {
		return errors.Annotate(err, "invalid configuration")
	}
	if err := loggo.ConfigureLoggers(cfg.LoggingConfig()); err != nil {
		return errors.Trace(err)
	}
	if path := cfg.LogFile(); path != "" {
		closeLog, err := addLogFile(ctx.AbsPath(path), cfg.LogFileMaxSize())
		if err != nil {
			return errors.Trace(err)
		}
		defer closeLog()
	}

	metrics := service.NewMetricsCollector()
	registry, err := newPrometheusRegistry(metrics)
	if err != nil {
		return errors.Trace(err)
	}

	b, err := newBackend(ctx, cfg, metrics)
	if err != nil {
		return errors.Trace(err)
	}
	defer func() {
		if err := b.Close(); err != nil {
			logger.Warningf("closing record store: %v", err)
		}
	}()

	schedulerConfig, err := newSchedulerConfig(cfg, b.service)
	if err != nil {
		return errors.Trace(err)
	}
	scheduler, err := backupscheduler.NewWorker(schedulerConfig)
	if err != nil {
		return errors.Trace(err)
	}

	router := mux.NewRouter()
	backups.NewHandler(b.service).Register(router)
	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	workers := []worker.Worker{scheduler}
	listener, err := net.Listen("tcp", cfg.ListenAddress())
	if err != nil {
		stopAll(workers)
		return errors.Annotatef(err, "listening on %q", cfg.ListenAddress())
	}
	server, err := httpserver.NewWorker(httpserver.Config{
		Listener: listener,
		Handler:  router,
		Logger:   loggo.GetLogger("backupd.worker.httpserver"),
	})
	if err != nil {
		_ = listener.Close()
		stopAll(workers)
		return errors.Trace(err)
	}
	workers = append(workers, server)

	signals := make(chan os.Signal, 1)
	c.notifySignals(signals)
	defer signal.Stop(signals)
	watcher, err := signalwatcher.NewWorker(signalwatcher.Config{
		Signals: signals,
		Handler: signalwatcher.Terminate,
		Logger:  logger,
	})
	if err != nil {
		stopAll(workers)
		return errors.Trace(err)
	}
	workers = append(workers, watcher)

	d, err := newDaemon(workers...)
	if err != nil {
		stopAll(workers)
		return errors.Trace(err)
	}
	logger.Infof("serving backups API on %s", server.Addr())
	err = d.Wait()
	if errors.Is(err, signalwatcher.ErrTerminated) {
		return nil
	}
	return errors.Trace(err)
}

// addLogFile makes every log message also go to a rotated file at path.
// The returned func removes the writer and closes the file.
func addLogFile(path string, maxSize int) (func(), error) {
	writer := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSize,
		MaxBackups: 2,
		Compress:   true,
	}
	if err := loggo.RegisterWriter(logFileWriter, loggo.NewSimpleWriter(writer, loggo.DefaultFormatter)); err != nil {
		return nil, errors.Annotatef(err, "logging to %q", path)
	}
	return func() {
		_, _ = loggo.RemoveWriter(logFileWriter)
		_ = writer.Close()
	}, nil
}

func stopAll(workers []worker.Worker) {
	for _, w := range workers {
		if err := worker.Stop(w); err != nil {
			logger.Errorf("stopping worker: %v", err)
		}
	}
}

// newPrometheusRegistry returns a registry with the backup metrics and the
// Go and process collectors registered.
func newPrometheusRegistry(metrics prometheus.Collector) (*prometheus.Registry, error) {
	r := prometheus.NewRegistry()
	if err := r.Register(metrics); err != nil {
		return nil, errors.Annotate(err, "registering backup metrics")
	}
	if err := r.Register(prometheus.NewGoCollector()); err != nil {
		return nil, errors.Trace(err)
	}
	if err := r.Register(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{})); err != nil {
		return nil, errors.Trace(err)
	}
	return r, nil
}

// newSchedulerConfig returns the scheduler settings taken from cfg.
func newSchedulerConfig(cfg *config.Config, backupService backupscheduler.BackupService) (backupscheduler.Config, error) {
	var schedule cron.Schedule
	if cfg.Schedule() != "" {
		var err error
		if schedule, err = config.ParseSchedule(cfg.Schedule()); err != nil {
			return backupscheduler.Config{}, errors.Trace(err)
		}
	}
	return backupscheduler.Config{
		BackupService:     backupService,
		Schedule:          schedule,
		ReconcileInterval: cfg.ReconcileInterval(),
		Clock:             clock.WallClock,
		Logger:            loggo.GetLogger("backupd.worker.backupscheduler"),
	}, nil
}
