// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package backupscheduler provides a worker that takes backups on a cron
// schedule and periodically reconciles backup records with the archives
// on disk.
package backupscheduler

import (
	"context"
	"math"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/robfig/cron/v3"
	"gopkg.in/tomb.v2"

	"github.com/juju/backupd/core/backup"
	"github.com/juju/backupd/domain/backup/service"
)

// BackupService is the part of the backup service used by the worker.
type BackupService interface {
	// CreateBackup takes a new backup.
	CreateBackup(ctx context.Context) (backup.Record, error)

	// Reconcile removes the records of backups whose archive is gone.
	Reconcile(ctx context.Context) (service.ReconcileResult, error)
}

// Logger represents the logging methods called.
type Logger interface {
	Errorf(message string, args ...any)
	Warningf(message string, args ...any)
	Infof(message string, args ...any)
	Debugf(message string, args ...any)
}

// Config encapsulates the configuration options for the scheduler.
type Config struct {
	BackupService BackupService

	// Schedule decides when backups are taken. If nil no scheduled
	// backups are taken.
	Schedule cron.Schedule

	// ReconcileInterval is the time between reconciliation passes. Zero
	// disables them.
	ReconcileInterval time.Duration

	Clock  clock.Clock
	Logger Logger
}

// Validate ensures that the config values are valid.
func (c Config) Validate() error {
	if c.BackupService == nil {
		return errors.NotValidf("nil BackupService")
	}
	if c.ReconcileInterval < 0 {
		return errors.NotValidf("negative ReconcileInterval")
	}
	if c.Clock == nil {
		return errors.NotValidf("nil Clock")
	}
	if c.Logger == nil {
		return errors.NotValidf("nil Logger")
	}
	return nil
}

// Scheduler is a worker that runs scheduled backups and reconciliation.
type Scheduler struct {
	tomb tomb.Tomb
	cfg  Config
}

// NewWorker returns a new Scheduler.
func NewWorker(cfg Config) (*Scheduler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Trace(err)
	}

	w := &Scheduler{cfg: cfg}
	w.tomb.Go(w.loop)
	return w, nil
}

// Kill is part of the worker.Worker interface.
func (w *Scheduler) Kill() {
	w.tomb.Kill(nil)
}

// Wait is part of the worker.Worker interface.
func (w *Scheduler) Wait() error {
	return w.tomb.Wait()
}

func (w *Scheduler) loop() error {
	var (
		backupTimer, reconcileTimer clock.Timer
		backupC, reconcileC         <-chan time.Time
	)
	if w.cfg.Schedule != nil {
		wait := w.untilNextBackup()
		backupTimer = w.cfg.Clock.NewTimer(wait)
		defer backupTimer.Stop()
		backupC = backupTimer.Chan()
		w.cfg.Logger.Infof("next scheduled backup in %v", wait)
	}
	if w.cfg.ReconcileInterval > 0 {
		reconcileTimer = w.cfg.Clock.NewTimer(w.cfg.ReconcileInterval)
		defer reconcileTimer.Stop()
		reconcileC = reconcileTimer.Chan()
	}

	for {
		select {
		case <-w.tomb.Dying():
			return tomb.ErrDying

		case <-backupC:
			// A failed backup is logged; the next one is still scheduled.
			w.createBackup()
			backupTimer.Reset(w.untilNextBackup())

		case <-reconcileC:
			w.reconcile()
			reconcileTimer.Reset(w.cfg.ReconcileInterval)
		}
	}
}

// untilNextBackup returns the time until the next scheduled backup.
func (w *Scheduler) untilNextBackup() time.Duration {
	now := w.cfg.Clock.Now()
	next := w.cfg.Schedule.Next(now)
	if next.IsZero() {
		// The schedule can never fire again.
		return time.Duration(math.MaxInt64)
	}
	return next.Sub(now)
}

func (w *Scheduler) createBackup() {
	ctx := w.tomb.Context(context.Background())

	w.cfg.Logger.Infof("taking scheduled backup")
	record, err := w.cfg.BackupService.CreateBackup(ctx)
	if err != nil {
		w.cfg.Logger.Errorf("scheduled backup failed: %v", err)
		return
	}
	w.cfg.Logger.Infof("scheduled backup %q created", record.ID)
}

func (w *Scheduler) reconcile() {
	ctx := w.tomb.Context(context.Background())

	result, err := w.cfg.BackupService.Reconcile(ctx)
	if err != nil {
		w.cfg.Logger.Warningf("reconciling backups: %v", err)
		return
	}
	if len(result.RemovedRecords)+len(result.RemovedArchives) > 0 {
		w.cfg.Logger.Infof("reconciliation removed %d records and %d archives",
			len(result.RemovedRecords), len(result.RemovedArchives))
	}
}
