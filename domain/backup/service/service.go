// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package service orchestrates the creation, reconciliation and deletion
// of database backups. Each operation is run as a graph of tasks; a task
// starts only once the tasks it depends on have succeeded and the first
// failure stops the operation.
package service

import (
	"context"
	"time"

	"github.com/im7mortal/kmutex"
	"github.com/juju/clock"
	"github.com/juju/errors"

	"github.com/juju/backupd/core/backup"
	backuperrors "github.com/juju/backupd/domain/backup/errors"
	"github.com/juju/backupd/internal/backups/files"
	"github.com/juju/backupd/internal/taskgraph"
)

// State describes retrieval and persistence methods for backup records.
type State interface {
	// CreateBackup stores a new backup record.
	CreateBackup(ctx context.Context, record backup.Record) error

	// ListBackups returns every backup record, newest first.
	ListBackups(ctx context.Context) ([]backup.Record, error)

	// GetBackup returns the backup record with the given ID. An error
	// satisfying [backuperrors.NotFound] is returned if it does not exist.
	GetBackup(ctx context.Context, id string) (backup.Record, error)

	// DeleteBackup removes the backup record with the given ID. Removing a
	// record that does not exist is not an error.
	DeleteBackup(ctx context.Context, id string) error
}

// Files describes the backups root directory.
type Files interface {
	// Stage creates the staging directory for a backup and returns its
	// path.
	Stage(id string) (string, error)

	// Purge removes a staging directory and everything in it.
	Purge(dir string) error

	// ArchivePath returns the path of the archive for a backup.
	ArchivePath(id string) string

	// ListArchives returns the archives present in the backups root.
	ListArchives() ([]files.ArchiveFile, error)

	// RemoveArchive removes the archive for a backup, reporting whether it
	// existed.
	RemoveArchive(id string) (bool, error)
}

// Dumper exports a database into a directory.
type Dumper interface {
	Dump(ctx context.Context, databaseName, destDir string) error
}

// Archiver compresses a directory into a single archive file.
type Archiver interface {
	Compress(ctx context.Context, sourceDir, destFile string) (backup.ArchiveInfo, error)
}

// Logger represents the methods used by the service for logging.
type Logger interface {
	Debugf(string, ...interface{})
	Infof(string, ...interface{})
	Warningf(string, ...interface{})
	Errorf(string, ...interface{})
}

// Config holds the collaborators and settings of the backup service.
type Config struct {
	State    State
	Files    Files
	Dumper   Dumper
	Archiver Archiver

	// DatabaseName is the database that is dumped by every backup.
	DatabaseName string

	Clock  clock.Clock
	Logger Logger

	// NewID generates backup IDs, backup.NewID if nil.
	NewID func() string

	// Metrics, if set, is updated by every operation.
	Metrics *Collector

	// DumpTimeout bounds a single database dump. Zero means no limit.
	DumpTimeout time.Duration

	// SerializeDumps allows only one dump of the same database at a time
	// within this process.
	SerializeDumps bool

	// RemoveStagingOnFailure removes the staging directory when the dump
	// or the compression fails. Otherwise it is left for inspection.
	RemoveStagingOnFailure bool

	// PruneOrphanArchives makes reconciliation also remove archives that
	// have no record and are older than OrphanGracePeriod.
	PruneOrphanArchives bool
	OrphanGracePeriod   time.Duration

	// ReconcileAfterCreate runs a reconciliation after every successful
	// backup.
	ReconcileAfterCreate bool
}

// Validate returns an error if the config cannot be used to create a
// Service.
func (config Config) Validate() error {
	if config.State == nil {
		return errors.NotValidf("nil State")
	}
	if config.Files == nil {
		return errors.NotValidf("nil Files")
	}
	if config.Dumper == nil {
		return errors.NotValidf("nil Dumper")
	}
	if config.Archiver == nil {
		return errors.NotValidf("nil Archiver")
	}
	if config.DatabaseName == "" {
		return errors.NotValidf("empty DatabaseName")
	}
	if config.Clock == nil {
		return errors.NotValidf("nil Clock")
	}
	if config.Logger == nil {
		return errors.NotValidf("nil Logger")
	}
	if config.DumpTimeout < 0 {
		return errors.NotValidf("negative DumpTimeout")
	}
	if config.OrphanGracePeriod < 0 {
		return errors.NotValidf("negative OrphanGracePeriod")
	}
	return nil
}

// Service provides the API for working with backups.
type Service struct {
	config    Config
	newID     func() string
	dumpLocks *kmutex.Kmutex
}

// NewService returns a new Service for the given config.
func NewService(config Config) (*Service, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	newID := config.NewID
	if newID == nil {
		newID = backup.NewID
	}
	return &Service{
		config:    config,
		newID:     newID,
		dumpLocks: kmutex.New(),
	}, nil
}

// GetBackup returns the backup record with the given ID.
// The following errors may be returned:
// - [backuperrors.InvalidID] if the ID cannot name a backup.
// - [backuperrors.NotFound] if there is no such backup.
func (s *Service) GetBackup(ctx context.Context, id string) (backup.Record, error) {
	if err := backup.ValidateID(id); err != nil {
		return backup.Record{}, errors.Trace(err)
	}
	record, err := s.config.State.GetBackup(ctx, id)
	if err != nil {
		return backup.Record{}, storeError(err)
	}
	return record, nil
}

// ListBackups returns every backup record, newest first.
func (s *Service) ListBackups(ctx context.Context) ([]backup.Record, error) {
	records, err := s.config.State.ListBackups(ctx)
	if err != nil {
		return nil, storeError(err)
	}
	return records, nil
}

func (s *Service) runOptions() []taskgraph.Option {
	opts := []taskgraph.Option{
		taskgraph.WithObserver(logObserver{logger: s.config.Logger}),
	}
	if s.config.Metrics != nil {
		opts = append(opts, taskgraph.WithObserver(s.config.Metrics))
	}
	return opts
}

// storeError tags a record store error, leaving NotFound alone so callers
// can tell an unknown backup from a broken store.
func storeError(err error) error {
	if errors.Is(err, backuperrors.NotFound) {
		return err
	}
	return withType(err, backuperrors.StoreFailed)
}

// withType tags err with kind unless it already carries it. The message is
// left untouched.
func withType(err error, kind errors.ConstError) error {
	if err == nil || errors.Is(err, kind) {
		return err
	}
	return errors.WithType(err, kind)
}

type logObserver struct {
	logger Logger
}

// TaskStarted is part of the taskgraph.Observer interface.
func (o logObserver) TaskStarted(name string) {
	o.logger.Debugf("task %q started", name)
}

// TaskFinished is part of the taskgraph.Observer interface.
func (o logObserver) TaskFinished(name string, elapsed time.Duration, err error) {
	if err != nil {
		o.logger.Debugf("task %q failed after %v: %v", name, elapsed, err)
		return
	}
	o.logger.Debugf("task %q finished in %v", name, elapsed)
}
