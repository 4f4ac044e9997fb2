// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package main

import (
	"context"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/gnuflag"
	"github.com/juju/loggo/v2"
	"github.com/juju/retry"
	"gopkg.in/yaml.v3"

	"github.com/juju/backupd/cmd"
	"github.com/juju/backupd/core/backup"
	"github.com/juju/backupd/domain/backup/service"
	sqlstate "github.com/juju/backupd/domain/backup/state"
	"github.com/juju/backupd/internal/backups/archive"
	"github.com/juju/backupd/internal/backups/config"
	"github.com/juju/backupd/internal/backups/dump"
	"github.com/juju/backupd/internal/backups/files"
	"github.com/juju/backupd/state"
)

var logger = loggo.GetLogger("backupd.cmd.backupd")

// backupService is the backup service used by the commands.
type backupService interface {
	CreateBackup(ctx context.Context) (backup.Record, error)
	ListBackups(ctx context.Context) ([]backup.Record, error)
	GetBackup(ctx context.Context, id string) (backup.Record, error)
	DeleteBackup(ctx context.Context, id string) error
	Reconcile(ctx context.Context) (service.ReconcileResult, error)
}

const (
	// recordsDatabase holds the records when they are kept in mongo.
	recordsDatabase = "backupd"

	mongoDialAttempts = 3
	mongoDialDelay    = 5 * time.Second
)

// configCommandBase is embedded by every command that needs the daemon
// configuration and a backup service built from it.
type configCommandBase struct {
	configFile cmd.FileVar

	backupsRoot  string
	mongoURI     string
	databaseName string
	store        string
	sqlitePath   string
}

// SetFlags adds the configuration flags to f.
func (c *configCommandBase) SetFlags(f *gnuflag.FlagSet) {
	f.Var(&c.configFile, "config", "path to a YAML configuration file")
	f.StringVar(&c.backupsRoot, "backups-root", "", "override the backups root directory")
	f.StringVar(&c.mongoURI, "mongo-uri", "", "override the mongo connection string")
	f.StringVar(&c.databaseName, "db", "", "override the database to back up")
	f.StringVar(&c.store, "store", "", "override the record store (sqlite|mongo)")
	f.StringVar(&c.sqlitePath, "sqlite-path", "", "override the SQLite record database")
}

// loadConfig reads the configuration file, if any, and applies the
// command line overrides.
func (c *configCommandBase) loadConfig(ctx *cmd.Context) (*config.Config, error) {
	attrs := make(map[string]interface{})
	if c.configFile.IsSet() {
		data, err := c.configFile.Read(ctx)
		if err != nil {
			return nil, errors.Trace(err)
		}
		if err := yaml.Unmarshal(data, &attrs); err != nil {
			return nil, errors.Annotatef(err, "parsing config %q", c.configFile.Path)
		}
		if attrs == nil {
			attrs = make(map[string]interface{})
		}
	}
	for key, value := range map[string]string{
		config.BackupsRootKey:  c.backupsRoot,
		config.MongoURIKey:     c.mongoURI,
		config.DatabaseNameKey: c.databaseName,
		config.StoreKey:        c.store,
		config.SQLitePathKey:   c.sqlitePath,
	} {
		if value != "" {
			attrs[key] = value
		}
	}
	if path, ok := attrs[config.BackupsRootKey].(string); ok {
		attrs[config.BackupsRootKey] = ctx.AbsPath(path)
	}
	if path, ok := attrs[config.SQLitePathKey].(string); ok && path != ":memory:" {
		attrs[config.SQLitePathKey] = ctx.AbsPath(path)
	}
	cfg, err := config.New(attrs)
	return cfg, errors.Annotate(err, "invalid configuration")
}

// backend holds a backup service and the resources behind it.
type backend struct {
	service *service.Service
	closers []func() error
}

// Close releases the record store.
func (b *backend) Close() error {
	var firstErr error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return errors.Trace(firstErr)
}

// newBackend builds the backup service described by cfg. Metrics may
// be nil.
func newBackend(ctx context.Context, cfg *config.Config, metrics *service.Collector) (_ *backend, err error) {
	b := &backend{}
	defer func() {
		if err != nil {
			_ = b.Close()
		}
	}()

	var st service.State
	switch cfg.Store() {
	case config.StoreMongo:
		store, err := openMongoStore(cfg)
		if err != nil {
			return nil, errors.Annotate(err, "opening mongo record store")
		}
		b.closers = append(b.closers, func() error {
			store.Close()
			return nil
		})
		if err := store.EnsureIndexes(); err != nil {
			return nil, errors.Trace(err)
		}
		st = store
	default:
		db, err := sqlstate.Open(cfg.SQLitePath())
		if err != nil {
			return nil, errors.Annotate(err, "opening sqlite record store")
		}
		b.closers = append(b.closers, db.Close)
		sqlState := sqlstate.NewState(db)
		if err := sqlState.EnsureSchema(ctx); err != nil {
			return nil, errors.Trace(err)
		}
		st = sqlState
	}

	root, err := files.NewRoot(cfg.BackupsRoot())
	if err != nil {
		return nil, errors.Trace(err)
	}
	builder, err := archive.NewBuilder(cfg.CompressionLevel())
	if err != nil {
		return nil, errors.Trace(err)
	}
	dumper, err := dump.NewDumper(dump.Config{
		Binary:    cfg.MongodumpPath(),
		URI:       cfg.MongoURI(),
		ExtraArgs: cfg.MongodumpArgs(),
		Logger:    loggo.GetLogger("backupd.backups.dump"),
	})
	if err != nil {
		return nil, errors.Trace(err)
	}

	serviceConfig := newServiceConfig(cfg, metrics)
	serviceConfig.State = st
	serviceConfig.Files = root
	serviceConfig.Dumper = dumper
	serviceConfig.Archiver = builder
	b.service, err = service.NewService(serviceConfig)
	if err != nil {
		return nil, errors.Trace(err)
	}
	logger.Debugf("backing up %q into %q, records in %s store", cfg.DatabaseName(), root.Dir(), cfg.Store())
	return b, nil
}

// newServiceConfig returns the service settings taken from cfg. The
// caller supplies the record store, file root, dumper and archiver.
func newServiceConfig(cfg *config.Config, metrics *service.Collector) service.Config {
	return service.Config{
		DatabaseName:           cfg.DatabaseName(),
		Clock:                  clock.WallClock,
		Logger:                 loggo.GetLogger("backupd.backup.service"),
		Metrics:                metrics,
		DumpTimeout:            cfg.DumpTimeout(),
		SerializeDumps:         cfg.SerializeDumps(),
		RemoveStagingOnFailure: cfg.RemoveStagingOnFailure(),
		PruneOrphanArchives:    cfg.PruneOrphanArchives(),
		OrphanGracePeriod:      cfg.OrphanGracePeriod(),
		ReconcileAfterCreate:   cfg.ReconcileAfterCreate(),
	}
}

// openMongoStore connects to the mongo record store, retrying a few times
// while the deployment comes up.
func openMongoStore(cfg *config.Config) (*state.BackupStore, error) {
	var (
		store   *state.BackupStore
		lastErr error
	)
	err := retry.Call(retry.CallArgs{
		Func: func() error {
			var err error
			store, err = state.OpenBackupStore(cfg.MongoURI(), recordsDatabase, cfg.MongoDialTimeout())
			return err
		},
		IsFatalError: func(err error) bool {
			return errors.Is(err, errors.NotValid)
		},
		NotifyFunc: func(err error, attempt int) {
			logger.Warningf("connecting to mongo record store (attempt %d): %v", attempt, err)
			lastErr = err
		},
		Attempts: mongoDialAttempts,
		Delay:    mongoDialDelay,
		Clock:    clock.WallClock,
	})
	if retry.IsAttemptsExceeded(err) {
		return nil, errors.Annotate(lastErr, "giving up")
	}
	if err != nil {
		return nil, errors.Trace(err)
	}
	return store, nil
}
