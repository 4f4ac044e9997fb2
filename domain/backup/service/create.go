// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package service

import (
	"context"

	"github.com/dustin/go-humanize"
	"github.com/juju/errors"

	"github.com/juju/backupd/core/backup"
	backuperrors "github.com/juju/backupd/domain/backup/errors"
	"github.com/juju/backupd/internal/taskgraph"
)

const (
	taskGenerateID    = "generate-id"
	taskStage         = "stage"
	taskDump          = "dump"
	taskCompress      = "compress"
	taskPurgeStaging  = "purge-staging"
	taskPersistRecord = "persist-record"
)

// createGraph holds the tasks of a single backup creation.
type createGraph struct {
	generateID *taskgraph.Task[string]
	stage      *taskgraph.Task[string]
	dump       *taskgraph.Task[struct{}]
	compress   *taskgraph.Task[backup.ArchiveInfo]
	purge      *taskgraph.Task[struct{}]
	persist    *taskgraph.Task[backup.Record]
}

func (s *Service) newCreateGraph() createGraph {
	var g createGraph

	g.generateID = taskgraph.NewTask(taskGenerateID,
		func(ctx context.Context, r *taskgraph.Results) (string, error) {
			id := s.newID()
			if err := backup.ValidateID(id); err != nil {
				return "", errors.Trace(err)
			}
			return id, nil
		},
	)

	g.stage = taskgraph.NewTask(taskStage,
		func(ctx context.Context, r *taskgraph.Results) (string, error) {
			dir, err := s.config.Files.Stage(g.generateID.Output(r))
			if err != nil {
				return "", withType(err, backuperrors.StagingFailed)
			}
			return dir, nil
		},
		g.generateID,
	)

	g.dump = taskgraph.NewTask(taskDump,
		func(ctx context.Context, r *taskgraph.Results) (struct{}, error) {
			err := s.dump(ctx, g.stage.Output(r))
			return struct{}{}, withType(err, backuperrors.DumpFailed)
		},
		g.stage,
	)

	g.compress = taskgraph.NewTask(taskCompress,
		func(ctx context.Context, r *taskgraph.Results) (backup.ArchiveInfo, error) {
			id := g.generateID.Output(r)
			info, err := s.config.Archiver.Compress(ctx, g.stage.Output(r), s.config.Files.ArchivePath(id))
			if err != nil {
				return backup.ArchiveInfo{}, withType(err, backuperrors.CompressionFailed)
			}
			s.config.Logger.Infof("backup %q archived (%s)", id, humanize.Bytes(uint64(info.Size)))
			return info, nil
		},
		g.generateID, g.stage, g.dump,
	)

	g.purge = taskgraph.NewTask(taskPurgeStaging,
		func(ctx context.Context, r *taskgraph.Results) (struct{}, error) {
			err := s.config.Files.Purge(g.stage.Output(r))
			return struct{}{}, withType(err, backuperrors.StagingFailed)
		},
		g.stage, g.compress,
	)

	g.persist = taskgraph.NewTask(taskPersistRecord,
		func(ctx context.Context, r *taskgraph.Results) (backup.Record, error) {
			id := g.generateID.Output(r)
			info := g.compress.Output(r)
			record := backup.Record{
				ID:         id,
				ArchiveRef: backup.ArchiveName(id),
				CreatedAt:  s.config.Clock.Now().UTC(),
				Restored:   false,
				Size:       info.Size,
				Checksum:   info.Checksum,
			}
			if err := s.config.State.CreateBackup(ctx, record); err != nil {
				return backup.Record{}, withType(err, backuperrors.StoreFailed)
			}
			return record, nil
		},
		g.generateID, g.compress, g.purge,
	)

	return g
}

// CreateBackup takes a new backup: it dumps the database into a fresh
// staging directory, compresses the directory into an archive, removes the
// staging directory and finally records the backup. The first failing
// step stops the backup and its error is returned; steps that already
// completed are not undone.
func (s *Service) CreateBackup(ctx context.Context) (backup.Record, error) {
	g := s.newCreateGraph()
	graph, err := taskgraph.NewGraph(g.persist)
	if err != nil {
		return backup.Record{}, errors.Trace(err)
	}

	results, err := graph.Run(ctx, s.runOptions()...)
	if err != nil {
		s.createFailed(g, results, err)
		return backup.Record{}, err
	}

	record := g.persist.Output(results)
	s.config.Logger.Infof("created backup %q", record.ID)
	if s.config.Metrics != nil {
		s.config.Metrics.BackupCreated(record.Size)
	}

	if s.config.ReconcileAfterCreate {
		if _, err := s.Reconcile(ctx); err != nil {
			// The backup exists; the next pass will catch up.
			s.config.Logger.Warningf("reconciling after backup %q: %v", record.ID, err)
		}
	}
	return record, nil
}

// dump exports the database into dir, holding the database's dump lock if
// dumps are serialized.
func (s *Service) dump(ctx context.Context, dir string) error {
	name := s.config.DatabaseName
	if s.config.SerializeDumps {
		s.dumpLocks.Lock(name)
		defer s.dumpLocks.Unlock(name)
	}
	if s.config.DumpTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.DumpTimeout)
		defer cancel()
	}
	return s.config.Dumper.Dump(ctx, name, dir)
}

// createFailed applies the staging policy after a failed creation.
func (s *Service) createFailed(g createGraph, results *taskgraph.Results, err error) {
	if s.config.Metrics != nil {
		s.config.Metrics.BackupFailed()
	}
	if results == nil || !results.Has(g.stage) || results.Has(g.purge) {
		s.config.Logger.Errorf("backup failed: %v", err)
		return
	}

	dir := g.stage.Output(results)
	if !s.config.RemoveStagingOnFailure {
		s.config.Logger.Errorf("backup failed, staging directory %q left in place: %v", dir, err)
		return
	}
	s.config.Logger.Errorf("backup failed: %v", err)
	if purgeErr := s.config.Files.Purge(dir); purgeErr != nil {
		s.config.Logger.Warningf("removing staging directory %q: %v", dir, purgeErr)
	}
}
