// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package service

import (
	"context"

	"github.com/juju/errors"

	"github.com/juju/backupd/core/backup"
	"github.com/juju/backupd/internal/taskgraph"
)

const (
	taskFindRecord    = "find-record"
	taskRemoveArchive = "remove-archive"
	taskRemoveRecord  = "remove-record"
)

// DeleteBackup removes the archive of the backup and then its record. If
// the archive is already gone the record is still removed. The record is
// never removed before the archive.
// The following errors may be returned:
// - [backuperrors.InvalidID] if the ID cannot name a backup.
// - [backuperrors.NotFound] if there is no such backup; nothing is removed.
func (s *Service) DeleteBackup(ctx context.Context, id string) error {
	if err := backup.ValidateID(id); err != nil {
		return errors.Trace(err)
	}

	findRecord := taskgraph.NewTask(taskFindRecord,
		func(ctx context.Context, r *taskgraph.Results) (backup.Record, error) {
			record, err := s.config.State.GetBackup(ctx, id)
			if err != nil {
				return backup.Record{}, storeError(err)
			}
			return record, nil
		},
	)

	removeArchive := taskgraph.NewTask(taskRemoveArchive,
		func(ctx context.Context, r *taskgraph.Results) (bool, error) {
			record := findRecord.Output(r)
			existed, err := s.config.Files.RemoveArchive(record.ID)
			if err != nil {
				return false, errors.Trace(err)
			}
			if !existed {
				s.config.Logger.Warningf("archive %q of backup %q was already removed", record.ArchiveRef, record.ID)
			}
			return existed, nil
		},
		findRecord,
	)

	removeRecord := taskgraph.NewTask(taskRemoveRecord,
		func(ctx context.Context, r *taskgraph.Results) (struct{}, error) {
			err := s.config.State.DeleteBackup(ctx, findRecord.Output(r).ID)
			if err != nil {
				return struct{}{}, storeError(err)
			}
			return struct{}{}, nil
		},
		findRecord, removeArchive,
	)

	graph, err := taskgraph.NewGraph(removeRecord)
	if err != nil {
		return errors.Trace(err)
	}
	if _, err := graph.Run(ctx, s.runOptions()...); err != nil {
		return err
	}
	s.config.Logger.Infof("deleted backup %q", id)
	if s.config.Metrics != nil {
		s.config.Metrics.BackupDeleted()
	}
	return nil
}
