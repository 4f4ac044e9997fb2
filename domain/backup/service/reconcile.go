// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package service

import (
	"context"

	"github.com/juju/collections/set"
	"github.com/juju/errors"

	"github.com/juju/backupd/core/backup"
	"github.com/juju/backupd/internal/backups/files"
	"github.com/juju/backupd/internal/taskgraph"
)

const (
	taskListArchives  = "list-archives"
	taskListRecords   = "list-records"
	taskPruneRecords  = "prune-records"
	taskPruneArchives = "prune-archives"
)

// ReconcileResult reports what a reconciliation removed.
type ReconcileResult struct {
	// RemovedRecords holds the IDs of records removed because their
	// archive no longer exists.
	RemovedRecords []string

	// RemovedArchives holds the IDs of orphaned archives that were
	// removed. It is only ever populated when orphan pruning is enabled.
	RemovedArchives []string
}

// Reconcile removes every backup record whose archive is no longer in the
// backups root. Records with an id that cannot name an archive are left
// alone. Archives without a record are kept unless orphan pruning
// is enabled, in which case those older than the grace period are removed
// too. Records are removed one at a time and the first failure stops the
// pass; running it again picks up where it stopped.
func (s *Service) Reconcile(ctx context.Context) (ReconcileResult, error) {
	listArchives := taskgraph.NewTask(taskListArchives,
		func(ctx context.Context, r *taskgraph.Results) ([]files.ArchiveFile, error) {
			archives, err := s.config.Files.ListArchives()
			return archives, errors.Trace(err)
		},
	)

	listRecords := taskgraph.NewTask(taskListRecords,
		func(ctx context.Context, r *taskgraph.Results) ([]backup.Record, error) {
			records, err := s.config.State.ListBackups(ctx)
			if err != nil {
				return nil, storeError(err)
			}
			return records, nil
		},
	)

	pruneRecords := taskgraph.NewTask(taskPruneRecords,
		func(ctx context.Context, r *taskgraph.Results) ([]string, error) {
			return s.pruneRecords(ctx, listArchives.Output(r), listRecords.Output(r))
		},
		listArchives, listRecords,
	)

	target := taskgraph.Node(pruneRecords)
	var pruneArchives *taskgraph.Task[[]string]
	if s.config.PruneOrphanArchives {
		pruneArchives = taskgraph.NewTask(taskPruneArchives,
			func(ctx context.Context, r *taskgraph.Results) ([]string, error) {
				return s.pruneArchives(ctx, listArchives.Output(r), listRecords.Output(r))
			},
			listArchives, listRecords, pruneRecords,
		)
		target = pruneArchives
	}

	graph, err := taskgraph.NewGraph(target)
	if err != nil {
		return ReconcileResult{}, errors.Trace(err)
	}
	results, err := graph.Run(ctx, s.runOptions()...)
	if err != nil {
		return ReconcileResult{}, err
	}

	result := ReconcileResult{
		RemovedRecords: pruneRecords.Output(results),
	}
	if pruneArchives != nil {
		result.RemovedArchives = pruneArchives.Output(results)
	}
	if s.config.Metrics != nil {
		s.config.Metrics.Reconciled(len(result.RemovedRecords), len(result.RemovedArchives))
	}
	return result, nil
}

func (s *Service) pruneRecords(ctx context.Context, archives []files.ArchiveFile, records []backup.Record) ([]string, error) {
	present := set.NewStrings()
	for _, archive := range archives {
		present.Add(archive.ID)
	}

	var removed []string
	for _, record := range records {
		if present.Contains(record.ID) {
			continue
		}
		// No archive file can carry an invalid id, so its absence
		// says nothing about the backup.
		if err := backup.ValidateID(record.ID); err != nil {
			s.config.Logger.Warningf("skipping record %q: %v", record.ID, err)
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s.config.Logger.Infof("removing record of backup %q, archive %q is missing", record.ID, record.ArchiveRef)
		if err := s.config.State.DeleteBackup(ctx, record.ID); err != nil {
			return nil, storeError(err)
		}
		removed = append(removed, record.ID)
	}
	return removed, nil
}

func (s *Service) pruneArchives(ctx context.Context, archives []files.ArchiveFile, records []backup.Record) ([]string, error) {
	recorded := set.NewStrings()
	for _, record := range records {
		recorded.Add(record.ID)
	}

	// An archive younger than the grace period may belong to a backup
	// that has not persisted its record yet.
	cutoff := s.config.Clock.Now().Add(-s.config.OrphanGracePeriod)

	var removed []string
	for _, archive := range archives {
		if recorded.Contains(archive.ID) {
			continue
		}
		if archive.ModTime.After(cutoff) {
			s.config.Logger.Debugf("keeping recent unrecorded archive %q", archive.Name)
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s.config.Logger.Infof("removing unrecorded archive %q", archive.Name)
		existed, err := s.config.Files.RemoveArchive(archive.ID)
		if err != nil {
			return nil, errors.Trace(err)
		}
		if existed {
			removed = append(removed, archive.ID)
		}
	}
	return removed, nil
}
