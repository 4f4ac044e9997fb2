// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package state

import (
	"time"

	"github.com/juju/backupd/core/backup"
)

// dbBackup represents a row of the backup table.
type dbBackup struct {
	ID         string    `db:"id"`
	ArchiveRef string    `db:"archive_ref"`
	CreatedAt  time.Time `db:"created_at"`
	Restored   bool      `db:"restored"`
	Size       int64     `db:"size"`
	Checksum   string    `db:"checksum"`
}

// backupID is used to select a single backup by ID.
type backupID struct {
	ID string `db:"id"`
}

func fromRecord(r backup.Record) dbBackup {
	return dbBackup{
		ID:         r.ID,
		ArchiveRef: r.ArchiveRef,
		CreatedAt:  r.CreatedAt.UTC(),
		Restored:   r.Restored,
		Size:       r.Size,
		Checksum:   r.Checksum,
	}
}

func (b dbBackup) toRecord() backup.Record {
	return backup.Record{
		ID:         b.ID,
		ArchiveRef: b.ArchiveRef,
		CreatedAt:  b.CreatedAt.UTC(),
		Restored:   b.Restored,
		Size:       b.Size,
		Checksum:   b.Checksum,
	}
}
