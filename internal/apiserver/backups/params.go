// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package backups

import (
	"time"

	"github.com/juju/backupd/core/backup"
)

// BackupResult is the wire form of a backup record.
type BackupResult struct {
	ID         string    `json:"id"`
	ArchiveRef string    `json:"archive"`
	CreatedAt  time.Time `json:"created"`
	Restored   bool      `json:"restored"`
	Size       int64     `json:"size"`
	Checksum   string    `json:"checksum,omitempty"`
}

// BackupsResult holds a page of backups.
type BackupsResult struct {
	// Total is the number of backups before paging.
	Total   int            `json:"total"`
	Backups []BackupResult `json:"backups"`
}

// MessageResult holds a plain status message.
type MessageResult struct {
	Message string `json:"message"`
}

// ErrorResult is returned for every failed request.
type ErrorResult struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func fromRecord(r backup.Record) BackupResult {
	return BackupResult{
		ID:         r.ID,
		ArchiveRef: r.ArchiveRef,
		CreatedAt:  r.CreatedAt,
		Restored:   r.Restored,
		Size:       r.Size,
		Checksum:   r.Checksum,
	}
}
