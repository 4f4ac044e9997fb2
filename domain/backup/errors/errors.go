// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package errors

import (
	"github.com/juju/errors"
)

const (
	// StagingFailed describes an error that occurs when the staging
	// directory for a backup cannot be created or removed.
	StagingFailed = errors.ConstError("backup staging failed")

	// DumpFailed describes an error that occurs when the database export
	// fails, including when it reports any diagnostic output.
	DumpFailed = errors.ConstError("database dump failed")

	// CompressionFailed describes an error that occurs when the archive
	// writer or the compressor fails.
	CompressionFailed = errors.ConstError("backup compression failed")

	// StoreFailed describes an error that occurs when a backup record
	// cannot be created, read or deleted.
	StoreFailed = errors.ConstError("backup record store failed")

	// NotFound describes an error that occurs when a backup record does
	// not exist.
	NotFound = errors.ConstError("backup not found")

	// AlreadyExists describes an error that occurs when a backup record
	// with the same ID already exists.
	AlreadyExists = errors.ConstError("backup already exists")

	// InvalidID describes an error that occurs when a backup ID cannot be
	// used to name files on disk.
	InvalidID = errors.ConstError("invalid backup id")
)
