// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package backup

import (
	"strings"
	"time"

	"github.com/juju/errors"
	"github.com/juju/mgo/v3/bson"

	backuperrors "github.com/juju/backupd/domain/backup/errors"
)

const (
	// ArchiveExtension is the file extension of every backup archive.
	ArchiveExtension = "zip"

	// ChecksumFormat describes the kind (and encoding) of the checksum
	// recorded for an archive.
	ChecksumFormat = "SHA-1, base64 encoded"
)

// reservedIDs are names that can never identify a backup. "backup" was
// historically used for a sentinel file in the backups root.
var reservedIDs = map[string]bool{
	"backup": true,
}

// Record holds the metadata for a single backup archive.
type Record struct {
	// ID is the unique ID of the backup. It is also the name of the
	// staging directory and the base name of the archive.
	ID string

	// ArchiveRef is the file name of the archive, relative to the
	// backups root.
	ArchiveRef string

	// CreatedAt records when the record was persisted.
	CreatedAt time.Time

	// Restored is false for every freshly created backup.
	Restored bool

	// Size is the size of the archive in bytes.
	Size int64

	// Checksum is the checksum of the compressed archive.
	Checksum string
}

// ArchiveInfo describes an archive produced from a staging directory.
type ArchiveInfo struct {
	Size     int64
	Checksum string
}

// NewID returns a new backup ID.
func NewID() string {
	return bson.NewObjectId().Hex()
}

// ValidateID returns an error satisfying backuperrors.InvalidID if the
// id cannot be used to name a staging directory and an archive.
func ValidateID(id string) error {
	switch {
	case id == "":
		return errors.WithType(errors.New("empty backup id"), backuperrors.InvalidID)
	case reservedIDs[id]:
		return errors.WithType(errors.Errorf("backup id %q is reserved", id), backuperrors.InvalidID)
	case strings.ContainsAny(id, `./\`):
		return errors.WithType(errors.Errorf("backup id %q contains path characters", id), backuperrors.InvalidID)
	case strings.TrimSpace(id) != id:
		return errors.WithType(errors.Errorf("backup id %q has surrounding whitespace", id), backuperrors.InvalidID)
	}
	return nil
}

// ArchiveName returns the archive file name for the backup id.
func ArchiveName(id string) string {
	return id + "." + ArchiveExtension
}

// IDFromArchiveName derives the backup id from an archive file name. It
// returns false for anything that isn't a valid "<id>.zip" name.
func IDFromArchiveName(name string) (string, bool) {
	id, ok := strings.CutSuffix(name, "."+ArchiveExtension)
	if !ok {
		return "", false
	}
	if err := ValidateID(id); err != nil {
		return "", false
	}
	return id, true
}
