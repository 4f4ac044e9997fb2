// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package files manages the backups root directory: the per-run staging
// directories and the archives that are built from them.
package files

import (
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/juju/errors"
	"github.com/juju/loggo/v2"

	"github.com/juju/backupd/core/backup"
	backuperrors "github.com/juju/backupd/domain/backup/errors"
)

var logger = loggo.GetLogger("backupd.backups.files")

// We go with user-only permissions on principle; the archives hold a full
// copy of the database.
const (
	rootPerm    os.FileMode = 0700
	stagingPerm os.FileMode = 0700
)

// ArchiveFile describes an archive found in the backups root.
type ArchiveFile struct {
	ID      string
	Name    string
	Size    int64
	ModTime time.Time
}

// Root is the backups root directory. Staging directories are named by
// the backup ID and archives are "<id>.zip", both directly in the root.
type Root struct {
	dir string
}

// NewRoot returns a Root for dir, creating the directory if needed.
func NewRoot(dir string) (*Root, error) {
	if dir == "" {
		return nil, errors.NotValidf("empty backups root")
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if err := os.MkdirAll(dir, rootPerm); err != nil {
		return nil, errors.Annotatef(err, "creating backups root %q", dir)
	}
	return &Root{dir: dir}, nil
}

// Dir returns the path of the backups root.
func (r *Root) Dir() string {
	return r.dir
}

// Stage creates the empty staging directory for the backup id and
// returns its path. The directory must not exist yet, so the same ID is
// never staged twice.
func (r *Root) Stage(id string) (string, error) {
	if err := backup.ValidateID(id); err != nil {
		return "", errors.Trace(err)
	}
	dir := filepath.Join(r.dir, id)
	if err := os.Mkdir(dir, stagingPerm); err != nil {
		return "", errors.WithType(
			errors.Annotatef(err, "creating staging directory"), backuperrors.StagingFailed)
	}
	logger.Debugf("staged %q", dir)
	return dir, nil
}

// Purge recursively removes a staging directory and only reports success
// once the directory is confirmed to be gone.
func (r *Root) Purge(dir string) error {
	if filepath.Dir(dir) != r.dir {
		return errors.WithType(
			errors.Errorf("%q is not a staging directory of %q", dir, r.dir), backuperrors.StagingFailed)
	}
	if err := os.RemoveAll(dir); err != nil {
		return errors.WithType(
			errors.Annotatef(err, "removing staging directory"), backuperrors.StagingFailed)
	}
	if _, err := os.Lstat(dir); !os.IsNotExist(err) {
		if err == nil {
			err = errors.Errorf("staging directory %q still exists", dir)
		}
		return errors.WithType(err, backuperrors.StagingFailed)
	}
	logger.Debugf("purged %q", dir)
	return nil
}

// ArchivePath returns the path of the archive for the backup id.
func (r *Root) ArchivePath(id string) string {
	return filepath.Join(r.dir, backup.ArchiveName(id))
}

// ListArchives returns the archives in the backups root, ordered by ID.
// Anything that isn't a regular file named "<id>.zip" is ignored.
func (r *Root) ListArchives() ([]ArchiveFile, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, errors.Annotatef(err, "reading backups root %q", r.dir)
	}

	var archives []ArchiveFile
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		id, ok := backup.IDFromArchiveName(entry.Name())
		if !ok {
			continue
		}
		info, err := entry.Info()
		if os.IsNotExist(err) {
			// Removed since the directory was read.
			continue
		} else if err != nil {
			return nil, errors.Annotatef(err, "reading archive %q", entry.Name())
		}
		archives = append(archives, ArchiveFile{
			ID:      id,
			Name:    entry.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	sort.Slice(archives, func(i, j int) bool {
		return archives[i].ID < archives[j].ID
	})
	return archives, nil
}

// RemoveArchive removes the archive for the backup id. It reports whether
// the archive existed; a missing archive is not an error.
func (r *Root) RemoveArchive(id string) (bool, error) {
	if err := backup.ValidateID(id); err != nil {
		return false, errors.Trace(err)
	}
	err := os.Remove(r.ArchivePath(id))
	if os.IsNotExist(err) {
		return false, nil
	} else if err != nil {
		return false, errors.Annotatef(err, "removing archive for backup %q", id)
	}
	return true, nil
}
