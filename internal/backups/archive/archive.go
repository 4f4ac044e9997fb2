// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package archive

import (
	"context"
	"crypto/sha1"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/juju/errors"
	"github.com/juju/loggo/v2"
	"github.com/juju/utils/v4/hash"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"

	"github.com/juju/backupd/core/backup"
	backuperrors "github.com/juju/backupd/domain/backup/errors"
)

var logger = loggo.GetLogger("backupd.backups.archive")

const (
	// DefaultLevel is the compression level used unless told otherwise.
	DefaultLevel = flate.BestCompression

	partialSuffix = ".partial"
)

// Builder compresses a directory into a single zip archive.
type Builder struct {
	level int
}

// NewBuilder returns a Builder that deflates with the given level, from
// flate.HuffmanOnly to flate.BestCompression.
func NewBuilder(level int) (*Builder, error) {
	if level < flate.HuffmanOnly || level > flate.BestCompression {
		return nil, errors.NotValidf("compression level %d", level)
	}
	return &Builder{level: level}, nil
}

// Level returns the compression level of the builder.
func (b *Builder) Level() int {
	return b.level
}

// Compress writes the contents of sourceDir, relative to sourceDir itself,
// into a new zip archive at destFile. The archive is streamed into a
// hidden sibling file that is only linked to destFile once the zip writer
// and the file have both been closed without error, so destFile either
// doesn't exist or is complete. An existing destFile is never replaced.
func (b *Builder) Compress(ctx context.Context, sourceDir, destFile string) (_ backup.ArchiveInfo, err error) {
	partial := filepath.Join(filepath.Dir(destFile), "."+filepath.Base(destFile)+partialSuffix)
	file, err := os.OpenFile(partial, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return backup.ArchiveInfo{}, errors.WithType(
			errors.Annotate(err, "creating archive file"), backuperrors.CompressionFailed)
	}
	defer func() {
		if err == nil {
			return
		}
		if file != nil {
			_ = file.Close()
		}
		if rmErr := os.Remove(partial); rmErr != nil && !os.IsNotExist(rmErr) {
			logger.Errorf("removing partial archive %q: %v", partial, rmErr)
		}
		err = errors.WithType(err, backuperrors.CompressionFailed)
	}()

	// The checksum is of the compressed file, so it can be compared
	// against the archive without unpacking it.
	hasher := hash.NewHashingWriter(file, sha1.New())
	zw := zip.NewWriter(hasher)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, b.level)
	})

	if err := addDir(ctx, zw, sourceDir); err != nil {
		_ = zw.Close()
		return backup.ArchiveInfo{}, errors.Annotatef(err, "archiving %q", sourceDir)
	}
	if err := zw.Close(); err != nil {
		return backup.ArchiveInfo{}, errors.Annotate(err, "finalising archive")
	}
	if err := file.Sync(); err != nil {
		return backup.ArchiveInfo{}, errors.Annotate(err, "syncing archive file")
	}
	closeErr := file.Close()
	file = nil
	if closeErr != nil {
		return backup.ArchiveInfo{}, errors.Annotate(closeErr, "closing archive file")
	}

	info, err := os.Stat(partial)
	if err != nil {
		return backup.ArchiveInfo{}, errors.Trace(err)
	}
	if err := os.Link(partial, destFile); err != nil {
		return backup.ArchiveInfo{}, errors.Annotate(err, "publishing archive")
	}
	if err := os.Remove(partial); err != nil {
		logger.Warningf("removing partial archive %q: %v", partial, err)
	}

	result := backup.ArchiveInfo{
		Size:     info.Size(),
		Checksum: hasher.Base64Sum(),
	}
	logger.Infof("built archive %q (%s)", destFile, humanize.Bytes(uint64(result.Size)))
	return result, nil
}

func addDir(ctx context.Context, zw *zip.Writer, sourceDir string) error {
	return filepath.WalkDir(sourceDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return errors.Trace(err)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path == sourceDir {
			return nil
		}

		rel, err := filepath.Rel(sourceDir, path)
		if err != nil {
			return errors.Trace(err)
		}
		name := filepath.ToSlash(rel)

		switch {
		case d.IsDir():
			_, err := zw.CreateHeader(&zip.FileHeader{
				Name:   name + "/",
				Method: zip.Store,
			})
			return errors.Trace(err)
		case d.Type().IsRegular():
			return errors.Trace(addFile(zw, path, name))
		default:
			logger.Warningf("skipping %q: not a regular file", path)
			return nil
		}
	})
}

func addFile(zw *zip.Writer, path, name string) error {
	info, err := os.Stat(path)
	if err != nil {
		return errors.Trace(err)
	}
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return errors.Trace(err)
	}
	header.Name = name
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		return errors.Trace(err)
	}
	f, err := os.Open(path)
	if err != nil {
		return errors.Trace(err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return errors.Annotatef(err, "compressing %q", name)
	}
	return nil
}
