// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package state stores backup records in a SQLite database.
package state

import (
	"context"
	"database/sql"

	"github.com/canonical/sqlair"
	"github.com/juju/collections/transform"
	"github.com/juju/errors"
	"github.com/juju/loggo/v2"
	"github.com/mattn/go-sqlite3"

	"github.com/juju/backupd/core/backup"
	backuperrors "github.com/juju/backupd/domain/backup/errors"
)

var logger = loggo.GetLogger("backupd.backup.state")

// Open opens the SQLite database at path. ":memory:" opens a private
// in-memory database.
func Open(path string) (*sql.DB, error) {
	if path == "" {
		return nil, errors.NotValidf("empty database path")
	}
	dsn := path
	if path != ":memory:" {
		dsn = "file:" + path + "?_busy_timeout=5000&_journal_mode=WAL&_txlock=immediate"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Annotatef(err, "opening %q", path)
	}
	// SQLite allows a single writer; a single connection also keeps an
	// in-memory database alive and shared.
	db.SetMaxOpenConns(1)
	return db, nil
}

// State implements the backup record store on top of SQLite.
type State struct {
	sqlDB *sql.DB
	db    *sqlair.DB
}

// NewState returns a new State using db.
func NewState(db *sql.DB) *State {
	return &State{
		sqlDB: db,
		db:    sqlair.NewDB(db),
	}
}

// EnsureSchema creates the backup table if it doesn't exist.
func (s *State) EnsureSchema(ctx context.Context) error {
	if _, err := s.sqlDB.ExecContext(ctx, schema); err != nil {
		return errors.Annotate(err, "creating backup schema")
	}
	return nil
}

// CreateBackup stores a new backup record. An error satisfying
// [backuperrors.AlreadyExists] is returned if a record with the same ID
// exists.
func (s *State) CreateBackup(ctx context.Context, record backup.Record) error {
	row := fromRecord(record)
	id := backupID{ID: record.ID}

	existsStmt, err := sqlair.Prepare(`
SELECT &backupID.id
FROM   backup
WHERE  id = $backupID.id`, id)
	if err != nil {
		return errors.Annotate(err, "preparing select backup statement")
	}

	insertStmt, err := sqlair.Prepare(`
INSERT INTO backup (id, archive_ref, created_at, restored, size, checksum)
VALUES ($dbBackup.*)`, row)
	if err != nil {
		return errors.Annotate(err, "preparing insert backup statement")
	}

	err = s.txn(ctx, func(ctx context.Context, tx *sqlair.TX) error {
		var existing backupID
		err := tx.Query(ctx, existsStmt, id).Get(&existing)
		if err == nil {
			return backuperrors.AlreadyExists
		} else if !errors.Is(err, sqlair.ErrNoRows) {
			return errors.Annotate(err, "looking up backup")
		}

		var outcome sqlair.Outcome
		if err := tx.Query(ctx, insertStmt, row).Get(&outcome); err != nil {
			return errors.Annotate(err, "inserting backup")
		}
		if rows, err := outcome.Result().RowsAffected(); err != nil {
			return errors.Annotate(err, "inserting backup")
		} else if rows != 1 {
			return errors.Errorf("expected 1 row inserted, got %d", rows)
		}
		return nil
	})
	if isConstraintError(err) {
		err = backuperrors.AlreadyExists
	}
	if err != nil {
		return errors.Annotatef(err, "creating backup %q", record.ID)
	}
	return nil
}

// ListBackups returns every backup record, newest first.
func (s *State) ListBackups(ctx context.Context) ([]backup.Record, error) {
	stmt, err := sqlair.Prepare(`
SELECT &dbBackup.*
FROM   backup
ORDER BY created_at DESC, id DESC`, dbBackup{})
	if err != nil {
		return nil, errors.Annotate(err, "preparing select backups statement")
	}

	var rows []dbBackup
	err = s.txn(ctx, func(ctx context.Context, tx *sqlair.TX) error {
		err := tx.Query(ctx, stmt).GetAll(&rows)
		if errors.Is(err, sqlair.ErrNoRows) {
			return nil
		}
		return errors.Annotate(err, "retrieving backups")
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	return transform.Slice(rows, dbBackup.toRecord), nil
}

// GetBackup returns the backup record with the given ID. An error
// satisfying [backuperrors.NotFound] is returned if it doesn't exist.
func (s *State) GetBackup(ctx context.Context, id string) (backup.Record, error) {
	arg := backupID{ID: id}
	stmt, err := sqlair.Prepare(`
SELECT &dbBackup.*
FROM   backup
WHERE  id = $backupID.id`, dbBackup{}, arg)
	if err != nil {
		return backup.Record{}, errors.Annotate(err, "preparing select backup statement")
	}

	var row dbBackup
	err = s.txn(ctx, func(ctx context.Context, tx *sqlair.TX) error {
		return tx.Query(ctx, stmt, arg).Get(&row)
	})
	if errors.Is(err, sqlair.ErrNoRows) {
		return backup.Record{}, errors.Annotatef(backuperrors.NotFound, "backup %q", id)
	} else if err != nil {
		return backup.Record{}, errors.Annotatef(err, "retrieving backup %q", id)
	}
	return row.toRecord(), nil
}

// DeleteBackup removes the backup record with the given ID. Removing a
// record that doesn't exist is not an error.
func (s *State) DeleteBackup(ctx context.Context, id string) error {
	arg := backupID{ID: id}
	stmt, err := sqlair.Prepare(`
DELETE FROM backup
WHERE  id = $backupID.id`, arg)
	if err != nil {
		return errors.Annotate(err, "preparing delete backup statement")
	}

	err = s.txn(ctx, func(ctx context.Context, tx *sqlair.TX) error {
		return tx.Query(ctx, stmt, arg).Run()
	})
	return errors.Annotatef(err, "deleting backup %q", id)
}

// txn runs fn in a transaction, committing if it returns nil.
func (s *State) txn(ctx context.Context, fn func(context.Context, *sqlair.TX) error) error {
	tx, err := s.db.Begin(ctx, nil)
	if err != nil {
		return errors.Annotate(err, "beginning transaction")
	}
	if err := fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Debugf("rolling back transaction: %v", rbErr)
		}
		return err
	}
	return errors.Annotate(tx.Commit(), "committing transaction")
}

func isConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.Code == sqlite3.ErrConstraint
}
