// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package state

import (
	"context"
	"time"

	"github.com/juju/errors"
	"github.com/juju/mgo/v3"
	"github.com/juju/mgo/v3/bson"

	"github.com/juju/backupd/core/backup"
	backuperrors "github.com/juju/backupd/domain/backup/errors"
)

/*
Backup records live in the same mongo deployment as the database being
backed up, in their own collection. Every document is keyed by the
backup ID, which is also the name of the archive on disk, so a record
and its archive can always be matched without a lookup.
*/

// backupsC is the collection holding one document per backup.
const backupsC = "backups"

// backupDoc is a mirror of backup.Record, used just for DB storage.
type backupDoc struct {
	ID string `bson:"_id"`

	ArchiveRef string    `bson:"archiveref"`
	Created    time.Time `bson:"created"`
	Restored   bool      `bson:"restored"`

	Checksum       string `bson:"checksum"`
	ChecksumFormat string `bson:"checksumformat"`
	Size           int64  `bson:"size,minsize"`
}

func (doc *backupDoc) validate() error {
	if doc.ID == "" {
		return errors.New("missing ID")
	}
	if doc.ArchiveRef == "" {
		return errors.New("missing ArchiveRef")
	}
	if doc.Created.IsZero() {
		return errors.New("missing Created")
	}
	if doc.Checksum != "" && doc.ChecksumFormat == "" {
		return errors.New("missing ChecksumFormat")
	}
	return nil
}

// asRecord returns a new backup.Record based on the backupDoc.
func (doc *backupDoc) asRecord() backup.Record {
	return backup.Record{
		ID:         doc.ID,
		ArchiveRef: doc.ArchiveRef,
		CreatedAt:  doc.Created.UTC(),
		Restored:   doc.Restored,
		Size:       doc.Size,
		Checksum:   doc.Checksum,
	}
}

// newBackupDoc copies the corresponding data from the record into a new
// backupDoc.
func newBackupDoc(record backup.Record) backupDoc {
	doc := backupDoc{
		ID:         record.ID,
		ArchiveRef: record.ArchiveRef,
		Created:    record.CreatedAt.UTC(),
		Restored:   record.Restored,
		Checksum:   record.Checksum,
		Size:       record.Size,
	}
	if doc.Checksum != "" {
		doc.ChecksumFormat = backup.ChecksumFormat
	}
	return doc
}

// BackupStore implements the backup record store on top of mongo.
type BackupStore struct {
	session  *mgo.Session
	database string
}

// OpenBackupStore dials the mongo deployment at uri and returns a store
// keeping records in the given database. If database is empty the one
// named in uri is used.
func OpenBackupStore(uri, database string, timeout time.Duration) (*BackupStore, error) {
	info, err := mgo.ParseURL(uri)
	if err != nil {
		return nil, errors.Annotate(err, "parsing mongo URI")
	}
	if database == "" {
		database = info.Database
	}
	if database == "" {
		return nil, errors.NotValidf("mongo URI without a database")
	}
	info.Timeout = timeout
	session, err := mgo.DialWithInfo(info)
	if err != nil {
		return nil, errors.Annotate(err, "connecting to mongo")
	}
	return NewBackupStore(session, database), nil
}

// NewBackupStore returns a store using a copy of session. The caller
// keeps ownership of session.
func NewBackupStore(session *mgo.Session, database string) *BackupStore {
	return &BackupStore{
		session:  session.Copy(),
		database: database,
	}
}

// Close releases the store's session.
func (s *BackupStore) Close() {
	s.session.Close()
}

// getCollection returns the backups collection on a fresh session, and a
// func to close that session.
func (s *BackupStore) getCollection() (*mgo.Collection, func()) {
	session := s.session.Copy()
	return session.DB(s.database).C(backupsC), session.Close
}

// EnsureIndexes creates the index used to list backups newest first.
func (s *BackupStore) EnsureIndexes() error {
	collection, closer := s.getCollection()
	defer closer()

	err := collection.EnsureIndex(mgo.Index{Key: []string{"-created"}})
	return errors.Annotate(err, "creating backups index")
}

// CreateBackup stores a new backup record. An error satisfying
// [backuperrors.AlreadyExists] is returned if a record with the same ID
// exists.
func (s *BackupStore) CreateBackup(ctx context.Context, record backup.Record) error {
	if err := ctx.Err(); err != nil {
		return errors.Trace(err)
	}
	doc := newBackupDoc(record)
	if err := doc.validate(); err != nil {
		return errors.Trace(err)
	}

	collection, closer := s.getCollection()
	defer closer()

	err := collection.Insert(doc)
	if mgo.IsDup(err) {
		return errors.Annotatef(backuperrors.AlreadyExists, "backup %q", record.ID)
	} else if err != nil {
		return errors.Annotatef(err, "inserting backup %q", record.ID)
	}
	return nil
}

// ListBackups returns every backup record, newest first.
func (s *BackupStore) ListBackups(ctx context.Context) ([]backup.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Trace(err)
	}
	collection, closer := s.getCollection()
	defer closer()

	var docs []backupDoc
	if err := collection.Find(nil).Sort("-created", "-_id").All(&docs); err != nil {
		return nil, errors.Annotate(err, "retrieving backups")
	}
	records := make([]backup.Record, len(docs))
	for i, doc := range docs {
		records[i] = doc.asRecord()
	}
	return records, nil
}

// GetBackup returns the backup record with the given ID. An error
// satisfying [backuperrors.NotFound] is returned if it doesn't exist.
func (s *BackupStore) GetBackup(ctx context.Context, id string) (backup.Record, error) {
	if err := ctx.Err(); err != nil {
		return backup.Record{}, errors.Trace(err)
	}
	collection, closer := s.getCollection()
	defer closer()

	var doc backupDoc
	err := collection.Find(backupIDQuery(id)).One(&doc)
	if err == mgo.ErrNotFound {
		return backup.Record{}, errors.Annotatef(backuperrors.NotFound, "backup %q", id)
	} else if err != nil {
		return backup.Record{}, errors.Annotatef(err, "retrieving backup %q", id)
	}
	if err := doc.validate(); err != nil {
		return backup.Record{}, errors.Annotatef(err, "backup %q", id)
	}
	return doc.asRecord(), nil
}

// DeleteBackup removes the backup record with the given ID. Removing a
// record that doesn't exist is not an error.
func (s *BackupStore) DeleteBackup(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return errors.Trace(err)
	}
	collection, closer := s.getCollection()
	defer closer()

	err := collection.Remove(backupIDQuery(id))
	if err != nil && err != mgo.ErrNotFound {
		return errors.Annotatef(err, "deleting backup %q", id)
	}
	return nil
}

// backupIDQuery selects the document of a single backup.
func backupIDQuery(id string) bson.D {
	return bson.D{{Name: "_id", Value: id}}
}
