// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package backups

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/gorilla/mux"
	"github.com/juju/errors"
	"github.com/juju/testing"
	jc "github.com/juju/testing/checkers"
	"go.uber.org/mock/gomock"
	gc "gopkg.in/check.v1"

	"github.com/juju/backupd/core/backup"
	backuperrors "github.com/juju/backupd/domain/backup/errors"
)

type handlerSuite struct {
	testing.IsolationSuite

	service *MockBackupService
	router  *mux.Router
}

var _ = gc.Suite(&handlerSuite{})

func (s *handlerSuite) setupMocks(c *gc.C) *gomock.Controller {
	ctrl := gomock.NewController(c)
	s.service = NewMockBackupService(ctrl)
	s.router = mux.NewRouter()
	NewHandler(s.service).Register(s.router)
	return ctrl
}

func (s *handlerSuite) do(c *gc.C, method, target, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if remoteAddr != "" {
		req.RemoteAddr = remoteAddr
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *handlerSuite) decode(c *gc.C, rec *httptest.ResponseRecorder, v interface{}) {
	c.Check(rec.Header().Get("Content-Type"), gc.Equals, "application/json")
	err := json.Unmarshal(rec.Body.Bytes(), v)
	c.Assert(err, jc.ErrorIsNil)
}

func records() []backup.Record {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	return []backup.Record{
		{ID: "c", ArchiveRef: "c.zip", CreatedAt: base.Add(2 * time.Hour)},
		{ID: "b", ArchiveRef: "b.zip", CreatedAt: base.Add(time.Hour)},
		{ID: "a", ArchiveRef: "a.zip", CreatedAt: base},
	}
}

func ids(result BackupsResult) []string {
	out := make([]string, len(result.Backups))
	for i, b := range result.Backups {
		out[i] = b.ID
	}
	return out
}

func (s *handlerSuite) TestList(c *gc.C) {
	defer s.setupMocks(c).Finish()

	s.service.EXPECT().ListBackups(gomock.Any()).Return(records(), nil)

	rec := s.do(c, http.MethodGet, "/backups", "")
	c.Assert(rec.Code, gc.Equals, http.StatusOK)
	var result BackupsResult
	s.decode(c, rec, &result)
	c.Check(result.Total, gc.Equals, 3)
	c.Check(ids(result), jc.DeepEquals, []string{"c", "b", "a"})
	c.Check(result.Backups[0].ArchiveRef, gc.Equals, "c.zip")
}

func (s *handlerSuite) TestListPagedAscending(c *gc.C) {
	defer s.setupMocks(c).Finish()

	s.service.EXPECT().ListBackups(gomock.Any()).Return(records(), nil)

	rec := s.do(c, http.MethodGet, "/backups?order=asc&start=1&limit=1", "")
	c.Assert(rec.Code, gc.Equals, http.StatusOK)
	var result BackupsResult
	s.decode(c, rec, &result)
	c.Check(result.Total, gc.Equals, 3)
	c.Check(ids(result), jc.DeepEquals, []string{"b"})
}

func (s *handlerSuite) TestListPastTheEnd(c *gc.C) {
	defer s.setupMocks(c).Finish()

	s.service.EXPECT().ListBackups(gomock.Any()).Return(records(), nil)

	rec := s.do(c, http.MethodGet, "/backups?start=10", "")
	c.Assert(rec.Code, gc.Equals, http.StatusOK)
	var result BackupsResult
	s.decode(c, rec, &result)
	c.Check(result.Backups, gc.HasLen, 0)
}

func (s *handlerSuite) TestListBadLimit(c *gc.C) {
	defer s.setupMocks(c).Finish()

	rec := s.do(c, http.MethodGet, "/backups?limit=-3", "")
	c.Check(rec.Code, gc.Equals, http.StatusBadRequest)
}

func (s *handlerSuite) TestGet(c *gc.C) {
	defer s.setupMocks(c).Finish()

	s.service.EXPECT().GetBackup(gomock.Any(), "b").Return(records()[1], nil)

	rec := s.do(c, http.MethodGet, "/backups/b", "")
	c.Assert(rec.Code, gc.Equals, http.StatusOK)
	var result BackupResult
	s.decode(c, rec, &result)
	c.Check(result.ID, gc.Equals, "b")
}

func (s *handlerSuite) TestGetNotFound(c *gc.C) {
	defer s.setupMocks(c).Finish()

	s.service.EXPECT().GetBackup(gomock.Any(), "x").Return(backup.Record{}, backuperrors.NotFound)

	rec := s.do(c, http.MethodGet, "/backups/x", "")
	c.Assert(rec.Code, gc.Equals, http.StatusNotFound)
	var result ErrorResult
	s.decode(c, rec, &result)
	c.Check(result.Error, gc.Equals, "backup not found")
	c.Check(result.Code, gc.Equals, "not found")
}

func (s *handlerSuite) TestCreate(c *gc.C) {
	defer s.setupMocks(c).Finish()

	s.service.EXPECT().CreateBackup(gomock.Any()).Return(records()[0], nil)

	rec := s.do(c, http.MethodPost, "/backups", "")
	c.Assert(rec.Code, gc.Equals, http.StatusCreated)
	var result BackupResult
	s.decode(c, rec, &result)
	c.Check(result.ID, gc.Equals, "c")
	c.Check(result.Restored, jc.IsFalse)
}

func (s *handlerSuite) TestCreateOutlivesRequest(c *gc.C) {
	defer s.setupMocks(c).Finish()

	s.service.EXPECT().CreateBackup(gomock.Any()).DoAndReturn(
		func(ctx context.Context) (backup.Record, error) {
			c.Check(ctx.Err(), jc.ErrorIsNil)
			c.Check(ctx.Done(), gc.IsNil)
			return records()[0], nil
		})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/backups", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	c.Check(rec.Code, gc.Equals, http.StatusCreated)
}

func (s *handlerSuite) TestCreateFailure(c *gc.C) {
	defer s.setupMocks(c).Finish()

	s.service.EXPECT().CreateBackup(gomock.Any()).Return(backup.Record{},
		errors.WithType(errors.New("mongodump exited with code 1"), backuperrors.DumpFailed))

	rec := s.do(c, http.MethodPost, "/backups", "")
	c.Assert(rec.Code, gc.Equals, http.StatusInternalServerError)
	var result ErrorResult
	s.decode(c, rec, &result)
	c.Check(result.Error, gc.Equals, "mongodump exited with code 1")
}

func (s *handlerSuite) TestCreateInternalFromLoopback(c *gc.C) {
	defer s.setupMocks(c).Finish()

	s.service.EXPECT().CreateBackup(gomock.Any()).Return(records()[0], nil)

	rec := s.do(c, http.MethodPost, "/backups/internal", "127.0.0.1:40000")
	c.Check(rec.Code, gc.Equals, http.StatusCreated)
}

func (s *handlerSuite) TestCreateInternalFromRemote(c *gc.C) {
	defer s.setupMocks(c).Finish()

	rec := s.do(c, http.MethodPost, "/backups/internal", "203.0.113.7:40000")
	c.Check(rec.Code, gc.Equals, http.StatusForbidden)
}

func (s *handlerSuite) TestDelete(c *gc.C) {
	defer s.setupMocks(c).Finish()

	s.service.EXPECT().DeleteBackup(gomock.Any(), "b").Return(nil)

	rec := s.do(c, http.MethodDelete, "/backups/b", "")
	c.Assert(rec.Code, gc.Equals, http.StatusOK)
	var result MessageResult
	s.decode(c, rec, &result)
	c.Check(result.Message, gc.Equals, "success")
}

func (s *handlerSuite) TestDeleteErrors(c *gc.C) {
	defer s.setupMocks(c).Finish()

	s.service.EXPECT().DeleteBackup(gomock.Any(), "x").Return(backuperrors.NotFound)
	s.service.EXPECT().DeleteBackup(gomock.Any(), "y").Return(
		errors.WithType(errors.New(`"y" has a bad shape`), backuperrors.InvalidID))
	s.service.EXPECT().DeleteBackup(gomock.Any(), "z").Return(
		errors.WithType(errors.New("database is locked"), backuperrors.StoreFailed))

	c.Check(s.do(c, http.MethodDelete, "/backups/x", "").Code, gc.Equals, http.StatusNotFound)
	c.Check(s.do(c, http.MethodDelete, "/backups/y", "").Code, gc.Equals, http.StatusBadRequest)
	c.Check(s.do(c, http.MethodDelete, "/backups/z", "").Code, gc.Equals, http.StatusInternalServerError)
}

func (s *handlerSuite) TestMethodNotAllowed(c *gc.C) {
	defer s.setupMocks(c).Finish()

	rec := s.do(c, http.MethodPut, "/backups", "")
	c.Check(rec.Code, gc.Equals, http.StatusMethodNotAllowed)
}
