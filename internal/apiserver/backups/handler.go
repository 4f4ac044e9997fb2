// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package backups provides the HTTP API for listing, taking and deleting
// backups.
package backups

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"sort"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/juju/errors"
	"github.com/juju/loggo/v2"

	"github.com/juju/backupd/core/backup"
	backuperrors "github.com/juju/backupd/domain/backup/errors"
)

var logger = loggo.GetLogger("backupd.apiserver.backups")

// BackupService is the backup service used by the handlers.
type BackupService interface {
	CreateBackup(ctx context.Context) (backup.Record, error)
	DeleteBackup(ctx context.Context, id string) error
	GetBackup(ctx context.Context, id string) (backup.Record, error)
	ListBackups(ctx context.Context) ([]backup.Record, error)
}

// Handler serves the backups API.
type Handler struct {
	service BackupService
}

// NewHandler returns a Handler using service.
func NewHandler(service BackupService) *Handler {
	return &Handler{service: service}
}

// Register adds the backups routes to router.
func (h *Handler) Register(router *mux.Router) {
	router.HandleFunc("/backups", h.serveList).Methods(http.MethodGet)
	router.HandleFunc("/backups", h.serveCreate).Methods(http.MethodPost)
	router.HandleFunc("/backups/internal", h.serveCreateInternal).Methods(http.MethodPost)
	router.HandleFunc("/backups/{id}", h.serveGet).Methods(http.MethodGet)
	router.HandleFunc("/backups/{id}", h.serveDelete).Methods(http.MethodDelete)
}

// serveList returns the backups, newest first unless order=asc. The
// optional start and limit parameters select a page.
func (h *Handler) serveList(w http.ResponseWriter, req *http.Request) {
	query := req.URL.Query()
	start, err := intParam(query.Get("start"), 0)
	if err != nil {
		sendError(w, req, errors.NewNotValid(err, "start"))
		return
	}
	limit, err := intParam(query.Get("limit"), -1)
	if err != nil {
		sendError(w, req, errors.NewNotValid(err, "limit"))
		return
	}

	records, err := h.service.ListBackups(req.Context())
	if err != nil {
		sendError(w, req, err)
		return
	}
	if query.Get("order") == "asc" {
		sort.SliceStable(records, func(i, j int) bool {
			return records[i].CreatedAt.Before(records[j].CreatedAt)
		})
	}

	result := BackupsResult{
		Total:   len(records),
		Backups: []BackupResult{},
	}
	if start < len(records) {
		records = records[start:]
		if limit >= 0 && limit < len(records) {
			records = records[:limit]
		}
		for _, r := range records {
			result.Backups = append(result.Backups, fromRecord(r))
		}
	}
	sendJSON(w, http.StatusOK, result)
}

// serveCreate takes a backup. A client that disconnects doesn't abort
// the backup, it runs to completion either way.
func (h *Handler) serveCreate(w http.ResponseWriter, req *http.Request) {
	record, err := h.service.CreateBackup(context.WithoutCancel(req.Context()))
	if err != nil {
		sendError(w, req, err)
		return
	}
	sendJSON(w, http.StatusCreated, fromRecord(record))
}

// serveCreateInternal takes a backup on behalf of a process on the same
// host, such as a system timer.
func (h *Handler) serveCreateInternal(w http.ResponseWriter, req *http.Request) {
	if !isLoopback(req.RemoteAddr) {
		sendError(w, req, errors.Forbiddenf("internal endpoint from %s", req.RemoteAddr))
		return
	}
	h.serveCreate(w, req)
}

func (h *Handler) serveGet(w http.ResponseWriter, req *http.Request) {
	record, err := h.service.GetBackup(req.Context(), mux.Vars(req)["id"])
	if err != nil {
		sendError(w, req, err)
		return
	}
	sendJSON(w, http.StatusOK, fromRecord(record))
}

func (h *Handler) serveDelete(w http.ResponseWriter, req *http.Request) {
	if err := h.service.DeleteBackup(req.Context(), mux.Vars(req)["id"]); err != nil {
		sendError(w, req, err)
		return
	}
	sendJSON(w, http.StatusOK, MessageResult{Message: "success"})
}

func intParam(value string, dflt int) (int, error) {
	if value == "" {
		return dflt, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, errors.Errorf("negative value %d", n)
	}
	return n, nil
}

func isLoopback(remoteAddr string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// errorStatus returns the HTTP status and error code for err.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, backuperrors.NotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, backuperrors.InvalidID), errors.Is(err, errors.NotValid):
		return http.StatusBadRequest, "bad request"
	case errors.Is(err, errors.Forbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, backuperrors.AlreadyExists):
		return http.StatusConflict, "already exists"
	default:
		return http.StatusInternalServerError, ""
	}
}

// sendError sends a JSON-encoded error response.
func sendError(w http.ResponseWriter, req *http.Request, err error) {
	status, code := errorStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Errorf("returning error from %s %s: %s", req.Method, req.URL, errors.Details(err))
	} else {
		logger.Debugf("returning error from %s %s: %v", req.Method, req.URL, err)
	}
	sendJSON(w, status, ErrorResult{
		Error: err.Error(),
		Code:  code,
	})
}

func sendJSON(w http.ResponseWriter, status int, body interface{}) {
	data, err := json.Marshal(body)
	if err != nil {
		logger.Errorf("marshalling response: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logger.Debugf("writing response: %v", err)
	}
}
