// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package httpserver provides a worker serving HTTP on a listener until it
// is killed.
package httpserver

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/juju/errors"
	"gopkg.in/tomb.v2"
)

// DefaultShutdownTimeout is how long in-flight requests get to finish
// once the worker is killed.
const DefaultShutdownTimeout = 30 * time.Second

// Logger represents the logging methods called.
type Logger interface {
	Errorf(message string, args ...any)
	Infof(message string, args ...any)
}

// Config holds the configuration required for the HTTP server worker.
type Config struct {
	Listener net.Listener
	Handler  http.Handler
	Logger   Logger

	// ShutdownTimeout bounds the graceful shutdown,
	// DefaultShutdownTimeout if zero.
	ShutdownTimeout time.Duration
}

// Validate validates the HTTP server configuration.
func (config Config) Validate() error {
	if config.Listener == nil {
		return errors.NotValidf("nil Listener")
	}
	if config.Handler == nil {
		return errors.NotValidf("nil Handler")
	}
	if config.Logger == nil {
		return errors.NotValidf("nil Logger")
	}
	if config.ShutdownTimeout < 0 {
		return errors.NotValidf("negative ShutdownTimeout")
	}
	return nil
}

// Server is a worker serving HTTP requests.
type Server struct {
	tomb   tomb.Tomb
	config Config
	server *http.Server
}

// NewWorker returns a new HTTP server worker, serving on the configured
// listener. The worker owns the listener.
func NewWorker(config Config) (*Server, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	if config.ShutdownTimeout == 0 {
		config.ShutdownTimeout = DefaultShutdownTimeout
	}
	w := &Server{
		config: config,
		server: &http.Server{
			Handler:           config.Handler,
			ReadHeaderTimeout: 30 * time.Second,
		},
	}
	w.tomb.Go(w.loop)
	return w, nil
}

// Addr returns the address the server is listening on.
func (w *Server) Addr() net.Addr {
	return w.config.Listener.Addr()
}

// Kill is part of the worker.Worker interface.
func (w *Server) Kill() {
	w.tomb.Kill(nil)
}

// Wait is part of the worker.Worker interface.
func (w *Server) Wait() error {
	return w.tomb.Wait()
}

func (w *Server) loop() error {
	w.config.Logger.Infof("listening on %s", w.config.Listener.Addr())

	served := make(chan error, 1)
	go func() {
		served <- w.server.Serve(w.config.Listener)
	}()

	select {
	case <-w.tomb.Dying():
	case err := <-served:
		// The listener failed underneath us.
		return errors.Annotate(err, "serving HTTP")
	}

	ctx, cancel := context.WithTimeout(context.Background(), w.config.ShutdownTimeout)
	defer cancel()
	if err := w.server.Shutdown(ctx); err != nil {
		w.config.Logger.Errorf("shutting down HTTP server: %v", err)
		_ = w.server.Close()
	}
	if err := <-served; err != nil && err != http.ErrServerClosed {
		return errors.Trace(err)
	}
	return tomb.ErrDying
}
