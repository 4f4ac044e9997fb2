// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package signalwatcher

import (
	"os"

	"github.com/juju/errors"
	"github.com/juju/worker/v4/catacomb"
)

// ErrTerminated is returned by the worker when it receives one of the
// shutdown signals.
const ErrTerminated = errors.ConstError("terminated by signal")

// Logger represents the logging methods called.
type Logger interface {
	Infof(message string, args ...any)
}

// HandlerFunc maps a received signal to the error the worker exits with.
// A nil error means the signal is ignored.
type HandlerFunc func(os.Signal) error

// Config holds the configuration of the signal watcher.
type Config struct {
	Signals <-chan os.Signal
	Handler HandlerFunc
	Logger  Logger
}

// Validate checks the config.
func (c Config) Validate() error {
	if c.Signals == nil {
		return errors.NotValidf("nil Signals")
	}
	if c.Handler == nil {
		return errors.NotValidf("nil Handler")
	}
	if c.Logger == nil {
		return errors.NotValidf("nil Logger")
	}
	return nil
}

// Watcher is a worker that exits when a signal is received for which the
// handler returns an error.
type Watcher struct {
	catacomb catacomb.Catacomb
	config   Config
}

// NewWorker returns a new signal watcher.
func NewWorker(config Config) (*Watcher, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	w := &Watcher{config: config}
	if err := catacomb.Invoke(catacomb.Plan{
		Site: &w.catacomb,
		Work: w.loop,
	}); err != nil {
		return nil, errors.Trace(err)
	}
	return w, nil
}

// Kill implements worker.Worker.
func (w *Watcher) Kill() {
	w.catacomb.Kill(nil)
}

// Wait implements worker.Worker.
func (w *Watcher) Wait() error {
	return w.catacomb.Wait()
}

// Terminate is a HandlerFunc returning ErrTerminated for every signal.
func Terminate(os.Signal) error {
	return ErrTerminated
}

func (w *Watcher) loop() error {
	for {
		select {
		case <-w.catacomb.Dying():
			return w.catacomb.ErrDying()
		case sig, ok := <-w.config.Signals:
			if !ok {
				return errors.New("signal channel closed unexpectedly")
			}
			err := w.config.Handler(sig)
			if err == nil {
				continue
			}
			w.config.Logger.Infof("received %v, shutting down", sig)
			return err
		}
	}
}
