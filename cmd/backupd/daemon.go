// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package main

import (
	"github.com/juju/errors"
	"github.com/juju/worker/v4"
	"github.com/juju/worker/v4/catacomb"
)

// daemon is a worker that runs a set of workers, and stops all of them as
// soon as any one stops.
type daemon struct {
	catacomb catacomb.Catacomb
}

func newDaemon(workers ...worker.Worker) (*daemon, error) {
	d := &daemon{}
	if err := catacomb.Invoke(catacomb.Plan{
		Site: &d.catacomb,
		Work: d.loop,
		Init: workers,
	}); err != nil {
		return nil, errors.Trace(err)
	}
	return d, nil
}

// Kill implements worker.Worker.
func (d *daemon) Kill() {
	d.catacomb.Kill(nil)
}

// Wait implements worker.Worker.
func (d *daemon) Wait() error {
	return d.catacomb.Wait()
}

func (d *daemon) loop() error {
	<-d.catacomb.Dying()
	return d.catacomb.ErrDying()
}
