// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package signalwatcher_test

import (
	"os"
	"syscall"
	"time"

	"github.com/juju/loggo/v2"
	"github.com/juju/testing"
	jc "github.com/juju/testing/checkers"
	"github.com/juju/worker/v4/workertest"
	gc "gopkg.in/check.v1"

	"github.com/juju/backupd/internal/worker/signalwatcher"
)

type workerSuite struct {
	testing.IsolationSuite
}

var _ = gc.Suite(&workerSuite{})

func (s *workerSuite) config(ch chan os.Signal) signalwatcher.Config {
	return signalwatcher.Config{
		Signals: ch,
		Handler: signalwatcher.Terminate,
		Logger:  loggo.GetLogger("test"),
	}
}

func (s *workerSuite) TestValidate(c *gc.C) {
	cfg := s.config(make(chan os.Signal))
	cfg.Signals = nil
	c.Check(cfg.Validate(), gc.ErrorMatches, "nil Signals not valid")

	cfg = s.config(make(chan os.Signal))
	cfg.Handler = nil
	c.Check(cfg.Validate(), gc.ErrorMatches, "nil Handler not valid")

	cfg = s.config(make(chan os.Signal))
	cfg.Logger = nil
	c.Check(cfg.Validate(), gc.ErrorMatches, "nil Logger not valid")
}

func (s *workerSuite) TestKill(c *gc.C) {
	w, err := signalwatcher.NewWorker(s.config(make(chan os.Signal)))
	c.Assert(err, jc.ErrorIsNil)
	workertest.CheckAlive(c, w)
	workertest.CleanKill(c, w)
}

func (s *workerSuite) TestSignalTerminates(c *gc.C) {
	ch := make(chan os.Signal, 1)
	w, err := signalwatcher.NewWorker(s.config(ch))
	c.Assert(err, jc.ErrorIsNil)

	ch <- syscall.SIGTERM
	err = workertest.CheckKilled(c, w)
	c.Check(err, jc.ErrorIs, signalwatcher.ErrTerminated)
}

func (s *workerSuite) TestIgnoredSignal(c *gc.C) {
	ch := make(chan os.Signal, 2)
	cfg := s.config(ch)
	seen := make(chan os.Signal, 2)
	cfg.Handler = func(sig os.Signal) error {
		seen <- sig
		if sig == syscall.SIGHUP {
			return nil
		}
		return signalwatcher.ErrTerminated
	}
	w, err := signalwatcher.NewWorker(cfg)
	c.Assert(err, jc.ErrorIsNil)
	defer workertest.DirtyKill(c, w)

	ch <- syscall.SIGHUP
	select {
	case sig := <-seen:
		c.Check(sig, gc.Equals, syscall.SIGHUP)
	case <-time.After(testing.LongWait):
		c.Fatalf("signal not handled")
	}
	workertest.CheckAlive(c, w)

	ch <- syscall.SIGINT
	err = workertest.CheckKilled(c, w)
	c.Check(err, jc.ErrorIs, signalwatcher.ErrTerminated)
}

func (s *workerSuite) TestClosedChannel(c *gc.C) {
	ch := make(chan os.Signal)
	w, err := signalwatcher.NewWorker(s.config(ch))
	c.Assert(err, jc.ErrorIsNil)

	close(ch)
	err = workertest.CheckKilled(c, w)
	c.Check(err, gc.ErrorMatches, "signal channel closed unexpectedly")
}
