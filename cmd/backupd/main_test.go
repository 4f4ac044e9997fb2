// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/juju/testing"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"
	"gopkg.in/yaml.v3"

	"github.com/juju/backupd/cmd"
	"github.com/juju/backupd/cmd/cmdtesting"
)

const fakeDump = `#!/bin/sh
while [ $# -gt 0 ]; do
	if [ "$1" = "--out" ]; then out="$2"; fi
	shift
done
mkdir -p "$out/app" && echo "documents" > "$out/app/things.bson"
`

const failingDump = `#!/bin/sh
echo "Failed: connection refused" >&2
exit 1
`

// backupdSuite runs backupd commands in a fresh directory holding a
// configuration that uses a fake export command.
type backupdSuite struct {
	testing.IsolationSuite
	dir string
}

type mainSuite struct {
	backupdSuite
}

var _ = gc.Suite(&mainSuite{})

func (s *backupdSuite) SetUpTest(c *gc.C) {
	s.IsolationSuite.SetUpTest(c)
	s.dir = c.MkDir()
	s.writeConfig(c, fakeDump)
}

func (s *backupdSuite) writeConfig(c *gc.C, script string) {
	scriptPath := filepath.Join(s.dir, "mongodump")
	err := os.WriteFile(scriptPath, []byte(script), 0755)
	c.Assert(err, jc.ErrorIsNil)

	config := fmt.Sprintf(`
backups-root: backups
sqlite-path: records.db
mongo-uri: mongodb://localhost:27017/app
mongodump-path: %s
reconcile-after-create: false
`, scriptPath)
	err = os.WriteFile(filepath.Join(s.dir, "backupd.yaml"), []byte(config), 0600)
	c.Assert(err, jc.ErrorIsNil)
}

func (s *backupdSuite) run(c *gc.C, args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	ctx := &cmd.Context{
		Context: context.Background(),
		Dir:     s.dir,
		Stdin:   strings.NewReader(""),
		Stdout:  &stdout,
		Stderr:  &stderr,
	}
	args = append(args, "--config", "backupd.yaml")
	code := NewBackupdCommand().Main(ctx, args)
	c.Logf("backupd %v: %d\nstdout: %s\nstderr: %s", args, code, stdout.String(), stderr.String())
	return code, stdout.String(), stderr.String()
}

func (s *backupdSuite) create(c *gc.C) backupInfo {
	code, stdout, _ := s.run(c, "create")
	c.Assert(code, gc.Equals, 0)
	var info backupInfo
	c.Assert(yaml.Unmarshal([]byte(stdout), &info), jc.ErrorIsNil)
	return info
}

func (s *mainSuite) TestCreate(c *gc.C) {
	info := s.create(c)
	c.Check(info.ID, gc.Not(gc.Equals), "")
	c.Check(info.Archive, gc.Equals, info.ID+".zip")
	c.Check(info.Restored, jc.IsFalse)
	c.Check(info.Checksum, gc.Not(gc.Equals), "")

	st, err := os.Stat(filepath.Join(s.dir, "backups", info.Archive))
	c.Assert(err, jc.ErrorIsNil)
	c.Check(st.Size(), gc.Equals, info.Size)
	c.Check(filepath.Join(s.dir, "backups", info.ID), jc.DoesNotExist)
}

func (s *mainSuite) TestCreateDumpFails(c *gc.C) {
	s.writeConfig(c, failingDump)
	code, stdout, stderr := s.run(c, "create")
	c.Check(code, gc.Equals, 1)
	c.Check(stdout, gc.Equals, "")
	c.Check(stderr, gc.Matches, `ERROR creating backup: .*exited with code 1: Failed: connection refused\n`)

	code, stdout, _ = s.run(c, "list", "--format", "yaml")
	c.Check(code, gc.Equals, 0)
	c.Check(stdout, gc.Equals, "[]\n")
}

func (s *mainSuite) TestListShow(c *gc.C) {
	first := s.create(c)
	second := s.create(c)

	code, stdout, _ := s.run(c, "list", "--format", "json")
	c.Assert(code, gc.Equals, 0)
	var infos []backupInfo
	c.Assert(yaml.Unmarshal([]byte(stdout), &infos), jc.ErrorIsNil)
	c.Assert(infos, gc.HasLen, 2)
	ids := []string{infos[0].ID, infos[1].ID}
	c.Check(ids, jc.SameContents, []string{first.ID, second.ID})

	code, stdout, _ = s.run(c, "show", first.ID)
	c.Assert(code, gc.Equals, 0)
	var info backupInfo
	c.Assert(yaml.Unmarshal([]byte(stdout), &info), jc.ErrorIsNil)
	c.Check(info.ID, gc.Equals, first.ID)
	c.Check(info.Checksum, gc.Equals, first.Checksum)
}

func (s *mainSuite) TestListTabular(c *gc.C) {
	code, stdout, _ := s.run(c, "list")
	c.Assert(code, gc.Equals, 0)
	c.Check(stdout, gc.Equals, "ID  Created  Size  Checksum\n")

	info := s.create(c)
	code, stdout, _ = s.run(c, "list")
	c.Assert(code, gc.Equals, 0)
	lines := strings.Split(strings.TrimSuffix(stdout, "\n"), "\n")
	c.Assert(lines, gc.HasLen, 2)
	c.Check(lines[0], gc.Matches, `ID +Created +Size +Checksum`)
	fields := strings.Fields(lines[1])
	c.Check(fields[0], gc.Equals, info.ID)
	c.Check(fields[len(fields)-1], gc.Equals, info.Checksum)
}

func (s *mainSuite) TestShowUnknown(c *gc.C) {
	code, _, stderr := s.run(c, "show", "nope")
	c.Check(code, gc.Equals, 1)
	c.Check(stderr, gc.Matches, `ERROR .*not found\n`)
}

func (s *mainSuite) TestShowNeedsID(c *gc.C) {
	code, _, stderr := s.run(c, "show")
	c.Check(code, gc.Equals, 2)
	c.Check(stderr, gc.Matches, `(?s)ERROR missing backup ID\n.*`)
}

func (s *mainSuite) TestDelete(c *gc.C) {
	info := s.create(c)

	code, _, stderr := s.run(c, "delete", info.ID)
	c.Assert(code, gc.Equals, 0)
	c.Check(stderr, gc.Equals, fmt.Sprintf("deleted backup %s\n", info.ID))
	c.Check(filepath.Join(s.dir, "backups", info.Archive), jc.DoesNotExist)

	code, _, stderr = s.run(c, "delete", info.ID)
	c.Check(code, gc.Equals, 1)
	c.Check(stderr, gc.Matches, fmt.Sprintf(`ERROR deleting backup %q: .*not found\n`, info.ID))
}

func (s *mainSuite) TestReconcile(c *gc.C) {
	kept := s.create(c)
	lost := s.create(c)
	err := os.Remove(filepath.Join(s.dir, "backups", lost.Archive))
	c.Assert(err, jc.ErrorIsNil)

	code, stdout, _ := s.run(c, "reconcile")
	c.Assert(code, gc.Equals, 0)
	var result reconcileResult
	c.Assert(yaml.Unmarshal([]byte(stdout), &result), jc.ErrorIsNil)
	c.Check(result.RemovedRecords, jc.DeepEquals, []string{lost.ID})

	code, stdout, _ = s.run(c, "reconcile")
	c.Assert(code, gc.Equals, 0)
	c.Check(stdout, gc.Equals, "removed-records: []\n")

	code, stdout, _ = s.run(c, "list", "--format", "yaml")
	c.Assert(code, gc.Equals, 0)
	var infos []backupInfo
	c.Assert(yaml.Unmarshal([]byte(stdout), &infos), jc.ErrorIsNil)
	c.Assert(infos, gc.HasLen, 1)
	c.Check(infos[0].ID, gc.Equals, kept.ID)
}

func (s *mainSuite) TestOverrideFlags(c *gc.C) {
	code, _, _ := s.run(c, "create", "--backups-root", "elsewhere")
	c.Assert(code, gc.Equals, 0)
	entries, err := os.ReadDir(filepath.Join(s.dir, "elsewhere"))
	c.Assert(err, jc.ErrorIsNil)
	c.Check(entries, gc.HasLen, 1)
}

func (s *mainSuite) TestInvalidConfig(c *gc.C) {
	err := os.WriteFile(filepath.Join(s.dir, "backupd.yaml"), []byte("bogus-key: 1\n"), 0600)
	c.Assert(err, jc.ErrorIsNil)

	code, _, stderr := s.run(c, "list")
	c.Check(code, gc.Equals, 1)
	c.Check(stderr, gc.Equals, "ERROR invalid configuration: unknown config key \"bogus-key\" not valid\n")
}

func (s *mainSuite) TestMissingConfig(c *gc.C) {
	err := os.Remove(filepath.Join(s.dir, "backupd.yaml"))
	c.Assert(err, jc.ErrorIsNil)

	code, _, stderr := s.run(c, "list")
	c.Check(code, gc.Equals, 1)
	c.Check(stderr, gc.Equals, "ERROR file \"backupd.yaml\" not found\n")
}

func (s *mainSuite) TestHelpListsCommands(c *gc.C) {
	code, stdout, _ := s.run(c, "help")
	c.Check(code, gc.Equals, 0)
	for _, name := range []string{"create", "delete", "list", "reconcile", "serve", "show"} {
		c.Check(stdout, gc.Matches, fmt.Sprintf("(?s).*\n    %s +- .*", name))
	}
}

func (s *mainSuite) TestConfigDurationsReachWorkers(c *gc.C) {
	err := os.WriteFile(filepath.Join(s.dir, "tuned.yaml"), []byte(`
mongo-uri: mongodb://localhost:27017/app
prune-orphan-archives: true
orphan-grace-period: 6h
dump-timeout: 2h
reconcile-interval: 15m
schedule: "@daily"
`), 0600)
	c.Assert(err, jc.ErrorIsNil)

	ctx := cmdtesting.Context(c)
	ctx.Dir = s.dir
	base := configCommandBase{configFile: cmd.FileVar{Path: "tuned.yaml"}}
	cfg, err := base.loadConfig(ctx)
	c.Assert(err, jc.ErrorIsNil)

	serviceConfig := newServiceConfig(cfg, nil)
	c.Check(serviceConfig.DatabaseName, gc.Equals, "app")
	c.Check(serviceConfig.PruneOrphanArchives, jc.IsTrue)
	c.Check(serviceConfig.OrphanGracePeriod, gc.Equals, 6*time.Hour)
	c.Check(serviceConfig.DumpTimeout, gc.Equals, 2*time.Hour)

	schedulerConfig, err := newSchedulerConfig(cfg, nil)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(schedulerConfig.ReconcileInterval, gc.Equals, 15*time.Minute)
	c.Check(schedulerConfig.Schedule, gc.NotNil)
}
