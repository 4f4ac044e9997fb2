// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package main

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/juju/ansiterm"
	"github.com/juju/errors"
	"github.com/juju/gnuflag"

	"github.com/juju/backupd/cmd"
	"github.com/juju/backupd/core/backup"
)

// backupInfo is the output form of a backup record.
type backupInfo struct {
	ID       string    `yaml:"id" json:"id"`
	Archive  string    `yaml:"archive" json:"archive"`
	Created  time.Time `yaml:"created" json:"created"`
	Restored bool      `yaml:"restored" json:"restored"`
	Size     int64     `yaml:"size" json:"size"`
	Checksum string    `yaml:"checksum,omitempty" json:"checksum,omitempty"`
}

func toBackupInfo(record backup.Record) backupInfo {
	return backupInfo{
		ID:       record.ID,
		Archive:  record.ArchiveRef,
		Created:  record.CreatedAt,
		Restored: record.Restored,
		Size:     record.Size,
		Checksum: record.Checksum,
	}
}

// backupCommandBase is embedded by the commands that act on backups and
// print the outcome.
type backupCommandBase struct {
	configCommandBase
	out cmd.Output
}

func (c *backupCommandBase) SetFlags(f *gnuflag.FlagSet) {
	c.configCommandBase.SetFlags(f)
	c.out.AddFlags(f, "yaml", cmd.DefaultFormatters)
}

// withService runs fn with a backup service built from the command's
// configuration.
func (c *backupCommandBase) withService(ctx *cmd.Context, fn func(backupService) error) error {
	cfg, err := c.loadConfig(ctx)
	if err != nil {
		return errors.Trace(err)
	}
	b, err := newBackend(ctx, cfg, nil)
	if err != nil {
		return errors.Trace(err)
	}
	defer func() {
		if err := b.Close(); err != nil {
			logger.Warningf("closing record store: %v", err)
		}
	}()
	return fn(b.service)
}

type createCommand struct {
	backupCommandBase
}

func newCreateCommand() *createCommand {
	return &createCommand{}
}

func (c *createCommand) Info() *cmd.Info {
	return &cmd.Info{
		Name:    "create",
		Purpose: "take a new backup",
		Doc: `
Dumps the configured database, compresses the dump into an archive in the
backups root and records it. The new record is printed.
`,
	}
}

func (c *createCommand) Init(args []string) error {
	return cmd.CheckEmpty(args)
}

func (c *createCommand) Run(ctx *cmd.Context) error {
	return c.withService(ctx, func(svc backupService) error {
		record, err := svc.CreateBackup(ctx)
		if err != nil {
			return errors.Annotate(err, "creating backup")
		}
		ctx.Infof("created backup %s (%s)", record.ID, humanize.Bytes(uint64(record.Size)))
		return c.out.Write(ctx, toBackupInfo(record))
	})
}

type listCommand struct {
	backupCommandBase
}

func newListCommand() *listCommand {
	return &listCommand{}
}

func (c *listCommand) Info() *cmd.Info {
	return &cmd.Info{
		Name:    "list",
		Purpose: "list the recorded backups, newest first",
	}
}

func (c *listCommand) SetFlags(f *gnuflag.FlagSet) {
	c.configCommandBase.SetFlags(f)
	c.out.AddFlags(f, "tabular", map[string]cmd.Formatter{
		"yaml":    cmd.FormatYaml,
		"json":    cmd.FormatJson,
		"tabular": formatBackupsTabular,
	})
}

func (c *listCommand) Init(args []string) error {
	return cmd.CheckEmpty(args)
}

func (c *listCommand) Run(ctx *cmd.Context) error {
	return c.withService(ctx, func(svc backupService) error {
		records, err := svc.ListBackups(ctx)
		if err != nil {
			return errors.Trace(err)
		}
		infos := make([]backupInfo, len(records))
		for i, record := range records {
			infos[i] = toBackupInfo(record)
		}
		return c.out.Write(ctx, infos)
	})
}

// formatBackupsTabular writes a []backupInfo as a table.
func formatBackupsTabular(w io.Writer, value interface{}) error {
	infos, ok := value.([]backupInfo)
	if !ok {
		return errors.Errorf("expected value of type %T, got %T", infos, value)
	}
	tw := ansiterm.NewTabWriter(w, 0, 1, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCreated\tSize\tChecksum")
	for _, info := range infos {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			info.ID,
			info.Created.Format(time.RFC3339),
			humanize.Bytes(uint64(info.Size)),
			info.Checksum,
		)
	}
	return errors.Trace(tw.Flush())
}

type showCommand struct {
	backupCommandBase
	id string
}

func newShowCommand() *showCommand {
	return &showCommand{}
}

func (c *showCommand) Info() *cmd.Info {
	return &cmd.Info{
		Name:    "show",
		Args:    "<id>",
		Purpose: "show a single backup",
	}
}

func (c *showCommand) Init(args []string) error {
	if len(args) == 0 {
		return errors.New("missing backup ID")
	}
	c.id, args = args[0], args[1:]
	return cmd.CheckEmpty(args)
}

func (c *showCommand) Run(ctx *cmd.Context) error {
	return c.withService(ctx, func(svc backupService) error {
		record, err := svc.GetBackup(ctx, c.id)
		if err != nil {
			return errors.Trace(err)
		}
		return c.out.Write(ctx, toBackupInfo(record))
	})
}

type deleteCommand struct {
	backupCommandBase
	ids []string
}

func newDeleteCommand() *deleteCommand {
	return &deleteCommand{}
}

func (c *deleteCommand) Info() *cmd.Info {
	return &cmd.Info{
		Name:    "delete",
		Args:    "<id> ...",
		Purpose: "delete backups",
		Doc: `
Removes the archive and the record of each backup. Deletion stops at the
first backup that cannot be deleted.
`,
	}
}

func (c *deleteCommand) Init(args []string) error {
	if len(args) == 0 {
		return errors.New("missing backup ID")
	}
	c.ids = args
	return nil
}

func (c *deleteCommand) Run(ctx *cmd.Context) error {
	return c.withService(ctx, func(svc backupService) error {
		for _, id := range c.ids {
			if err := svc.DeleteBackup(ctx, id); err != nil {
				return errors.Annotatef(err, "deleting backup %q", id)
			}
			ctx.Infof("deleted backup %s", id)
		}
		return nil
	})
}

// reconcileResult is the output form of a reconciliation pass.
type reconcileResult struct {
	RemovedRecords  []string `yaml:"removed-records" json:"removed-records"`
	RemovedArchives []string `yaml:"removed-archives,omitempty" json:"removed-archives,omitempty"`
}

type reconcileCommand struct {
	backupCommandBase
}

func newReconcileCommand() *reconcileCommand {
	return &reconcileCommand{}
}

func (c *reconcileCommand) Info() *cmd.Info {
	return &cmd.Info{
		Name:    "reconcile",
		Purpose: "remove the records of backups whose archive is gone",
		Doc: `
Compares the archives in the backups root with the recorded backups and
removes every record without an archive. With prune-orphan-archives set,
archives without a record are removed as well.
`,
	}
}

func (c *reconcileCommand) Init(args []string) error {
	return cmd.CheckEmpty(args)
}

func (c *reconcileCommand) Run(ctx *cmd.Context) error {
	return c.withService(ctx, func(svc backupService) error {
		result, err := svc.Reconcile(ctx)
		if err != nil {
			return errors.Annotate(err, "reconciling backups")
		}
		out := reconcileResult{
			RemovedRecords:  result.RemovedRecords,
			RemovedArchives: result.RemovedArchives,
		}
		if out.RemovedRecords == nil {
			out.RemovedRecords = []string{}
		}
		return c.out.Write(ctx, out)
	})
}
