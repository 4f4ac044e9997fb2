// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/juju/backupd/cmd"
)

var backupdDoc = `
backupd takes consistent backups of a mongo database. Each backup is a
full export of the database, compressed into a single archive in the
backups root and recorded in the record store.

Run "backupd serve" to start the daemon, or use the other commands to
manage backups directly.
`

// NewBackupdCommand returns the backupd super command with every
// subcommand registered.
func NewBackupdCommand() *cmd.SuperCommand {
	backupd := cmd.NewSuperCommand(cmd.SuperCommandParams{
		Name:             "backupd",
		Purpose:          "manage database backups",
		Doc:              backupdDoc,
		DefaultLogConfig: "<root>=WARNING",
	})
	backupd.Register(newServeCommand())
	backupd.Register(newCreateCommand())
	backupd.Register(newListCommand())
	backupd.Register(newShowCommand())
	backupd.Register(newDeleteCommand())
	backupd.Register(newReconcileCommand())
	return backupd
}

// Main runs backupd with args, returning the exit code.
func Main(args []string) int {
	ctx, err := cmd.DefaultContext(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}
	return NewBackupdCommand().Main(ctx, args[1:])
}

func main() {
	os.Exit(Main(os.Args))
}
