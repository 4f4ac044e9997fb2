// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package cmdtesting provides helpers for testing commands.
package cmdtesting

import (
	"bytes"
	"context"
	"strings"

	gc "gopkg.in/check.v1"

	"github.com/juju/backupd/cmd"
)

// Context returns a command context running in a fresh directory, whose
// stdout and stderr are captured in buffers.
func Context(c *gc.C) *cmd.Context {
	return &cmd.Context{
		Context: context.Background(),
		Dir:     c.MkDir(),
		Stdin:   strings.NewReader(""),
		Stdout:  &bytes.Buffer{},
		Stderr:  &bytes.Buffer{},
	}
}

// Stdout returns what has been written to the context's stdout.
func Stdout(ctx *cmd.Context) string {
	return ctx.Stdout.(*bytes.Buffer).String()
}

// Stderr returns what has been written to the context's stderr.
func Stderr(ctx *cmd.Context) string {
	return ctx.Stderr.(*bytes.Buffer).String()
}

// InitCommand parses args on com.
func InitCommand(com cmd.Command, args []string) error {
	return cmd.Parse(com, args)
}

// RunCommand parses args on com and runs it in a new test context,
// which is returned with any error.
func RunCommand(c *gc.C, com cmd.Command, args ...string) (*cmd.Context, error) {
	ctx := Context(c)
	return ctx, RunCommandInContext(ctx, com, args...)
}

// RunCommandInContext parses args on com and runs it in ctx.
func RunCommandInContext(ctx *cmd.Context, com cmd.Command, args ...string) error {
	if err := cmd.Parse(com, args); err != nil {
		return err
	}
	return com.Run(ctx)
}
