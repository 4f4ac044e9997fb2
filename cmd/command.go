// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package cmd provides a small command framework on top of gnuflag: a
// Command parses its own flags and positional arguments, and runs in a
// Context holding its working directory and standard streams.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/juju/errors"
	"github.com/juju/gnuflag"
)

// ErrSilent can be returned from Run to signal that Main should exit with
// code 1 without producing error output.
var ErrSilent = errors.New("cmd: error out silently")

// Info holds everything necessary to describe a Command's intent and usage.
type Info struct {
	// Name is the Command's name.
	Name string

	// Args describes the command's expected arguments.
	Args string

	// Purpose is a short explanation of the Command's purpose.
	Purpose string

	// Doc is the long documentation for the Command.
	Doc string
}

// Usage combines Name and Args to describe the Command's intended usage.
func (i *Info) Usage() string {
	if i.Args == "" {
		return i.Name + " [options]"
	}
	return fmt.Sprintf("%s [options] %s", i.Name, i.Args)
}

// Command is implemented by types that interpret command-line arguments.
type Command interface {
	// Info returns information about the command.
	Info() *Info

	// SetFlags adds the command's flags to f.
	SetFlags(f *gnuflag.FlagSet)

	// Init is called with the positional arguments left after the flags
	// have been parsed.
	Init(args []string) error

	// Run executes the command.
	Run(ctx *Context) error
}

// Context represents the run context of a Command.
type Context struct {
	context.Context

	Dir    string
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// DefaultContext returns a Context for the current process.
func DefaultContext(ctx context.Context) (*Context, error) {
	dir, err := os.Getwd()
	if err != nil {
		return nil, errors.Trace(err)
	}
	return &Context{
		Context: ctx,
		Dir:     dir,
		Stdin:   os.Stdin,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	}, nil
}

// AbsPath returns an absolute representation of path, relative to the
// context's working directory.
func (ctx *Context) AbsPath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(ctx.Dir, path)
}

// Infof writes a line to the context's stderr.
func (ctx *Context) Infof(format string, params ...interface{}) {
	fmt.Fprintf(ctx.Stderr, format+"\n", params...)
}

// NewFlagSet returns a FlagSet initialized for use with c.
func NewFlagSet(c Command) *gnuflag.FlagSet {
	f := gnuflag.NewFlagSet(c.Info().Name, gnuflag.ContinueOnError)
	f.SetOutput(io.Discard)
	c.SetFlags(f)
	f.Usage = func() {}
	return f
}

// PrintUsage prints usage information for c to w.
func PrintUsage(c Command, w io.Writer) {
	i := c.Info()
	fmt.Fprintf(w, "usage: %s\n", i.Usage())
	if i.Purpose != "" {
		fmt.Fprintf(w, "purpose: %s\n", i.Purpose)
	}
	f := NewFlagSet(c)
	f.SetOutput(w)
	hasFlags := false
	f.VisitAll(func(*gnuflag.Flag) { hasFlags = true })
	if hasFlags {
		fmt.Fprintf(w, "\noptions:\n")
		f.PrintDefaults()
	}
	if i.Doc != "" {
		fmt.Fprintf(w, "\n%s\n", strings.TrimSpace(i.Doc))
	}
}

// Parse parses args on c. This must be called before c is Run.
func Parse(c Command, args []string) error {
	f := NewFlagSet(c)
	if err := f.Parse(true, args); err != nil {
		return err
	}
	return c.Init(f.Args())
}

// CheckEmpty is a utility function that returns an error if args is not empty.
func CheckEmpty(args []string) error {
	if len(args) != 0 {
		return errors.Errorf("unrecognized args: %q", args)
	}
	return nil
}

// Main parses args and runs c in ctx, returning the process exit code.
func Main(c Command, ctx *Context, args []string) int {
	if err := Parse(c, args); err != nil {
		if err == gnuflag.ErrHelp {
			PrintUsage(c, ctx.Stdout)
			return 0
		}
		fmt.Fprintf(ctx.Stderr, "ERROR %v\n", err)
		PrintUsage(c, ctx.Stderr)
		return 2
	}
	if err := c.Run(ctx); err != nil {
		if err != ErrSilent {
			logger.Debugf("%s command failed: %s", c.Info().Name, errors.Details(err))
			fmt.Fprintf(ctx.Stderr, "ERROR %v\n", err)
		}
		return 1
	}
	return 0
}
