// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/juju/errors"
	"github.com/juju/gnuflag"
	"github.com/juju/loggo/v2"
)

var logger = loggo.GetLogger("backupd.cmd")

// SuperCommandParams provides a way to have default parameter to the
// NewSuperCommand call.
type SuperCommandParams struct {
	Name    string
	Purpose string
	Doc     string

	// DefaultLogConfig is applied before the --logging-config flag.
	DefaultLogConfig string
}

// SuperCommand is a Command that selects a subcommand and assumes its
// properties; any command line arguments that were not used in selecting
// the subcommand are passed down to it.
type SuperCommand struct {
	params SuperCommandParams

	subcmds map[string]Command
	subcmd  Command

	logConfig string
	verbose   bool
	showHelp  bool
}

// NewSuperCommand creates and initializes a new SuperCommand.
func NewSuperCommand(params SuperCommandParams) *SuperCommand {
	return &SuperCommand{
		params:  params,
		subcmds: make(map[string]Command),
	}
}

// Register makes a subcommand available for use on the command line.
func (c *SuperCommand) Register(subcmd Command) {
	name := subcmd.Info().Name
	if _, found := c.subcmds[name]; found {
		panic(fmt.Sprintf("command already registered: %q", name))
	}
	c.subcmds[name] = subcmd
}

// Info is part of the Command interface.
func (c *SuperCommand) Info() *Info {
	if c.subcmd != nil {
		info := *c.subcmd.Info()
		info.Name = c.params.Name + " " + info.Name
		return &info
	}
	return &Info{
		Name:    c.params.Name,
		Args:    "<command> ...",
		Purpose: c.params.Purpose,
		Doc:     strings.TrimSpace(c.params.Doc + "\n\n" + c.describeCommands()),
	}
}

func (c *SuperCommand) describeCommands() string {
	names := make([]string, 0, len(c.subcmds))
	width := 0
	for name := range c.subcmds {
		names = append(names, name)
		if len(name) > width {
			width = len(name)
		}
	}
	sort.Strings(names)
	lines := []string{"commands:"}
	for _, name := range names {
		lines = append(lines, fmt.Sprintf("    %-*s - %s", width, name, c.subcmds[name].Info().Purpose))
	}
	return strings.Join(lines, "\n")
}

// SetFlags is part of the Command interface.
func (c *SuperCommand) SetFlags(f *gnuflag.FlagSet) {
	f.StringVar(&c.logConfig, "logging-config", c.params.DefaultLogConfig, "specify log levels for modules")
	f.BoolVar(&c.verbose, "v", false, "show debug logging")
	f.BoolVar(&c.verbose, "verbose", false, "")
	f.BoolVar(&c.showHelp, "h", false, "show help")
	f.BoolVar(&c.showHelp, "help", false, "")
	if c.subcmd != nil {
		c.subcmd.SetFlags(f)
	}
}

// Init selects the subcommand named by the first argument and
// initializes it with the rest.
func (c *SuperCommand) Init(args []string) error {
	if len(args) == 0 {
		return errors.New("no command specified")
	}
	subcmd, found := c.subcmds[args[0]]
	if !found {
		return errors.Errorf("unrecognized command: %s %s", c.params.Name, args[0])
	}
	c.subcmd = subcmd
	return nil
}

// Run configures logging and runs the selected subcommand.
func (c *SuperCommand) Run(ctx *Context) error {
	if c.subcmd == nil {
		return errors.New("no command selected")
	}
	if err := loggo.ConfigureLoggers(c.logConfig); err != nil {
		return errors.Annotate(err, "configuring logging")
	}
	if c.verbose {
		loggo.GetLogger("").SetLogLevel(loggo.DEBUG)
	}
	logger.Debugf("running %s", c.Info().Name)
	return c.subcmd.Run(ctx)
}

// Main selects and runs a subcommand, returning the process exit code.
// Flags of the super command may appear before or after the subcommand
// name; flags of the subcommand only after it.
func (c *SuperCommand) Main(ctx *Context, args []string) int {
	c.subcmd = nil
	f := NewFlagSet(c)
	if err := f.Parse(false, args); err != nil {
		return c.usageError(ctx, err)
	}
	rest := f.Args()
	switch {
	case len(rest) == 0:
		PrintUsage(c, ctx.Stdout)
		if c.showHelp {
			return 0
		}
		return 2
	case rest[0] == "help":
		if len(rest) > 1 {
			c.subcmd = c.subcmds[rest[1]]
		}
		PrintUsage(c, ctx.Stdout)
		return 0
	}
	if err := c.Init(rest[:1]); err != nil {
		fmt.Fprintf(ctx.Stderr, "ERROR %v\n", err)
		return 2
	}

	// Parse again with the subcommand's flags, leaving out its name.
	pos := len(args) - len(rest)
	subArgs := append(append([]string(nil), args[:pos]...), args[pos+1:]...)
	f = NewFlagSet(c)
	if err := f.Parse(true, subArgs); err != nil {
		return c.usageError(ctx, err)
	}
	if c.showHelp {
		PrintUsage(c, ctx.Stdout)
		return 0
	}
	if err := c.subcmd.Init(f.Args()); err != nil {
		return c.usageError(ctx, err)
	}
	if err := c.Run(ctx); err != nil {
		if err != ErrSilent {
			logger.Debugf("%s failed: %s", c.Info().Name, errors.Details(err))
			fmt.Fprintf(ctx.Stderr, "ERROR %v\n", err)
		}
		return 1
	}
	return 0
}

func (c *SuperCommand) usageError(ctx *Context, err error) int {
	fmt.Fprintf(ctx.Stderr, "ERROR %v\n", err)
	printShortUsage(c, ctx.Stderr)
	return 2
}

func printShortUsage(c Command, w io.Writer) {
	fmt.Fprintf(w, "usage: %s\n", c.Info().Usage())
}
