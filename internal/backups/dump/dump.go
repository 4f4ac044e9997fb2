// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package dump

import (
	"context"
	"strings"

	"github.com/juju/errors"
	"github.com/juju/utils/v4/exec"
	"github.com/kballard/go-shellquote"

	backuperrors "github.com/juju/backupd/domain/backup/errors"
)

// DefaultBinary is the database export command used unless configured
// otherwise.
const DefaultBinary = "mongodump"

// Logger represents the methods used by the dumper for logging.
type Logger interface {
	Debugf(string, ...interface{})
	Infof(string, ...interface{})
}

// CommandRunner runs shell commands.
type CommandRunner interface {
	RunCommands(ctx context.Context, run exec.RunParams) (*exec.ExecResponse, error)
}

type defaultRunner struct{}

// RunCommands starts the commands and waits for them, killing the process
// if the context is done first.
func (defaultRunner) RunCommands(ctx context.Context, run exec.RunParams) (*exec.ExecResponse, error) {
	if err := run.Run(); err != nil {
		return nil, errors.Trace(err)
	}
	return run.WaitWithCancel(ctx.Done())
}

// Config holds the information needed to export a database.
type Config struct {
	// Binary is the export command, DefaultBinary if empty.
	Binary string

	// URI is the connection string passed to the export command. If empty
	// the command's own default (localhost) is used.
	URI string

	// ExtraArgs are appended to the command line.
	ExtraArgs []string

	// Runner runs the command, the local shell if nil.
	Runner CommandRunner

	Logger Logger
}

// Validate returns an error if the config cannot be used.
func (c Config) Validate() error {
	if c.Logger == nil {
		return errors.NotValidf("nil Logger")
	}
	return nil
}

// Dumper exports a full logical snapshot of a database into a directory.
type Dumper struct {
	binary    string
	uri       string
	extraArgs []string
	runner    CommandRunner
	logger    Logger
}

// NewDumper returns a new Dumper.
func NewDumper(config Config) (*Dumper, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	d := &Dumper{
		binary:    config.Binary,
		uri:       config.URI,
		extraArgs: config.ExtraArgs,
		runner:    config.Runner,
		logger:    config.Logger,
	}
	if d.binary == "" {
		d.binary = DefaultBinary
	}
	if d.runner == nil {
		d.runner = defaultRunner{}
	}
	return d, nil
}

// Args returns the command line used to dump databaseName into destDir.
// --quiet keeps the export tool from writing progress to stderr, which is
// where it reports problems.
func (d *Dumper) Args(databaseName, destDir string) []string {
	args := []string{d.binary, "--quiet"}
	if d.uri != "" {
		args = append(args, "--uri", d.uri)
	}
	args = append(args, "--db", databaseName, "--out", destDir)
	return append(args, d.extraArgs...)
}

// Dump writes the full contents of databaseName into destDir. A failure to
// run, a non-zero exit code and any diagnostic output are all failures;
// there is no partial success.
func (d *Dumper) Dump(ctx context.Context, databaseName, destDir string) error {
	if databaseName == "" {
		return errors.WithType(errors.NotValidf("empty database name"), backuperrors.DumpFailed)
	}
	if destDir == "" {
		return errors.WithType(errors.NotValidf("empty output directory"), backuperrors.DumpFailed)
	}

	d.logger.Infof("dumping database %q into %q", databaseName, destDir)
	command := shellquote.Join(d.Args(databaseName, destDir)...)
	result, err := d.runner.RunCommands(ctx, exec.RunParams{
		Commands: command,
	})
	if err != nil {
		return errors.WithType(errors.Annotatef(err, "running %s", d.binary), backuperrors.DumpFailed)
	}
	d.logger.Debugf("%s stdout: %s", d.binary, result.Stdout)

	stderr := strings.TrimSpace(string(result.Stderr))
	if result.Code != 0 {
		return errors.WithType(
			errors.Errorf("%s exited with code %d: %s", d.binary, result.Code, stderr), backuperrors.DumpFailed)
	}
	if stderr != "" {
		return errors.WithType(
			errors.Errorf("%s reported diagnostics: %s", d.binary, stderr), backuperrors.DumpFailed)
	}
	return nil
}
