// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package cmd

import (
	"os"

	"github.com/juju/errors"
)

// FileVar represents a path to a file.
type FileVar struct {
	Path string
}

// Set stores the path name.
func (f *FileVar) Set(v string) error {
	f.Path = v
	return nil
}

// IsSet reports whether a path has been given.
func (f *FileVar) IsSet() bool {
	return f.Path != ""
}

// Read returns the contents of the file, relative to the context.
func (f *FileVar) Read(ctx *Context) ([]byte, error) {
	if f.Path == "" {
		return nil, errors.NotValidf("empty path")
	}
	data, err := os.ReadFile(ctx.AbsPath(f.Path))
	if os.IsNotExist(err) {
		return nil, errors.NotFoundf("file %q", f.Path)
	}
	return data, errors.Trace(err)
}

// String returns the path to the file.
func (f *FileVar) String() string {
	return f.Path
}
