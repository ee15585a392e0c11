// decoreg inserts registration calls after decorated JavaScript classes.
// To use it, install it with `go install github.com/toejough/decoreg/decoreg@latest` and run
// `decoreg transform` in a project root. Every class declaration marked with `@component()` gets
// a `Register.Register.customElement(<Class>, storage.storage)` call right after it, and the
// registrar and storage modules are imported once each. Run `decoreg config init` to write a
// .decoreg.yaml selecting a different decorator, modules, naming style or file globs.
package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/toejough/decoreg/decoreg/run"
)

// main is the entry point of the decoreg tool.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := run.Run(ctx, os.Args, &realFileSystem{}, os.Stdout, os.Stderr)

	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// realFileSystem implements run.FileSystem using the os package.
type realFileSystem struct{}

// Getwd returns the working directory.
func (fsys *realFileSystem) Getwd() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}

	return dir, nil
}

// MkdirAll creates path and any missing parents.
func (fsys *realFileSystem) MkdirAll(path string, perm os.FileMode) error {
	err := os.MkdirAll(path, perm)
	if err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}

	return nil
}

// ReadFile reads the file named by name and returns the contents.
func (fsys *realFileSystem) ReadFile(name string) ([]byte, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", name, err)
	}

	return data, nil
}

// Stat returns the file info of name.
func (fsys *realFileSystem) Stat(name string) (os.FileInfo, error) {
	info, err := os.Stat(name)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", name, err)
	}

	return info, nil
}

// WalkDir walks the tree rooted at root.
func (fsys *realFileSystem) WalkDir(root string, fn fs.WalkDirFunc) error {
	return filepath.WalkDir(root, fn) //nolint:wrapcheck // errors come from fn
}

// WriteFile writes data to the file named by name.
func (fsys *realFileSystem) WriteFile(name string, data []byte, perm os.FileMode) error {
	err := os.WriteFile(name, data, perm)
	if err != nil {
		return fmt.Errorf("failed to write file %s: %w", name, err)
	}

	return nil
}
