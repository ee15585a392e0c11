package run_test

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/toejough/decoreg/decoreg/run"
)

// MockFileSystem is an in-memory run.FileSystem rooted at ".".
type MockFileSystem struct {
	mu     sync.Mutex
	files  map[string][]byte
	writes []string
}

func newMockFS(files map[string]string) *MockFileSystem {
	mock := &MockFileSystem{files: make(map[string][]byte)}
	for name, content := range files {
		mock.files[name] = []byte(content)
	}

	return mock
}

func (m *MockFileSystem) Getwd() (string, error) {
	return ".", nil
}

func (m *MockFileSystem) MkdirAll(string, os.FileMode) error {
	return nil
}

func (m *MockFileSystem) ReadFile(name string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok := m.files[filepath.Clean(name)]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}

	return bytes.Clone(data), nil
}

func (m *MockFileSystem) Stat(name string) (os.FileInfo, error) {
	info, err := fs.Stat(m.snapshot(), filepath.Clean(name))
	if err != nil {
		return nil, fmt.Errorf("stat: %w", err)
	}

	return info, nil
}

func (m *MockFileSystem) WalkDir(root string, fn fs.WalkDirFunc) error {
	return fs.WalkDir(m.snapshot(), filepath.Clean(root), fn)
}

func (m *MockFileSystem) WriteFile(name string, data []byte, _ os.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.files[filepath.Clean(name)] = bytes.Clone(data)
	m.writes = append(m.writes, filepath.Clean(name))

	return nil
}

// content returns a file's contents, failing the test when it does not exist.
func (m *MockFileSystem) content(t *testing.T, name string) string {
	t.Helper()

	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok := m.files[name]
	if !ok {
		t.Fatalf("Expected %s to exist", name)
	}

	return string(data)
}

// sourceWrites lists the writes outside the cache directory.
func (m *MockFileSystem) sourceWrites() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var writes []string

	for _, name := range m.writes {
		if filepath.Dir(name) != run.CacheDirName {
			writes = append(writes, name)
		}
	}

	return writes
}

func (m *MockFileSystem) snapshot() fstest.MapFS {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := make(fstest.MapFS, len(m.files))
	for name, data := range m.files {
		snapshot[name] = &fstest.MapFile{Data: data, Mode: 0o644}
	}

	return snapshot
}

// result is the captured outcome of one command line.
type result struct {
	stdout string
	stderr string
	err    error
}

// runCLI runs a command line, without the program name, against fileSys.
func runCLI(fileSys run.FileSystem, args ...string) result {
	var stdout, stderr bytes.Buffer

	err := run.Run(context.Background(), append([]string{"decoreg"}, args...), fileSys, &stdout, &stderr)

	return result{stdout: stdout.String(), stderr: stderr.String(), err: err}
}
