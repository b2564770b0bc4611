// Package mocks provides mock implementations for testing.
package mocks

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/mcdonaldj/unpack/internal/ports"
)

// MockFileSystem implements ports.FileSystem for testing.
type MockFileSystem struct {
	// Files maps paths to file contents written through Create
	Files map[string][]byte
	// Dirs records directories created through MkdirAll
	Dirs map[string]bool
	// Errors maps paths to errors (for simulating failures)
	Errors map[string]error
	// WriteErrors maps paths to errors returned from Write on created files
	WriteErrors map[string]error
	// Calls records every method call as "Method path" in order
	Calls []string
}

// NewMockFileSystem creates a new mock filesystem.
func NewMockFileSystem() *MockFileSystem {
	return &MockFileSystem{
		Files:       make(map[string][]byte),
		Dirs:        make(map[string]bool),
		Errors:      make(map[string]error),
		WriteErrors: make(map[string]error),
	}
}

// Stat returns file info for the named file.
func (m *MockFileSystem) Stat(name string) (os.FileInfo, error) {
	m.Calls = append(m.Calls, "Stat "+name)
	if err, ok := m.Errors[name]; ok {
		return nil, err
	}
	if m.Dirs[name] {
		return &mockFileInfo{name: filepath.Base(name), isDir: true}, nil
	}
	if content, ok := m.Files[name]; ok {
		return &mockFileInfo{name: filepath.Base(name), size: int64(len(content))}, nil
	}
	return nil, os.ErrNotExist
}

// MkdirAll creates a directory along with any necessary parents.
func (m *MockFileSystem) MkdirAll(path string, perm os.FileMode) error {
	m.Calls = append(m.Calls, "MkdirAll "+path)
	if err, ok := m.Errors[path]; ok {
		return err
	}
	// Mark directory and its parents as existing
	for p := path; ; p = filepath.Dir(p) {
		m.Dirs[p] = true
		if filepath.Dir(p) == p {
			break
		}
	}
	return nil
}

// Create creates or truncates the named file.
func (m *MockFileSystem) Create(name string) (io.WriteCloser, error) {
	m.Calls = append(m.Calls, "Create "+name)
	if err, ok := m.Errors[name]; ok {
		return nil, err
	}
	m.Files[name] = []byte{}
	return &mockWriter{fs: m, name: name, err: m.WriteErrors[name]}, nil
}

// Open opens the named file for reading.
func (m *MockFileSystem) Open(name string) (fs.File, error) {
	m.Calls = append(m.Calls, "Open "+name)
	if err, ok := m.Errors[name]; ok {
		return nil, err
	}
	content, ok := m.Files[name]
	if !ok {
		return nil, os.ErrNotExist
	}
	return &mockFile{name: name, r: bytes.NewReader(content)}, nil
}

// CallsTo returns the recorded calls for one method name, in order.
func (m *MockFileSystem) CallsTo(method string) []string {
	var out []string
	for _, c := range m.Calls {
		if strings.HasPrefix(c, method+" ") {
			out = append(out, strings.TrimPrefix(c, method+" "))
		}
	}
	return out
}

// FileNames returns the paths of all created files, sorted.
func (m *MockFileSystem) FileNames() []string {
	names := make([]string, 0, len(m.Files))
	for name := range m.Files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// mockWriter appends to MockFileSystem.Files on every Write.
type mockWriter struct {
	fs     *MockFileSystem
	name   string
	err    error
	closed bool
}

func (w *mockWriter) Write(p []byte) (int, error) {
	if w.closed {
		return 0, errors.New("write on closed file")
	}
	if w.err != nil {
		return 0, w.err
	}
	w.fs.Files[w.name] = append(w.fs.Files[w.name], p...)
	return len(p), nil
}

func (w *mockWriter) Close() error {
	w.closed = true
	return nil
}

// mockFileInfo implements os.FileInfo for testing.
type mockFileInfo struct {
	name    string
	size    int64
	mode    os.FileMode
	modTime time.Time
	isDir   bool
}

func (fi *mockFileInfo) Name() string       { return fi.name }
func (fi *mockFileInfo) Size() int64        { return fi.size }
func (fi *mockFileInfo) Mode() os.FileMode  { return fi.mode }
func (fi *mockFileInfo) ModTime() time.Time { return fi.modTime }
func (fi *mockFileInfo) IsDir() bool        { return fi.isDir }
func (fi *mockFileInfo) Sys() interface{}   { return nil }

// mockFile implements fs.File for testing.
type mockFile struct {
	name string
	r    *bytes.Reader
}

func (f *mockFile) Stat() (fs.FileInfo, error) {
	return &mockFileInfo{name: filepath.Base(f.name), size: f.r.Size()}, nil
}

func (f *mockFile) Read(p []byte) (int, error) { return f.r.Read(p) }

func (f *mockFile) Close() error { return nil }

// Compile-time check that MockFileSystem implements ports.FileSystem.
var _ ports.FileSystem = (*MockFileSystem)(nil)
