package mocks

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mcdonaldj/unpack/internal/ports"
)

// MockArchiveReader implements ports.ArchiveReader for testing.
type MockArchiveReader struct {
	// Archives maps source paths to the archive returned by Open
	Archives map[string]*MockArchive
	// Errors maps source paths to Open errors
	Errors map[string]error
	// OpenCalls records every path passed to Open
	OpenCalls []string
}

// NewMockArchiveReader creates a new mock archive reader.
func NewMockArchiveReader() *MockArchiveReader {
	return &MockArchiveReader{
		Archives: make(map[string]*MockArchive),
		Errors:   make(map[string]error),
	}
}

// Open returns the configured archive for sourcePath.
func (m *MockArchiveReader) Open(sourcePath string) (ports.Archive, error) {
	m.OpenCalls = append(m.OpenCalls, sourcePath)
	if err, ok := m.Errors[sourcePath]; ok {
		return nil, err
	}
	if a, ok := m.Archives[sourcePath]; ok {
		return a, nil
	}
	return nil, fmt.Errorf("%w: %s: %w", ports.ErrArchiveOpen, sourcePath, os.ErrNotExist)
}

// MockArchive implements ports.Archive over a fixed entry list.
type MockArchive struct {
	Entries []*MockEntry
	// EntryErrors maps indexes to EntryAt errors
	EntryErrors map[int]error
	// Accessed records indexes in the order EntryAt was called
	Accessed []int
	Closed   bool
}

// NewMockArchive creates an archive holding entries in index order.
func NewMockArchive(entries ...*MockEntry) *MockArchive {
	return &MockArchive{
		Entries:     entries,
		EntryErrors: make(map[int]error),
	}
}

// Len returns the number of entries.
func (m *MockArchive) Len() int {
	return len(m.Entries)
}

// EntryAt returns entry i or the configured error.
func (m *MockArchive) EntryAt(i int) (ports.Entry, error) {
	m.Accessed = append(m.Accessed, i)
	if err, ok := m.EntryErrors[i]; ok {
		return nil, err
	}
	if i < 0 || i >= len(m.Entries) {
		return nil, fmt.Errorf("%w: index %d", ports.ErrIndexCorrupt, i)
	}
	return m.Entries[i], nil
}

// Close marks the archive closed.
func (m *MockArchive) Close() error {
	m.Closed = true
	return nil
}

// MockEntry implements ports.Entry.
type MockEntry struct {
	EntryName string
	Content   []byte
	// DeclaredSize overrides len(Content) for Size when non-zero
	DeclaredSize uint64
	// OpenErr is returned from Open
	OpenErr error
	// ReadErr is returned after Content has been read
	ReadErr error
}

// File creates a file entry with the given content.
func File(name, content string) *MockEntry {
	return &MockEntry{EntryName: name, Content: []byte(content)}
}

// Dir creates a directory marker entry. A trailing slash is added if missing.
func Dir(name string) *MockEntry {
	if !strings.HasSuffix(name, "/") {
		name += "/"
	}
	return &MockEntry{EntryName: name}
}

func (e *MockEntry) Name() string { return e.EntryName }
func (e *MockEntry) IsDir() bool  { return strings.HasSuffix(e.EntryName, "/") }

func (e *MockEntry) Mode() os.FileMode {
	if e.IsDir() {
		return os.ModeDir | 0o755
	}
	return 0o644
}

func (e *MockEntry) Size() uint64 {
	if e.DeclaredSize != 0 {
		return e.DeclaredSize
	}
	return uint64(len(e.Content))
}

// Open returns a reader over Content.
func (e *MockEntry) Open() (io.ReadCloser, error) {
	if e.OpenErr != nil {
		return nil, e.OpenErr
	}
	var r io.Reader = bytes.NewReader(e.Content)
	if e.ReadErr != nil {
		r = io.MultiReader(r, errReader{e.ReadErr})
	}
	return io.NopCloser(r), nil
}

type errReader struct{ err error }

func (r errReader) Read([]byte) (int, error) { return 0, r.err }

// ErrInjected is a generic failure for error-path tests.
var ErrInjected = errors.New("injected error")

// Compile-time checks.
var (
	_ ports.ArchiveReader = (*MockArchiveReader)(nil)
	_ ports.Archive       = (*MockArchive)(nil)
	_ ports.Entry         = (*MockEntry)(nil)
)
