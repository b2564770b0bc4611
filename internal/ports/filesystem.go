// Package ports defines interfaces (contracts) for external dependencies.
// These enable dependency injection and testability via mock implementations.
package ports

import (
	"io"
	"io/fs"
	"os"
)

// FileSystem abstracts filesystem operations for testability.
// Production code uses OSFileSystem adapter; tests use MockFileSystem.
type FileSystem interface {
	// Stat returns file info for the named file.
	Stat(name string) (os.FileInfo, error)

	// MkdirAll creates a directory along with any necessary parents.
	MkdirAll(path string, perm os.FileMode) error

	// Create creates or truncates the named file.
	Create(name string) (io.WriteCloser, error)

	// Open opens the named file for reading.
	Open(name string) (fs.File, error)
}
