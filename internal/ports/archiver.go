package ports

import (
	"io"
	"os"
)

// ArchiveReader opens archive containers for extraction.
// Production code uses the autoarchive adapter; tests use MockArchiveReader.
type ArchiveReader interface {
	// Open parses the container's central directory and returns an indexed view.
	// Failures wrap ErrArchiveOpen.
	Open(sourcePath string) (Archive, error)
}

// Archive is an immutable, randomly addressable sequence of entries.
// The index is parsed once at open time; entry data is decompressed on demand.
type Archive interface {
	// Len returns the number of entries recorded in the central directory.
	Len() int

	// EntryAt returns the entry at index i (0 <= i < Len).
	// Out-of-range or corrupt headers wrap ErrIndexCorrupt.
	EntryAt(i int) (Entry, error)

	// Close releases the underlying read handle.
	Close() error
}

// Entry is one file or directory record inside an archive.
type Entry interface {
	// Name returns the stored path, always using forward slashes.
	Name() string

	// IsDir reports whether the entry is a directory record.
	IsDir() bool

	// Mode returns the permission bits recorded for the entry.
	Mode() os.FileMode

	// Size returns the declared uncompressed size.
	Size() uint64

	// Open returns a stream of the decompressed content.
	Open() (io.ReadCloser, error)
}
