// Package sevenziparchive provides an archive reader adapter using bodgit/sevenzip.
package sevenziparchive

import (
	"fmt"
	"io"
	"os"

	"github.com/bodgit/sevenzip"

	"github.com/mcdonaldj/unpack/internal/ports"
)

// SevenZipReader implements ports.ArchiveReader for 7z containers.
type SevenZipReader struct{}

// New creates a new SevenZipReader adapter.
func New() *SevenZipReader {
	return &SevenZipReader{}
}

// Open reads the 7z header database of the file at sourcePath.
func (s *SevenZipReader) Open(sourcePath string) (ports.Archive, error) {
	r, err := sevenzip.OpenReader(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ports.ErrArchiveOpen, sourcePath, err)
	}
	return &Archive{rc: r}, nil
}

// Archive is an opened 7z file.
type Archive struct {
	rc *sevenzip.ReadCloser
}

// Len returns the number of entries in the header database.
func (a *Archive) Len() int {
	return len(a.rc.File)
}

// EntryAt returns entry i.
func (a *Archive) EntryAt(i int) (ports.Entry, error) {
	if i < 0 || i >= len(a.rc.File) {
		return nil, fmt.Errorf("%w: index %d out of range [0, %d)", ports.ErrIndexCorrupt, i, len(a.rc.File))
	}
	return &entry{f: a.rc.File[i]}, nil
}

// Close releases the file handle.
func (a *Archive) Close() error {
	return a.rc.Close()
}

type entry struct {
	f *sevenzip.File
}

// Name returns the stored path. 7z stores directory records without a
// trailing separator; the reader appends one when the attributes mark a
// directory, but IsDir stays authoritative.
func (e *entry) Name() string                 { return e.f.Name }
func (e *entry) IsDir() bool                  { return e.f.FileInfo().IsDir() }
func (e *entry) Mode() os.FileMode            { return e.f.Mode() }
func (e *entry) Size() uint64                 { return e.f.UncompressedSize }
func (e *entry) Open() (io.ReadCloser, error) { return e.f.Open() }

// Compile-time checks.
var (
	_ ports.ArchiveReader = (*SevenZipReader)(nil)
	_ ports.Archive       = (*Archive)(nil)
	_ ports.Entry         = (*entry)(nil)
)
