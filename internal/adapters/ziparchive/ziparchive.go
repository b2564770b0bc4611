// Package ziparchive provides an archive reader adapter using klauspost/compress/zip.
package ziparchive

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"

	"github.com/mcdonaldj/unpack/internal/ports"
)

// MethodXZ is the APPNOTE compression method id for XZ streams.
const MethodXZ uint16 = 95

// ZipReader implements ports.ArchiveReader for zip containers.
type ZipReader struct{}

// New creates a new ZipReader adapter.
func New() *ZipReader {
	return &ZipReader{}
}

// Open parses the central directory of the zip file at sourcePath.
func (z *ZipReader) Open(sourcePath string) (ports.Archive, error) {
	r, err := zip.OpenReader(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ports.ErrArchiveOpen, sourcePath, err)
	}
	registerDecompressors(&r.Reader)
	return &Archive{rc: r, files: r.File}, nil
}

// NewArchive wraps an in-memory or already opened zip source.
// The caller keeps ownership of src; Close on the result is a no-op.
func NewArchive(src io.ReaderAt, size int64) (*Archive, error) {
	r, err := zip.NewReader(src, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ports.ErrArchiveOpen, err)
	}
	registerDecompressors(r)
	return &Archive{files: r.File}, nil
}

// registerDecompressors adds the WinZip-style methods archive/zip lacks.
func registerDecompressors(r *zip.Reader) {
	r.RegisterDecompressor(zstd.ZipMethodWinZip, zstd.ZipDecompressor())
	r.RegisterDecompressor(MethodXZ, xzDecompressor)
}

func xzDecompressor(r io.Reader) io.ReadCloser {
	xr, err := xz.NewReader(r)
	if err != nil {
		return errReadCloser{err: fmt.Errorf("xz: %w", err)}
	}
	return io.NopCloser(xr)
}

// errReadCloser defers a decompressor setup failure to the first Read.
type errReadCloser struct {
	err error
}

func (e errReadCloser) Read([]byte) (int, error) { return 0, e.err }
func (e errReadCloser) Close() error             { return nil }

// Archive is an opened zip file. Entries are decompressed on demand.
type Archive struct {
	rc    *zip.ReadCloser
	files []*zip.File
}

// Len returns the number of central directory records.
func (a *Archive) Len() int {
	return len(a.files)
}

// EntryAt returns entry i after checking that its local header is readable.
func (a *Archive) EntryAt(i int) (ports.Entry, error) {
	if i < 0 || i >= len(a.files) {
		return nil, fmt.Errorf("%w: index %d out of range [0, %d)", ports.ErrIndexCorrupt, i, len(a.files))
	}
	f := a.files[i]
	if _, err := f.DataOffset(); err != nil {
		return nil, fmt.Errorf("%w: local header of %q: %w", ports.ErrIndexCorrupt, f.Name, err)
	}
	return &entry{f: f}, nil
}

// Close releases the file handle when the archive was opened from a path.
func (a *Archive) Close() error {
	if a.rc == nil {
		return nil
	}
	return a.rc.Close()
}

type entry struct {
	f *zip.File
}

func (e *entry) Name() string      { return e.f.Name }
func (e *entry) IsDir() bool       { return e.f.FileInfo().IsDir() }
func (e *entry) Mode() os.FileMode { return e.f.Mode() }
func (e *entry) Size() uint64      { return e.f.UncompressedSize64 }

func (e *entry) Open() (io.ReadCloser, error) {
	rc, err := e.f.Open()
	if errors.Is(err, zip.ErrAlgorithm) {
		return nil, fmt.Errorf("method %d: %w", e.f.Method, err)
	}
	return rc, err
}

// Compile-time checks.
var (
	_ ports.ArchiveReader = (*ZipReader)(nil)
	_ ports.Archive       = (*Archive)(nil)
	_ ports.Entry         = (*entry)(nil)
)
