// Package extract drives the per-entry extraction loop.
package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mcdonaldj/unpack/internal/adapters/autoarchive"
	"github.com/mcdonaldj/unpack/internal/adapters/osfs"
	"github.com/mcdonaldj/unpack/internal/pathresolve"
	"github.com/mcdonaldj/unpack/internal/ports"
)

// DefaultProgressEvery is how many entries pass between progress updates.
const DefaultProgressEvery = 256

const dirPerm os.FileMode = 0o755

// Options tunes a single extraction run. The zero value is usable.
type Options struct {
	// Progress receives index updates and per-entry failures. May be nil.
	Progress ports.ProgressReporter

	// ProgressEvery is the update cadence in entries (DefaultProgressEvery if <= 0).
	ProgressEvery int

	// MaxEntrySize rejects entries larger than this many bytes (0 disables).
	MaxEntrySize uint64
}

// Service extracts archives with injected dependencies.
type Service struct {
	fs     ports.FileSystem
	reader ports.ArchiveReader
}

// NewService creates a new extraction service with the given dependencies.
func NewService(fs ports.FileSystem, reader ports.ArchiveReader) *Service {
	return &Service{
		fs:     fs,
		reader: reader,
	}
}

// NewDefaultService creates an extraction service with real production dependencies.
func NewDefaultService() *Service {
	return NewService(
		osfs.New(),
		autoarchive.New(),
	)
}

// ExtractFile opens archivePath and extracts it into rootDir, creating
// rootDir if needed. Open failures are returned before anything is written.
func (s *Service) ExtractFile(ctx context.Context, archivePath, rootDir string, opts Options) (*Result, error) {
	archive, err := s.reader.Open(archivePath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = archive.Close() }()

	root := pathresolve.LongPath(rootDir)
	if err := s.fs.MkdirAll(root, dirPerm); err != nil {
		return nil, fmt.Errorf("creating destination %s: %w", rootDir, err)
	}

	return s.Extract(ctx, archive, root, opts)
}

// Extract writes every entry of archive below rootDir in index order.
// Per-entry failures are collected in the Result; only a corrupt index or a
// cancelled context stops the run, and the partial Result is returned with it.
func (s *Service) Extract(ctx context.Context, archive ports.Archive, rootDir string, opts Options) (*Result, error) {
	every := opts.ProgressEvery
	if every <= 0 {
		every = DefaultProgressEvery
	}

	n := archive.Len()
	res := &Result{Entries: n}
	r := &run{svc: s, opts: opts, res: res}

	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if i%every == 0 {
			r.progress(i, n)
		}

		entry, err := archive.EntryAt(i)
		if err != nil {
			if !errors.Is(err, ports.ErrIndexCorrupt) {
				err = fmt.Errorf("%w: %w", ports.ErrIndexCorrupt, err)
			}
			return res, fmt.Errorf("reading entry %d: %w", i, err)
		}

		r.entry(i, rootDir, entry)
	}

	r.progress(n, n)
	return res, nil
}

// run carries the state of one Extract call.
type run struct {
	svc  *Service
	opts Options
	res  *Result
}

func (r *run) progress(current, total int) {
	if r.opts.Progress != nil {
		r.opts.Progress.Update(current, total)
	}
}

func (r *run) fail(index int, path string, kind ErrorKind, err error) {
	e := EntryError{Index: index, Path: path, Kind: kind, Err: err}
	r.res.Errors = append(r.res.Errors, e)
	if r.opts.Progress != nil {
		r.opts.Progress.Failed(e.Failure())
	}
}

func (r *run) entry(index int, rootDir string, entry ports.Entry) {
	name, ok := pathresolve.EnclosedName(entry.Name())
	if !ok {
		r.res.Skipped++
		return
	}

	dest, err := pathresolve.Resolve(rootDir, name)
	if err != nil {
		r.fail(index, name, KindTraversal, err)
		return
	}

	if strings.HasSuffix(name, pathresolve.Separator) || entry.IsDir() {
		if err := r.svc.fs.MkdirAll(dest, dirPerm); err != nil {
			r.fail(index, dest, KindDirCreate, err)
			return
		}
		r.res.Dirs++
		return
	}

	parent := filepath.Dir(dest)
	if _, err := r.svc.fs.Stat(parent); err != nil {
		if err := r.svc.fs.MkdirAll(parent, dirPerm); err != nil {
			r.fail(index, parent, KindDirCreate, err)
			return
		}
	}

	limit := r.opts.MaxEntrySize
	if limit > 0 && entry.Size() > limit {
		r.fail(index, name, KindTooLarge,
			fmt.Errorf("%w: %d bytes declared, limit %d", ports.ErrEntryTooLarge, entry.Size(), limit))
		return
	}

	out, err := r.svc.fs.Create(dest)
	if err != nil {
		r.fail(index, name, KindFileCreate, err)
		return
	}

	written, kind, err := copyEntry(out, entry, limit)
	if err != nil {
		r.fail(index, name, kind, err)
		return
	}

	r.res.TotalBytes += written
	r.res.Files++
}

// copyEntry streams the decompressed entry into out and closes it.
// The byte count is only meaningful when err is nil.
func copyEntry(out io.WriteCloser, entry ports.Entry, limit uint64) (int64, ErrorKind, error) {
	rc, err := entry.Open()
	if err != nil {
		_ = out.Close()
		return 0, KindFileWrite, fmt.Errorf("opening entry data: %w", err)
	}
	defer func() { _ = rc.Close() }()

	var src io.Reader = rc
	if limit > 0 {
		// One extra byte detects entries that lie about their size.
		src = io.LimitReader(rc, int64(limit)+1)
	}

	written, err := io.Copy(out, src)
	if err != nil {
		_ = out.Close()
		return 0, KindFileWrite, err
	}
	if err := out.Close(); err != nil {
		return 0, KindFileWrite, err
	}
	if limit > 0 && uint64(written) > limit {
		return 0, KindTooLarge, fmt.Errorf("%w: more than %d bytes decompressed", ports.ErrEntryTooLarge, limit)
	}
	return written, 0, nil
}
