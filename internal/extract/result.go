package extract

import (
	"fmt"

	"github.com/mcdonaldj/unpack/internal/ports"
)

// ErrorKind classifies a per-entry failure.
type ErrorKind int

const (
	KindTraversal ErrorKind = iota + 1
	KindDirCreate
	KindFileCreate
	KindFileWrite
	KindTooLarge
)

func (k ErrorKind) String() string {
	switch k {
	case KindTraversal:
		return "path traversal"
	case KindDirCreate:
		return "create directory"
	case KindFileCreate:
		return "create file"
	case KindFileWrite:
		return "write file"
	case KindTooLarge:
		return "entry too large"
	default:
		return "unknown"
	}
}

// EntryError records one entry that could not be extracted.
// Path is the offending filesystem path when one was resolved, otherwise
// the stored entry name.
type EntryError struct {
	Index int
	Path  string
	Kind  ErrorKind
	Err   error
}

func (e EntryError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Kind, e.Path, e.Err)
}

func (e EntryError) Unwrap() error {
	return e.Err
}

// Failure converts the error into the form progress reporters receive.
func (e EntryError) Failure() ports.EntryFailure {
	return ports.EntryFailure{Index: e.Index, Path: e.Path, Err: e}
}

// Result accumulates the outcome of one extraction run.
type Result struct {
	Entries    int   // entries in the archive
	TotalBytes int64 // bytes written by fully copied files
	Files      int
	Dirs       int
	Skipped    int // entries whose name could not be decoded
	Errors     []EntryError
}

// OK reports whether every entry was extracted or deliberately skipped.
func (r *Result) OK() bool {
	return len(r.Errors) == 0
}
