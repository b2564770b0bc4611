package ports

import "errors"

// Errors adapters and services wrap so callers can classify failures
// with errors.Is.
var (
	// ErrArchiveOpen means the source is missing, unreadable or not a valid container.
	ErrArchiveOpen = errors.New("cannot open archive")

	// ErrIndexCorrupt means the central directory or an entry header is malformed.
	ErrIndexCorrupt = errors.New("archive index corrupt")

	// ErrPathTraversal means an entry would resolve outside the destination root.
	ErrPathTraversal = errors.New("path escapes destination root")

	// ErrEntryTooLarge means an entry exceeds the configured size limit.
	ErrEntryTooLarge = errors.New("entry exceeds size limit")
)
