package ports

// EntryFailure describes one entry that could not be extracted.
type EntryFailure struct {
	Index int
	Path  string
	Err   error
}

// ProgressReporter receives extraction progress.
// Production code uses the barprogress adapter (CLI) or the TUI program.
type ProgressReporter interface {
	// Update is called with the current entry index and the total entry count.
	Update(current, total int)

	// Failed is called once for every entry that could not be extracted.
	Failed(f EntryFailure)
}
