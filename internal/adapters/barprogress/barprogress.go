// Package barprogress provides a terminal progress reporter using schollz/progressbar.
package barprogress

import (
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/mcdonaldj/unpack/internal/ports"
)

// Reporter implements ports.ProgressReporter with a single progress bar.
// Failures are printed as separate lines above the bar.
type Reporter struct {
	out      io.Writer
	failMark string
	bar      *progressbar.ProgressBar
	failures int
}

// New creates a Reporter drawing on out. failMark prefixes failure lines.
func New(out io.Writer, failMark string) *Reporter {
	return &Reporter{out: out, failMark: failMark}
}

func (r *Reporter) newBar(total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(r.out),
		progressbar.OptionSetDescription("Extracting"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer: "=", SaucerHead: ">", SaucerPadding: "-",
			BarStart: "[", BarEnd: "]",
		}),
	)
}

// Update moves the bar to current out of total entries.
func (r *Reporter) Update(current, total int) {
	if r.bar == nil {
		r.bar = r.newBar(total)
	}
	_ = r.bar.Set(current)
}

// Failed prints one line for the entry and redraws the bar below it.
func (r *Reporter) Failed(f ports.EntryFailure) {
	r.failures++
	if r.bar != nil {
		_ = r.bar.Clear()
	}
	fmt.Fprintf(r.out, "%s %v\n", r.failMark, f.Err)
	if r.bar != nil {
		_ = r.bar.RenderBlank()
	}
}

// Failures returns how many failure lines were printed.
func (r *Reporter) Failures() int {
	return r.failures
}

// Finish completes the bar and moves the cursor past it.
func (r *Reporter) Finish() {
	if r.bar == nil {
		return
	}
	_ = r.bar.Finish()
	fmt.Fprintln(r.out)
}

// Compile-time check that Reporter implements ports.ProgressReporter.
var _ ports.ProgressReporter = (*Reporter)(nil)
