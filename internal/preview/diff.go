package preview

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/mcdonaldj/unpack/internal/pathresolve"
	"github.com/mcdonaldj/unpack/internal/ports"
)

// MaxDiffSize caps how much of either side is read for a diff.
const MaxDiffSize = 4 << 20

// DiffLine represents a single line in the diff output
type DiffLine struct {
	LineNum1 int    // Line number on disk (0 if added)
	LineNum2 int    // Line number in the archive (0 if deleted)
	Type     rune   // '+' added, '-' deleted, ' ' unchanged
	Content  string // Line content
}

// FileDiff is the line diff between a file on disk and the archive entry
// that would replace it.
type FileDiff struct {
	Name     string
	Dest     string
	Exists   bool // false means every line is an addition
	IsBinary bool
	Lines    []DiffLine
	Added    int
	Deleted  int
}

// Changed reports whether extraction would alter the file.
func (d *FileDiff) Changed() bool {
	return !d.Exists || d.Added > 0 || d.Deleted > 0 || d.IsBinary
}

// FileDiff compares the entry called name with its destination below rootDir.
func (p *Planner) FileDiff(archive ports.Archive, rootDir, name string) (*FileDiff, error) {
	entry, err := Find(archive, name)
	if err != nil {
		return nil, err
	}
	if entry.IsDir() || strings.HasSuffix(entry.Name(), pathresolve.Separator) {
		return nil, fmt.Errorf("%s is a directory", name)
	}
	enclosed, ok := pathresolve.EnclosedName(entry.Name())
	if !ok {
		return nil, fmt.Errorf("%s would be skipped during extraction", name)
	}
	dest, err := pathresolve.Resolve(rootDir, enclosed)
	if err != nil {
		return nil, err
	}

	incoming, err := readEntry(entry)
	if err != nil {
		return nil, fmt.Errorf("reading %s from archive: %w", name, err)
	}

	result := &FileDiff{Name: entry.Name(), Dest: dest, Exists: true}
	current, err := p.readFile(dest)
	if err != nil {
		if !isNotExist(err) {
			return nil, fmt.Errorf("reading %s: %w", dest, err)
		}
		result.Exists = false
	}

	if IsBinaryContent(current) || IsBinaryContent(incoming) {
		result.IsBinary = true
		return result, nil
	}

	result.Lines = LineDiff(current, incoming)
	for _, l := range result.Lines {
		switch l.Type {
		case '+':
			result.Added++
		case '-':
			result.Deleted++
		}
	}
	return result, nil
}

func readEntry(entry ports.Entry) (string, error) {
	rc, err := entry.Open()
	if err != nil {
		return "", err
	}
	defer func() { _ = rc.Close() }()
	return readCapped(rc)
}

func (p *Planner) readFile(path string) (string, error) {
	f, err := p.fs.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()
	return readCapped(f)
}

// readCapped reads at most MaxDiffSize bytes. A few bytes past the cap are
// read so the cut can land on a rune boundary.
func readCapped(r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxDiffSize+utf8.UTFMax))
	return cutRunes(string(data), MaxDiffSize), err
}

// cutRunes returns at most the first n bytes of s without splitting a
// multi-byte rune.
func cutRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for i := n; i > 0 && i > n-utf8.UTFMax; i-- {
		if utf8.RuneStart(s[i]) {
			return s[:i]
		}
	}
	return s[:n]
}

// IsBinaryContent checks if content appears to be binary
func IsBinaryContent(content string) bool {
	if len(content) == 0 {
		return false
	}
	// Check first 8000 bytes for null bytes or invalid UTF-8
	sample := cutRunes(content, 8000)
	if strings.Contains(sample, "\x00") {
		return true
	}
	return !utf8.ValidString(sample)
}

// LineDiff computes a line-level diff from old to new.
func LineDiff(oldText, newText string) []DiffLine {
	dmp := diffmatchpatch.New()
	a, b, lineArray := dmp.DiffLinesToChars(oldText, newText)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	var lines []DiffLine
	n1, n2 := 0, 0
	for _, d := range diffs {
		for _, text := range splitLines(d.Text) {
			switch d.Type {
			case diffmatchpatch.DiffEqual:
				n1++
				n2++
				lines = append(lines, DiffLine{LineNum1: n1, LineNum2: n2, Type: ' ', Content: text})
			case diffmatchpatch.DiffDelete:
				n1++
				lines = append(lines, DiffLine{LineNum1: n1, Type: '-', Content: text})
			case diffmatchpatch.DiffInsert:
				n2++
				lines = append(lines, DiffLine{LineNum2: n2, Type: '+', Content: text})
			}
		}
	}
	return lines
}

// splitLines splits text into lines without the trailing newline element.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
