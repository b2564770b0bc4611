package preview

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mcdonaldj/unpack/internal/mocks"
)

var root = filepath.FromSlash("/dest")

func dest(rel string) string {
	return filepath.Join(root, filepath.FromSlash(rel))
}

func TestPlan(t *testing.T) {
	fs := mocks.NewMockFileSystem()
	fs.Dirs[dest("existing")] = true
	fs.Files[dest("old.txt")] = []byte("old content")
	fs.Files[dest("clash")] = []byte("a file where a directory should go")
	fs.Errors[dest("under/file.txt")] = errors.New("not a directory")

	archive := mocks.NewMockArchive(
		mocks.Dir("existing"),
		mocks.Dir("fresh"),
		mocks.File("fresh/new.txt", "hello"),
		mocks.File("old.txt", "new"),
		mocks.Dir("clash"),
		mocks.File("../escape.txt", "x"),
		mocks.File("under/file.txt", "y"),
	)

	items, err := NewPlanner(fs).Plan(archive, root)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}

	expected := []Action{
		ActionExistingDir,
		ActionCreateDir,
		ActionNew,
		ActionOverwrite,
		ActionBlocked,
		ActionSkip,
		ActionBlocked,
	}
	if len(items) != len(expected) {
		t.Fatalf("got %d items, expected %d", len(items), len(expected))
	}
	for i, want := range expected {
		if items[i].Action != want {
			t.Errorf("items[%d] (%s) = %s, expected %s", i, items[i].Name, items[i].Action, want)
		}
		if items[i].Index != i {
			t.Errorf("items[%d].Index = %d, expected index order", i, items[i].Index)
		}
	}

	if items[3].ExistingSize != int64(len("old content")) {
		t.Errorf("ExistingSize = %d, expected %d", items[3].ExistingSize, len("old content"))
	}
	if items[5].Dest != "" {
		t.Errorf("skipped entry Dest = %q, expected empty", items[5].Dest)
	}

	// Planning must not touch the destination.
	if len(fs.CallsTo("MkdirAll")) != 0 || len(fs.CallsTo("Create")) != 0 {
		t.Errorf("Plan wrote to the filesystem: %v", fs.Calls)
	}

	summary := Summarize(items)
	if summary[ActionBlocked] != 2 || summary[ActionNew] != 1 {
		t.Errorf("summary = %v, expected 2 blocked and 1 new", summary)
	}
}

func TestPlanCorruptEntry(t *testing.T) {
	archive := mocks.NewMockArchive(mocks.File("a.txt", "a"))
	archive.EntryErrors[0] = mocks.ErrInjected

	if _, err := NewPlanner(mocks.NewMockFileSystem()).Plan(archive, root); !errors.Is(err, mocks.ErrInjected) {
		t.Errorf("error = %v, expected injected error", err)
	}
}

func TestFind(t *testing.T) {
	archive := mocks.NewMockArchive(mocks.Dir("docs"), mocks.File("docs/readme.md", "hi"))

	entry, err := Find(archive, "docs/readme.md")
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if entry.Name() != "docs/readme.md" {
		t.Errorf("Find returned %q", entry.Name())
	}

	if dir, err := Find(archive, "docs"); err != nil || !dir.IsDir() {
		t.Errorf("Find(docs) = %v, %v; expected the directory entry", dir, err)
	}

	if _, err := Find(archive, "missing"); !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("error = %v, expected ErrEntryNotFound", err)
	}
}

func TestFileDiff(t *testing.T) {
	fs := mocks.NewMockFileSystem()
	fs.Files[dest("config.txt")] = []byte("alpha\nbeta\ngamma\n")
	archive := mocks.NewMockArchive(mocks.File("config.txt", "alpha\nBETA\ngamma\ndelta\n"))

	d, err := NewPlanner(fs).FileDiff(archive, root, "config.txt")
	if err != nil {
		t.Fatalf("FileDiff failed: %v", err)
	}
	if !d.Exists || d.IsBinary {
		t.Fatalf("diff = %+v, expected an existing text file", d)
	}
	if d.Added != 2 || d.Deleted != 1 {
		t.Errorf("Added/Deleted = %d/%d, expected 2/1", d.Added, d.Deleted)
	}
	if !d.Changed() {
		t.Error("Changed should be true")
	}
	if d.Dest != dest("config.txt") {
		t.Errorf("Dest = %q, expected %q", d.Dest, dest("config.txt"))
	}
}

func TestFileDiffMissingDestination(t *testing.T) {
	archive := mocks.NewMockArchive(mocks.File("new.txt", "one\ntwo\n"))

	d, err := NewPlanner(mocks.NewMockFileSystem()).FileDiff(archive, root, "new.txt")
	if err != nil {
		t.Fatalf("FileDiff failed: %v", err)
	}
	if d.Exists {
		t.Error("Exists should be false for a missing destination")
	}
	if d.Added != 2 || d.Deleted != 0 {
		t.Errorf("Added/Deleted = %d/%d, expected 2/0", d.Added, d.Deleted)
	}
}

func TestFileDiffUnchanged(t *testing.T) {
	fs := mocks.NewMockFileSystem()
	fs.Files[dest("same.txt")] = []byte("same\n")
	archive := mocks.NewMockArchive(mocks.File("same.txt", "same\n"))

	d, err := NewPlanner(fs).FileDiff(archive, root, "same.txt")
	if err != nil {
		t.Fatalf("FileDiff failed: %v", err)
	}
	if d.Changed() {
		t.Errorf("Changed = true for identical content: %+v", d.Lines)
	}
}

func TestFileDiffBinaryAndDirectory(t *testing.T) {
	archive := mocks.NewMockArchive(mocks.Dir("folder"), mocks.File("blob.bin", "\x00\x01\x02"))
	planner := NewPlanner(mocks.NewMockFileSystem())

	d, err := planner.FileDiff(archive, root, "blob.bin")
	if err != nil {
		t.Fatalf("FileDiff failed: %v", err)
	}
	if !d.IsBinary || len(d.Lines) != 0 {
		t.Errorf("diff = %+v, expected binary with no lines", d)
	}

	if _, err := planner.FileDiff(archive, root, "folder"); err == nil {
		t.Error("FileDiff should refuse directory entries")
	}
}

func TestFileDiffLargeNonASCII(t *testing.T) {
	content := "a" + strings.Repeat("é", MaxDiffSize/2)
	archive := mocks.NewMockArchive(mocks.File("big.txt", content))

	d, err := NewPlanner(mocks.NewMockFileSystem()).FileDiff(archive, root, "big.txt")
	if err != nil {
		t.Fatalf("FileDiff failed: %v", err)
	}
	if d.IsBinary {
		t.Error("IsBinary = true for UTF-8 text cut at the size cap")
	}
	if d.Added != 1 {
		t.Errorf("Added = %d, expected 1", d.Added)
	}
}

func TestCutRunes(t *testing.T) {
	tests := []struct {
		name     string
		s        string
		n        int
		expected string
	}{
		{"short", "abc", 5, "abc"},
		{"ascii", "abcdef", 3, "abc"},
		{"backs off split rune", "aé", 2, "a"},
		{"keeps whole rune", "aéb", 3, "aé"},
		{"four byte rune", "a😀", 3, "a"},
		{"stray continuation bytes", "\x80\x80\x80\x80\x80\x80", 5, "\x80\x80\x80\x80\x80"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cutRunes(tt.s, tt.n); got != tt.expected {
				t.Errorf("cutRunes(%q, %d) = %q, expected %q", tt.s, tt.n, got, tt.expected)
			}
		})
	}
}

func TestLineDiff(t *testing.T) {
	lines := LineDiff("a\nb\nc\n", "a\nc\nd\n")

	expected := []DiffLine{
		{LineNum1: 1, LineNum2: 1, Type: ' ', Content: "a"},
		{LineNum1: 2, Type: '-', Content: "b"},
		{LineNum1: 3, LineNum2: 2, Type: ' ', Content: "c"},
		{LineNum2: 3, Type: '+', Content: "d"},
	}
	if len(lines) != len(expected) {
		t.Fatalf("LineDiff = %+v, expected %+v", lines, expected)
	}
	for i := range expected {
		if lines[i] != expected[i] {
			t.Errorf("lines[%d] = %+v, expected %+v", i, lines[i], expected[i])
		}
	}
}

func TestIsBinaryContent(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected bool
	}{
		{"empty", "", false},
		{"plain text", "hello world\n", false},
		{"utf8 text", "héllo wörld", false},
		{"nul byte", "abc\x00def", true},
		{"invalid utf8", "\xff\xfe\xfd", true},
		{"multibyte rune across sample edge", "a" + strings.Repeat("é", 5000), false},
		{"invalid byte after sample edge", strings.Repeat("x", 8000) + "\xff", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsBinaryContent(tt.content); got != tt.expected {
				t.Errorf("IsBinaryContent(%q) = %v, expected %v", tt.content, got, tt.expected)
			}
		})
	}
}

func TestActionString(t *testing.T) {
	for a, want := range map[Action]string{
		ActionNew: "new", ActionOverwrite: "overwrite", ActionCreateDir: "mkdir",
		ActionExistingDir: "exists", ActionBlocked: "blocked", ActionSkip: "skip",
		ActionReject: "reject", Action(99): "unknown",
	} {
		if got := a.String(); got != want {
			t.Errorf("Action(%d).String() = %q, expected %q", int(a), got, want)
		}
	}
}
