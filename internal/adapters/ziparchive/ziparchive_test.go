package ziparchive

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"

	"github.com/mcdonaldj/unpack/internal/ports"
)

type fixture struct {
	name    string
	content string
	method  uint16
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// xzCompressor buffers the entry and only emits the xz stream on Close.
// The zip writer creates compressors before writing the local header, and
// xz.NewWriter writes its stream header immediately.
type xzCompressor struct {
	out io.Writer
	buf bytes.Buffer
}

func (c *xzCompressor) Write(p []byte) (int, error) { return c.buf.Write(p) }

func (c *xzCompressor) Close() error {
	xw, err := xz.NewWriter(c.out)
	if err != nil {
		return err
	}
	if _, err := c.buf.WriteTo(xw); err != nil {
		return err
	}
	return xw.Close()
}

// buildZip writes entries in order. Names ending in "/" become directory records.
func buildZip(t *testing.T, entries []fixture) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	w.RegisterCompressor(zstd.ZipMethodWinZip, zstd.ZipCompressor())
	w.RegisterCompressor(MethodXZ, func(out io.Writer) (io.WriteCloser, error) {
		return &xzCompressor{out: out}, nil
	})
	w.RegisterCompressor(99, func(out io.Writer) (io.WriteCloser, error) {
		return nopWriteCloser{out}, nil
	})

	for _, e := range entries {
		hdr := &zip.FileHeader{Name: e.name, Method: e.method}
		if strings.HasSuffix(e.name, "/") {
			hdr.Method = zip.Store
		}
		fw, err := w.CreateHeader(hdr)
		if err != nil {
			t.Fatalf("CreateHeader(%q): %v", e.name, err)
		}
		if _, err := io.WriteString(fw, e.content); err != nil {
			t.Fatalf("write %q: %v", e.name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return buf.Bytes()
}

func writeFile(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.zip")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func readEntry(t *testing.T, a ports.Archive, i int) string {
	t.Helper()
	e, err := a.EntryAt(i)
	if err != nil {
		t.Fatalf("EntryAt(%d): %v", i, err)
	}
	rc, err := e.Open()
	if err != nil {
		t.Fatalf("Open entry %d: %v", i, err)
	}
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read entry %d: %v", i, err)
	}
	return string(data)
}

func TestOpenReadsEntriesInOrder(t *testing.T) {
	path := writeFile(t, buildZip(t, []fixture{
		{name: "dir1/"},
		{name: "dir1/file.txt", content: "hello", method: zip.Deflate},
		{name: "stored.txt", content: "raw bytes", method: zip.Store},
	}))

	a, err := New().Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer func() { _ = a.Close() }()

	if a.Len() != 3 {
		t.Fatalf("Len() = %d, expected 3", a.Len())
	}

	dir, _ := a.EntryAt(0)
	if dir.Name() != "dir1/" || !dir.IsDir() {
		t.Errorf("entry 0 = %q dir=%v, expected dir1/ directory", dir.Name(), dir.IsDir())
	}
	file, _ := a.EntryAt(1)
	if file.Name() != "dir1/file.txt" || file.IsDir() {
		t.Errorf("entry 1 = %q dir=%v, expected dir1/file.txt file", file.Name(), file.IsDir())
	}
	if file.Size() != 5 {
		t.Errorf("Size() = %d, expected 5", file.Size())
	}

	// Random access: read the later entry first.
	if got := readEntry(t, a, 2); got != "raw bytes" {
		t.Errorf("entry 2 = %q, expected 'raw bytes'", got)
	}
	if got := readEntry(t, a, 1); got != "hello" {
		t.Errorf("entry 1 = %q, expected 'hello'", got)
	}
}

func TestExtendedMethods(t *testing.T) {
	content := strings.Repeat("compressible line\n", 100)
	tests := []struct {
		name   string
		method uint16
	}{
		{"zstd", zstd.ZipMethodWinZip},
		{"xz", MethodXZ},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := buildZip(t, []fixture{{name: "f.txt", content: content, method: tt.method}})
			a, err := NewArchive(bytes.NewReader(data), int64(len(data)))
			if err != nil {
				t.Fatalf("NewArchive failed: %v", err)
			}
			if got := readEntry(t, a, 0); got != content {
				t.Errorf("decompressed %d bytes, expected %d", len(got), len(content))
			}
			if err := a.Close(); err != nil {
				t.Errorf("Close() = %v, expected nil for in-memory archive", err)
			}
		})
	}
}

func TestMixedMethodsKeepHeadersAligned(t *testing.T) {
	entries := []fixture{
		{name: "first.txt", content: "stored", method: zip.Store},
		{name: "middle.txt", content: strings.Repeat("xz payload ", 50), method: MethodXZ},
		{name: "last.txt", content: "deflated", method: zip.Deflate},
	}
	data := buildZip(t, entries)
	if !bytes.HasPrefix(data, []byte("PK\x03\x04")) {
		t.Fatalf("archive starts with %q, expected a local file header", data[:4])
	}

	a, err := NewArchive(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("NewArchive failed: %v", err)
	}
	defer func() { _ = a.Close() }()

	for i, e := range entries {
		if got := readEntry(t, a, i); got != e.content {
			t.Errorf("entry %d content = %q, expected %q", i, got, e.content)
		}
	}
}

func TestUnsupportedMethod(t *testing.T) {
	data := buildZip(t, []fixture{{name: "f.bin", content: "x", method: 99}})
	a, err := NewArchive(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("NewArchive failed: %v", err)
	}

	e, err := a.EntryAt(0)
	if err != nil {
		t.Fatalf("EntryAt failed: %v", err)
	}
	_, err = e.Open()
	if !errors.Is(err, zip.ErrAlgorithm) {
		t.Errorf("Open() error = %v, expected zip.ErrAlgorithm", err)
	}
	if err != nil && !strings.Contains(err.Error(), "method 99") {
		t.Errorf("error %q should name the method", err)
	}
}

func TestOpenErrors(t *testing.T) {
	tmpDir := t.TempDir()
	garbage := filepath.Join(tmpDir, "garbage.zip")
	if err := os.WriteFile(garbage, []byte("this is not a zip file at all"), 0644); err != nil {
		t.Fatal(err)
	}
	valid := buildZip(t, []fixture{{name: "a.txt", content: "a"}})
	truncated := filepath.Join(tmpDir, "truncated.zip")
	if err := os.WriteFile(truncated, valid[:len(valid)-10], 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
	}{
		{"missing", filepath.Join(tmpDir, "missing.zip")},
		{"garbage", garbage},
		{"truncated end record", truncated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New().Open(tt.path)
			if !errors.Is(err, ports.ErrArchiveOpen) {
				t.Errorf("Open() error = %v, expected ErrArchiveOpen", err)
			}
		})
	}
}

func TestEntryAtOutOfRange(t *testing.T) {
	data := buildZip(t, []fixture{{name: "a.txt", content: "a"}})
	a, err := NewArchive(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatal(err)
	}

	for _, i := range []int{-1, 1, 10} {
		if _, err := a.EntryAt(i); !errors.Is(err, ports.ErrIndexCorrupt) {
			t.Errorf("EntryAt(%d) error = %v, expected ErrIndexCorrupt", i, err)
		}
	}
}

func TestEntryAtCorruptLocalHeader(t *testing.T) {
	data := buildZip(t, []fixture{{name: "a.txt", content: "a", method: zip.Store}})
	// The central directory still points at offset 0; break the local header there.
	copy(data[0:4], "XXXX")

	a, err := NewArchive(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("NewArchive failed: %v", err)
	}
	if _, err := a.EntryAt(0); !errors.Is(err, ports.ErrIndexCorrupt) {
		t.Errorf("EntryAt(0) error = %v, expected ErrIndexCorrupt", err)
	}
}
