// Package autoarchive picks an archive reader by content, falling back to
// the file extension.
package autoarchive

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mcdonaldj/unpack/internal/adapters/sevenziparchive"
	"github.com/mcdonaldj/unpack/internal/adapters/ziparchive"
	"github.com/mcdonaldj/unpack/internal/ports"
)

// Format describes one supported container.
type Format struct {
	Name       string
	Magic      [][]byte
	Extensions []string
	Reader     ports.ArchiveReader
}

// Match returns true if header begins with one of the format's signatures.
func (f Format) Match(header []byte) bool {
	for _, m := range f.Magic {
		if bytes.HasPrefix(header, m) {
			return true
		}
	}
	return false
}

// Formats lists the containers New recognises, in detection order.
func Formats() []Format {
	return []Format{
		{
			Name: "zip",
			Magic: [][]byte{
				[]byte("PK\x03\x04"),
				[]byte("PK\x05\x06"), // empty archive
				[]byte("PK\x07\x08"), // spanned marker
			},
			Extensions: []string{".zip", ".jar", ".apk", ".docx", ".xlsx", ".epub"},
			Reader:     ziparchive.New(),
		},
		{
			Name:       "7z",
			Magic:      [][]byte{{'7', 'z', 0xBC, 0xAF, 0x27, 0x1C}},
			Extensions: []string{".7z"},
			Reader:     sevenziparchive.New(),
		},
	}
}

const sniffLen = 8

// Reader implements ports.ArchiveReader by dispatching on the detected format.
type Reader struct {
	formats []Format
}

// New creates a Reader for every format in Formats.
func New() *Reader {
	return &Reader{formats: Formats()}
}

// Detect identifies the format of the file at path. It checks content
// (magic bytes) first, then falls back to extension matching.
func (r *Reader) Detect(path string) (Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return Format{}, fmt.Errorf("%w: %w", ports.ErrArchiveOpen, err)
	}
	defer func() { _ = f.Close() }()

	header := make([]byte, sniffLen)
	n, err := io.ReadFull(f, header)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return Format{}, fmt.Errorf("%w: %s: %w", ports.ErrArchiveOpen, path, err)
	}
	header = header[:n]

	for _, format := range r.formats {
		if format.Match(header) {
			return format, nil
		}
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, format := range r.formats {
		for _, e := range format.Extensions {
			if ext == e {
				return format, nil
			}
		}
	}
	return Format{}, fmt.Errorf("%w: %s: unrecognised archive format", ports.ErrArchiveOpen, path)
}

// Open detects the container format and opens it with the matching reader.
func (r *Reader) Open(sourcePath string) (ports.Archive, error) {
	format, err := r.Detect(sourcePath)
	if err != nil {
		return nil, err
	}
	return format.Reader.Open(sourcePath)
}

// Compile-time check that Reader implements ports.ArchiveReader.
var _ ports.ArchiveReader = (*Reader)(nil)
