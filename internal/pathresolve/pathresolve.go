// Package pathresolve maps stored archive paths onto destination paths.
package pathresolve

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mcdonaldj/unpack/internal/ports"
)

// Separator is the archive format's canonical path separator.
const Separator = "/"

// EnclosedName decodes a stored entry name into a relative path that stays
// inside whatever directory it is extracted to. It returns false for names
// that cannot be used at all: empty, containing NUL, absolute (leading
// slash or backslash, drive letter) or climbing above the top level with "..".
// Interior ".." segments that stay enclosed (a/../b) are accepted.
func EnclosedName(stored string) (string, bool) {
	if stored == "" || strings.ContainsRune(stored, 0) {
		return "", false
	}
	if strings.HasPrefix(stored, "/") || strings.HasPrefix(stored, `\`) {
		return "", false
	}
	if len(stored) >= 2 && stored[1] == ':' && isDriveLetter(stored[0]) {
		return "", false
	}

	depth := 0
	for _, seg := range strings.Split(stored, Separator) {
		switch seg {
		case "", ".":
		case "..":
			depth--
			if depth < 0 {
				return "", false
			}
		default:
			depth++
		}
	}
	return stored, true
}

func isDriveLetter(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

// Resolve joins the stored path onto rootDir one segment at a time using
// host path semantics, so the stored string is never parsed as a host path.
// The result must be rootDir or one of its descendants; anything else
// returns an error wrapping ports.ErrPathTraversal.
func Resolve(rootDir, stored string) (string, error) {
	dest := rootDir
	for _, seg := range strings.Split(stored, Separator) {
		if seg == "" {
			continue
		}
		dest = filepath.Join(dest, seg)
	}

	if !IsWithin(rootDir, dest) {
		return "", fmt.Errorf("%w: %s", ports.ErrPathTraversal, stored)
	}
	return dest, nil
}

// IsWithin checks if target is base itself or lies below it.
func IsWithin(base, target string) bool {
	base = filepath.Clean(base)
	target = filepath.Clean(target)
	if target == base {
		return true
	}
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return false
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	return !filepath.IsAbs(rel)
}
