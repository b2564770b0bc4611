//go:build windows

package pathresolve

import (
	"path/filepath"
	"strings"
)

const (
	longPathPrefix = `\\?\`
	longUNCPrefix  = `\\?\UNC\`
)

// LongPath returns root in extended-length form so deep trees can be
// created past MAX_PATH. Already-prefixed roots are returned unchanged.
func LongPath(root string) string {
	if strings.HasPrefix(root, longPathPrefix) {
		return root
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		abs = root
	}
	if strings.HasPrefix(abs, `\\`) {
		return longUNCPrefix + strings.TrimPrefix(abs, `\\`)
	}
	return longPathPrefix + abs
}
