//go:build !windows

package pathresolve

// LongPath returns root unchanged; only Windows needs the extended-length prefix.
func LongPath(root string) string {
	return root
}
