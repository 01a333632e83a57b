//go:build !(linux || darwin || freebsd)

package archive

import "errors"

// FreeSpace is not implemented on this platform.
func FreeSpace(path string) (uint64, error) {
	return 0, errors.New("free space query not supported on this platform")
}
