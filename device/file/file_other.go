//go:build !unix

package file

import "os"

// syncFile falls back to the stdlib's Sync on platforms without the unix
// fsync ioctl path (mirrors disk package's windows fallback for disk_unix.go).
func syncFile(f *os.File) error {
	return f.Sync()
}
