//go:build unix

package file

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// syncFile forces the backing file's dirty pages to the device, mirroring
// disk/disk_unix.go's use of golang.org/x/sys/unix for the one syscall stdlib
// doesn't expose in a way that lets us ignore ENOTSUP-ish errors on tmpfs.
func syncFile(f *os.File) error {
	if err := unix.Fsync(int(f.Fd())); err != nil && !errors.Is(err, unix.EINVAL) {
		return err
	}
	return nil
}
