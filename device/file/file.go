// Package file implements device.Device against a regular host file or a
// real block device path, the way github.com/diskfs/go-diskfs/backend/file
// wraps an *os.File behind its Storage interface.
package file

import (
	"errors"
	"fmt"
	"os"

	"github.com/catfs/catfs/device"
)

// Device is a device.Device backed by an *os.File.
type Device struct {
	path     string
	f        *os.File
	readOnly bool
}

var _ device.Device = (*Device)(nil)

// Create creates a new backing file of exactly size bytes at path. The path
// must not already exist, mirroring backend/file.CreateFromPath's contract.
func Create(path string, size int64) (*Device, error) {
	if path == "" {
		return nil, errors.New("file: must pass a path")
	}
	if size <= 0 {
		return nil, errors.New("file: size must be positive")
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_EXCL|os.O_CREATE, 0o666)
	if err != nil {
		return nil, fmt.Errorf("file: could not create %s: %w", path, err)
	}
	if err := f.Truncate(size); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("file: could not size %s to %d: %w", path, size, err)
	}
	return &Device{path: path, f: f}, nil
}

// Open opens an existing backing file at path. readOnly mounts exist purely
// to let tooling inspect an image without risking a write.
func Open(path string, readOnly bool) (*Device, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("file: %s does not exist: %w", path, err)
	}
	mode := os.O_RDONLY
	if !readOnly {
		mode = os.O_RDWR
	}
	f, err := os.OpenFile(path, mode, 0o600)
	if err != nil {
		return nil, fmt.Errorf("file: could not open %s: %w", path, err)
	}
	return &Device{path: path, f: f, readOnly: readOnly}, nil
}

// Init satisfies device.Device; the backing file is already open by the time
// a Device exists, so there is nothing left to acquire.
func (d *Device) Init() error {
	return nil
}

// ReadAt reads exactly len(p) bytes at off.
func (d *Device) ReadAt(p []byte, off int64) error {
	n, err := d.f.ReadAt(p, off)
	if err != nil {
		return fmt.Errorf("file: read at %d: %w", off, err)
	}
	if n != len(p) {
		return device.ErrShortReadWrite
	}
	return nil
}

// WriteAt writes exactly len(p) bytes at off.
func (d *Device) WriteAt(p []byte, off int64) error {
	if d.readOnly {
		return fmt.Errorf("file: %s is read-only", d.path)
	}
	n, err := d.f.WriteAt(p, off)
	if err != nil {
		return fmt.Errorf("file: write at %d: %w", off, err)
	}
	if n != len(p) {
		return device.ErrShortReadWrite
	}
	return nil
}

// Finalize flushes and closes the backing file. Durability (fsync) is
// platform-specific and implemented in file_unix.go/file_other.go, the same
// split the teacher uses for disk_unix.go vs its generic counterparts.
func (d *Device) Finalize() error {
	if !d.readOnly {
		if err := syncFile(d.f); err != nil {
			return fmt.Errorf("file: fsync %s: %w", d.path, err)
		}
	}
	if err := d.f.Close(); err != nil {
		return fmt.Errorf("file: close %s: %w", d.path, err)
	}
	return nil
}
