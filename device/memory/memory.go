// Package memory implements an in-RAM device.Device for tests, the way
// github.com/diskfs/go-diskfs/testhelper.FileImpl stubs out a backend.File
// without touching disk.
package memory

import (
	"fmt"

	"github.com/catfs/catfs/device"
)

// Device is an in-RAM byte array satisfying device.Device.
type Device struct {
	bytes []byte

	// FailInit, when non-nil, is returned by Init instead of succeeding.
	FailInit error
	// FailRead, when non-nil, is returned by every ReadAt instead of succeeding.
	FailRead error
	// FailWrite, when non-nil, is returned by every WriteAt instead of succeeding.
	FailWrite error
}

var _ device.Device = (*Device)(nil)

// New creates a zero-filled in-RAM device of exactly size bytes.
func New(size int64) *Device {
	return &Device{bytes: make([]byte, size)}
}

// FromBytes wraps an existing byte slice as a device, useful for asserting
// on-disk byte layout in tests without a round trip through ReadAt.
func FromBytes(b []byte) *Device {
	return &Device{bytes: b}
}

// Bytes returns the underlying byte slice, for test assertions.
func (d *Device) Bytes() []byte {
	return d.bytes
}

func (d *Device) Init() error {
	return d.FailInit
}

func (d *Device) ReadAt(p []byte, off int64) error {
	if d.FailRead != nil {
		return d.FailRead
	}
	if off < 0 || off+int64(len(p)) > int64(len(d.bytes)) {
		return fmt.Errorf("memory: read [%d,%d) out of bounds (size %d)", off, off+int64(len(p)), len(d.bytes))
	}
	copy(p, d.bytes[off:off+int64(len(p))])
	return nil
}

func (d *Device) WriteAt(p []byte, off int64) error {
	if d.FailWrite != nil {
		return d.FailWrite
	}
	if off < 0 || off+int64(len(p)) > int64(len(d.bytes)) {
		return fmt.Errorf("memory: write [%d,%d) out of bounds (size %d)", off, off+int64(len(p)), len(d.bytes))
	}
	copy(d.bytes[off:off+int64(len(p))], p)
	return nil
}

func (d *Device) Finalize() error {
	return nil
}
