// Package device defines the block device capability that the catfs core is
// injected with. The core never manages a device's lifecycle or storage
// medium; it only calls through this four-operation interface.
package device

import "errors"

// ErrShortReadWrite is returned when a Device cannot satisfy an exact-length
// read or write. Partial transfers are always errors in this contract.
var ErrShortReadWrite = errors.New("device: short read or write")

// Device is the injected block device abstraction. Offsets and lengths are
// byte-granular; a Device does not enforce sector alignment. Implementations
// must treat ReadAt/WriteAt as exact-length operations: anything less than
// len(p) transferred without an error is a contract violation.
type Device interface {
	// Init acquires any resources the device needs before use. Called once,
	// before the first ReadAt/WriteAt.
	Init() error
	// ReadAt reads exactly len(p) bytes starting at offset off.
	ReadAt(p []byte, off int64) error
	// WriteAt writes exactly len(p) bytes starting at offset off.
	WriteAt(p []byte, off int64) error
	// Finalize releases resources. Called once, after the last ReadAt/WriteAt.
	Finalize() error
}
