package filter

import "io"

// Device is the opaque external-boundary abstraction a base file wraps
// (§5's "Device/external-boundary abstraction"): a local file, an SSH
// session, or any other byte source/sink the pipeline bootstraps from.
// Nothing above Device needs to know which.
type Device interface {
	io.ReadWriteCloser

	// Seek repositions the device if it supports random access; devices
	// that don't (a pipe, an SSH session) return ErrRangeCheck.
	Seek(offset int64, whence int) (int64, error)

	// Size returns the device's total byte length if known, or -1 if not
	// (a live SSH stream has no declared size).
	Size() (int64, error)

	// Rewindable reports whether Seek(0, io.SeekStart) is meaningful.
	Rewindable() bool
}
