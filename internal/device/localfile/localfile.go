// Package localfile implements filter.Device over *os.File: the terminal
// base-file device every chain eventually bottoms out on when the source
// isn't remote.
package localfile

import (
	"io"
	"os"

	"github.com/mimecast/filterpipe/internal/errors"
)

// Device wraps an *os.File as a filter.Device.
type Device struct {
	f *os.File
}

// Open opens path for reading.
func Open(path string) (*Device, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "localfile: open failed")
	}
	return &Device{f: f}, nil
}

// Create truncates-or-creates path for writing.
func Create(path string) (*Device, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(err, "localfile: create failed")
	}
	return &Device{f: f}, nil
}

func (d *Device) Read(p []byte) (int, error)  { return d.f.Read(p) }
func (d *Device) Write(p []byte) (int, error) { return d.f.Write(p) }
func (d *Device) Close() error                { return d.f.Close() }

func (d *Device) Seek(offset int64, whence int) (int64, error) {
	return d.f.Seek(offset, whence)
}

func (d *Device) Size() (int64, error) {
	info, err := d.f.Stat()
	if err != nil {
		return -1, errors.Wrap(err, "localfile: stat failed")
	}
	return info.Size(), nil
}

func (d *Device) Rewindable() bool { return true }

var _ io.ReadWriteCloser = (*Device)(nil)
