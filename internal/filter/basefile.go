package filter

import (
	"io"

	"github.com/mimecast/filterpipe/internal/errors"
)

// baseFileKind is the Kind implementation every base file gets: a thin
// shim from the generic decode/encode FSM onto a Device (§5). It carries
// no state of its own beyond the device, which lives on the owning
// Filter's Device field so callers can type-assert down to the concrete
// device when they need to (e.g. to call an SSH device's session info).
type baseFileKind struct {
	BaseKind
}

// NewBaseFile creates a base filter directly over dev: an Input base file
// reads dev, an Output base file writes it. name is typically the device's
// path or address, used only for diagnostics and FlagRealFile bookkeeping.
func NewBaseFile(r *Registry, name string, dir Direction, dev Device, bufSize int) (*Filter, error) {
	f, err := Create(r, name, dir, &baseFileKind{}, bufSize, nil)
	if err != nil {
		return nil, err
	}
	f.Device = dev
	f.Flags = f.Flags.Set(FlagBaseFile).Set(FlagRealFile)
	if dev.Rewindable() {
		f.Flags = f.Flags.Set(FlagRewindable)
	}
	return f, nil
}

func (k *baseFileKind) FillBuff(f *Filter) error {
	return f.GenericFill(k.readDevice)
}

func (k *baseFileKind) readDevice(f *Filter, out []byte) (DecodeResult, error) {
	n, err := f.Device.Read(out)
	if err != nil && err != io.EOF {
		return DecodeResult{N: n}, errors.Wrap(err, "device read failed")
	}
	return DecodeResult{N: n}, err
}

func (k *baseFileKind) FlushBuff(f *Filter) error {
	if len(f.pendingOut) == 0 {
		return nil
	}
	if _, err := f.Device.Write(f.pendingOut); err != nil {
		f.Flags = f.Flags.Set(FlagIOError)
		return errors.Wrap(err, "device write failed")
	}
	f.ClearPendingOutput()
	return nil
}

func (k *baseFileKind) FlushAll(f *Filter) error {
	return nil
}

func (k *baseFileKind) Close(f *Filter, reason CloseReason) error {
	if f.Device == nil {
		return nil
	}
	return f.Device.Close()
}

func (k *baseFileKind) BytesAvailable(f *Filter) (int64, error) {
	size, err := f.Device.Size()
	if err != nil {
		return -1, err
	}
	if size < 0 {
		return -1, errors.ErrRangeCheck
	}
	pos, err := f.Device.Seek(0, io.SeekCurrent)
	if err != nil {
		return -1, errors.ErrRangeCheck
	}
	avail := size - pos + int64(len(f.pending))
	if avail < 0 {
		avail = 0
	}
	return avail, nil
}

func (k *baseFileKind) Reset(f *Filter) error {
	if !f.Flags.Has(FlagRewindable) {
		return errors.ErrRangeCheck
	}
	_, err := f.Device.Seek(0, io.SeekStart)
	return err
}

func (k *baseFileKind) GetPosition(f *Filter) (int64, error) {
	pos, err := f.Device.Seek(0, io.SeekCurrent)
	if err != nil {
		return -1, errors.ErrRangeCheck
	}
	return pos - int64(len(f.pending)), nil
}

func (k *baseFileKind) SetPosition(f *Filter, pos int64) error {
	if !f.Flags.Has(FlagRewindable) {
		return errors.ErrRangeCheck
	}
	_, err := f.Device.Seek(pos, io.SeekStart)
	return err
}

func (k *baseFileKind) Encode(f *Filter) error {
	return k.FlushBuff(f)
}
