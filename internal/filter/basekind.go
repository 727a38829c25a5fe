package filter

import "github.com/mimecast/filterpipe/internal/errors"

// BaseKind supplies no-op/stub defaults for every Kind method, so a
// concrete filter kind only has to implement what it actually uses.
// Go has no virtual dispatch through an embedded struct, so BaseKind
// cannot itself call back into the embedding type; GenericFill exists on
// Filter precisely so a kind's FillBuff can opt into the shared FSM
// without needing that dispatch (see filter.go).
type BaseKind struct{}

func (BaseKind) Init(f *Filter, args Args) error { return nil }

func (BaseKind) FillBuff(f *Filter) error { return errors.ErrUndefined }

func (BaseKind) FlushBuff(f *Filter) error { return nil }

func (BaseKind) Close(f *Filter, reason CloseReason) error { return nil }

func (BaseKind) Dispose(f *Filter) {}

func (BaseKind) BytesAvailable(f *Filter) (int64, error) { return -1, errors.ErrRangeCheck }

func (BaseKind) Reset(f *Filter) error { return errors.ErrRangeCheck }

func (BaseKind) GetPosition(f *Filter) (int64, error) { return -1, errors.ErrRangeCheck }

func (BaseKind) SetPosition(f *Filter, pos int64) error { return errors.ErrRangeCheck }

func (BaseKind) FlushAll(f *Filter) error { return nil }

func (BaseKind) Encode(f *Filter) error { return errors.ErrInvalidAccess }

func (BaseKind) Decode(f *Filter, out []byte) (DecodeResult, error) {
	return DecodeResult{}, errors.ErrInvalidAccess
}

func (BaseKind) DecodeInfo(f *Filter, match map[string]bool) (map[string]interface{}, error) {
	return nil, errors.ErrUndefined
}

func (BaseKind) LastError(f *Filter) error { return nil }
