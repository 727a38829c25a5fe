// Package stringfilter implements the string-backed filter (§4.5): a
// decoder that serves a fixed byte slice, or an encoder that fills one.
package stringfilter

import (
	"github.com/mimecast/filterpipe/internal/errors"
	"github.com/mimecast/filterpipe/internal/filter"
)

// Kind is the stringfilter Kind: a decoder exposes data verbatim, an
// encoder accumulates into out until it's full.
type Kind struct {
	filter.BaseKind

	data     []byte
	pos      int
	out      []byte
	outLimit int
	served   bool
}

// New creates a string filter. For dir == filter.Input, data is the
// source bytes served verbatim. For dir == filter.Output, data is the
// caller-owned destination slice the encoder fills in place; Written
// reports how much of it was used.
func New(r *filter.Registry, name string, dir filter.Direction, data []byte) (*filter.Filter, *Kind, error) {
	k := &Kind{}
	if dir == filter.Input {
		k.data = data
	} else {
		k.out = data
		k.outLimit = len(data)
	}
	f, err := filter.Create(r, name, dir, k, len(data), nil)
	if err != nil {
		return nil, nil, err
	}
	f.Flags = f.Flags.Set(filter.FlagCloseSourceTarget)
	return f, k, nil
}

// Written returns the number of bytes an output string filter has
// accepted so far.
func (k *Kind) Written() int { return k.pos }

func (k *Kind) FillBuff(f *filter.Filter) error {
	return f.GenericFill(k.decode)
}

func (k *Kind) decode(f *filter.Filter, out []byte) (filter.DecodeResult, error) {
	if k.served {
		return filter.DecodeResult{}, nil
	}
	n := copy(out, k.data[k.pos:])
	k.pos += n
	k.served = true
	return filter.DecodeResult{N: n, EOD: true}, nil
}

func (k *Kind) FlushBuff(f *filter.Filter) error {
	pending := f.PendingOutput()
	if len(pending) == 0 {
		return nil
	}
	room := k.outLimit - k.pos
	if room < len(pending) {
		return errors.ErrIO
	}
	copy(k.out[k.pos:], pending)
	k.pos += len(pending)
	f.ClearPendingOutput()
	return nil
}

func (k *Kind) Close(f *filter.Filter, reason filter.CloseReason) error { return nil }

func (k *Kind) Reset(f *filter.Filter) error {
	k.pos = 0
	k.served = false
	return nil
}

func (k *Kind) GetPosition(f *filter.Filter) (int64, error) { return int64(k.pos), nil }

func (k *Kind) BytesAvailable(f *filter.Filter) (int64, error) {
	return int64(len(k.data) - k.pos), nil
}
