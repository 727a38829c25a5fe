// Package streamdecode implements StreamDecode (§4.4): a delimited-length
// stream reader that exposes up to Length bytes verbatim, then recognizes
// one of four terminator sentinels ("endstream", and the same preceded by
// "\r", "\n", or "\r\n").
package streamdecode

import (
	"io"

	"github.com/mimecast/filterpipe/internal/errors"
	"github.com/mimecast/filterpipe/internal/filter"
	"github.com/mimecast/filterpipe/internal/io/logger"
)

var sentinels = [][]byte{
	[]byte("endstream"),
	[]byte("\rendstream"),
	[]byte("\nendstream"),
	[]byte("\r\nendstream"),
}

// maxSentinelLen bounds how much persistent carry state matchSentinel ever
// needs to hold.
const maxSentinelLen = 11

// Kind implements StreamDecode. It supplies its own FillBuff rather than
// going through filter.GenericFill, since the generic decode(buffer)
// contract doesn't fit a fill routine that must scan ahead for a
// multi-byte terminator that can straddle two buffer fills.
type Kind struct {
	filter.BaseKind

	length   int64
	position int64
	strict   bool

	consumed int64  // verbatim content bytes delivered from phase 1 (the Length-bounded read)
	excess   int64  // content bytes recovered during phase 2 after a failed partial terminator match
	carry    []byte // unresolved possible-terminator bytes, persists across fills
	done     bool
}

// New creates a StreamDecode filter over r's already-opened underlying
// filter. args follows §4.4: {Length int64, Position int64, Strict bool}.
// Init seeks the underlying to Position only when Position is given;
// otherwise reading starts wherever the underlying currently is.
func New(r *filter.Registry, name string, underlying filter.Ref, args filter.Args) (*filter.Filter, error) {
	k := &Kind{}
	return filter.CreateChained(r, name, filter.Input, k, 64*1024, args, underlying, true)
}

func (k *Kind) Init(f *filter.Filter, args filter.Args) error {
	length, ok := args.Int64("Length")
	if !ok || length < 0 {
		return errors.ErrRangeCheck
	}
	position, hasPosition := args.Int64("Position")
	if position < 0 {
		return errors.ErrRangeCheck
	}
	strict, _ := args.Bool("Strict")

	k.length = length
	k.position = position
	k.strict = strict

	if !hasPosition {
		return nil
	}
	uf, err := f.Underlying()
	if err != nil {
		return errors.Wrap(err, "streamdecode: no underlying to seek")
	}
	if serr := uf.SetPosition(position); serr != nil {
		return errors.Wrap(serr, "streamdecode: seeking to Position failed")
	}
	return nil
}

func (k *Kind) FillBuff(f *filter.Filter) error {
	f.BeginFill()
	if k.done {
		return f.DeliverFill(nil, false)
	}

	uf, err := f.Underlying()
	if err != nil {
		return f.DeliverError(err)
	}

	capacity := f.BufferSize()
	out := make([]byte, 0, capacity)

	// Phase 1: verbatim content, trusted up to the declared Length.
	for k.consumed < k.length && len(out) < capacity {
		want := k.length - k.consumed
		room := int64(capacity - len(out))
		if want > room {
			want = room
		}
		chunk := make([]byte, want)
		n, rerr := uf.Read(chunk)
		if n > 0 {
			out = append(out, chunk[:n]...)
			k.consumed += int64(n)
		}
		if rerr != nil {
			if rerr == io.EOF {
				return k.finish(f, out, false)
			}
			return f.DeliverError(rerr)
		}
		if n == 0 {
			break
		}
	}

	if len(out) >= capacity {
		return f.DeliverFill(out, false)
	}

	// Phase 2: byte-at-a-time terminator scan, carry persists across fills.
	for len(out) < capacity {
		b, rerr := uf.ReadByte()
		if rerr != nil {
			if rerr == io.EOF {
				out = append(out, k.carry...)
				k.carry = nil
				return k.finish(f, out, false)
			}
			return f.DeliverError(rerr)
		}
		k.carry = append(k.carry, b)
		if isPrefix, exact := matchSentinel(k.carry); isPrefix {
			if exact {
				k.carry = nil
				return k.finish(f, out, true)
			}
			continue
		}
		out = k.resync(out)
	}
	return f.DeliverFill(out, false)
}

// resync flushes the longest confirmed-non-terminator prefix of k.carry
// into out, retrying shorter suffixes until what remains is again a valid
// sentinel prefix (possibly empty) — this is what keeps "a match spanning
// a buffer boundary" intact while still recovering bytes that turned out
// not to be part of any terminator after all (§4.4's "emit the matched
// prefix into the buffer and continue").
func (k *Kind) resync(out []byte) []byte {
	for len(k.carry) > 0 {
		if isPrefix, _ := matchSentinel(k.carry); isPrefix {
			break
		}
		out = append(out, k.carry[0])
		k.excess++
		k.carry = k.carry[1:]
	}
	return out
}

func (k *Kind) finish(f *filter.Filter, out []byte, eod bool) error {
	if eod {
		k.done = true
		if k.strict && k.excess > 0 {
			logger.Warn("streamdecode: bytes beyond declared Length before terminator", k.excess)
		}
	} else {
		k.done = true
	}
	return f.DeliverFill(out, eod)
}

// matchSentinel reports whether buf is a prefix of (or equal to) any
// sentinel, and if so whether it's an exact, complete match.
func matchSentinel(buf []byte) (isPrefix bool, exact bool) {
	if len(buf) == 0 {
		return true, false
	}
	if len(buf) > maxSentinelLen {
		return false, false
	}
	for _, s := range sentinels {
		if len(buf) > len(s) {
			continue
		}
		if string(s[:len(buf)]) == string(buf) {
			return true, len(buf) == len(s)
		}
	}
	return false, false
}

func (k *Kind) Close(f *filter.Filter, reason filter.CloseReason) error { return nil }

func (k *Kind) Reset(f *filter.Filter) error {
	k.consumed = 0
	k.excess = 0
	k.carry = nil
	k.done = false
	return nil
}

func (k *Kind) GetPosition(f *filter.Filter) (int64, error) {
	return k.consumed + k.excess, nil
}

// SetPosition implements the §4.4 rewind contract: for a seek before the
// current position, fully reset and re-seek the underlying, then replay
// the fill loop up to the requested offset.
func (k *Kind) SetPosition(f *filter.Filter, pos int64) error {
	if pos < 0 {
		return errors.ErrRangeCheck
	}
	cur := k.consumed + k.excess
	if pos < cur {
		uf, err := f.Underlying()
		if err != nil {
			return err
		}
		if err := uf.SetPosition(k.position); err != nil {
			return err
		}
		k.consumed = 0
		k.excess = 0
		k.carry = nil
		k.done = false
		for remaining := pos; remaining > 0; {
			c, err := uf.GetByte()
			if err != nil {
				return err
			}
			_ = c
			k.consumed++
			remaining--
		}
		return nil
	}
	if pos > cur {
		return errors.New("streamdecode: forward set_position unsupported past current buffer")
	}
	return nil
}
