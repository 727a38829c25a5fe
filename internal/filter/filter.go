// Package filter implements the composable stream filter pipeline: a
// buffered, reference-counted FILELIST-equivalent object (Filter), its
// polymorphic operation set (Kind), and the generic close-on-last-char
// decode state machine that every decode filter but the reusable stream
// decoder shares.
//
// A chain is built bottom-up: a base file wraps a Device, and each filter
// above it names the filter below as its Underlying. Reading the head
// filter's GetByte pulls bytes down the chain one fill at a time; writing
// PutByte pushes them down on flush.
package filter

import (
	"io"

	"github.com/mimecast/filterpipe/internal/errors"
	"github.com/mimecast/filterpipe/internal/io/pool"
)

// Direction is exactly one of Input or Output; no filter is bidirectional
// (§3.1 invariant).
type Direction int

const (
	Input Direction = iota
	Output
)

// CloseReason distinguishes why a filter is being closed (§4.2).
type CloseReason int

const (
	Explicit CloseReason = iota
	Implicit
	Forced
)

func (r CloseReason) String() string {
	switch r {
	case Explicit:
		return "explicit"
	case Implicit:
		return "implicit"
	case Forced:
		return "forced"
	default:
		return "unknown"
	}
}

// State is one of the five states of the generic decode FSM (§4.3).
type State int

const (
	StateInit State = iota
	StateEmpty
	StateLastChar
	StateEof
	StateErr
)

// Flags is the filter's direction/status bitset (§3.1).
type Flags uint32

const (
	FlagInput Flags = 1 << iota
	FlagOutput
	FlagOpen
	FlagFilter
	FlagRealFile
	FlagBaseFile
	FlagStandard
	FlagLineBuffered
	FlagEOF
	FlagIOError
	FlagTimeout
	FlagRewindable
	FlagReusableStream
	FlagDelimitsData
	FlagExpandsData
	FlagClosing
	FlagCloseSourceTarget
	FlagPurgeNotify
	FlagCtrlDTerminates
	FlagGotCR
	FlagSkipLF
	FlagDoneFill
)

func (fl Flags) Has(bit Flags) bool { return fl&bit != 0 }
func (fl Flags) Set(bit Flags) Flags { return fl | bit }
func (fl Flags) Clear(bit Flags) Flags { return fl &^ bit }

// Ref is an external reference to a filter slot: (registry, index,
// generation). A reference is live iff the slot is in use and its current
// generation equals Generation — see Resolve.
type Ref struct {
	Global     bool
	Index      int
	Generation uint16
}

// Args is the opaque parameter dictionary passed to a filter's Init
// (§3.5), e.g. {"RC4Key": []byte{...}} or {"Length": 128, "Strict": true}.
type Args map[string]interface{}

func (a Args) Bytes(key string) ([]byte, bool) {
	v, ok := a[key]
	if !ok {
		return nil, false
	}
	b, ok := v.([]byte)
	return b, ok
}

func (a Args) String(key string) (string, bool) {
	v, ok := a[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func (a Args) Int(key string) (int, bool) {
	v, ok := a[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	}
	return 0, false
}

func (a Args) Int64(key string) (int64, bool) {
	v, ok := a[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	}
	return 0, false
}

func (a Args) Bool(key string) (bool, bool) {
	v, ok := a[key]
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// DecodeResult is the return convention of Kind.Decode (§4.3 step 2):
// N is how many bytes were written into the caller's out slice this call;
// EOD reports whether the underlying source hit its end-of-data marker
// (consumed by the decoder) on this call.
type DecodeResult struct {
	N   int
	EOD bool
}

// DecodeFunc is the shape of a Kind's Decode method, passed explicitly to
// GenericFill rather than relying on embedding-based dispatch (Go has no
// virtual calls through an embedded base).
type DecodeFunc func(f *Filter, out []byte) (DecodeResult, error)

// Kind is a filter template's operation set (§6.2). A concrete filter kind
// is a struct holding its own private state that implements Kind; BaseKind
// (basekind.go) supplies default stubs so a kind only needs to override
// what it actually uses.
type Kind interface {
	Init(f *Filter, args Args) error
	FillBuff(f *Filter) error
	FlushBuff(f *Filter) error
	Close(f *Filter, reason CloseReason) error
	Dispose(f *Filter)
	BytesAvailable(f *Filter) (int64, error)
	Reset(f *Filter) error
	GetPosition(f *Filter) (int64, error)
	SetPosition(f *Filter, pos int64) error
	FlushAll(f *Filter) error
	Encode(f *Filter) error
	Decode(f *Filter, out []byte) (DecodeResult, error)
	DecodeInfo(f *Filter, match map[string]bool) (map[string]interface{}, error)
	LastError(f *Filter) error
}

// Filter is one filter object: identity, buffer, flags, chain link and
// decode-FSM state (§3.1).
type Filter struct {
	Name       string
	generation uint16
	kind       Kind
	Flags      Flags
	SaveLevel  int
	Global     bool
	Params     Args
	Device     Device // only set on base files
	LineNumber int

	registry *Registry
	idx      int
	next     int // index of next filter on this registry's list, -1 = none

	underlying *Ref

	bufSize int
	buf     []byte // raw pool buffer, len = bufSize+1; buf[0] is the reserved sentinel slot (§4.1)

	pending []byte // undelivered decoded bytes, a view into buf[1:]
	scratch []byte // per-fill scratch region, a view into buf[1:]

	pendingOut []byte // buffered bytes awaiting FlushBuff (output filters)

	state        State
	deferredErr  error
	lastChar     byte
	haveLastChar bool
	ungettable   bool
	lastByteGot  byte
}

// Ref returns f's own external reference.
func (f *Filter) Ref() Ref {
	return Ref{Global: f.Global, Index: f.idx, Generation: f.generation}
}

// Generation returns f's current generation counter (§3.2).
func (f *Filter) Generation() uint16 { return f.generation }

// IsInput reports whether f is an input (decode) filter.
func (f *Filter) IsInput() bool { return f.Flags.Has(FlagInput) }

// IsOutput reports whether f is an output (encode) filter.
func (f *Filter) IsOutput() bool { return f.Flags.Has(FlagOutput) }

// BufferSize returns the visible buffer size f was allocated with.
func (f *Filter) BufferSize() int { return f.bufSize }

// SetUnderlying records ref as f's underlying filter/device source, with
// CloseSourceTarget controlling whether closing f also closes the
// underlying (§4.2.link).
func (f *Filter) SetUnderlying(ref Ref, closeSourceTarget bool) {
	r := ref
	f.underlying = &r
	if closeSourceTarget {
		f.Flags = f.Flags.Set(FlagCloseSourceTarget)
	}
}

// HasUnderlying reports whether f was linked to an underlying filter.
func (f *Filter) HasUnderlying() bool { return f.underlying != nil }

// Underlying resolves f's underlying filter, applying the liveness check
// of §3.2: if the underlying slot's generation no longer matches the id
// captured at link time, the underlying has been recycled and f is dead.
func (f *Filter) Underlying() (*Filter, error) {
	if f.underlying == nil {
		return nil, errors.Wrap(errors.ErrIO, "filter has no underlying")
	}
	uf, err := Resolve(*f.underlying)
	if err != nil {
		return nil, errors.ErrDead
	}
	return uf, nil
}

// allocateBuffer pulls a pooled buffer of size+1 bytes (the +1 is the
// sentinel slot of §4.1) and resets the FSM's buffer-relative state.
func (f *Filter) allocateBuffer(size int) {
	f.bufSize = size
	f.buf = pool.GetFilterBuffer(size)
	f.scratch = f.buf[1:]
	f.pending = nil
}

func (f *Filter) releaseBuffer() {
	if f.buf != nil {
		pool.PutFilterBuffer(f.buf)
		f.buf = nil
		f.scratch = nil
		f.pending = nil
	}
}

// --- input side: GetByte / UngetByte / Read (io.Reader, io.ByteReader) ---

// GetByte returns the next byte, or io.EOF, implementing the generic
// close-on-last-char contract of §4.3 for every state a decode filter can
// be in.
func (f *Filter) GetByte() (byte, error) {
	for {
		switch f.state {
		case StateErr:
			f.ungettable = false
			if f.deferredErr != nil {
				return 0, f.deferredErr
			}
			return 0, errors.ErrIO
		case StateEof:
			f.ungettable = false
			return 0, io.EOF
		case StateLastChar:
			c := f.lastChar
			f.lastByteGot = c
			f.ungettable = true
			f.deliverLastChar()
			return c, nil
		default: // StateInit, StateEmpty
			if len(f.pending) > 0 {
				c := f.pending[0]
				f.pending = f.pending[1:]
				f.lastByteGot = c
				f.ungettable = true
				return c, nil
			}
			if f.haveLastChar {
				f.state = StateLastChar
				continue
			}
			if err := f.fillGeneric(); err != nil {
				return 0, err
			}
		}
	}
}

// UngetByte pushes the last byte retrieved by GetByte back, so the next
// GetByte returns it again. May only be called once per intervening
// GetByte (§4.1).
func (f *Filter) UngetByte() error {
	if !f.ungettable {
		return errors.New("unget_byte without a preceding get_byte")
	}
	f.ungettable = false
	switch f.state {
	case StateEof:
		// §4.3: ungetc from Eof flips back to LastChar so the pushed-back
		// byte is still delivered.
		f.state = StateLastChar
		f.Flags = f.Flags.Set(FlagOpen).Clear(FlagEOF)
	default:
		buf := make([]byte, 0, len(f.pending)+1)
		buf = append(buf, f.lastByteGot)
		buf = append(buf, f.pending...)
		f.pending = buf
	}
	return nil
}

// Read implements io.Reader atop GetByte/fillGeneric, letting any Filter
// (base file or decode filter alike) serve as another filter's underlying
// source without that filter needing to know the buffering details.
func (f *Filter) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		c, err := f.GetByte()
		if err != nil {
			if err == io.EOF {
				if n > 0 {
					return n, nil
				}
				return 0, io.EOF
			}
			return n, err
		}
		p[n] = c
		n++
	}
	return n, nil
}

// ReadByte implements io.ByteReader.
func (f *Filter) ReadByte() (byte, error) { return f.GetByte() }

// --- output side: PutByte / Write (io.Writer, io.ByteWriter) ---

// PutByte buffers c for an output filter, flushing via the kind's
// FlushBuff when the buffer fills or (for line-buffered filters) on LF.
func (f *Filter) PutByte(c byte) error {
	if !f.Flags.Has(FlagOpen) {
		return errors.ErrDead
	}
	f.pendingOut = append(f.pendingOut, c)
	if len(f.pendingOut) >= f.bufSize {
		return f.kind.FlushBuff(f)
	}
	if c == '\n' && f.Flags.Has(FlagLineBuffered) {
		return f.kind.FlushBuff(f)
	}
	return nil
}

// Write implements io.Writer atop PutByte.
func (f *Filter) Write(p []byte) (int, error) {
	for i, c := range p {
		if err := f.PutByte(c); err != nil {
			return i, err
		}
	}
	return len(p), nil
}

// WriteByte implements io.ByteWriter.
func (f *Filter) WriteByte(c byte) error { return f.PutByte(c) }

// PendingOutput returns the bytes buffered by PutByte since the last
// flush, for a Kind's Encode to transform and forward to the underlying.
func (f *Filter) PendingOutput() []byte { return f.pendingOut }

// ClearPendingOutput resets the output buffer after Encode has consumed
// and forwarded it.
func (f *Filter) ClearPendingOutput() { f.pendingOut = f.pendingOut[:0] }

// --- position / reset / flush (§4.1) ---

func (f *Filter) Reset() error {
	if f.Flags.Has(FlagOutput) && len(f.pendingOut) > 0 {
		return errors.New("reset called on open output filter with pending bytes")
	}
	f.pending = nil
	f.haveLastChar = false
	f.ungettable = false
	f.state = StateInit
	f.deferredErr = nil
	return f.kind.Reset(f)
}

func (f *Filter) GetPosition() (int64, error) { return f.kind.GetPosition(f) }

func (f *Filter) SetPosition(pos int64) error {
	if err := f.kind.SetPosition(f, pos); err != nil {
		return err
	}
	// Any successful reposition invalidates the buffered decode state, not
	// only a rewind to the start (§4.4's replay-the-fill-loop contract).
	f.pending = nil
	f.haveLastChar = false
	f.ungettable = false
	f.state = StateInit
	f.deferredErr = nil
	f.Flags = f.Flags.Set(FlagOpen).Clear(FlagEOF)
	return nil
}

func (f *Filter) BytesAvailable() (int64, error) { return f.kind.BytesAvailable(f) }

// Flush drains an input filter to EOF, or writes pending bytes and
// forwards to the underlying for an output filter.
func (f *Filter) Flush() error {
	if f.IsInput() {
		for {
			if _, err := f.GetByte(); err != nil {
				if err == io.EOF {
					return nil
				}
				return err
			}
		}
	}
	return f.flushOutput(false)
}

func (f *Filter) flushOutput(closing bool) error {
	if len(f.pendingOut) > 0 {
		if err := f.kind.FlushBuff(f); err != nil {
			return err
		}
	}
	if closing {
		return f.kind.FlushAll(f)
	}
	return nil
}

// --- generic decode FSM (§4.3) ---

// GenericFill implements the 5-state close-on-last-char FSM shared by
// every decode filter kind except the reusable stream decoder
// (StreamDecode supplies its own FillBuff). A Kind wires its FillBuff to
// this by passing its own decode function, e.g. f.GenericFill(k.decode).
func (f *Filter) GenericFill(decode DecodeFunc) error {
	return f.fillGenericWith(decode)
}

// BeginFill performs the FSM's Init-state entry actions (§4.3 "Entry in
// Init") for a kind that implements its own FillBuff instead of going
// through GenericFill. Call once at the top of FillBuff before gathering
// this fill's bytes.
func (f *Filter) BeginFill() {
	if f.state == StateInit {
		f.Flags = f.Flags.Clear(FlagGotCR).Clear(FlagSkipLF)
		f.state = StateEmpty
	}
}

// DeliverFill hands a custom FillBuff's fully assembled bytes to the FSM,
// applying the same one-byte-behind stash §4.3 step 3 requires: data must
// hold at least two bytes unless eod is true, so a genuine last byte can
// always be identified before it's surfaced.
func (f *Filter) DeliverFill(data []byte, eod bool) error {
	if len(data) == 0 {
		f.state = StateEof
		f.Flags = f.Flags.Set(FlagEOF).Clear(FlagOpen)
		return io.EOF
	}
	f.lastChar = data[len(data)-1]
	f.haveLastChar = true
	if len(data) > 1 {
		f.pending = data[:len(data)-1]
	} else {
		f.pending = nil
	}
	return nil
}

// DeliverError reports a hard decode error from a custom FillBuff the same
// way the generic FSM's Err state would.
func (f *Filter) DeliverError(err error) error {
	f.state = StateErr
	f.deferredErr = err
	return err
}

// fillGeneric is GetByte's refill step: it runs the kind's FillBuff
// (GenericFill for most kinds, a custom fill for StreamDecode). A nil kind
// puts the filter in the Err state instead of panicking; a kind that never
// overrides FillBuff gets BaseKind's ErrUndefined.
func (f *Filter) fillGeneric() error {
	if f.kind == nil {
		f.state = StateErr
		f.deferredErr = errors.ErrUndefined
		return f.deferredErr
	}
	return f.kind.FillBuff(f)
}

func (f *Filter) fillGenericWith(decode DecodeFunc) error {
	if f.state == StateInit {
		// SKIPLF/GOTCR reconciliation across filter boundaries is owned by
		// the scanner (open question, see DESIGN.md): the framework only
		// clears its own copy of the pass-through flags.
		f.Flags = f.Flags.Clear(FlagGotCR).Clear(FlagSkipLF)
		f.state = StateEmpty
	}
	if f.state != StateEmpty {
		return nil
	}

	scratch := f.scratch
	accumulated := 0
	first := true

	for {
		if f.underlying != nil {
			if _, err := f.Underlying(); err != nil {
				f.state = StateErr
				f.deferredErr = errors.ErrIO
				return f.deferredErr
			}
		}
		res, err := decode(f, scratch[accumulated:])
		if err != nil && err != io.EOF {
			if accumulated > 0 {
				f.deferredErr = err
				break
			}
			f.state = StateErr
			return err
		}
		if res.N == 0 && !res.EOD {
			// Clean exhaustion of the underlying source (err == io.EOF, or a
			// decode that simply has nothing more without flagging EOD).
			break
		}
		accumulated += res.N
		if res.EOD {
			break
		}
		if first && accumulated == 1 {
			first = false
			continue
		}
		break
	}

	if accumulated == 0 {
		f.state = StateEof
		f.Flags = f.Flags.Set(FlagEOF).Clear(FlagOpen)
		return io.EOF
	}

	f.lastChar = scratch[accumulated-1]
	f.haveLastChar = true
	if accumulated > 1 {
		f.pending = scratch[:accumulated-1]
	} else {
		f.pending = nil
	}
	return nil
}

// deliverLastChar runs the state transition described in §4.3's "Entry in
// LastChar" once the single stashed byte has been handed to the caller.
func (f *Filter) deliverLastChar() {
	f.haveLastChar = false
	if f.deferredErr == nil {
		f.closeInternal(Implicit)
		f.state = StateEof
	} else {
		f.state = StateErr
	}
}
