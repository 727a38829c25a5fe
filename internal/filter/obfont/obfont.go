// Package obfont implements the XPS obfuscated-font decode filter (§4.8):
// the first 32 bytes of the underlying stream are XORed with a 16-byte key
// derived from a GUID-bearing string, everything after passes through
// unchanged.
package obfont

import (
	"github.com/mimecast/filterpipe/internal/constants"
	"github.com/mimecast/filterpipe/internal/errors"
	"github.com/mimecast/filterpipe/internal/filter"
)

// Kind implements the obfuscated-font filter. State is exactly "has the
// preamble been processed yet", represented by preludeLen counting down to
// zero as the 32-byte prelude is XORed.
type Kind struct {
	filter.BaseKind

	key        [constants.ObFontKeySize]byte
	preludeLen int // bytes of the prelude still to XOR against key
}

// New creates an obfuscated-font decode filter over underlying. guid is
// the filter's sole argument: reading backward from the last '.' in guid
// and skipping any byte that isn't a hex digit, the first 32 valid hex
// digits found form the 16-byte XOR key.
func New(r *filter.Registry, name string, underlying filter.Ref, guid string) (*filter.Filter, error) {
	k := &Kind{preludeLen: constants.ObFontPreludeSize}
	args := filter.Args{"GUID": guid}
	return filter.CreateChained(r, name, filter.Input, k, constants.ObFontBufferSize, args, underlying, true)
}

func (k *Kind) Init(f *filter.Filter, args filter.Args) error {
	guid, ok := args.String("GUID")
	if !ok || len(guid) == 0 {
		return errors.ErrRangeCheck
	}
	s := []byte(guid)
	dot := len(s)
	for dot > 0 {
		dot--
		if s[dot] == '.' {
			break
		}
	}
	j := dot
	for i := 0; i < constants.ObFontKeySize; i++ {
		lo := prevHexDigit(s, &j)
		hi := prevHexDigit(s, &j)
		k.key[i] = hi<<4 | lo
	}
	return nil
}

// prevHexDigit walks s backward from *i, skipping any byte that isn't a
// hex digit, and returns the nibble value of the first one found,
// updating *i to its index. Returns 0 once *i reaches the start of s
// without finding one: malformed or short key strings degrade to zero
// nibbles rather than failing filter creation.
func prevHexDigit(s []byte, i *int) byte {
	var c byte = 16
	for *i > 0 && c > 15 {
		*i--
		ch := s[*i]
		if ch > 96 {
			ch -= 32
		}
		if ch > 64 {
			ch -= 7
		} else if ch > 57 {
			ch = 64
		}
		c = ch - 48
	}
	if c > 15 {
		c = 0
	}
	return c
}

func (k *Kind) FillBuff(f *filter.Filter) error {
	return f.GenericFill(k.decode)
}

func (k *Kind) decode(f *filter.Filter, out []byte) (filter.DecodeResult, error) {
	uf, err := f.Underlying()
	if err != nil {
		return filter.DecodeResult{}, err
	}
	n, rerr := uf.Read(out)
	if n > 0 {
		for i := 0; i < n && k.preludeLen > 0; i, k.preludeLen = i+1, k.preludeLen-1 {
			out[i] ^= k.key[(constants.ObFontPreludeSize-k.preludeLen)%constants.ObFontKeySize]
		}
	}
	if rerr != nil {
		return filter.DecodeResult{N: n, EOD: true}, nil
	}
	return filter.DecodeResult{N: n}, nil
}
