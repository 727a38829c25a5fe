// Package cryptofilter implements the encrypted-stream filters (§4.6,
// §4.7): RC4Decode/RC4Encode and AESDecode/AESEncode. Both are grounded on
// the standard library's crypto/rc4, crypto/aes and crypto/cipher rather
// than a hand-rolled cipher — the framework's job here is only the
// buffering and padding contract around a stdlib cipher.Stream/cipher.BlockMode.
package cryptofilter

import (
	"crypto/rc4"
	"io"

	"github.com/mimecast/filterpipe/internal/constants"
	"github.com/mimecast/filterpipe/internal/errors"
	"github.com/mimecast/filterpipe/internal/filter"
)

// RC4Kind implements RC4Decode/RC4Encode: a keystream XOR filter with no
// padding, state held entirely by crypto/rc4.Cipher's S-box and indices.
type RC4Kind struct {
	filter.BaseKind

	cipher *rc4.Cipher
}

// NewRC4Decode creates an RC4Decode filter reading and decrypting
// underlying. args must carry {RC4Key: []byte, len <= 256}.
func NewRC4Decode(r *filter.Registry, name string, underlying filter.Ref, args filter.Args) (*filter.Filter, error) {
	k := &RC4Kind{}
	return filter.CreateChained(r, name, filter.Input, k, constants.RC4ScratchSize, args, underlying, true)
}

// NewRC4Encode creates an RC4Encode filter writing underlying.
func NewRC4Encode(r *filter.Registry, name string, underlying filter.Ref, args filter.Args) (*filter.Filter, error) {
	k := &RC4Kind{}
	return filter.CreateChained(r, name, filter.Output, k, constants.RC4ScratchSize, args, underlying, true)
}

func (k *RC4Kind) Init(f *filter.Filter, args filter.Args) error {
	key, ok := args.Bytes("RC4Key")
	if !ok || len(key) == 0 || len(key) > constants.RC4MaxKeySize {
		return errors.ErrRangeCheck
	}
	c, err := rc4.NewCipher(key)
	if err != nil {
		return errors.Wrap(err, "rc4: bad key")
	}
	k.cipher = c
	return nil
}

func (k *RC4Kind) FillBuff(f *filter.Filter) error {
	return f.GenericFill(k.decode)
}

func (k *RC4Kind) decode(f *filter.Filter, out []byte) (filter.DecodeResult, error) {
	uf, err := f.Underlying()
	if err != nil {
		return filter.DecodeResult{}, err
	}
	n, rerr := uf.Read(out)
	if n > 0 {
		k.cipher.XORKeyStream(out[:n], out[:n])
	}
	if rerr != nil && rerr != io.EOF {
		return filter.DecodeResult{N: n}, rerr
	}
	if rerr == io.EOF {
		// On underlying EOF, whatever was decrypted this call is still the
		// final delivery: signal EOD rather than propagating io.EOF as an
		// error (§4.6: "deliver what was read and negate the count").
		return filter.DecodeResult{N: n, EOD: true}, nil
	}
	return filter.DecodeResult{N: n}, nil
}

func (k *RC4Kind) Encode(f *filter.Filter) error {
	pending := f.PendingOutput()
	if len(pending) == 0 {
		return nil
	}
	k.cipher.XORKeyStream(pending, pending)
	uf, err := f.Underlying()
	if err != nil {
		return err
	}
	if _, err := uf.Write(pending); err != nil {
		return err
	}
	f.ClearPendingOutput()
	return nil
}

func (k *RC4Kind) FlushBuff(f *filter.Filter) error { return k.Encode(f) }

func (k *RC4Kind) FlushAll(f *filter.Filter) error {
	uf, err := f.Underlying()
	if err != nil {
		return nil
	}
	return uf.Flush()
}
