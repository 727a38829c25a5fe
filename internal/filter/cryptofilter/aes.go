package cryptofilter

import (
	"crypto/aes"
	"crypto/cipher"
	"io"

	"github.com/mimecast/filterpipe/internal/constants"
	"github.com/mimecast/filterpipe/internal/errors"
	"github.com/mimecast/filterpipe/internal/filter"
)

// AESKind implements AESDecode (§4.7): IV-prefixed, CBC-mode, PKCS#5/7
// padded. AESEncode is architecturally symmetric but intentionally left as
// BaseKind's stub — no constructor offers it, so any attempt to write
// through one surfaces the framework's usual ErrInvalidAccess rather than
// silently producing a malformed stream.
type AESKind struct {
	filter.BaseKind

	block cipher.Block
	mode  cipher.BlockMode
	haveIV bool

	lookahead []byte // one already-read ciphertext block, held back to peek for the final block
}

// NewAESDecode creates an AESDecode filter reading underlying. args must
// carry {AESKey: []byte, len in {16,24,32}}.
func NewAESDecode(r *filter.Registry, name string, underlying filter.Ref, args filter.Args) (*filter.Filter, error) {
	k := &AESKind{}
	return filter.CreateChained(r, name, filter.Input, k, constants.DefaultBufferSize, args, underlying, true)
}

func (k *AESKind) Init(f *filter.Filter, args filter.Args) error {
	key, ok := args.Bytes("AESKey")
	if !ok {
		return errors.ErrRangeCheck
	}
	switch len(key) {
	case 16, 24, 32:
	default:
		return errors.ErrRangeCheck
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return errors.Wrap(err, "aes: bad key schedule")
	}
	k.block = block
	return nil
}

// FlushBuff routes buffered output to Encode, which is BaseKind's
// ErrInvalidAccess stub.
func (k *AESKind) FlushBuff(f *filter.Filter) error { return k.Encode(f) }

func (k *AESKind) FillBuff(f *filter.Filter) error {
	return f.GenericFill(k.decode)
}

func (k *AESKind) decode(f *filter.Filter, out []byte) (filter.DecodeResult, error) {
	uf, err := f.Underlying()
	if err != nil {
		return filter.DecodeResult{}, err
	}

	if !k.haveIV {
		iv := make([]byte, constants.AESBlockSize)
		if _, err := io.ReadFull(uf, iv); err != nil {
			return filter.DecodeResult{}, errors.Wrap(errors.ErrIO, "aes: truncated stream, no IV")
		}
		k.mode = cipher.NewCBCDecrypter(k.block, iv)
		k.haveIV = true
	}

	n := 0
	for n+constants.AESBlockSize <= len(out) {
		if k.lookahead == nil {
			blk := make([]byte, constants.AESBlockSize)
			if _, err := io.ReadFull(uf, blk); err != nil {
				if n == 0 {
					return filter.DecodeResult{}, errors.Wrap(errors.ErrIO, "aes: truncated ciphertext")
				}
				break
			}
			k.lookahead = blk
		}

		next := make([]byte, constants.AESBlockSize)
		rn, rerr := io.ReadFull(uf, next)
		isLast := rerr == io.EOF || rerr == io.ErrUnexpectedEOF
		if rerr != nil && !isLast {
			return filter.DecodeResult{N: n}, rerr
		}

		plain := make([]byte, constants.AESBlockSize)
		k.mode.CryptBlocks(plain, k.lookahead)

		if isLast {
			pad := int(plain[constants.AESBlockSize-1])
			if pad < 1 || pad > constants.AESBlockSize {
				return filter.DecodeResult{N: n}, errors.Wrap(errors.ErrIO, "aes: bad padding")
			}
			useful := constants.AESBlockSize - pad
			copy(out[n:], plain[:useful])
			n += useful
			k.lookahead = nil
			return filter.DecodeResult{N: n, EOD: true}, nil
		}

		copy(out[n:], plain)
		n += constants.AESBlockSize
		if rn == constants.AESBlockSize {
			k.lookahead = next
		} else {
			k.lookahead = nil
		}
	}
	return filter.DecodeResult{N: n}, nil
}
