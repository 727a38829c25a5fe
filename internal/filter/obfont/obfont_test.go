package obfont_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/mimecast/filterpipe/internal/filter"
	"github.com/mimecast/filterpipe/internal/filter/obfont"
	"github.com/mimecast/filterpipe/internal/filter/stringfilter"
)

// guidKey derives the same 16-byte key obfont.Kind.Init derives, so tests
// can build a known-obfuscated fixture without importing obfont internals.
// It mirrors obfont.c's get_prev_hex_digit: walking backward from the last
// '.', any byte that isn't a hex digit is skipped rather than rejected.
func guidKey(guid string) [16]byte {
	s := []byte(guid)
	dot := len(s)
	for dot > 0 {
		dot--
		if s[dot] == '.' {
			break
		}
	}

	prevHexDigit := func(i *int) byte {
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

	j := dot
	var key [16]byte
	for i := 0; i < 16; i++ {
		lo := prevHexDigit(&j)
		hi := prevHexDigit(&j)
		key[i] = hi<<4 | lo
	}
	return key
}

func obfuscate(plain []byte, key [16]byte) []byte {
	out := append([]byte{}, plain...)
	for i := 0; i < 32 && i < len(out); i++ {
		out[i] ^= key[i%16]
	}
	return out
}

func runObFontRoundTrip(t *testing.T, guid string) {
	t.Helper()
	key := guidKey(guid)

	plain := make([]byte, 64)
	for i := range plain {
		plain[i] = byte(i)
	}
	obfuscated := obfuscate(plain, key)

	src, _, err := stringfilter.New(filter.LocalRegistry, "obfsrc", filter.Input, obfuscated)
	if err != nil {
		t.Fatalf("stringfilter.New: %v", err)
	}

	f, err := obfont.New(filter.LocalRegistry, "obf", src.Ref(), guid)
	if err != nil {
		t.Fatalf("obfont.New: %v", err)
	}
	defer filter.Close(f, filter.Explicit)

	got, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !bytes.Equal(got, plain) {
		t.Fatalf("decoded mismatch:\ngot  %v\nwant %v", got, plain)
	}
}

func TestObFontDecodesPreludeOnly(t *testing.T) {
	runObFontRoundTrip(t, "resources/fonts/0123456789abcdef0123456789ABCDEF.odttf")
}

// TestObFontSkipsNonHexSeparators uses spec scenario E's literal key
// string, which has '-' separators inside the 32 characters preceding the
// dot. A naive contiguous 32-character slice would hex-decode the dashes
// and fail; the real key string must walk back over them.
func TestObFontSkipsNonHexSeparators(t *testing.T) {
	runObFontRoundTrip(t, "0123456789abcdef-01234567-89abcdef.odttf")
}
