package cryptofilter_test

import (
	"bytes"
	"crypto/rc4"
	"io"
	"testing"

	"github.com/mimecast/filterpipe/internal/filter"
	"github.com/mimecast/filterpipe/internal/filter/cryptofilter"
	"github.com/mimecast/filterpipe/internal/filter/stringfilter"
)

func rc4Encrypt(t *testing.T, key, plain []byte) []byte {
	t.Helper()
	c, err := rc4.NewCipher(key)
	if err != nil {
		t.Fatalf("rc4.NewCipher: %v", err)
	}
	out := make([]byte, len(plain))
	c.XORKeyStream(out, plain)
	return out
}

func TestRC4DecodeRoundTrip(t *testing.T) {
	key := []byte("supersecretkey12")
	plain := []byte("the quick brown fox jumps over the lazy dog, repeated enough to cross a scratch buffer boundary maybe")
	cipherBytes := rc4Encrypt(t, key, plain)

	src, _, err := stringfilter.New(filter.LocalRegistry, "cipher", filter.Input, cipherBytes)
	if err != nil {
		t.Fatalf("stringfilter.New: %v", err)
	}

	dec, err := cryptofilter.NewRC4Decode(filter.LocalRegistry, "rc4", src.Ref(), filter.Args{"RC4Key": key})
	if err != nil {
		t.Fatalf("NewRC4Decode: %v", err)
	}
	defer filter.Close(dec, filter.Explicit)

	got, err := io.ReadAll(dec)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !bytes.Equal(got, plain) {
		t.Fatalf("got %q, want %q", got, plain)
	}
}

func TestRC4DecodeRejectsOversizedKey(t *testing.T) {
	src, _, err := stringfilter.New(filter.LocalRegistry, "cipher2", filter.Input, []byte("x"))
	if err != nil {
		t.Fatalf("stringfilter.New: %v", err)
	}
	defer filter.Close(src, filter.Explicit)
	oversized := make([]byte, 257)
	if _, err := cryptofilter.NewRC4Decode(filter.LocalRegistry, "rc4bad", src.Ref(), filter.Args{"RC4Key": oversized}); err == nil {
		t.Fatalf("expected error for oversized RC4 key")
	}
}
