package cryptofilter_test

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"io"
	"testing"

	"github.com/mimecast/filterpipe/internal/filter"
	"github.com/mimecast/filterpipe/internal/filter/cryptofilter"
	"github.com/mimecast/filterpipe/internal/filter/stringfilter"
)

// aesEncryptStream builds the §4.7 wire format: 16-byte IV, CBC
// ciphertext blocks, one final PKCS#5/7 padding block.
func aesEncryptStream(t *testing.T, key, plain []byte) []byte {
	t.Helper()
	block, err := aes.NewCipher(key)
	if err != nil {
		t.Fatalf("aes.NewCipher: %v", err)
	}
	iv := make([]byte, aes.BlockSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		t.Fatalf("iv: %v", err)
	}
	pad := aes.BlockSize - len(plain)%aes.BlockSize
	padded := append(append([]byte{}, plain...), bytes.Repeat([]byte{byte(pad)}, pad)...)

	ciphertext := make([]byte, len(padded))
	mode := cipher.NewCBCEncrypter(block, iv)
	mode.CryptBlocks(ciphertext, padded)

	return append(append([]byte{}, iv...), ciphertext...)
}

func TestAESDecodeRoundTrip(t *testing.T) {
	key := []byte("0123456789abcdef") // 16 bytes
	plain := []byte("a secret message that is definitely not a multiple of sixteen bytes long")
	wire := aesEncryptStream(t, key, plain)

	src, _, err := stringfilter.New(filter.LocalRegistry, "aescipher", filter.Input, wire)
	if err != nil {
		t.Fatalf("stringfilter.New: %v", err)
	}

	dec, err := cryptofilter.NewAESDecode(filter.LocalRegistry, "aes", src.Ref(), filter.Args{"AESKey": key})
	if err != nil {
		t.Fatalf("NewAESDecode: %v", err)
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

func TestAESDecodeRejectsBadKeyLength(t *testing.T) {
	src, _, err := stringfilter.New(filter.LocalRegistry, "aesbadkeysrc", filter.Input, []byte("ignored"))
	if err != nil {
		t.Fatalf("stringfilter.New: %v", err)
	}
	defer filter.Close(src, filter.Explicit)

	if _, err := cryptofilter.NewAESDecode(filter.LocalRegistry, "aesbad", src.Ref(), filter.Args{"AESKey": []byte("short")}); err == nil {
		t.Fatalf("expected error for bad AES key length")
	}
}
