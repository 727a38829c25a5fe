package zstdfilter_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/DataDog/zstd"

	"github.com/mimecast/filterpipe/internal/filter"
	"github.com/mimecast/filterpipe/internal/filter/stringfilter"
	"github.com/mimecast/filterpipe/internal/filter/zstdfilter"
)

func TestZstdDecodeRoundTrip(t *testing.T) {
	plain := []byte("repeated repeated repeated repeated data compresses well with zstd")
	compressed, err := zstd.Compress(nil, plain)
	if err != nil {
		t.Fatalf("zstd.Compress: %v", err)
	}

	src, _, err := stringfilter.New(filter.LocalRegistry, "zsrc", filter.Input, compressed)
	if err != nil {
		t.Fatalf("stringfilter.New: %v", err)
	}

	dec, err := zstdfilter.NewDecode(filter.LocalRegistry, "zdec", src.Ref())
	if err != nil {
		t.Fatalf("NewDecode: %v", err)
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
