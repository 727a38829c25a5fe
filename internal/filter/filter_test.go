package filter_test

import (
	"io"
	"testing"

	"github.com/mimecast/filterpipe/internal/filter"
	"github.com/mimecast/filterpipe/internal/filter/stringfilter"
)

func TestStringFilterRoundTrip(t *testing.T) {
	want := "hello, filter pipeline"
	f, _, err := stringfilter.New(filter.LocalRegistry, "t1", filter.Input, []byte(want))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer filter.Close(f, filter.Explicit)

	got, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestEOFIdempotent(t *testing.T) {
	f, _, err := stringfilter.New(filter.LocalRegistry, "t2", filter.Input, []byte("ab"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer filter.Close(f, filter.Explicit)

	for i := 0; i < 2; i++ {
		if _, err := f.GetByte(); err != nil {
			t.Fatalf("byte %d: unexpected error %v", i, err)
		}
	}
	for i := 0; i < 3; i++ {
		if _, err := f.GetByte(); err != io.EOF {
			t.Fatalf("expected repeated io.EOF, got %v", err)
		}
	}
}

func TestUngetByteRedeliversSameByte(t *testing.T) {
	f, _, err := stringfilter.New(filter.LocalRegistry, "t3", filter.Input, []byte("xy"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer filter.Close(f, filter.Explicit)

	c1, err := f.GetByte()
	if err != nil {
		t.Fatalf("GetByte: %v", err)
	}
	if err := f.UngetByte(); err != nil {
		t.Fatalf("UngetByte: %v", err)
	}
	c2, err := f.GetByte()
	if err != nil {
		t.Fatalf("GetByte after unget: %v", err)
	}
	if c1 != c2 {
		t.Fatalf("unget did not redeliver the same byte: %q != %q", c1, c2)
	}
}

func TestUngetByteWithoutGetFails(t *testing.T) {
	f, _, err := stringfilter.New(filter.LocalRegistry, "t4", filter.Input, []byte("z"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer filter.Close(f, filter.Explicit)

	if err := f.UngetByte(); err == nil {
		t.Fatalf("expected error ungetting before any get_byte")
	}
}

func TestReferenceInvalidationAfterRecycle(t *testing.T) {
	f, _, err := stringfilter.New(filter.LocalRegistry, "t5", filter.Input, []byte("a"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ref := f.Ref()

	if err := filter.Close(f, filter.Explicit); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if _, err := filter.Resolve(ref); err == nil {
		t.Fatalf("expected stale reference to fail resolution after close")
	}

	// Recycle the freed slot with a new filter; the old ref must still be
	// dead even though the slot is back in use (generation mismatch).
	f2, _, err := stringfilter.New(filter.LocalRegistry, "t6", filter.Input, []byte("b"))
	if err != nil {
		t.Fatalf("New (recycled): %v", err)
	}
	defer filter.Close(f2, filter.Explicit)

	if _, err := filter.Resolve(ref); err == nil {
		t.Fatalf("old reference resolved against a recycled slot")
	}
	if _, err := filter.Resolve(f2.Ref()); err != nil {
		t.Fatalf("fresh reference should resolve: %v", err)
	}
}

func TestChainLinkAndTransitiveClose(t *testing.T) {
	inner, _, err := stringfilter.New(filter.GlobalRegistry, "inner", filter.Input, []byte("payload"))
	if err != nil {
		t.Fatalf("New inner: %v", err)
	}

	outer, _, err := stringfilter.New(filter.GlobalRegistry, "outer", filter.Input, []byte("unused"))
	if err != nil {
		t.Fatalf("New outer: %v", err)
	}
	outer.SetUnderlying(inner.Ref(), true)

	uf, err := outer.Underlying()
	if err != nil {
		t.Fatalf("Underlying: %v", err)
	}
	if uf != inner {
		t.Fatalf("outer's underlying did not resolve to inner")
	}

	// Closing outer (with CloseSourceTarget set) must also close inner.
	if err := filter.Close(outer, filter.Explicit); err != nil {
		t.Fatalf("Close outer: %v", err)
	}
	if _, err := filter.Resolve(inner.Ref()); err == nil {
		t.Fatalf("inner should have been closed transitively")
	}
}

func TestByteCountPreserved(t *testing.T) {
	data := make([]byte, 5000)
	for i := range data {
		data[i] = byte(i)
	}
	f, _, err := stringfilter.New(filter.LocalRegistry, "t7", filter.Input, data)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer filter.Close(f, filter.Explicit)

	got, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(got) != len(data) {
		t.Fatalf("got %d bytes, want %d", len(got), len(data))
	}
	for i := range data {
		if got[i] != data[i] {
			t.Fatalf("byte %d mismatch: got %d want %d", i, got[i], data[i])
		}
	}
}
