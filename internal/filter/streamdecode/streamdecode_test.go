package streamdecode_test

import (
	"io"
	"testing"

	"github.com/mimecast/filterpipe/internal/filter"
	"github.com/mimecast/filterpipe/internal/filter/stringfilter"
	"github.com/mimecast/filterpipe/internal/filter/streamdecode"
)

func decodeAll(t *testing.T, raw string, length int64) string {
	t.Helper()
	src, _, err := stringfilter.New(filter.LocalRegistry, "src", filter.Input, []byte(raw))
	if err != nil {
		t.Fatalf("stringfilter.New: %v", err)
	}
	sd, err := streamdecode.New(filter.LocalRegistry, "sd", src.Ref(), filter.Args{
		"Length": length,
	})
	if err != nil {
		t.Fatalf("streamdecode.New: %v", err)
	}
	defer filter.Close(sd, filter.Explicit)

	got, err := io.ReadAll(sd)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	return string(got)
}

func TestTerminatorPlain(t *testing.T) {
	content := "hello world"
	raw := content + "endstream"
	if got := decodeAll(t, raw, int64(len(content))); got != content {
		t.Fatalf("got %q, want %q", got, content)
	}
}

func TestTerminatorCR(t *testing.T) {
	content := "abc"
	raw := content + "\rendstream"
	if got := decodeAll(t, raw, int64(len(content))); got != content {
		t.Fatalf("got %q, want %q", got, content)
	}
}

func TestTerminatorLF(t *testing.T) {
	content := "abc"
	raw := content + "\nendstream"
	if got := decodeAll(t, raw, int64(len(content))); got != content {
		t.Fatalf("got %q, want %q", got, content)
	}
}

func TestTerminatorCRLF(t *testing.T) {
	content := "abc"
	raw := content + "\r\nendstream"
	if got := decodeAll(t, raw, int64(len(content))); got != content {
		t.Fatalf("got %q, want %q", got, content)
	}
}

// TestLengthUnderestimate covers §4.4's "emit the matched prefix into the
// buffer and continue" case: Length undercounts the true content, so the
// scanner sees non-terminator bytes after the declared length and must
// recover them as content rather than dropping them.
func TestLengthUnderestimate(t *testing.T) {
	content := "hello world, more than declared"
	raw := content + "endstream"
	// Declare a Length far shorter than the actual content; the scan phase
	// must still recover the rest of content before the real terminator.
	if got := decodeAll(t, raw, 5); got != content {
		t.Fatalf("got %q, want %q", got, content)
	}
}

func TestZeroLength(t *testing.T) {
	raw := "endstream"
	if got := decodeAll(t, raw, 0); got != "" {
		t.Fatalf("got %q, want empty", got)
	}
}
