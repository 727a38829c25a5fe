package localfile_test

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/mimecast/filterpipe/internal/device/localfile"
)

func TestWriteThenReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.bin")
	want := []byte("local file device round trip")

	w, err := localfile.Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := w.Write(want); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := localfile.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != string(want) {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestSizeMatchesContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sized.bin")
	want := []byte("twenty-three bytes here")

	w, err := localfile.Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := w.Write(want); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := localfile.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	size, err := r.Size()
	if err != nil {
		t.Fatalf("Size: %v", err)
	}
	if size != int64(len(want)) {
		t.Fatalf("got size %d, want %d", size, len(want))
	}
	if !r.Rewindable() {
		t.Fatal("localfile.Device should be Rewindable")
	}
}

func TestSeekRepositions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seek.bin")
	want := []byte("0123456789")

	w, err := localfile.Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := w.Write(want); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := localfile.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	if _, err := r.Seek(5, io.SeekStart); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != "56789" {
		t.Fatalf("got %q, want %q", got, "56789")
	}
}

func TestOpenMissingFileFails(t *testing.T) {
	_, err := localfile.Open(filepath.Join(t.TempDir(), "does-not-exist.bin"))
	if err == nil {
		t.Fatal("expected an error opening a nonexistent file")
	}
	if !os.IsNotExist(errUnwrap(err)) {
		t.Fatalf("expected a not-exist error, got %v", err)
	}
}

func errUnwrap(err error) error {
	type unwrapper interface{ Unwrap() error }
	for {
		u, ok := err.(unwrapper)
		if !ok {
			return err
		}
		err = u.Unwrap()
	}
}
