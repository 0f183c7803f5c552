package gonpy

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestBufferBackend(t *testing.T) {
	b := NewBufferBackend([]byte("hello world"))
	if b.Size() != 11 || b.EOF() {
		t.Fatalf("size=%d eof=%v", b.Size(), b.EOF())
	}

	dest := make([]byte, 5)
	n, err := b.Read(dest)
	if err != nil || n != 5 || string(dest) != "hello" {
		t.Fatalf("read %d %q %v", n, dest, err)
	}

	view, err := b.View(6)
	if err != nil || string(view) != " world" {
		t.Fatalf("view %q %v", view, err)
	}
	// view does not advance
	if pos, _ := b.Seek(0, SeekRelative); pos != 5 {
		t.Errorf("pos after view = %d", pos)
	}

	if _, err := b.Seek(-5, SeekFromEnd); err != nil {
		t.Fatal(err)
	}
	rest, _ := io.ReadAll(backendReader{b})
	if string(rest) != "world" {
		t.Errorf("tail = %q", rest)
	}
	if !b.EOF() {
		t.Error("EOF expected after draining")
	}
	if _, err := b.Seek(100, SeekAbsolute); err == nil {
		t.Error("seek past end should fail")
	}
}

func TestFileBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.bin")
	content := []byte("0123456789")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	b := NewFileBackend(f, int64(len(content)))
	defer b.Close()

	dest := make([]byte, 4)
	if n, err := b.Read(dest); err != nil || n != 4 || string(dest) != "0123" {
		t.Fatalf("read %d %q %v", n, dest, err)
	}
	// file backends do not support zero-copy views
	if _, err := b.View(2); err == nil {
		t.Error("View on a file backend should fail")
	}
	if pos, err := b.Seek(2, SeekAbsolute); err != nil || pos != 2 {
		t.Fatalf("seek: %d %v", pos, err)
	}
	if n, _ := b.Read(dest); string(dest[:n]) != "2345" {
		t.Errorf("after seek read %q", dest[:n])
	}
}

func TestMmapBackendPayloadOffset(t *testing.T) {
	// the mapped region covers the whole file, but data() starts at the
	// payload offset
	mapping := []byte("HEADERpayload")
	b := newMmapBackend(mapping, 6, nil)
	if b.Size() != 7 {
		t.Errorf("size = %d, want 7", b.Size())
	}
	view, err := b.View(7)
	if err != nil || !bytes.Equal(view, []byte("payload")) {
		t.Fatalf("view %q %v", view, err)
	}
	if !bytes.Equal(b.DataPtr(), []byte("payload")) {
		t.Errorf("DataPtr = %q", b.DataPtr())
	}
	released := false
	b2 := newMmapBackend(mapping, 0, func() error { released = true; return nil })
	if err := b2.Close(); err != nil || !released {
		t.Error("close must invoke the release hook")
	}
	// close is idempotent
	released = false
	if err := b2.Close(); err != nil || released {
		t.Error("second close must be a no-op")
	}
}
