package blob

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"
)

func TestDiskStoreRoundTrip(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDiskStore: %v", err)
	}

	content := []byte("attachment bytes")
	url, err := store.Write(context.Background(), "1700000000000-1-cat.png", content)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if url != "/uploads/1700000000000-1-cat.png" {
		t.Fatalf("url = %q", url)
	}

	got, err := store.Read(context.Background(), "1700000000000-1-cat.png")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Fatalf("read back %q, want %q", got, content)
	}
}

func TestDiskStoreRejectsTraversal(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDiskStore: %v", err)
	}

	for _, name := range []string{"", ".", "..", "../escape", "a/b", `a\b`} {
		if _, err := store.Write(context.Background(), name, []byte("x")); err == nil {
			t.Errorf("Write accepted unsafe name %q", name)
		}
		if _, err := store.Read(context.Background(), name); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("Read(%q) = %v, want ErrNotExist", name, err)
		}
	}
}

func TestDiskStoreReadMissing(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDiskStore: %v", err)
	}
	if _, err := store.Read(context.Background(), "nope.bin"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("Read missing = %v, want ErrNotExist", err)
	}
}
