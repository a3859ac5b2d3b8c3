package chat

import (
	"bytes"
	"context"
	"encoding/base64"
	"strings"
	"testing"
)

func TestIngestStripsDataURIPrefix(t *testing.T) {
	blobs := newMemBlob()
	ingest := NewIngest(blobs)

	content := []byte("fake png bytes")
	data := "data:image/png;base64," + base64.StdEncoding.EncodeToString(content)

	meta, err := ingest.Store(7, "cat.png", "image/png", int64(len(content)), data)
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if !strings.HasPrefix(meta.URL, "/uploads/") {
		t.Fatalf("URL = %q, want /uploads/ prefix", meta.URL)
	}
	if !strings.HasSuffix(meta.URL, "-7-cat.png") {
		t.Fatalf("URL = %q, want sender id and sanitized name in storage name", meta.URL)
	}

	name := strings.TrimPrefix(meta.URL, "/uploads/")
	stored, err := blobs.Read(context.Background(), name)
	if err != nil {
		t.Fatalf("Read stored blob: %v", err)
	}
	if !bytes.Equal(stored, content) {
		t.Fatalf("stored bytes = %q, want %q", stored, content)
	}
}

func TestIngestAcceptsBarePayload(t *testing.T) {
	ingest := NewIngest(newMemBlob())

	meta, err := ingest.Store(1, "notes.txt", "", 0, base64.StdEncoding.EncodeToString([]byte("hello")))
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if meta.ContentType != "application/octet-stream" {
		t.Fatalf("ContentType = %q, want default octet-stream", meta.ContentType)
	}
	if meta.Size != 5 {
		t.Fatalf("Size = %d, want decoded length 5", meta.Size)
	}
}

func TestIngestSanitizesFilename(t *testing.T) {
	blobs := newMemBlob()
	ingest := NewIngest(blobs)

	meta, err := ingest.Store(2, "../../etc/pass wd?.txt", "text/plain", 0,
		base64.StdEncoding.EncodeToString([]byte("x")))
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	name := strings.TrimPrefix(meta.URL, "/uploads/")
	if strings.ContainsAny(name, "/? ") {
		t.Fatalf("storage name %q contains unsafe characters", name)
	}
	if !strings.HasSuffix(name, ".._.._etc_pass_wd_.txt") {
		t.Fatalf("storage name %q, want sanitized original name suffix", name)
	}
	// The relayed metadata keeps the name the client chose.
	if meta.Filename != "../../etc/pass wd?.txt" {
		t.Fatalf("Filename = %q, want original preserved", meta.Filename)
	}
}

func TestIngestRejectsBadPayload(t *testing.T) {
	blobs := newMemBlob()
	ingest := NewIngest(blobs)

	if _, err := ingest.Store(1, "a.bin", "", 0, "!!! not base64 !!!"); err == nil {
		t.Fatal("Store accepted undecodable payload")
	}
	if _, err := ingest.Store(1, "a.bin", "", 0, ""); err == nil {
		t.Fatal("Store accepted empty payload")
	}
	if blobs.count() != 0 {
		t.Fatalf("blob store has %d entries after rejected payloads, want 0", blobs.count())
	}
}

func TestIngestPropagatesBlobFailure(t *testing.T) {
	blobs := newMemBlob()
	blobs.fail = true
	ingest := NewIngest(blobs)

	if _, err := ingest.Store(1, "a.bin", "", 0, base64.StdEncoding.EncodeToString([]byte("x"))); err == nil {
		t.Fatal("Store succeeded despite blob write failure")
	}
}
