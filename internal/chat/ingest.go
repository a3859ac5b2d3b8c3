package chat

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"pairchat/internal/blob"
)

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// Ingest turns a transport-encoded attachment into a durably stored blob.
type Ingest struct {
	blobs blob.Store
}

func NewIngest(blobs blob.Store) *Ingest {
	return &Ingest{blobs: blobs}
}

// Store decodes, sanitizes, and writes one attachment. The payload may
// carry a data-URI prefix ("data:image/png;base64,....") which is stripped
// before decoding. The storage name is timestamp + sender + sanitized
// filename, so concurrent uploads of the same file never collide.
func (p *Ingest) Store(senderID int, filename, contentType string, size int64, data string) (*FileMeta, error) {
	if i := strings.IndexByte(data, ','); i >= 0 {
		data = data[i+1:]
	}
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	if len(raw) == 0 {
		return nil, errors.New("empty payload")
	}

	safe := unsafeChars.ReplaceAllString(filename, "_")
	name := fmt.Sprintf("%d-%d-%s", time.Now().UnixMilli(), senderID, safe)

	url, err := p.blobs.Write(context.Background(), name, raw)
	if err != nil {
		return nil, fmt.Errorf("write blob %s: %w", name, err)
	}

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if size <= 0 {
		size = int64(len(raw))
	}
	return &FileMeta{
		Filename:    filename,
		URL:         url,
		ContentType: contentType,
		Size:        size,
	}, nil
}
