package chat

import (
	"context"
	"errors"
	"os"
	"sync"
)

// fakeStore is an in-memory MessageStore with switchable failure modes.
type fakeStore struct {
	mu        sync.Mutex
	nextID    int
	failText  bool
	failFile  bool
	textCalls int
	fileCalls int
}

func (s *fakeStore) CreateMessage(_ context.Context, sender, recipient int, text string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.textCalls++
	if s.failText {
		return 0, errors.New("db down")
	}
	s.nextID++
	return s.nextID, nil
}

func (s *fakeStore) CreateFileMessage(_ context.Context, sender, recipient int, file *FileMeta) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fileCalls++
	if s.failFile {
		return 0, errors.New("db down")
	}
	s.nextID++
	return s.nextID, nil
}

func (s *fakeStore) calls() (text, file int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.textCalls, s.fileCalls
}

// memBlob is an in-memory blob.Store.
type memBlob struct {
	mu    sync.Mutex
	files map[string][]byte
	fail  bool
}

func newMemBlob() *memBlob {
	return &memBlob{files: make(map[string][]byte)}
}

func (b *memBlob) Write(_ context.Context, name string, data []byte) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail {
		return "", errors.New("disk full")
	}
	b.files[name] = data
	return "/uploads/" + name, nil
}

func (b *memBlob) Read(_ context.Context, name string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.files[name]
	if !ok {
		return nil, os.ErrNotExist
	}
	return data, nil
}

func (b *memBlob) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.files)
}

// fakeValidator maps raw token strings to identities.
type fakeValidator struct {
	identities map[string]Identity
}

func (v *fakeValidator) ValidateToken(tokenString string) (int, string, error) {
	id, ok := v.identities[tokenString]
	if !ok {
		return 0, "", errors.New("signature is invalid")
	}
	return id.UserID, id.Username, nil
}
