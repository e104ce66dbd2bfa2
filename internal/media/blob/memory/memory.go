// Package memory provides an in-memory blob store backend. It retains the
// uploaded bytes so tests and local development can verify that a reference
// actually resolves after upload and stops resolving after reconciliation.
package memory

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/Misaka450/baoandkai-sub000/internal/media/blob"
)

type entry struct {
	data        []byte
	contentType string
}

// Store implements blob.Store backed by a map. Safe for concurrent use.
type Store struct {
	mu         sync.RWMutex
	blobs      map[string]entry
	publicBase string
}

// New creates an empty in-memory store serving references under publicBase.
func New(publicBase string) *Store {
	return &Store{
		blobs:      make(map[string]entry),
		publicBase: strings.TrimRight(publicBase, "/"),
	}
}

// Put buffers r and stores it under key.
func (s *Store) Put(_ context.Context, key string, r io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read blob %q: %w", key, err)
	}
	if size >= 0 && int64(len(data)) != size {
		return fmt.Errorf("blob %q: declared size %d, read %d", key, size, len(data))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = entry{data: data, contentType: contentType}
	return nil
}

// Delete removes the blob at key, reporting blob.ErrNotFound if absent.
func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.blobs[key]; !ok {
		return fmt.Errorf("%w: %s", blob.ErrNotFound, key)
	}
	delete(s.blobs, key)
	return nil
}

// PublicURL returns the reference under which key is served.
func (s *Store) PublicURL(key string) string {
	return s.publicBase + "/" + key
}

// Get returns the stored bytes and content type for key. Used by tests and
// by the local dev file-serving handler.
func (s *Store) Get(key string) ([]byte, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.blobs[key]
	if !ok {
		return nil, "", false
	}
	out := make([]byte, len(e.data))
	copy(out, e.data)
	return out, e.contentType, true
}

// Len reports the number of stored blobs.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
