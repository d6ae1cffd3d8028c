package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/abhisek/coursekit/internal/certificate"
)

// MemoryDocStore is an in-process document store. Documents are kept as
// JSON so callers see the same encoding behavior as with Postgres.
type MemoryDocStore struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

// NewMemoryDocStore returns an empty store.
func NewMemoryDocStore() *MemoryDocStore {
	return &MemoryDocStore{docs: make(map[string][]byte)}
}

func docKey(collection, id string) string {
	return collection + "/" + id
}

// Get decodes the document into dst or returns certificate.ErrDocNotFound.
func (s *MemoryDocStore) Get(ctx context.Context, collection, id string, dst any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	raw, ok := s.docs[docKey(collection, id)]
	s.mu.RUnlock()
	if !ok {
		return certificate.ErrDocNotFound
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode %s/%s: %w", collection, id, err)
	}
	return nil
}

// Set stores doc, replacing any previous version.
func (s *MemoryDocStore) Set(ctx context.Context, collection, id string, doc any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", collection, id, err)
	}
	s.mu.Lock()
	s.docs[docKey(collection, id)] = raw
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored documents.
func (s *MemoryDocStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}
