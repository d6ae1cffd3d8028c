package remote

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/abhisek/coursekit/internal/certificate"
	"github.com/abhisek/coursekit/internal/store"
)

// SQLiteDocStore keeps certificate documents in the local database. It is
// the default when no remote database is configured.
type SQLiteDocStore struct {
	repo *store.DocRepo
}

// NewSQLiteDocStore returns a document store over repo.
func NewSQLiteDocStore(repo *store.DocRepo) *SQLiteDocStore {
	return &SQLiteDocStore{repo: repo}
}

// Get decodes the document into dst or returns certificate.ErrDocNotFound.
func (s *SQLiteDocStore) Get(ctx context.Context, collection, id string, dst any) error {
	raw, ok, err := s.repo.GetDoc(ctx, collection, id)
	if err != nil {
		return err
	}
	if !ok {
		return certificate.ErrDocNotFound
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return fmt.Errorf("decode %s/%s: %w", collection, id, err)
	}
	return nil
}

// Set stores doc, replacing any previous version.
func (s *SQLiteDocStore) Set(ctx context.Context, collection, id string, doc any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", collection, id, err)
	}
	return s.repo.SetDoc(ctx, collection, id, string(raw))
}
