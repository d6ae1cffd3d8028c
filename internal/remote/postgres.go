package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/abhisek/coursekit/internal/certificate"
)

const documentsSchema = `
	CREATE TABLE IF NOT EXISTS documents (
		collection TEXT NOT NULL,
		id         TEXT NOT NULL,
		doc        JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (collection, id)
	)
`

// PostgresDocStore keeps JSON documents in a single JSONB table keyed by
// collection and id.
type PostgresDocStore struct {
	db *pgxpool.Pool
}

// NewPostgresDocStore returns a store backed by db.
func NewPostgresDocStore(db *pgxpool.Pool) *PostgresDocStore {
	return &PostgresDocStore{db: db}
}

// EnsureSchema creates the documents table if it does not exist.
func (s *PostgresDocStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, documentsSchema); err != nil {
		return fmt.Errorf("create documents table: %w", err)
	}
	return nil
}

// Get decodes the document into dst.
// Returns certificate.ErrDocNotFound if it doesn't exist.
func (s *PostgresDocStore) Get(ctx context.Context, collection, id string, dst any) error {
	query := `
        SELECT doc
        FROM documents
        WHERE collection = $1 AND id = $2
    `

	var raw []byte
	err := s.db.QueryRow(ctx, query, collection, id).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return certificate.ErrDocNotFound
		}
		return fmt.Errorf("get %s/%s: %w", collection, id, err)
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode %s/%s: %w", collection, id, err)
	}
	return nil
}

// Set writes doc, replacing any previous version.
func (s *PostgresDocStore) Set(ctx context.Context, collection, id string, doc any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", collection, id, err)
	}

	query := `
        INSERT INTO documents (collection, id, doc, updated_at)
        VALUES ($1, $2, $3, NOW())
        ON CONFLICT (collection, id) DO UPDATE
        SET doc = EXCLUDED.doc,
            updated_at = NOW()
    `

	if _, err := s.db.Exec(ctx, query, collection, id, raw); err != nil {
		return fmt.Errorf("set %s/%s: %w", collection, id, err)
	}
	return nil
}
