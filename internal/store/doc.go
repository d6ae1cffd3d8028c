package store

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
)

const documentsTable = "documents"

// DocRepo stores raw JSON documents keyed by collection and id. It backs
// the on-device certificate store when no remote database is configured.
type DocRepo struct {
	drv *entsql.Driver
}

// GetDoc returns the document body. ok is false when it does not exist.
func (r *DocRepo) GetDoc(ctx context.Context, collection, id string) (doc string, ok bool, err error) {
	b := entsql.Dialect(dialect.SQLite)
	query, args := b.Select("doc").
		From(b.Table(documentsTable)).
		Where(entsql.EQ("collection", collection)).
		Where(entsql.EQ("id", id)).
		Limit(1).
		Query()

	var rows entsql.Rows
	if err := r.drv.Query(ctx, query, args, &rows); err != nil {
		return "", false, fmt.Errorf("query document %s/%s: %w", collection, id, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return "", false, fmt.Errorf("read document %s/%s: %w", collection, id, err)
		}
		return "", false, nil
	}
	if err := rows.Scan(&doc); err != nil {
		return "", false, fmt.Errorf("scan document %s/%s: %w", collection, id, err)
	}
	return doc, true, nil
}

// SetDoc upserts a document body.
func (r *DocRepo) SetDoc(ctx context.Context, collection, id, doc string) error {
	query, args := entsql.Dialect(dialect.SQLite).
		Insert(documentsTable).
		Columns("collection", "id", "doc").
		Values(collection, id, doc).
		OnConflict(
			entsql.ConflictColumns("collection", "id"),
			entsql.ResolveWithNewValues(),
		).
		Query()

	if err := r.drv.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("set document %s/%s: %w", collection, id, err)
	}
	return nil
}
