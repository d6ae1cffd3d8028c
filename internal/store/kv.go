package store

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
)

const kvTable = "kv"

// KVRepo is a string key-value store on the kv table. Writes are
// synchronous; a failed write leaves the previous value in place.
type KVRepo struct {
	drv *entsql.Driver
}

// GetString returns the value stored under key. ok is false when the key
// has never been set or was removed.
func (r *KVRepo) GetString(ctx context.Context, key string) (value string, ok bool, err error) {
	b := entsql.Dialect(dialect.SQLite)
	query, args := b.Select("value").
		From(b.Table(kvTable)).
		Where(entsql.EQ("key", key)).
		Limit(1).
		Query()

	var rows entsql.Rows
	if err := r.drv.Query(ctx, query, args, &rows); err != nil {
		return "", false, fmt.Errorf("query key %q: %w", key, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return "", false, fmt.Errorf("read key %q: %w", key, err)
		}
		return "", false, nil
	}
	if err := rows.Scan(&value); err != nil {
		return "", false, fmt.Errorf("scan key %q: %w", key, err)
	}
	return value, true, nil
}

// SetString upserts value under key.
func (r *KVRepo) SetString(ctx context.Context, key, value string) error {
	query, args := entsql.Dialect(dialect.SQLite).
		Insert(kvTable).
		Columns("key", "value").
		Values(key, value).
		OnConflict(
			entsql.ConflictColumns("key"),
			entsql.ResolveWithNewValues(),
		).
		Query()

	if err := r.drv.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("set key %q: %w", key, err)
	}
	return nil
}

// Remove deletes key. Removing a missing key is not an error.
func (r *KVRepo) Remove(ctx context.Context, key string) error {
	query, args := entsql.Dialect(dialect.SQLite).
		Delete(kvTable).
		Where(entsql.EQ("key", key)).
		Query()

	if err := r.drv.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("remove key %q: %w", key, err)
	}
	return nil
}
