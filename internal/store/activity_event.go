package store

import (
	"context"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
)

const activityTable = "activity_events"

// eventRepo implements EventRepo on the activity_events table and the
// global sequence counter.
type eventRepo struct {
	drv *entsql.Driver
	seq *sequenceCounter
}

func (r *eventRepo) AppendActivity(ctx context.Context, data ActivityEventData) error {
	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}

	query, args := entsql.Dialect(dialect.SQLite).
		Insert(activityTable).
		Columns("sequence", "timestamp_ms", "kind", "course_id", "detail").
		Values(seqNum, time.Now().UnixMilli(), data.Kind, data.CourseID, data.Detail).
		Query()

	if err := r.drv.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("save activity event: %w", err)
	}
	return nil
}

func (r *eventRepo) QueryActivity(ctx context.Context, opts QueryOpts) ([]ActivityRecord, error) {
	b := entsql.Dialect(dialect.SQLite)
	sel := b.Select("sequence", "timestamp_ms", "kind", "course_id", "detail").
		From(b.Table(activityTable)).
		OrderBy(entsql.Desc("sequence"))

	if opts.Limit > 0 {
		sel = sel.Limit(opts.Limit)
	}
	if opts.After > 0 {
		sel = sel.Where(entsql.GT("sequence", opts.After))
	}
	if !opts.From.IsZero() {
		sel = sel.Where(entsql.GTE("timestamp_ms", opts.From.UnixMilli()))
	}
	if opts.CourseID != "" {
		sel = sel.Where(entsql.EQ("course_id", opts.CourseID))
	}

	query, args := sel.Query()
	var rows entsql.Rows
	if err := r.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("query activity events: %w", err)
	}
	defer rows.Close()

	var records []ActivityRecord
	for rows.Next() {
		var (
			rec ActivityRecord
			ms  int64
		)
		if err := rows.Scan(&rec.Sequence, &ms, &rec.Kind, &rec.CourseID, &rec.Detail); err != nil {
			return nil, fmt.Errorf("scan activity event: %w", err)
		}
		rec.Timestamp = time.UnixMilli(ms).UTC()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read activity events: %w", err)
	}
	return records, nil
}

func (r *eventRepo) ActivityCounts(ctx context.Context) (map[string]int, error) {
	b := entsql.Dialect(dialect.SQLite)
	query, args := b.Select("kind", entsql.Count("*")).
		From(b.Table(activityTable)).
		GroupBy("kind").
		Query()

	var rows entsql.Rows
	if err := r.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("query activity counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			kind string
			n    int
		)
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("scan activity count: %w", err)
		}
		counts[kind] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read activity counts: %w", err)
	}
	return counts, nil
}
