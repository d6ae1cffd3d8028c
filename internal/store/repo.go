package store

import (
	"context"
	"time"
)

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit    int       // max results (0 = unlimited)
	After    int64     // sequence > After
	From     time.Time // timestamp >= From
	CourseID string    // exact course match ("" = all courses)
}

// Activity kinds recorded in the activity log.
const (
	ActivityLessonCompleted   = "lesson_completed"
	ActivityTestSubmitted     = "test_submitted"
	ActivityCertificateIssued = "certificate_issued"
	ActivityCertificateReused = "certificate_reused"
)

// ActivityEventData captures one learner-visible state change.
type ActivityEventData struct {
	Kind     string
	CourseID string
	Detail   string
}

// ActivityRecord is a persisted activity event.
type ActivityRecord struct {
	Sequence  int64
	Timestamp time.Time
	Kind      string
	CourseID  string
	Detail    string
}

// EventRepo provides append and query access to the activity log.
type EventRepo interface {
	// AppendActivity records an activity event.
	AppendActivity(ctx context.Context, data ActivityEventData) error

	// QueryActivity returns events newest first.
	QueryActivity(ctx context.Context, opts QueryOpts) ([]ActivityRecord, error)

	// ActivityCounts returns the number of events per kind.
	ActivityCounts(ctx context.Context) (map[string]int, error)
}
