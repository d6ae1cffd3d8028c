// Package progress owns the per-course progress map: lesson completion,
// last-visited lesson, final-test results and the issued certificate id.
// The Manager is the only writer of the map; every mutation is a
// copy-on-write read-modify-write that is swapped into memory only after
// the local store accepted it.
package progress

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"go.uber.org/zap"

	"github.com/abhisek/coursekit/internal/store"
)

// KVStore is the local key-value store the map is persisted in.
type KVStore interface {
	GetString(ctx context.Context, key string) (string, bool, error)
	SetString(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// ActivityLog receives an event after each successful state change.
type ActivityLog interface {
	AppendActivity(ctx context.Context, data store.ActivityEventData) error
}

// Manager is the repository object for the progress map.
type Manager struct {
	mu     sync.RWMutex
	kv     KVStore
	events ActivityLog
	logger *zap.Logger
	state  Map
	// loaded is false while the stored map could not be read. Writes are
	// refused until a retry succeeds so they cannot replace unread data.
	loaded bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithActivityLog records successful changes to the given log.
func WithActivityLog(a ActivityLog) Option {
	return func(m *Manager) { m.events = a }
}

// Open loads the progress map from kv. Read failures and malformed data
// are logged and fall back to an empty map; they never fail Open. After a
// read failure the load is retried before the next write.
func Open(ctx context.Context, kv KVStore, opts ...Option) *Manager {
	m := &Manager{
		kv:     kv,
		logger: zap.NewNop(),
		state:  Map{},
	}
	for _, opt := range opts {
		opt(m)
	}
	state, err := m.load(ctx)
	if err != nil {
		m.logger.Warn("read progress failed, starting empty", zap.Error(err))
	}
	m.state = state
	m.loaded = err == nil
	return m
}

func (m *Manager) load(ctx context.Context) (Map, error) {
	raw, ok, err := m.kv.GetString(ctx, StorageKey)
	if err != nil {
		return Map{}, err
	}
	if !ok {
		return Map{}, nil
	}

	res := Decode(raw)
	if res.Malformed {
		m.logger.Warn("progress document is malformed, starting empty",
			zap.Int("bytes", len(raw)))
	}
	if len(res.Dropped) > 0 {
		m.logger.Warn("dropped invalid progress entries",
			zap.Strings("courses", res.Dropped))
	}
	return res.Map, nil
}

// reload retries a failed initial load. The caller holds mu.
func (m *Manager) reload(ctx context.Context, courseID string) error {
	if m.loaded {
		return nil
	}
	state, err := m.load(ctx)
	if err != nil {
		m.logger.Error("read progress failed, refusing write",
			zap.String("course", courseID), zap.Error(err))
		return &PersistError{CourseID: courseID, Err: fmt.Errorf("stored progress unreadable: %w", err)}
	}
	m.state = state
	m.loaded = true
	return nil
}

// mutation edits a private copy of one entry. It reports whether anything
// changed and, optionally, the activity to record.
type mutation func(p *CourseProgress, exists bool) (changed bool, ev *store.ActivityEventData, err error)

func (m *Manager) update(ctx context.Context, courseID string, fn mutation) (CourseProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.reload(ctx, courseID); err != nil {
		return CourseProgress{}, err
	}

	current, exists := m.state[courseID]
	var entry CourseProgress
	if exists {
		entry = current.Clone()
	} else {
		entry = NewCourseProgress(courseID, 0)
	}

	changed, ev, err := fn(&entry, exists)
	if err != nil {
		return current.Clone(), err
	}
	if exists && !changed {
		return entry, nil
	}
	entry.normalize()

	next := maps.Clone(m.state)
	if next == nil {
		next = Map{}
	}
	next[courseID] = entry

	raw, err := Encode(next)
	if err != nil {
		m.logger.Error("encode progress failed", zap.String("course", courseID), zap.Error(err))
		return current.Clone(), &PersistError{CourseID: courseID, Err: err}
	}
	if err := m.kv.SetString(ctx, StorageKey, raw); err != nil {
		m.logger.Error("write progress failed", zap.String("course", courseID), zap.Error(err))
		return current.Clone(), &PersistError{CourseID: courseID, Err: err}
	}
	m.state = next

	if ev != nil && m.events != nil {
		ev.CourseID = courseID
		if err := m.events.AppendActivity(ctx, *ev); err != nil {
			m.logger.Warn("record activity failed", zap.String("kind", ev.Kind), zap.Error(err))
		}
	}
	return entry.Clone(), nil
}

// EnsureCourseEntry creates the entry for courseID if it is missing and
// keeps Total in step with totalLessons. Completion data is never touched.
func (m *Manager) EnsureCourseEntry(ctx context.Context, courseID, courseName string, totalLessons int) (CourseProgress, error) {
	if totalLessons < 0 {
		totalLessons = 0
	}
	return m.update(ctx, courseID, func(p *CourseProgress, exists bool) (bool, *store.ActivityEventData, error) {
		if !exists {
			*p = NewCourseProgress(courseName, totalLessons)
			return true, nil, nil
		}
		// Total never drops below the lessons already completed.
		target := max(totalLessons, p.Completed)
		changed := false
		if p.Total != target {
			p.Total = target
			changed = true
		}
		if p.Name == "" && courseName != "" {
			p.Name = courseName
			changed = true
		}
		return changed, nil, nil
	})
}

// MarkLessonComplete adds lessonID to the completed set and moves
// LastVisit to it. Re-entering a completed lesson only moves LastVisit.
func (m *Manager) MarkLessonComplete(ctx context.Context, courseID string, lessonID int) (CourseProgress, error) {
	if lessonID < 1 {
		m.logger.DPanic("mark lesson complete with invalid id",
			zap.String("course", courseID), zap.Int("lesson", lessonID))
		return CourseProgress{}, fmt.Errorf("%w: %d", ErrInvalidLesson, lessonID)
	}

	return m.update(ctx, courseID, func(p *CourseProgress, _ bool) (bool, *store.ActivityEventData, error) {
		if p.HasLesson(lessonID) {
			if p.LastVisit == lessonID {
				return false, nil, nil
			}
			p.LastVisit = lessonID
			return true, nil, nil
		}
		p.LessonsDone = append(p.LessonsDone, lessonID)
		p.LastVisit = lessonID
		return true, &store.ActivityEventData{
			Kind:   store.ActivityLessonCompleted,
			Detail: fmt.Sprintf("lesson %d", lessonID),
		}, nil
	})
}

// RecordTestResult replaces TestScore and UserAnswers in a single write.
func (m *Manager) RecordTestResult(ctx context.Context, courseID string, percentage int, answers map[string]string) (CourseProgress, error) {
	if percentage < 0 || percentage > 100 {
		return CourseProgress{}, fmt.Errorf("%w: %d", ErrInvalidScore, percentage)
	}
	copied := make(map[string]string, len(answers))
	for k, v := range answers {
		copied[k] = v
	}

	return m.update(ctx, courseID, func(p *CourseProgress, _ bool) (bool, *store.ActivityEventData, error) {
		p.TestScore = percentage
		p.UserAnswers = copied
		return true, &store.ActivityEventData{
			Kind:   store.ActivityTestSubmitted,
			Detail: fmt.Sprintf("%d%%", percentage),
		}, nil
	})
}

// SetCertificateID records the issued certificate for courseID. Recording
// the same id again is a no-op; recording a different one fails.
func (m *Manager) SetCertificateID(ctx context.Context, courseID, certID string) (CourseProgress, error) {
	if certID == "" {
		return CourseProgress{}, fmt.Errorf("set certificate for %q: empty id", courseID)
	}
	return m.update(ctx, courseID, func(p *CourseProgress, _ bool) (bool, *store.ActivityEventData, error) {
		if p.HasCertificate() {
			if *p.CertID == certID {
				return false, nil, nil
			}
			return false, nil, fmt.Errorf("%w: have %s, got %s", ErrCertificateExists, *p.CertID, certID)
		}
		id := certID
		p.CertID = &id
		return true, nil, nil
	})
}

// Get returns a copy of the entry for courseID.
func (m *Manager) Get(courseID string) (CourseProgress, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.state[courseID]
	if !ok {
		return NewCourseProgress(courseID, 0), false
	}
	return p.Clone(), true
}

// All returns a copy of the whole map.
func (m *Manager) All() Map {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.Clone()
}

// IsTestUnlocked reports whether every lesson of a non-empty course is done.
func (m *Manager) IsTestUnlocked(courseID string) bool {
	p, _ := m.Get(courseID)
	return p.TestUnlocked()
}

// IsCertificateUnlocked reports whether the latest score is at least
// CertificateThreshold.
func (m *Manager) IsCertificateUnlocked(courseID string) bool {
	p, _ := m.Get(courseID)
	return p.CertificateUnlocked()
}

// NextLessonID returns the lesson a "continue learning" entry point should
// open: 1 for a course never visited or whose last visit is past
// totalLessonCount, otherwise the lesson after the last visited one.
func (m *Manager) NextLessonID(courseID string, totalLessonCount int) int {
	p, _ := m.Get(courseID)
	if p.LastVisit == NoLesson || p.LastVisit > totalLessonCount {
		return 1
	}
	return p.LastVisit + 1
}

// Reset removes all local progress.
func (m *Manager) Reset(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.kv.Remove(ctx, StorageKey); err != nil {
		m.logger.Error("reset progress failed", zap.Error(err))
		return &PersistError{CourseID: "*", Err: err}
	}
	m.state = Map{}
	m.loaded = true
	return nil
}
