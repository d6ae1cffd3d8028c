// Package assessment administers shuffled single-pass multiple-choice
// tests and scores them.
package assessment

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/abhisek/coursekit/internal/progress"
)

// ResultRecorder persists a finished final test.
type ResultRecorder interface {
	RecordTestResult(ctx context.Context, courseID string, percentage int, answers map[string]string) (progress.CourseProgress, error)
}

// Engine creates and drives sessions. Only one final-test session per
// course may be in progress at a time.
type Engine struct {
	recorder ResultRecorder
	logger   *zap.Logger
	intN     func(n int) int
	now      func() time.Time

	mu     sync.Mutex
	active map[string]string // course id -> session id
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// WithRand makes shuffles deterministic for a given source.
func WithRand(r *rand.Rand) EngineOption {
	return func(e *Engine) { e.intN = r.IntN }
}

// NewEngine returns an engine that records final-test results through
// recorder. recorder may be nil when only quizzes are run.
func NewEngine(recorder ResultRecorder, opts ...EngineOption) *Engine {
	e := &Engine{
		recorder: recorder,
		logger:   zap.NewNop(),
		intN:     rand.IntN,
		now:      time.Now,
		active:   make(map[string]string),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// StartSession shuffles a copy of pool and returns an in-progress final
// test session for courseID. The pool itself is not modified.
func (e *Engine) StartSession(courseID string, pool []Question) (*Session, error) {
	return e.start(courseID, ModeFinalTest, pool)
}

// StartQuiz is StartSession for the standalone quiz mode: the result is
// scored but never recorded.
func (e *Engine) StartQuiz(courseID string, pool []Question) (*Session, error) {
	return e.start(courseID, ModeQuiz, pool)
}

func (e *Engine) start(courseID string, mode Mode, pool []Question) (*Session, error) {
	if len(pool) == 0 {
		e.logger.DPanic("start session with empty pool", zap.String("course", courseID))
		return nil, ErrNoQuestions
	}
	if err := validatePool(pool); err != nil {
		e.logger.DPanic("start session with invalid pool", zap.String("course", courseID), zap.Error(err))
		return nil, err
	}

	s := &Session{
		ID:        uuid.New().String(),
		CourseID:  courseID,
		Mode:      mode,
		StartedAt: e.now(),
		questions: e.shuffle(pool),
		answers:   make(map[string]string, len(pool)),
		submitted: make([]bool, len(pool)),
		timedOut:  make([]bool, len(pool)),
		state:     StateInProgress,
	}

	if mode == ModeFinalTest {
		e.mu.Lock()
		if other, busy := e.active[courseID]; busy {
			e.mu.Unlock()
			e.logger.DPanic("final test started twice",
				zap.String("course", courseID), zap.String("active_session", other))
			return nil, fmt.Errorf("%w: %s", ErrSessionActive, courseID)
		}
		e.active[courseID] = s.ID
		e.mu.Unlock()
	}

	e.logger.Debug("session started",
		zap.String("session", s.ID),
		zap.String("course", courseID),
		zap.Int("questions", len(pool)))
	return s, nil
}

// shuffle is a Fisher-Yates shuffle over a copy of pool.
func (e *Engine) shuffle(pool []Question) []Question {
	out := make([]Question, len(pool))
	copy(out, pool)
	for i := len(out) - 1; i > 0; i-- {
		j := e.intN(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Sample returns n questions drawn uniformly from pool without
// replacement. n <= 0 or n >= len(pool) returns a shuffled copy of pool.
func (e *Engine) Sample(pool []Question, n int) []Question {
	out := e.shuffle(pool)
	if n > 0 && n < len(out) {
		out = out[:n]
	}
	return out
}

// SubmitAnswer records option for the current question and locks it.
func (e *Engine) SubmitAnswer(s *Session, questionID, option string) error {
	q, err := e.currentFor(s, questionID)
	if err != nil {
		return err
	}
	if !q.HasOption(option) {
		return fmt.Errorf("%w: %q", ErrUnknownOption, option)
	}

	s.answers[q.ID] = option
	s.submitted[s.index] = true
	if q.IsCorrect(option) {
		s.correct++
	}
	return nil
}

// Timeout closes the current question as an incorrect submission with no
// selected option. Used by the quiz timer.
func (e *Engine) Timeout(s *Session) error {
	q, ok := s.Current()
	if !ok {
		return ErrSessionFinished
	}
	if s.submitted[s.index] {
		return nil
	}
	s.answers[q.ID] = ""
	s.submitted[s.index] = true
	s.timedOut[s.index] = true
	return nil
}

func (e *Engine) currentFor(s *Session, questionID string) (Question, error) {
	q, ok := s.Current()
	if !ok {
		return Question{}, ErrSessionFinished
	}
	if q.ID != questionID {
		return Question{}, fmt.Errorf("%w: got %s, current %s", ErrWrongQuestion, questionID, q.ID)
	}
	if s.submitted[s.index] {
		return Question{}, fmt.Errorf("%w: %s", ErrAnswerLocked, questionID)
	}
	return q, nil
}

// Advance moves to the next question. On the last question it finishes
// the session, scores it, and records final-test results. finished is true
// once the session is finished, even if recording failed.
func (e *Engine) Advance(ctx context.Context, s *Session) (finished bool, err error) {
	if s.state != StateInProgress {
		e.logger.DPanic("advance on inactive session",
			zap.String("session", s.ID), zap.Stringer("state", s.state))
		return s.state == StateFinished, ErrSessionFinished
	}
	if !s.submitted[s.index] {
		return false, ErrNotSubmitted
	}

	if s.index < len(s.questions)-1 {
		s.index++
		return false, nil
	}

	return true, e.finish(ctx, s)
}

func (e *Engine) finish(ctx context.Context, s *Session) error {
	s.state = StateFinished
	res := Score(s)
	s.result = &res
	e.release(s)

	e.logger.Info("session finished",
		zap.String("session", s.ID),
		zap.String("course", s.CourseID),
		zap.Int("correct", res.Correct),
		zap.Int("total", res.Total),
		zap.Int("percentage", res.Percentage))

	if s.Mode != ModeFinalTest || e.recorder == nil {
		return nil
	}
	if _, err := e.recorder.RecordTestResult(ctx, s.CourseID, res.Percentage, s.Answers()); err != nil {
		e.logger.Error("record test result failed",
			zap.String("session", s.ID), zap.String("course", s.CourseID), zap.Error(err))
		return fmt.Errorf("record test result: %w", err)
	}
	return nil
}

// Abandon drops an unfinished session without writing anything.
func (e *Engine) Abandon(s *Session) {
	if s.state == StateFinished {
		return
	}
	s.state = StateFinished
	e.release(s)
	e.logger.Debug("session abandoned", zap.String("session", s.ID), zap.String("course", s.CourseID))
}

func (e *Engine) release(s *Session) {
	if s.Mode != ModeFinalTest {
		return
	}
	e.mu.Lock()
	if e.active[s.CourseID] == s.ID {
		delete(e.active, s.CourseID)
	}
	e.mu.Unlock()
}

// Score computes the correct count and the percentage rounded half up.
func Score(s *Session) Result {
	return ScoreOf(s.correct, len(s.questions))
}

// ScoreOf computes round-half-up(correct / total * 100) in integers.
// total must be positive.
func ScoreOf(correct, total int) Result {
	if total <= 0 {
		return Result{Correct: correct}
	}
	return Result{
		Correct:    correct,
		Total:      total,
		Percentage: (correct*200 + total) / (2 * total),
	}
}
