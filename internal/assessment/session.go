package assessment

import "time"

// State is the lifecycle state of a Session.
type State int

const (
	StateNotStarted State = iota
	StateInProgress
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not-started"
	case StateInProgress:
		return "in-progress"
	case StateFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Mode selects what happens when a session finishes.
type Mode int

const (
	// ModeFinalTest records the result on the course's progress entry.
	ModeFinalTest Mode = iota
	// ModeQuiz is the standalone timed quiz; results are not recorded.
	ModeQuiz
)

// Result is the score of a finished session.
type Result struct {
	Correct    int
	Total      int
	Percentage int
}

// Passed reports whether the percentage reaches threshold.
func (r Result) Passed(threshold int) bool {
	return r.Percentage >= threshold
}

// Session is one pass through a shuffled question pool. It is owned by a
// single goroutine; the Engine mutates it.
type Session struct {
	ID        string
	CourseID  string
	Mode      Mode
	StartedAt time.Time

	questions []Question
	index     int
	answers   map[string]string
	submitted []bool
	timedOut  []bool
	correct   int
	state     State
	result    *Result
}

// State returns the lifecycle state.
func (s *Session) State() State { return s.state }

// Total returns the number of questions.
func (s *Session) Total() int { return len(s.questions) }

// Index returns the zero-based index of the current question.
func (s *Session) Index() int { return s.index }

// Correct returns the running correct count.
func (s *Session) Correct() int { return s.correct }

// Questions returns the shuffled order.
func (s *Session) Questions() []Question {
	out := make([]Question, len(s.questions))
	copy(out, s.questions)
	return out
}

// Current returns the current question. ok is false once finished.
func (s *Session) Current() (q Question, ok bool) {
	if s.state != StateInProgress {
		return Question{}, false
	}
	return s.questions[s.index], true
}

// Submitted reports whether the current question has been submitted.
func (s *Session) Submitted() bool {
	return s.state == StateInProgress && s.submitted[s.index]
}

// TimedOut reports whether question i was closed by its timer.
func (s *Session) TimedOut(i int) bool {
	return i >= 0 && i < len(s.timedOut) && s.timedOut[i]
}

// Answers returns a copy of question id -> selected option.
func (s *Session) Answers() map[string]string {
	out := make(map[string]string, len(s.answers))
	for k, v := range s.answers {
		out[k] = v
	}
	return out
}

// Result returns the score once the session is finished.
func (s *Session) Result() (Result, bool) {
	if s.result == nil {
		return Result{}, false
	}
	return *s.result, true
}
