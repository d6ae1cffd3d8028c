package assessment

import "errors"

var (
	// ErrNoQuestions is returned when a session is started with an empty pool.
	ErrNoQuestions = errors.New("no questions available")

	// ErrInvalidQuestion is returned for malformed questions in a pool.
	ErrInvalidQuestion = errors.New("invalid question")

	// ErrSessionActive is returned when a final test is started for a
	// course that already has one in progress.
	ErrSessionActive = errors.New("test already in progress for course")

	// ErrSessionFinished is returned for any action on a finished session.
	ErrSessionFinished = errors.New("session finished")

	// ErrWrongQuestion is returned when an answer targets a question other
	// than the current one.
	ErrWrongQuestion = errors.New("question is not the current question")

	// ErrAnswerLocked is returned when the current question was already
	// submitted.
	ErrAnswerLocked = errors.New("answer already submitted")

	// ErrUnknownOption is returned when the selected option is not one of
	// the question's options.
	ErrUnknownOption = errors.New("option not offered by question")

	// ErrNotSubmitted is returned when advancing past an unanswered question.
	ErrNotSubmitted = errors.New("current question not submitted")
)
