package progress

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidLesson is returned for lesson ids below 1.
	ErrInvalidLesson = errors.New("invalid lesson id")

	// ErrInvalidScore is returned for percentages outside 0-100.
	ErrInvalidScore = errors.New("test score out of range")

	// ErrCertificateExists is returned when a different certificate id is
	// already recorded for the course.
	ErrCertificateExists = errors.New("certificate already recorded for course")
)

// PersistError indicates that the progress map could not be written to the
// local store. The in-memory state is unchanged when it is returned.
type PersistError struct {
	CourseID string
	Err      error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist progress for %q: %v", e.CourseID, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }
