// Package course holds the built-in course catalog: lessons and final-test
// question pools.
package course

import "github.com/abhisek/coursekit/internal/assessment"

// Lesson is one numbered lesson of a course. IDs start at 1.
type Lesson struct {
	ID      int    `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Course is a catalog entry.
type Course struct {
	ID          string                `json:"id"`
	Name        string                `json:"name"`
	Description string                `json:"description"`
	Lessons     []Lesson              `json:"lessons"`
	Questions   []assessment.Question `json:"questions"`
}

// LessonCount returns the number of lessons.
func (c Course) LessonCount() int {
	return len(c.Lessons)
}

// Lesson returns the lesson with the given id.
func (c Course) Lesson(id int) (Lesson, bool) {
	for _, l := range c.Lessons {
		if l.ID == id {
			return l, true
		}
	}
	return Lesson{}, false
}

// Pool returns a copy of the final-test questions.
func (c Course) Pool() []assessment.Question {
	out := make([]assessment.Question, len(c.Questions))
	copy(out, c.Questions)
	return out
}
