package course

import (
	"strings"
	"testing"
)

func TestDefault_EmbeddedCatalogIsValid(t *testing.T) {
	c := Default()
	want := []string{"html", "css", "javascript"}
	got := c.IDs()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("IDs() = %v, want %v", got, want)
	}
	for _, course := range c.All() {
		if course.LessonCount() == 0 {
			t.Errorf("course %q has no lessons", course.ID)
		}
		if len(course.Questions) == 0 {
			t.Errorf("course %q has no questions", course.ID)
		}
	}
}

func TestDefault_HTMLHasTenQuestions(t *testing.T) {
	html, ok := Default().Get("html")
	if !ok {
		t.Fatal("html course missing")
	}
	if len(html.Questions) != 10 {
		t.Errorf("html has %d questions, want 10", len(html.Questions))
	}
}

func TestCourse_Lesson(t *testing.T) {
	css, _ := Default().Get("css")
	l, ok := css.Lesson(2)
	if !ok || l.Title != "The box model" {
		t.Errorf("Lesson(2) = %+v, %v", l, ok)
	}
	if _, ok := css.Lesson(0); ok {
		t.Error("Lesson(0) should not exist")
	}
	if _, ok := css.Lesson(css.LessonCount() + 1); ok {
		t.Error("lesson past the end should not exist")
	}
}

func TestCourse_PoolIsCopy(t *testing.T) {
	html, _ := Default().Get("html")
	pool := html.Pool()
	pool[0].Answer = "changed"

	again, _ := Default().Get("html")
	if again.Questions[0].Answer == "changed" {
		t.Error("Pool must not alias catalog data")
	}
}

func TestGet_Unknown(t *testing.T) {
	if _, ok := Default().Get("cobol"); ok {
		t.Error("unexpected course")
	}
}

func TestParse_SchemaViolation(t *testing.T) {
	_, err := Parse([]byte(`{"courses": [{"id": "x", "name": "X", "lessons": [{"id": 0, "title": "t"}], "questions": []}]}`))
	if err == nil {
		t.Fatal("expected schema error for lesson id 0")
	}
	if !strings.Contains(err.Error(), "schema") {
		t.Errorf("error should mention schema, got: %v", err)
	}
}

func TestParse_DetectsDuplicateCourse(t *testing.T) {
	data := `{"courses": [
		{"id": "a", "name": "A", "lessons": [], "questions": []},
		{"id": "a", "name": "A2", "lessons": [], "questions": []}
	]}`
	_, err := Parse([]byte(data))
	if err == nil || !strings.Contains(err.Error(), "duplicate course") {
		t.Fatalf("expected duplicate course error, got: %v", err)
	}
}

func TestParse_DetectsLessonGap(t *testing.T) {
	data := `{"courses": [
		{"id": "a", "name": "A", "lessons": [{"id": 1, "title": "one"}, {"id": 3, "title": "three"}], "questions": []}
	]}`
	_, err := Parse([]byte(data))
	if err == nil || !strings.Contains(err.Error(), "lesson 2 has id 3") {
		t.Fatalf("expected lesson numbering error, got: %v", err)
	}
}

func TestParse_DetectsBadAnswer(t *testing.T) {
	data := `{"courses": [
		{"id": "a", "name": "A", "lessons": [], "questions": [
			{"id": "1", "question": "?", "options": ["x", "y"], "answer": "z"}
		]}
	]}`
	_, err := Parse([]byte(data))
	if err == nil || !strings.Contains(err.Error(), "answer is not one of its options") {
		t.Fatalf("expected answer error, got: %v", err)
	}
}
