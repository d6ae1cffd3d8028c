package assessment

import (
	"errors"
	"testing"
)

func TestQuestionValidate(t *testing.T) {
	tests := []struct {
		name string
		q    Question
		ok   bool
	}{
		{"valid", Question{ID: "1", Options: []string{"a", "b"}, Answer: "b"}, true},
		{"missing id", Question{Options: []string{"a", "b"}, Answer: "a"}, false},
		{"one option", Question{ID: "1", Options: []string{"a"}, Answer: "a"}, false},
		{"answer not an option", Question{ID: "1", Options: []string{"a", "b"}, Answer: "c"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.q.Validate()
			if tt.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidQuestion) {
				t.Errorf("err = %v, want ErrInvalidQuestion", err)
			}
		})
	}
}

func TestQuestionIsCorrect(t *testing.T) {
	q := Question{ID: "1", Options: []string{"<p>", "<div>"}, Answer: "<p>"}
	if !q.IsCorrect("<p>") {
		t.Error("expected exact match to be correct")
	}
	if q.IsCorrect("<div>") {
		t.Error("expected other option to be incorrect")
	}
	if q.IsCorrect("") {
		t.Error("expected empty selection to be incorrect")
	}
}
