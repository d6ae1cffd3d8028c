package assessment

import (
	"fmt"
	"slices"
	"strings"
)

// Question is one multiple-choice item of a test pool.
type Question struct {
	ID          string   `json:"id"`
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	Answer      string   `json:"answer"`
	Explanation string   `json:"explanation"`
}

// Validate checks that the question can be administered.
func (q Question) Validate() error {
	if q.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidQuestion)
	}
	if len(q.Options) < 2 {
		return fmt.Errorf("%w: %s has %d options", ErrInvalidQuestion, q.ID, len(q.Options))
	}
	if !q.HasOption(q.Answer) {
		return fmt.Errorf("%w: %s answer is not one of its options", ErrInvalidQuestion, q.ID)
	}
	return nil
}

// HasOption reports whether option is one of the question's options.
func (q Question) HasOption(option string) bool {
	return slices.Contains(q.Options, option)
}

// IsCorrect compares a selected option with the answer.
func (q Question) IsCorrect(option string) bool {
	return option != "" && strings.TrimSpace(option) == strings.TrimSpace(q.Answer)
}

func validatePool(pool []Question) error {
	seen := make(map[string]struct{}, len(pool))
	for _, q := range pool {
		if err := q.Validate(); err != nil {
			return err
		}
		if _, dup := seen[q.ID]; dup {
			return fmt.Errorf("%w: duplicate id %s", ErrInvalidQuestion, q.ID)
		}
		seen[q.ID] = struct{}{}
	}
	return nil
}
