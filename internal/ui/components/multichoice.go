package components

import (
	"fmt"
	"strconv"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/coursekit/internal/ui/theme"
)

// MultiChoice renders a multiple-choice question with lettered options.
type MultiChoice struct {
	Number   int
	Of       int
	Question string
	Options  []string
	// Chosen and Correct are option indexes; -1 means none. They are only
	// shown once Revealed is set.
	Chosen   int
	Correct  int
	Revealed bool
}

// NewMultiChoice creates an unanswered question view.
func NewMultiChoice(number, of int, question string, options []string) MultiChoice {
	return MultiChoice{
		Number:   number,
		Of:       of,
		Question: question,
		Options:  options,
		Chosen:   -1,
		Correct:  -1,
	}
}

// Label returns the letter shown for option i.
func Label(i int) string {
	return string(rune('A' + i))
}

// View renders the question and its options.
func (m MultiChoice) View() string {
	questionStyle := lipgloss.NewStyle().Foreground(theme.Text).Bold(true)
	s := theme.Hint.Render(fmt.Sprintf("Question %d of %d", m.Number, m.Of)) + "\n"
	s += questionStyle.Render(m.Question) + "\n\n"

	for i, opt := range m.Options {
		line := fmt.Sprintf("  %s)  %s", Label(i), opt)

		switch {
		case !m.Revealed:
			s += theme.Body.Render(line) + "\n"
		case i == m.Correct:
			s += theme.Correct.Render(line) + "\n"
		case i == m.Chosen:
			s += theme.Incorrect.Render(line) + "\n"
		default:
			s += theme.Locked.Render(line) + "\n"
		}
	}

	return s
}

// ParseChoice maps user input ("b", "B", "2") to an option index.
func ParseChoice(input string, n int) (int, bool) {
	input = strings.TrimSpace(input)
	if input == "" {
		return 0, false
	}
	if i, err := strconv.Atoi(input); err == nil {
		return i - 1, i >= 1 && i <= n
	}
	if len(input) != 1 {
		return 0, false
	}
	c := strings.ToUpper(input)[0]
	i := int(c - 'A')
	return i, c >= 'A' && i < n
}
