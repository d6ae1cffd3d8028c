// Package theme holds the terminal palette and shared styles.
package theme

import (
	"charm.land/lipgloss/v2"
)

// Color palette
var (
	Primary = lipgloss.Color("#2563EB") // Blue
	Accent  = lipgloss.Color("#F59E0B") // Amber
	Success = lipgloss.Color("#16A34A") // Green
	Error   = lipgloss.Color("#DC2626") // Red
	Text    = lipgloss.Color("#E5E7EB") // Light gray
	TextDim = lipgloss.Color("#9CA3AF") // Gray
	Track   = lipgloss.Color("#374151") // Dark gray
)

// Typography
var (
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary)

	Body = lipgloss.NewStyle().
		Foreground(Text)

	Hint = lipgloss.NewStyle().
		Foreground(TextDim).
		Italic(true)
)

// States
var (
	Correct = lipgloss.NewStyle().
		Foreground(Success).
		Bold(true)

	Incorrect = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)

	Locked = lipgloss.NewStyle().
		Foreground(TextDim)

	Badge = lipgloss.NewStyle().
		Foreground(Accent).
		Bold(true)
)

// Card frames lesson content and results.
var Card = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(Track).
	Padding(0, 1)
