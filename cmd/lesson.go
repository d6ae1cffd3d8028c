package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/abhisek/coursekit/internal/app"
	"github.com/abhisek/coursekit/internal/course"
	"github.com/abhisek/coursekit/internal/ui/theme"
)

var lessonCmd = &cobra.Command{
	Use:   "lesson <course> <lesson>",
	Short: "Read a lesson and mark it complete",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid lesson %q: %w", args[1], err)
		}

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		c, err := a.Course(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return showLesson(cmd, a, c, id)
	},
}

var continueCmd = &cobra.Command{
	Use:   "continue <course>",
	Short: "Open the next lesson of a course",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		c, err := a.Course(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		next := a.Progress.NextLessonID(c.ID, c.LessonCount())
		if next > c.LessonCount() {
			fmt.Fprintln(cmd.OutOrStdout(), "You have reached the end of this course.")
			if a.Progress.IsTestUnlocked(c.ID) {
				fmt.Fprintf(cmd.OutOrStdout(), "Take the final test with: coursekit test %s\n", c.ID)
			}
			return nil
		}
		return showLesson(cmd, a, c, next)
	},
}

func showLesson(cmd *cobra.Command, a *app.App, c course.Course, id int) error {
	l, ok := c.Lesson(id)
	if !ok {
		return fmt.Errorf("course %s has lessons 1-%d, not %d", c.ID, c.LessonCount(), id)
	}

	p, err := a.Progress.MarkLessonComplete(cmd.Context(), c.ID, l.ID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, theme.Title.Render(fmt.Sprintf("%s · Lesson %d: %s", c.Name, l.ID, l.Title)))
	fmt.Fprintln(out, theme.Card.Render(theme.Body.Render(l.Content)))
	fmt.Fprintln(out, theme.Hint.Render(fmt.Sprintf("%d of %d lessons complete", p.Completed, p.Total)))

	if p.TestUnlocked() {
		fmt.Fprintf(out, "All lessons done. Take the final test with: coursekit test %s\n", c.ID)
	}
	return nil
}
