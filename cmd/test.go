package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/coursekit/internal/progress"
	"github.com/abhisek/coursekit/internal/ui/components"
	"github.com/abhisek/coursekit/internal/ui/theme"
)

var testCmd = &cobra.Command{
	Use:   "test <course>",
	Short: "Take the final test of a course",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		c, err := a.Course(ctx, args[0])
		if err != nil {
			return err
		}
		if !a.Progress.IsTestUnlocked(c.ID) {
			p, _ := a.Progress.Get(c.ID)
			return fmt.Errorf("final test is locked: %d of %d lessons complete", p.Completed, p.Total)
		}

		s, err := a.Engine.StartSession(c.ID, c.Pool())
		if err != nil {
			return err
		}

		done := make(chan struct{})
		defer close(done)
		lines := readLines(cmd.InOrStdin(), done)
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, theme.Title.Render(c.Name+" · Final test"))
		fmt.Fprintln(out)

		for {
			q, _ := s.Current()
			view := components.NewMultiChoice(s.Index()+1, s.Total(), q.Question, q.Options)
			fmt.Fprint(out, view.View())

			choice, err := promptChoice(ctx, lines, out, len(q.Options))
			if err != nil {
				a.Engine.Abandon(s)
				switch {
				case errors.Is(err, errAbandoned):
					fmt.Fprintln(out, "\nTest abandoned. Nothing was saved.")
					return nil
				case ctx.Err() != nil:
					fmt.Fprintln(out, "\nTest interrupted. Nothing was saved.")
				}
				return err
			}
			if err := a.Engine.SubmitAnswer(s, q.ID, q.Options[choice]); err != nil {
				return err
			}

			view.Chosen = choice
			view.Correct = answerIndex(q.Options, q.Answer)
			view.Revealed = true
			fmt.Fprint(out, "\n"+view.View())
			if q.IsCorrect(q.Options[choice]) {
				fmt.Fprintln(out, theme.Correct.Render("Correct!"))
			} else {
				fmt.Fprintln(out, theme.Incorrect.Render("Incorrect."))
			}
			if q.Explanation != "" {
				fmt.Fprintln(out, theme.Hint.Render(q.Explanation))
			}
			fmt.Fprintln(out)

			finished, err := a.Engine.Advance(ctx, s)
			if err != nil {
				return err
			}
			if finished {
				break
			}
		}

		res, _ := s.Result()
		fmt.Fprintf(out, "Score: %d/%d (%d%%)\n", res.Correct, res.Total, res.Percentage)
		if res.Passed(progress.CertificateThreshold) {
			fmt.Fprintln(out, theme.Correct.Render("Passed!")+" Get your certificate with: coursekit cert "+c.ID)
		} else {
			fmt.Fprintf(out, "%s You need %d%% to earn a certificate.\n",
				theme.Incorrect.Render("Not passed."), progress.CertificateThreshold)
		}
		return nil
	},
}
