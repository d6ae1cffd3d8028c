package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/coursekit/internal/ui/components"
	"github.com/abhisek/coursekit/internal/ui/theme"
)

var quizCmd = &cobra.Command{
	Use:   "quiz <course>",
	Short: "Practice with a timed quiz (results are not saved)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetDuration("time")
		count, _ := cmd.Flags().GetInt("count")
		if limit <= 0 {
			return fmt.Errorf("--time must be positive")
		}

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

		s, err := a.Engine.StartQuiz(c.ID, a.Engine.Sample(c.Pool(), count))
		if err != nil {
			return err
		}

		done := make(chan struct{})
		defer close(done)
		lines := readLines(cmd.InOrStdin(), done)

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, theme.Title.Render(fmt.Sprintf("%s · Quiz (%s per question)", c.Name, limit)))
		fmt.Fprintln(out)

		for {
			q, _ := s.Current()
			view := components.NewMultiChoice(s.Index()+1, s.Total(), q.Question, q.Options)
			fmt.Fprint(out, view.View())
			fmt.Fprintf(out, "Your answer [A-%s]: ", components.Label(len(q.Options)-1))

			timer := time.NewTimer(limit)
			answered := false
			for !answered && !s.Submitted() {
				select {
				case l := <-lines:
					if choice, ok := components.ParseChoice(l.text, len(q.Options)); ok {
						if err := a.Engine.SubmitAnswer(s, q.ID, q.Options[choice]); err != nil {
							timer.Stop()
							return err
						}
						view.Chosen = choice
						answered = true
						continue
					}
					if l.err != nil {
						timer.Stop()
						a.Engine.Abandon(s)
						fmt.Fprintln(out, "\nQuiz abandoned.")
						return nil
					}
					fmt.Fprintf(out, "Your answer [A-%s]: ", components.Label(len(q.Options)-1))
				case <-timer.C:
					if err := a.Engine.Timeout(s); err != nil {
						return err
					}
					fmt.Fprintln(out, "\n"+theme.Incorrect.Render("Time's up!"))
				case <-ctx.Done():
					timer.Stop()
					a.Engine.Abandon(s)
					return ctx.Err()
				}
			}
			timer.Stop()

			view.Correct = answerIndex(q.Options, q.Answer)
			view.Revealed = true
			fmt.Fprint(out, "\n"+view.View())
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
		fmt.Fprintf(out, "Quiz score: %d/%d (%d%%)\n", res.Correct, res.Total, res.Percentage)
		return nil
	},
}

func init() {
	quizCmd.Flags().Duration("time", 20*time.Second, "Time allowed per question")
	quizCmd.Flags().Int("count", 5, "Number of questions (0 for all)")
}
