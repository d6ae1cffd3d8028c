package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/coursekit/internal/progress"
	"github.com/abhisek/coursekit/internal/ui/components"
	"github.com/abhisek/coursekit/internal/ui/theme"
)

var coursesCmd = &cobra.Command{
	Use:   "courses",
	Short: "List courses and your progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.SyncCatalog(cmd.Context()); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, c := range a.Catalog.All() {
			p, _ := a.Progress.Get(c.ID)
			fmt.Fprintf(out, "%s  %s\n", theme.Title.Render(c.Name), theme.Hint.Render("("+c.ID+")"))
			fmt.Fprintf(out, "  %s\n", components.NewProgressBar("", p.Completed, p.Total, 24).View())
			fmt.Fprintf(out, "  %s\n\n", courseStatus(p))
		}
		return nil
	},
}

func courseStatus(p progress.CourseProgress) string {
	switch {
	case p.HasCertificate():
		return theme.Badge.Render("Certified") + theme.Hint.Render(fmt.Sprintf("  score %d%%", p.TestScore))
	case p.CertificateUnlocked():
		return theme.Correct.Render(fmt.Sprintf("Passed with %d%%", p.TestScore)) + theme.Hint.Render("  certificate available")
	case p.TestUnlocked() && len(p.UserAnswers) > 0:
		return theme.Incorrect.Render(fmt.Sprintf("Last score %d%%", p.TestScore)) +
			theme.Hint.Render(fmt.Sprintf("  %d%% needed", progress.CertificateThreshold))
	case p.TestUnlocked():
		return theme.Body.Render("Final test unlocked")
	default:
		return theme.Locked.Render("Final test locked")
	}
}
