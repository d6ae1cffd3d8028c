package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/coursekit/internal/store"
	"github.com/abhisek/coursekit/internal/ui/components"
	"github.com/abhisek/coursekit/internal/ui/theme"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show learning statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		ctx := cmd.Context()

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		out := cmd.OutOrStdout()
		all := a.Progress.All()

		fmt.Fprintln(out, theme.Title.Render("Progress"))
		for _, id := range a.Catalog.IDs() {
			p, ok := all[id]
			if !ok {
				continue
			}
			fmt.Fprintf(out, "  %-12s %s\n", id, components.NewProgressBar("", p.Completed, p.Total, 20).View())
		}

		counts, err := a.Events.ActivityCounts(ctx)
		if err != nil {
			return fmt.Errorf("count activity: %w", err)
		}
		fmt.Fprintln(out)
		fmt.Fprintln(out, theme.Title.Render("Totals"))
		fmt.Fprintf(out, "  Lessons completed:     %d\n", counts[store.ActivityLessonCompleted])
		fmt.Fprintf(out, "  Tests submitted:       %d\n", counts[store.ActivityTestSubmitted])
		fmt.Fprintf(out, "  Certificates issued:   %d\n", counts[store.ActivityCertificateIssued])

		events, err := a.Events.QueryActivity(ctx, store.QueryOpts{Limit: limit})
		if err != nil {
			return fmt.Errorf("query activity: %w", err)
		}
		if len(events) == 0 {
			return nil
		}

		fmt.Fprintln(out)
		fmt.Fprintln(out, theme.Title.Render("Recent activity"))
		fmt.Fprintf(out, "  %-19s  %-22s  %-12s  %s\n", "Time", "Event", "Course", "Detail")
		fmt.Fprintln(out, "  "+strings.Repeat("─", 72))
		for _, e := range events {
			fmt.Fprintf(out, "  %-19s  %-22s  %-12s  %s\n",
				e.Timestamp.Local().Format("2006-01-02 15:04:05"), e.Kind, e.CourseID, e.Detail)
		}
		return nil
	},
}

func init() {
	statsCmd.Flags().Int("limit", 10, "Number of recent events to show")
}
