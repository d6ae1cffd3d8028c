package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset learner data",
	Long: "Clears lesson progress, test scores and the local certificate cache. Issued " +
		"certificate records stay in remote storage and are found again after passing.",
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		out := cmd.OutOrStdout()

		if !yes {
			fmt.Fprint(out, "This erases all local progress. Type 'yes' to continue: ")
			line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if strings.TrimSpace(strings.ToLower(line)) != "yes" {
				fmt.Fprintln(out, "Aborted.")
				return nil
			}
		}

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Progress.Reset(cmd.Context()); err != nil {
			return err
		}
		if err := a.Certs.Clear(cmd.Context()); err != nil {
			return fmt.Errorf("clear certificate cache: %w", err)
		}
		fmt.Fprintln(out, "Progress reset.")
		return nil
	},
}

func init() {
	resetCmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")
}
