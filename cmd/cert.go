package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/coursekit/internal/certificate"
	"github.com/abhisek/coursekit/internal/progress"
	"github.com/abhisek/coursekit/internal/ui/theme"
)

var certCmd = &cobra.Command{
	Use:   "cert <course>",
	Short: "Get the certificate for a passed course",
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
		if !a.Progress.IsCertificateUnlocked(c.ID) {
			p, _ := a.Progress.Get(c.ID)
			return fmt.Errorf("certificate is locked: score %d%%, need %d%%", p.TestScore, progress.CertificateThreshold)
		}

		rec, err := a.Issuer.GetOrIssue(ctx, c.ID)
		if err != nil {
			var remoteErr *certificate.RemoteError
			if errors.As(err, &remoteErr) {
				return fmt.Errorf("could not reach certificate storage, try again later: %w", err)
			}
			return err
		}

		printRecord(cmd, rec)
		return nil
	},
}

var certShowCmd = &cobra.Command{
	Use:   "show <course>",
	Short: "Show a previously issued certificate without going online",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		rec, ok, err := a.Issuer.Cached(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintf(cmd.OutOrStdout(), "No certificate stored for %s.\n", args[0])
			return nil
		}
		printRecord(cmd, rec)
		return nil
	},
}

func printRecord(cmd *cobra.Command, rec certificate.Record) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, theme.Badge.Render("Certificate "+rec.CertID))
	fmt.Fprintf(out, "  Course:  %s\n", rec.CourseName)
	fmt.Fprintf(out, "  Issued:  %s\n", rec.Date)
	fmt.Fprintf(out, "  URL:     %s\n", rec.CloudURL)
}

func init() {
	certCmd.AddCommand(certShowCmd)
}
