package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "coursekit",
	Short: "Learn web development one lesson at a time",
	Long: "coursekit: work through HTML, CSS and JavaScript lessons, take the final test " +
		"and earn a certificate.",
	SilenceUsage: true,
}

func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to config file (default ./config.yaml or $XDG_CONFIG_HOME/coursekit/config.yaml)")
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides COURSEKIT_DB env var)")

	rootCmd.AddCommand(coursesCmd)
	rootCmd.AddCommand(lessonCmd)
	rootCmd.AddCommand(continueCmd)
	rootCmd.AddCommand(testCmd)
	rootCmd.AddCommand(quizCmd)
	rootCmd.AddCommand(certCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(versionCmd)
}
