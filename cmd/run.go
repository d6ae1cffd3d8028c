package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/coursekit/internal/app"
	"github.com/abhisek/coursekit/internal/ui/components"
)

// openApp loads configuration and opens the store using the --config and
// --db flags. The caller must Close the returned App.
func openApp(cmd *cobra.Command) (*app.App, error) {
	configPath, _ := cmd.Flags().GetString("config")
	dbPath, _ := cmd.Flags().GetString("db")

	a, err := app.New(cmd.Context(), app.Options{ConfigPath: configPath, DBPath: dbPath})
	if err != nil {
		return nil, fmt.Errorf("open coursekit: %w", err)
	}
	return a, nil
}

// errAbandoned is returned when input ends in the middle of a test.
var errAbandoned = errors.New("input closed")

type inputLine struct {
	text string
	err  error
}

// readLines delivers r line by line until done is closed. Once a read
// fails, every further receive yields that error with no text.
func readLines(r io.Reader, done <-chan struct{}) <-chan inputLine {
	lines := make(chan inputLine)
	go func() {
		in := bufio.NewReader(r)
		l := inputLine{}
		for {
			if l.err == nil {
				l.text, l.err = in.ReadString('\n')
			} else {
				l.text = ""
			}
			select {
			case lines <- l:
			case <-done:
				return
			}
		}
	}()
	return lines
}

// promptChoice reads lines until one names a valid option. It returns
// ctx.Err() as soon as ctx is cancelled.
func promptChoice(ctx context.Context, lines <-chan inputLine, out io.Writer, n int) (int, error) {
	for {
		fmt.Fprintf(out, "Your answer [A-%s]: ", components.Label(n-1))
		var l inputLine
		select {
		case l = <-lines:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
		if idx, ok := components.ParseChoice(l.text, n); ok {
			return idx, nil
		}
		if l.err != nil {
			if errors.Is(l.err, io.EOF) {
				return 0, errAbandoned
			}
			return 0, l.err
		}
		if line := strings.TrimSpace(l.text); line != "" {
			fmt.Fprintf(out, "%q is not an option.\n", line)
		}
	}
}

// answerIndex returns the index of answer among options, or -1.
func answerIndex(options []string, answer string) int {
	for i, o := range options {
		if o == answer {
			return i
		}
	}
	return -1
}
