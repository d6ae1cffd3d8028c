package cmd

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/coursekit/internal/app"
)

type env struct {
	config string
	db     string
}

func newEnv(t *testing.T) env {
	t.Helper()
	dir := t.TempDir()
	cfg := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte(`
profile:
  id: tester
  name: Test Learner
storage:
  local_path: `+filepath.Join(dir, "uploads")+`
log:
  level: error
`), 0o644))
	return env{config: cfg, db: filepath.Join(dir, "coursekit.db")}
}

func (e env) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append(args, "--config", e.config, "--db", e.db))
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (e env) app(t *testing.T) *app.App {
	t.Helper()
	a, err := app.New(context.Background(), app.Options{ConfigPath: e.config, DBPath: e.db})
	require.NoError(t, err)
	return a
}

func TestCoursesCommand(t *testing.T) {
	e := newEnv(t)
	out, err := e.run(t, "", "courses")
	require.NoError(t, err)
	assert.Contains(t, out, "HTML Basics")
	assert.Contains(t, out, "CSS Fundamentals")
	assert.Contains(t, out, "0/6")
	assert.Contains(t, out, "Final test locked")
}

func TestLessonAndContinue(t *testing.T) {
	e := newEnv(t)

	out, err := e.run(t, "", "continue", "html")
	require.NoError(t, err)
	assert.Contains(t, out, "Lesson 1: What is HTML?")
	assert.Contains(t, out, "1 of 6 lessons complete")

	out, err = e.run(t, "", "continue", "html")
	require.NoError(t, err)
	assert.Contains(t, out, "Lesson 2")

	_, err = e.run(t, "", "lesson", "html", "9")
	require.Error(t, err)

	_, err = e.run(t, "", "lesson", "html", "x")
	require.Error(t, err)

	_, err = e.run(t, "", "lesson", "cobol", "1")
	require.Error(t, err)
}

func TestFinalTestFlow(t *testing.T) {
	e := newEnv(t)

	_, err := e.run(t, "", "test", "html")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "locked")

	for i := 1; i <= 6; i++ {
		out, err := e.run(t, "", "lesson", "html", strconv.Itoa(i))
		require.NoError(t, err)
		if i == 6 {
			assert.Contains(t, out, "coursekit test html")
		}
	}

	// Input ends after two answers: the attempt is dropped.
	out, err := e.run(t, "a\nb\n", "test", "html")
	require.NoError(t, err)
	assert.Contains(t, out, "Test abandoned")
	a := e.app(t)
	p, _ := a.Progress.Get("html")
	assert.Empty(t, p.UserAnswers)
	require.NoError(t, a.Close())

	out, err = e.run(t, strings.Repeat("a\n", 10), "test", "html")
	require.NoError(t, err)
	assert.Contains(t, out, "Score: ")
	assert.Contains(t, out, "/10")

	a = e.app(t)
	p, _ = a.Progress.Get("html")
	assert.Len(t, p.UserAnswers, 10)
	require.NoError(t, a.Close())
}

func TestFinalTestInterrupted(t *testing.T) {
	e := newEnv(t)
	for i := 1; i <= 6; i++ {
		_, err := e.run(t, "", "lesson", "html", strconv.Itoa(i))
		require.NoError(t, err)
	}

	r, w := io.Pipe()
	defer w.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var out bytes.Buffer
	rootCmd.SetIn(r)
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{"test", "html", "--config", e.config, "--db", e.db})
	// cobra keeps a subcommand's context from an earlier Execute; clear it
	// so testCmd inherits ctx from rootCmd, and don't leak ctx to later tests.
	testCmd.SetContext(nil)
	defer testCmd.SetContext(nil)

	errc := make(chan error, 1)
	go func() { errc <- rootCmd.ExecuteContext(ctx) }()

	// The write returns once the command is reading answers.
	_, err := w.Write([]byte("a\n"))
	require.NoError(t, err)
	cancel()

	select {
	case err := <-errc:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(3 * time.Second):
		t.Fatal("test command did not stop after cancellation")
	}
	assert.Contains(t, out.String(), "Test interrupted")

	a := e.app(t)
	defer a.Close()
	p, _ := a.Progress.Get("html")
	assert.Empty(t, p.UserAnswers)
}

func TestInvalidChoiceReprompts(t *testing.T) {
	e := newEnv(t)
	for i := 1; i <= 5; i++ {
		_, err := e.run(t, "", "lesson", "css", strconv.Itoa(i))
		require.NoError(t, err)
	}

	out, err := e.run(t, "z\n"+strings.Repeat("1\n", 6), "test", "css")
	require.NoError(t, err)
	assert.Contains(t, out, `"z" is not an option`)
	assert.Contains(t, out, "/6")
}

func TestCertCommand(t *testing.T) {
	e := newEnv(t)

	_, err := e.run(t, "", "cert", "html")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "locked")

	a := e.app(t)
	_, err = a.Progress.RecordTestResult(context.Background(), "html", 90, map[string]string{"1": "x"})
	require.NoError(t, err)
	require.NoError(t, a.Close())

	out, err := e.run(t, "", "cert", "html")
	require.NoError(t, err)
	assert.Contains(t, out, "Certificate CERT-")
	assert.Contains(t, out, "HTML Basics")
	first := out

	out, err = e.run(t, "", "cert", "html")
	require.NoError(t, err)
	assert.Equal(t, first, out)

	out, err = e.run(t, "", "cert", "show", "html")
	require.NoError(t, err)
	assert.Contains(t, out, "Certificate CERT-")

	out, err = e.run(t, "", "cert", "show", "css")
	require.NoError(t, err)
	assert.Contains(t, out, "No certificate stored for css")
}

func TestQuizTimesOut(t *testing.T) {
	e := newEnv(t)

	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	var out bytes.Buffer
	rootCmd.SetIn(r)
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{"quiz", "javascript", "--time", "50ms", "--count", "2", "--config", e.config, "--db", e.db})
	require.NoError(t, rootCmd.ExecuteContext(context.Background()))

	assert.Equal(t, 2, strings.Count(out.String(), "Time's up!"))
	assert.Contains(t, out.String(), "Quiz score: 0/2 (0%)")

	a := e.app(t)
	defer a.Close()
	p, _ := a.Progress.Get("javascript")
	assert.Empty(t, p.UserAnswers, "quiz results are not recorded")
}

func TestQuizAnswered(t *testing.T) {
	e := newEnv(t)
	out, err := e.run(t, "a\na\na\n", "quiz", "css", "--time", "5s", "--count", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "Quiz score: ")
	assert.Contains(t, out, "/3")
	assert.NotContains(t, out, "Time's up!")
}

func TestResetCommand(t *testing.T) {
	e := newEnv(t)
	_, err := e.run(t, "", "lesson", "html", "1")
	require.NoError(t, err)

	out, err := e.run(t, "no\n", "reset", "--yes=false")
	require.NoError(t, err)
	assert.Contains(t, out, "Aborted")

	out, err = e.run(t, "", "reset", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Progress reset")

	a := e.app(t)
	defer a.Close()
	assert.Empty(t, a.Progress.All())
}

func TestStatsCommand(t *testing.T) {
	e := newEnv(t)
	_, err := e.run(t, "", "lesson", "css", "1")
	require.NoError(t, err)
	_, err = e.run(t, "", "lesson", "css", "2")
	require.NoError(t, err)

	out, err := e.run(t, "", "stats", "--limit", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "Lessons completed:     2")
	assert.Contains(t, out, "lesson_completed")
	assert.Contains(t, out, "lesson 2")
}

func TestVersionCommand(t *testing.T) {
	e := newEnv(t)
	out, err := e.run(t, "", "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "coursekit "))
}
