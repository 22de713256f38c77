package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeExec struct {
	loggedIn bool
	calls    []string
}

func (f *fakeExec) record(call string) error {
	f.calls = append(f.calls, call)
	return nil
}

func (f *fakeExec) isLoggedIn() bool                    { return f.loggedIn }
func (f *fakeExec) Register(context.Context) error      { return f.record("register") }
func (f *fakeExec) List(context.Context) error          { return f.record("list") }
func (f *fakeExec) Refresh(context.Context) error       { return f.record("refresh") }
func (f *fakeExec) Stats(context.Context) error         { return f.record("stats") }
func (f *fakeExec) Notifications(context.Context) error { return f.record("notifications") }
func (f *fakeExec) Filed(context.Context) error         { return f.record("filed") }

func (f *fakeExec) Login(context.Context) error {
	f.loggedIn = true
	return f.record("login")
}

func (f *fakeExec) Logout(context.Context) error {
	f.loggedIn = false
	return f.record("logout")
}

func (f *fakeExec) Upload(_ context.Context, paths []string) error {
	return f.record("upload " + strings.Join(paths, ","))
}

func (f *fakeExec) Download(_ context.Context, id string) error {
	return f.record("download " + id)
}

func (f *fakeExec) Dismiss(_ context.Context, id string) error {
	return f.record("dismiss " + id)
}

func (f *fakeExec) SetView(_ context.Context, mode string) error {
	return f.record("mode " + mode)
}

func captureOutput(t *testing.T) *[]string {
	t.Helper()
	var lines []string
	orig := printlnFn
	printlnFn = func(a ...any) (int, error) {
		lines = append(lines, strings.TrimSuffix(fmt.Sprintln(a...), "\n"))
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = orig })
	return &lines
}

func run(t *testing.T, f *fakeExec, input ...string) []string {
	t.Helper()
	out := captureOutput(t)
	scanner := bufio.NewScanner(strings.NewReader(strings.Join(input, "\n") + "\n"))
	runREPL(context.Background(), f, func() string { return "" }, scanner)
	return *out
}

func TestRunREPL_LoginFlowAndCommands(t *testing.T) {
	f := &fakeExec{}
	out := run(t, f,
		"list",
		"login",
		"",
		"l",
		"refresh",
		"stats",
		"upload w2.pdf 1099.pdf",
		"download r1",
		"notifications",
		"dismiss 42",
		"filed",
		"mode tax-form",
		"login",
		"logout",
		"exit",
		"list",
	)

	assert.Equal(t, []string{
		"login",
		"list",
		"refresh",
		"stats",
		"upload w2.pdf,1099.pdf",
		"download r1",
		"notifications",
		"dismiss 42",
		"filed",
		"mode tax-form",
		"logout",
	}, f.calls)
	assert.Contains(t, out, "Unknown command: list", "dashboard commands need a session")
	assert.Contains(t, out, "Already signed in, log out first")
	assert.Equal(t, "Bye!", out[len(out)-1])
}

func TestRunREPL_MissingArgsPassEmpty(t *testing.T) {
	f := &fakeExec{loggedIn: true}
	run(t, f, "download", "mode", "upload")

	assert.Equal(t, []string{"download ", "mode ", "upload "}, f.calls)
}

func TestRunREPL_Help(t *testing.T) {
	out := run(t, &fakeExec{}, "help", "quit")
	assert.Contains(t, out, "Available commands: register, login, exit")

	out = run(t, &fakeExec{loggedIn: true}, "help")
	assert.Contains(t, strings.Join(out, "\n"), "upload, download")
}

func TestRunREPL_PromptShowsStatus(t *testing.T) {
	out := captureOutput(t)
	scanner := bufio.NewScanner(strings.NewReader("exit\n"))
	runREPL(context.Background(), &fakeExec{}, func() string { return "(offline)" }, scanner)

	assert.Equal(t, "taxbox (offline)> ", (*out)[0])
}
