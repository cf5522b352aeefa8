package replfifo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"src.sniprun.dev/pkg/data"
	"src.sniprun.dev/pkg/sniperr"
	"src.sniprun.dev/pkg/store"
	"src.sniprun.dev/pkg/testutil"
	. "src.sniprun.dev/pkg/tt"
)

func TestMarkers(t *testing.T) {
	if got := StartMarker(3); got != "sniprun_started_id=3" {
		t.Errorf("StartMarker(3) = %q", got)
	}
	if got := EndMarker(3); got != "sniprun_finished_id=3" {
		t.Errorf("EndMarker(3) = %q", got)
	}
}

func TestExtract(t *testing.T) {
	Test(t, Fn(Extract),
		It("returns the text between the sentinels").
			Args("sniprun_started_id=1\nhello\nsniprun_finished_id=1\n", 1).
			Rets("hello\n", true),
		It("returns an empty response").
			Args("sniprun_started_id=1\nsniprun_finished_id=1\n", 1).
			Rets("", true),
		It("reports an incomplete response").
			Args("sniprun_started_id=2\nhello\n", 2).
			Rets("", false),
		It("reports a missing response").
			Args("sniprun_started_id=1\nsniprun_finished_id=1\n", 2).
			Rets("", false),
		It("does not confuse ids sharing a prefix").
			Args("sniprun_started_id=12\nx\nsniprun_finished_id=12\n"+
				"sniprun_started_id=1\ny\nsniprun_finished_id=1\n", 1).
			Rets("y\n", true),
		It("ignores sentinels that do not start a line").
			Args("echo sniprun_started_id=4\nsniprun_started_id=4\nz\nsniprun_finished_id=4", 4).
			Rets("z\n", true),
		It("uses the last start sentinel").
			Args("sniprun_started_id=5\nold\nsniprun_finished_id=5\n"+
				"sniprun_started_id=5\nnew\nsniprun_finished_id=5\n", 5).
			Rets("new\n", true),
	)
}

func TestFilter(t *testing.T) {
	f := Filter{
		StdoutPrompts: []string{"js> "},
		StderrPrompts: []string{">>> "},
		Continuations: []string{"... "},
		NoValue:       []string{"undefined"},
	}
	Test(t, Fn(f.Stdout).Named("Stdout"),
		Args("js> sniprun_started_id=1\n").Rets("sniprun_started_id=1\n"),
		Args("js> ... ... 3\n").Rets("3\n"),
		Args("js> js> > quoted 3\n").Rets("> quoted 3\n"),
		Args("... user output\n").Rets("... user output\n"),
		Args("\x1b[33m3\x1b[39m\r\n").Rets("3\n"),
		Args("hi\nundefined\njs> ").Rets("hi\n"),
	)
	Test(t, Fn(f.Stderr).Named("Stderr"),
		Args(">>> ... ... Traceback\n").Rets("Traceback\n"),
		Args(">>> >>> Traceback\n").Rets("Traceback\n"),
		Args("> kept\n").Rets("> kept\n"),
		Args("... kept\n").Rets("... kept\n"),
	)
}

func setup(t *testing.T) *data.Holder {
	testutil.RequireBinary(t, "sh")
	testutil.Set(t, &BootstrapBackoff, time.Millisecond)
	testutil.Set(t, &InitialPollDelay, time.Millisecond)
	dir := testutil.TempDir(t)
	t.Cleanup(Close)
	return &data.Holder{
		WorkDir: dir,
		Range:   data.Range{Start: 3, End: 5},
		Store:   store.NewMemory(42),
	}
}

var shKernel = Kernel{Name: "Sh_fifo", Program: "sh"}

func shWrap(code string) func(int) string {
	return func(id int) string {
		return fmt.Sprintf("echo %[1]s; echo %[1]s >&2\n%[2]s\necho %[3]s; echo %[3]s >&2\n",
			StartMarker(id), code, EndMarker(id))
	}
}

func TestSession_BootstrapThenRun(t *testing.T) {
	d := setup(t)
	s := NewSession(d, shKernel)
	if want := filepath.Join(d.WorkDir, "sh_fifo", "42", "fifo_repl"); s.Dir != want {
		t.Errorf("Dir = %q, want %q", s.Dir, want)
	}

	_, err := s.Run(context.Background(), shWrap("x=hello"))
	rerun, ok := sniperr.AsReRun(err)
	if !ok {
		t.Fatalf("first Run returns %v, want rerun directive", err)
	}
	if diff := cmp.Diff(sniperr.ReRunRanges{d.Range}, rerun); diff != "" {
		t.Errorf("rerun (-want +got):\n%s", diff)
	}
	if sess := d.Store.View("Sh_fifo"); sess.Content != store.KernelLaunched || !sess.HasPID {
		t.Errorf("session after bootstrap = %+v", sess)
	}
	if _, err := os.Stat(filepath.Join(s.Dir, PipeIn)); err != nil {
		t.Errorf("pipe_in not created: %v", err)
	}

	out, err := s.Run(context.Background(), shWrap("x=hello"))
	if err != nil || out != "" {
		t.Errorf("Run(x=hello) -> %q, %v", out, err)
	}
	out, err = s.Run(context.Background(), shWrap(`echo "$x"`))
	if err != nil || out != "hello\n" {
		t.Errorf("Run(echo) -> %q, %v, want state kept across requests", out, err)
	}
	if pid := d.Store.View("Sh_fifo").PID; pid != 2 {
		t.Errorf("correlation counter = %d, want 2", pid)
	}
}

func TestSession_StderrIsRuntimeError(t *testing.T) {
	d := setup(t)
	s := NewSession(d, shKernel)
	s.Run(context.Background(), shWrap(""))

	_, err := s.Run(context.Background(), shWrap("echo oops >&2"))
	if !errors.Is(err, sniperr.RuntimeError("oops")) {
		t.Errorf("got error %v, want runtime error with message oops", err)
	}
}

func TestSession_ErrorMarkers(t *testing.T) {
	d := setup(t)
	k := shKernel
	k.ErrorMarkers = []string{"Uncaught"}
	s := NewSession(d, k)
	s.Run(context.Background(), shWrap(""))

	_, err := s.Run(context.Background(), shWrap("echo Uncaught TypeError"))
	if !errors.Is(err, sniperr.RuntimeError("Uncaught TypeError")) {
		t.Errorf("got error %v, want runtime error", err)
	}
}

func TestSession_Timeout(t *testing.T) {
	d := setup(t)
	d.InterpreterOptions = data.Options{"Sh_fifo": {"repl_timeout": 1}}
	s := NewSession(d, shKernel)
	if s.Timeout != time.Second {
		t.Errorf("Timeout = %v, want 1s", s.Timeout)
	}
	s.Run(context.Background(), shWrap(""))

	_, err := s.Run(context.Background(), func(int) string { return "true" })
	if !errors.Is(err, sniperr.InterpreterLimitationError("reached the repl timeout")) {
		t.Errorf("got error %v, want timeout", err)
	}
}

func TestSession_RelaunchAfterClose(t *testing.T) {
	d := setup(t)
	s := NewSession(d, shKernel)
	s.Run(context.Background(), shWrap(""))
	if !s.Ready() {
		t.Fatal("session not ready after bootstrap")
	}
	Close()
	if s.Ready() {
		t.Error("session ready after Close")
	}
	_, err := s.Run(context.Background(), shWrap(""))
	if _, ok := sniperr.AsReRun(err); !ok {
		t.Errorf("Run after Close returns %v, want rerun directive", err)
	}
}

func TestSession_KernelExitsAtStartup(t *testing.T) {
	d := setup(t)
	testutil.RequireBinary(t, "false")
	s := NewSession(d, Kernel{Name: "False_fifo", Program: "false"})

	_, err := s.Run(context.Background(), shWrap(""))
	if _, ok := sniperr.AsReRun(err); !ok {
		t.Fatalf("first Run returns %v, want rerun directive", err)
	}
	waitFor(t, "the kernel to exit", func() bool { return kernels.get(s.Dir) == nil })

	_, err = s.Run(context.Background(), shWrap(""))
	if sniperr.KindOf(err) != sniperr.Interpreter || !strings.Contains(err.Error(), "the REPL exited (exit status 1)") {
		t.Errorf("Run after the kernel died returns %v, want interpreter error", err)
	}
	// The failure is reported once; the next request tries again.
	_, err = s.Run(context.Background(), shWrap(""))
	if _, ok := sniperr.AsReRun(err); !ok {
		t.Errorf("Run after reporting the exit returns %v, want rerun directive", err)
	}
}

func TestSession_ExitTail(t *testing.T) {
	d := setup(t)
	s := NewSession(d, Kernel{Name: "Sh_fifo", Program: "sh", Args: []string{"-c", "echo broken venv >&2; exit 3"}})
	s.Run(context.Background(), shWrap(""))
	waitFor(t, "the kernel to exit", func() bool { return kernels.get(s.Dir) == nil })

	_, err := s.Run(context.Background(), shWrap(""))
	if want := "the REPL exited (exit status 3): broken venv"; err == nil || !strings.HasSuffix(err.Error(), want) {
		t.Errorf("got error %v, want suffix %q", err, want)
	}
}

func TestSession_BootstrapKeepsCounterOfRunningKernel(t *testing.T) {
	d := setup(t)
	s := NewSession(d, shKernel)
	s.Run(context.Background(), shWrap(""))
	s.Run(context.Background(), shWrap("x=1"))
	s.Run(context.Background(), shWrap("x=2"))

	d.Store.Clear()
	_, err := s.Run(context.Background(), shWrap(""))
	if _, ok := sniperr.AsReRun(err); !ok {
		t.Fatalf("Run after clearing the store returns %v, want rerun directive", err)
	}
	if pid := d.Store.View("Sh_fifo").PID; pid != 2 {
		t.Errorf("correlation counter = %d, want 2 kept for the running kernel", pid)
	}
	out, err := s.Run(context.Background(), shWrap(`echo "$x"`))
	if err != nil || out != "2\n" {
		t.Errorf("Run(echo) -> %q, %v, want kernel state kept", out, err)
	}
}

func waitFor(t *testing.T, what string, f func() bool) {
	t.Helper()
	deadline := time.Now().Add(testutil.Scaled(5 * time.Second))
	for !f() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestSession_NoStore(t *testing.T) {
	s := NewSession(&data.Holder{WorkDir: t.TempDir()}, shKernel)
	_, err := s.Run(context.Background(), shWrap(""))
	if sniperr.KindOf(err) != sniperr.InterpreterLimitation {
		t.Errorf("got error %v, want interpreter limitation", err)
	}
}

func TestSession_Record(t *testing.T) {
	d := &data.Holder{WorkDir: t.TempDir(), Store: store.NewMemory(1)}
	s := NewSession(d, shKernel)
	if s.Known() != "" {
		t.Errorf("Known on empty store = %q", s.Known())
	}
	d.Store.Update("Sh_fifo", func(sess *store.Session) error {
		sess.Owner = "Sh_fifo"
		sess.Content = store.KernelLaunched
		return nil
	})
	s.Record([]string{"import os", "import sys"})
	if want := "kernel_launched\nimport os\nimport sys"; s.Known() != want {
		t.Errorf("Known = %q, want %q", s.Known(), want)
	}
}
