package backend

import (
	"context"
	"strings"
	"testing"
	"time"

	"src.sniprun.dev/pkg/testutil"
)

func TestRunCommand(t *testing.T) {
	testutil.RequireBinary(t, "sh")
	out, err := RunCommand(context.Background(), "sh",
		[]string{"-c", `echo out; echo err >&2; echo "$1"; exit 3`, "sh", "arg"}, Opts{})
	if err != nil {
		t.Fatal(err)
	}
	if out.Stdout != "out\narg\n" || out.Stderr != "err\n" || out.ExitCode != 3 {
		t.Errorf("RunCommand -> %+v", out)
	}
}

func TestRunCommand_Stdin(t *testing.T) {
	testutil.RequireBinary(t, "cat")
	out, err := RunCommand(context.Background(), "cat", nil, Opts{Stdin: "piped"})
	if err != nil || out.Stdout != "piped" {
		t.Errorf("RunCommand -> (%+v, %v)", out, err)
	}
}

func TestRunCommand_MissingProgram(t *testing.T) {
	_, err := RunCommand(context.Background(), "sniprun-no-such-program", nil, Opts{})
	if err == nil {
		t.Errorf("RunCommand on missing program -> nil error")
	}
}

func TestRunCommand_KilledOnContextDone(t *testing.T) {
	testutil.RequireBinary(t, "sleep")
	ctx, cancel := context.WithTimeout(context.Background(), testutil.Scaled(50*time.Millisecond))
	defer cancel()
	start := time.Now()
	_, err := RunCommand(ctx, "sleep", []string{"10"}, Opts{})
	if err == nil {
		t.Errorf("RunCommand -> nil error after context expired")
	}
	if time.Since(start) > testutil.Scaled(5*time.Second) {
		t.Errorf("process was not killed")
	}
}

func TestRunCommand_PTY(t *testing.T) {
	testutil.RequireBinary(t, "sh")
	out, err := RunCommand(context.Background(), "sh",
		[]string{"-c", "test -t 1 && echo tty"}, Opts{PTY: true})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.Stdout, "tty") || !out.Success() {
		t.Errorf("RunCommand under pty -> %+v", out)
	}
}
