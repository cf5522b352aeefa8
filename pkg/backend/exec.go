package backend

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"syscall"

	"github.com/creack/pty"
)

// Opts keeps options for RunCommand.
type Opts struct {
	Dir   string
	Env   []string
	Stdin string
	// Run under a pseudo-terminal. Stdout and stderr are then merged into
	// the returned stdout.
	PTY bool
}

// Output is the result of RunCommand.
type Output struct {
	Stdout, Stderr string
	// Exit status of the process; -1 if it did not run or was killed.
	ExitCode int
}

// Success reports whether the process exited with status 0.
func (o Output) Success() bool { return o.ExitCode == 0 }

// RunCommand runs a program to completion and captures its output. The
// process is killed when ctx is done. A non-nil error means that the program
// could not be run at all; a non-zero exit status is reported in Output.
func RunCommand(ctx context.Context, name string, args []string, opts Opts) (Output, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = opts.Dir
	if opts.Env != nil {
		cmd.Env = append(os.Environ(), opts.Env...)
	}
	logger.Printf("running %s %q", name, args)
	if opts.PTY {
		return runPTY(cmd, opts.Stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if opts.Stdin != "" {
		cmd.Stdin = bytes.NewBufferString(opts.Stdin)
	}
	err := cmd.Run()
	out := Output{stdout.String(), stderr.String(), exitCode(cmd, err)}
	if ctx.Err() != nil {
		return out, ctx.Err()
	}
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return out, err
	}
	return out, nil
}

func runPTY(cmd *exec.Cmd, stdin string) (Output, error) {
	f, err := pty.Start(cmd)
	if err != nil {
		return Output{ExitCode: -1}, err
	}
	defer f.Close()
	if stdin != "" {
		io.WriteString(f, stdin)
	}
	var buf bytes.Buffer
	// Reading from the pty master fails with EIO once the child exits.
	_, err = io.Copy(&buf, f)
	if err != nil && !errors.Is(err, syscall.EIO) {
		logger.Printf("reading pty: %v", err)
	}
	err = cmd.Wait()
	return Output{Stdout: buf.String(), ExitCode: exitCode(cmd, err)}, nil
}

func exitCode(cmd *exec.Cmd, err error) int {
	var exitErr *exec.ExitError
	if err == nil {
		return 0
	}
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	if cmd.ProcessState != nil {
		return cmd.ProcessState.ExitCode()
	}
	return -1
}
